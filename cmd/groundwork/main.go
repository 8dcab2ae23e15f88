// Command groundwork runs the retrieval-grounded document pipeline.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/felixgeelhaar/groundwork/interfaces/cli"
)

func main() {
	app := cli.New()
	if err := app.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
