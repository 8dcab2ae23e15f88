package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/groundwork/application"
	"github.com/felixgeelhaar/groundwork/infrastructure/logging"
)

type evalOptions struct {
	configPath string
	casesPath  string
	docs       []string
	verbose    bool
}

// newEvalCmd creates the eval command.
func (a *App) newEvalCmd() *cobra.Command {
	opts := &evalOptions{}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run an evaluation suite against the pipeline",
		Long: `Eval runs every case in a JSON case file through the pipeline and
checks each output against the case's assertions. The command exits
non-zero when any case fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEval(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to pipeline configuration file")
	cmd.Flags().StringVar(&opts.casesPath, "cases", "", "Path to the evaluation case file")
	cmd.Flags().StringSliceVar(&opts.docs, "docs", nil, "Files or directories to seed the in-memory corpus")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print output previews for failing cases")
	_ = cmd.MarkFlagRequired("cases")

	return cmd
}

func (a *App) runEval(ctx context.Context, opts *evalOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	cases, err := application.LoadCases(opts.casesPath)
	if err != nil {
		return fmt.Errorf("loading cases: %w", err)
	}

	pipeline, cleanup, err := buildPipeline(cfg, opts.docs)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := application.RunSuite(ctx, pipeline, cases)
	if err != nil {
		return fmt.Errorf("eval suite aborted: %w", err)
	}

	for _, cr := range result.Results {
		if cr.Passed {
			fmt.Fprintf(a.stdout, "PASS  %s\n", cr.ID)
			continue
		}
		fmt.Fprintf(a.stdout, "FAIL  %s\n", cr.ID)
		for _, failure := range cr.Failures {
			fmt.Fprintf(a.stdout, "      - %s\n", failure)
		}
		if opts.verbose {
			fmt.Fprintf(a.stdout, "      output: %s\n", cr.OutputPreview)
		}
	}

	fmt.Fprintf(a.stdout, "\nFINAL SCORE: %d/%d\n", result.Passed, result.Total)

	if !result.AllPassed() {
		return fmt.Errorf("%d of %d cases failed", result.Total-result.Passed, result.Total)
	}
	return nil
}
