package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/groundwork/infrastructure/config"
)

type validateOptions struct {
	configPath string
	strict     bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a pipeline configuration file",
		Long: `Validate parses a configuration file, expands environment variable
references, and checks it for inconsistencies without running anything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to pipeline configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail on unset environment variable references")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (a *App) validateConfig(opts *validateOptions) error {
	loader := config.NewLoaderWithOptions(
		config.WithValidation(true),
		config.WithStrictEnv(opts.strict),
	)

	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Name: %s\n", cfg.Name)
	fmt.Fprintf(a.stdout, "  Model: %s/%s\n", cfg.Model.Provider, cfg.Model.Model)
	fmt.Fprintf(a.stdout, "  Retrieval: %s (top_k=%d)\n", cfg.Retrieval.Backend, cfg.Retrieval.TopK)
	fmt.Fprintf(a.stdout, "  Verifier retries: %d\n", cfg.Verifier.MaxRetries)

	return nil
}
