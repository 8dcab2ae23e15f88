package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/groundwork/application"
	"github.com/felixgeelhaar/groundwork/domain/evidence"
	"github.com/felixgeelhaar/groundwork/domain/run"
	"github.com/felixgeelhaar/groundwork/infrastructure/config"
	"github.com/felixgeelhaar/groundwork/infrastructure/logging"
	"github.com/felixgeelhaar/groundwork/infrastructure/model"
	"github.com/felixgeelhaar/groundwork/infrastructure/observability"
	"github.com/felixgeelhaar/groundwork/infrastructure/resilience"
	"github.com/felixgeelhaar/groundwork/infrastructure/retrieval"
	badgerstore "github.com/felixgeelhaar/groundwork/infrastructure/storage/badger"
	memorystore "github.com/felixgeelhaar/groundwork/infrastructure/storage/memory"
	mongostore "github.com/felixgeelhaar/groundwork/infrastructure/storage/mongodb"
	postgresstore "github.com/felixgeelhaar/groundwork/infrastructure/storage/postgres"
	redisstore "github.com/felixgeelhaar/groundwork/infrastructure/storage/redis"
	sqlitestore "github.com/felixgeelhaar/groundwork/infrastructure/storage/sqlite"
)

type runOptions struct {
	configPath string
	docs       []string
	jsonOutput bool
	citations  bool
	auditLog   bool
}

// newRunCmd creates the run command.
func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run a task through the pipeline",
		Long: `Run executes a user task through the plan, research, write, verify
pipeline and prints the deliverable. The task is grounded against the
configured retrieval backend; with the memory backend, --docs seeds the
corpus from local text files.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to pipeline configuration file")
	cmd.Flags().StringSliceVar(&opts.docs, "docs", nil, "Files or directories to seed the in-memory corpus")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the full run record as JSON")
	cmd.Flags().BoolVar(&opts.citations, "citations", false, "Print the citation list after the deliverable")
	cmd.Flags().BoolVar(&opts.auditLog, "log", false, "Print the run's audit log after the deliverable")

	return cmd
}

func (a *App) runPipeline(ctx context.Context, userTask string, opts *runOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	pipeline, cleanup, err := buildPipeline(cfg, opts.docs)
	if err != nil {
		return err
	}
	defer cleanup()

	state, err := pipeline.Run(ctx, userTask)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	if opts.jsonOutput {
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding run record: %w", err)
		}
		fmt.Fprintln(a.stdout, string(data))
		return nil
	}

	fmt.Fprintln(a.stdout, state.FinalOutput)

	if opts.citations && len(state.Citations) > 0 {
		fmt.Fprintln(a.stdout, "\n### Sources")
		for i, c := range state.Citations {
			fmt.Fprintf(a.stdout, "[%d] %s (%s)\n", i+1, c.DocID, c.Location)
		}
	}

	if opts.auditLog {
		fmt.Fprintln(a.stdout, "\n### Audit log")
		for _, entry := range state.Log {
			fmt.Fprintf(a.stdout, "%s  %-12s %-24s %s\n", entry.Timestamp, entry.Stage, entry.Action, entry.Outcome)
		}
	}

	return nil
}

// loadConfig reads the pipeline configuration, falling back to defaults
// when no path is given.
func loadConfig(path string) (*config.PipelineConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	loader := config.NewLoader()
	cfg, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// buildPipeline assembles a pipeline from configuration. The returned
// cleanup func closes any storage backends that hold resources.
func buildPipeline(cfg *config.PipelineConfig, docs []string) (*application.Pipeline, func(), error) {
	cleanup := func() {}

	invoker, err := buildInvoker(cfg)
	if err != nil {
		return nil, cleanup, err
	}

	retriever, err := buildRetriever(cfg, docs)
	if err != nil {
		return nil, cleanup, err
	}

	pipelineOpts := []application.Option{
		application.WithTopK(cfg.Retrieval.TopK),
		application.WithMaxRetries(cfg.Verifier.MaxRetries),
	}

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		return nil, cleanup, err
	}
	if store != nil {
		pipelineOpts = append(pipelineOpts, application.WithStore(store))
	}

	tracer, err := observability.New(observability.Config{
		ServiceName:    "groundwork",
		ServiceVersion: Version,
		Enabled:        cfg.Tracing.Enabled,
		Exporter:       observability.Exporter(cfg.Tracing.Exporter),
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		Writer:         os.Stderr,
	})
	if err != nil {
		closeStore()
		return nil, cleanup, fmt.Errorf("initializing tracing: %w", err)
	}
	pipelineOpts = append(pipelineOpts, application.WithTracer(tracer))

	cleanup = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			logging.Warn().Add(logging.ErrorField(err)).Msg("tracer shutdown failed")
		}
		closeStore()
	}

	pipeline, err := application.New(invoker, retriever, pipelineOpts...)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	return pipeline, cleanup, nil
}

func buildInvoker(cfg *config.PipelineConfig) (model.Invoker, error) {
	var provider model.Provider
	switch cfg.Model.Provider {
	case "openai":
		provider = model.NewOpenAIProvider(model.OpenAIConfig{
			APIKey:  cfg.Model.APIKey,
			BaseURL: cfg.Model.BaseURL,
			Model:   cfg.Model.Model,
			Timeout: cfg.Model.Timeout,
		})
	case "anthropic":
		provider = model.NewAnthropicProvider(model.AnthropicConfig{
			APIKey:  cfg.Model.APIKey,
			BaseURL: cfg.Model.BaseURL,
			Model:   cfg.Model.Model,
			Timeout: cfg.Model.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}

	var invoker model.Invoker = model.NewStructuredClient(model.StructuredClientConfig{
		Provider:    provider,
		Model:       cfg.Model.Model,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
	})

	if cfg.Resilience.MaxAttempts > 1 {
		invoker = resilience.NewInvoker(invoker, resilience.Config{
			MaxAttempts:           cfg.Resilience.MaxAttempts,
			InitialDelay:          time.Duration(cfg.Resilience.InitialDelayMS) * time.Millisecond,
			RetrySchemaViolations: cfg.Resilience.RetrySchemaViolations,
		})
	}

	return invoker, nil
}

func buildRetriever(cfg *config.PipelineConfig, docs []string) (evidence.Retriever, error) {
	switch cfg.Retrieval.Backend {
	case "http":
		return retrieval.NewHTTPRetriever(retrieval.HTTPConfig{
			Endpoint: cfg.Retrieval.Endpoint,
			APIKey:   cfg.Retrieval.APIKey,
			Corpus:   cfg.Retrieval.Corpus,
			Timeout:  cfg.Retrieval.Timeout,
		}), nil
	case "memory", "":
		r := retrieval.NewMemoryRetriever()
		if err := seedCorpus(r, docs); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown retrieval backend %q", cfg.Retrieval.Backend)
	}
}

func buildStore(cfg *config.PipelineConfig) (run.Store, func(), error) {
	noop := func() {}
	switch cfg.Storage.Backend {
	case "", "none":
		return nil, noop, nil
	case "memory":
		return memorystore.NewRunStore(), noop, nil
	case "badger":
		store, err := badgerstore.NewRunStore(badgerstore.DefaultConfig(),
			badgerstore.WithDir(cfg.Storage.Path))
		if err != nil {
			return nil, noop, fmt.Errorf("opening badger store: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logging.Warn().Add(logging.ErrorField(err)).Msg("closing badger store failed")
			}
		}, nil
	case "sqlite":
		store, err := sqlitestore.NewRunStore(sqlitestore.DefaultConfig(),
			sqlitestore.WithDSN("file:"+cfg.Storage.Path+"?cache=shared&mode=rwc"),
			sqlitestore.WithAutoMigrate())
		if err != nil {
			return nil, noop, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logging.Warn().Add(logging.ErrorField(err)).Msg("closing sqlite store failed")
			}
		}, nil
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := postgresstore.Connect(ctx, cfg.Storage.DSN, "")
		if err != nil {
			return nil, noop, fmt.Errorf("opening postgres store: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, noop, fmt.Errorf("migrating postgres store: %w", err)
		}
		return store, store.Close, nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := redisstore.Connect(ctx, redisstore.WithAddress(cfg.Storage.DSN))
		if err != nil {
			return nil, noop, fmt.Errorf("opening redis store: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logging.Warn().Add(logging.ErrorField(err)).Msg("closing redis store failed")
			}
		}, nil
	case "mongodb":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := mongostore.NewClient(ctx, mongostore.Config{URI: cfg.Storage.DSN})
		if err != nil {
			return nil, noop, fmt.Errorf("opening mongodb store: %w", err)
		}
		return mongostore.NewRunStore(client, ""), func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				logging.Warn().Add(logging.ErrorField(err)).Msg("closing mongodb store failed")
			}
		}, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// seedCorpus loads the given files and directories into the in-memory
// retriever, one passage per paragraph. Paragraphs keep their source
// file and ordinal so citations point at a locatable excerpt.
func seedCorpus(r *retrieval.MemoryRetriever, docs []string) error {
	for _, root := range docs {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("reading docs path %q: %w", root, err)
		}
		if !info.IsDir() {
			if err := seedFile(r, root); err != nil {
				return err
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".txt", ".md":
				return seedFile(r, path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("walking docs dir %q: %w", root, err)
		}
	}
	return nil
}

func seedFile(r *retrieval.MemoryRetriever, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading doc %q: %w", path, err)
	}
	docID := filepath.Base(path)
	paragraphs := strings.Split(string(data), "\n\n")
	n := 0
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n++
		r.Add(docID, fmt.Sprintf("para %d", n), p)
	}
	return nil
}
