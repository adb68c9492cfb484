package main

import (
	"context"
	"net/http"

	"github.com/agentuity/go-caselaw/api"
	"github.com/agentuity/go-caselaw/cache"
	"github.com/agentuity/go-caselaw/config"
	"github.com/agentuity/go-caselaw/env"
	"github.com/agentuity/go-caselaw/loader"
	"github.com/agentuity/go-caselaw/logger"
	"github.com/agentuity/go-caselaw/resilience"
	"github.com/agentuity/go-caselaw/store"
	"github.com/agentuity/go-caselaw/telemetry"
	"github.com/agentuity/go-caselaw/tui"
	"github.com/spf13/cobra"
)

// NewRootCmd returns the caselaw command with every subcommand attached.
func NewRootCmd(ver string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "caselaw",
		Short:         "Browse and maintain the case law database",
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			tui.Output = cmd.OutOrStdout()
		},
	}
	flags := cmd.PersistentFlags()
	flags.String("config", "", "YAML config file")
	flags.String("env-file", "", "file of KEY=value lines read before the environment")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("api-url", "", "base URL of the case API")
	flags.String("token", "", "API bearer token")
	flags.String("otlp-endpoint", "", "OTLP/HTTP collector for traces")
	flags.Bool("no-telemetry", false, "disable tracing")
	flags.Bool("json", false, "print JSON instead of tables")

	cmd.AddCommand(
		newListCmd(),
		newShowCmd(),
		newCountCmd(),
		newStatsCmd(),
		newFacetsCmd(),
		newUpdateCmd(),
		newSyncCmd(),
		newHealthCmd(),
		newConfigCmd(),
	)
	return cmd
}

// app holds the components one command runs with.
type app struct {
	cfg      config.Config
	logger   logger.Logger
	cache    cache.Cache
	client   *api.Client
	store    *store.Store
	shutdown telemetry.ShutdownFunc
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, shutdown, err := env.NewTelemetry(ctx, cmd, cfg, env.NewLogger(cmd, cfg))
	if err != nil {
		return nil, err
	}

	opts := []api.Option{
		api.WithLogger(log),
		api.WithToken(cfg.API.Token),
		api.WithRetries(cfg.API.Retries),
		api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout.Std()}),
	}
	if cfg.API.CircuitBreaker {
		cbConfig := resilience.DefaultCircuitBreakerConfig()
		cbConfig.RequestTimeout = cfg.API.Timeout.Std()
		opts = append(opts, api.WithCircuitBreaker(resilience.NewCircuitBreaker(cbConfig)))
	}
	client := api.New(cfg.API.URL, opts...)

	c := cache.NewInMemory(ctx,
		cache.WithCapacity(cfg.Cache.Capacity),
		cache.WithExpires(cfg.Cache.TTL.Std()),
		cache.WithExpiryCheck(cfg.Cache.ExpiryCheck.Std()),
	)
	s, err := store.New(ctx, store.Deps{
		Backend: client,
		Cache:   c,
		Logger:  log,
		LoaderOptions: []loader.Option{
			loader.WithBatchDelay(cfg.Loader.BatchDelay.Std()),
			loader.WithPreloadConcurrency(cfg.Loader.PreloadConcurrency),
		},
	}, store.Config{
		ItemsPerPage:         cfg.Store.ItemsPerPage,
		BatchSize:            cfg.Loader.BatchSize,
		MaxItems:             cfg.Loader.MaxItems,
		CacheTTL:             cfg.Loader.CacheTTL.Std(),
		PageTTL:              cfg.Loader.PageTTL.Std(),
		PreloadPages:         cfg.Loader.PreloadPages,
		NotificationDuration: cfg.Store.NotificationDuration.Std(),
		SyncReloadDelay:      cfg.Store.SyncReloadDelay.Std(),
		FiltersTTL:           cfg.Store.FiltersTTL.Std(),
	})
	if err != nil {
		c.Close()
		shutdown()
		return nil, err
	}
	return &app{cfg: cfg, logger: log, cache: c, client: client, store: s, shutdown: shutdown}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("error closing store: %s", err)
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("error closing cache: %s", err)
	}
	a.shutdown()
}

// run builds the app for a command and closes it once fn returns.
func run(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, cmd, args)
	}
}

// load fills the store with the full record set behind a spinner.
func (a *app) load(ctx context.Context, refresh bool) error {
	progress := func(n int) {
		a.logger.Debug("loaded %d cases", n)
	}
	return tui.ShowSpinner(ctx, "Loading cases", func(ctx context.Context) error {
		if refresh {
			return a.store.Refresh(ctx, progress)
		}
		return a.store.Load(ctx, progress)
	})
}
