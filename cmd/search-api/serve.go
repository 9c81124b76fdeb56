package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Sternrassler/music-search-api/internal/config"
	"github.com/Sternrassler/music-search-api/pkg/api"
	"github.com/Sternrassler/music-search-api/pkg/catalog"
	"github.com/Sternrassler/music-search-api/pkg/logging"
	"github.com/Sternrassler/music-search-api/pkg/metrics"
	"github.com/Sternrassler/music-search-api/pkg/search"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	registerServeFlags(cmd)
	return cmd
}

func registerServeFlags(cmd *cobra.Command) {
	defaults := config.Default()
	flags := cmd.Flags()
	flags.String(flagConfig, "", "path to a YAML config file")
	flags.String(flagAddr, defaults.Addr, "listen address")
	flags.String(flagUpstream, defaults.Upstream.BaseURL, "catalog endpoint URL")
	flags.Int(flagConcurrency, defaults.Fetch.Concurrency, "maximum concurrent detail lookups per search")
	flags.Int(flagRetries, defaults.Fetch.Retries, "maximum detail attempts per candidate")
	flags.String(flagLogLevel, defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.Bool(flagLogPretty, defaults.Log.Pretty, "human-readable console logs instead of JSON")
}

// resolveConfig layers file, environment and explicitly set flags.
func resolveConfig(flags *pflag.FlagSet) (config.Config, error) {
	path, err := flags.GetString(flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}

	if flags.Changed(flagAddr) {
		cfg.Addr, _ = flags.GetString(flagAddr)
	}
	if flags.Changed(flagUpstream) {
		cfg.Upstream.BaseURL, _ = flags.GetString(flagUpstream)
	}
	if flags.Changed(flagConcurrency) {
		cfg.Fetch.Concurrency, _ = flags.GetInt(flagConcurrency)
	}
	if flags.Changed(flagRetries) {
		cfg.Fetch.Retries, _ = flags.GetInt(flagRetries)
	}
	if flags.Changed(flagLogLevel) {
		cfg.Log.Level, _ = flags.GetString(flagLogLevel)
	}
	if flags.Changed(flagLogPretty) {
		cfg.Log.Pretty, _ = flags.GetBool(flagLogPretty)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newRouter wires the search service and the operational endpoints.
func newRouter(cfg config.Config, logger zerolog.Logger) (http.Handler, error) {
	client, err := catalog.New(cfg.CatalogConfig())
	if err != nil {
		return nil, fmt.Errorf("create catalog client: %w", err)
	}

	svcCfg := search.ServiceConfig{
		Fetch:    cfg.FetchConfig(),
		Defaults: cfg.Defaults,
		Logger:   &logger,
	}
	svc, err := search.NewService(client, svcCfg)
	if err != nil {
		return nil, fmt.Errorf("create search service: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(cfg))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/", api.NewHandler(svc, cfg.APIConfig()))

	return logging.Middleware(logger)(mux), nil
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := logging.Setup(cfg.LoggingConfig())

	handler, err := newRouter(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Startup failed")
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("upstream", cfg.Upstream.BaseURL).
			Int("concurrency", cfg.Fetch.Concurrency).
			Int("retries", cfg.Fetch.Retries).
			Msg("Starting search API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error().Err(err).Msg("Server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		return err
	}
	logger.Info().Msg("Server stopped")
	return nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports ready while the catalog configuration is usable.
func readyHandler(cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.CatalogConfig().Validate(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "Catalog not configured: %v", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}
