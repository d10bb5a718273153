package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/sydlexius/commonsfind/internal/config"
	"github.com/sydlexius/commonsfind/internal/logging"
	"github.com/sydlexius/commonsfind/internal/lookup"
	"github.com/sydlexius/commonsfind/internal/provider"
	"github.com/sydlexius/commonsfind/internal/provider/commons"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("commonsfind %s (%s)\n", version, commit)
		return
	}

	if err := run(os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run performs one pass over the built-in query list, printing results to
// out and logs to logOut. Lookup failures are printed and never make run
// return an error.
func run(out, logOut io.Writer) error {
	logManager, logger := logging.NewManager(logging.DefaultConfig(), logOut)
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	configPath := os.Getenv("CF_CONFIG_PATH")
	if configPath == "" {
		configPath = "commonsfind.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.FilePath = cfg.Logging.FilePath
	logManager.Reconfigure(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rateLimiters := provider.NewRateLimiterMap()
	rateLimiters.SetLimit(provider.NameCommons, cfg.Commons.RateLimit)

	runLogger := logger.With(slog.String("run_id", uuid.NewString()))
	runLogger.Info("starting commonsfind",
		slog.String("version", version),
		slog.String("provider", provider.NameCommons.DisplayName()),
		slog.String("endpoint", cfg.Commons.Endpoint),
		slog.Float64("rate_limit", float64(rateLimiters.Limit(provider.NameCommons))),
		slog.Duration("timeout", cfg.Commons.Timeout),
		slog.String("logging", logManager.Config().String()))

	adapter := commons.NewWithOptions(rateLimiters, runLogger, commons.Options{
		Endpoint:  cfg.Commons.Endpoint,
		UserAgent: cfg.Commons.UserAgent,
		Timeout:   cfg.Commons.Timeout,
	})

	runner := lookup.NewRunner(adapter, out, runLogger)
	results := runner.Run(ctx, lookup.DefaultQueries())

	found, failed := lookup.Summary(results)
	runLogger.Info("lookups finished",
		slog.Int("found", found),
		slog.Int("failed", failed))

	return nil
}
