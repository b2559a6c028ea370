// Command server runs the vectorkit document-ingestion and
// semantic-search control plane.
//
// Configuration is loaded entirely from environment variables; see
// internal/config for the full list.
//
// Usage:
//
//	# Start the server with defaults
//	server serve
//
//	# Configure via environment
//	SERVER_LISTEN_ADDR=:9090 DATABASE_URL=postgres://... server serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vectorkit/vectorkit/internal/app"
	"github.com/vectorkit/vectorkit/internal/config"
	"github.com/vectorkit/vectorkit/internal/logging"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "server",
	Short:   "vectorkit document-ingestion and semantic-search control plane",
	Version: fmt.Sprintf("%s (%s)", version, gitCommit),
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load configuration, wire every provider, and run until shutdown",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info(ctx, "starting vectorkit",
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.String("storage_provider", cfg.Storage.Provider),
		zap.String("vectordb_provider", cfg.VectorDB.Provider),
		zap.String("embedder_provider", cfg.Embedder.Provider))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info(ctx, "received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wiring application: %w", err)
	}
	defer application.Close()

	logger.Info(ctx, "application wired",
		zap.Strings("vector_dbs", application.VectorDBs.ListIDs()),
		zap.Strings("embedders", application.Embedders.ListIDs()),
		zap.Strings("storage_providers", application.Storages.ListIDs()))

	if err := application.Collections.Sync(ctx); err != nil {
		logger.Warn(ctx, "initial collection sync failed", zap.Error(err))
	}

	logger.Info(ctx, "batch executor starting")
	application.Executor.Run(ctx)

	logger.Info(ctx, "shutdown complete")
	return nil
}

// newLogger builds the structured logger from cfg's logging settings,
// layered over the package's own defaults for sampling, redaction, and
// caller info.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	logCfg.Format = cfg.Logging.Format

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		return nil, fmt.Errorf("invalid logging.level %q: %w", cfg.Logging.Level, err)
	}
	logCfg.Level = level

	return logging.NewLogger(logCfg)
}
