// Sentra - Real-time transaction fraud decisioning
package main

import (
	"context"
	"os"

	"github.com/sentra-io/sentra/internal/config"
	"github.com/sentra-io/sentra/internal/logging"
	"github.com/sentra-io/sentra/internal/server"
	"github.com/sentra-io/sentra/internal/traces"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	logger.Info("starting sentra",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"artifact_dir", cfg.ArtifactDir,
		"update_baselines", cfg.UpdateBaselines,
	)

	ctx := context.Background()

	// Trace export is optional; scoring runs fine without a collector
	if cfg.OTLPEndpoint != "" {
		shutdown, err := traces.Init(ctx, cfg.OTLPEndpoint, logger)
		if err != nil {
			logger.Warn("failed to init tracing", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	// Create and run server
	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
