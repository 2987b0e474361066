// Package main is the entry point for the Conduit API server.
//
// main stays minimal: read configuration, build the logger, make sure the
// database directory exists and hand everything to internal/server.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/conduit/internal/config"
	"github.com/sakif/conduit/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// .env (optional) then the environment; see internal/config for keys.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if cfg.SecretKey == config.DevSecret {
		logger.Warn("SECRET_KEY not set, using the development secret; tokens are forgeable")
	}

	// === 3. DATABASE DIRECTORY ===
	// Equivalent of `mkdir -p`. Skipped for in-memory databases.
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
