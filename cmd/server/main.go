// Package main is the entry point for the secure file sharing server.
//
// main stays minimal — its job is to:
// 1. Set up logging
// 2. Load configuration (env vars, optionally a .env file)
// 3. Create and start the server
//
// All actual logic lives in imported packages (internal/server,
// internal/handler, etc.).
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/secure-file-share/internal/config"
	"github.com/sakif/secure-file-share/internal/server"
)

func main() {
	// === 1. SET UP LOGGING ===
	// Structured text logs to stdout. LOG_LEVEL=debug enables debug output;
	// anything else (or unset) runs at Info.
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	// === 2. LOAD CONFIGURATION ===
	// config.Load reads the environment once; nothing else in the process
	// touches env vars after this point.
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Ensure the database directory exists before the driver tries to
	// create the file inside it.
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
