// Package main is the entry point for the blog server.
//
// The main package is kept minimal. Its job is to:
//  1. Read configuration (a .env file if present, then the environment)
//  2. Create the logger
//  3. Build and start the server
//
// All actual logic lives in internal/.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/sakif/blog/internal/config"
	"github.com/sakif/blog/internal/server"
)

func main() {
	// === 1. LOAD .env ===
	// Values already in the environment win over the file. A missing file is
	// the normal case in production.
	envErr := godotenv.Load()

	// === 2. READ CONFIGURATION ===
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. SET UP LOGGING ===
	// Log levels (from least to most severe): Debug → Info → Warn → Error.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("could not read .env", slog.String("error", envErr.Error()))
	}
	if cfg.GeneratedSecret {
		logger.Warn("SECRET_KEY not set, using a random secret: sessions will not survive a restart")
	}
	if !cfg.Mail.Enabled() {
		logger.Warn("MY_MAIL / MY_MAIL_SMTP not set, the contact form will report delivery failures")
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(context.Background(), cfg, logger, server.Deps{})
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
