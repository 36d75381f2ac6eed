// Package main is the entry point for the user-hobbies server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal. Its job is to:
//  1. Read configuration (internal/config: defaults, config.yaml, .env, env vars)
//  2. Create dependencies (logger, data directory)
//  3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// USAGE:
//
//	go run ./cmd/server                       # defaults: :8080, data/users.db
//	go run ./cmd/server -config prod.yaml
//	USERHOBBIES_SERVER_PORT=9090 go run ./cmd/server
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/user-hobbies/internal/config"
	"github.com/sakif/user-hobbies/internal/repository/sqlstore"
	"github.com/sakif/user-hobbies/internal/server"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file (default: ./config.yaml if present)")
	flag.Parse()

	// === 1. READ CONFIGURATION ===
	// Nothing is configured yet, so a broken config is reported with the
	// default logger.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger := cfg.Server.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	// === 3. DATA DIRECTORY ===
	// A file-backed SQLite database needs its directory to exist.
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	if err := ensureDataDir(cfg.Database); err != nil {
		logger.Error("failed to create database directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(context.Background(), *cfg, logger)
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

// ensureDataDir creates the parent directory of a SQLite database file.
// Other drivers and in-memory databases need nothing.
func ensureDataDir(db config.DatabaseConfig) error {
	if db.Driver != sqlstore.DriverSQLite || strings.HasPrefix(db.DSN, ":memory:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(db.DSN), 0o755)
}
