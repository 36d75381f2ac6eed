package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// The migrations are compiled into the binary, so a deployed server never
// depends on SQL files being present on disk.
//
//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// migrate applies every pending migration for the active dialect.
//
// goose records applied versions in its own goose_db_version table, so running
// this on every start is safe: already-applied files are skipped.
func (db *DB) migrate(ctx context.Context) error {
	dir, err := fs.Sub(migrationsFS, db.dialect.migrationsDir)
	if err != nil {
		return fmt.Errorf("locating %s: %w", db.dialect.migrationsDir, err)
	}

	provider, err := goose.NewProvider(db.dialect.goose, db.conn.DB, dir)
	if err != nil {
		return fmt.Errorf("creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	for _, r := range results {
		db.logger.Debug("migration applied",
			slog.Int64("version", r.Source.Version),
			slog.Duration("took", r.Duration),
		)
	}
	return nil
}
