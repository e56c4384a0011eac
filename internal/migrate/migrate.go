// Package migrate owns the Postgres schema for board snapshots.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations is the schema bundled with the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err) // embed pattern above guarantees the directory
	}
	return sub
}

// Up applies all pending migrations and reports each applied version.
func Up(ctx context.Context, dbURL string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("migrations: open db: %w", err)
	}

	p, err := goose.NewProvider(goose.DialectPostgres, db, Migrations())
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrations: provider: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Error("database close error", "err", err)
		}
	}()

	log.Info("running database migrations")
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrations: goose up: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied", "version", r.Source.Version, "path", r.Source.Path, "took", r.Duration)
	}
	log.Info("database migrations applied", "count", len(results))
	return nil
}
