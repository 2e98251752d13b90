// Package database opens the PostgreSQL pool behind the plan store and keeps
// its schema at the embedded migration version.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
)

// Options configures Open. Zero limits keep the pgx defaults.
type Options struct {
	MaxConns int
	MinConns int
	// Migrate applies pending migrations before Open returns.
	Migrate bool
}

// DB is the plan store's pool together with the migration provider tracking
// its schema.
type DB struct {
	Pool       *pgxpool.Pool
	migrations *goose.Provider
}

// ParseURL validates a PostgreSQL connection URL and applies the pool limits.
func ParseURL(url string, opts Options) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}
	if cfg.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("min conns %d exceeds max conns %d", cfg.MinConns, cfg.MaxConns)
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	return cfg, nil
}

// Open connects and pings the database, then migrates it when opts.Migrate
// is set. Nothing stays open when it fails.
func Open(ctx context.Context, url string, opts Options) (*DB, error) {
	cfg, err := ParseURL(url, opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	provider, err := newMigrationProvider(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	db := &DB{Pool: pool, migrations: provider}

	if opts.Migrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	current, target, err := db.SchemaVersion(ctx)
	if err != nil {
		slog.Warn("schema version unavailable", "error", err)
	} else {
		slog.Info("database ready",
			"schema_version", current,
			"latest_migration", target,
			"max_conns", cfg.MaxConns,
		)
	}
	return db, nil
}

// Close releases the migration provider and the pool.
func (db *DB) Close() {
	if db.migrations != nil {
		_ = db.migrations.Close()
	}
	db.Pool.Close()
}

// HealthCheck pings the pool and fails while the schema is behind the
// embedded migrations.
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.Pool.Ping(ctx); err != nil {
		return err
	}
	current, target, err := db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if current < target {
		return fmt.Errorf("schema at version %d, want %d", current, target)
	}
	return nil
}
