// Package postgres provides the "postgres" journal driver: domain events are
// appended to a single table through sqlx, instrumented with otelsql.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/config"
	"github.com/jensholdgaard/player-auction/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

func init() {
	store.Register("postgres", open)
}

func open(ctx context.Context, cfg config.DatabaseConfig, _ clock.Clock) (*store.Journal, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &store.Journal{
		Events: NewEventStore(db),
		Closer: db,
		Ping:   db.PingContext,
	}, nil
}

// Connect opens and verifies a Postgres connection with OTEL instrumentation.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := cfg.DSN()

	// Register the OTel-instrumented driver wrapping lib/pq.
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("registering otel driver: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Migrate applies the embedded schema files in name order. Every statement
// is idempotent, so Migrate is safe to run on each start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
	}
	return nil
}
