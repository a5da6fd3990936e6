// Package postgres provides the Postgres-backed dataset store.
package postgres

import (
	"context"
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/lib/pq"

	"github.com/PauloFidalgo/cmov-5g/internal/domain"
	"github.com/PauloFidalgo/cmov-5g/internal/infra"
	"github.com/PauloFidalgo/cmov-5g/internal/infrastructure/repository/sqlstore"
)

// Open opens a pooled connection to dsn and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres store: DSN is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres store: open")
	}

	db.SetMaxOpenConns(15)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "postgres store: ping")
	}

	return db, nil
}

// NewStore applies the migrations to db and returns a store over it.
func NewStore(ctx context.Context, db *sql.DB, logger domain.Logger) (*sqlstore.Store, error) {
	if err := ApplyMigrations(ctx, db, logger); err != nil {
		return nil, err
	}
	return sqlstore.New(db, sqlstore.Postgres), nil
}

// Setup waits for the configured database, connects and migrates it.
func Setup(ctx context.Context, cfg infra.Config, logger domain.Logger) (*sqlstore.Store, error) {
	dsn, err := BuildDatabaseDSN(cfg)
	if err != nil {
		return nil, err
	}

	if ShouldCheckDatabase(cfg) {
		if err := WaitForDatabase(ctx, cfg, logger); err != nil {
			return nil, err
		}
	}

	if parsed, parseErr := url.Parse(dsn); parseErr == nil {
		logf(ctx, logger, "connecting to DSN host=%s db=%s user=%s",
			parsed.Hostname(), strings.TrimPrefix(parsed.Path, "/"), parsed.User.Username())
	}

	db, err := Open(ctx, dsn)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(ctx, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
