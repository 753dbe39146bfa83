// Package database owns the bounded Postgres connection pool shared by
// request handlers and background workers.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPoolUnavailable is returned by Acquire when the pool was never
// initialized or has been closed. Callers fail fast instead of crashing on a
// nil pool.
var ErrPoolUnavailable = errors.New("database pool unavailable")

// DB wraps a pgxpool.Pool with guarded acquisition and a liveness probe.
// Every checkout must be paired with exactly one Release; callers defer the
// release immediately after a successful Acquire.
type DB struct {
	pool *pgxpool.Pool
}

// Connect opens the pool and verifies the database is reachable. An
// unreachable database is a fatal configuration error surfaced here, at
// startup, rather than on first use.
func Connect(ctx context.Context, dsn string, minConns, maxConns int32) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MinConns = minConns
	cfg.MaxConns = maxConns
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Acquire checks out an exclusive connection, blocking while the pool is
// exhausted. The caller must Release the returned connection on every path.
func (db *DB) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	if db == nil || db.pool == nil {
		return nil, ErrPoolUnavailable
	}
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

// Probe runs a trivial query and verifies the sentinel comes back. Used by
// the health endpoint.
func (db *DB) Probe(ctx context.Context) error {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("sentinel query: %w", err)
	}
	if one != 1 {
		return fmt.Errorf("sentinel query returned %d", one)
	}
	return nil
}

// Stat exposes pool counters, mainly so tests can assert that failed
// operations still return their connection.
func (db *DB) Stat() *pgxpool.Stat {
	return db.pool.Stat()
}

// Close releases the pool. Acquire fails with ErrPoolUnavailable afterwards.
func (db *DB) Close() {
	if db != nil && db.pool != nil {
		db.pool.Close()
		db.pool = nil
	}
}

// EnsureSchema creates the documents table if needed. Having the migration in
// code keeps bootstrap self-contained for docker-compose and the init command.
func (db *DB) EnsureSchema(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL,
	blob_uri TEXT,
	error TEXT,
	uploaded_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);`

	conn, err := db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
