package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	libdb "chargemap/backend/libs/db"
)

// PostgresBackend keeps entries in the kv_cache table.
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend returns backend and makes sure the table exists.
func NewPostgresBackend(ctx context.Context, db *sql.DB) (*PostgresBackend, error) {
	const ddl = `
		CREATE TABLE IF NOT EXISTS kv_cache (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if err := libdb.EnsureSchema(ctx, db, ddl); err != nil {
		return nil, err
	}
	return &PostgresBackend{db: db}, nil
}

// Read implements Backend.
func (p *PostgresBackend) Read(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT value FROM kv_cache WHERE key = $1`
	var data []byte
	if err := p.db.QueryRowContext(ctx, query, key).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Write implements Backend.
func (p *PostgresBackend) Write(ctx context.Context, key string, data []byte, _ time.Duration) error {
	const query = `
		INSERT INTO kv_cache (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`
	_, err := p.db.ExecContext(ctx, query, key, data)
	return err
}

// Delete implements Backend.
func (p *PostgresBackend) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM kv_cache WHERE key = $1`
	_, err := p.db.ExecContext(ctx, query, key)
	return err
}
