package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/rlaurindo/presenca-sync/internal/client/migrations"
	"github.com/rlaurindo/presenca-sync/internal/dbx"
)

// SQLite is the durable KV backend. SetMany runs inside one transaction, so
// the snapshot slots never diverge on disk.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database at dsn and applies the embedded migrations.
// The caller is expected to have registered a driver named "sqlite"
// (modernc.org/sqlite does this on import).
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

func (s *SQLite) Get(key string) ([]byte, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT value FROM kv WHERE key = ?`, key)

	var value []byte
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading key %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLite) Set(key string, value []byte) error {
	return s.SetMany(map[string][]byte{key: value})
}

func (s *SQLite) SetMany(items map[string][]byte) error {
	ctx := context.Background()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for key, value := range items {
			_, err := tx.ExecContext(ctx, `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				key, value)
			if err != nil {
				return fmt.Errorf("upserting key %q: %w", key, err)
			}
		}
		return nil
	})
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
