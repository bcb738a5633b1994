package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/masque/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	version    INTEGER NOT NULL DEFAULT 0,
	value      BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite stores records in a single table.
type SQLite struct {
	conn *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("kvstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kvstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kvstore: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Get returns the record stored under key.
func (s *SQLite) Get(ctx context.Context, key string) (Record, error) {
	rec := Record{Key: key}
	err := s.conn.QueryRowContext(ctx,
		`SELECT version, value, updated_at FROM kv WHERE key = ?`, key,
	).Scan(&rec.Version, &rec.Value, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, apperr.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("kvstore: get %s: %w", key, err)
	}
	return rec, nil
}

// Put inserts or replaces the record.
func (s *SQLite) Put(ctx context.Context, rec Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO kv (key, version, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			version    = excluded.version,
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, rec.Key, rec.Version, rec.Value, rec.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("kvstore: put %s: %w", rec.Key, err)
	}
	return nil
}

// Delete removes key; missing keys are not an error.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kvstore: delete %s: %w", key, err)
	}
	return nil
}

// Keys returns every stored key in lexical order.
func (s *SQLite) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("kvstore: keys: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
