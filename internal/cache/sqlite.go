// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite keeps slots in a single table of a local SQLite database.
type SQLite struct {
	db        *sql.DB
	namespace string
}

// NewSQLite opens or creates the database at path and its schema.
func NewSQLite(path, namespace string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite cache: empty database path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db, namespace: namespace}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS cache_slots (
		namespace TEXT NOT NULL,
		slot TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (namespace, slot)
	)`)
	return err
}

// Get decodes the slot into v.
func (s *SQLite) Get(ctx context.Context, slot string, v any) (bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM cache_slots WHERE namespace = ? AND slot = ?`,
		s.namespace, slot,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading slot %s: %w", slot, err)
	}
	return true, decode(slot, data, v)
}

// Set upserts the slot with v.
func (s *SQLite) Set(ctx context.Context, slot string, v any) error {
	data, err := encode(slot, v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache_slots (namespace, slot, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, slot) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		s.namespace, slot, data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", slot, err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLite)(nil)
