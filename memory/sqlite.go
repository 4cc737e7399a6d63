package memory

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a durable ProfileStore backed by SQLite. Profiles survive
// process restarts, which is what lets a revised profile influence every
// later conversation with the same user.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the profile database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStoreFromDB wraps an existing database handle. The caller keeps
// ownership of the handle.
func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		prefix     TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (prefix, key)
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize profile schema: %w", err)
	}
	return nil
}

// Get returns the stored value for (subject, namespace, key). ok is false
// when no row exists.
func (s *SQLiteStore) Get(ctx context.Context, subject, namespace, key string) (string, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM profiles WHERE prefix = ? AND key = ?`,
		subject+"."+namespace, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load profile: %w", err)
	}
	return decodeValue(raw), true, nil
}

// Put upserts the value for (subject, namespace, key).
func (s *SQLiteStore) Put(ctx context.Context, subject, namespace, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (prefix, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(prefix, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		subject+"."+namespace, key, encodeValue(value),
	)
	if err != nil {
		return fmt.Errorf("store profile: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
