// Package sqlite provides a SQLite-backed implementation of the credential.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/spendsync/internal/credential"
)

// Ensure SQLiteStore implements credential.Store
var _ credential.Store = (*SQLiteStore)(nil)

// sessionSlot is the primary key of the single persisted session row.
const sessionSlot = "default"

// SQLiteStore implements credential.Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the saved credential, or "" if none is saved.
func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		"SELECT token FROM sessions WHERE slot = ?",
		sessionSlot,
	).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	return token, nil
}

// Save replaces the saved credential.
func (s *SQLiteStore) Save(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (slot, token, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET token = excluded.token, saved_at = excluded.saved_at`,
		sessionSlot, token, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Clear removes the saved credential.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE slot = ?", sessionSlot); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// SavedAt returns when the credential was last saved. ok is false if none is saved.
func (s *SQLiteStore) SavedAt(ctx context.Context) (saved time.Time, ok bool, err error) {
	var unix int64
	err = s.db.QueryRowContext(ctx,
		"SELECT saved_at FROM sessions WHERE slot = ?",
		sessionSlot,
	).Scan(&unix)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read credential timestamp: %w", err)
	}
	return time.Unix(unix, 0), true, nil
}
