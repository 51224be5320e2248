package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements BindingStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ BindingStore = (*SQLiteStore)(nil)

// Open creates or opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if dbPath == ":memory:" {
		// Each pooled connection would otherwise get its own empty memory db.
		db.SetMaxOpenConns(1)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, sessionID, sandboxID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sandbox_bindings (session_id, sandbox_id, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		sessionID, sandboxID, now, now,
	)
	if err != nil {
		return fmt.Errorf("inserting binding: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*Binding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, sandbox_id, created_at, updated_at
		FROM sandbox_bindings WHERE session_id = ?`, sessionID)

	var b Binding
	var createdAt, updatedAt string
	err := row.Scan(&b.SessionID, &b.SandboxID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying binding: %w", err)
	}
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &b, nil
}

// CompareAndSwap is a single conditional UPDATE, not a read-then-write, so
// concurrent recreations for the same session resolve to exactly one winner.
func (s *SQLiteStore) CompareAndSwap(ctx context.Context, sessionID, expected, replacement string) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		UPDATE sandbox_bindings SET sandbox_id = ?, updated_at = ?
		WHERE session_id = ? AND sandbox_id = ?`,
		replacement, now, sessionID, expected,
	)
	if err != nil {
		return false, fmt.Errorf("updating binding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking affected rows: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sandbox_bindings WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting binding: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
