// Package checkpoint persists conversation thread history in SQLite.
//
// Each checkpoint is the full message list of one thread, keyed by
// (namespace, thread_id). Checkpoints survive process restart.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation thread.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Store persists conversation history keyed by namespace and thread.
type Store interface {
	// Get returns the thread's history, or an empty slice for a new thread.
	Get(ctx context.Context, namespace, threadID string) ([]Message, error)

	// Put replaces the thread's stored history with msgs.
	Put(ctx context.Context, namespace, threadID string, msgs []Message) error

	// Close closes the store.
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
    namespace  TEXT NOT NULL,
    thread_id  TEXT NOT NULL,
    state      TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (namespace, thread_id)
);`

// SQLiteStore is the Store implementation backed by modernc.org/sqlite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the checkpoint database under dataDir.
// If dataDir is empty, it defaults to ~/.tutord/data.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tutord", "data")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "checkpoints.db")

	// WAL mode for better concurrency under parallel threads.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the stored history for a thread. A thread with no checkpoint
// yields an empty history, not an error.
func (s *SQLiteStore) Get(ctx context.Context, namespace, threadID string) ([]Message, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM checkpoints WHERE namespace = ? AND thread_id = ?`,
		namespace, threadID,
	).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return []Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint %s/%s: %w", namespace, threadID, err)
	}

	var msgs []Message
	if err := json.Unmarshal([]byte(state), &msgs); err != nil {
		return nil, fmt.Errorf("decoding checkpoint %s/%s: %w", namespace, threadID, err)
	}
	return msgs, nil
}

// Put stores the full message list for a thread, replacing any previous
// checkpoint.
func (s *SQLiteStore) Put(ctx context.Context, namespace, threadID string, msgs []Message) error {
	state, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encoding checkpoint %s/%s: %w", namespace, threadID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (namespace, thread_id, state, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, thread_id)
		 DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		namespace, threadID, string(state), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving checkpoint %s/%s: %w", namespace, threadID, err)
	}
	return nil
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
