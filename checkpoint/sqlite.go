package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/skiff-ai/skiff/core"
)

// SQLiteStore is a durable CheckpointStore backed by SQLite. Conversation
// and pending requests are stored as JSON columns so a suspended run can be
// rehydrated exactly, approval point included, after a restart.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the checkpoint database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
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
	CREATE TABLE IF NOT EXISTS runs (
		thread_id    TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		state        TEXT NOT NULL,
		conversation TEXT NOT NULL,
		pending      TEXT NOT NULL,
		turns        INTEGER NOT NULL,
		created_at   DATETIME NOT NULL,
		updated_at   DATETIME NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize checkpoint schema: %w", err)
	}
	return nil
}

// Load returns the checkpointed run for the thread, or core.ErrRunNotFound.
func (s *SQLiteStore) Load(ctx context.Context, threadID string) (*core.Run, error) {
	var (
		run              core.Run
		conversation     string
		pending          string
		created, updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT thread_id, user_id, state, conversation, pending, turns, created_at, updated_at
		FROM runs WHERE thread_id = ?`, threadID,
	).Scan(&run.ThreadID, &run.UserID, &run.State, &conversation, &pending, &run.Turns, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, core.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	if err := json.Unmarshal([]byte(conversation), &run.Conversation); err != nil {
		return nil, fmt.Errorf("decode checkpoint conversation: %w", err)
	}
	if err := json.Unmarshal([]byte(pending), &run.Pending); err != nil {
		return nil, fmt.Errorf("decode checkpoint pending requests: %w", err)
	}
	if run.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("decode checkpoint created_at: %w", err)
	}
	if run.Updated, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("decode checkpoint updated_at: %w", err)
	}
	return &run, nil
}

// Save checkpoints the run, replacing any previous checkpoint for the same
// thread.
func (s *SQLiteStore) Save(ctx context.Context, run *core.Run) error {
	conversation, err := json.Marshal(run.Conversation)
	if err != nil {
		return fmt.Errorf("encode checkpoint conversation: %w", err)
	}
	pending := []byte("[]")
	if run.Pending != nil {
		if pending, err = json.Marshal(run.Pending); err != nil {
			return fmt.Errorf("encode checkpoint pending requests: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (thread_id, user_id, state, conversation, pending, turns, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			user_id = excluded.user_id,
			state = excluded.state,
			conversation = excluded.conversation,
			pending = excluded.pending,
			turns = excluded.turns,
			updated_at = excluded.updated_at`,
		run.ThreadID, run.UserID, string(run.State), string(conversation), string(pending),
		run.Turns, run.Created.Format(time.RFC3339Nano), run.Updated.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
