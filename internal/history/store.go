package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Statuses of a processing entry.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Entry is one processed statement document: what came in, what went out.
type Entry struct {
	ID           string
	SourceFile   string
	TotalPages   int
	TrimmedPages int
	Records      int
	Status       string
	Error        string
	Duration     time.Duration
	CreatedAt    time.Time
}

// Store keeps a per-document processing history in a local SQLite database.
// It is an audit log, not part of the pipeline contract: the pipeline keeps
// working when the store is nil.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS processing_history (
	id            TEXT PRIMARY KEY,
	source_file   TEXT NOT NULL,
	total_pages   INTEGER NOT NULL DEFAULT 0,
	trimmed_pages INTEGER NOT NULL DEFAULT 0,
	records       INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	error         TEXT NOT NULL DEFAULT '',
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_processing_history_created_at
	ON processing_history (created_at DESC);
`

// Open opens (creating if needed) the history database at path and ensures
// the schema exists.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// A single writer keeps SQLite happy under concurrent uploads.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap history schema: %w", err)
	}
	logger.Info("history.open", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record persists one processing outcome. Missing IDs and timestamps are
// filled in.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_history
			(id, source_file, total_pages, trimmed_pages, records, status, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SourceFile, e.TotalPages, e.TrimmedPages, e.Records,
		e.Status, e.Error, e.Duration.Milliseconds(), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record history entry: %w", err)
	}
	s.logger.Debug("history.record", "id", e.ID, "status", e.Status, "records", e.Records)
	return nil
}

// Recent returns the latest n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_file, total_pages, trimmed_pages, records, status, error, duration_ms, created_at
		FROM processing_history
		ORDER BY created_at DESC, id
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var durMS int64
		if err := rows.Scan(&e.ID, &e.SourceFile, &e.TotalPages, &e.TrimmedPages,
			&e.Records, &e.Status, &e.Error, &durMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}
