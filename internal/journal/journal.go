package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT NOT NULL,
	entry_id TEXT NOT NULL,
	operation TEXT NOT NULL,
	outcome TEXT NOT NULL,
	source_path TEXT NOT NULL DEFAULT '',
	dest_path TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	correlation_id TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_actions_entry ON actions(entry_id);
`

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Record is one attempted transition.
type Record struct {
	ID            int64     `json:"id"`
	RecordedAt    time.Time `json:"recorded_at"`
	EntryID       string    `json:"entry_id"`
	Operation     string    `json:"operation"`
	Outcome       string    `json:"outcome"`
	SourcePath    string    `json:"source_path,omitempty"`
	DestPath      string    `json:"dest_path,omitempty"`
	Message       string    `json:"message,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Journal appends and queries action records.
type Journal struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}

	return &Journal{db: db, path: path, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Path returns the database location.
func (j *Journal) Path() string { return j.path }

// Record appends rec. RecordedAt defaults to now.
func (j *Journal) Record(ctx context.Context, rec Record) error {
	if j == nil {
		return nil
	}
	ctx = ensureContext(ctx)
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = j.now()
	}
	return retryOnBusy(ctx, func() error {
		_, err := j.db.ExecContext(ctx,
			`INSERT INTO actions (recorded_at, entry_id, operation, outcome, source_path, dest_path, message, correlation_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RecordedAt.UTC().Format(time.RFC3339Nano),
			rec.EntryID,
			rec.Operation,
			rec.Outcome,
			rec.SourcePath,
			rec.DestPath,
			rec.Message,
			rec.CorrelationID,
		)
		return err
	})
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	return j.query(ctx, `SELECT id, recorded_at, entry_id, operation, outcome, source_path, dest_path, message, correlation_id
		FROM actions ORDER BY id DESC LIMIT ?`, limit)
}

// ForEntry returns every record for entryID in the order they were written.
func (j *Journal) ForEntry(ctx context.Context, entryID string) ([]Record, error) {
	return j.query(ctx, `SELECT id, recorded_at, entry_id, operation, outcome, source_path, dest_path, message, correlation_id
		FROM actions WHERE entry_id = ? ORDER BY id ASC`, entryID)
}

func (j *Journal) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	ctx = ensureContext(ctx)
	var records []Record
	err := retryOnBusy(ctx, func() error {
		records = records[:0]
		rows, err := j.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				rec        Record
				recordedAt string
			)
			if err := rows.Scan(&rec.ID, &recordedAt, &rec.EntryID, &rec.Operation, &rec.Outcome,
				&rec.SourcePath, &rec.DestPath, &rec.Message, &rec.CorrelationID); err != nil {
				return err
			}
			if parsed, parseErr := time.Parse(time.RFC3339Nano, recordedAt); parseErr == nil {
				rec.RecordedAt = parsed
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	return records, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
