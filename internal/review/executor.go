package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"filemanager/internal/config"
	"filemanager/internal/journal"
	"filemanager/internal/logging"
	"filemanager/internal/queue"
)

// Recorder receives one record per attempted transition.
type Recorder interface {
	Record(ctx context.Context, rec journal.Record) error
}

// Executor applies reviewer decisions to the queue, the filesystem, and the
// history documents. A single Executor serializes its transitions.
type Executor struct {
	queue      *queue.Store
	moves      *queue.Store
	skips      *queue.Store
	skippedDir string

	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// Option configures an Executor.
type Option func(*Executor)

// WithJournal records every attempted transition in r.
func WithJournal(r Recorder) Option {
	return func(e *Executor) {
		e.recorder = r
	}
}

// WithClock overrides the time source for moved_at, skipped_at, and last_updated.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an Executor over the documents in cfg's state directory.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		skippedDir: cfg.Paths.SkippedDir,
		logger:     logging.NewComponentLogger(logger, "executor"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	storeOpts := []queue.Option{
		queue.WithLocking(cfg.State.LockStores),
		queue.WithClock(e.now),
	}
	e.queue = queue.NewStore(cfg.QueuePath(), "queue", storeOpts...)
	e.moves = queue.NewStore(cfg.MoveHistoryPath(), "move history", append(storeOpts, queue.AsHistory())...)
	e.skips = queue.NewStore(cfg.SkipHistoryPath(), "skip history", append(storeOpts, queue.AsHistory())...)
	return e
}

// Queue returns the current queue document.
func (e *Executor) Queue() (*queue.Document, error) { return e.queue.Load() }

// MoveHistory returns the current move history document.
func (e *Executor) MoveHistory() (*queue.Document, error) { return e.moves.Load() }

// SkipHistory returns the current skip history document.
func (e *Executor) SkipHistory() (*queue.Document, error) { return e.skips.Load() }

// Get returns the queued entry with id.
func (e *Executor) Get(id string) (queue.Entry, error) {
	doc, err := e.queue.Load()
	if err != nil {
		return queue.Entry{}, err
	}
	entry, ok := doc.Get(strings.TrimSpace(id))
	if !ok {
		return queue.Entry{}, notFound("get", id)
	}
	return entry, nil
}

// UpdateStatus records a review decision without touching the filesystem.
func (e *Executor) UpdateStatus(ctx context.Context, id, status string) error {
	const op = "update_status"
	id = strings.TrimSpace(id)
	if id == "" {
		return wrap(ErrMalformedRequest, op, "missing id", nil)
	}
	parsed, ok := queue.ParseStatus(status)
	if !ok {
		return wrap(ErrMalformedRequest, op, fmt.Sprintf("unknown status %q", status), nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var entry queue.Entry
	err := e.queue.Update(ctx, func(doc *queue.Document) error {
		idx := doc.Index(id)
		if idx < 0 {
			return notFound(op, id)
		}
		doc.Files[idx].Status = parsed
		entry = doc.Files[idx].Clone()
		return nil
	})
	if err != nil {
		e.record(ctx, op, queue.Entry{ID: id}, failureKind(err), err.Error())
		return err
	}
	e.record(ctx, op, entry, KindNone, "status set to "+string(parsed))
	logging.WithContext(ctx, e.logger).Info("status updated",
		logging.String(logging.FieldEntryID, id),
		logging.String("status", string(parsed)),
	)
	return nil
}

// ReplaceQueueFiles swaps the queue's files for files, keeping the envelope.
// A replacement naming an entry already moved or skipped is rejected whole.
func (e *Executor) ReplaceQueueFiles(ctx context.Context, files []queue.Entry) error {
	const op = "replace_queue"
	if files == nil {
		files = []queue.Entry{}
	}
	if err := queue.ValidateEntries(files); err != nil {
		return wrap(ErrMalformedRequest, op, "invalid files", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(files))
	for _, entry := range files {
		ids = append(ids, entry.ID)
	}
	if err := e.rejectConsumed(op, ids...); err != nil {
		e.record(ctx, op, queue.Entry{ID: "*"}, failureKind(err), err.Error())
		return err
	}

	err := e.queue.Update(ctx, func(doc *queue.Document) error {
		doc.Files = files
		return nil
	})
	if err != nil {
		return err
	}
	e.record(ctx, op, queue.Entry{ID: "*"}, KindNone, fmt.Sprintf("queue replaced with %s", pluralFiles(len(files))))
	logging.WithContext(ctx, e.logger).Info("queue replaced", logging.Int("count", len(files)))
	return nil
}

// Enqueue appends a producer proposal. An empty id is replaced with a UUID.
// Ids already queued or already consumed into a history are rejected.
func (e *Executor) Enqueue(ctx context.Context, entry queue.Entry) (queue.Entry, error) {
	const op = "enqueue"
	entry.ID = strings.TrimSpace(entry.ID)
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = queue.StatusPending
	}
	if entry.Action == "" {
		entry.Action = entry.EffectiveAction()
	}
	if err := entry.Validate(); err != nil {
		return queue.Entry{}, wrap(ErrMalformedRequest, op, "invalid entry", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.rejectConsumed(op, entry.ID); err != nil {
		return queue.Entry{}, err
	}
	if err := e.queue.Append(ctx, entry); err != nil {
		if errors.Is(err, queue.ErrDuplicateID) {
			return queue.Entry{}, wrap(ErrMalformedRequest, op, "duplicate id", err)
		}
		return queue.Entry{}, err
	}
	e.record(ctx, op, entry, KindNone, "enqueued")
	logging.WithContext(ctx, e.logger).Info("entry enqueued",
		logging.String(logging.FieldEntryID, entry.ID),
		logging.String("source", entry.SourcePath),
		logging.String("destination", entry.DestPath),
	)
	return entry, nil
}

// rejectConsumed fails when any of ids is already recorded in a history.
// Consumed entries never return to the queue.
func (e *Executor) rejectConsumed(op string, ids ...string) error {
	for _, history := range []*queue.Store{e.moves, e.skips} {
		doc, err := history.Load()
		if err != nil {
			return err
		}
		for _, id := range ids {
			if doc.Index(id) >= 0 {
				return wrap(ErrMalformedRequest, op,
					fmt.Sprintf("entry %s already recorded in %s", id, history.Name()), queue.ErrDuplicateID)
			}
		}
	}
	return nil
}

// record appends to the journal; journal failures are logged, never returned.
func (e *Executor) record(ctx context.Context, operation string, entry queue.Entry, kind Kind, message string) {
	if e.recorder == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	outcome := "success"
	if kind != KindNone {
		outcome = string(kind)
	}
	rec := journal.Record{
		RecordedAt:    e.now(),
		EntryID:       entry.ID,
		Operation:     operation,
		Outcome:       outcome,
		SourcePath:    entry.SourcePath,
		DestPath:      entry.DestPath,
		Message:       message,
		CorrelationID: logging.RequestIDFromContext(ctx),
	}
	if err := e.recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		logging.WarnWithContext(e.logger, "journal write failed", "journal_write_failed",
			logging.String(logging.FieldEntryID, entry.ID),
			logging.String(logging.FieldOperation, operation),
			logging.Error(err),
		)
	}
}
