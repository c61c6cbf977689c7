package review

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filemanager/internal/fileutil"
	"filemanager/internal/logging"
	"filemanager/internal/pathutil"
	"filemanager/internal/queue"
)

// ExecuteMoveOrDelete commits the entry's proposal: its source is moved to
// dest_path, or deleted when the entry proposes deletion. Soft failures are
// reported in the Result and leave the queue unchanged.
func (e *Executor) ExecuteMoveOrDelete(ctx context.Context, id string) (Result, error) {
	const op = "move"
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.lookup(op, id)
	if err != nil {
		e.record(ctx, op, queue.Entry{ID: strings.TrimSpace(id)}, failureKind(err), err.Error())
		return Result{Kind: KindOf(err)}, err
	}
	result := e.applyMoveOrDelete(ctx, entry)
	if err := e.finish(ctx, op, e.moves, result); err != nil {
		return Result{}, err
	}
	return result, nil
}

// ExecuteSkip parks the entry's source in the skipped holding directory and
// retires the entry. A source that has already vanished still counts as a
// successful skip with no holding location.
func (e *Executor) ExecuteSkip(ctx context.Context, id string) (Result, error) {
	const op = "skip"
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.lookup(op, id)
	if err != nil {
		e.record(ctx, op, queue.Entry{ID: strings.TrimSpace(id)}, failureKind(err), err.Error())
		return Result{Kind: KindOf(err)}, err
	}
	result := e.applySkip(ctx, entry)
	if err := e.finish(ctx, op, e.skips, result); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (e *Executor) lookup(op, id string) (queue.Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return queue.Entry{}, wrap(ErrMalformedRequest, op, "missing id", nil)
	}
	doc, err := e.queue.Load()
	if err != nil {
		return queue.Entry{}, err
	}
	entry, ok := doc.Get(id)
	if !ok {
		return queue.Entry{}, notFound(op, id)
	}
	return entry, nil
}

// finish commits a successful result (history first, queue second) and
// journals and logs the attempt either way.
func (e *Executor) finish(ctx context.Context, op string, history *queue.Store, result Result) error {
	logger := logging.WithContext(ctx, e.logger)
	if !result.Success {
		e.record(ctx, op, result.Entry, result.Kind, result.Reason)
		logging.WarnWithContext(logger, "transition refused", "transition_refused",
			logging.String(logging.FieldEntryID, result.Entry.ID),
			logging.String(logging.FieldOperation, op),
			logging.String("kind", string(result.Kind)),
			logging.String("reason", result.Reason),
		)
		return nil
	}
	if err := e.commit(ctx, history, []queue.Entry{result.Entry}); err != nil {
		e.record(ctx, op, result.Entry, KindInternal, err.Error())
		e.warnUnrecorded(ctx, op, result.Entry, err)
		return err
	}
	e.record(ctx, op, result.Entry, KindNone, result.Message)
	logger.Info(result.Message,
		logging.String(logging.FieldEntryID, result.Entry.ID),
		logging.String(logging.FieldOperation, op),
	)
	return nil
}

// commit runs even when ctx is already cancelled: the filesystem side effect
// has happened and must be recorded.
func (e *Executor) commit(ctx context.Context, history *queue.Store, snapshots []queue.Entry) error {
	if len(snapshots) == 0 {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	if err := history.Append(ctx, snapshots...); err != nil {
		return fmt.Errorf("append %s: %w", history.Name(), err)
	}
	ids := make([]string, 0, len(snapshots))
	for _, snapshot := range snapshots {
		ids = append(ids, snapshot.ID)
	}
	return e.removeFromQueue(ctx, ids)
}

func (e *Executor) removeFromQueue(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := e.queue.Update(context.WithoutCancel(ctx), func(doc *queue.Document) error {
		doc.Remove(ids...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove from queue: %w", err)
	}
	return nil
}

func (e *Executor) applyMoveOrDelete(ctx context.Context, entry queue.Entry) Result {
	source, exists, err := pathutil.Resolve(entry.SourcePath)
	if err != nil {
		return failed(entry, KindFilesystem, "Cannot access %s: %v", entry.SourcePath, err)
	}
	if !exists {
		return failed(entry, KindSourceMissing, "Source file not found: %s", entry.SourcePath)
	}

	snapshot := entry.Clone()
	snapshot.Status = queue.StatusMoved
	snapshot.MovedAt = queue.Timestamp(e.now())

	if entry.IsDelete() {
		info, err := os.Lstat(source)
		if err != nil {
			return failed(entry, KindFilesystem, "Cannot access %s: %v", source, err)
		}
		if info.IsDir() {
			if err := os.RemoveAll(source); err != nil {
				return failed(entry, KindFilesystem, "Failed to delete directory %s: %v", source, err)
			}
			return succeeded(snapshot, "Deleted directory "+source)
		}
		if err := os.Remove(source); err != nil {
			return failed(entry, KindFilesystem, "Failed to delete file %s: %v", source, err)
		}
		return succeeded(snapshot, "Deleted file "+source)
	}

	dest, err := pathutil.Normalize(entry.DestPath)
	if err != nil {
		return failed(entry, KindFilesystem, "Invalid destination %q: %v", entry.DestPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return failed(entry, KindFilesystem, "Failed to create destination folder %s: %v", filepath.Dir(dest), err)
	}
	if err := fileutil.Move(source, dest); err != nil {
		switch {
		case errors.Is(err, fs.ErrExist):
			return failed(entry, KindDestinationCollision, "Destination already exists: %s", dest)
		case errors.Is(err, fileutil.ErrCrossDeviceCleanup):
			logging.WarnWithContext(logging.WithContext(ctx, e.logger), "source left behind after cross-device move", "move_source_cleanup_failed",
				logging.String(logging.FieldEntryID, entry.ID),
				logging.String("source", source),
				logging.String(logging.FieldErrorHint, "delete the source manually; the destination copy is verified"),
				logging.Error(err),
			)
		default:
			return failed(entry, KindFilesystem, "Failed to move %s to %s: %v", source, dest, err)
		}
	}
	return succeeded(snapshot, fmt.Sprintf("Moved %s to %s", source, dest))
}

func (e *Executor) applySkip(ctx context.Context, entry queue.Entry) Result {
	if err := os.MkdirAll(e.skippedDir, 0o755); err != nil {
		return failed(entry, KindFilesystem, "Failed to create skipped folder %s: %v", e.skippedDir, err)
	}

	source, exists, err := pathutil.Resolve(entry.SourcePath)
	if err != nil {
		return failed(entry, KindFilesystem, "Cannot access %s: %v", entry.SourcePath, err)
	}

	snapshot := entry.Clone()
	snapshot.Status = queue.StatusSkipped
	snapshot.SkippedAt = queue.Timestamp(e.now())
	snapshot.SkippedTo = nil

	if exists {
		target, err := fileutil.UniquePath(e.skippedDir, filepath.Base(source))
		if err != nil {
			return failed(entry, KindFilesystem, "Failed to choose skipped location for %s: %v", source, err)
		}
		if err := fileutil.Move(source, target); err != nil && !errors.Is(err, fileutil.ErrCrossDeviceCleanup) {
			return failed(entry, KindFilesystem, "Failed to move %s to %s: %v", source, target, err)
		}
		snapshot.SkippedTo = &target
	} else {
		logging.WithContext(ctx, e.logger).Info("skipping entry whose source is gone",
			logging.String(logging.FieldEntryID, entry.ID),
			logging.String("source", entry.SourcePath),
		)
	}
	return succeeded(snapshot, "Skipped "+entry.SourcePath)
}

// warnUnrecorded reports a filesystem effect that happened without its
// history record. The entry stays queued, so a retry would only see the
// source missing.
func (e *Executor) warnUnrecorded(ctx context.Context, op string, snapshot queue.Entry, err error) {
	var hint string
	switch {
	case snapshot.SkippedAt != "" && snapshot.SkippedTo != nil:
		hint = fmt.Sprintf("source now at %s; record the skip or move it back to %s, then remove entry %s from the queue",
			*snapshot.SkippedTo, snapshot.SourcePath, snapshot.ID)
	case snapshot.SkippedAt != "":
		hint = fmt.Sprintf("source was already gone; remove entry %s from the queue", snapshot.ID)
	case snapshot.IsDelete():
		hint = fmt.Sprintf("source %s was deleted; remove entry %s from the queue", snapshot.SourcePath, snapshot.ID)
	default:
		dest := snapshot.DestPath
		if normalized, nerr := pathutil.Normalize(dest); nerr == nil {
			dest = normalized
		}
		hint = fmt.Sprintf("file now at %s; record the move or move it back to %s, then remove entry %s from the queue",
			dest, snapshot.SourcePath, snapshot.ID)
	}
	logging.WarnWithContext(logging.WithContext(ctx, e.logger), "filesystem change applied but not recorded", "history_write_failed",
		logging.String(logging.FieldEntryID, snapshot.ID),
		logging.String(logging.FieldOperation, op),
		logging.String(logging.FieldErrorHint, hint),
		logging.Error(err),
	)
}
