package review

import (
	"context"
	"fmt"
	"strings"

	"filemanager/internal/logging"
	"filemanager/internal/queue"
)

// BulkExecute applies op to ids in order and stops at the first failure.
// Entries committed before the failure stay committed: each snapshot is
// appended to history as it succeeds, and the queue is rewritten once at the
// end without them. Cancellation of ctx is checked between entries and stops
// the batch like a failure.
func (e *Executor) BulkExecute(ctx context.Context, ids []string, op Operation) (BulkResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opName := "bulk_" + string(op)
	if _, ok := ParseOperation(string(op)); !ok {
		return BulkResult{}, wrap(ErrMalformedRequest, "bulk_execute", fmt.Sprintf("unknown operation %q", op), nil)
	}
	if len(ids) == 0 {
		return BulkResult{}, wrap(ErrMalformedRequest, opName, "no ids supplied", nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := e.queue.Load()
	if err != nil {
		return BulkResult{}, err
	}

	history := e.moves
	if op == OperationSkip {
		history = e.skips
	}
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldOperation, opName))

	processed := make([]string, 0, len(ids))
	done := make(map[string]struct{}, len(ids))
	result := BulkResult{Success: true}

	for _, rawID := range ids {
		id := strings.TrimSpace(rawID)
		if err := ctx.Err(); err != nil {
			result = BulkResult{
				Error:    fmt.Sprintf("Bulk %s stopped before %s: %v", op, id, err),
				FailedID: id,
				Kind:     KindInternal,
			}
			e.record(ctx, opName, queue.Entry{ID: id}, KindInternal, result.Error)
			break
		}

		entry, ok := doc.Get(id)
		if _, seen := done[id]; seen || !ok {
			result = BulkResult{
				Error:    fmt.Sprintf("Entry not found: %s", id),
				FailedID: id,
				Kind:     KindNotFound,
			}
			e.record(ctx, opName, queue.Entry{ID: id}, KindNotFound, result.Error)
			break
		}

		var outcome Result
		if op == OperationSkip {
			outcome = e.applySkip(ctx, entry)
		} else {
			outcome = e.applyMoveOrDelete(ctx, entry)
		}
		if !outcome.Success {
			result = BulkResult{
				Error:    outcome.Reason,
				FailedID: id,
				Kind:     outcome.Kind,
			}
			e.record(ctx, opName, entry, outcome.Kind, outcome.Reason)
			break
		}

		if err := history.Append(context.WithoutCancel(ctx), outcome.Entry); err != nil {
			e.record(ctx, opName, entry, KindInternal, err.Error())
			e.warnUnrecorded(ctx, opName, outcome.Entry, err)
			if rmErr := e.removeFromQueue(ctx, processed); rmErr != nil {
				logger.Error("queue cleanup after failed bulk history append", logging.Error(rmErr))
			}
			return BulkResult{}, fmt.Errorf("append %s: %w", history.Name(), err)
		}
		processed = append(processed, id)
		done[id] = struct{}{}
		e.record(ctx, opName, outcome.Entry, KindNone, outcome.Message)
		logger.Info(outcome.Message, logging.String(logging.FieldEntryID, id))
	}

	if err := e.removeFromQueue(ctx, processed); err != nil {
		return BulkResult{}, err
	}

	result.Count = len(processed)
	if result.Success {
		result.Message = fmt.Sprintf("%s %s", op.verb(), pluralFiles(result.Count))
		return result, nil
	}
	logging.WarnWithContext(logger, "bulk operation stopped", "bulk_stopped",
		logging.String(logging.FieldEntryID, result.FailedID),
		logging.Int("count", result.Count),
		logging.String("reason", result.Error),
	)
	return result, nil
}
