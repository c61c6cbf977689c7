package review

import (
	"fmt"
	"strings"

	"filemanager/internal/queue"
)

// Result is the expected outcome of a single move, delete, or skip.
type Result struct {
	Success bool
	Kind    Kind
	// Message describes a success; Reason describes a soft failure.
	Message string
	Reason  string
	// Entry is the history snapshot on success and the queue entry otherwise.
	Entry queue.Entry
}

// Err converts a soft failure into an error wrapping its Kind marker.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	marker := r.Kind.Marker()
	if marker == nil {
		marker = ErrFilesystem
	}
	return fmt.Errorf("%w: %s", marker, r.Reason)
}

func succeeded(entry queue.Entry, message string) Result {
	return Result{Success: true, Message: message, Entry: entry}
}

func failed(entry queue.Entry, kind Kind, format string, args ...any) Result {
	return Result{Kind: kind, Reason: fmt.Sprintf(format, args...), Entry: entry}
}

// Operation names a bulk operation.
type Operation string

const (
	OperationMove Operation = "move"
	OperationSkip Operation = "skip"
)

// ParseOperation normalizes value and reports whether it is a bulk operation.
func ParseOperation(value string) (Operation, bool) {
	switch Operation(strings.ToLower(strings.TrimSpace(value))) {
	case OperationMove:
		return OperationMove, true
	case OperationSkip:
		return OperationSkip, true
	default:
		return "", false
	}
}

func (o Operation) verb() string {
	if o == OperationSkip {
		return "Skipped"
	}
	return "Moved"
}

// BulkResult summarizes a bulk execution. Count is the number of entries
// committed before processing stopped.
type BulkResult struct {
	Success  bool
	Count    int
	Message  string
	Error    string
	FailedID string
	Kind     Kind
}

func pluralFiles(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}
