package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is written into every document envelope.
const SchemaVersion = "1.0"

// DeleteSentinel is the dest_path value producers use to propose deletion.
const DeleteSentinel = "DELETE"

// Status represents the review state of a queue entry.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusMoved    Status = "moved"
	StatusSkipped  Status = "skipped"
)

var allStatuses = []Status{
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusMoved,
	StatusSkipped,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns every known status in display order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus normalizes value and reports whether it names a known status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Action is the filesystem effect an entry proposes.
type Action string

const (
	ActionMove   Action = "move"
	ActionDelete Action = "delete"
)

// ParseAction normalizes value and reports whether it names a known action.
func ParseAction(value string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(value))) {
	case ActionMove:
		return ActionMove, true
	case ActionDelete:
		return ActionDelete, true
	default:
		return "", false
	}
}

// Entry is one proposal in the queue, or a snapshot of it in a history
// document. Keys not modelled here are kept in Extra and written back as-is.
type Entry struct {
	ID         string
	SourcePath string
	DestPath   string
	Action     Action
	Status     Status
	Confidence *float64

	// History snapshot fields.
	MovedAt   string
	SkippedAt string
	// SkippedTo is nil when the source had vanished at skip time; it is
	// written as null on skip snapshots.
	SkippedTo *string

	Extra map[string]json.RawMessage
}

var entryKeys = map[string]struct{}{
	"id": {}, "source_path": {}, "dest_path": {}, "action": {}, "status": {},
	"confidence": {}, "moved_at": {}, "skipped_at": {}, "skipped_to": {},
}

// IsDelete reports whether executing the entry deletes its source.
func (e Entry) IsDelete() bool {
	return e.Action == ActionDelete || strings.TrimSpace(e.DestPath) == DeleteSentinel
}

// EffectiveAction returns the explicit action or the one implied by dest_path.
func (e Entry) EffectiveAction() Action {
	if e.IsDelete() {
		return ActionDelete
	}
	return ActionMove
}

// Reasoning returns the producer's free-text reasoning when it is a string.
func (e Entry) Reasoning() string {
	raw, ok := e.Extra["reasoning"]
	if !ok {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return ""
	}
	return text
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	out := e
	if e.Confidence != nil {
		value := *e.Confidence
		out.Confidence = &value
	}
	if e.SkippedTo != nil {
		value := *e.SkippedTo
		out.SkippedTo = &value
	}
	if e.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(e.Extra))
		for key, value := range e.Extra {
			out.Extra[key] = append(json.RawMessage(nil), value...)
		}
	}
	return out
}

// Validate checks required fields and enumerations.
func (e Entry) Validate() error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidEntry)
	case strings.TrimSpace(e.SourcePath) == "":
		return fmt.Errorf("%w: entry %s missing source_path", ErrInvalidEntry, e.ID)
	case strings.TrimSpace(e.DestPath) == "":
		return fmt.Errorf("%w: entry %s missing dest_path", ErrInvalidEntry, e.ID)
	}
	if _, ok := statusSet[e.Status]; !ok {
		return fmt.Errorf("%w: entry %s has unknown status %q", ErrInvalidEntry, e.ID, e.Status)
	}
	if _, ok := ParseAction(string(e.Action)); !ok && e.Action != "" {
		return fmt.Errorf("%w: entry %s has unknown action %q", ErrInvalidEntry, e.ID, e.Action)
	}
	return nil
}

// UnmarshalJSON decodes an entry, applying status and action defaults and
// retaining unknown keys.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("%w: entry is null", ErrInvalidEntry)
	}

	var out Entry
	var action, status string
	targets := []struct {
		key string
		dst any
	}{
		{"id", &out.ID},
		{"source_path", &out.SourcePath},
		{"dest_path", &out.DestPath},
		{"action", &action},
		{"status", &status},
		{"moved_at", &out.MovedAt},
		{"skipped_at", &out.SkippedAt},
		{"skipped_to", &out.SkippedTo},
	}
	for _, target := range targets {
		raw, ok := fields[target.key]
		if !ok || isNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, target.dst); err != nil {
			return fmt.Errorf("%w: field %s: %v", ErrInvalidEntry, target.key, err)
		}
	}

	// Confidence is advisory; a non-numeric value is kept verbatim.
	if raw, ok := fields["confidence"]; ok && !isNull(raw) {
		var value float64
		if err := json.Unmarshal(raw, &value); err == nil {
			out.Confidence = &value
		}
	}

	out.Status = Status(strings.ToLower(strings.TrimSpace(status)))
	if out.Status == "" {
		out.Status = StatusPending
	}
	out.Action = Action(strings.ToLower(strings.TrimSpace(action)))
	if out.Action == "" {
		out.Action = out.EffectiveAction()
	}

	for key, raw := range fields {
		if _, known := entryKeys[key]; known && (key != "confidence" || out.Confidence != nil) {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[key] = append(json.RawMessage(nil), raw...)
	}

	*e = out
	return nil
}

// MarshalJSON encodes the entry together with its pass-through keys.
func (e Entry) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(e.Extra)+9)
	for key, raw := range e.Extra {
		fields[key] = raw
	}
	fields["id"] = e.ID
	fields["source_path"] = e.SourcePath
	fields["dest_path"] = e.DestPath
	action := e.Action
	if action == "" {
		action = e.EffectiveAction()
	}
	fields["action"] = action
	fields["status"] = e.Status
	if e.Confidence != nil {
		fields["confidence"] = *e.Confidence
	}
	if e.MovedAt != "" {
		fields["moved_at"] = e.MovedAt
	}
	if e.SkippedAt != "" {
		fields["skipped_at"] = e.SkippedAt
		fields["skipped_to"] = e.SkippedTo
	} else if e.SkippedTo != nil {
		fields["skipped_to"] = *e.SkippedTo
	}
	return json.Marshal(fields)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Document is the envelope shared by the queue and history files.
type Document struct {
	SchemaVersion string  `json:"schema_version"`
	LastUpdated   string  `json:"last_updated"`
	Files         []Entry `json:"files"`
}

// NewDocument returns an empty document at the current schema version.
func NewDocument() *Document {
	return &Document{SchemaVersion: SchemaVersion, Files: []Entry{}}
}

// Index returns the position of the entry with id, or -1.
func (d *Document) Index(id string) int {
	for i := range d.Files {
		if d.Files[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the entry with id.
func (d *Document) Get(id string) (Entry, bool) {
	if idx := d.Index(id); idx >= 0 {
		return d.Files[idx].Clone(), true
	}
	return Entry{}, false
}

// Remove drops every entry whose id is listed and reports how many were removed.
func (d *Document) Remove(ids ...string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := d.Files[:0]
	removed := 0
	for _, entry := range d.Files {
		if _, ok := drop[entry.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	d.Files = kept
	return removed
}

// Validate checks every entry and rejects duplicate ids.
func (d *Document) Validate() error {
	return ValidateEntries(d.Files)
}

// ValidateEach checks every entry without requiring unique ids.
func (d *Document) ValidateEach() error {
	for i, entry := range d.Files {
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("files[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateEntries checks entries individually and for id uniqueness.
func ValidateEntries(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("files[%d]: %w", i, err)
		}
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, entry.ID)
		}
		seen[entry.ID] = struct{}{}
	}
	return nil
}

// Timestamp formats t the way documents record times (UTC, RFC 3339, Z suffix).
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
