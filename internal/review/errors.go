package review

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("entry not found")
	ErrSourceMissing        = errors.New("source missing")
	ErrDestinationCollision = errors.New("destination exists")
	ErrFilesystem           = errors.New("filesystem error")
	ErrMalformedRequest     = errors.New("malformed request")
)

// Kind classifies the outcome of a transition.
type Kind string

const (
	KindNone                 Kind = ""
	KindNotFound             Kind = "not_found"
	KindSourceMissing        Kind = "source_missing"
	KindDestinationCollision Kind = "destination_collision"
	KindFilesystem           Kind = "filesystem_error"
	KindMalformedRequest     Kind = "malformed_request"
	// KindInternal marks unexpected errors; it has no sentinel.
	KindInternal Kind = "internal_error"
)

var kindMarkers = []struct {
	kind   Kind
	marker error
}{
	{KindNotFound, ErrNotFound},
	{KindSourceMissing, ErrSourceMissing},
	{KindDestinationCollision, ErrDestinationCollision},
	{KindFilesystem, ErrFilesystem},
	{KindMalformedRequest, ErrMalformedRequest},
}

// Marker returns the sentinel error for k, or nil.
func (k Kind) Marker() error {
	for _, km := range kindMarkers {
		if km.kind == k {
			return km.marker
		}
	}
	return nil
}

// KindOf reports the classification carried by err.
func KindOf(err error) Kind {
	for _, km := range kindMarkers {
		if errors.Is(err, km.marker) {
			return km.kind
		}
	}
	return KindNone
}

// failureKind is KindOf(err), or KindInternal when err carries no marker.
func failureKind(err error) Kind {
	if kind := KindOf(err); kind != KindNone {
		return kind
	}
	return KindInternal
}

// wrap tags err with marker and a readable detail, in the form
// "<marker>: <operation>: <message>: <cause>".
func wrap(marker error, operation, message string, err error) error {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "review failure"
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func notFound(operation, id string) error {
	return wrap(ErrNotFound, operation, fmt.Sprintf("entry %s not in queue", id), nil)
}
