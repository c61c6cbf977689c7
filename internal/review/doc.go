// Package review implements the review-and-commit state machine for queued
// file proposals.
//
// The Executor owns every transition: status updates, move or delete, skip
// into the holding directory, wholesale queue replacement, producer-side
// enqueue, and ordered fail-fast bulk execution. Each committed transition
// appends a snapshot to the move or skip history first and removes the entry
// from the queue second, so an entry lives in at most one document.
//
// Expected outcomes (a vanished source, an occupied destination, a filesystem
// refusal) come back as a Result with a Kind; they never mutate the queue.
// Unknown ids and malformed requests are returned as errors wrapping
// ErrNotFound and ErrMalformedRequest. Anything else is unexpected.
package review
