// Package api defines the wire-format types shared by the review server and
// the CLI's --json output, plus converters from executor results.
//
// # Key Types
//
// ActionResponse: outcome of a single move, delete, or skip. Soft failures
// are reported with success=false and an error string, never an HTTP error.
//
// BulkResponse: outcome of a bulk execution; on failure it names the entry
// that stopped the batch and how many entries were committed before it.
//
// DirectoryListing: the files of one directory, newest first.
//
// # Design Notes
//
// Request and response keys use snake_case to match the persisted queue
// documents the browser viewer already reads. Queue entries are passed through
// as queue.Entry so producer metadata reaches the viewer unchanged.
package api
