// Package queue persists the review queue and the move/skip history documents.
//
// Each document is a JSON envelope ({schema_version, last_updated, files})
// stored in the state directory. Documents are validated on load, written only
// through fileutil.WriteFileAtomic, and mutated through Store.Update, which
// serializes the read-modify-write cycle with an in-process mutex and, when
// enabled, an advisory lock file next to the document.
//
// Entries are typed but keep every key this package does not model, so
// producer metadata such as timestamps, checksums, or duplicate hints
// round-trips unchanged.
package queue
