// Package main implements the filemanager command-line interface.
//
// The CLI reads and writes the same queue and history documents as the review
// server, so every command works whether or not `filemanager serve` is
// running. Store locking keeps the two from losing each other's writes.
//
// Commands:
//   - serve: run the local review server
//   - status: summarize the queue and both histories
//   - queue list|show|add|approve|reject|set-status|replace: inspect and edit proposals
//   - move, skip: commit one entry
//   - bulk move|skip: commit a batch, stopping at the first failure
//   - history: list committed moves or skips
//   - journal: list recorded transitions
//   - config init|validate|show: configuration helpers
package main
