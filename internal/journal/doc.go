// Package journal keeps an append-only SQLite log of every transition the
// review executor attempts, including failures that leave the queue
// untouched. The JSON documents remain the source of truth; the journal is an
// audit trail that can be queried by entry or recency.
package journal
