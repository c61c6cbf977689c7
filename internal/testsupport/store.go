package testsupport

import (
	"context"
	"testing"

	"filemanager/internal/config"
	"filemanager/internal/queue"
)

// Entry builds a pending move proposal.
func Entry(id, source, dest string) queue.Entry {
	return queue.Entry{
		ID:         id,
		SourcePath: source,
		DestPath:   dest,
		Action:     queue.ActionMove,
		Status:     queue.StatusPending,
	}
}

// WriteQueue replaces the queue document in cfg's state directory with entries.
func WriteQueue(t testing.TB, cfg *config.Config, entries ...queue.Entry) {
	t.Helper()

	store := queue.NewStore(cfg.QueuePath(), "queue")
	err := store.Update(context.Background(), func(doc *queue.Document) error {
		doc.Files = append([]queue.Entry{}, entries...)
		return nil
	})
	if err != nil {
		t.Fatalf("write queue: %v", err)
	}
}

// LoadDocument reads the document at path or fails the test.
func LoadDocument(t testing.TB, path string) *queue.Document {
	t.Helper()

	doc, err := queue.NewStore(path, "document", queue.AsHistory()).Load()
	if err != nil {
		t.Fatalf("load %s: %v", path, err)
	}
	return doc
}

// IDs lists the entry ids in doc in order.
func IDs(doc *queue.Document) []string {
	ids := make([]string, 0, len(doc.Files))
	for _, entry := range doc.Files {
		ids = append(ids, entry.ID)
	}
	return ids
}
