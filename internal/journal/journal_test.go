package journal_test

import (
	"context"
	"path/filepath"
	"testing"

	"filemanager/internal/journal"
)

func openJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "state", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	records := []journal.Record{
		{EntryID: "f1", Operation: "move", Outcome: "success", SourcePath: "/a", DestPath: "/b", Message: "Moved /a to /b"},
		{EntryID: "f2", Operation: "skip", Outcome: "source_missing", SourcePath: "/c"},
		{EntryID: "f1", Operation: "update_status", Outcome: "success"},
	}
	for _, rec := range records {
		if err := j.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	recent, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].Operation != "update_status" || recent[1].EntryID != "f2" {
		t.Fatalf("unexpected order: %+v", recent)
	}
	if recent[0].RecordedAt.IsZero() {
		t.Fatal("expected recorded_at to be set")
	}

	forEntry, err := j.ForEntry(ctx, "f1")
	if err != nil {
		t.Fatalf("ForEntry: %v", err)
	}
	if len(forEntry) != 2 || forEntry[0].Message != "Moved /a to /b" {
		t.Fatalf("unexpected entry history: %+v", forEntry)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := journal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Record(context.Background(), journal.Record{EntryID: "x", Operation: "move", Outcome: "success"}); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := journal.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	recent, err := reopened.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 record after reopen, got %d", len(recent))
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := journal.Open(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNilJournalRecordIsNoop(t *testing.T) {
	var j *journal.Journal
	if err := j.Record(context.Background(), journal.Record{EntryID: "x"}); err != nil {
		t.Fatalf("expected nil journal to ignore records, got %v", err)
	}
}
