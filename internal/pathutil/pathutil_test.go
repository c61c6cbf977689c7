package pathutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"filemanager/internal/pathutil"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/Documents/a.pdf", filepath.Join(home, "Documents", "a.pdf")},
		{"/abs/path", "/abs/path"},
		{"~other/file", "~other/file"},
	}
	for _, tt := range tests {
		got, err := pathutil.ExpandHome(tt.in)
		if err != nil {
			t.Fatalf("ExpandHome(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeComposesNFC(t *testing.T) {
	decomposed := "/tmp/Cafe\u0301/Re\u0301sume\u0301.pdf"
	got, err := pathutil.Normalize(decomposed)
	if err != nil {
		t.Fatal(err)
	}
	want := "/tmp/Caf\u00e9/R\u00e9sum\u00e9.pdf"
	if got != want {
		t.Fatalf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalizeRejectsEmpty(t *testing.T) {
	if _, err := pathutil.Normalize("   "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestResolveFindsSpaceVariant(t *testing.T) {
	dir := t.TempDir()
	onDisk := filepath.Join(dir, "Screenshot 2024-01-02 at 9.41.00 AM.png")
	if err := os.WriteFile(onDisk, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	requested := filepath.Join(dir, "Screenshot 2024-01-02 at 9.41.00\u202fAM.png")
	got, exists, err := pathutil.Resolve(requested)
	if err != nil {
		t.Fatal(err)
	}
	if !exists || got != onDisk {
		t.Fatalf("Resolve = (%q, %v), want (%q, true)", got, exists, onDisk)
	}
}

func TestResolvePrefersLiteralPath(t *testing.T) {
	dir := t.TempDir()
	literal := filepath.Join(dir, "note\u00a0draft.txt")
	if err := os.WriteFile(literal, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, exists, err := pathutil.Resolve(literal)
	if err != nil {
		t.Fatal(err)
	}
	if !exists || got != literal {
		t.Fatalf("Resolve = (%q, %v), want literal path", got, exists)
	}
}

func TestResolveMissing(t *testing.T) {
	requested := filepath.Join(t.TempDir(), "gone.txt")
	got, exists, err := pathutil.Resolve(requested)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Fatal("expected missing path")
	}
	if got != requested {
		t.Fatalf("unexpected resolved path %q", got)
	}
}
