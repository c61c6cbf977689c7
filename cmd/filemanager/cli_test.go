package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"filemanager/internal/config"
	"filemanager/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithJournal())
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv(config.EnvStateDir, "")
	t.Setenv(config.EnvSkippedDir, "")
	t.Setenv(config.EnvPort, "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstate_dir = %q\nskipped_dir = %q\nlog_dir = %q\n\n[server]\nbind = %q\n\n[journal]\nenabled = %t\n",
		cfg.Paths.StateDir,
		cfg.Paths.SkippedDir,
		cfg.Paths.LogDir,
		cfg.Server.Bind,
		cfg.Journal.Enabled,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestQueueAddListAndMove(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(env.baseDir, "inbox", "invoice.pdf")
	dst := filepath.Join(env.baseDir, "finance", "invoice.pdf")
	testsupport.WriteFile(t, src, "invoice")

	out, _, err := runCLI(t, env, "queue", "add", "--id", "f1", "--source", src, "--dest", dst, "--confidence", "85", "--reasoning", "looks like an invoice")
	if err != nil {
		t.Fatalf("queue add: %v", err)
	}
	requireContains(t, out, "Queued f1")

	out, _, err = runCLI(t, env, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "f1")
	requireContains(t, out, "85")

	out, _, err = runCLI(t, env, "queue", "show", "f1")
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, "looks like an invoice")

	if _, _, err := runCLI(t, env, "queue", "approve", "f1"); err != nil {
		t.Fatalf("queue approve: %v", err)
	}
	out, _, err = runCLI(t, env, "queue", "list", "--status", "approved")
	if err != nil {
		t.Fatalf("queue list approved: %v", err)
	}
	requireContains(t, out, "approved")

	out, _, err = runCLI(t, env, "move", "f1")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	requireContains(t, out, "Moved "+src+" to "+dst)
	if testsupport.ReadFile(t, dst) != "invoice" {
		t.Fatal("destination contents mismatch")
	}

	out, _, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "f1")

	out, _, err = runCLI(t, env, "journal")
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	requireContains(t, out, "enqueue")
	requireContains(t, out, "move")

	if _, _, err := runCLI(t, env, "move", "f1"); err == nil {
		t.Fatal("expected second move to fail")
	}
}

func TestMoveSoftFailureExitsNonZero(t *testing.T) {
	env := setupCLITestEnv(t)
	src := filepath.Join(env.baseDir, "missing.txt")
	testsupport.WriteQueue(t, env.cfg, testsupport.Entry("f1", src, filepath.Join(env.baseDir, "out.txt")))

	out, _, err := runCLI(t, env, "--json", "move", "f1")
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Kind    string `json:"kind"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if resp.Success || resp.Kind != "source_missing" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestBulkApprovedSkips(t *testing.T) {
	env := setupCLITestEnv(t)
	a := filepath.Join(env.baseDir, "in", "a.txt")
	b := filepath.Join(env.baseDir, "in", "b.txt")
	testsupport.WriteFile(t, a, "a")
	testsupport.WriteFile(t, b, "b")
	entryA := testsupport.Entry("A", a, filepath.Join(env.baseDir, "out", "a.txt"))
	entryA.Status = "approved"
	entryB := testsupport.Entry("B", b, filepath.Join(env.baseDir, "out", "b.txt"))
	testsupport.WriteQueue(t, env.cfg, entryA, entryB)

	out, _, err := runCLI(t, env, "bulk", "skip", "--approved")
	if err != nil {
		t.Fatalf("bulk skip: %v", err)
	}
	requireContains(t, out, "Skipped 1 file")
	if !testsupport.Exists(t, filepath.Join(env.cfg.Paths.SkippedDir, "a.txt")) {
		t.Fatal("expected a.txt in skipped dir")
	}
	if diff := cmp.Diff([]string{"B"}, testsupport.IDs(testsupport.LoadDocument(t, env.cfg.QueuePath()))); diff != "" {
		t.Fatalf("unexpected queue (-want +got):\n%s", diff)
	}

	out, _, err = runCLI(t, env, "history", "--skipped")
	if err != nil {
		t.Fatalf("history --skipped: %v", err)
	}
	requireContains(t, out, "A")
}

func TestBulkStopsAtFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	a := filepath.Join(env.baseDir, "in", "a.txt")
	testsupport.WriteFile(t, a, "a")
	testsupport.WriteQueue(t, env.cfg,
		testsupport.Entry("A", a, filepath.Join(env.baseDir, "out", "a.txt")),
		testsupport.Entry("B", filepath.Join(env.baseDir, "in", "b.txt"), filepath.Join(env.baseDir, "out", "b.txt")),
	)

	out, _, err := runCLI(t, env, "bulk", "move", "A", "B")
	if err == nil {
		t.Fatal("expected bulk failure")
	}
	requireContains(t, out, "Committed 1 before stopping")
	requireContains(t, err.Error(), "entry B")
}

func TestStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	pending := testsupport.Entry("p", "/a", "/b")
	approved := testsupport.Entry("q", "/c", "/d")
	approved.Status = "approved"
	testsupport.WriteQueue(t, env.cfg, pending, approved)

	out, _, err := runCLI(t, env, "--json", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var summary statusSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if summary.QueueTotal != 2 || summary.Queue["pending"] != 1 || summary.Queue["approved"] != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !summary.Journal {
		t.Fatal("expected journal enabled")
	}
}

func TestQueueReplaceFromFile(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "replacement.json")
	testsupport.WriteFile(t, input, `[{"id":"n1","source_path":"/x","dest_path":"/y"},{"id":"n2","source_path":"/z","dest_path":"DELETE"}]`)

	out, _, err := runCLI(t, env, "queue", "replace", input)
	if err != nil {
		t.Fatalf("queue replace: %v", err)
	}
	requireContains(t, out, "2 entries")
	doc := testsupport.LoadDocument(t, env.cfg.QueuePath())
	if diff := cmp.Diff([]string{"n1", "n2"}, testsupport.IDs(doc)); diff != "" {
		t.Fatalf("unexpected queue (-want +got):\n%s", diff)
	}
	if !doc.Files[1].IsDelete() {
		t.Fatal("expected n2 to be a delete proposal")
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwrite")
	}

	out, _, err = runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.cfg.Paths.StateDir)
}

func TestQueueAddRejectsConflictingFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "queue", "add", "--source", "/a", "--dest", "/b", "--delete"); err == nil {
		t.Fatal("expected error for --dest with --delete")
	}
	if _, _, err := runCLI(t, env, "queue", "add", "--dest", "/b"); err == nil {
		t.Fatal("expected error for missing --source")
	}
	if _, _, err := runCLI(t, env, "queue", "set-status", "nope", "approved"); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestServeStopsWhenContextEnds(t *testing.T) {
	env := setupCLITestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config", env.configPath, "serve", "--bind", "127.0.0.1:0"})
	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("serve: %v", err)
	}
	requireContains(t, stdout.String(), "Review server listening on http://127.0.0.1:")

	// The instance lock is released on exit, so a second run can start.
	cmd = newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config", env.configPath, "serve", "--bind", "127.0.0.1:0"})
	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("second serve: %v", err)
	}
}
