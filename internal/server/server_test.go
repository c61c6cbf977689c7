package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"filemanager/internal/api"
	"filemanager/internal/config"
	"filemanager/internal/journal"
	"filemanager/internal/logging"
	"filemanager/internal/review"
	"filemanager/internal/testsupport"
)

type stubJournal struct {
	records []journal.Record
	limit   int
}

func (s *stubJournal) Recent(_ context.Context, limit int) ([]journal.Record, error) {
	s.limit = limit
	return s.records, nil
}

func newTestServer(t *testing.T, cfg *config.Config, j JournalReader) *Server {
	t.Helper()
	executor := review.New(cfg, logging.NewNop())
	return New(cfg, executor, j, logging.NewNop())
}

func do(t *testing.T, h http.Handler, method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCORSAndPreflight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newTestServer(t, cfg, nil).Handler()

	rec := do(t, h, http.MethodOptions, "/api/move-file", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Fatalf("allow-methods = %q", got)
	}

	rec = do(t, h, http.MethodGet, "/api/queue", nil, nil)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin on GET = %q", got)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newTestServer(t, cfg, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/queue", nil, http.Header{requestIDHeader: {"abc-123"}})
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}

func TestAuthRequiredWhenTokenSet(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken("secret"))
	h := newTestServer(t, cfg, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/queue", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/queue", nil, http.Header{"Authorization": {"Bearer wrong"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with wrong token = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/queue", nil, http.Header{"Authorization": {"Bearer secret"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d", rec.Code)
	}
	rec = do(t, h, http.MethodOptions, "/api/queue", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preflight should bypass auth, got %d", rec.Code)
	}
}

func TestUpdateStatusMapping(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	testsupport.WriteQueue(t, cfg, testsupport.Entry("f1", filepath.Join(base, "a.txt"), filepath.Join(base, "b.txt")))
	h := newTestServer(t, cfg, nil).Handler()

	tests := []struct {
		name string
		body any
		want int
	}{
		{"ok", api.UpdateStatusRequest{ID: "f1", Status: "approved"}, http.StatusOK},
		{"missing status", api.UpdateStatusRequest{ID: "f1"}, http.StatusBadRequest},
		{"bad status", api.UpdateStatusRequest{ID: "f1", Status: "maybe"}, http.StatusBadRequest},
		{"unknown id", api.UpdateStatusRequest{ID: "nope", Status: "approved"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/update-status", tt.body, nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	doc := testsupport.LoadDocument(t, cfg.QueuePath())
	if doc.Files[0].Status != "approved" {
		t.Fatalf("status not persisted: %q", doc.Files[0].Status)
	}
}

func TestMalformedBodyAndMethod(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newTestServer(t, cfg, nil).Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/move-file", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", rec.Code)
	}
	resp := decode[api.ErrorResponse](t, rec)
	if resp.Success || resp.Error == "" {
		t.Fatalf("unexpected error body: %+v", resp)
	}

	rec = do(t, h, http.MethodGet, "/api/move-file", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET move-file status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/does-not-exist", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown endpoint status = %d", rec.Code)
	}
}

func TestMoveFileThroughAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	src := filepath.Join(base, "inbox", "report.pdf")
	dst := filepath.Join(base, "docs", "report.pdf")
	testsupport.WriteFile(t, src, "pdf")
	testsupport.WriteQueue(t, cfg, testsupport.Entry("f1", src, dst))
	h := newTestServer(t, cfg, nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/move-file", api.EntryRequest{ID: "f1"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	want := api.ActionResponse{Success: true, Message: "Moved " + src + " to " + dst}
	if diff := cmp.Diff(want, decode[api.ActionResponse](t, rec)); diff != "" {
		t.Fatalf("unexpected response (-want +got):\n%s", diff)
	}
	if testsupport.ReadFile(t, dst) != "pdf" {
		t.Fatal("destination contents mismatch")
	}

	rec = do(t, h, http.MethodGet, "/api/history", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	history := decode[struct {
		SchemaVersion string `json:"schema_version"`
		Files         []struct {
			ID      string `json:"id"`
			Status  string `json:"status"`
			MovedAt string `json:"moved_at"`
		} `json:"files"`
	}](t, rec)
	if history.SchemaVersion != "1.0" || len(history.Files) != 1 || history.Files[0].ID != "f1" {
		t.Fatalf("unexpected history: %+v", history)
	}
	if history.Files[0].Status != "moved" || history.Files[0].MovedAt == "" {
		t.Fatalf("history entry not stamped: %+v", history.Files[0])
	}

	rec = do(t, h, http.MethodPost, "/api/move-file", api.EntryRequest{ID: "f1"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second move status = %d", rec.Code)
	}
}

func TestMoveFileSoftFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	src := filepath.Join(base, "missing.txt")
	testsupport.WriteQueue(t, cfg, testsupport.Entry("f1", src, filepath.Join(base, "out.txt")))
	h := newTestServer(t, cfg, nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/move-file", api.EntryRequest{ID: "f1"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := api.ActionResponse{
		Success: false,
		Error:   "Source file not found: " + src,
		Kind:    string(review.KindSourceMissing),
	}
	if diff := cmp.Diff(want, decode[api.ActionResponse](t, rec)); diff != "" {
		t.Fatalf("unexpected response (-want +got):\n%s", diff)
	}
	if ids := testsupport.IDs(testsupport.LoadDocument(t, cfg.QueuePath())); len(ids) != 1 {
		t.Fatalf("queue should be unchanged, got %v", ids)
	}
}

func TestSkipFileThroughAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	src := filepath.Join(base, "inbox", "photo.jpg")
	testsupport.WriteFile(t, src, "jpg")
	testsupport.WriteQueue(t, cfg, testsupport.Entry("f1", src, filepath.Join(base, "pics", "photo.jpg")))
	h := newTestServer(t, cfg, nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/skip-file", api.EntryRequest{ID: "f1"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if !decode[api.ActionResponse](t, rec).Success {
		t.Fatalf("skip failed: %s", rec.Body.String())
	}
	if !testsupport.Exists(t, filepath.Join(cfg.Paths.SkippedDir, "photo.jpg")) {
		t.Fatal("expected file in skipped holding directory")
	}

	rec = do(t, h, http.MethodGet, "/api/skip-history", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("skip-history status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"skipped_to"`) {
		t.Fatalf("skip history missing skipped_to: %s", rec.Body.String())
	}
}

func TestBulkExecuteThroughAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	srcA := filepath.Join(base, "in", "a.txt")
	srcC := filepath.Join(base, "in", "c.txt")
	testsupport.WriteFile(t, srcA, "a")
	testsupport.WriteFile(t, srcC, "c")
	testsupport.WriteQueue(t, cfg,
		testsupport.Entry("A", srcA, filepath.Join(base, "out", "a.txt")),
		testsupport.Entry("B", filepath.Join(base, "in", "b.txt"), filepath.Join(base, "out", "b.txt")),
		testsupport.Entry("C", srcC, filepath.Join(base, "out", "c.txt")),
	)
	h := newTestServer(t, cfg, nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/bulk-execute", api.BulkRequest{IDs: []string{"A", "B", "C"}, Operation: "move"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	want := api.BulkResponse{
		Success:  false,
		Count:    1,
		Error:    "Source file not found: " + filepath.Join(base, "in", "b.txt"),
		FailedID: "B",
	}
	if diff := cmp.Diff(want, decode[api.BulkResponse](t, rec)); diff != "" {
		t.Fatalf("unexpected response (-want +got):\n%s", diff)
	}

	rec = do(t, h, http.MethodPost, "/api/bulk-execute", api.BulkRequest{IDs: []string{"C"}, Operation: "skip"}, nil)
	want = api.BulkResponse{Success: true, Count: 1, Message: "Skipped 1 file"}
	if diff := cmp.Diff(want, decode[api.BulkResponse](t, rec)); diff != "" {
		t.Fatalf("unexpected skip response (-want +got):\n%s", diff)
	}

	for _, body := range []api.BulkRequest{
		{IDs: []string{"B"}, Operation: "archive"},
		{Operation: "move"},
	} {
		rec = do(t, h, http.MethodPost, "/api/bulk-execute", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %+v status = %d", body, rec.Code)
		}
	}
}

func TestReplaceQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	testsupport.WriteQueue(t, cfg, testsupport.Entry("old", filepath.Join(base, "x"), filepath.Join(base, "y")))
	h := newTestServer(t, cfg, nil).Handler()

	body := map[string]any{"files": []map[string]any{
		{"id": "n1", "source_path": filepath.Join(base, "a"), "dest_path": filepath.Join(base, "b")},
		{"id": "n2", "source_path": filepath.Join(base, "c"), "dest_path": "DELETE"},
	}}
	rec := do(t, h, http.MethodPost, "/api/replace-queue", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if diff := cmp.Diff([]string{"n1", "n2"}, testsupport.IDs(testsupport.LoadDocument(t, cfg.QueuePath()))); diff != "" {
		t.Fatalf("unexpected queue (-want +got):\n%s", diff)
	}

	dup := map[string]any{"files": []map[string]any{
		{"id": "d", "source_path": "/a", "dest_path": "/b"},
		{"id": "d", "source_path": "/c", "dest_path": "/d"},
	}}
	rec = do(t, h, http.MethodPost, "/api/replace-queue", dup, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate ids status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/replace-queue", map[string]any{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing files status = %d", rec.Code)
	}
}

func TestListDirectoryAndPreview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	dir := filepath.Join(base, "browse")
	testsupport.WriteFile(t, filepath.Join(dir, "note.txt"), "hello")
	testsupport.WriteFile(t, filepath.Join(dir, "sub", "inner.txt"), "skip me")
	h := newTestServer(t, cfg, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/list-directory?path="+dir, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	listing := decode[api.DirectoryListing](t, rec)
	if !listing.Success || listing.TotalCount != 1 || listing.Files[0].Name != "note.txt" {
		t.Fatalf("unexpected listing: %+v", listing)
	}

	rec = do(t, h, http.MethodGet, "/api/list-directory?path="+filepath.Join(base, "absent"), nil, nil)
	if decode[api.DirectoryListing](t, rec).Success {
		t.Fatal("expected Success=false for missing directory")
	}
	rec = do(t, h, http.MethodGet, "/api/list-directory?path="+filepath.Join(dir, "note.txt"), nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("file as directory status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/list-directory", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing path status = %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/file-preview?path="+filepath.Join(dir, "note.txt"), nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d", rec.Code)
	}
	if rec.Body.String() != "hello" {
		t.Fatalf("preview body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("preview content type = %q", ct)
	}
	rec = do(t, h, http.MethodGet, "/api/file-preview?path="+filepath.Join(dir, "gone.txt"), nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing preview status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/file-preview?path="+filepath.Join(dir, "sub"), nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("directory preview status = %d", rec.Code)
	}
}

func TestJournalEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newTestServer(t, cfg, nil).Handler()
	rec := do(t, h, http.MethodGet, "/api/journal", nil, nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"records":[]}` {
		t.Fatalf("nil journal response = %d %s", rec.Code, rec.Body.String())
	}

	stub := &stubJournal{records: []journal.Record{{EntryID: "f1", Operation: "move", Outcome: "success"}}}
	h = newTestServer(t, cfg, stub).Handler()
	rec = do(t, h, http.MethodGet, "/api/journal?limit=5", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if stub.limit != 5 {
		t.Fatalf("limit passed = %d", stub.limit)
	}
	resp := decode[api.JournalResponse](t, rec)
	if len(resp.Records) != 1 || resp.Records[0].EntryID != "f1" {
		t.Fatalf("unexpected records: %+v", resp.Records)
	}
	rec = do(t, h, http.MethodGet, "/api/journal?limit=zero", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}
}

func TestRunServesAndHoldsInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	srv := newTestServer(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx, func(addr net.Addr) { addrCh <- addr.String() })
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-errCh:
		t.Fatalf("Run exited early: %v", err)
	}

	resp, err := http.Get("http://" + addr + "/api/queue")
	if err != nil {
		t.Fatalf("GET queue: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("queue status = %d", resp.StatusCode)
	}

	second := newTestServer(t, cfg, nil)
	if err := second.Run(ctx, nil); err == nil || !strings.Contains(err.Error(), "already") {
		t.Fatalf("expected lock contention error, got %v", err)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}
