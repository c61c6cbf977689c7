package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"filemanager/internal/api"
	"filemanager/internal/journal"
	"filemanager/internal/logging"
	"filemanager/internal/pathutil"
	"filemanager/internal/queue"
	"filemanager/internal/review"
)

const maxBodyBytes = 16 << 20

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req api.UpdateStatusRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Status) == "" {
		s.writeError(w, http.StatusBadRequest, "Missing id or status")
		return
	}
	if err := s.executor.UpdateStatus(r.Context(), req.ID, req.Status); err != nil {
		s.writeExecutorError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func (s *Server) handleMoveFile(w http.ResponseWriter, r *http.Request) {
	s.handleEntryAction(w, r, s.executor.ExecuteMoveOrDelete)
}

func (s *Server) handleSkipFile(w http.ResponseWriter, r *http.Request) {
	s.handleEntryAction(w, r, s.executor.ExecuteSkip)
}

func (s *Server) handleEntryAction(w http.ResponseWriter, r *http.Request, run func(context.Context, string) (review.Result, error)) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req api.EntryRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		s.writeError(w, http.StatusBadRequest, "Missing id")
		return
	}
	result, err := run(r.Context(), req.ID)
	if err != nil {
		s.writeExecutorError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromResult(result))
}

func (s *Server) handleBulkExecute(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req api.BulkRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	op, ok := review.ParseOperation(req.Operation)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "operation must be move or skip")
		return
	}
	if len(req.IDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "Missing ids")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.BulkTimeout())
	defer cancel()
	result, err := s.executor.BulkExecute(ctx, req.IDs, op)
	if err != nil {
		s.writeExecutorError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromBulkResult(result))
}

func (s *Server) handleReplaceQueue(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	var req api.ReplaceQueueRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Files == nil {
		s.writeError(w, http.StatusBadRequest, "Missing files")
		return
	}
	if err := s.executor.ReplaceQueueFiles(r.Context(), req.Files); err != nil {
		s.writeExecutorError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	s.handleDocument(w, r, s.executor.Queue)
}

func (s *Server) handleMoveHistory(w http.ResponseWriter, r *http.Request) {
	s.handleDocument(w, r, s.executor.MoveHistory)
}

func (s *Server) handleSkipHistory(w http.ResponseWriter, r *http.Request) {
	s.handleDocument(w, r, s.executor.SkipHistory)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request, load func() (*queue.Document, error)) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	doc, err := load()
	if err != nil {
		s.writeExecutorError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListDirectory(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	dir := r.URL.Query().Get("path")
	if strings.TrimSpace(dir) == "" {
		s.writeError(w, http.StatusBadRequest, "Missing path parameter")
		return
	}
	listing, err := api.ListDirectory(dir)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, listing)
	case errors.Is(err, api.ErrNotDirectory):
		s.writeError(w, http.StatusBadRequest, "Path is not a directory")
	case errors.Is(err, fs.ErrPermission):
		s.writeError(w, http.StatusForbidden, "Permission denied")
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleFilePreview(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	requested := r.URL.Query().Get("path")
	if strings.TrimSpace(requested) == "" {
		s.writeError(w, http.StatusBadRequest, "Missing path parameter")
		return
	}
	path, exists, err := pathutil.Resolve(requested)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !exists {
		s.writeError(w, http.StatusNotFound, "File not found")
		return
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			s.writeError(w, http.StatusForbidden, "Permission denied")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.Mode().IsRegular() {
		s.writeError(w, http.StatusBadRequest, "Path is not a file")
		return
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	if s.journal == nil {
		s.writeJSON(w, http.StatusOK, api.JournalResponse{Records: []journal.Record{}})
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	records, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []journal.Record{}
	}
	s.writeJSON(w, http.StatusOK, api.JournalResponse{Records: records})
}

func (s *Server) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeExecutorError maps executor error classes to HTTP status codes.
func (s *Server) writeExecutorError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, review.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, review.ErrMalformedRequest):
		status = http.StatusBadRequest
	default:
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error())
}
