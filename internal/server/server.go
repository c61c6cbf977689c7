package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"filemanager/internal/api"
	"filemanager/internal/config"
	"filemanager/internal/journal"
	"filemanager/internal/logging"
	"filemanager/internal/review"
)

// JournalReader lists recent journal records.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Record, error)
}

// Server is the local review API.
type Server struct {
	cfg      *config.Config
	executor *review.Executor
	journal  JournalReader
	logger   *slog.Logger
	handler  http.Handler

	lock   *flock.Flock
	server *http.Server
}

// New wires the HTTP routes. journal may be nil.
func New(cfg *config.Config, executor *review.Executor, j JournalReader, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		executor: executor,
		journal:  j,
		logger:   logging.NewComponentLogger(logger, "server"),
		lock:     flock.New(cfg.LockPath()),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/update-status", s.handleUpdateStatus)
	mux.HandleFunc("/api/move-file", s.handleMoveFile)
	mux.HandleFunc("/api/skip-file", s.handleSkipFile)
	mux.HandleFunc("/api/bulk-execute", s.handleBulkExecute)
	mux.HandleFunc("/api/replace-queue", s.handleReplaceQueue)
	mux.HandleFunc("/api/queue", s.handleQueue)
	mux.HandleFunc("/api/history", s.handleMoveHistory)
	mux.HandleFunc("/api/skip-history", s.handleSkipHistory)
	mux.HandleFunc("/api/list-directory", s.handleListDirectory)
	mux.HandleFunc("/api/file-preview", s.handleFilePreview)
	mux.HandleFunc("/api/journal", s.handleJournal)
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "unknown endpoint "+r.URL.Path)
	})
	if dir := strings.TrimSpace(cfg.Server.StaticDir); dir != "" {
		mux.Handle("/", http.FileServer(http.Dir(dir)))
	}

	s.handler = corsMiddleware(requestIDMiddleware(authMiddleware(cfg.Server.APIToken, mux)))
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// Run acquires the instance lock, listens on server.bind, and serves until ctx
// is cancelled. ready, when non-nil, receives the bound address.
func (s *Server) Run(ctx context.Context, ready func(addr net.Addr)) error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another filemanager server is already using %s", s.cfg.Paths.StateDir)
	}
	defer func() { _ = s.lock.Unlock() }()

	listener, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.cfg.BulkTimeout() + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(listener)
	}()
	s.logger.Info("review server listening", logging.String("address", listener.Addr().String()))
	if ready != nil {
		ready(listener.Addr())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.logger.Info("review server stopped")
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Success: false, Error: message})
}
