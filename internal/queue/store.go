package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"filemanager/internal/fileutil"
)

const lockRetryDelay = 25 * time.Millisecond

// Store reads and writes one JSON document. All mutation goes through Update.
type Store struct {
	path string
	name string

	mu      sync.Mutex
	lock    *flock.Flock
	now     func() time.Time
	history bool
}

// Option configures a Store.
type Option func(*Store)

// WithLocking guards Update with an advisory lock file at <path>.lock so
// other processes appending to the same document cannot lose updates.
func WithLocking(enabled bool) Option {
	return func(s *Store) {
		if enabled {
			s.lock = flock.New(s.path + ".lock")
		} else {
			s.lock = nil
		}
	}
}

// AsHistory marks the document as an append-only history. Snapshots are
// validated individually; an id may appear more than once.
func AsHistory() Option {
	return func(s *Store) {
		s.history = true
	}
}

// WithClock overrides the time source used for last_updated.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a store for the document at path. name labels the document
// in errors ("queue", "move history").
func NewStore(path, name string, opts ...Option) *Store {
	s := &Store{path: path, name: name, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Name returns the document label.
func (s *Store) Name() string { return s.name }

// Now returns the store's current time.
func (s *Store) Now() time.Time { return s.now() }

// Load reads the document. A missing file yields an empty document; a corrupt
// one yields ErrMalformedDocument.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("read %s: %w", s.name, err)
	}
	return s.decode(data)
}

func (s *Store) decode(data []byte) (*Document, error) {
	if strings.TrimSpace(string(data)) == "" {
		return NewDocument(), nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrMalformedDocument, s.name, s.path, err)
	}
	if doc.SchemaVersion == "" {
		doc.SchemaVersion = SchemaVersion
	}
	if doc.Files == nil {
		doc.Files = []Entry{}
	}
	validate := doc.Validate
	if s.history {
		validate = doc.ValidateEach
	}
	if err := validate(); err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrMalformedDocument, s.name, s.path, err)
	}
	return &doc, nil
}

// Update runs fn against the freshly loaded document and persists the result
// atomically. When fn returns an error nothing is written.
func (s *Store) Update(ctx context.Context, fn func(*Document) error) error {
	unlock, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

// Append adds entries to the document. Outside history documents an id that
// is already present is rejected.
func (s *Store) Append(ctx context.Context, entries ...Entry) error {
	return s.Update(ctx, func(doc *Document) error {
		for _, entry := range entries {
			if !s.history && doc.Index(entry.ID) >= 0 {
				return fmt.Errorf("%w: %s already in %s", ErrDuplicateID, entry.ID, s.name)
			}
			doc.Files = append(doc.Files, entry)
		}
		return nil
	})
}

func (s *Store) save(doc *Document) error {
	if doc.SchemaVersion == "" {
		doc.SchemaVersion = SchemaVersion
	}
	if doc.Files == nil {
		doc.Files = []Entry{}
	}
	doc.LastUpdated = Timestamp(s.now())
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure %s directory: %w", s.name, err)
	}
	if err := fileutil.WriteJSONAtomic(s.path, doc); err != nil {
		return fmt.Errorf("write %s: %w", s.name, err)
	}
	return nil
}

func (s *Store) acquire(ctx context.Context) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.lock == nil {
		return s.mu.Unlock, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("ensure %s directory: %w", s.name, err)
	}
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("lock %s: %w", s.name, err)
	}
	if !locked {
		s.mu.Unlock()
		return nil, fmt.Errorf("lock %s: not acquired", s.name)
	}
	return func() {
		_ = s.lock.Unlock()
		s.mu.Unlock()
	}, nil
}
