// Package history persists the set of previously completed video ids across
// process restarts, as a line-delimited file. A broken store never takes the
// service down: load and write failures degrade to in-memory-only behavior.
package history

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"youpy/internal/observability"
)

const filePermReadWrite = 0o644

// Store is the completed-download history. Safe for concurrent use from
// multiple task runner completions.
type Store struct {
	log     *slog.Logger
	metrics *observability.Metrics
	path    string

	mu       sync.Mutex
	ids      map[string]struct{}
	file     *os.File // nil when degraded to in-memory-only
	degraded bool
}

// New opens the history file at path, loading any previously recorded ids.
// An unreadable or corrupt file is treated as empty history with a warning.
func New(log *slog.Logger, path string, metrics *observability.Metrics) *Store {
	store := &Store{
		log:     log.With(slog.String("package", "history")),
		metrics: metrics,
		path:    path,
		ids:     make(map[string]struct{}),
	}

	store.load()
	store.open()
	store.metrics.SetHistorySize(len(store.ids))

	return store
}

func (s *Store) load() {
	file, err := os.Open(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("history unreadable; starting with empty history", slog.Any("error", err))
		}

		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" || strings.HasPrefix(id, "#") {
			continue
		}

		s.ids[id] = struct{}{}
	}

	if err := scanner.Err(); err != nil {
		s.log.Warn("history partially read; continuing with loaded entries", slog.Any("error", err))
	}
}

func (s *Store) open() {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Warn("history dir create failed; running in-memory only", slog.Any("error", err))

		return
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermReadWrite)
	if err != nil {
		s.log.Warn("history open failed; running in-memory only", slog.Any("error", err))

		return
	}

	s.file = file
}

// Contains reports whether the video id was previously recorded.
func (s *Store) Contains(videoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.ids[videoID]

	return ok
}

// Record appends the video id to the history. Recording an id twice is
// harmless; the persisted file only ever gains a given id once.
func (s *Store) Record(videoID string) {
	if videoID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[videoID]; ok {
		return
	}

	s.ids[videoID] = struct{}{}
	s.metrics.SetHistorySize(len(s.ids))

	if s.file == nil {
		return
	}

	if _, err := fmt.Fprintln(s.file, videoID); err != nil {
		if !s.degraded {
			s.degraded = true
			s.log.Warn("history write failed; degrading to in-memory for this session", slog.Any("error", err))
		}
	}
}

// Len returns the number of recorded ids.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.ids)
}

// Close flushes and closes the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	err := s.file.Close()
	s.file = nil

	if err != nil {
		return fmt.Errorf("close history: %w", err)
	}

	return nil
}
