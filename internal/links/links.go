// Package links reads and writes the flat newline-delimited list of video
// URLs used for batch downloads.
package links

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Store is a file-backed links list. Reads tolerate a missing file; writes
// replace the whole file.
type Store struct {
	log  *slog.Logger
	path string
	mu   sync.Mutex
}

func New(log *slog.Logger, path string) *Store {
	return &Store{
		log:  log.With(slog.String("package", "links"), slog.String("path", path)),
		path: path,
	}
}

// Read returns the stored URLs, one per line, blank lines skipped. A
// missing file is an empty list, not an error.
func (s *Store) Read() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("read links file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	urls := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		urls = append(urls, line)
	}

	return urls, nil
}

// Write replaces the stored list with the given URLs.
func (s *Store) Write(urls []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sb strings.Builder
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}

		sb.WriteString(u)
		sb.WriteByte('\n')
	}

	if err := os.WriteFile(s.path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write links file: %w", err)
	}

	s.log.Debug("links file saved", slog.Int("count", len(urls)))

	return nil
}
