package links

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return New(log, filepath.Join(t.TempDir(), "video-links.txt"))
}

func TestReadMissingFile(t *testing.T) {
	s := newTestStore(t)

	urls, err := s.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(urls) != 0 {
		t.Fatalf("expected empty list, got %v", urls)
	}
}

func TestWriteThenRead(t *testing.T) {
	s := newTestStore(t)

	want := []string{
		"https://youtu.be/dQw4w9WgXcQ",
		"https://youtu.be/jNQXAC9IVRw",
	}

	if err := s.Write(want); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("expected %d urls, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("url %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestReadSkipsBlankLines(t *testing.T) {
	s := newTestStore(t)

	if err := os.WriteFile(s.path, []byte("\nhttps://youtu.be/dQw4w9WgXcQ\n\n  \nhttps://youtu.be/jNQXAC9IVRw\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	urls, err := s.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %d: %v", len(urls), urls)
	}
}

func TestWriteDropsEmptyEntries(t *testing.T) {
	s := newTestStore(t)

	if err := s.Write([]string{"https://youtu.be/dQw4w9WgXcQ", "", "  "}); err != nil {
		t.Fatalf("write: %v", err)
	}

	urls, err := s.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(urls) != 1 {
		t.Fatalf("expected 1 url, got %d", len(urls))
	}
}
