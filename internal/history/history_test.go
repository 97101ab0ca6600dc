package history

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"youpy/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	store := New(log, path, observability.New(prometheus.NewRegistry()))
	t.Cleanup(func() { store.Close() })

	return store
}

func TestRecordAndContains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")
	store := newTestStore(t, path)

	if store.Contains("vid-1") {
		t.Error("expected empty history")
	}

	store.Record("vid-1")
	store.Record("vid-1") // duplicate records are harmless
	store.Record("vid-2")

	if !store.Contains("vid-1") || !store.Contains("vid-2") {
		t.Error("expected recorded ids to be present")
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 ids, got %d", store.Len())
	}
}

func TestPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")

	store := newTestStore(t, path)
	store.Record("vid-1")
	store.Record("vid-2")
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := newTestStore(t, path)
	if !reopened.Contains("vid-1") || !reopened.Contains("vid-2") {
		t.Error("expected ids to survive a restart")
	}
	if reopened.Len() != 2 {
		t.Errorf("expected 2 ids after reopen, got %d", reopened.Len())
	}
}

func TestCorruptFileTreatedAsUsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")

	content := "vid-1\n\n  \n# comment line\nvid-2\n\x00\x01garbage\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := newTestStore(t, path)

	if !store.Contains("vid-1") || !store.Contains("vid-2") {
		t.Error("expected readable lines to be loaded")
	}
	if store.Contains("") {
		t.Error("expected blank lines to be ignored")
	}
}

func TestUnreadablePathDegradesToMemory(t *testing.T) {
	// A directory where the file should be makes both load and append fail.
	dir := t.TempDir()
	path := filepath.Join(dir, "history.txt")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir fixture: %v", err)
	}

	store := newTestStore(t, path)

	store.Record("vid-1")
	if !store.Contains("vid-1") {
		t.Error("expected in-memory record despite unwritable store")
	}
}

func TestConcurrentRecords(t *testing.T) {
	const workers = 20

	path := filepath.Join(t.TempDir(), "history.txt")
	store := newTestStore(t, path)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			// Half the workers write the same id.
			if n%2 == 0 {
				store.Record("shared")
			} else {
				store.Record("vid-" + string(rune('a'+n)))
			}
		}(i)
	}
	wg.Wait()

	if !store.Contains("shared") {
		t.Error("expected shared id recorded")
	}
	if got := store.Len(); got != workers/2+1 {
		t.Errorf("expected %d ids, got %d", workers/2+1, got)
	}
}
