// Package registry tracks in-flight download tasks. It is the single source
// of truth for "is this video currently downloading" and the sole
// duplicate-prevention gate.
package registry

import (
	"log/slog"
	"sort"
	"sync"

	"youpy/internal/entity"
	"youpy/internal/observability"
)

// Registry holds one entry per active download task, keyed by video id.
type Registry struct {
	log     *slog.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	active map[string]*entity.DownloadTask
}

// New creates an empty registry.
func New(log *slog.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		log:     log.With(slog.String("package", "registry")),
		metrics: metrics,
		active:  make(map[string]*entity.DownloadTask),
	}
}

// TryRegister atomically inserts the task under its video id. It returns
// false when an entry already exists, in which case the caller must not
// start a runner.
func (r *Registry) TryRegister(task *entity.DownloadTask) bool {
	if task == nil || task.VideoID == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[task.VideoID]; exists {
		return false
	}

	r.active[task.VideoID] = task
	r.metrics.DownloadsActive.Set(float64(len(r.active)))

	return true
}

// Release removes the entry for the video id. It is a no-op when absent,
// tolerating double release on overlapping cleanup paths.
func (r *Registry) Release(videoID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[videoID]; !exists {
		return
	}

	delete(r.active, videoID)
	r.metrics.DownloadsActive.Set(float64(len(r.active)))
}

// Contains reports whether a task is registered for the video id.
func (r *Registry) Contains(videoID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.active[videoID]

	return exists
}

// Len returns the number of active tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.active)
}

// Active returns a snapshot of the in-flight tasks, oldest first.
func (r *Registry) Active() []*entity.DownloadTask {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks := make([]*entity.DownloadTask, 0, len(r.active))
	for _, task := range r.active {
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].StartedAt.Before(tasks[j].StartedAt)
	})

	return tasks
}
