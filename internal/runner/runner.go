// Package runner executes a single download task: it drives one engine
// invocation, translates raw engine progress into normalized bus events,
// and guarantees registry cleanup and history recording on every exit path.
package runner

import (
	"context"
	"log/slog"
	"time"

	"youpy/internal/bus"
	"youpy/internal/engine"
	"youpy/internal/entity"
	"youpy/internal/history"
	"youpy/internal/observability"
	"youpy/internal/registry"
	"youpy/pkg/calc"
)

// Runner runs download tasks. One Runner instance serves all tasks; state
// local to an execution lives on the stack of Run.
type Runner struct {
	log      *slog.Logger
	eng      engine.Engine
	bus      *bus.Bus
	registry *registry.Registry
	history  *history.Store
	metrics  *observability.Metrics
}

// New creates a runner over the given collaborators.
func New(
	log *slog.Logger,
	eng engine.Engine,
	b *bus.Bus,
	reg *registry.Registry,
	hist *history.Store,
	metrics *observability.Metrics,
) *Runner {
	return &Runner{
		log:      log.With(slog.String("package", "runner")),
		eng:      eng,
		bus:      b,
		registry: reg,
		history:  hist,
		metrics:  metrics,
	}
}

// Run executes the task to completion. The caller must have registered the
// task already; Run owns the registry release. Intended to be called on its
// own goroutine; it never panics across the engine boundary and never
// returns an error to the spawner — failures surface as error events.
func (r *Runner) Run(ctx context.Context, task *entity.DownloadTask) {
	log := r.log.With(slog.String("video_id", task.VideoID))
	stopTimer := r.metrics.DownloadTimer()

	// Cleanup on all exit paths, including engine failure.
	defer func() {
		r.registry.Release(task.VideoID)
		stopTimer()
	}()

	task.Status = entity.TaskStatusDownloading
	task.StartedAt = time.Now()

	progress := newProgressState()

	onProgress := func(p engine.Progress) {
		event, ok := progress.translate(task, p)
		if !ok {
			return
		}

		r.bus.Publish(event)
	}

	err := r.eng.Download(ctx, task, onProgress)
	if err != nil {
		task.Status = entity.TaskStatusError
		r.metrics.RecordDownloadFailed()
		log.ErrorContext(ctx, "download failed", slog.Any("error", err))

		r.bus.Publish(entity.ProgressEvent{
			VideoID: task.VideoID,
			Status:  entity.EventError,
			Title:   task.Title,
			Error:   err.Error(),
		})

		return
	}

	// Transfer and post-processing both done. Persist only now, so a crash
	// mid-post-processing never marks the video as completed.
	task.Status = entity.TaskStatusFinished
	r.history.Record(task.VideoID)
	r.metrics.RecordDownloadCompleted()
	log.InfoContext(ctx, "download completed", "task", task)

	r.bus.Publish(entity.ProgressEvent{
		VideoID: task.VideoID,
		Status:  entity.EventCompleted,
		Title:   task.Title,
	})
}

// progressState normalizes raw engine progress for one task: percent
// clamping, speed estimation from byte deltas, and single-shot finished
// signaling.
type progressState struct {
	lastBytes    int64
	lastAt       time.Time
	finishedSent bool
}

func newProgressState() *progressState {
	return &progressState{lastAt: time.Now()}
}

// translate converts a raw engine snapshot into a bus event. It returns
// ok=false for redundant terminal signals: the transfer-finished event is
// published exactly once per task even when the engine repeats it.
func (ps *progressState) translate(task *entity.DownloadTask, p engine.Progress) (entity.ProgressEvent, bool) {
	if p.Finished {
		if ps.finishedSent {
			return entity.ProgressEvent{}, false
		}
		ps.finishedSent = true

		return entity.ProgressEvent{
			VideoID: task.VideoID,
			Status:  entity.EventFinished,
			Percent: calc.Percent(p.TotalBytes, p.TotalBytes),
			Title:   task.Title,
		}, true
	}

	now := time.Now()

	var speed float64
	if delta := p.DownloadedBytes - ps.lastBytes; delta > 0 {
		if elapsed := now.Sub(ps.lastAt).Seconds(); elapsed > 0 {
			speed = float64(delta) / elapsed
		}
	}

	ps.lastBytes = p.DownloadedBytes
	ps.lastAt = now

	event := entity.ProgressEvent{
		VideoID: task.VideoID,
		Status:  entity.EventDownloading,
		Percent: calc.Percent(p.DownloadedBytes, p.TotalBytes),
		Speed:   speed,
		ETA:     calc.ETA(p.DownloadedBytes, p.TotalBytes, speed),
		Title:   task.Title,
	}
	if speed > 0 {
		event.SpeedText = calc.HumanBytes(int64(speed)) + "/s"
	}

	return event, true
}
