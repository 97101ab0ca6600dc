// Package service is the request orchestrator: it resolves download
// requests against the history store and the active-download registry,
// spawns one runner goroutine per accepted task, and answers metadata
// queries. It never blocks callers on download completion.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"youpy/internal/config"
	"youpy/internal/consts"
	"youpy/internal/engine"
	"youpy/internal/entity"
	"youpy/internal/errs"
	"youpy/internal/history"
	"youpy/internal/observability"
	"youpy/internal/registry"
	"youpy/internal/runner"
	"youpy/pkg/urls"
)

// DownloadRequest submits a single video.
type DownloadRequest struct {
	URL              string
	Title            string
	FormatIDs        []string
	AudioOnly        bool
	WriteDescription bool
	Force            bool
}

// PlaylistRequest submits a subset of a playlist. An empty Selected set
// means every entry.
type PlaylistRequest struct {
	URL              string
	Selected         []string
	AudioOnly        bool
	WriteDescription bool
	Force            bool
}

// BatchRequest submits a flat list of video URLs.
type BatchRequest struct {
	URLs             []string
	AudioOnly        bool
	WriteDescription bool
	Force            bool
}

type downloads struct {
	log      *slog.Logger
	cfg      *config.Config
	eng      engine.Engine
	registry *registry.Registry
	history  *history.Store
	runner   *runner.Runner
	metrics  *observability.Metrics

	runCtx    context.Context
	wg        sync.WaitGroup
	closed    atomic.Bool
	startOnce sync.Once
}

// Downloads is the orchestrator contract exposed to the delivery layer.
type Downloads interface {
	Start(ctx context.Context)
	Wait()

	Download(ctx context.Context, req DownloadRequest) (entity.SubmitResult, error)
	DownloadPlaylist(ctx context.Context, req PlaylistRequest) (entity.BatchResult, error)
	DownloadBatch(ctx context.Context, req BatchRequest) (entity.BatchResult, error)

	Streams(ctx context.Context, url string) (*entity.VideoInfo, error)
	Playlist(ctx context.Context, url string) (*entity.PlaylistInfo, error)
	Active(ctx context.Context) ([]*entity.DownloadTask, error)
}

var _ Downloads = (*downloads)(nil)

func New(
	cfg *config.Config,
	log *slog.Logger,
	eng engine.Engine,
	reg *registry.Registry,
	hist *history.Store,
	run *runner.Runner,
	metrics *observability.Metrics,
) Downloads {
	return &downloads{
		log:      log.With(slog.String("package", "service")),
		cfg:      cfg,
		eng:      eng,
		registry: reg,
		history:  hist,
		runner:   run,
		metrics:  metrics,
		runCtx:   context.Background(),
	}
}

// Start binds the lifetime of spawned runners to ctx. New submissions are
// rejected once ctx is canceled; in-flight downloads run to completion of
// the engine call.
func (svc *downloads) Start(ctx context.Context) {
	svc.startOnce.Do(func() {
		svc.runCtx = ctx

		go func() {
			<-ctx.Done()
			svc.closed.Store(true)
		}()
	})
}

// Wait blocks until every spawned runner has exited. Used on shutdown.
func (svc *downloads) Wait() {
	svc.wg.Wait()
}

func (svc *downloads) Download(ctx context.Context, req DownloadRequest) (entity.SubmitResult, error) {
	if svc.closed.Load() {
		return entity.SubmitResult{}, errs.ErrServiceClosed
	}

	videoID, title, err := svc.resolve(ctx, req.URL)
	if err != nil {
		return entity.SubmitResult{}, err
	}

	if title == "" {
		title = req.Title
	}

	task := &entity.DownloadTask{
		VideoID:          videoID,
		URL:              urls.Normalize(req.URL),
		Title:            title,
		FormatIDs:        req.FormatIDs,
		AudioOnly:        req.AudioOnly,
		WriteDescription: req.WriteDescription,
		Status:           entity.TaskStatusStarting,
	}

	return svc.submit(ctx, task, req.Force), nil
}

func (svc *downloads) DownloadPlaylist(ctx context.Context, req PlaylistRequest) (entity.BatchResult, error) {
	if svc.closed.Load() {
		return entity.BatchResult{}, errs.ErrServiceClosed
	}

	info, err := svc.eng.Playlist(ctx, urls.Normalize(req.URL))
	if err != nil {
		return entity.BatchResult{}, fmt.Errorf("list playlist: %w", err)
	}

	selected := make(map[string]bool, len(req.Selected))
	for _, id := range req.Selected {
		selected[id] = true
	}

	var result entity.BatchResult

	index := 0
	for _, entry := range info.Entries {
		if len(selected) > 0 && !selected[entry.VideoID] {
			continue
		}
		index++

		url := entry.URL
		if url == "" {
			url = "https://www.youtube.com/watch?v=" + entry.VideoID
		}

		task := &entity.DownloadTask{
			VideoID:          entry.VideoID,
			URL:              url,
			Title:            entry.Title,
			AudioOnly:        req.AudioOnly,
			WriteDescription: req.WriteDescription,
			OutputIndex:      index,
			Status:           entity.TaskStatusStarting,
		}

		if svc.submit(ctx, task, req.Force).Accepted {
			result.Accepted++
		} else {
			result.Skipped++
		}
	}

	return result, nil
}

func (svc *downloads) DownloadBatch(ctx context.Context, req BatchRequest) (entity.BatchResult, error) {
	if svc.closed.Load() {
		return entity.BatchResult{}, errs.ErrServiceClosed
	}

	if len(req.URLs) == 0 {
		return entity.BatchResult{}, errs.ErrNoLinks
	}

	var result entity.BatchResult

	for _, rawURL := range req.URLs {
		videoID, title, err := svc.resolve(ctx, rawURL)
		if err != nil {
			// A single unresolvable link skips that link only.
			svc.log.WarnContext(ctx, "skipping batch link",
				slog.String("url", rawURL), slog.Any("error", err))
			svc.metrics.RecordDownloadSkipped(consts.ReasonInvalidURL)
			result.Skipped++

			continue
		}

		task := &entity.DownloadTask{
			VideoID:          videoID,
			URL:              urls.Normalize(rawURL),
			Title:            title,
			AudioOnly:        req.AudioOnly,
			WriteDescription: req.WriteDescription,
			Status:           entity.TaskStatusStarting,
		}

		if svc.submit(ctx, task, req.Force).Accepted {
			result.Accepted++
		} else {
			result.Skipped++
		}
	}

	return result, nil
}

// submit runs the duplicate-prevention gates and spawns a runner on
// success. It reports the outcome synchronously; the download itself
// proceeds on its own goroutine bound to the service lifetime.
func (svc *downloads) submit(ctx context.Context, task *entity.DownloadTask, force bool) entity.SubmitResult {
	if !force && svc.history.Contains(task.VideoID) {
		svc.metrics.RecordDownloadSkipped(consts.ReasonAlreadyDownloaded)
		svc.log.DebugContext(ctx, "skipping download", "task", task,
			slog.String("reason", consts.ReasonAlreadyDownloaded))

		return entity.SubmitResult{VideoID: task.VideoID, Reason: consts.ReasonAlreadyDownloaded}
	}

	if !svc.registry.TryRegister(task) {
		svc.metrics.RecordDownloadSkipped(consts.ReasonDuplicateInProgress)
		svc.log.DebugContext(ctx, "skipping download", "task", task,
			slog.String("reason", consts.ReasonDuplicateInProgress))

		return entity.SubmitResult{VideoID: task.VideoID, Reason: consts.ReasonDuplicateInProgress}
	}

	svc.metrics.RecordDownloadAccepted()
	svc.log.InfoContext(ctx, "download accepted", "task", task)

	svc.wg.Add(1)

	go func() {
		defer svc.wg.Done()
		svc.runner.Run(svc.runCtx, task)
	}()

	return entity.SubmitResult{Accepted: true, VideoID: task.VideoID}
}

// resolve maps a raw URL to a video id, probing the engine only when the
// id cannot be parsed out of the URL itself.
func (svc *downloads) resolve(ctx context.Context, rawURL string) (videoID, title string, err error) {
	url := urls.Normalize(rawURL)
	if !urls.IsURLValid(url) {
		return "", "", fmt.Errorf("%w: %q", errs.ErrInvalidURL, rawURL)
	}

	if id := urls.ExtractVideoID(url); id != "" {
		return id, "", nil
	}

	info, err := svc.eng.Probe(ctx, url)
	if err != nil {
		return "", "", fmt.Errorf("resolve %q: %w", url, err)
	}

	return info.VideoID, info.Title, nil
}

func (svc *downloads) Streams(ctx context.Context, rawURL string) (*entity.VideoInfo, error) {
	url := urls.Normalize(rawURL)
	if !urls.IsURLValid(url) {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidURL, rawURL)
	}

	started := time.Now()

	info, err := svc.eng.Probe(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}

	info.AlreadyDownloaded = svc.history.Contains(info.VideoID)

	svc.log.DebugContext(ctx, "streams retrieved",
		slog.String("video_id", info.VideoID),
		slog.Duration("elapsed", time.Since(started)))

	return info, nil
}

func (svc *downloads) Playlist(ctx context.Context, rawURL string) (*entity.PlaylistInfo, error) {
	url := urls.Normalize(rawURL)
	if !urls.IsURLValid(url) {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidURL, rawURL)
	}

	info, err := svc.eng.Playlist(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("list playlist: %w", err)
	}

	if len(info.Entries) == 0 {
		return nil, errs.ErrNoEntries
	}

	for i := range info.Entries {
		info.Entries[i].Downloaded = svc.history.Contains(info.Entries[i].VideoID)
	}

	return info, nil
}

func (svc *downloads) Active(_ context.Context) ([]*entity.DownloadTask, error) {
	tasks := svc.registry.Active()
	if len(tasks) == 0 {
		return nil, errs.ErrNoActiveDownloads
	}

	return tasks, nil
}
