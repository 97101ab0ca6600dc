package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"youpy/internal/config"
	"youpy/internal/consts"
	"youpy/internal/entity"
	"youpy/internal/errs"
	"youpy/internal/observability"

	"github.com/lrstanley/go-ytdlp"
)

const (
	opProbe    = "probe"
	opPlaylist = "playlist"
	opDownload = "download"

	statusOK    = "ok"
	statusError = "error"
)

// YTdlp drives the yt-dlp binary through go-ytdlp.
type YTdlp struct {
	log     *slog.Logger
	cfg     *config.Config
	metrics *observability.Metrics

	proxyIdx atomic.Uint64
}

var _ Engine = (*YTdlp)(nil)

// NewYTdlp creates the yt-dlp engine.
func NewYTdlp(log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) *YTdlp {
	return &YTdlp{
		log:     log.With(slog.String("package", "engine"), slog.String("engine", consts.EngineYTdlp)),
		cfg:     cfg,
		metrics: metrics,
	}
}

// nextProxy rotates through configured proxies; it returns "" when none are
// configured.
func (e *YTdlp) nextProxy() string {
	urls := e.cfg.Proxy.URLs
	if len(urls) == 0 {
		return ""
	}

	idx := e.proxyIdx.Add(1) - 1

	return urls[idx%uint64(len(urls))]
}

func (e *YTdlp) applyCommonFlags(cmd *ytdlp.Command) *ytdlp.Command {
	cmd = cmd.CacheDir(e.cfg.Dir.Cache)

	if proxy := e.nextProxy(); proxy != "" {
		cmd = cmd.Proxy(proxy)
	}

	if e.cfg.Dir.CookieFile != "" {
		cmd = cmd.Cookies(e.cfg.Dir.CookieFile)
	}

	return cmd
}

// Probe resolves metadata and available streams for a single video URL.
func (e *YTdlp) Probe(ctx context.Context, url string) (*entity.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Engine.ProbeTimeout)
	defer cancel()

	cmd := e.applyCommonFlags(ytdlp.New().
		SkipDownload().
		NoPlaylist().
		DumpSingleJSON())

	res, err := cmd.Run(ctx, url)
	if err != nil {
		e.metrics.RecordEngineRequest(opProbe, statusError)

		return nil, fmt.Errorf("%w: probe %q: %s", errs.ErrExtractionFailed, url, err)
	}

	meta, err := parseMeta(res.Stdout)
	if err != nil {
		e.metrics.RecordEngineRequest(opProbe, statusError)

		return nil, fmt.Errorf("%w: %s", errs.ErrExtractionFailed, err)
	}

	e.metrics.RecordEngineRequest(opProbe, statusOK)
	e.log.DebugContext(ctx, "probe done", slog.String("video_id", meta.ID), slog.String("title", meta.Title))

	return meta.toVideoInfo(), nil
}

// Playlist resolves the flat entry list of a playlist URL.
func (e *YTdlp) Playlist(ctx context.Context, url string) (*entity.PlaylistInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Engine.ProbeTimeout)
	defer cancel()

	cmd := e.applyCommonFlags(ytdlp.New().
		SkipDownload().
		FlatPlaylist().
		DumpSingleJSON())

	res, err := cmd.Run(ctx, url)
	if err != nil {
		e.metrics.RecordEngineRequest(opPlaylist, statusError)

		return nil, fmt.Errorf("%w: playlist %q: %s", errs.ErrExtractionFailed, url, err)
	}

	meta, err := parseMeta(res.Stdout)
	if err != nil {
		e.metrics.RecordEngineRequest(opPlaylist, statusError)

		return nil, fmt.Errorf("%w: %s", errs.ErrExtractionFailed, err)
	}

	e.metrics.RecordEngineRequest(opPlaylist, statusOK)

	return meta.toPlaylistInfo(), nil
}

// Download runs one full engine download to completion. Raw progress hooks
// are forwarded to onProgress; normalization happens in the runner.
func (e *YTdlp) Download(ctx context.Context, task *entity.DownloadTask, onProgress ProgressFunc) error {
	if task == nil {
		return fmt.Errorf("task is nil")
	}

	log := e.log.With(slog.String("video_id", task.VideoID))

	progressFn := func(prog ytdlp.ProgressUpdate) {
		onProgress(Progress{
			DownloadedBytes: int64(prog.DownloadedBytes),
			TotalBytes:      int64(prog.TotalBytes),
			Finished:        prog.Status == ytdlp.ProgressStatusFinished,
		})
	}

	cmd := e.applyCommonFlags(ytdlp.New().
		NoPlaylist().
		Format(FormatSpec(task)).
		ProgressFunc(e.cfg.Engine.ProgressInterval, progressFn).
		Output(e.outputTemplate(task)))

	if task.WriteDescription {
		cmd = cmd.WriteDescription()
	}

	res, err := cmd.Run(ctx, task.URL)
	if err != nil {
		e.metrics.RecordEngineRequest(opDownload, statusError)
		log.ErrorContext(ctx, "ytdlp run", slog.Any("error", err))

		return fmt.Errorf("%w: %s", errs.ErrDownloadFailed, err)
	}

	e.metrics.RecordEngineRequest(opDownload, statusOK)
	log.InfoContext(ctx, "download done", slog.String("stdout_tail", tail(res.Stdout)))

	return nil
}

// outputTemplate prefixes the playlist position when the task came from a
// playlist, matching "(%d). title.ext" naming.
func (e *YTdlp) outputTemplate(task *entity.DownloadTask) string {
	template := e.cfg.Dir.FilenameTemplate
	if task.OutputIndex <= 0 {
		return template
	}

	dir, file := filepath.Split(template)

	return filepath.Join(dir, fmt.Sprintf("(%d). %s", task.OutputIndex, file))
}

const tailLen = 256

func tail(s string) string {
	if len(s) <= tailLen {
		return s
	}

	return s[len(s)-tailLen:]
}
