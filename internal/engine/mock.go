package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"youpy/internal/consts"
	"youpy/internal/entity"
)

// Mock is a scripted engine for tests. The default behavior simulates a
// short successful download with a known total size; individual calls can
// be overridden per test through the function fields.
type Mock struct {
	log *slog.Logger

	ProbeFunc    func(ctx context.Context, url string) (*entity.VideoInfo, error)
	PlaylistFunc func(ctx context.Context, url string) (*entity.PlaylistInfo, error)
	DownloadFunc func(ctx context.Context, task *entity.DownloadTask, onProgress ProgressFunc) error

	SimulateTime time.Duration
}

var _ Engine = (*Mock)(nil)

// NewMock creates a mock engine with default simulated behavior.
func NewMock(log *slog.Logger) *Mock {
	return &Mock{
		log:          log.With(slog.String("package", "engine"), slog.String("engine", consts.EngineMock)),
		SimulateTime: consts.DefaultSimulateTime,
	}
}

// Probe returns minimal metadata derived from the URL.
func (m *Mock) Probe(ctx context.Context, url string) (*entity.VideoInfo, error) {
	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx, url)
	}

	return &entity.VideoInfo{
		VideoID: "mock-" + fmt.Sprintf("%08x", hash(url)),
		Title:   "mock video",
		Streams: map[string][]entity.StreamFormat{
			"audio/m4a": {{FormatID: "140", Ext: "m4a", FormatNote: "medium", Filesize: 1 << 20}},
		},
	}, nil
}

// Playlist returns an empty playlist unless overridden.
func (m *Mock) Playlist(ctx context.Context, url string) (*entity.PlaylistInfo, error) {
	if m.PlaylistFunc != nil {
		return m.PlaylistFunc(ctx, url)
	}

	return &entity.PlaylistInfo{Title: "mock playlist"}, nil
}

// Download simulates a transfer in ten progress steps.
func (m *Mock) Download(ctx context.Context, task *entity.DownloadTask, onProgress ProgressFunc) error {
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, task, onProgress)
	}

	if task == nil {
		return fmt.Errorf("task is nil")
	}

	const (
		steps = 10
		total = int64(1 << 20)
	)

	ticker := time.NewTicker(m.SimulateTime / steps)
	defer ticker.Stop()

	for step := 1; step <= steps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			onProgress(Progress{
				DownloadedBytes: total * int64(step) / steps,
				TotalBytes:      total,
				Finished:        step == steps,
			})
		}
	}

	m.log.InfoContext(ctx, "mock download done", "task", task)

	return nil
}

// hash is a tiny FNV-style fold so mock video ids are stable per URL.
func hash(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}

	return h
}
