// Package engine defines the external video extraction engine boundary and
// its yt-dlp implementation. The engine is an opaque, potentially slow,
// potentially failing collaborator; everything above it speaks entity types.
package engine

import (
	"context"
	"strings"

	"youpy/internal/entity"
)

// Progress is a raw transfer snapshot reported by the engine. TotalBytes is
// 0 when the engine does not know the final size.
type Progress struct {
	DownloadedBytes int64
	TotalBytes      int64
	// Finished marks transfer-level completion; post-processing may still
	// be running when it is reported.
	Finished bool
}

// ProgressFunc receives engine progress callbacks. It must be cheap: the
// engine invokes it from the download path.
type ProgressFunc func(p Progress)

// Engine is the external extraction engine contract.
type Engine interface {
	// Probe resolves metadata and available streams for a single video URL.
	Probe(ctx context.Context, url string) (*entity.VideoInfo, error)

	// Playlist resolves the flat entry list of a playlist URL.
	Playlist(ctx context.Context, url string) (*entity.PlaylistInfo, error)

	// Download runs one full download to completion, reporting progress
	// through onProgress. It returns only after post-processing is done.
	Download(ctx context.Context, task *entity.DownloadTask, onProgress ProgressFunc) error
}

const (
	bestAudioSpec = "bestaudio/best"
	bestSpec      = "bestvideo+bestaudio/best"
)

// FormatSpec builds the engine format selector for a task: requested format
// ids joined with "+" and a best-quality fallback, since stored format ids
// can go stale between probe and download.
func FormatSpec(task *entity.DownloadTask) string {
	if task.AudioOnly {
		return bestAudioSpec
	}

	if len(task.FormatIDs) == 0 {
		return bestSpec
	}

	return strings.Join(task.FormatIDs, "+") + "/" + bestSpec
}
