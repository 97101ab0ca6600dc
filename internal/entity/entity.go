// Package entity defines the core entities used in the application.
package entity

import (
	"log/slog"
	"time"
)

// EventStatus represents the lifecycle point a progress event reports.
type EventStatus string

const (
	// EventDownloading indicates byte transfer is in progress.
	EventDownloading EventStatus = "downloading"
	// EventFinished indicates the byte transfer is complete; post-processing may follow.
	EventFinished EventStatus = "finished"
	// EventCompleted indicates post-processing is done and the task is fully complete.
	EventCompleted EventStatus = "completed"
	// EventError indicates the task terminated with an error.
	EventError EventStatus = "error"
	// EventKeepalive is a periodic marker so idle subscriptions are not reclaimed.
	EventKeepalive EventStatus = "keepalive"
)

// ProgressEvent is a single immutable record on the progress feed.
// Percent is nil when the engine does not know the total size; consumers
// must render an indeterminate state rather than a made-up number.
type ProgressEvent struct {
	VideoID   string      `json:"video_id,omitempty"`
	Status    EventStatus `json:"status"`
	Percent   *float64    `json:"percent,omitempty"`
	Speed     float64     `json:"speed,omitempty"`      // bytes per second
	SpeedText string      `json:"speed_text,omitempty"` // e.g. "1.25 MB/s", for feed consumers
	ETA       int64       `json:"eta,omitempty"`        // seconds
	Title     string      `json:"title,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (e ProgressEvent) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("video_id", e.VideoID),
		slog.String("status", string(e.Status)),
	}
	if e.Percent != nil {
		attrs = append(attrs, slog.Float64("percent", *e.Percent))
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String("error", e.Error))
	}

	return slog.GroupValue(attrs...)
}

// TaskStatus represents the status of a download task.
type TaskStatus string

const (
	// TaskStatusStarting indicates that the task is accepted and is about to start.
	TaskStatusStarting TaskStatus = "starting"
	// TaskStatusDownloading indicates that the task is in progress.
	TaskStatusDownloading TaskStatus = "downloading"
	// TaskStatusFinished indicates that the task has finished successfully.
	TaskStatusFinished TaskStatus = "finished"
	// TaskStatusError indicates that the task has encountered an error.
	TaskStatusError TaskStatus = "error"
)

// DownloadTask represents one engine invocation. Identity is VideoID,
// unique among concurrently active tasks. Owned by a single runner.
type DownloadTask struct {
	VideoID          string     `json:"videoId"`
	URL              string     `json:"url"`
	Title            string     `json:"title,omitempty"`
	FormatIDs        []string   `json:"formatIds,omitempty"`
	AudioOnly        bool       `json:"audioOnly"`
	WriteDescription bool       `json:"writeDescription"`
	OutputIndex      int        `json:"outputIndex,omitempty"` // playlist position used in the output filename
	Status           TaskStatus `json:"status"`
	StartedAt        time.Time  `json:"startedAt"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (t DownloadTask) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("video_id", t.VideoID),
		slog.String("url", t.URL),
		slog.Any("format_ids", t.FormatIDs),
		slog.Bool("audio_only", t.AudioOnly),
		slog.String("status", string(t.Status)),
	)
}

// StreamFormat is one selectable stream of a video.
type StreamFormat struct {
	FormatID   string  `json:"formatId"`
	FormatNote string  `json:"formatNote,omitempty"`
	Ext        string  `json:"ext"`
	Resolution string  `json:"resolution,omitempty"`
	Filesize   int64   `json:"filesize,omitempty"`
	ASR        int     `json:"asr,omitempty"` // audio sample rate, Hz
	TBR        float64 `json:"tbr,omitempty"` // total bitrate, kbps
	FPS        int     `json:"fps,omitempty"`
	VCodec     string  `json:"vcodec,omitempty"`
	ACodec     string  `json:"acodec,omitempty"`
}

// VideoInfo is the engine's metadata for a single video, with streams
// grouped into "type/ext" categories (e.g. "audio/m4a", "video/mp4").
type VideoInfo struct {
	VideoID           string                    `json:"videoId"`
	Title             string                    `json:"title"`
	Description       string                    `json:"description,omitempty"`
	Duration          int                       `json:"duration,omitempty"` // seconds
	UploadDate        string                    `json:"uploadDate,omitempty"`
	Thumbnail         string                    `json:"thumbnail,omitempty"`
	WebpageURL        string                    `json:"webpageUrl,omitempty"`
	Streams           map[string][]StreamFormat `json:"streams"`
	AlreadyDownloaded bool                      `json:"alreadyDownloaded"`
}

// PlaylistEntry is one video inside a playlist.
type PlaylistEntry struct {
	VideoID    string `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Duration   int    `json:"duration,omitempty"`
	Downloaded bool   `json:"downloaded"`
}

// PlaylistInfo is the engine's metadata for a playlist.
type PlaylistInfo struct {
	PlaylistID string          `json:"playlistId"`
	Title      string          `json:"title"`
	Count      int             `json:"count"`
	Entries    []PlaylistEntry `json:"entries"`
}

// SubmitResult is the synchronous outcome of a single download request.
type SubmitResult struct {
	Accepted bool   `json:"accepted"`
	VideoID  string `json:"videoId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// BatchResult is the synchronous outcome of a playlist or batch request.
type BatchResult struct {
	Accepted int `json:"acceptedCount"`
	Skipped  int `json:"skippedCount"`
}
