package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"youpy/internal/entity"
	"youpy/pkg/maths"
)

// metaJSON is the subset of the engine's JSON metadata dump we consume.
type metaJSON struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Duration      float64      `json:"duration"`
	UploadDate    string       `json:"upload_date"`
	Thumbnail     string       `json:"thumbnail"`
	WebpageURL    string       `json:"webpage_url"`
	Formats       []formatJSON `json:"formats"`
	Entries       []entryJSON  `json:"entries"`
	PlaylistCount int          `json:"playlist_count"`
}

type formatJSON struct {
	FormatID       string  `json:"format_id"`
	FormatNote     string  `json:"format_note"`
	Ext            string  `json:"ext"`
	Resolution     string  `json:"resolution"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	ASR            float64 `json:"asr"`
	TBR            float64 `json:"tbr"`
	FPS            float64 `json:"fps"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
}

type entryJSON struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
}

func parseMeta(stdout string) (*metaJSON, error) {
	stdout = strings.TrimSpace(stdout)
	if stdout == "" {
		return nil, fmt.Errorf("empty metadata output")
	}

	var meta metaJSON
	if err := json.Unmarshal([]byte(stdout), &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	return &meta, nil
}

const (
	resolutionAudioOnly = "audio only"
	codecNone           = "none"
)

// groupStreams buckets formats into "type/ext" categories (audio/m4a,
// video/mp4, audio-video/mp4). Storyboard, DASH-note and sizeless formats
// are filtered out; engine output order is preserved within a category.
func groupStreams(formats []formatJSON) map[string][]entity.StreamFormat {
	grouped := make(map[string][]entity.StreamFormat)

	for _, f := range formats {
		size := f.Filesize
		if size == 0 {
			size = f.FilesizeApprox
		}

		if f.FormatNote == "" || f.FormatNote == "Default" ||
			strings.HasPrefix(strings.ToUpper(f.FormatNote), "DASH") ||
			f.Ext == "mhtml" || f.Ext == "3gp" || size == 0 {
			continue
		}

		stream := entity.StreamFormat{
			FormatID:   f.FormatID,
			FormatNote: f.FormatNote,
			Ext:        f.Ext,
			Resolution: f.Resolution,
			Filesize:   size,
			ASR:        maths.RoundFloat64ToInt(f.ASR),
			TBR:        f.TBR,
			FPS:        maths.RoundFloat64ToInt(f.FPS),
		}
		if f.VCodec != codecNone {
			stream.VCodec = f.VCodec
		}
		if f.ACodec != codecNone {
			stream.ACodec = f.ACodec
		}

		var category string

		switch {
		case f.Resolution == resolutionAudioOnly:
			category = "audio/" + f.Ext
		case f.VCodec != codecNone && f.ACodec == codecNone:
			category = "video/" + f.Ext
		default:
			category = "audio-video/" + f.Ext
		}

		grouped[category] = append(grouped[category], stream)
	}

	return grouped
}

func (m *metaJSON) toVideoInfo() *entity.VideoInfo {
	return &entity.VideoInfo{
		VideoID:     m.ID,
		Title:       m.Title,
		Description: m.Description,
		Duration:    maths.RoundFloat64ToInt(m.Duration),
		UploadDate:  m.UploadDate,
		Thumbnail:   m.Thumbnail,
		WebpageURL:  m.WebpageURL,
		Streams:     groupStreams(m.Formats),
	}
}

func (m *metaJSON) toPlaylistInfo() *entity.PlaylistInfo {
	entries := make([]entity.PlaylistEntry, 0, len(m.Entries))
	for _, e := range m.Entries {
		entries = append(entries, entity.PlaylistEntry{
			VideoID:  e.ID,
			Title:    e.Title,
			URL:      e.URL,
			Duration: maths.RoundFloat64ToInt(e.Duration),
		})
	}

	return &entity.PlaylistInfo{
		PlaylistID: m.ID,
		Title:      m.Title,
		Count:      len(entries),
		Entries:    entries,
	}
}
