// Package request defines the HTTP request bodies and their validation.
package request

import (
	"youpy/internal/errs"
	"youpy/pkg/urls"
)

// Streams asks for the available streams of a single video.
type Streams struct {
	URL string `json:"url"`
}

func (s *Streams) Validate() error {
	if !urls.IsURLValid(urls.Normalize(s.URL)) {
		return errs.ErrInvalidURL
	}

	return nil
}

// Playlist asks for the entry list of a playlist.
type Playlist struct {
	URL string `json:"url"`
}

func (p *Playlist) Validate() error {
	if !urls.IsURLValid(urls.Normalize(p.URL)) {
		return errs.ErrInvalidURL
	}

	return nil
}

// Download submits a single video download.
type Download struct {
	URL              string   `json:"url"`
	Title            string   `json:"title,omitempty"`
	FormatIDs        []string `json:"formatIds,omitempty"` // empty means best quality
	AudioOnly        bool     `json:"audioOnly"`
	WriteDescription bool     `json:"writeDescription"`
	Force            bool     `json:"force"`
}

func (d *Download) Validate() error {
	if !urls.IsURLValid(urls.Normalize(d.URL)) {
		return errs.ErrInvalidURL
	}

	return nil
}

// DownloadPlaylist submits a playlist download, optionally restricted to a
// subset of entry ids.
type DownloadPlaylist struct {
	URL              string   `json:"url"`
	Selected         []string `json:"selected,omitempty"`
	AudioOnly        bool     `json:"audioOnly"`
	WriteDescription bool     `json:"writeDescription"`
	Force            bool     `json:"force"`
}

func (d *DownloadPlaylist) Validate() error {
	if !urls.IsURLValid(urls.Normalize(d.URL)) {
		return errs.ErrInvalidURL
	}

	return nil
}

// DownloadBatch submits a list of video URLs. An empty list falls back to
// the stored links file.
type DownloadBatch struct {
	URLs             []string `json:"urls,omitempty"`
	AudioOnly        bool     `json:"audioOnly"`
	WriteDescription bool     `json:"writeDescription"`
	Force            bool     `json:"force"`
}

// Links replaces the stored links file.
type Links struct {
	URLs []string `json:"urls"`
}
