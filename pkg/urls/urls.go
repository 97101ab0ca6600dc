// Package urls provides utility functions for working with URLs.
package urls

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// reVideoID matches the 11-character video id in the common YouTube URL shapes
// (watch?v=, youtu.be/, embed/, shorts/, live/).
var reVideoID = regexp.MustCompile(`(?:v=|youtu\.be/|/embed/|/shorts/|/live/)([A-Za-z0-9_-]{11})`)

// IsURLValid checks if the given URL is valid.
func IsURLValid(raw string) bool {
	u, err := url.Parse(raw)

	return err == nil && u.Scheme != "" && u.Host != "" && (u.Scheme == schemeHTTP || u.Scheme == schemeHTTPS)
}

// FixURL prepends https scheme to URL.
// Example: youtube.com => https://youtube.com
func FixURL(raw string) string {
	u, err := url.Parse(raw)
	if err == nil && (u.Scheme == "" || (u.Scheme != schemeHTTP && u.Scheme != schemeHTTPS)) {
		u.Scheme = schemeHTTPS

		return u.String()
	}

	return raw
}

// Normalize trims spaces, parses and returns the URL in string format.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	return u.String()
}

// ExtractVideoID returns the video id embedded in a YouTube URL, or ""
// when the URL carries none (callers fall back to an engine probe).
func ExtractVideoID(raw string) string {
	m := reVideoID.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}

	return m[1]
}
