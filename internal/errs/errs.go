// Package errs defines common error variables used across the application.
package errs

import "errors"

var (
	// ErrServiceClosed indicates that the service is shutting down and cannot accept new work.
	ErrServiceClosed = errors.New("service is closed")
	// ErrInvalidRequestBody indicates that the request body is invalid or cannot be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")
)

// Valid request errors.
var (
	// ErrInvalidURL indicates that the URL field in the request is invalid.
	ErrInvalidURL = errors.New("invalid url field")
	// ErrNoLinks indicates that a batch request carried no usable links.
	ErrNoLinks = errors.New("no links provided")
	// ErrNoEntries indicates that a playlist request carried no selected entries.
	ErrNoEntries = errors.New("no entries selected")
)

// Download errors.
var (
	// ErrAlreadyDownloaded indicates the video is in the completed history.
	ErrAlreadyDownloaded = errors.New("already downloaded")
	// ErrDuplicateDownload indicates a download for the same video is already in flight.
	ErrDuplicateDownload = errors.New("duplicate download in progress")
	// ErrNoActiveDownloads indicates that there are no active downloads.
	ErrNoActiveDownloads = errors.New("no active downloads")
)

// Engine errors.
var (
	// ErrExtractionFailed indicates the engine could not resolve URL metadata.
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrDownloadFailed indicates that the engine failed mid-transfer.
	ErrDownloadFailed = errors.New("download failed")
	// ErrBinaryNotFound indicates that a required engine binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Bus errors.
var (
	// ErrBusClosed indicates the event bus is no longer accepting subscribers.
	ErrBusClosed = errors.New("event bus is closed")
)
