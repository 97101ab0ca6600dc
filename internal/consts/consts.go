// Package consts defines application-wide constants.
package consts

import "time"

const (
	// DefaultHandlerTimeout is the default timeout for HTTP handlers.
	DefaultHandlerTimeout = 30 * time.Second
	// DefaultKeepaliveInterval is the default interval between keepalive events on the progress feed.
	DefaultKeepaliveInterval = 15 * time.Second
	// DefaultSubscriberQueueSize is the default per-subscriber event queue size.
	DefaultSubscriberQueueSize = 64
	// DefaultProgressInterval is the default frequency of engine progress callbacks.
	DefaultProgressInterval = 200 * time.Millisecond
	// DefaultSimulateTime is the default time to simulate a transfer in the mock engine.
	DefaultSimulateTime = 1 * time.Second
)

// Skip reasons reported to callers. Normal control flow outcomes, not errors.
const (
	// ReasonAlreadyDownloaded is reported when the video is in the completed history.
	ReasonAlreadyDownloaded = "already downloaded"
	// ReasonDuplicateInProgress is reported when a download for the video is already active.
	ReasonDuplicateInProgress = "duplicate in progress"
	// ReasonInvalidURL is reported when no video id can be resolved for the URL.
	ReasonInvalidURL = "invalid url"
)

// HTTP response messages.
const (
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespUnprocessableEntity is returned when the request cannot be processed.
	RespUnprocessableEntity = "unprocessable entity"
	// RespDownloadSubmitted is returned when a download request was processed.
	RespDownloadSubmitted = "download submitted"
	// RespDownloadSubmitFail is returned when a download request cannot be processed.
	RespDownloadSubmitFail = "download submit failed"
	// RespStreamsRetrieved is returned when stream metadata is successfully fetched.
	RespStreamsRetrieved = "streams retrieved"
	// RespStreamsFail is returned when stream metadata cannot be fetched.
	RespStreamsFail = "fetch streams failed"
	// RespPlaylistRetrieved is returned when playlist metadata is successfully fetched.
	RespPlaylistRetrieved = "playlist retrieved"
	// RespPlaylistFail is returned when playlist metadata cannot be fetched.
	RespPlaylistFail = "fetch playlist failed"
	// RespLinksRetrieved is returned when the links file is successfully read.
	RespLinksRetrieved = "links retrieved"
	// RespLinksSaved is returned when the links file is successfully written.
	RespLinksSaved = "links saved"
	// RespLinksFail is returned when the links file cannot be accessed.
	RespLinksFail = "links access failed"
	// RespNoActiveDownloads is returned when there are no active downloads.
	RespNoActiveDownloads = "no active downloads"
	// RespActiveDownloads is returned with the active downloads snapshot.
	RespActiveDownloads = "active downloads retrieved"
)

// Engine identifiers.
const (
	// EngineYTdlp is the yt-dlp engine identifier.
	EngineYTdlp = "ytdlp"
	// EngineMock is the mock engine identifier for testing.
	EngineMock = "mock"
)
