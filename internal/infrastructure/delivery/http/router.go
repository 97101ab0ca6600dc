// Package httprouter is the HTTP delivery layer: JSON endpoints for
// metadata and download submission, a server-sent-events progress feed,
// and the links-file accessor.
package httprouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"youpy/internal/bus"
	"youpy/internal/consts"
	"youpy/internal/errs"
	"youpy/internal/infrastructure/delivery/http/middleware"
	"youpy/internal/infrastructure/delivery/http/request"
	"youpy/internal/infrastructure/delivery/http/response"
	"youpy/internal/links"
	"youpy/internal/observability"
	"youpy/internal/service"
)

type Router struct {
	*http.ServeMux
	log         *slog.Logger
	globalChain []func(http.Handler) http.Handler
	routeChain  []func(http.Handler) http.Handler
	isSubRouter bool

	svc     service.Downloads
	bus     *bus.Bus
	links   *links.Store
	metrics *observability.Metrics
}

func New(
	log *slog.Logger,
	svc service.Downloads,
	b *bus.Bus,
	lnk *links.Store,
	metrics *observability.Metrics,
) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log.With(slog.String("package", "httprouter")),
		svc:      svc,
		bus:      b,
		links:    lnk,
		metrics:  metrics,
	}

	r.SetGlobalMiddlewares()
	r.SetRoutes()

	return r
}

func (r *Router) Use(middleware ...func(http.Handler) http.Handler) {
	if r.isSubRouter {
		r.routeChain = append(r.routeChain, middleware...)
	} else {
		r.globalChain = append(r.globalChain, middleware...)
	}
}

func (r *Router) Group(fn func(r *Router)) {
	subRouter := &Router{
		isSubRouter: true,
		routeChain:  slices.Clone(r.routeChain),
		ServeMux:    r.ServeMux,
	}

	fn(subRouter)
}

func (r *Router) HandleFunc(pattern string, h http.HandlerFunc) {
	r.Handle(pattern, h)
}

func (r *Router) Handle(pattern string, h http.Handler) {
	for _, middleware := range slices.Backward(r.routeChain) {
		h = middleware(h)
	}
	r.ServeMux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, middleware := range slices.Backward(r.globalChain) {
		h = middleware(h)
	}

	h.ServeHTTP(w, req)
}

func (r *Router) SetGlobalMiddlewares() {
	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		middleware.Metrics(r.metrics),
	)
}

func (r *Router) SetRoutes() {
	r.SetRoutesHealthcheck()
	r.SetRoutesAPI()
}

func (r *Router) SetRoutesHealthcheck() {
	r.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Handle("GET /metrics", r.metrics.Handler())
}

func (ro *Router) SetRoutesAPI() {
	apiRouter := &Router{
		ServeMux: http.NewServeMux(),
	}
	apiRouter.HandleFunc("POST /streams", ro.Streams)
	apiRouter.HandleFunc("POST /playlist", ro.Playlist)
	apiRouter.HandleFunc("POST /download", ro.Download)
	apiRouter.HandleFunc("POST /download/playlist", ro.DownloadPlaylist)
	apiRouter.HandleFunc("POST /download/batch", ro.DownloadBatch)
	apiRouter.HandleFunc("GET /progress", ro.Progress)
	apiRouter.HandleFunc("GET /downloads", ro.GetDownloads)
	apiRouter.HandleFunc("GET /links", ro.GetLinks)
	apiRouter.HandleFunc("PUT /links", ro.PutLinks)

	ro.Handle("/api/", http.StripPrefix("/api", apiRouter))
}

func (ro *Router) Streams(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Streams")
	ctx := r.Context()

	var in request.Streams
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	info, err := ro.svc.Streams(ctx, in.URL)
	if err != nil {
		ro.writeServiceError(w, r, consts.RespStreamsFail, err)

		return
	}

	response.OK(w, consts.RespStreamsRetrieved, info, nil)
}

func (ro *Router) Playlist(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Playlist")
	ctx := r.Context()

	var in request.Playlist
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	info, err := ro.svc.Playlist(ctx, in.URL)
	if errors.Is(err, errs.ErrNoEntries) {
		response.NoContent(w)

		return
	}
	if err != nil {
		ro.writeServiceError(w, r, consts.RespPlaylistFail, err)

		return
	}

	response.OK(w, consts.RespPlaylistRetrieved, info, nil)
}

func (ro *Router) Download(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Download")
	ctx := r.Context()

	var in request.Download
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	res, err := ro.svc.Download(ctx, service.DownloadRequest{
		URL:              in.URL,
		Title:            in.Title,
		FormatIDs:        in.FormatIDs,
		AudioOnly:        in.AudioOnly,
		WriteDescription: in.WriteDescription,
		Force:            in.Force,
	})
	if err != nil {
		ro.writeServiceError(w, r, consts.RespDownloadSubmitFail, err)

		return
	}

	// A skipped submission is a normal outcome, not an error.
	if !res.Accepted {
		log.DebugContext(ctx, "download skipped",
			slog.String("video_id", res.VideoID), slog.String("reason", res.Reason))
		response.OK(w, consts.RespDownloadSubmitted, res, nil)

		return
	}

	log.InfoContext(ctx, consts.RespDownloadSubmitted, slog.String("video_id", res.VideoID))
	response.Accepted(w, consts.RespDownloadSubmitted, res, nil)
}

func (ro *Router) DownloadPlaylist(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "DownloadPlaylist")
	ctx := r.Context()

	var in request.DownloadPlaylist
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	res, err := ro.svc.DownloadPlaylist(ctx, service.PlaylistRequest{
		URL:              in.URL,
		Selected:         in.Selected,
		AudioOnly:        in.AudioOnly,
		WriteDescription: in.WriteDescription,
		Force:            in.Force,
	})
	if err != nil {
		ro.writeServiceError(w, r, consts.RespDownloadSubmitFail, err)

		return
	}

	log.InfoContext(ctx, consts.RespDownloadSubmitted,
		slog.Int("accepted", res.Accepted), slog.Int("skipped", res.Skipped))
	response.Accepted(w, consts.RespDownloadSubmitted, res, nil)
}

func (ro *Router) DownloadBatch(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "DownloadBatch")
	ctx := r.Context()

	var in request.DownloadBatch
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	urls := in.URLs
	if len(urls) == 0 {
		stored, err := ro.links.Read()
		if err != nil {
			log.ErrorContext(ctx, consts.RespLinksFail, slog.Any("error", err))
			response.InternalServerError(w, consts.RespLinksFail, nil, err)

			return
		}

		urls = stored
	}

	res, err := ro.svc.DownloadBatch(ctx, service.BatchRequest{
		URLs:             urls,
		AudioOnly:        in.AudioOnly,
		WriteDescription: in.WriteDescription,
		Force:            in.Force,
	})
	if errors.Is(err, errs.ErrNoLinks) {
		log.DebugContext(ctx, consts.RespDownloadSubmitFail, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespDownloadSubmitFail, err)

		return
	}
	if err != nil {
		ro.writeServiceError(w, r, consts.RespDownloadSubmitFail, err)

		return
	}

	log.InfoContext(ctx, consts.RespDownloadSubmitted,
		slog.Int("accepted", res.Accepted), slog.Int("skipped", res.Skipped))
	response.Accepted(w, consts.RespDownloadSubmitted, res, nil)
}

// Progress streams the live event feed as server-sent events. The stream
// carries every event published after the connection opened plus periodic
// keepalives, and terminates only when the client disconnects.
func (ro *Router) Progress(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Progress")
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.ErrorContext(ctx, "streaming unsupported by response writer")
		response.InternalServerError(w, "streaming unsupported", nil, nil)

		return
	}

	sub, err := ro.bus.Subscribe()
	if err != nil {
		log.ErrorContext(ctx, "subscribe failed", slog.Any("error", err))
		response.ServiceUnavailable(w, "progress feed unavailable", err)

		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.DebugContext(ctx, "progress stream opened", slog.String("remote", r.RemoteAddr))

	for {
		select {
		case <-ctx.Done():
			log.DebugContext(ctx, "progress stream closed by client")

			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				log.ErrorContext(ctx, "marshal event", slog.Any("error", err))

				continue
			}

			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}

			flusher.Flush()
		}
	}
}

func (ro *Router) GetDownloads(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "GetDownloads")

	ctx, cancel := context.WithTimeout(r.Context(), consts.DefaultHandlerTimeout)
	defer cancel()

	tasks, err := ro.svc.Active(ctx)
	if errors.Is(err, errs.ErrNoActiveDownloads) {
		log.DebugContext(ctx, consts.RespNoActiveDownloads)
		response.NoContent(w)

		return
	}
	if err != nil {
		response.InternalServerError(w, consts.RespActiveDownloads, nil, err)

		return
	}

	response.OK(w, consts.RespActiveDownloads, tasks, nil)
}

func (ro *Router) GetLinks(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "GetLinks")
	ctx := r.Context()

	urls, err := ro.links.Read()
	if err != nil {
		log.ErrorContext(ctx, consts.RespLinksFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespLinksFail, nil, err)

		return
	}

	response.OK(w, consts.RespLinksRetrieved, urls, nil)
}

func (ro *Router) PutLinks(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "PutLinks")
	ctx := r.Context()

	var in request.Links
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := ro.links.Write(in.URLs); err != nil {
		log.ErrorContext(ctx, consts.RespLinksFail, slog.Any("error", err))
		response.InternalServerError(w, consts.RespLinksFail, nil, err)

		return
	}

	response.OK(w, consts.RespLinksSaved, nil, nil)
}

// writeServiceError maps orchestrator errors onto HTTP statuses.
func (ro *Router) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	ro.log.ErrorContext(r.Context(), message, slog.Any("error", err))

	switch {
	case errors.Is(err, errs.ErrInvalidURL):
		response.UnprocessableEntity(w, message, err)
	case errors.Is(err, errs.ErrServiceClosed):
		response.ServiceUnavailable(w, message, err)
	case errors.Is(err, errs.ErrExtractionFailed), errors.Is(err, errs.ErrDownloadFailed):
		response.BadGateway(w, message, err)
	default:
		response.InternalServerError(w, message, nil, err)
	}
}
