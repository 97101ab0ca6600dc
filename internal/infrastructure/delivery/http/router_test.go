package httprouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"youpy/internal/bus"
	"youpy/internal/config"
	"youpy/internal/engine"
	"youpy/internal/entity"
	"youpy/internal/history"
	"youpy/internal/links"
	"youpy/internal/observability"
	"youpy/internal/registry"
	"youpy/internal/runner"
	"youpy/internal/service"
	"youpy/pkg/ptr"

	"github.com/prometheus/client_golang/prometheus"
)

type fixture struct {
	router *Router
	bus    *bus.Bus
	engine *engine.Mock
	hist   *history.Store
	links  *links.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	metrics := observability.New(prometheus.NewRegistry())

	cfg := &config.Config{}
	cfg.Bus.SubscriberQueueSize = 64
	cfg.Bus.KeepaliveInterval = time.Minute

	b := bus.New(log, cfg, metrics)
	reg := registry.New(log, metrics)
	hist := history.New(log, filepath.Join(t.TempDir(), "history.txt"), metrics)
	t.Cleanup(func() { hist.Close() })

	eng := engine.NewMock(log)
	eng.DownloadFunc = func(_ context.Context, _ *entity.DownloadTask, onProgress engine.ProgressFunc) error {
		onProgress(engine.Progress{DownloadedBytes: 1024, TotalBytes: 1024, Finished: true})

		return nil
	}

	run := runner.New(log, eng, b, reg, hist, metrics)
	svc := service.New(cfg, log, eng, reg, hist, run, metrics)
	svc.Start(t.Context())

	lnk := links.New(log, filepath.Join(t.TempDir(), "video-links.txt"))

	return &fixture{
		router: New(log, svc, b, lnk, metrics),
		bus:    b,
		engine: eng,
		hist:   hist,
		links:  lnk,
	}
}

func doJSON(t *testing.T, router *Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestReadyz(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStreams(t *testing.T) {
	f := newFixture(t)

	f.engine.ProbeFunc = func(_ context.Context, _ string) (*entity.VideoInfo, error) {
		return &entity.VideoInfo{
			VideoID: "dQw4w9WgXcQ",
			Title:   "clip",
			Streams: map[string][]entity.StreamFormat{
				"audio/m4a": {{FormatID: "140", Ext: "m4a"}},
			},
		}, nil
	}

	rec := doJSON(t, f.router, http.MethodPost, "/api/streams",
		map[string]string{"url": "https://youtu.be/dQw4w9WgXcQ"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data entity.VideoInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("unexpected video id %q", resp.Data.VideoID)
	}
}

func TestStreamsInvalidBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/streams", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStreamsInvalidURL(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodPost, "/api/streams", map[string]string{"url": "not a url"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestDownloadAccepted(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodPost, "/api/download",
		map[string]any{"url": "https://youtu.be/dQw4w9WgXcQ", "formatIds": []string{"140"}})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data entity.SubmitResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Data.Accepted {
		t.Errorf("expected accepted submit, got reason %q", resp.Data.Reason)
	}
}

func TestDownloadAlreadyDownloadedIsOK(t *testing.T) {
	f := newFixture(t)
	f.hist.Record("dQw4w9WgXcQ")

	rec := doJSON(t, f.router, http.MethodPost, "/api/download",
		map[string]string{"url": "https://youtu.be/dQw4w9WgXcQ"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for skipped submit, got %d", rec.Code)
	}

	var resp struct {
		Data entity.SubmitResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Accepted {
		t.Error("expected skipped submit")
	}
	if resp.Data.Reason == "" {
		t.Error("skipped submit carries no reason")
	}
}

func TestDownloadBatchFallsBackToLinksFile(t *testing.T) {
	f := newFixture(t)

	if err := f.links.Write([]string{"https://youtu.be/dQw4w9WgXcQ", "https://youtu.be/jNQXAC9IVRw"}); err != nil {
		t.Fatalf("seed links: %v", err)
	}

	rec := doJSON(t, f.router, http.MethodPost, "/api/download/batch", map[string]any{})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data entity.BatchResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Accepted != 2 {
		t.Errorf("expected 2 accepted, got %d", resp.Data.Accepted)
	}
}

func TestDownloadBatchEmptyLinksFile(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodPost, "/api/download/batch", map[string]any{})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty batch, got %d", rec.Code)
	}
}

func TestLinksRoundTrip(t *testing.T) {
	f := newFixture(t)

	put := doJSON(t, f.router, http.MethodPut, "/api/links",
		map[string]any{"urls": []string{"https://youtu.be/dQw4w9WgXcQ"}})
	if put.Code != http.StatusOK {
		t.Fatalf("put links: expected 200, got %d", put.Code)
	}

	get := doJSON(t, f.router, http.MethodGet, "/api/links", nil)
	if get.Code != http.StatusOK {
		t.Fatalf("get links: expected 200, got %d", get.Code)
	}

	var resp struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(get.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0] != "https://youtu.be/dQw4w9WgXcQ" {
		t.Errorf("unexpected links %v", resp.Data)
	}
}

func TestGetDownloadsEmpty(t *testing.T) {
	f := newFixture(t)

	rec := doJSON(t, f.router, http.MethodGet, "/api/downloads", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestProgressStreamsEvents(t *testing.T) {
	f := newFixture(t)

	server := httptest.NewServer(f.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/progress", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event-stream content type, got %q", ct)
	}

	f.bus.Publish(entity.ProgressEvent{
		VideoID: "dQw4w9WgXcQ",
		Status:  entity.EventDownloading,
		Percent: ptr.Of(42.0),
	})

	reader := bufio.NewReader(resp.Body)

	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if !strings.HasPrefix(line, "data: ") {
		t.Fatalf("expected SSE data line, got %q", line)
	}

	var event entity.ProgressEvent
	if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.VideoID != "dQw4w9WgXcQ" || event.Status != entity.EventDownloading {
		t.Errorf("unexpected event %+v", event)
	}
	if ptr.Deref(event.Percent) != 42.0 {
		t.Errorf("unexpected percent %v", event.Percent)
	}
}
