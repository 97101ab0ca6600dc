package installer

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"youpy/internal/config"
)

func newTestInstaller(t *testing.T) *Installer {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg := &config.Config{}
	cfg.Installer.BinsDir = t.TempDir()

	return New(log, cfg)
}

func TestParseSHASums(t *testing.T) {
	ins := newTestInstaller(t)

	content := strings.Join([]string{
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef  yt-dlp_linux",
		"fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210  yt-dlp_linux_aarch64",
		"",
		"not-a-valid-line",
		"tooshort  yt-dlp",
	}, "\n")

	ins.ParseSHASums(content)

	if len(ins.shaSums) != 2 {
		t.Fatalf("expected 2 parsed sums, got %d", len(ins.shaSums))
	}

	want := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	if got := ins.shaSums["yt-dlp_linux"]; got != want {
		t.Errorf("yt-dlp_linux sum: expected %q, got %q", want, got)
	}
}

func TestBinaryPath(t *testing.T) {
	ins := newTestInstaller(t)

	got := ins.BinaryPath(BinaryYTdlp)
	want := filepath.Join(ins.cfg.Installer.BinsDir, "yt-dlp")

	if runtime.GOOS == platformWindows {
		want += ".exe"
	}

	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDownloadRawBinary(t *testing.T) {
	ins := newTestInstaller(t)

	payload := []byte("#!/bin/sh\nexit 0\n")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	paths, err := ins.download(t.Context(), server.URL+"/yt-dlp_linux", BinaryYTdlp)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 installed path, got %d", len(paths))
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read installed binary: %v", err)
	}
	if string(data) != string(payload) {
		t.Error("installed binary does not match served payload")
	}
}

func TestDownloadServerError(t *testing.T) {
	ins := newTestInstaller(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := ins.download(t.Context(), server.URL+"/yt-dlp_linux", BinaryYTdlp); err == nil {
		t.Fatal("expected error on server failure")
	}
}

func TestBinaryExists(t *testing.T) {
	ins := newTestInstaller(t)

	if ins.binaryExists(BinaryYTdlp) {
		t.Error("missing binary reported as existing")
	}

	if err := os.WriteFile(ins.BinaryPath(BinaryYTdlp), []byte("bin"), 0o755); err != nil {
		t.Fatalf("seed binary: %v", err)
	}

	if !ins.binaryExists(BinaryYTdlp) {
		t.Error("existing binary reported as missing")
	}
}

func TestBinaryExistsEmptyFile(t *testing.T) {
	ins := newTestInstaller(t)

	if err := os.WriteFile(ins.BinaryPath(BinaryYTdlp), nil, 0o755); err != nil {
		t.Fatalf("seed binary: %v", err)
	}

	if ins.binaryExists(BinaryYTdlp) {
		t.Error("zero-size binary reported as existing")
	}
}

func TestIsStale(t *testing.T) {
	ins := newTestInstaller(t)
	filename := ins.downloadFilename(BinaryYTdlp)

	// No checksums at all: not stale.
	if ins.isStale(BinaryYTdlp) {
		t.Error("stale without any checksums")
	}

	// Remote known, no saved baseline: not stale (first run).
	ins.shaSums[filename] = "aaa"
	if ins.isStale(BinaryYTdlp) {
		t.Error("stale without a saved baseline")
	}

	// Matching sums: not stale.
	ins.savedSums[filename] = "aaa"
	if ins.isStale(BinaryYTdlp) {
		t.Error("stale with matching checksums")
	}

	// Diverged sums: stale.
	ins.shaSums[filename] = "bbb"
	if !ins.isStale(BinaryYTdlp) {
		t.Error("not stale with diverged checksums")
	}
}

func TestSaveAndLoadSums(t *testing.T) {
	ins := newTestInstaller(t)

	ins.shaSums["yt-dlp_linux"] = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

	if err := ins.saveSums(); err != nil {
		t.Fatalf("save sums: %v", err)
	}

	fresh := New(ins.log, ins.cfg)
	if err := fresh.loadSavedSums(); err != nil {
		t.Fatalf("load sums: %v", err)
	}

	if fresh.savedSums["yt-dlp_linux"] != ins.shaSums["yt-dlp_linux"] {
		t.Error("loaded sums do not match saved sums")
	}
}

func TestSelectURL(t *testing.T) {
	tests := []struct {
		name string
		os   string
		arch string
		want string
	}{
		{name: "linux arm64 picks arm64", os: "linux", arch: "arm64", want: "arm64-url"},
		{name: "linux amd64 picks amd64", os: "linux", arch: "amd64", want: "amd64-url"},
		{name: "other platform falls back to amd64", os: "darwin", arch: "arm64", want: "amd64-url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := newTestInstaller(t)
			ins.os = tt.os
			ins.arch = tt.arch

			if got := ins.selectURL("arm64-url", "amd64-url"); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		name   string
		os     string
		arch   string
		binary BinaryName
		want   string
	}{
		{name: "ytdlp linux amd64", os: "linux", arch: "amd64", binary: BinaryYTdlp, want: "yt-dlp_linux"},
		{name: "ytdlp linux arm64", os: "linux", arch: "arm64", binary: BinaryYTdlp, want: "yt-dlp_linux_aarch64"},
		{name: "ytdlp darwin", os: "darwin", arch: "arm64", binary: BinaryYTdlp, want: "yt-dlp"},
		{name: "ffmpeg", os: "linux", arch: "amd64", binary: BinaryFFmpeg, want: "ffmpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := newTestInstaller(t)
			ins.os = tt.os
			ins.arch = tt.arch

			if got := ins.downloadFilename(tt.binary); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFilesNeeded(t *testing.T) {
	ins := newTestInstaller(t)

	ffmpeg := ins.filesNeeded(BinaryFFmpeg)
	if _, ok := ffmpeg["ffmpeg"]; !ok {
		t.Error("ffmpeg archive must provide ffmpeg")
	}
	if _, ok := ffmpeg["ffprobe"]; !ok {
		t.Error("ffmpeg archive must provide ffprobe")
	}

	ytdlp := ins.filesNeeded(BinaryYTdlp)
	if len(ytdlp) != 1 {
		t.Errorf("expected a single target for yt-dlp, got %d", len(ytdlp))
	}
}
