// Package installer provisions the external engine binaries (yt-dlp,
// ffmpeg, ffprobe). It downloads them into a local bins directory on
// startup, or resolves system-installed ones when configured to. Remote
// checksums are used only to detect stale binaries, not to verify
// downloads.
package installer

import (
	"archive/tar"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"youpy/internal/config"
	"youpy/internal/errs"

	"github.com/ulikunitz/xz"
)

// BinaryName identifies an engine binary.
type BinaryName string

const (
	BinaryYTdlp   BinaryName = "yt-dlp"
	BinaryFFmpeg  BinaryName = "ffmpeg"
	BinaryFFprobe BinaryName = "ffprobe"
)

const (
	platformLinux   = "linux"
	platformWindows = "windows"
	archARM64       = "arm64"
)

const (
	downloadTimeout    = 10 * time.Minute
	filePermExecutable = 0o755
	filePermReadWrite  = 0o644
	sha256HexLength    = 64
	savedSumsFilename  = ".sha256sums.json"
)

// Installer downloads and resolves engine binaries.
type Installer struct {
	log    *slog.Logger
	cfg    *config.Config
	os     string
	arch   string
	client *http.Client

	mu        sync.RWMutex
	shaSums   map[string]string     // filename -> remote sha256
	savedSums map[string]string     // filename -> sha256 from the previous run
	binPaths  map[BinaryName]string // resolved install paths
}

func New(log *slog.Logger, cfg *config.Config) *Installer {
	return &Installer{
		log:       log.With(slog.String("package", "installer")),
		cfg:       cfg,
		os:        runtime.GOOS,
		arch:      runtime.GOARCH,
		client:    &http.Client{Timeout: downloadTimeout},
		shaSums:   make(map[string]string),
		savedSums: make(map[string]string),
		binPaths:  make(map[BinaryName]string),
	}
}

// Start provisions the binaries and prepends the bins directory to PATH so
// the engine library resolves them. It returns an error when no usable
// binaries can be provided.
func (ins *Installer) Start(ctx context.Context) error {
	if ins.cfg.Installer.UseSystemBinaries {
		if err := ins.resolveSystemBinaries(); err != nil {
			return err
		}

		ins.log.InfoContext(ctx, "using system binaries", slog.Any("binaries", ins.binPaths))

		return nil
	}

	if err := ins.InstallAll(ctx); err != nil {
		return err
	}

	// go-ytdlp shells out by name, so the bins directory must win the
	// PATH lookup.
	path := ins.cfg.Installer.BinsDir + string(os.PathListSeparator) + os.Getenv("PATH")
	if err := os.Setenv("PATH", path); err != nil {
		return fmt.Errorf("prepend bins dir to PATH: %w", err)
	}

	return nil
}

// resolveSystemBinaries looks the binaries up in the system PATH.
func (ins *Installer) resolveSystemBinaries() error {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	for _, binary := range []BinaryName{BinaryYTdlp, BinaryFFmpeg, BinaryFFprobe} {
		path, err := exec.LookPath(string(binary))
		if err != nil {
			return fmt.Errorf("%w: %s not in system PATH", errs.ErrBinaryNotFound, binary)
		}

		ins.binPaths[binary] = path
	}

	return nil
}

// InstallAll downloads the binaries that are missing or stale. Stale means
// the remote checksum differs from the one saved on the previous run;
// checksum fetch failures degrade to keeping whatever is on disk.
func (ins *Installer) InstallAll(ctx context.Context) error {
	if err := os.MkdirAll(ins.cfg.Installer.BinsDir, filePermExecutable); err != nil {
		return fmt.Errorf("create bins directory: %w", err)
	}

	if err := ins.loadSavedSums(); err != nil {
		ins.log.DebugContext(ctx, "no saved checksums, first run", slog.Any("error", err))
	}

	if err := ins.fetchSHASums(ctx); err != nil {
		ins.log.WarnContext(ctx, "failed to fetch checksums, skipping staleness check",
			slog.Any("error", err))
	}

	for _, binary := range []BinaryName{BinaryFFmpeg, BinaryYTdlp} {
		if ins.binaryExists(binary) && !ins.isStale(binary) {
			ins.setBinaryPath(binary)
			ins.log.DebugContext(ctx, "binary up to date", slog.String("binary", string(binary)))

			continue
		}

		if err := ins.downloadAndInstall(ctx, binary); err != nil {
			return fmt.Errorf("install %s: %w", binary, err)
		}
	}

	if err := ins.saveSums(); err != nil {
		ins.log.WarnContext(ctx, "failed to save checksums", slog.Any("error", err))
	}

	ins.log.InfoContext(ctx, "binaries installed", slog.Any("binaries", ins.binPaths))

	return nil
}

// BinaryPath returns the expected on-disk path for a binary.
func (ins *Installer) BinaryPath(name BinaryName) string {
	filename := string(name)
	if ins.os == platformWindows {
		filename += ".exe"
	}

	return filepath.Join(ins.cfg.Installer.BinsDir, filename)
}

// InstalledPath returns the resolved path for a binary, or empty when it
// was not provisioned.
func (ins *Installer) InstalledPath(name BinaryName) string {
	ins.mu.RLock()
	defer ins.mu.RUnlock()

	return ins.binPaths[name]
}

func (ins *Installer) binaryExists(name BinaryName) bool {
	info, err := os.Stat(ins.BinaryPath(name))

	return err == nil && info.Size() > 0
}

// isStale reports whether the remote checksum for a binary differs from
// the saved one. Unknown checksums are never stale.
func (ins *Installer) isStale(name BinaryName) bool {
	ins.mu.RLock()
	defer ins.mu.RUnlock()

	filename := ins.downloadFilename(name)

	newHash, hasNew := ins.shaSums[filename]
	oldHash, hasOld := ins.savedSums[filename]

	return hasNew && hasOld && newHash != oldHash
}

func (ins *Installer) setBinaryPath(name BinaryName) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	ins.binPaths[name] = ins.BinaryPath(name)
}

func (ins *Installer) downloadAndInstall(ctx context.Context, name BinaryName) error {
	log := ins.log.With(slog.String("binary", string(name)))

	url := ins.binaryURL(name)
	if url == "" {
		return fmt.Errorf("%w: no download URL for %s on %s/%s",
			errs.ErrUnsupportedPlatform, name, ins.os, ins.arch)
	}

	log.InfoContext(ctx, "downloading binary", slog.String("url", url))

	paths, err := ins.download(ctx, url, name)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	for _, path := range paths {
		if err := os.Chmod(path, filePermExecutable); err != nil {
			return fmt.Errorf("chmod: %w", err)
		}

		ins.setBinaryPath(BinaryName(filepath.Base(path)))
	}

	log.InfoContext(ctx, "binary installed", slog.Any("paths", paths))

	return nil
}

// download fetches the URL into a temp file and installs either the raw
// binary or the target files extracted from a tar.xz archive. Returns the
// installed paths.
func (ins *Installer) download(ctx context.Context, url string, name BinaryName) ([]string, error) {
	binPath := ins.BinaryPath(name)
	destDir := filepath.Dir(binPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := ins.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp(destDir, "download-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmpFile.Name()

	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	if !strings.HasSuffix(url, ".tar.xz") {
		if err := os.Rename(tmpPath, binPath); err != nil {
			return nil, fmt.Errorf("rename: %w", err)
		}

		return []string{binPath}, nil
	}

	targets := ins.filesNeeded(name)
	if err := ins.extractTarXZ(tmpPath, destDir, targets); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	paths := make([]string, 0, len(targets))
	for target := range targets {
		paths = append(paths, filepath.Join(destDir, target))
	}

	return paths, nil
}

// filesNeeded returns the files to pull out of an archive for a binary.
func (ins *Installer) filesNeeded(name BinaryName) map[string]struct{} {
	if name == BinaryFFmpeg {
		return map[string]struct{}{"ffmpeg": {}, "ffprobe": {}}
	}

	return map[string]struct{}{string(name): {}}
}

func (ins *Installer) extractTarXZ(archivePath, destDir string, targets map[string]struct{}) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open tar.xz: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("create xz reader: %w", err)
	}

	tarReader := tar.NewReader(xzReader)
	extracted := 0

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		filename := filepath.Base(header.Name)
		if _, ok := targets[filename]; !ok {
			continue
		}

		destPath := filepath.Join(destDir, filename)

		outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermExecutable)
		if err != nil {
			return fmt.Errorf("create dest file: %w", err)
		}

		_, err = io.Copy(outFile, tarReader)
		outFile.Close()

		if err != nil {
			return fmt.Errorf("extract file: %w", err)
		}

		extracted++

		if extracted == len(targets) {
			return nil
		}
	}

	if extracted == 0 {
		return fmt.Errorf("no target files found in archive")
	}

	return nil
}

// fetchSHASums pulls the remote checksum list for yt-dlp.
func (ins *Installer) fetchSHASums(ctx context.Context) error {
	url := strings.TrimSpace(ins.cfg.Installer.YTdlpSHA256SumsURL)
	if url == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := ins.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch checksums: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	ins.ParseSHASums(string(body))

	return nil
}

// ParseSHASums parses "hash  filename" lines, skipping anything malformed.
func (ins *Installer) ParseSHASums(content string) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	for line := range strings.SplitSeq(content, "\n") {
		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) != 2 || len(parts[0]) != sha256HexLength {
			continue
		}

		ins.shaSums[parts[1]] = parts[0]
	}

	ins.log.Debug("parsed checksums", slog.Int("count", len(ins.shaSums)))
}

// downloadFilename returns a binary's filename as it appears in the
// published checksum list.
func (ins *Installer) downloadFilename(name BinaryName) string {
	if name == BinaryYTdlp {
		switch {
		case ins.os == platformLinux && ins.arch == archARM64:
			return "yt-dlp_linux_aarch64"
		case ins.os == platformLinux:
			return "yt-dlp_linux"
		}
	}

	return string(name)
}

func (ins *Installer) binaryURL(name BinaryName) string {
	cfg := ins.cfg.Installer

	switch name {
	case BinaryYTdlp:
		return ins.selectURL(cfg.YTdlpLinuxARM64, cfg.YTdlpLinuxAMD64)
	case BinaryFFmpeg, BinaryFFprobe:
		return ins.selectURL(cfg.FFmpegLinuxARM64, cfg.FFmpegLinuxAMD64)
	}

	return ""
}

func (ins *Installer) selectURL(linuxARM64, linuxAMD64 string) string {
	if ins.os == platformLinux && ins.arch == archARM64 && linuxARM64 != "" {
		return linuxARM64
	}

	return linuxAMD64
}

func (ins *Installer) loadSavedSums() error {
	data, err := os.ReadFile(filepath.Join(ins.cfg.Installer.BinsDir, savedSumsFilename))
	if err != nil {
		return fmt.Errorf("read checksums file: %w", err)
	}

	ins.mu.Lock()
	defer ins.mu.Unlock()

	if err := json.Unmarshal(data, &ins.savedSums); err != nil {
		return fmt.Errorf("unmarshal checksums: %w", err)
	}

	return nil
}

func (ins *Installer) saveSums() error {
	ins.mu.RLock()
	count := len(ins.shaSums)
	data, err := json.MarshalIndent(ins.shaSums, "", "  ")
	ins.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("marshal checksums: %w", err)
	}

	if count == 0 {
		return nil
	}

	path := filepath.Join(ins.cfg.Installer.BinsDir, savedSumsFilename)
	if err := os.WriteFile(path, data, filePermReadWrite); err != nil {
		return fmt.Errorf("write checksums file: %w", err)
	}

	ins.mu.Lock()
	ins.savedSums = make(map[string]string)
	maps.Copy(ins.savedSums, ins.shaSums)
	ins.mu.Unlock()

	return nil
}
