// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	HTTP      HTTP
	App       App
	Bus       Bus
	Engine    Engine
	Dir       Dir
	Installer Installer
	Proxy     Proxy
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"YOUPY_APP_LOG_LEVEL" envDefault:"info"`
}

// Bus holds progress event bus configuration.
type Bus struct {
	SubscriberQueueSize int           `env:"YOUPY_BUS_SUBSCRIBER_QUEUE_SIZE" envDefault:"64"`
	KeepaliveInterval   time.Duration `env:"YOUPY_BUS_KEEPALIVE_INTERVAL"    envDefault:"15s"`
}

// Engine holds external extraction engine configuration.
type Engine struct {
	// ProgressInterval is how often the engine reports download progress.
	ProgressInterval time.Duration `env:"YOUPY_ENGINE_PROGRESS_INTERVAL" envDefault:"200ms"`
	// ProbeTimeout bounds metadata lookups; downloads themselves run to completion.
	ProbeTimeout time.Duration `env:"YOUPY_ENGINE_PROBE_TIMEOUT" envDefault:"1m"`
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Port            string        `env:"YOUPY_HTTP_PORT"             envDefault:":8080"`
	HandlerTimeout  time.Duration `env:"YOUPY_HTTP_HANDLER_TIMEOUT"  envDefault:"20s"`
	ShutdownTimeout time.Duration `env:"YOUPY_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Dir holds directory and file paths used by the application.
type Dir struct {
	Downloads string `env:"YOUPY_DIR_DOWNLOAD" envDefault:"./data/downloads"` // downloads stored here
	Cache     string `env:"YOUPY_DIR_CACHE"    envDefault:"./data/cache"`     // yt-dlp cache (meta, sigs)

	// HistoryFile is the line-delimited record of completed video ids.
	HistoryFile string `env:"YOUPY_DIR_HISTORY_FILE" envDefault:"./data/history.txt"`
	// LinksFile is the newline-delimited batch links list.
	LinksFile string `env:"YOUPY_DIR_LINKS_FILE" envDefault:"./video-links.txt"`

	// must contain cookies.txt file
	// see: https://github.com/yt-dlp/yt-dlp/wiki/FAQ#how-do-i-pass-cookies-to-yt-dlp
	CookieFile string `env:"YOUPY_DIR_COOKIE_FILE" envDefault:""`

	// see: https://github.com/yt-dlp/yt-dlp/blob/2025.09.05/README.md#output-template
	FilenameTemplate string `env:"YOUPY_DIR_FILENAME_TEMPLATE" envDefault:"%(title)s [%(id)s].%(ext)s"`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (c *Dir) SetAbsPaths() error {
	var err error
	if c.Downloads, err = filepath.Abs(c.Downloads); err != nil {
		return fmt.Errorf("downloads: %w", err)
	}

	if c.Cache, err = filepath.Abs(c.Cache); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if c.HistoryFile, err = filepath.Abs(c.HistoryFile); err != nil {
		return fmt.Errorf("history file: %w", err)
	}

	if c.LinksFile, err = filepath.Abs(c.LinksFile); err != nil {
		return fmt.Errorf("links file: %w", err)
	}

	if c.CookieFile != "" {
		if c.CookieFile, err = filepath.Abs(c.CookieFile); err != nil {
			return fmt.Errorf("cookie file: %w", err)
		}
	}

	if c.FilenameTemplate, err = filepath.Abs(filepath.Join(c.Downloads, c.FilenameTemplate)); err != nil {
		return fmt.Errorf("filename template: %w", err)
	}

	return nil
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.Installer.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set installer absolute paths: %w", err)
	}

	cfg.Proxy.parseList()

	return cfg, nil
}

// Installer holds binary dependency installation configuration.
type Installer struct {
	// BinsDir is the directory where engine binaries are stored.
	BinsDir string `env:"YOUPY_INSTALLER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries indicates whether to use system-installed binaries instead of downloading.
	UseSystemBinaries bool `env:"YOUPY_INSTALLER_USE_SYSTEM_BINARIES" envDefault:"false"`

	// yt-dlp binary URLs per platform.
	YTdlpSHA256SumsURL string `env:"YOUPY_INSTALLER_YTDLP_SHA256SUMS_URL" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/SHA2-256SUMS"`
	YTdlpLinuxARM64    string `env:"YOUPY_INSTALLER_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"`
	YTdlpLinuxAMD64    string `env:"YOUPY_INSTALLER_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`

	// ffmpeg binary URLs per platform.
	FFmpegLinuxARM64 string `env:"YOUPY_INSTALLER_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64 string `env:"YOUPY_INSTALLER_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (i *Installer) SetAbsPaths() error {
	var err error
	if i.BinsDir, err = filepath.Abs(i.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// Proxy holds proxy configuration for engine requests.
type Proxy struct {
	// List is a comma-separated list of proxy URLs in socks5h format
	List string `env:"YOUPY_PROXY_LIST" envDefault:""`

	// URLs is the parsed list of proxy URLs
	URLs []string `env:"-"`
}

// parseList parses the comma-separated proxy list.
func (p *Proxy) parseList() {
	if p.List == "" {
		return
	}

	for proxy := range strings.SplitSeq(p.List, ",") {
		proxy = strings.TrimSpace(proxy)
		if proxy != "" {
			p.URLs = append(p.URLs, proxy)
		}
	}
}
