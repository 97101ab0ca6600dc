package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"youpy/internal/config"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := config.New()
	if err != nil {
		t.Fatalf("new config: %v", err)
	}

	if cfg.HTTP.Port != ":8080" {
		t.Errorf("expected default port :8080, got %q", cfg.HTTP.Port)
	}
	if cfg.App.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.App.LogLevel)
	}
	if cfg.Bus.SubscriberQueueSize != 64 {
		t.Errorf("expected default queue size 64, got %d", cfg.Bus.SubscriberQueueSize)
	}
	if cfg.Bus.KeepaliveInterval != 15*time.Second {
		t.Errorf("expected default keepalive 15s, got %v", cfg.Bus.KeepaliveInterval)
	}
	if cfg.Engine.ProgressInterval != 200*time.Millisecond {
		t.Errorf("expected default progress interval 200ms, got %v", cfg.Engine.ProgressInterval)
	}
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("YOUPY_HTTP_PORT", ":9090")
	t.Setenv("YOUPY_APP_LOG_LEVEL", "debug")
	t.Setenv("YOUPY_BUS_SUBSCRIBER_QUEUE_SIZE", "128")
	t.Setenv("YOUPY_BUS_KEEPALIVE_INTERVAL", "30s")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("new config: %v", err)
	}

	if cfg.HTTP.Port != ":9090" {
		t.Errorf("expected port :9090, got %q", cfg.HTTP.Port)
	}
	if cfg.App.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.App.LogLevel)
	}
	if cfg.Bus.SubscriberQueueSize != 128 {
		t.Errorf("expected queue size 128, got %d", cfg.Bus.SubscriberQueueSize)
	}
	if cfg.Bus.KeepaliveInterval != 30*time.Second {
		t.Errorf("expected keepalive 30s, got %v", cfg.Bus.KeepaliveInterval)
	}
}

func TestNewAbsolutePaths(t *testing.T) {
	t.Setenv("YOUPY_DIR_DOWNLOAD", "./data/downloads")
	t.Setenv("YOUPY_DIR_HISTORY_FILE", "./data/history.txt")
	t.Setenv("YOUPY_DIR_LINKS_FILE", "./video-links.txt")
	t.Setenv("YOUPY_INSTALLER_BINS_DIR", "./bins")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("new config: %v", err)
	}

	for name, path := range map[string]string{
		"downloads":    cfg.Dir.Downloads,
		"history file": cfg.Dir.HistoryFile,
		"links file":   cfg.Dir.LinksFile,
		"bins dir":     cfg.Installer.BinsDir,
	} {
		if !filepath.IsAbs(path) {
			t.Errorf("%s path %q is not absolute", name, path)
		}
	}
}

func TestProxyListParsing(t *testing.T) {
	t.Setenv("YOUPY_PROXY_LIST", "socks5h://127.0.0.1:1080, socks5h://127.0.0.1:1081")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("new config: %v", err)
	}

	if len(cfg.Proxy.URLs) != 2 {
		t.Fatalf("expected 2 proxies, got %d", len(cfg.Proxy.URLs))
	}
	if cfg.Proxy.URLs[1] != "socks5h://127.0.0.1:1081" {
		t.Errorf("unexpected second proxy %q", cfg.Proxy.URLs[1])
	}
}

func TestProxyListEmpty(t *testing.T) {
	cfg, err := config.New()
	if err != nil {
		t.Fatalf("new config: %v", err)
	}

	if len(cfg.Proxy.URLs) != 0 {
		t.Errorf("expected no proxies by default, got %v", cfg.Proxy.URLs)
	}
}
