package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"reelgrab/internal/config"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := config.New()
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}

	if cfg.Task.Timeout != 10*time.Minute {
		t.Errorf("task timeout = %v, want 10m", cfg.Task.Timeout)
	}

	if cfg.Task.SendPacing != time.Second {
		t.Errorf("send pacing = %v, want 1s", cfg.Task.SendPacing)
	}

	if cfg.Extract.MaxWidth != 720 || cfg.Extract.MaxHeight != 1280 {
		t.Errorf("extract ceiling = %dx%d, want 720x1280", cfg.Extract.MaxWidth, cfg.Extract.MaxHeight)
	}

	if cfg.Extract.Retries != 5 {
		t.Errorf("retries = %d, want 5", cfg.Extract.Retries)
	}

	if !cfg.Extract.NoCheckCertificates || !cfg.Extract.GeoBypass {
		t.Error("cert-check and geo bypass must default on")
	}

	if cfg.Normalize.Preset != "fast" || cfg.Normalize.CRF != 23 || cfg.Normalize.AudioBitrate != "128k" {
		t.Errorf("normalize defaults = %+v", cfg.Normalize)
	}

	if cfg.HTTP.Port != ":8080" {
		t.Errorf("http port = %q, want :8080", cfg.HTTP.Port)
	}

	if !filepath.IsAbs(cfg.Dir.Work) {
		t.Errorf("work dir %q is not absolute", cfg.Dir.Work)
	}

	if !filepath.IsAbs(cfg.DepManager.BinsDir) {
		t.Errorf("bins dir %q is not absolute", cfg.DepManager.BinsDir)
	}

	if cfg.AI.APIKey != "" {
		t.Errorf("ai api key = %q, want empty by default", cfg.AI.APIKey)
	}
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("REELGRAB_BOT_TOKEN", "123:abc")
	t.Setenv("REELGRAB_BOT_OWNER_ID", "42")
	t.Setenv("REELGRAB_TASK_SEND_PACING", "250ms")
	t.Setenv("REELGRAB_EXTRACT_GEO_BYPASS", "false")
	t.Setenv("REELGRAB_NORMALIZE_CRF", "18")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}

	if cfg.Bot.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Bot.Token)
	}

	if cfg.Bot.OwnerID != 42 {
		t.Errorf("owner id = %d, want 42", cfg.Bot.OwnerID)
	}

	if cfg.Task.SendPacing != 250*time.Millisecond {
		t.Errorf("send pacing = %v, want 250ms", cfg.Task.SendPacing)
	}

	if cfg.Extract.GeoBypass {
		t.Error("geo bypass should be off")
	}

	if cfg.Normalize.CRF != 18 {
		t.Errorf("crf = %d, want 18", cfg.Normalize.CRF)
	}
}

func TestProxyListParsing(t *testing.T) {
	t.Setenv("REELGRAB_PROXY_LIST", "socks5h://127.0.0.1:1080, socks5h://127.0.0.1:1081,")

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("config.New: %v", err)
	}

	if len(cfg.Proxy.Proxies) != 2 {
		t.Fatalf("got %d proxies, want 2: %v", len(cfg.Proxy.Proxies), cfg.Proxy.Proxies)
	}

	if cfg.Proxy.Proxies[0] != "socks5h://127.0.0.1:1080" {
		t.Errorf("first proxy = %q", cfg.Proxy.Proxies[0])
	}
}
