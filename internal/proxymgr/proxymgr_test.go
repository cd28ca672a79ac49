package proxymgr

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"reelgrab/internal/config"
	"reelgrab/internal/errs"
	"reelgrab/internal/observability"
)

// metrics registers against the default registry; one instance per test binary.
var testMetrics = observability.New()

func testManager(proxies ...string) *Manager {
	cfg := &config.Config{
		Proxy: config.Proxy{
			FailureBackoff: time.Minute,
			MaxFailures:    3,
			Proxies:        proxies,
		},
	}

	return New(slog.New(slog.DiscardHandler), cfg, testMetrics)
}

func TestGetProxyEmpty(t *testing.T) {
	mgr := testManager()

	_, err := mgr.GetProxy(t.Context())
	if !errors.Is(err, errs.ErrNoProxiesAvailable) {
		t.Errorf("err = %v, want ErrNoProxiesAvailable", err)
	}
}

func TestGetProxyReturnsConfigured(t *testing.T) {
	mgr := testManager("socks5h://127.0.0.1:1080")

	proxy, err := mgr.GetProxy(t.Context())
	if err != nil {
		t.Fatalf("GetProxy: %v", err)
	}

	if proxy != "socks5h://127.0.0.1:1080" {
		t.Errorf("proxy = %q", proxy)
	}
}

func TestMarkFailedRemovesAfterMaxFailures(t *testing.T) {
	const proxy = "socks5h://127.0.0.1:1080"

	mgr := testManager(proxy)

	// Below the ceiling the proxy stays available.
	mgr.MarkFailed(proxy)
	mgr.MarkFailed(proxy)

	if _, err := mgr.GetProxy(t.Context()); err != nil {
		t.Fatalf("proxy unavailable before ceiling: %v", err)
	}

	mgr.MarkFailed(proxy)

	if _, err := mgr.GetProxy(t.Context()); !errors.Is(err, errs.ErrNoProxiesAvailable) {
		t.Errorf("err = %v, want ErrNoProxiesAvailable after ceiling", err)
	}
}

func TestMarkSuccessResets(t *testing.T) {
	const proxy = "socks5h://127.0.0.1:1080"

	mgr := testManager(proxy)

	for range 3 {
		mgr.MarkFailed(proxy)
	}

	mgr.MarkSuccess(proxy)

	if _, err := mgr.GetProxy(t.Context()); err != nil {
		t.Errorf("proxy unavailable after MarkSuccess: %v", err)
	}
}

func TestMarkFailedUnknownProxyIsNoop(t *testing.T) {
	mgr := testManager("socks5h://127.0.0.1:1080")

	mgr.MarkFailed("socks5h://10.0.0.1:9999")

	if _, err := mgr.GetProxy(t.Context()); err != nil {
		t.Errorf("configured proxy affected by unknown proxy failure: %v", err)
	}
}

func TestCount(t *testing.T) {
	mgr := testManager("a://1", "b://2")

	if got := mgr.Count(); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}
