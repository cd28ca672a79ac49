// Package proxymgr provides proxy management for extraction requests.
// It handles rotation, health checking, and failure tracking with backoff.
package proxymgr

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/url"
	"sync"
	"time"

	"reelgrab/internal/config"
	"reelgrab/internal/errs"
	"reelgrab/internal/observability"
)

// State represents the current state of a proxy.
type State int

const (
	// StateAvailable indicates the proxy is available for use.
	StateAvailable State = iota
	// StateFailed indicates the proxy has failed and is in backoff.
	StateFailed
)

const (
	// healthCheckTimeout is the timeout for proxy health checks.
	healthCheckTimeout = 10 * time.Second
	// maxBackoff caps the exponential failure backoff.
	maxBackoff = 1 * time.Hour
)

// proxyInfo holds information about a proxy.
type proxyInfo struct {
	URL           string
	State         State
	FailureCount  int
	LastFailure   time.Time
	BackoffUntil  time.Time
	LastHealthChk time.Time
}

// Manager manages proxy rotation and health.
type Manager struct {
	log     *slog.Logger
	cfg     *config.Config
	metrics *observability.Metrics

	mu      sync.Mutex
	proxies map[string]*proxyInfo
	order   []string // insertion order for consistent iteration
}

// New creates a proxy manager from the configured proxy list.
func New(log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) *Manager {
	mgr := &Manager{
		log:     log.With(slog.String("package", "proxymgr")),
		cfg:     cfg,
		metrics: metrics,
		proxies: make(map[string]*proxyInfo),
		order:   make([]string, 0, len(cfg.Proxy.Proxies)),
	}

	for _, proxy := range cfg.Proxy.Proxies {
		mgr.proxies[proxy] = &proxyInfo{
			URL:   proxy,
			State: StateAvailable,
		}
		mgr.order = append(mgr.order, proxy)
	}

	metrics.ProxiesAvailable.Set(float64(len(mgr.order)))

	return mgr
}

// GetProxy returns a random available proxy, or ErrNoProxiesAvailable.
func (m *Manager) GetProxy(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	available := m.getAvailableProxies()
	if len(available) == 0 {
		return "", errs.ErrNoProxiesAvailable
	}

	return available[rand.IntN(len(available))], nil
}

// Count returns the total number of configured proxies.
func (m *Manager) Count() int {
	return len(m.order)
}

// MarkFailed records a failure and puts the proxy into exponential backoff
// once it exceeds the configured failure ceiling.
func (m *Manager) MarkFailed(proxyURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, exists := m.proxies[proxyURL]
	if !exists {
		return
	}

	info.FailureCount++
	info.LastFailure = time.Now()
	m.metrics.ProxyFailures.WithLabelValues(proxyURL).Inc()

	if info.FailureCount >= m.cfg.Proxy.MaxFailures {
		info.State = StateFailed

		backoff := m.cfg.Proxy.FailureBackoff * time.Duration(1<<(info.FailureCount-m.cfg.Proxy.MaxFailures))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		info.BackoffUntil = time.Now().Add(backoff)

		m.log.Warn("proxy marked as failed",
			slog.String("proxy", proxyURL),
			slog.Int("failure_count", info.FailureCount),
			slog.Duration("backoff", backoff))
	}

	m.metrics.ProxiesAvailable.Set(float64(len(m.getAvailableProxies())))
}

// MarkSuccess resets a proxy's failure tracking.
func (m *Manager) MarkSuccess(proxyURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, exists := m.proxies[proxyURL]
	if !exists {
		return
	}

	info.State = StateAvailable
	info.FailureCount = 0
	info.BackoffUntil = time.Time{}

	m.metrics.ProxiesAvailable.Set(float64(len(m.getAvailableProxies())))
}

// HealthCheck dials the proxy endpoint over TCP. A failed dial marks the
// proxy failed; a successful one resets it.
func (m *Manager) HealthCheck(ctx context.Context, proxyURL string) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("parse proxy URL: %w", err)
	}

	dialer := &net.Dialer{
		Timeout: healthCheckTimeout,
	}

	conn, err := dialer.DialContext(ctx, "tcp", parsedURL.Host)
	if err != nil {
		m.MarkFailed(proxyURL)

		return fmt.Errorf("dial proxy: %w", err)
	}
	defer conn.Close()

	m.mu.Lock()

	if info, exists := m.proxies[proxyURL]; exists {
		info.LastHealthChk = time.Now()
	}

	m.mu.Unlock()

	m.MarkSuccess(proxyURL)

	return nil
}

// StartHealthChecker runs periodic health checks until ctx is done.
func (m *Manager) StartHealthChecker(ctx context.Context) {
	if m.cfg.Proxy.HealthCheckInterval <= 0 || len(m.proxies) == 0 {
		return
	}

	m.log.Info("proxy health checker started",
		slog.Duration("interval", m.cfg.Proxy.HealthCheckInterval),
		slog.Int("proxy_count", len(m.proxies)))

	ticker := time.NewTicker(m.cfg.Proxy.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAllProxies(ctx)
		}
	}
}

// getAvailableProxies returns proxies usable right now. Caller holds the lock.
func (m *Manager) getAvailableProxies() []string {
	now := time.Now()
	available := make([]string, 0, len(m.order))

	for _, proxyURL := range m.order {
		info := m.proxies[proxyURL]

		switch {
		case info.State == StateAvailable:
			available = append(available, proxyURL)
		case info.State == StateFailed && now.After(info.BackoffUntil):
			// Backoff expired, usable again.
			available = append(available, proxyURL)
		}
	}

	return available
}

func (m *Manager) checkAllProxies(ctx context.Context) {
	m.mu.Lock()
	proxies := make([]string, len(m.order))
	copy(proxies, m.order)
	m.mu.Unlock()

	for _, proxy := range proxies {
		select {
		case <-ctx.Done():
			return
		default:
			if err := m.HealthCheck(ctx, proxy); err != nil {
				m.log.Debug("proxy health check failed",
					slog.String("proxy", proxy),
					slog.Any("error", err))
			}
		}
	}
}
