// Package workdir manages per-task scratch directories.
//
// Each task owns exactly one directory, created on acceptance and removed on
// every exit path. The sweeper is a safety net for directories orphaned by a
// crash: anything older than the TTL is deleted on the next sweep.
package workdir

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"reelgrab/internal/config"
	"reelgrab/internal/observability"
)

const dirPattern = "task-*"

// Manager creates and removes task work directories under one parent.
type Manager struct {
	log     *slog.Logger
	cfg     *config.Config
	metrics *observability.Metrics
}

// New creates the manager and ensures the parent directory exists.
func New(log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) (*Manager, error) {
	if err := os.MkdirAll(cfg.Dir.Work, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir parent: %w", err)
	}

	return &Manager{
		log:     log.With(slog.String("package", "workdir")),
		cfg:     cfg,
		metrics: metrics,
	}, nil
}

// Create allocates a fresh directory exclusively owned by one task.
func (m *Manager) Create() (string, error) {
	dir, err := os.MkdirTemp(m.cfg.Dir.Work, dirPattern)
	if err != nil {
		return "", fmt.Errorf("create task work dir: %w", err)
	}

	return dir, nil
}

// Remove deletes a task directory and everything inside it.
func (m *Manager) Remove(dir string) {
	if dir == "" {
		return
	}

	if err := os.RemoveAll(dir); err != nil {
		m.log.Error("failed to remove work dir", slog.String("dir", dir), slog.Any("error", err))

		return
	}

	m.log.Debug("work dir removed", slog.String("dir", dir))
}

// StartSweeper periodically removes orphaned task directories older than the
// configured TTL. Runs until ctx is done.
func (m *Manager) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Dir.SweepInterval)
	defer ticker.Stop()

	log := m.log.With(slog.String("action", "sweep"), slog.Duration("interval", m.cfg.Dir.SweepInterval))

	for {
		select {
		case <-ticker.C:
			m.sweep(ctx)
		case <-ctx.Done():
			log.Info("work dir sweeper stopped")

			return
		}
	}
}

func (m *Manager) sweep(ctx context.Context) {
	log := m.log

	entries, err := os.ReadDir(m.cfg.Dir.Work)
	if err != nil {
		log.ErrorContext(ctx, "failed to read work dir parent", slog.Any("error", err))

		return
	}

	cutoff := time.Now().Add(-m.cfg.Dir.WorkDirTTL)
	swept := 0

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		matched, err := filepath.Match(dirPattern, entry.Name())
		if err != nil || !matched {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		dir := filepath.Join(m.cfg.Dir.Work, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			log.ErrorContext(ctx, "failed to sweep orphaned dir",
				slog.String("dir", dir), slog.Any("error", err))

			continue
		}

		m.metrics.WorkDirsSwept.Inc()
		swept++
	}

	if swept > 0 {
		log.InfoContext(ctx, "orphaned work dirs swept", slog.Int("count", swept))
	}
}
