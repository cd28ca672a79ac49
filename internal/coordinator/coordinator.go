// Package coordinator runs the lifecycle of one accepted URL submission:
// work dir allocation, status posting, extraction, normalization, paced
// delivery and failure recovery. Every run releases its user key and removes
// its work directory on every exit path.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reelgrab/internal/config"
	"reelgrab/internal/entity"
	"reelgrab/internal/errs"
	"reelgrab/internal/extractor"
	"reelgrab/internal/normalizer"
	"reelgrab/internal/observability"
	"reelgrab/internal/session"
	"reelgrab/internal/workdir"
)

// StatusHandle identifies a posted status message so later edits can target
// it. The zero value means no status message exists.
type StatusHandle struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the handle refers to no message.
func (h StatusHandle) IsZero() bool {
	return h.MessageID == 0
}

// StatusReporter posts and edits the single in-place status message of a run.
// Edit failures are the reporter's problem to swallow; the pipeline never
// stops because a status update failed.
type StatusReporter interface {
	Post(ctx context.Context, userKey int64, text string) (StatusHandle, error)
	Update(ctx context.Context, handle StatusHandle, text string)
}

// Delivery sends pipeline output to the user.
type Delivery interface {
	SendMedia(ctx context.Context, userKey int64, path string) error
	SendText(ctx context.Context, userKey int64, text string) error
	// SendClosing sends the final acknowledgment, with the promo keyboard
	// attached when one is configured.
	SendClosing(ctx context.Context, userKey int64, text string) error
}

// Transcriber recovers caption text from a media file when extraction
// produced none. Optional capability; nil disables it.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) (string, error)
}

// Coordinator drives task runs. One instance serves all users; each Run call
// handles exactly one task.
type Coordinator struct {
	log         *slog.Logger
	cfg         *config.Config
	sessions    *session.Store
	workDirs    *workdir.Manager
	extractor   extractor.Extractor
	normalizer  normalizer.Normalizer
	delivery    Delivery
	status      StatusReporter
	transcriber Transcriber
	metrics     *observability.Metrics
}

// New creates a coordinator. transcriber may be nil.
func New(
	log *slog.Logger,
	cfg *config.Config,
	sessions *session.Store,
	workDirs *workdir.Manager,
	ext extractor.Extractor,
	norm normalizer.Normalizer,
	delivery Delivery,
	status StatusReporter,
	transcriber Transcriber,
	metrics *observability.Metrics,
) *Coordinator {
	return &Coordinator{
		log:         log.With(slog.String("package", "coordinator")),
		cfg:         cfg,
		sessions:    sessions,
		workDirs:    workDirs,
		extractor:   ext,
		normalizer:  norm,
		delivery:    delivery,
		status:      status,
		transcriber: transcriber,
		metrics:     metrics,
	}
}

// Run executes the full pipeline for one accepted submission. The caller must
// have acquired the user key via session.TryBegin; Run releases it.
func (c *Coordinator) Run(ctx context.Context, userKey int64, url string, platform entity.Platform) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Task.Timeout)
	defer cancel()

	task := &entity.Task{
		ID:        time.Now().UnixMilli(),
		UserKey:   userKey,
		URL:       url,
		Platform:  platform,
		Status:    entity.TaskStatusAwaitingDownload,
		CreatedAt: time.Now(),
	}

	log := c.log.With(slog.Any("task", task))

	c.metrics.TasksStarted.Inc()
	c.metrics.TasksInFlight.Inc()

	started := time.Now()

	defer func() {
		c.metrics.TasksInFlight.Dec()
		c.metrics.TaskDuration.Observe(time.Since(started).Seconds())
		c.sessions.Finish(userKey)
		c.workDirs.Remove(task.WorkDir)
	}()

	log.InfoContext(ctx, "task started")

	workDir, err := c.workDirs.Create()
	if err != nil {
		c.fail(ctx, task, StatusHandle{}, fmt.Errorf("create work dir: %w", err))

		return
	}

	task.WorkDir = workDir

	handle := c.postStatus(ctx, task)

	result, err := c.extract(ctx, task, handle)
	if err != nil {
		c.fail(ctx, task, handle, err)

		return
	}

	if result.Caption != "" {
		task.Caption = result.Caption
		c.sessions.SetCaption(userKey, result.Caption)
	}

	normalized, err := c.normalizeAll(ctx, task, result.Entries)
	if err != nil {
		c.fail(ctx, task, handle, err)

		return
	}

	task.Status = entity.TaskStatusDelivering

	c.deliver(ctx, task, normalized)

	task.Status = entity.TaskStatusDone
	c.status.Update(ctx, handle, statusText(entity.TaskStatusDone, 0))
	c.metrics.TasksDone.Inc()

	log.InfoContext(ctx, "task done", slog.Int("entries", len(normalized)))
}

// postStatus posts the in-progress status message. A failed post is logged
// and the run continues without one.
func (c *Coordinator) postStatus(ctx context.Context, task *entity.Task) StatusHandle {
	handle, err := c.status.Post(ctx, task.UserKey, statusText(entity.TaskStatusAwaitingDownload, 0))
	if err != nil {
		c.log.WarnContext(ctx, "failed to post status message", slog.Any("error", err))

		return StatusHandle{}
	}

	return handle
}

// extract runs the extractor, feeding download progress into status edits.
// A result with zero entries is a failure, never an empty success.
func (c *Coordinator) extract(ctx context.Context, task *entity.Task, handle StatusHandle) (*entity.ExtractionResult, error) {
	lastPercent := -1

	progress := func(percent int) {
		if percent == lastPercent {
			return
		}

		lastPercent = percent
		c.status.Update(ctx, handle, statusText(entity.TaskStatusAwaitingDownload, percent))
	}

	result, err := c.extractor.Extract(ctx, task.URL, task.Platform, task.WorkDir, progress)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	if len(result.Entries) == 0 {
		// Caption without media is still a failure, but the caption is worth
		// keeping for the failure message.
		if result.Caption != "" {
			task.Caption = result.Caption
			c.sessions.SetCaption(task.UserKey, result.Caption)
		}

		return nil, fmt.Errorf("extract: %w: %w", errs.ErrExtractionFailed, errs.ErrNoEntries)
	}

	return result, nil
}

// normalizeAll normalizes every entry best-effort, preserving extraction
// order. Individual failures drop the entry; all entries failing fails the
// task.
func (c *Coordinator) normalizeAll(ctx context.Context, task *entity.Task, entries []entity.MediaEntry) ([]*entity.NormalizedMedia, error) {
	log := c.log.With(slog.Any("task", task))
	normalized := make([]*entity.NormalizedMedia, 0, len(entries))

	for _, entry := range entries {
		media, err := c.normalizer.Normalize(ctx, entry.LocalPath)
		if err != nil {
			log.WarnContext(ctx, "entry normalization failed, dropping entry",
				slog.Any("entry", entry), slog.Any("error", err))

			continue
		}

		normalized = append(normalized, media)
	}

	if len(normalized) == 0 {
		return nil, fmt.Errorf("normalize: %w: all %d entries failed", errs.ErrNormalizationFailed, len(entries))
	}

	return normalized, nil
}

// deliver sends all media entries in order with pacing between consecutive
// sends, then the caption, then the closing acknowledgment. Individual send
// failures are logged and skipped; delivery always runs to the end.
func (c *Coordinator) deliver(ctx context.Context, task *entity.Task, media []*entity.NormalizedMedia) {
	log := c.log.With(slog.Any("task", task))

	for i, item := range media {
		if i > 0 {
			c.pace(ctx)
		}

		if err := c.delivery.SendMedia(ctx, task.UserKey, item.Path); err != nil {
			c.metrics.DeliverySends.WithLabelValues("media", "error").Inc()
			log.WarnContext(ctx, "media send failed, skipping entry",
				slog.Any("media", item), slog.Any("error", err))

			continue
		}

		c.metrics.DeliverySends.WithLabelValues("media", "ok").Inc()
	}

	caption := c.captionFor(ctx, task, media)
	if caption != "" {
		if err := c.delivery.SendText(ctx, task.UserKey, caption); err != nil {
			c.metrics.DeliverySends.WithLabelValues("caption", "error").Inc()
			log.WarnContext(ctx, "caption send failed", slog.Any("error", err))
		} else {
			c.metrics.DeliverySends.WithLabelValues("caption", "ok").Inc()
		}
	}

	if err := c.delivery.SendClosing(ctx, task.UserKey, closingText()); err != nil {
		c.metrics.DeliverySends.WithLabelValues("closing", "error").Inc()
		log.WarnContext(ctx, "closing acknowledgment send failed", slog.Any("error", err))

		return
	}

	c.metrics.DeliverySends.WithLabelValues("closing", "ok").Inc()
}

// captionFor returns the task caption, falling back to transcription of the
// first delivered entry when enabled and no caption was extracted.
func (c *Coordinator) captionFor(ctx context.Context, task *entity.Task, media []*entity.NormalizedMedia) string {
	if task.Caption != "" {
		return task.Caption
	}

	if c.transcriber == nil || !c.cfg.AI.Transcribe || len(media) == 0 {
		return ""
	}

	text, err := c.transcriber.Transcribe(ctx, media[0].Path)
	if err != nil {
		c.log.WarnContext(ctx, "transcription failed", slog.Any("task", task), slog.Any("error", err))

		return ""
	}

	task.Caption = text
	c.sessions.SetCaption(task.UserKey, text)

	return text
}

// fail runs the failure path: terminal status edit, then a failure notice
// carrying the original URL and any salvaged caption. Cleanup happens in
// Run's defer regardless.
func (c *Coordinator) fail(ctx context.Context, task *entity.Task, handle StatusHandle, err error) {
	task.Status = entity.TaskStatusFailed
	c.metrics.TasksFailed.Inc()

	c.log.ErrorContext(ctx, "task failed", slog.Any("task", task), slog.Any("error", err))

	c.status.Update(ctx, handle, statusText(entity.TaskStatusFailed, 0))

	// Notifications run on a fresh context so a task timeout does not
	// suppress the user-visible failure notice.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	msg := failureText(task)
	if sendErr := c.delivery.SendText(notifyCtx, task.UserKey, msg); sendErr != nil {
		c.metrics.DeliverySends.WithLabelValues("failure", "error").Inc()
		c.log.ErrorContext(ctx, "failure notice send failed", slog.Any("error", sendErr))

		return
	}

	c.metrics.DeliverySends.WithLabelValues("failure", "ok").Inc()
}

// pace blocks for the configured send pacing delay, returning early when ctx
// is done.
func (c *Coordinator) pace(ctx context.Context) {
	if c.cfg.Task.SendPacing <= 0 {
		return
	}

	timer := time.NewTimer(c.cfg.Task.SendPacing)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
