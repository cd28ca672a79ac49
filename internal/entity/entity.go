// Package entity defines the core entities used in the application.
package entity

import (
	"log/slog"
	"time"
)

// Platform identifies a supported content source.
type Platform string

// Supported platforms. PlatformUnrecognized is a normal outcome, not an error.
const (
	PlatformInstagram    Platform = "instagram"
	PlatformTikTok       Platform = "tiktok"
	PlatformPinterest    Platform = "pinterest"
	PlatformUnrecognized Platform = ""
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	// TaskStatusAwaitingDownload indicates the task is accepted and the pipeline is running.
	TaskStatusAwaitingDownload TaskStatus = "awaiting_download"
	// TaskStatusDelivering indicates media is being sent to the user.
	TaskStatusDelivering TaskStatus = "delivering"
	// TaskStatusDone indicates the task finished and everything was delivered.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusFailed indicates the task ended on the failure path.
	TaskStatusFailed TaskStatus = "failed"
)

// Task is the ephemeral unit of work for one accepted URL submission.
// The coordinator owns it, including WorkDir, for its whole lifetime.
type Task struct {
	ID        int64      `json:"id"` // time-derived, display only
	UserKey   int64      `json:"userKey"`
	URL       string     `json:"url"`
	Platform  Platform   `json:"platform"`
	Status    TaskStatus `json:"status"`
	WorkDir   string     `json:"-"`
	Caption   string     `json:"caption,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// LogValue implements slog.LogValuer for structured logging.
func (t Task) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("id", t.ID),
		slog.Int64("user_key", t.UserKey),
		slog.String("url", t.URL),
		slog.String("platform", string(t.Platform)),
		slog.String("status", string(t.Status)),
		slog.String("work_dir", t.WorkDir),
	)
}

// MediaEntry is one downloaded file within an extraction result.
type MediaEntry struct {
	LocalPath string `json:"localPath"`
	MimeHint  string `json:"mimeHint,omitempty"`
	Title     string `json:"title,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	Duration  int    `json:"duration,omitempty"` // seconds
}

// LogValue implements slog.LogValuer for structured logging.
func (m MediaEntry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("local_path", m.LocalPath),
		slog.String("mime_hint", m.MimeHint),
		slog.Int("width", m.Width),
		slog.Int("height", m.Height),
		slog.Int("duration", m.Duration),
	)
}

// ExtractionResult is the output of one extractor invocation: an ordered set
// of downloaded entries plus best-effort caption text. A result with zero
// entries is treated as a failure by the coordinator, never as empty success.
type ExtractionResult struct {
	Entries []MediaEntry `json:"entries"`
	Caption string       `json:"caption,omitempty"`
}

// LogValue implements slog.LogValuer for structured logging.
func (r ExtractionResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("entries", len(r.Entries)),
		slog.Int("caption_len", len(r.Caption)),
	)
}

// NormalizedMedia is the output of the normalizer for one entry: a canonical
// fast-start MP4 conforming to the target geometry. SizeBytes is always > 0;
// a zero-byte output is a failure, not a degraded success.
type NormalizedMedia struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
	Skipped   bool   `json:"skipped"` // input was already conformant
}

// LogValue implements slog.LogValuer for structured logging.
func (n NormalizedMedia) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", n.Path),
		slog.Int64("size_bytes", n.SizeBytes),
		slog.Bool("skipped", n.Skipped),
	)
}
