// Package extractor wraps the external media-extraction capability.
//
// Given a URL and a platform tag it downloads the underlying media into the
// task's work directory and returns a generic result: one entry for a single
// video, several for an explicit carousel, plus best-effort caption text.
package extractor

import (
	"context"

	"reelgrab/internal/entity"
)

// ProgressFunc receives download progress as a 0-100 percentage.
type ProgressFunc func(percent int)

// Extractor defines the media extraction contract. Network errors, extractor
// exceptions, zero entries and missing/empty files all collapse into a single
// error the coordinator treats as terminal; no partial success is exposed.
type Extractor interface {
	Extract(ctx context.Context, url string, platform entity.Platform, workDir string, progress ProgressFunc) (*entity.ExtractionResult, error)
}
