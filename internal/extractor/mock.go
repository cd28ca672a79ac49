package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"reelgrab/internal/consts"
	"reelgrab/internal/entity"
	"reelgrab/internal/errs"
)

// Mock is a scriptable extractor for tests. It writes EntryCount fake files
// into the work directory and returns them, or fails with Err.
type Mock struct {
	log *slog.Logger

	// EntryCount is the number of fake media files to produce.
	EntryCount int
	// Caption is returned verbatim, also when EntryCount is zero.
	Caption string
	// Err, when set, is returned instead of a result.
	Err error
	// SimulateTime delays the result to mimic a real download.
	SimulateTime time.Duration
}

// NewMock creates a mock extractor producing one entry and no caption.
func NewMock(log *slog.Logger) *Mock {
	return &Mock{
		log:          log.With(slog.String("package", "extractor"), slog.String("extractor", consts.ExtractorMock)),
		EntryCount:   1,
		SimulateTime: consts.DefaultSimulateTime,
	}
}

// Extract implements Extractor.
func (m *Mock) Extract(ctx context.Context, _ string, _ entity.Platform,
	workDir string, progress ProgressFunc,
) (*entity.ExtractionResult, error) {
	if m.SimulateTime > 0 {
		timer := time.NewTimer(m.SimulateTime)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", errs.ErrExtractionFailed, ctx.Err())
		case <-timer.C:
		}
	}

	if m.Err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrExtractionFailed, m.Err)
	}

	result := &entity.ExtractionResult{Caption: m.Caption}

	for i := range m.EntryCount {
		path := filepath.Join(workDir, fmt.Sprintf("entry%d.mp4", i))
		if err := os.WriteFile(path, []byte("mock media"), 0o600); err != nil {
			return nil, fmt.Errorf("%w: write mock file: %w", errs.ErrExtractionFailed, err)
		}

		result.Entries = append(result.Entries, entity.MediaEntry{
			LocalPath: path,
			MimeHint:  "video/mp4",
		})
	}

	if progress != nil {
		progress(fullProgress)
	}

	// Zero entries is returned as-is so tests can exercise the
	// coordinator's own empty-result guard.
	m.log.Debug("mock extraction done", "result", *result)

	return result, nil
}
