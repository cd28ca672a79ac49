package normalizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"reelgrab/internal/entity"
	"reelgrab/internal/errs"
)

// Mock is a scriptable normalizer for tests. It copies the input to the
// normalized output path without transcoding.
type Mock struct {
	log *slog.Logger

	// Err, when set, fails every call.
	Err error
	// FailFor fails calls whose input base name is in the set.
	FailFor map[string]bool

	// Calls records input paths in invocation order.
	Calls []string
}

// NewMock creates a mock normalizer.
func NewMock(log *slog.Logger) *Mock {
	return &Mock{
		log:     log.With(slog.String("package", "normalizer"), slog.String("normalizer", "mock")),
		FailFor: map[string]bool{},
	}
}

// Normalize implements Normalizer.
func (m *Mock) Normalize(_ context.Context, inputPath string) (*entity.NormalizedMedia, error) {
	m.Calls = append(m.Calls, inputPath)

	if m.Err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrNormalizationFailed, m.Err)
	}

	if m.FailFor[filepath.Base(inputPath)] {
		return nil, fmt.Errorf("%w: scripted failure for %s", errs.ErrNormalizationFailed, inputPath)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrNormalizationFailed, err)
	}

	outputPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + outputSuffix
	if err := os.WriteFile(outputPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrNormalizationFailed, err)
	}

	return &entity.NormalizedMedia{Path: outputPath, SizeBytes: int64(len(data))}, nil
}
