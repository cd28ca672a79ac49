// Package normalizer wraps the external transcoding capability.
//
// Every delivered video conforms to a fixed geometry: scaled to fit within
// 720x1280 preserving aspect ratio, padded with black to exactly 720x1280,
// re-encoded (libx264 fast, CRF 23; AAC 128k) into a fast-start MP4.
package normalizer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"reelgrab/internal/config"
	"reelgrab/internal/consts"
	"reelgrab/internal/depmanager"
	"reelgrab/internal/entity"
	"reelgrab/internal/errs"
	"reelgrab/internal/observability"
	"reelgrab/pkg/shellquote"
)

const (
	outputSuffix = "_720x1280.mp4"

	outcomeOK      = "ok"
	outcomeSkipped = "skipped"
	outcomeError   = "error"
)

// Normalizer defines the transcoding contract for a single media entry.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath string) (*entity.NormalizedMedia, error)
}

// runFunc executes an external command and returns its combined output.
type runFunc func(ctx context.Context, bin string, args ...string) ([]byte, error)

// FFmpeg is the ffmpeg/ffprobe backed normalizer.
type FFmpeg struct {
	log     *slog.Logger
	cfg     *config.Config
	depMgr  *depmanager.Manager
	metrics *observability.Metrics

	run runFunc // replaced in tests
}

// New creates an ffmpeg normalizer.
func New(log *slog.Logger, cfg *config.Config, depMgr *depmanager.Manager,
	metrics *observability.Metrics,
) *FFmpeg {
	return &FFmpeg{
		log:     log.With(slog.String("package", "normalizer")),
		cfg:     cfg,
		depMgr:  depMgr,
		metrics: metrics,
		run:     runCommand,
	}
}

func runCommand(ctx context.Context, bin string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, bin, args...).CombinedOutput()
}

// Normalize transcodes inputPath into a conformant fast-start MP4. When the
// input already conforms, re-encoding is skipped and the input is returned
// as-is; the geometry contract holds either way.
func (f *FFmpeg) Normalize(ctx context.Context, inputPath string) (*entity.NormalizedMedia, error) {
	log := f.log

	if f.isConformant(ctx, inputPath) {
		info, err := os.Stat(inputPath)
		if err != nil || info.Size() == 0 {
			f.metrics.NormalizationTotal.WithLabelValues(outcomeError).Inc()

			return nil, fmt.Errorf("%w: %w", errs.ErrNormalizationFailed, errs.ErrEmptyOutput)
		}

		log.DebugContext(ctx, "input already conformant, skipping re-encode",
			slog.String("input", inputPath))
		f.metrics.NormalizationTotal.WithLabelValues(outcomeSkipped).Inc()

		return &entity.NormalizedMedia{Path: inputPath, SizeBytes: info.Size(), Skipped: true}, nil
	}

	outputPath := outputFor(inputPath)
	args := f.encodeArgs(inputPath, outputPath)

	log.DebugContext(ctx, "running ffmpeg",
		slog.String("cmd", shellquote.Join(f.ffmpegBin(), args)))

	out, err := f.run(ctx, f.ffmpegBin(), args...)
	if err != nil {
		log.ErrorContext(ctx, "ffmpeg failed",
			slog.Any("error", err),
			slog.String("output", tail(string(out))))
		f.metrics.NormalizationTotal.WithLabelValues(outcomeError).Inc()

		return nil, fmt.Errorf("%w: ffmpeg: %w", errs.ErrNormalizationFailed, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		f.metrics.NormalizationTotal.WithLabelValues(outcomeError).Inc()

		return nil, fmt.Errorf("%w: %w", errs.ErrNormalizationFailed, errs.ErrEmptyOutput)
	}

	f.metrics.NormalizationTotal.WithLabelValues(outcomeOK).Inc()

	return &entity.NormalizedMedia{Path: outputPath, SizeBytes: info.Size()}, nil
}

// encodeArgs builds the fixed filter chain: scale to fit, pad to exact
// geometry centered with black fill, re-encode, relocate the moov atom.
func (f *FFmpeg) encodeArgs(inputPath, outputPath string) []string {
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black",
		consts.TargetWidth, consts.TargetHeight, consts.TargetWidth, consts.TargetHeight)

	return []string{
		"-y", "-i", inputPath,
		"-vf", filter,
		"-c:v", "libx264", "-preset", f.cfg.Normalize.Preset, "-crf", strconv.Itoa(f.cfg.Normalize.CRF),
		"-c:a", "aac", "-b:a", f.cfg.Normalize.AudioBitrate,
		"-movflags", "+faststart",
		outputPath,
	}
}

// isConformant probes inputPath and reports whether it is already an MP4 at
// the exact target geometry. Probe failures count as non-conformant; the
// encode path then decides.
func (f *FFmpeg) isConformant(ctx context.Context, inputPath string) bool {
	if strings.ToLower(filepath.Ext(inputPath)) != ".mp4" {
		return false
	}

	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height",
		"-of", "json",
		inputPath,
	}

	out, err := f.run(ctx, f.ffprobeBin(), args...)
	if err != nil {
		f.log.DebugContext(ctx, "ffprobe failed", slog.Any("error", err))

		return false
	}

	probe, err := parseProbe(out)
	if err != nil {
		f.log.DebugContext(ctx, "ffprobe parse failed", slog.Any("error", err))

		return false
	}

	return probe.CodecName == "h264" &&
		probe.Width == consts.TargetWidth &&
		probe.Height == consts.TargetHeight
}

func (f *FFmpeg) ffmpegBin() string {
	if path := f.depMgr.GetInstalledPath(depmanager.BinaryFFmpeg); path != "" {
		return path
	}

	return string(depmanager.BinaryFFmpeg)
}

func (f *FFmpeg) ffprobeBin() string {
	if path := f.depMgr.GetInstalledPath(depmanager.BinaryFFprobe); path != "" {
		return path
	}

	return string(depmanager.BinaryFFprobe)
}

// outputFor derives the normalized output path next to the input.
func outputFor(inputPath string) string {
	ext := filepath.Ext(inputPath)

	return strings.TrimSuffix(inputPath, ext) + outputSuffix
}

const maxTailLen = 512

// tail returns the last part of subprocess output for error logs.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxTailLen {
		return s
	}

	return s[len(s)-maxTailLen:]
}
