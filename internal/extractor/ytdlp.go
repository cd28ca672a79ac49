package extractor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"reelgrab/internal/config"
	"reelgrab/internal/consts"
	"reelgrab/internal/depmanager"
	"reelgrab/internal/entity"
	"reelgrab/internal/errs"
	"reelgrab/internal/observability"
	"reelgrab/internal/proxymgr"
	"reelgrab/pkg/calc"
	"reelgrab/pkg/maths"

	"github.com/lrstanley/go-ytdlp"
)

const (
	defaultProgressFreq = 200 * time.Millisecond
	fullProgress        = 100

	// outputTemplate keys downloaded files by item id inside the work dir.
	outputTemplate = "%(id)s.%(ext)s"

	// changing this may break parseStdout().
	defaultPrintAfterMove = "after_move:filepath"
)

var (
	maxJSONSize = 10 * 1024 * 1024                                       // 10 MiB scanner buffer
	bufSize     = 4096                                                   // 4 KiB buffer size
	reFilepath  = regexp.MustCompile(`(?i)^[^\{\[\n].*\.[a-z0-9]{1,6}$`) // file path
)

// YTdlp is the yt-dlp backed extractor.
type YTdlp struct {
	log      *slog.Logger
	cfg      *config.Config
	depMgr   *depmanager.Manager
	proxyMgr *proxymgr.Manager
	metrics  *observability.Metrics
}

// NewYTdlp creates a yt-dlp extractor instance. proxyMgr may be nil when no
// proxies are configured.
func NewYTdlp(log *slog.Logger, cfg *config.Config, depMgr *depmanager.Manager,
	proxyMgr *proxymgr.Manager, metrics *observability.Metrics,
) Extractor {
	return &YTdlp{
		log:      log.With(slog.String("package", "extractor"), slog.String("extractor", consts.ExtractorYTdlp)),
		cfg:      cfg,
		depMgr:   depMgr,
		proxyMgr: proxyMgr,
		metrics:  metrics,
	}
}

// Extract downloads the media behind url into workDir and composes the
// extraction result. Zero produced entries is a failure, not empty success.
func (e *YTdlp) Extract(ctx context.Context, url string, platform entity.Platform,
	workDir string, progress ProgressFunc,
) (*entity.ExtractionResult, error) {
	log := e.log.With(slog.String("platform", string(platform)))

	command := e.buildCommand(ctx, url, platform, workDir, progress)

	res, err := command.Run(ctx, url)
	if err != nil {
		log.ErrorContext(ctx, "ytdlp run", slog.Any("error", err), slog.Any("result", Result{res}))
		e.metrics.ExtractionTotal.WithLabelValues(string(platform), "error").Inc()

		return nil, fmt.Errorf("%w: ytdlp run: %w", errs.ErrExtractionFailed, err)
	}

	result, err := composeResult(res.Stdout)
	if err != nil {
		e.metrics.ExtractionTotal.WithLabelValues(string(platform), "error").Inc()

		return nil, err
	}

	if progress != nil {
		progress(fullProgress)
	}

	e.metrics.ExtractionTotal.WithLabelValues(string(platform), "ok").Inc()

	log.InfoContext(ctx, "extraction done", "result", *result)

	return result, nil
}

// buildCommand assembles the yt-dlp invocation with the per-call resilience
// parameters: format ceiling, retry counts, user agent, and the explicit
// cert-check and geo bypass flags.
func (e *YTdlp) buildCommand(ctx context.Context, url string, platform entity.Platform,
	workDir string, progress ProgressFunc,
) *ytdlp.Command {
	log := e.log

	progressFn := func(prog ytdlp.ProgressUpdate) {
		log.DebugContext(ctx, "ytdlp progress", "progress_update", ProgressUpdate{&prog})

		if progress != nil {
			progress(calc.Progress(prog.DownloadedBytes, prog.TotalBytes))
		}
	}

	command := ytdlp.New().
		CacheDir(e.cfg.Dir.Cache).
		Format(e.formatSelector()).
		MergeOutputFormat("mp4").
		NoPlaylist().
		Retries(strconv.Itoa(e.cfg.Extract.Retries)).
		FragmentRetries(strconv.Itoa(e.cfg.Extract.Retries)).
		UserAgent(e.cfg.Extract.UserAgent).
		Referer(url).
		ProgressFunc(defaultProgressFreq, progressFn).
		PrintJSON().Print(defaultPrintAfterMove).
		Output(filepath.Join(workDir, outputTemplate))

	if binPath := e.depMgr.GetInstalledPath(depmanager.BinaryYTdlp); binPath != "" {
		command = command.SetExecutable(binPath)
	}

	if e.cfg.Extract.NoCheckCertificates {
		command = command.NoCheckCertificates()
	}

	if e.cfg.Extract.GeoBypass {
		command = command.GeoBypass()
	}

	// Instagram requires an authenticated session.
	if platform == entity.PlatformInstagram && e.cfg.Dir.CookieFile != "" {
		command = command.Cookies(e.cfg.Dir.CookieFile)
	}

	if e.proxyMgr != nil && e.proxyMgr.Count() > 0 {
		proxyURL, err := e.proxyMgr.GetProxy(ctx)
		if err != nil {
			log.WarnContext(ctx, "failed to get healthy proxy", slog.Any("error", err))
		} else if proxyURL != "" {
			log.InfoContext(ctx, "using proxy for extraction", slog.String("proxy", proxyURL))
			command = command.Proxy(proxyURL)
		}
	}

	return command
}

// formatSelector builds the format fallback chain: best combined progressive
// MP4 within the geometry ceiling, else best video+audio pair within the
// ceiling, else whatever is available.
func (e *YTdlp) formatSelector() string {
	w, h := e.cfg.Extract.MaxWidth, e.cfg.Extract.MaxHeight

	return fmt.Sprintf(
		"bestvideo[ext=mp4][height<=%d][width<=%d][vcodec!*=none]+bestaudio[ext=m4a]"+
			"/best[ext=mp4][height<=%d][width<=%d][vcodec!*=none]/best",
		h, w, h, w)
}

// composeResult turns yt-dlp stdout into an ExtractionResult, dropping items
// whose downloaded file is missing or empty.
func composeResult(stdout string) (*entity.ExtractionResult, error) {
	items, err := parseStdout(stdout)
	if err != nil {
		return nil, fmt.Errorf("%w: parse stdout: %w", errs.ErrExtractionFailed, err)
	}

	result := &entity.ExtractionResult{}

	for _, item := range items {
		if item.Type == "playlist" {
			continue
		}

		if result.Caption == "" {
			if item.Description != "" {
				result.Caption = item.Description
			} else {
				result.Caption = item.Title
			}
		}

		if item.Filename == "" {
			continue
		}

		info, err := os.Stat(item.Filename)
		if err != nil || info.Size() == 0 {
			continue
		}

		result.Entries = append(result.Entries, entity.MediaEntry{
			LocalPath: item.Filename,
			MimeHint:  mimeHint(item.Ext),
			Title:     item.Title,
			Width:     item.Width,
			Height:    item.Height,
			Duration:  maths.RoundFloat64ToInt(item.Duration),
		})
	}

	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("%w: %w", errs.ErrExtractionFailed, errs.ErrNoEntries)
	}

	return result, nil
}

// parseStdout parses yt-dlp stdout: one JSON object per downloaded item
// (from --print-json) followed by a bare file path line (from the
// after_move:filepath print). The path is attached to the preceding item.
func parseStdout(stdout string) ([]resultJSON, error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, bufSize), maxJSONSize)

	var (
		itemNo int
		items  []resultJSON
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item resultJSON
		if err := json.Unmarshal([]byte(line), &item); err == nil {
			items = append(items, item)
			itemNo++

			continue
		}

		if reFilepath.MatchString(line) && itemNo > 0 {
			items[itemNo-1].Filename = line
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan stdout: %w", err)
	}

	return items, nil
}

func mimeHint(ext string) string {
	switch strings.ToLower(ext) {
	case "mp4", "m4v", "mov":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return ""
	}
}
