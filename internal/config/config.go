// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"reelgrab/internal/consts"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	HTTP       HTTP
	App        App
	Bot        Bot
	Task       Task
	Extract    Extract
	Normalize  Normalize
	AI         AI
	Dir        Dir
	DepManager DepManager
	Proxy      Proxy
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"REELGRAB_APP_LOG_LEVEL" envDefault:"info"`
}

// Bot holds Telegram front-end configuration.
type Bot struct {
	Token string `env:"REELGRAB_BOT_TOKEN"`
	// OwnerID bypasses the subscription gate and may query admin stats.
	OwnerID int64 `env:"REELGRAB_BOT_OWNER_ID" envDefault:"0"`
	// ChannelUsername is the channel (with @) a user must be subscribed to.
	// Empty disables the subscription gate entirely.
	ChannelUsername string `env:"REELGRAB_BOT_CHANNEL_USERNAME" envDefault:""`
	ChannelURL      string `env:"REELGRAB_BOT_CHANNEL_URL"      envDefault:""`
	// PromoURL is attached to the closing acknowledgment keyboard.
	PromoURL string `env:"REELGRAB_BOT_PROMO_URL" envDefault:""`
	// WelcomeVideo is an optional pre-rendered 720x1280 clip sent with /start.
	WelcomeVideo string `env:"REELGRAB_BOT_WELCOME_VIDEO" envDefault:""`
	// PollTimeout is the long-poll timeout for getUpdates, in seconds.
	PollTimeout int `env:"REELGRAB_BOT_POLL_TIMEOUT" envDefault:"30"`
	Debug       bool `env:"REELGRAB_BOT_DEBUG" envDefault:"false"`
}

// Task holds pipeline configuration.
type Task struct {
	Timeout time.Duration `env:"REELGRAB_TASK_TIMEOUT"     envDefault:"10m"`
	// SendPacing is the delay between consecutive media sends of a carousel,
	// respecting downstream rate limits.
	SendPacing time.Duration `env:"REELGRAB_TASK_SEND_PACING" envDefault:"1s"`
}

// Extract holds yt-dlp invocation configuration.
type Extract struct {
	// MaxWidth and MaxHeight bound the requested format (vertical 720x1280 target).
	MaxWidth  int `env:"REELGRAB_EXTRACT_MAX_WIDTH"  envDefault:"720"`
	MaxHeight int `env:"REELGRAB_EXTRACT_MAX_HEIGHT" envDefault:"1280"`
	// Retries covers transient network and fragment errors.
	Retries   int    `env:"REELGRAB_EXTRACT_RETRIES"    envDefault:"5"`
	UserAgent string `env:"REELGRAB_EXTRACT_USER_AGENT" envDefault:"Mozilla/5.0"`

	// NoCheckCertificates and GeoBypass are deliberate trust trade-offs for
	// hostile or blocking network conditions. Explicit opt-in configuration,
	// never a hidden default inside the adapter.
	NoCheckCertificates bool `env:"REELGRAB_EXTRACT_NO_CHECK_CERTIFICATES" envDefault:"true"`
	GeoBypass           bool `env:"REELGRAB_EXTRACT_GEO_BYPASS"            envDefault:"true"`
}

// Normalize holds ffmpeg transcoding configuration.
type Normalize struct {
	Preset       string `env:"REELGRAB_NORMALIZE_PRESET"        envDefault:"fast"`
	CRF          int    `env:"REELGRAB_NORMALIZE_CRF"           envDefault:"23"`
	AudioBitrate string `env:"REELGRAB_NORMALIZE_AUDIO_BITRATE" envDefault:"128k"`
}

// AI holds optional language-model capability configuration.
// An empty APIKey disables both the rewriter and the transcriber.
type AI struct {
	APIKey string `env:"REELGRAB_AI_API_KEY" envDefault:""`
	Model  string `env:"REELGRAB_AI_MODEL"   envDefault:"gpt-3.5-turbo"`
	// Transcribe enables the caption-transcription add-on: when extraction
	// yields no caption, the first delivered entry is transcribed instead.
	Transcribe bool `env:"REELGRAB_AI_TRANSCRIBE" envDefault:"false"`
}

// HTTP holds the ops HTTP server configuration (metrics, readiness, stats).
type HTTP struct {
	Port            string        `env:"REELGRAB_HTTP_PORT"             envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"REELGRAB_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Dir holds directory paths for task work dirs, yt-dlp cache, and cookies.
type Dir struct {
	// Work is the parent for per-task scratch directories.
	Work  string `env:"REELGRAB_DIR_WORK"  envDefault:"./data/work"`
	Cache string `env:"REELGRAB_DIR_CACHE" envDefault:"./data/cache"` // yt-dlp cache (meta, sigs)

	// must contain cookies.txt file, used for Instagram
	// see: https://github.com/yt-dlp/yt-dlp/wiki/FAQ#how-do-i-pass-cookies-to-yt-dlp
	CookieFile string `env:"REELGRAB_DIR_COOKIE_FILE" envDefault:""`

	// WorkDirTTL is how long an orphaned work directory may live before the
	// sweeper removes it. Normal task exits delete their own directory.
	WorkDirTTL time.Duration `env:"REELGRAB_DIR_WORK_TTL" envDefault:"1h"`
	// SweepInterval is how often the sweeper scans for orphaned directories.
	SweepInterval time.Duration `env:"REELGRAB_DIR_SWEEP_INTERVAL" envDefault:"15m"`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (c *Dir) SetAbsPaths() error {
	var err error
	if c.Work, err = filepath.Abs(c.Work); err != nil {
		return fmt.Errorf("work: %w", err)
	}

	if c.Cache, err = filepath.Abs(c.Cache); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if c.CookieFile != "" {
		if c.CookieFile, err = filepath.Abs(c.CookieFile); err != nil {
			return fmt.Errorf("cookie file: %w", err)
		}
	}

	return nil
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.DepManager.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set dep manager absolute paths: %w", err)
	}

	cfg.Proxy.parseList()
	cfg.setFallbacks()

	return cfg, nil
}

// setFallbacks guards against zero or negative durations set explicitly in
// the environment. A send pacing of exactly zero stays zero: it disables
// pacing, which is a valid configuration.
func (c *Config) setFallbacks() {
	if c.Task.Timeout <= 0 {
		c.Task.Timeout = consts.DefaultTaskTimeout
	}

	if c.Task.SendPacing < 0 {
		c.Task.SendPacing = consts.DefaultSendPacing
	}

	if c.Dir.WorkDirTTL <= 0 {
		c.Dir.WorkDirTTL = consts.DefaultWorkDirTTL
	}
}

// DepManager holds binary dependency management configuration.
type DepManager struct {
	// BinsDir is the directory where binaries are stored
	BinsDir string `env:"REELGRAB_DEPMANAGER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries indicates whether to use system-installed binaries or download them.
	UseSystemBinaries bool `env:"REELGRAB_DEPMANAGER_USE_SYSTEM_BINARIES" envDefault:"false"`
	// UpdateInterval is how often to check for binary updates
	UpdateInterval time.Duration `env:"REELGRAB_DEPMANAGER_UPDATE_INTERVAL" envDefault:"24h"`

	// ffmpeg binary URLs per platform.
	FFmpegSHA256SumsURL string `env:"REELGRAB_DEPMANAGER_FFMPEG_SHA256SUMS_URL" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/checksums.sha256"`                        //nolint:lll
	FFmpegLinuxARM64    string `env:"REELGRAB_DEPMANAGER_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64    string `env:"REELGRAB_DEPMANAGER_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll

	// yt-dlp binary URLs per platform.
	YTdlpSHA256SumsURL string `env:"REELGRAB_DEPMANAGER_YTDLP_SHA256SUMS_URL" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/SHA2-256SUMS"`      //nolint:lll
	YTdlpLinuxARM64    string `env:"REELGRAB_DEPMANAGER_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	YTdlpLinuxAMD64    string `env:"REELGRAB_DEPMANAGER_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (d *DepManager) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// Proxy holds proxy configuration for extraction requests.
type Proxy struct {
	// List is a comma-separated list of proxy URLs in socks5h format
	List string `env:"REELGRAB_PROXY_LIST" envDefault:""`
	// HealthCheckInterval is how often to check proxy health
	HealthCheckInterval time.Duration `env:"REELGRAB_PROXY_HEALTH_CHECK_INTERVAL" envDefault:"5m"`
	// FailureBackoff is the initial backoff duration for failed proxies
	FailureBackoff time.Duration `env:"REELGRAB_PROXY_FAILURE_BACKOFF" envDefault:"1m"`
	// MaxFailures is the maximum number of failures before a proxy is temporarily removed
	MaxFailures int `env:"REELGRAB_PROXY_MAX_FAILURES" envDefault:"3"`

	// Proxies is the parsed list of proxy URLs
	Proxies []string `env:"-"`
}

// parseList parses the comma-separated proxy list.
func (p *Proxy) parseList() {
	if p.List == "" {
		return
	}

	for proxy := range strings.SplitSeq(p.List, ",") {
		proxy = strings.TrimSpace(proxy)
		if proxy != "" {
			p.Proxies = append(p.Proxies, proxy)
		}
	}
}
