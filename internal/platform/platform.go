// Package platform classifies submitted URLs against known platform signatures.
package platform

import (
	"log/slog"
	"regexp"

	"reelgrab/internal/entity"
)

// signature pairs a platform tag with its URL pattern. Order matters:
// the first match wins, there is no overlap resolution beyond table order.
type signature struct {
	platform entity.Platform
	pattern  *regexp.Regexp
}

var signatures = []signature{
	{entity.PlatformInstagram, regexp.MustCompile(`(?i)(https?://)?(www\.)?(instagram\.com|instagr\.am)/`)},
	{entity.PlatformTikTok, regexp.MustCompile(`(?i)(https?://)?(www\.)?tiktok\.com/`)},
	{entity.PlatformPinterest, regexp.MustCompile(`(?i)(https?://)?(www\.)?pinterest\.`)},
}

// Classifier matches raw URL strings against the signature table.
type Classifier struct {
	log *slog.Logger
}

// New creates a classifier.
func New(log *slog.Logger) *Classifier {
	return &Classifier{
		log: log.With(slog.String("package", "platform")),
	}
}

// Classify returns the platform tag for url, or PlatformUnrecognized.
// Unrecognized is a normal outcome the caller handles by rejecting the
// submission; it is not an error.
func (c *Classifier) Classify(url string) entity.Platform {
	for _, sig := range signatures {
		if sig.pattern.MatchString(url) {
			c.log.Debug("platform classified",
				slog.String("platform", string(sig.platform)),
				slog.String("url", url))

			return sig.platform
		}
	}

	c.log.Debug("platform not recognized", slog.String("url", url))

	return entity.PlatformUnrecognized
}
