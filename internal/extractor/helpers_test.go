package extractor

import "reelgrab/internal/config"

func testConfig() *config.Config {
	return &config.Config{
		Extract: config.Extract{
			MaxWidth:  720,
			MaxHeight: 1280,
			Retries:   5,
			UserAgent: "Mozilla/5.0",
		},
	}
}
