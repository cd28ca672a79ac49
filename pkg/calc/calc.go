// Package calc provides progress calculations for long-running downloads.
package calc

import (
	"reelgrab/pkg/maths"
)

// Progress calculates a 0-100 percentage for a downloaded/total pair.
func Progress(downloaded, total int) int {
	if total > 0 {
		return maths.RoundFloat64ToInt(float64(downloaded) / float64(total) * 100)
	}

	return 0
}
