package maths_test

import (
	"math"
	"testing"

	"reelgrab/pkg/maths"
)

func TestRoundFloat64ToInt(t *testing.T) {
	tests := []struct {
		input float64
		want  int
	}{
		{0, 0},
		{1.4, 1},
		{1.5, 2},
		{-1.5, -2},
		{12.9, 13},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
	}

	for _, tt := range tests {
		if got := maths.RoundFloat64ToInt(tt.input); got != tt.want {
			t.Errorf("RoundFloat64ToInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
