package calc_test

import (
	"testing"

	"reelgrab/pkg/calc"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		name       string
		downloaded int
		total      int
		want       int
	}{
		{"zero total", 100, 0, 0},
		{"nothing downloaded", 0, 100, 0},
		{"half", 50, 100, 50},
		{"complete", 100, 100, 100},
		{"rounds up", 667, 1000, 67},
		{"rounds down", 664, 1000, 66},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calc.Progress(tt.downloaded, tt.total); got != tt.want {
				t.Errorf("Progress(%d, %d) = %d, want %d", tt.downloaded, tt.total, got, tt.want)
			}
		})
	}
}
