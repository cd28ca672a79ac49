package coordinator

import (
	"strings"
	"testing"

	"reelgrab/internal/consts"
	"reelgrab/internal/entity"
)

func TestStatusText(t *testing.T) {
	tests := []struct {
		name    string
		status  entity.TaskStatus
		percent int
		want    []string
		exclude string
	}{
		{
			name:    "in progress without percent",
			status:  entity.TaskStatusAwaitingDownload,
			percent: 0,
			want:    []string{consts.StatusTitle, consts.StatusInProgress},
			exclude: "%",
		},
		{
			name:    "in progress with percent",
			status:  entity.TaskStatusAwaitingDownload,
			percent: 42,
			want:    []string{consts.StatusInProgress, "42%"},
		},
		{
			name:   "done",
			status: entity.TaskStatusDone,
			want:   []string{consts.StatusTitle, consts.StatusDone},
		},
		{
			name:   "failed",
			status: entity.TaskStatusFailed,
			want:   []string{consts.StatusTitle, consts.StatusFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statusText(tt.status, tt.percent)

			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("statusText = %q, want it to contain %q", got, want)
				}
			}

			if tt.exclude != "" && strings.Contains(got, tt.exclude) {
				t.Errorf("statusText = %q, must not contain %q", got, tt.exclude)
			}
		})
	}
}

func TestFailureText(t *testing.T) {
	task := &entity.Task{
		URL:     "https://www.instagram.com/reel/x/",
		Caption: "salvaged",
	}

	got := failureText(task)

	if !strings.Contains(got, task.URL) {
		t.Errorf("failureText = %q, want it to carry the URL", got)
	}

	if !strings.Contains(got, "salvaged") {
		t.Errorf("failureText = %q, want the salvaged caption", got)
	}

	bare := failureText(&entity.Task{URL: "https://example.com/x"})
	if strings.Contains(bare, "\n\n") {
		t.Errorf("failureText without caption = %q, want no caption block", bare)
	}
}
