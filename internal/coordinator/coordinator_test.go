package coordinator_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"reelgrab/internal/config"
	"reelgrab/internal/coordinator"
	"reelgrab/internal/entity"
	"reelgrab/internal/extractor"
	"reelgrab/internal/normalizer"
	"reelgrab/internal/observability"
	"reelgrab/internal/session"
	"reelgrab/internal/workdir"
)

// metrics registers against the default registry; one instance per test binary.
var testMetrics = observability.New()

// fakeDelivery records sends in order and can be scripted to fail.
type fakeDelivery struct {
	mu     sync.Mutex
	events []string

	failMedia   bool
	failText    bool
	failClosing bool
}

func (d *fakeDelivery) SendMedia(_ context.Context, _ int64, path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failMedia {
		return fmt.Errorf("scripted media failure")
	}

	d.events = append(d.events, "media:"+path)

	return nil
}

func (d *fakeDelivery) SendText(_ context.Context, _ int64, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failText {
		return fmt.Errorf("scripted text failure")
	}

	d.events = append(d.events, "text:"+text)

	return nil
}

func (d *fakeDelivery) SendClosing(_ context.Context, _ int64, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failClosing {
		return fmt.Errorf("scripted closing failure")
	}

	d.events = append(d.events, "closing:"+text)

	return nil
}

func (d *fakeDelivery) kinds() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	kinds := make([]string, 0, len(d.events))
	for _, ev := range d.events {
		kinds = append(kinds, strings.SplitN(ev, ":", 2)[0])
	}

	return kinds
}

// fakeStatus records status posts and edits.
type fakeStatus struct {
	mu      sync.Mutex
	posted  bool
	updates []string

	failPost bool
}

func (s *fakeStatus) Post(_ context.Context, _ int64, _ string) (coordinator.StatusHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failPost {
		return coordinator.StatusHandle{}, fmt.Errorf("scripted post failure")
	}

	s.posted = true

	return coordinator.StatusHandle{ChatID: 1, MessageID: 42}, nil
}

func (s *fakeStatus) Update(_ context.Context, handle coordinator.StatusHandle, text string) {
	if handle.IsZero() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.updates = append(s.updates, text)
}

func (s *fakeStatus) lastUpdate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.updates) == 0 {
		return ""
	}

	return s.updates[len(s.updates)-1]
}

type fakeTranscriber struct {
	text string
	err  error
}

func (tr *fakeTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	return tr.text, tr.err
}

type fixture struct {
	cfg       *config.Config
	sessions  *session.Store
	workDirs  *workdir.Manager
	extractor *extractor.Mock
	norm      *normalizer.Mock
	delivery  *fakeDelivery
	status    *fakeStatus
	coord     *coordinator.Coordinator
}

func newFixture(t *testing.T, transcriber coordinator.Transcriber) *fixture {
	t.Helper()

	log := slog.New(slog.DiscardHandler)

	cfg := &config.Config{
		Task: config.Task{
			Timeout:    time.Minute,
			SendPacing: time.Second,
		},
		Dir: config.Dir{
			Work: t.TempDir(),
		},
	}

	workDirs, err := workdir.New(log, cfg, testMetrics)
	if err != nil {
		t.Fatalf("workdir.New: %v", err)
	}

	fx := &fixture{
		cfg:       cfg,
		sessions:  session.New(log),
		workDirs:  workDirs,
		extractor: extractor.NewMock(log),
		norm:      normalizer.NewMock(log),
		delivery:  &fakeDelivery{},
		status:    &fakeStatus{},
	}

	fx.coord = coordinator.New(log, cfg, fx.sessions, workDirs,
		fx.extractor, fx.norm, fx.delivery, fx.status, transcriber, testMetrics)

	return fx
}

// run accepts the submission and executes the full pipeline synchronously.
func (fx *fixture) run(t *testing.T, userKey int64, url string) {
	t.Helper()

	if err := fx.sessions.TryBegin(userKey, url); err != nil {
		t.Fatalf("TryBegin: %v", err)
	}

	fx.coord.Run(t.Context(), userKey, url, entity.PlatformTikTok)
}

// assertCleanedUp verifies the work dir is gone and the user key released.
func (fx *fixture) assertCleanedUp(t *testing.T, userKey int64) {
	t.Helper()

	entries, err := os.ReadDir(fx.cfg.Dir.Work)
	if err != nil {
		t.Fatalf("read work parent: %v", err)
	}

	if len(entries) != 0 {
		t.Errorf("work parent has %d leftover entries, want 0", len(entries))
	}

	if state := fx.sessions.Get(userKey).State; state != session.StateIdle {
		t.Errorf("session state = %q, want idle", state)
	}
}

func TestRunDeliversCarouselInOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fx := newFixture(t, nil)
		fx.extractor.EntryCount = 3
		fx.extractor.Caption = "post caption"

		fx.run(t, 1, "https://www.tiktok.com/@a/video/1")

		want := []string{"media", "media", "media", "text", "closing"}
		got := fx.delivery.kinds()

		if len(got) != len(want) {
			t.Fatalf("got %d sends %v, want %d", len(got), got, len(want))
		}

		for i := range want {
			if got[i] != want[i] {
				t.Errorf("send %d = %q, want %q", i, got[i], want[i])
			}
		}

		// Entries keep extraction order.
		for i := range 3 {
			wantSub := fmt.Sprintf("entry%d", i)
			if !strings.Contains(fx.delivery.events[i], wantSub) {
				t.Errorf("send %d = %q, want it to carry %q", i, fx.delivery.events[i], wantSub)
			}
		}

		if !strings.Contains(fx.delivery.events[3], "post caption") {
			t.Errorf("caption send = %q, want the caption text", fx.delivery.events[3])
		}

		fx.assertCleanedUp(t, 1)
	})
}

func TestRunWithoutCaptionSkipsTextSend(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fx := newFixture(t, nil)
		fx.extractor.EntryCount = 1

		fx.run(t, 1, "https://www.tiktok.com/@a/video/1")

		want := []string{"media", "closing"}
		got := fx.delivery.kinds()

		if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("sends = %v, want %v", got, want)
		}

		fx.assertCleanedUp(t, 1)
	})
}

func TestRunCaptionSendFailureStillCloses(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fx := newFixture(t, nil)
		fx.extractor.EntryCount = 1
		fx.extractor.Caption = "doomed caption"
		fx.delivery.failText = true

		fx.run(t, 1, "https://www.tiktok.com/@a/video/1")

		got := fx.delivery.kinds()
		if len(got) != 2 || got[0] != "media" || got[1] != "closing" {
			t.Errorf("sends = %v, want [media closing]", got)
		}

		fx.assertCleanedUp(t, 1)
	})
}

func TestRunExtractionFailure(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fx := newFixture(t, nil)
		fx.extractor.Err = errors.New("network down")

		url := "https://www.instagram.com/reel/x/"
		fx.run(t, 1, url)

		got := fx.delivery.kinds()
		if len(got) != 1 || got[0] != "text" {
			t.Fatalf("sends = %v, want one failure text", got)
		}

		if !strings.Contains(fx.delivery.events[0], url) {
			t.Errorf("failure text = %q, want it to carry the URL", fx.delivery.events[0])
		}

		fx.assertCleanedUp(t, 1)
	})
}

func TestRunZeroEntriesWithCaptionFails(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fx := newFixture(t, nil)
		fx.extractor.EntryCount = 0
		fx.extractor.Caption = "salvaged caption"

		fx.run(t, 1, "https://www.tiktok.com/@a/video/1")

		got := fx.delivery.kinds()
		if len(got) != 1 || got[0] != "text" {
			t.Fatalf("sends = %v, want one failure text", got)
		}

		if !strings.Contains(fx.delivery.events[0], "salvaged caption") {
			t.Errorf("failure text = %q, want the salvaged caption", fx.delivery.events[0])
		}

		fx.assertCleanedUp(t, 1)
	})
}

func TestRunAllNormalizationsFailedFails(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fx := newFixture(t, nil)
		fx.extractor.EntryCount = 2
		fx.norm.Err = errors.New("codec exploded")

		fx.run(t, 1, "https://www.tiktok.com/@a/video/1")

		got := fx.delivery.kinds()
		if len(got) != 1 || got[0] != "text" {
			t.Errorf("sends = %v, want one failure text", got)
		}

		fx.assertCleanedUp(t, 1)
	})
}

func TestRunPartialNormalizationDeliversRest(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fx := newFixture(t, nil)
		fx.extractor.EntryCount = 3
		fx.norm.FailFor["entry1.mp4"] = true

		fx.run(t, 1, "https://www.tiktok.com/@a/video/1")

		got := fx.delivery.kinds()
		want := []string{"media", "media", "closing"}

		if len(got) != len(want) {
			t.Fatalf("sends = %v, want %v", got, want)
		}

		for i := range want {
			if got[i] != want[i] {
				t.Errorf("send %d = %q, want %q", i, got[i], want[i])
			}
		}

		fx.assertCleanedUp(t, 1)
	})
}

func TestRunStatusLifecycle(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fx := newFixture(t, nil)
		fx.extractor.EntryCount = 1

		fx.run(t, 1, "https://www.tiktok.com/@a/video/1")

		if !fx.status.posted {
			t.Error("status message was never posted")
		}

		if last := fx.status.lastUpdate(); !strings.Contains(last, "✅") {
			t.Errorf("terminal status = %q, want success marker", last)
		}
	})
}

func TestRunStatusPostFailureDoesNotStopPipeline(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fx := newFixture(t, nil)
		fx.extractor.EntryCount = 1
		fx.status.failPost = true

		fx.run(t, 1, "https://www.tiktok.com/@a/video/1")

		got := fx.delivery.kinds()
		if len(got) != 2 || got[0] != "media" || got[1] != "closing" {
			t.Errorf("sends = %v, want [media closing]", got)
		}

		fx.assertCleanedUp(t, 1)
	})
}

func TestRunTranscribesWhenNoCaption(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fx := newFixture(t, &fakeTranscriber{text: "spoken words"})
		fx.cfg.AI.Transcribe = true
		fx.extractor.EntryCount = 1

		fx.run(t, 1, "https://www.tiktok.com/@a/video/1")

		got := fx.delivery.kinds()
		if len(got) != 3 || got[1] != "text" {
			t.Fatalf("sends = %v, want [media text closing]", got)
		}

		if !strings.Contains(fx.delivery.events[1], "spoken words") {
			t.Errorf("caption send = %q, want transcription", fx.delivery.events[1])
		}
	})
}

func TestRunTranscriberNotUsedWhenCaptionPresent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fx := newFixture(t, &fakeTranscriber{err: errors.New("should not be called")})
		fx.cfg.AI.Transcribe = true
		fx.extractor.EntryCount = 1
		fx.extractor.Caption = "extracted caption"

		fx.run(t, 1, "https://www.tiktok.com/@a/video/1")

		got := fx.delivery.kinds()
		if len(got) != 3 || got[1] != "text" {
			t.Fatalf("sends = %v, want [media text closing]", got)
		}

		if !strings.Contains(fx.delivery.events[1], "extracted caption") {
			t.Errorf("caption send = %q, want extracted caption", fx.delivery.events[1])
		}
	})
}
