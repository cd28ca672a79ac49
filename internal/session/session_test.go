package session_test

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"testing/synctest"

	"reelgrab/internal/errs"
	"reelgrab/internal/session"
)

func TestTryBeginSingleFlight(t *testing.T) {
	store := session.New(slog.New(slog.DiscardHandler))

	if err := store.TryBegin(1, "https://www.tiktok.com/@a/video/1"); err != nil {
		t.Fatalf("first TryBegin: %v", err)
	}

	err := store.TryBegin(1, "https://www.tiktok.com/@a/video/2")
	if !errors.Is(err, errs.ErrTaskInFlight) {
		t.Errorf("second TryBegin = %v, want ErrTaskInFlight", err)
	}

	// A different user is unaffected.
	if err := store.TryBegin(2, "https://www.tiktok.com/@b/video/1"); err != nil {
		t.Errorf("TryBegin for other user: %v", err)
	}
}

func TestFinishResetsSession(t *testing.T) {
	store := session.New(slog.New(slog.DiscardHandler))

	if err := store.TryBegin(1, "https://www.instagram.com/reel/x/"); err != nil {
		t.Fatalf("TryBegin: %v", err)
	}

	store.SetCaption(1, "some caption")
	store.Finish(1)

	ses := store.Get(1)
	if ses.State != session.StateIdle {
		t.Errorf("state = %q, want %q", ses.State, session.StateIdle)
	}

	if ses.PendingURL != "" {
		t.Errorf("pending url = %q, want empty", ses.PendingURL)
	}

	if ses.LastCaption != "" {
		t.Errorf("last caption = %q, want empty", ses.LastCaption)
	}

	// The key is reusable after release.
	if err := store.TryBegin(1, "https://www.instagram.com/reel/y/"); err != nil {
		t.Errorf("TryBegin after Finish: %v", err)
	}
}

func TestTryBeginClearsStaleCaption(t *testing.T) {
	store := session.New(slog.New(slog.DiscardHandler))

	if err := store.TryBegin(1, "https://www.tiktok.com/@a/video/1"); err != nil {
		t.Fatalf("TryBegin: %v", err)
	}

	store.SetCaption(1, "caption from first run")
	store.Finish(1)

	if err := store.TryBegin(1, "https://www.tiktok.com/@a/video/2"); err != nil {
		t.Fatalf("TryBegin: %v", err)
	}

	if got := store.Get(1).LastCaption; got != "" {
		t.Errorf("caption after new TryBegin = %q, want empty", got)
	}
}

func TestTryBeginConcurrent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		store := session.New(slog.New(slog.DiscardHandler))

		const attempts = 32

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)

		for range attempts {
			wg.Add(1)

			go func() {
				defer wg.Done()

				if err := store.TryBegin(7, "https://www.tiktok.com/@a/video/1"); err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		if accepted != 1 {
			t.Errorf("accepted = %d, want exactly 1", accepted)
		}
	})
}

func TestStats(t *testing.T) {
	store := session.New(slog.New(slog.DiscardHandler))

	store.IncMessageCount(1)
	store.IncMessageCount(1)
	store.IncMessageCount(2)

	if err := store.TryBegin(1, "https://www.tiktok.com/@a/video/1"); err != nil {
		t.Fatalf("TryBegin: %v", err)
	}

	stats := store.Stats()

	if stats.Users != 2 {
		t.Errorf("users = %d, want 2", stats.Users)
	}

	if stats.InFlight != 1 {
		t.Errorf("in flight = %d, want 1", stats.InFlight)
	}

	if stats.TotalMessages != 3 {
		t.Errorf("total messages = %d, want 3", stats.TotalMessages)
	}
}
