// Package session holds per-user state shared across concurrent task runs.
//
// The store is sharded by user key so unrelated users never contend on one
// lock. Within a key, mutation is serialized by the single-flight invariant:
// only the task run that acquired the key touches its session until release.
package session

import (
	"log/slog"
	"sync"

	"reelgrab/internal/errs"
)

// State is the per-user lifecycle state.
type State string

const (
	// StateIdle means no task is running for the user.
	StateIdle State = "idle"
	// StateAwaitingDownload means exactly one task run is executing for the user.
	StateAwaitingDownload State = "awaiting_download"
)

const shardCount = 16

// Session is the state kept for one user. Created lazily on first
// interaction, never destroyed, logically reset to idle after every run.
type Session struct {
	State        State
	PendingURL   string
	LastCaption  string
	MessageCount int
}

// Stats is an aggregate snapshot across all sessions.
type Stats struct {
	Users         int `json:"users"`
	InFlight      int `json:"inFlight"`
	TotalMessages int `json:"totalMessages"`
}

type shard struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// Store is a sharded in-memory session store.
type Store struct {
	log    *slog.Logger
	shards [shardCount]*shard
}

// New creates an empty store.
func New(log *slog.Logger) *Store {
	st := &Store{
		log: log.With(slog.String("package", "session")),
	}

	for i := range st.shards {
		st.shards[i] = &shard{
			sessions: make(map[int64]*Session),
		}
	}

	return st
}

func (st *Store) shard(key int64) *shard {
	return st.shards[uint64(key)%shardCount]
}

// get returns the session for key, creating it if absent. Caller holds the shard lock.
func (sh *shard) get(key int64) *Session {
	ses, ok := sh.sessions[key]
	if !ok {
		ses = &Session{State: StateIdle}
		sh.sessions[key] = ses
	}

	return ses
}

// TryBegin attempts to move the user into awaiting_download. It is the
// single-flight gate: if a task is already in flight for the key it returns
// ErrTaskInFlight and the caller must drop the submission, not queue it.
func (st *Store) TryBegin(key int64, url string) error {
	sh := st.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	ses := sh.get(key)
	if ses.State == StateAwaitingDownload {
		return errs.ErrTaskInFlight
	}

	ses.State = StateAwaitingDownload
	ses.PendingURL = url
	ses.LastCaption = ""

	st.log.Debug("task accepted for user", slog.Int64("user_key", key), slog.String("url", url))

	return nil
}

// Finish resets the user to idle and clears pending URL and caption.
// Every task exit path, success or failure, must call it exactly once.
func (st *Store) Finish(key int64) {
	sh := st.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	ses := sh.get(key)
	ses.State = StateIdle
	ses.PendingURL = ""
	ses.LastCaption = ""
}

// SetCaption records caption text recovered during a run so the failure
// path can include it in the user-visible message.
func (st *Store) SetCaption(key int64, caption string) {
	sh := st.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.get(key).LastCaption = caption
}

// Get returns a copy of the session for key.
func (st *Store) Get(key int64) Session {
	sh := st.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	return *sh.get(key)
}

// IncMessageCount bumps the per-user message counter.
func (st *Store) IncMessageCount(key int64) {
	sh := st.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.get(key).MessageCount++
}

// Stats aggregates counters across all shards.
func (st *Store) Stats() Stats {
	var stats Stats

	for _, sh := range st.shards {
		sh.mu.Lock()

		for _, ses := range sh.sessions {
			stats.Users++
			stats.TotalMessages += ses.MessageCount

			if ses.State == StateAwaitingDownload {
				stats.InFlight++
			}
		}

		sh.mu.Unlock()
	}

	return stats
}
