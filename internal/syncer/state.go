package syncer

import (
	"sync"
	"time"
)

type beginResult int

const (
	beginOK beginResult = iota
	beginAlreadySyncing
	beginDebounced
)

// state is the runtime sync guard. The check-and-set in begin happens
// under a single lock acquisition, so two callers can never both observe
// "not syncing" and proceed.
type state struct {
	mu                sync.Mutex
	isSyncing         bool
	lastSyncAttemptAt time.Time
}

// begin tries to take the sync slot. force bypasses the debounce window
// but never the in-progress guard.
func (s *state) begin(force bool, debounce time.Duration) beginResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isSyncing {
		return beginAlreadySyncing
	}
	if !force && !s.lastSyncAttemptAt.IsZero() && time.Since(s.lastSyncAttemptAt) < debounce {
		return beginDebounced
	}
	s.isSyncing = true
	return beginOK
}

// end releases the slot and stamps the attempt time. It runs on every
// exit path of a sync attempt, success or failure.
func (s *state) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isSyncing = false
	s.lastSyncAttemptAt = time.Now()
}

func (s *state) syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSyncing
}
