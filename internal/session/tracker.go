// Package session tracks which free-text reply each user is expected to send
// next. State lives only in memory and is lost on restart.
package session

import (
	"sync"

	"github.com/tbourn/html-downloader-bot/internal/domain"
)

// Tracker maps user ids to their pending conversation state.
type Tracker struct {
	mu     sync.RWMutex
	states map[int64]domain.SessionState
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{states: make(map[int64]domain.SessionState)}
}

// Set records state for userID. Setting StateNone clears it.
func (t *Tracker) Set(userID int64, state domain.SessionState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if state == domain.StateNone {
		delete(t.states, userID)
		return
	}
	t.states[userID] = state
}

// Get returns the pending state for userID.
func (t *Tracker) Get(userID int64) (domain.SessionState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.states[userID]
	return s, ok
}

// Clear removes any pending state for userID.
func (t *Tracker) Clear(userID int64) {
	t.mu.Lock()
	delete(t.states, userID)
	t.mu.Unlock()
}

// Len returns the number of users with a pending state.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states)
}
