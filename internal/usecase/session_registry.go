package usecase

import (
	"sync"

	"github.com/riskibarqy/matchday-relay/internal/domain/matchsession"
	"github.com/riskibarqy/matchday-relay/internal/domain/playerminutes"
)

type sessionSlot struct {
	mu      sync.Mutex
	session *matchsession.Session
}

// SessionRegistry hands out exclusive access to one session per match.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionSlot
	minutes  playerminutes.Config
}

func NewSessionRegistry(minutes playerminutes.Config) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*sessionSlot),
		minutes:  minutes,
	}
}

// Acquire locks the match session, creating it on first use. The returned
// release func must be called exactly once.
func (r *SessionRegistry) Acquire(matchID string) (*matchsession.Session, func()) {
	r.mu.Lock()
	slot, ok := r.sessions[matchID]
	if !ok {
		slot = &sessionSlot{session: matchsession.New(matchID, r.minutes)}
		r.sessions[matchID] = slot
	}
	r.mu.Unlock()

	slot.mu.Lock()
	return slot.session, slot.mu.Unlock
}

// Inspect runs fn under the session lock without creating a session.
func (r *SessionRegistry) Inspect(matchID string, fn func(*matchsession.Session)) bool {
	r.mu.Lock()
	slot, ok := r.sessions[matchID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	fn(slot.session)
	return true
}

func (r *SessionRegistry) End(matchID string) bool {
	r.mu.Lock()
	_, ok := r.sessions[matchID]
	if ok {
		delete(r.sessions, matchID)
	}
	r.mu.Unlock()
	return ok
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
