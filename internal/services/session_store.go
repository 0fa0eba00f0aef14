package services

import (
	"sync"
	"time"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/storefront"
)

const defaultSweepInterval = time.Minute

type sessionEntry struct {
	state   storefront.State
	notice  string
	touched time.Time
}

// SessionStore keeps storefront state per shopper session in memory. Idle sessions expire after
// the configured TTL and are removed lazily on access.
type SessionStore struct {
	mu        sync.Mutex
	entries   map[string]*sessionEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewSessionStore builds a store. A nil clock uses time.Now.
func NewSessionStore(ttl time.Duration, clock func() time.Time) *SessionStore {
	if clock == nil {
		clock = time.Now
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{
		entries: make(map[string]*sessionEntry),
		ttl:     ttl,
		now:     clock,
	}
}

// Load returns the state for id, or a fresh state when the session is unknown or expired.
func (s *SessionStore) Load(id string) storefront.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entryLocked(id).state
}

// Update applies fn to the session state atomically and stores the returned state. A non-empty
// notice replaces the pending flash message.
func (s *SessionStore) Update(id string, fn func(storefront.State) (storefront.State, string)) storefront.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entryLocked(id)
	next, notice := fn(entry.state)
	entry.state = next
	if notice != "" {
		entry.notice = notice
	}
	return next
}

// TakeNotice returns and clears the pending flash message for id.
func (s *SessionStore) TakeNotice(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return ""
	}
	notice := entry.notice
	entry.notice = ""
	return notice
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes every expired session and returns how many were dropped.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *SessionStore) entryLocked(id string) *sessionEntry {
	now := s.now()
	if now.Sub(s.lastSweep) >= defaultSweepInterval {
		s.sweepLocked(now)
	}
	entry, ok := s.entries[id]
	if !ok || now.Sub(entry.touched) > s.ttl {
		entry = &sessionEntry{state: storefront.NewState()}
		s.entries[id] = entry
	}
	entry.touched = now
	return entry
}

func (s *SessionStore) sweepLocked(now time.Time) int {
	s.lastSweep = now
	removed := 0
	for id, entry := range s.entries {
		if now.Sub(entry.touched) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}
