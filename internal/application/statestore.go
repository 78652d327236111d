package application

import (
	"sync"
	"time"
)

// StateStore holds short-lived OAuth correlation tokens (state -> account).
// Entries expire after a fixed TTL and are consumed at most once, so tokens
// cannot accumulate without bound or be replayed. Expired entries are swept
// opportunistically on writes.
type StateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]stateEntry
	now     func() time.Time
}

type stateEntry struct {
	accountID int64
	expiresAt time.Time
}

// NewStateStore creates a StateStore whose entries live for ttl.
func NewStateStore(ttl time.Duration) *StateStore {
	return &StateStore{
		ttl:     ttl,
		entries: make(map[string]stateEntry),
		now:     time.Now,
	}
}

// Put registers a correlation token for the account.
func (s *StateStore) Put(state string, accountID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if !e.expiresAt.After(now) {
			delete(s.entries, k)
		}
	}

	s.entries[state] = stateEntry{accountID: accountID, expiresAt: now.Add(s.ttl)}
}

// Consume removes and returns the account for the token. A missing or expired
// token returns ok=false; a consumed token cannot be replayed.
func (s *StateStore) Consume(state string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[state]
	if !ok {
		return 0, false
	}
	delete(s.entries, state)

	if !e.expiresAt.After(s.now()) {
		return 0, false
	}

	return e.accountID, true
}
