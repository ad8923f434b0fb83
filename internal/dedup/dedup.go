// Package dedup suppresses repeat notifications. Seen-item sets are scoped
// per profile, never globally — the same listing may legitimately notify
// several profiles.
package dedup

import (
	"context"
	"sync"
)

// SeenStore records which item IDs a profile has already been notified about.
type SeenStore interface {
	// Admit reports whether itemID has not been seen by the profile before,
	// recording it as seen as a side effect of a true result. The test and
	// the insert are atomic: for a given (profile, item) pair, exactly one
	// concurrent caller gets true.
	Admit(ctx context.Context, profileID, itemID string) (bool, error)
}

// MemoryStore keeps seen-sets in process memory. Sets grow monotonically for
// the process lifetime; use the Redis store when restarts must not replay
// notifications.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]map[string]struct{} // profile ID → item IDs
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]map[string]struct{})}
}

// Admit implements SeenStore.
func (s *MemoryStore) Admit(_ context.Context, profileID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.seen[profileID]
	if !ok {
		set = make(map[string]struct{})
		s.seen[profileID] = set
	}
	if _, dup := set[itemID]; dup {
		return false, nil
	}
	set[itemID] = struct{}{}
	return true, nil
}

// Forget drops a profile's entire seen-set. Called when a profile is removed
// from the configuration.
func (s *MemoryStore) Forget(_ context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, profileID)
	return nil
}
