// Package history keeps the per-notification-id message sequences used to
// build stacked (inbox style) notifications.
package history

import (
	"sync"
	"time"
)

type entry struct {
	messages []string
	touched  time.Time
}

// Store is the process-wide message history, keyed by notification id.
//
// Delivery events for the same id can race; a single mutex serializes
// append/clear/read. Construct isolated instances in tests; production
// wiring shares one Store across the engine.
type Store struct {
	mu      sync.Mutex
	entries map[int]*entry
}

func NewStore() *Store {
	return &Store{entries: map[int]*entry{}}
}

// Append records one message for the id. An empty message clears the
// sequence instead (the id itself stays registered).
func (s *Store) Append(id int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[id]
	if e == nil {
		e = &entry{}
		s.entries[id] = e
	}
	e.touched = time.Now()

	if message == "" {
		e.messages = e.messages[:0]
		return
	}
	e.messages = append(e.messages, message)
}

// Clear empties the sequence for the id.
func (s *Store) Clear(id int) {
	s.Append(id, "")
}

// Snapshot returns a copy of the current sequence for the id, oldest first.
// Absent ids yield an empty slice.
func (s *Store) Snapshot(id int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[id]
	if e == nil || len(e.messages) == 0 {
		return []string{}
	}
	return append([]string(nil), e.messages...)
}

// Len reports how many messages are currently held for the id.
func (s *Store) Len(id int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[id]
	if e == nil {
		return 0
	}
	return len(e.messages)
}

// PruneIdle drops entries not touched within ttl and returns how many were
// removed. The upstream system never evicts; this is the retention policy
// bolted on so long-running processes don't accumulate ids forever.
func (s *Store) PruneIdle(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.touched.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}
