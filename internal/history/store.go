package history

import "sync/atomic"

// Stats is a point-in-time summary of a Store.
type Stats struct {
	Conversations int `json:"conversations"`
	Turns         int `json:"turns"`
}

// Store owns the canonical History snapshot. Readers take a Snapshot and
// work on it without locks; writers install a new snapshot with Publish.
// Retention is unbounded: conversations are never evicted.
type Store struct {
	current atomic.Pointer[History]
}

// NewStore creates a Store holding an empty History.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&History{})
	return s
}

// Snapshot returns the current canonical History.
func (s *Store) Snapshot() History {
	return *s.current.Load()
}

// Publish appends a (user, assistant) pair for id and installs the result
// as the canonical snapshot. It re-reads the latest snapshot on every
// attempt, so a concurrent Publish for any conversation is merged rather
// than overwritten. The returned History is the snapshot that was
// installed.
func (s *Store) Publish(id int64, userText, assistantText string) History {
	for {
		old := s.current.Load()
		next := Append(*old, id, userText, assistantText)
		if s.current.CompareAndSwap(old, &next) {
			return next
		}
	}
}

// Stats reports the number of conversations and stored turns.
func (s *Store) Stats() Stats {
	h := s.Snapshot()
	return Stats{
		Conversations: h.Len(),
		Turns:         h.TurnCount(),
	}
}
