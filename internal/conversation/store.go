package conversation

import "sync"

// Key indexes one conversation. It is derived from the channel address of the
// counterparty and stays stable for the conversation's lifetime.
type Key string

// Store keeps per-key ordered turn history in process memory. Histories are
// created on first use and never evicted; a process restart resets every
// conversation, which is an accepted property of the system rather than a
// bug to defend against.
//
// The mutex guards the map and slice structure only. Two concurrent turns for
// the same key may still interleave their read-then-append cycles; the log is
// last-write-wins in that case.
type Store struct {
	mu        sync.RWMutex
	histories map[Key][]Turn
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{histories: make(map[Key][]Turn)}
}

// History returns a copy of the ordered turns for key. An unknown key yields
// an empty history.
func (s *Store) History(key Key) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.histories[key]
	out := make([]Turn, len(history))
	copy(out, history)
	return out
}

// Append appends turns to the key's history in the given order.
func (s *Store) Append(key Key, turns ...Turn) {
	if len(turns) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[key] = append(s.histories[key], turns...)
}

// Len reports the number of turns recorded for key.
func (s *Store) Len(key Key) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.histories[key])
}
