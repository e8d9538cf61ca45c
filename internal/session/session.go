// Package session keeps a short rolling history of turns per sender so the
// next completion can see what was said before. Nothing is persisted.
package session

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSenders bounds how many senders are remembered at once.
const DefaultMaxSenders = 1000

// Store holds at most depth entries per sender for the most recently active
// senders. The zero depth disables it.
type Store struct {
	mu      sync.Mutex
	depth   int
	history *lru.Cache[string, []string]
}

// New creates a store keeping the last depth entries for up to maxSenders
// senders. A non-positive maxSenders uses DefaultMaxSenders. When full, the
// least recently active sender is forgotten.
func New(depth, maxSenders int) *Store {
	if depth < 0 {
		depth = 0
	}
	if maxSenders <= 0 {
		maxSenders = DefaultMaxSenders
	}
	cache, _ := lru.New[string, []string](maxSenders) // only fails for size <= 0
	return &Store{depth: depth, history: cache}
}

// History returns a copy of the sender's entries, oldest first.
func (s *Store) History(sender string) []string {
	if s == nil || s.depth == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h, _ := s.history.Get(sender)
	if len(h) == 0 {
		return nil
	}
	out := make([]string, len(h))
	copy(out, h)
	return out
}

// Append records entries for sender, dropping the oldest beyond depth.
// Empty entries are ignored.
func (s *Store) Append(sender string, entries ...string) {
	if s == nil || s.depth == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	h, _ := s.history.Get(sender)
	h = append([]string(nil), h...)
	for _, e := range entries {
		if e != "" {
			h = append(h, e)
		}
	}
	if over := len(h) - s.depth; over > 0 {
		h = h[over:]
	}
	if len(h) == 0 {
		return
	}
	s.history.Add(sender, h)
}

// Reset forgets everything recorded for sender.
func (s *Store) Reset(sender string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Remove(sender)
}

// Len returns the number of senders with history.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}
