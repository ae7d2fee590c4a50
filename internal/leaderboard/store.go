// Package leaderboard holds the ranked list of user aggregate scores.
package leaderboard

import (
	"sync"

	"ripple/internal/models"
)

// Store keeps the latest leaderboard snapshot. It is replaced wholesale on
// each refresh; there is no incremental patching, and a failed refresh keeps
// the last-known-good snapshot.
type Store struct {
	mu      sync.RWMutex
	entries []models.LeaderboardEntry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// ReplaceAll atomically swaps in a fresh snapshot.
func (s *Store) ReplaceAll(entries []models.LeaderboardEntry) {
	fresh := make([]models.LeaderboardEntry, len(entries))
	copy(fresh, entries)

	s.mu.Lock()
	s.entries = fresh
	s.mu.Unlock()
}

// Entries returns a copy of the current snapshot, rank implied by position.
func (s *Store) Entries() []models.LeaderboardEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LeaderboardEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of ranked entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear drops the snapshot, used when the viewer identity changes.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}
