package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ripple/internal/models"
)

func TestStore_ReplaceAllSwapsWholesale(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.ReplaceAll([]models.LeaderboardEntry{
		{Username: "ada", Total: 12},
		{Username: "grace", Total: 7},
	})

	s.ReplaceAll([]models.LeaderboardEntry{
		{Username: "grace", Total: 15},
	})

	entries := s.Entries()
	assert.Len(t, entries, 1)
	assert.Equal(t, "grace", entries[0].Username)
	assert.Equal(t, 15, entries[0].Total)
}

func TestStore_EntriesReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.ReplaceAll([]models.LeaderboardEntry{{Username: "ada", Total: 3}})

	entries := s.Entries()
	entries[0].Total = 999

	assert.Equal(t, 3, s.Entries()[0].Total)
}

func TestStore_ClearDropsSnapshot(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.ReplaceAll([]models.LeaderboardEntry{{Username: "ada", Total: 3}})
	s.Clear()

	assert.Zero(t, s.Len())
	assert.Empty(t, s.Entries())
}
