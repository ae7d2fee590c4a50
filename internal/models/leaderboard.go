package models

// LeaderboardEntry is one row of the leaderboard. Rank is implied by
// position in the slice the server returns.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Total    int    `json:"total"`
}
