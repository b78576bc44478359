package request

// CreatePlayerRequest is the request body for creating a player
type CreatePlayerRequest struct {
	Name string `json:"name"`
}

// RecordGameRequest is the request body for recording a game.
// Scores are optional but must be given together.
type RecordGameRequest struct {
	WinnerID    *int64 `json:"winnerId"`
	LoserID     *int64 `json:"loserId"`
	WinnerScore *int   `json:"winnerScore,omitempty"`
	LoserScore  *int   `json:"loserScore,omitempty"`
}
