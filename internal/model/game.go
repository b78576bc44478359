package model

import (
	"sort"
	"time"
)

// GameID uniquely identifies a recorded game. IDs increase in creation order.
type GameID int64

// MaxScore is the highest score a single side may record
const MaxScore = 255

// GameResult is the input of a game submission
type GameResult struct {
	WinnerID    PlayerID
	LoserID     PlayerID
	WinnerScore *int
	LoserScore  *int
}

// Game is an immutable ledger entry. The rating fields capture both players'
// ratings immediately before and after the game was applied.
type Game struct {
	ID          GameID
	Winner      PlayerRef
	Loser       PlayerRef
	WinnerScore *int
	LoserScore  *int

	WinnerRatingBefore float64
	WinnerRatingAfter  float64
	LoserRatingBefore  float64
	LoserRatingAfter   float64

	CreatedAt time.Time
}

// HasScores reports whether both scores were recorded
func (g *Game) HasScores() bool {
	return g.WinnerScore != nil && g.LoserScore != nil
}

// Differential returns winnerScore - loserScore. Only meaningful when HasScores is true.
func (g *Game) Differential() int {
	if !g.HasScores() {
		return 0
	}
	return *g.WinnerScore - *g.LoserScore
}

// Involves reports whether the player took part in the game
func (g *Game) Involves(id PlayerID) bool {
	return g.Winner.ID == id || g.Loser.ID == id
}

// WonBy reports whether the given player won the game
func (g *Game) WonBy(id PlayerID) bool {
	return g.Winner.ID == id
}

// Opponent returns the other participant from the given player's point of view
func (g *Game) Opponent(id PlayerID) PlayerRef {
	if g.Winner.ID == id {
		return g.Loser
	}
	return g.Winner
}

// ScoreFor returns the score the given player recorded in the game
func (g *Game) ScoreFor(id PlayerID) (int, bool) {
	if !g.HasScores() {
		return 0, false
	}
	if g.Winner.ID == id {
		return *g.WinnerScore, true
	}
	return *g.LoserScore, true
}

// RatingAfter returns the given player's rating after the game was applied
func (g *Game) RatingAfter(id PlayerID) float64 {
	if g.Winner.ID == id {
		return g.WinnerRatingAfter
	}
	return g.LoserRatingAfter
}

// Before defines the ledger's total order: createdAt ascending, ties broken by id
func (g *Game) Before(other *Game) bool {
	if !g.CreatedAt.Equal(other.CreatedAt) {
		return g.CreatedAt.Before(other.CreatedAt)
	}
	return g.ID < other.ID
}

// SortGames orders games chronologically in place
func SortGames(games []*Game) {
	sort.SliceStable(games, func(i, j int) bool {
		return games[i].Before(games[j])
	})
}

// ReverseGames returns a new slice holding the games most-recent-first,
// truncated to limit entries when limit > 0
func ReverseGames(games []*Game, limit int) []*Game {
	n := len(games)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Game, 0, n)
	for i := len(games) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, games[i])
	}
	return out
}

// GameCommit is the unit of mutation handed to storage: the new ledger entry
// plus the player versions the ratings were computed from. Storage assigns
// Game.ID and applies the "after" ratings to both players atomically.
type GameCommit struct {
	Game          Game
	WinnerVersion int64
	LoserVersion  int64
}
