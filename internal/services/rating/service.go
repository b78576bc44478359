// Package rating implements the Elo update applied to every recorded game.
package rating

import (
	"math"

	"github.com/mcoot/pongladder/internal/model"
)

const (
	// DefaultKFactor is the maximum rating change a single game can cause
	DefaultKFactor = 32.0
	// Epsilon is the tolerance used when comparing ratings for equality
	Epsilon = 1e-9
	// eloScale is the rating difference at which the expected score is ten to one
	eloScale = 400.0
)

// Engine computes Elo rating updates. It is stateless and safe for concurrent use.
type Engine struct {
	kFactor float64
}

// New creates an Engine with the given K-factor. A non-positive value selects DefaultKFactor.
func New(kFactor float64) *Engine {
	if kFactor <= 0 || math.IsNaN(kFactor) || math.IsInf(kFactor, 0) {
		kFactor = DefaultKFactor
	}
	return &Engine{kFactor: kFactor}
}

// KFactor returns the configured K-factor
func (e *Engine) KFactor() float64 {
	return e.kFactor
}

// ExpectedScore returns the probability that a player rated r beats one rated opponent
func ExpectedScore(r, opponent float64) float64 {
	return 1 / (1 + math.Pow(10, (opponent-r)/eloScale))
}

// ApplyResult returns both players' new ratings after winner beats loser.
// Both updates are computed from the same pre-game ratings, so the two
// deltas always sum to zero.
func (e *Engine) ApplyResult(winner, loser *model.Player) (winnerAfter, loserAfter float64, err error) {
	if winner == nil || loser == nil {
		return 0, 0, model.ErrInvalidPlayer
	}
	if winner.ID == loser.ID {
		return 0, 0, model.ErrSamePlayer
	}
	winnerAfter, loserAfter = e.Update(winner.EloRating, loser.EloRating)
	return winnerAfter, loserAfter, nil
}

// Update applies a single win to the rating pair
func (e *Engine) Update(winnerRating, loserRating float64) (winnerAfter, loserAfter float64) {
	delta := e.kFactor * (1 - ExpectedScore(winnerRating, loserRating))
	return winnerRating + delta, loserRating - delta
}

// Replay folds a chronological game sequence into final ratings, starting every
// player at model.DefaultRating
func (e *Engine) Replay(games []*model.Game) map[model.PlayerID]float64 {
	ratings := make(map[model.PlayerID]float64)
	current := func(id model.PlayerID) float64 {
		if r, ok := ratings[id]; ok {
			return r
		}
		return model.DefaultRating
	}
	for _, g := range games {
		w, l := e.Update(current(g.Winner.ID), current(g.Loser.ID))
		ratings[g.Winner.ID] = w
		ratings[g.Loser.ID] = l
	}
	return ratings
}

// Equal reports whether two ratings agree within Epsilon
func Equal(a, b float64) bool {
	return math.Abs(a-b) <= Epsilon
}
