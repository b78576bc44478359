package storage

import (
	"context"

	"github.com/mcoot/pongladder/internal/model"
)

// Reader is the read side of the store
type Reader interface {
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	ListPlayers(ctx context.Context) ([]*model.Player, error)
	ListGames(ctx context.Context) ([]*model.Game, error)
	GetPlayerGames(ctx context.Context, id model.PlayerID) ([]*model.Game, error)
	GetPairGames(ctx context.Context, a, b model.PlayerID) ([]*model.Game, error)
	GetGlobalStats(ctx context.Context) (model.GlobalStats, error)
}

// Storage defines the interface for data persistence.
//
// The ledger is append-only: games are never updated or deleted. A player's
// rating only changes through CommitGame, which must append the game and
// update both ratings as a single atomic unit.
type Storage interface {
	Reader

	CreatePlayer(ctx context.Context, player *model.Player) error
	CommitGame(ctx context.Context, commit *model.GameCommit) (*model.Game, error)

	// View runs fn against one point-in-time state of the store, so that
	// several reads agree with each other even while other processes commit.
	// fn may run more than once and must only read through r.
	View(ctx context.Context, fn func(r Reader) error) error
}

// PairKey returns an order-independent key for a pair of players
func PairKey(a, b model.PlayerID) (model.PlayerID, model.PlayerID) {
	if a > b {
		return b, a
	}
	return a, b
}

// GamePoints returns the points contributed by a game to the global total
func GamePoints(g *model.Game) int {
	if !g.HasScores() {
		return 0
	}
	return *g.WinnerScore + *g.LoserScore
}
