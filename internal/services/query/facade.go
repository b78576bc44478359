// Package query assembles the composite read views served to clients.
package query

import (
	"context"

	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/services/achievement"
	"github.com/mcoot/pongladder/internal/services/headtohead"
	"github.com/mcoot/pongladder/internal/services/ledger"
)

// Facade is a read-only aggregation over the ledger, head-to-head and
// achievement services. Errors are returned unchanged.
type Facade struct {
	ledger       *ledger.Service
	headToHead   *headtohead.Service
	achievements *achievement.Service
}

// NewFacade creates a Facade
func NewFacade(
	ledger *ledger.Service,
	headToHead *headtohead.Service,
	achievements *achievement.Service,
) *Facade {
	return &Facade{
		ledger:       ledger,
		headToHead:   headToHead,
		achievements: achievements,
	}
}

// IndexData returns the leaderboard together with ladder-wide totals
func (f *Facade) IndexData(ctx context.Context) (*model.IndexData, error) {
	return f.ledger.Index(ctx)
}

// Leaderboard returns players by rating descending, ties by id ascending
func (f *Facade) Leaderboard(ctx context.Context) ([]*model.Player, error) {
	return f.ledger.Leaderboard(ctx)
}

// Achievements returns the achievement catalog
func (f *Facade) Achievements() []model.Achievement {
	return f.achievements.Catalog()
}

// PlayerProfile returns a player with their counters, recent games and unlocked achievements
func (f *Facade) PlayerProfile(ctx context.Context, id model.PlayerID) (*model.PlayerProfile, error) {
	player, games, err := f.ledger.PlayerHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	stats := f.ledger.PlayerStats(id, games)
	return &model.PlayerProfile{
		Player:       player,
		GamesPlayed:  stats.GamesPlayed,
		GamesWon:     stats.GamesWon,
		RecentGames:  stats.RecentGames,
		Achievements: f.achievements.Evaluate(id, games),
	}, nil
}

// HeadToHead returns the rivalry summary between p1 and p2
func (f *Facade) HeadToHead(ctx context.Context, p1, p2 model.PlayerID) (*model.HeadToHead, error) {
	return f.headToHead.HeadToHead(ctx, p1, p2)
}
