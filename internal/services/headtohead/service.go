// Package headtohead derives rivalry statistics from the games between two players.
package headtohead

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/services/ledger"
	"github.com/mcoot/pongladder/internal/services/rating"
)

// DefaultRecentGames bounds the recent games returned with a head-to-head summary
const DefaultRecentGames = 30

// Service answers head-to-head queries on demand from the ledger
type Service struct {
	ledger      *ledger.Service
	logger      *slog.Logger
	recentGames int
}

// New creates a head-to-head service. A non-positive recentGames selects DefaultRecentGames.
func New(ledger *ledger.Service, logger *slog.Logger, recentGames int) *Service {
	if recentGames <= 0 {
		recentGames = DefaultRecentGames
	}
	return &Service{
		ledger:      ledger,
		logger:      logger,
		recentGames: recentGames,
	}
}

// HeadToHead summarises every game between p1 and p2, reported from p1's side first
func (s *Service) HeadToHead(ctx context.Context, p1, p2 model.PlayerID) (*model.HeadToHead, error) {
	if p1 == p2 {
		return nil, model.ErrSamePlayer
	}
	first, second, games, err := s.ledger.PairHistory(ctx, p1, p2)
	if err != nil {
		if !errors.Is(err, model.ErrPlayerNotFound) {
			s.logger.Error("failed to load head-to-head",
				slog.Int64("player1_id", int64(p1)),
				slog.Int64("player2_id", int64(p2)),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	h2h, err := Compute(first, second, games, s.recentGames)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("head-to-head computed",
		slog.Int64("player1_id", int64(p1)),
		slog.Int64("player2_id", int64(p2)),
		slog.Int("games", len(games)),
	)
	return h2h, nil
}

// Compute derives the summary for a pair from their games. The games need not
// be sorted. It fails with model.ErrNoGames when the slice is empty.
func Compute(p1, p2 *model.Player, games []*model.Game, recentGames int) (*model.HeadToHead, error) {
	if len(games) == 0 {
		return nil, model.ErrNoGames
	}

	ordered := make([]*model.Game, len(games))
	copy(ordered, games)
	model.SortGames(ordered)

	first := side{player: p1}
	second := side{player: p2}
	var stats model.ScoreStats
	var differentialSum int

	for _, g := range ordered {
		first.add(g)
		second.add(g)

		if !g.HasScores() {
			continue
		}
		stats.ScoredGames++
		diff := g.Differential()
		differentialSum += abs(diff)
		// Strict comparisons keep the earliest game on ties
		if stats.BiggestBlowout == nil || diff > stats.BiggestBlowout.Differential() {
			stats.BiggestBlowout = g
		}
		if stats.MostCompetitive == nil || diff < stats.MostCompetitive.Differential() {
			stats.MostCompetitive = g
		}
	}
	if stats.ScoredGames > 0 {
		stats.AvgScoreDifferential = float64(differentialSum) / float64(stats.ScoredGames)
	}

	total := len(ordered)
	return &model.HeadToHead{
		Player1:        first.summary(total, rating.ExpectedScore(p1.EloRating, p2.EloRating)),
		Player2:        second.summary(total, rating.ExpectedScore(p2.EloRating, p1.EloRating)),
		FirstPlayedAt:  ordered[0].CreatedAt,
		TotalGameCount: total,
		RecentGames:    model.ReverseGames(ordered, recentGames),
		ScoreStats:     stats,
	}, nil
}

// side accumulates one player's view of the pair's games
type side struct {
	player      *model.Player
	won         int
	streak      int
	longest     int
	points      int
	scoredGames int
}

func (s *side) add(g *model.Game) {
	if g.WonBy(s.player.ID) {
		s.won++
		s.streak++
		if s.streak > s.longest {
			s.longest = s.streak
		}
	} else {
		s.streak = 0
	}

	if pts, ok := g.ScoreFor(s.player.ID); ok {
		s.points += pts
		s.scoredGames++
	}
}

func (s *side) summary(total int, expected float64) model.HeadToHeadPlayer {
	out := model.HeadToHeadPlayer{
		ID:               s.player.ID,
		Name:             s.player.Name,
		GamesWon:         s.won,
		WinProbability:   float64(s.won) / float64(total),
		ExpectedScore:    expected,
		LongestWinStreak: s.longest,
		TotalPoints:      s.points,
	}
	if s.scoredGames > 0 {
		out.AvgPointsPerGame = float64(s.points) / float64(s.scoredGames)
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
