// Package achievement derives milestone unlocks from a player's game history.
//
// Unlocks are never stored: every query re-evaluates the catalog over the
// ledger, so the same history always yields the same set.
package achievement

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/services/ledger"
)

// UnlockObserver is notified when a recorded game unlocks achievements
type UnlockObserver interface {
	AchievementsUnlocked(ctx context.Context, playerID model.PlayerID, game *model.Game, unlocked []model.Achievement)
}

// Service answers achievement queries and reports new unlocks after each game
type Service struct {
	ledger    *ledger.Service
	evaluator *Evaluator
	logger    *slog.Logger

	observersMu sync.RWMutex
	observers   []UnlockObserver
}

// Ensure Service observes the ledger
var _ ledger.Observer = (*Service)(nil)

// New creates an achievement service
func New(ledger *ledger.Service, evaluator *Evaluator, logger *slog.Logger) *Service {
	return &Service{
		ledger:    ledger,
		evaluator: evaluator,
		logger:    logger,
	}
}

// Subscribe registers an observer for new unlocks
func (s *Service) Subscribe(o UnlockObserver) {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	s.observers = append(s.observers, o)
}

// Catalog returns the configured achievements in display order
func (s *Service) Catalog() []model.Achievement {
	return s.evaluator.Catalog()
}

// AchievementsFor returns the achievements a player has unlocked
func (s *Service) AchievementsFor(ctx context.Context, id model.PlayerID) ([]model.Achievement, error) {
	_, games, err := s.ledger.PlayerHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.evaluator.Evaluate(id, games), nil
}

// Evaluate returns the achievements unlocked by an already loaded history
func (s *Service) Evaluate(id model.PlayerID, games []*model.Game) []model.Achievement {
	return s.evaluator.Evaluate(id, games)
}

// GameRecorded re-evaluates both players, logs anything the game unlocked
// and passes the unlocks on to observers
func (s *Service) GameRecorded(ctx context.Context, game *model.Game) {
	for _, id := range []model.PlayerID{game.Winner.ID, game.Loser.ID} {
		unlocked, err := s.NewlyUnlocked(ctx, id, game)
		if err != nil {
			s.logger.Error("failed to evaluate achievements",
				slog.Int64("player_id", int64(id)),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, a := range unlocked {
			s.logger.Info("achievement unlocked",
				slog.Int64("player_id", int64(id)),
				slog.Int64("game_id", int64(game.ID)),
				slog.Int("achievement_id", int(a.ID)),
				slog.String("title", a.Title),
			)
		}
		if len(unlocked) > 0 {
			s.notify(ctx, id, game, unlocked)
		}
	}
}

func (s *Service) notify(ctx context.Context, id model.PlayerID, game *model.Game, unlocked []model.Achievement) {
	s.observersMu.RLock()
	observers := make([]UnlockObserver, len(s.observers))
	copy(observers, s.observers)
	s.observersMu.RUnlock()

	for _, o := range observers {
		o.AchievementsUnlocked(ctx, id, game, unlocked)
	}
}

// NewlyUnlocked returns the achievements a player holds after game but not before it
func (s *Service) NewlyUnlocked(ctx context.Context, id model.PlayerID, game *model.Game) ([]model.Achievement, error) {
	_, games, err := s.ledger.PlayerHistory(ctx, id)
	if err != nil {
		return nil, err
	}

	before := make([]*model.Game, 0, len(games))
	upTo := make([]*model.Game, 0, len(games))
	for _, g := range games {
		if g.ID == game.ID || g.Before(game) {
			upTo = append(upTo, g)
			if g.ID != game.ID {
				before = append(before, g)
			}
		}
	}

	had := make(map[model.AchievementID]bool)
	for _, a := range s.evaluator.Evaluate(id, before) {
		had[a.ID] = true
	}
	var unlocked []model.Achievement
	for _, a := range s.evaluator.Evaluate(id, upTo) {
		if !had[a.ID] {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked, nil
}
