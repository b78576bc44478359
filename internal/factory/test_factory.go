package factory

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/pongladder/internal/dependencies/mocks"
	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/services/achievement"
	"github.com/mcoot/pongladder/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock *mocks.MockClock
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	evaluator, err := newEvaluator("", achievement.DefaultTimezone)
	if err != nil {
		panic(err)
	}

	app := newWithDependencies(store, mockClock, evaluator, Config{}, logger)

	return &TestApp{
		App:       app,
		MockClock: mockClock,
	}
}

// SeedPlayers creates players with the given names, in order
func (t *TestApp) SeedPlayers(names ...string) ([]*model.Player, error) {
	players := make([]*model.Player, 0, len(names))
	for _, name := range names {
		p, err := t.LedgerService.CreatePlayer(context.Background(), name)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

// RecordWin records an unscored game and advances the clock by a minute
func (t *TestApp) RecordWin(winner, loser model.PlayerID) (*model.Game, error) {
	g, err := t.LedgerService.RecordGame(context.Background(), model.GameResult{WinnerID: winner, LoserID: loser})
	if err != nil {
		return nil, err
	}
	t.MockClock.Advance(time.Minute)
	return g, nil
}
