package headtohead

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongladder/internal/dependencies/mocks"
	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/services/ledger"
	"github.com/mcoot/pongladder/internal/services/rating"
	"github.com/mcoot/pongladder/internal/storage/memory"
	"github.com/mcoot/pongladder/internal/storage/sqlite"
	"github.com/mcoot/pongladder/internal/testutil"
)

type ComputeSuite struct {
	suite.Suite
	alice *model.Player
	bob   *model.Player
	start time.Time
	games []*model.Game
}

func TestComputeSuite(t *testing.T) {
	suite.Run(t, new(ComputeSuite))
}

func (s *ComputeSuite) SetupTest() {
	s.alice = &model.Player{ID: 1, Name: "Alice", EloRating: 1000}
	s.bob = &model.Player{ID: 2, Name: "Bob", EloRating: 1000}
	s.start = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.games = nil
}

func score(v int) *int { return &v }

// add appends a game one minute after the previous one. aliceWins selects the winner.
func (s *ComputeSuite) add(aliceWins bool, scores ...int) *model.Game {
	winner, loser := s.alice, s.bob
	if !aliceWins {
		winner, loser = s.bob, s.alice
	}
	g := &model.Game{
		ID:        model.GameID(len(s.games) + 1),
		Winner:    winner.Ref(),
		Loser:     loser.Ref(),
		CreatedAt: s.start.Add(time.Duration(len(s.games)) * time.Minute),
	}
	if len(scores) == 2 {
		g.WinnerScore = score(scores[0])
		g.LoserScore = score(scores[1])
	}
	s.games = append(s.games, g)
	return g
}

func (s *ComputeSuite) compute() *model.HeadToHead {
	h2h, err := Compute(s.alice, s.bob, s.games, DefaultRecentGames)
	s.Require().NoError(err)
	return h2h
}

func (s *ComputeSuite) TestLongestStreakResetsOnLoss() {
	for _, aliceWins := range []bool{true, true, false, true, true, true} {
		s.add(aliceWins)
	}

	h2h := s.compute()
	s.Equal(3, h2h.Player1.LongestWinStreak)
	s.Equal(1, h2h.Player2.LongestWinStreak)
	s.Equal(5, h2h.Player1.GamesWon)
	s.Equal(1, h2h.Player2.GamesWon)
	s.InDelta(5.0/6.0, h2h.Player1.WinProbability, 1e-9)
	s.InDelta(1.0/6.0, h2h.Player2.WinProbability, 1e-9)
}

func (s *ComputeSuite) TestStreakUsesIDForTimestampTies() {
	a := s.add(true)
	b := s.add(false)
	c := s.add(true)
	// All at the same instant; id decides the order A, B, A
	a.CreatedAt, b.CreatedAt, c.CreatedAt = s.start, s.start, s.start

	shuffled := []*model.Game{c, a, b}
	h2h, err := Compute(s.alice, s.bob, shuffled, DefaultRecentGames)
	s.Require().NoError(err)
	s.Equal(1, h2h.Player1.LongestWinStreak)
	s.Equal(c.ID, h2h.RecentGames[0].ID)
}

func (s *ComputeSuite) TestScoreStatsPickNonRecentExtremes() {
	s.add(true, 11, 9)
	blowout := s.add(false, 11, 0)
	tight := s.add(true, 12, 12)
	s.add(true, 11, 4)
	s.add(false)

	h2h := s.compute()
	stats := h2h.ScoreStats
	s.Equal(4, stats.ScoredGames)
	s.Require().NotNil(stats.BiggestBlowout)
	s.Equal(blowout.ID, stats.BiggestBlowout.ID)
	s.Require().NotNil(stats.MostCompetitive)
	s.Equal(tight.ID, stats.MostCompetitive.ID)
	s.InDelta((2.0+11.0+0.0+7.0)/4.0, stats.AvgScoreDifferential, 1e-9)
}

func (s *ComputeSuite) TestScoreStatsTiesGoToEarliest() {
	first := s.add(true, 11, 5)
	s.add(false, 11, 5)

	h2h := s.compute()
	s.Equal(first.ID, h2h.ScoreStats.BiggestBlowout.ID)
	s.Equal(first.ID, h2h.ScoreStats.MostCompetitive.ID)
}

func (s *ComputeSuite) TestPointsIgnoreUnscoredGames() {
	s.add(true, 11, 7)
	s.add(false)
	s.add(false, 11, 3)

	h2h := s.compute()
	s.Equal(14, h2h.Player1.TotalPoints)
	s.InDelta(7.0, h2h.Player1.AvgPointsPerGame, 1e-9)
	s.Equal(18, h2h.Player2.TotalPoints)
	s.InDelta(9.0, h2h.Player2.AvgPointsPerGame, 1e-9)
	s.Equal(3, h2h.TotalGameCount)
}

func (s *ComputeSuite) TestNoScoredGames() {
	s.add(true)

	h2h := s.compute()
	s.Equal(0, h2h.ScoreStats.ScoredGames)
	s.Nil(h2h.ScoreStats.BiggestBlowout)
	s.Nil(h2h.ScoreStats.MostCompetitive)
	s.Zero(h2h.Player1.AvgPointsPerGame)
}

func (s *ComputeSuite) TestFirstPlayedAndRecentGames() {
	for i := 0; i < 5; i++ {
		s.add(i%2 == 0)
	}

	h2h, err := Compute(s.alice, s.bob, s.games, 3)
	s.Require().NoError(err)
	s.Equal(s.start, h2h.FirstPlayedAt)
	s.Equal(5, h2h.TotalGameCount)
	s.Require().Len(h2h.RecentGames, 3)
	s.Equal(model.GameID(5), h2h.RecentGames[0].ID)
	s.Equal(model.GameID(3), h2h.RecentGames[2].ID)
}

func (s *ComputeSuite) TestOrientationFollowsArguments() {
	s.add(true, 11, 5)

	forward := s.compute()
	backward, err := Compute(s.bob, s.alice, s.games, DefaultRecentGames)
	s.Require().NoError(err)

	s.Equal(1, forward.Player1.GamesWon)
	s.Equal(0, backward.Player1.GamesWon)
	s.Equal(s.bob.ID, backward.Player1.ID)
}

func (s *ComputeSuite) TestExpectedScoreFromCurrentRatings() {
	s.alice.EloRating = 1400
	s.add(true)

	h2h := s.compute()
	s.InDelta(10.0/11.0, h2h.Player1.ExpectedScore, 1e-9)
	s.InDelta(1.0/11.0, h2h.Player2.ExpectedScore, 1e-9)
}

func (s *ComputeSuite) TestNoGames() {
	h2h, err := Compute(s.alice, s.bob, nil, DefaultRecentGames)
	s.ErrorIs(err, model.ErrNoGames)
	s.Nil(h2h)
}

type ServiceSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	logs    *bytes.Buffer
	ledger  *ledger.Service
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.clock.SetStep(time.Second)
	var logger *slog.Logger
	logger, s.logs = testutil.BufferLogger()
	s.ledger = ledger.New(memory.New(), rating.New(rating.DefaultKFactor), s.clock, logger, 0)
	s.service = New(s.ledger, logger, 0)
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestHeadToHeadFromLedger() {
	alice, err := s.ledger.CreatePlayer(s.ctx, "Alice")
	s.Require().NoError(err)
	bob, err := s.ledger.CreatePlayer(s.ctx, "Bob")
	s.Require().NoError(err)

	_, err = s.service.HeadToHead(s.ctx, alice.ID, bob.ID)
	s.ErrorIs(err, model.ErrNoGames)

	_, err = s.ledger.RecordGame(s.ctx, model.GameResult{WinnerID: alice.ID, LoserID: bob.ID, WinnerScore: score(11), LoserScore: score(5)})
	s.Require().NoError(err)

	h2h, err := s.service.HeadToHead(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)
	s.Equal(1, h2h.TotalGameCount)
	s.Equal(h2h.ScoreStats.BiggestBlowout.ID, h2h.ScoreStats.MostCompetitive.ID)
	s.Equal(1, h2h.Player1.GamesWon)

	reversed, err := s.service.HeadToHead(s.ctx, bob.ID, alice.ID)
	s.Require().NoError(err)
	s.Equal(0, reversed.Player1.GamesWon)

	s.Contains(s.logs.String(), `"msg":"head-to-head computed"`)
}

func (s *ServiceSuite) TestHeadToHeadUnknownPlayer() {
	alice, err := s.ledger.CreatePlayer(s.ctx, "Alice")
	s.Require().NoError(err)

	_, err = s.service.HeadToHead(s.ctx, alice.ID, 99)
	s.ErrorIs(err, model.ErrPlayerNotFound)
	s.NotContains(s.logs.String(), "failed to load head-to-head")
}

func (s *ServiceSuite) TestHeadToHeadLogsStorageFailure() {
	store, err := sqlite.Open(filepath.Join(s.T().TempDir(), "ladder.db"))
	s.Require().NoError(err)
	logger, logs := testutil.BufferLogger()
	service := New(ledger.New(store, rating.New(rating.DefaultKFactor), s.clock, logger, 0), logger, 0)
	s.Require().NoError(store.Close())

	_, err = service.HeadToHead(s.ctx, 1, 2)
	s.Require().Error(err)
	s.NotErrorIs(err, model.ErrPlayerNotFound)
	s.Contains(logs.String(), `"msg":"failed to load head-to-head"`)
	s.Contains(logs.String(), `"player2_id":2`)
}

func (s *ServiceSuite) TestHeadToHeadSamePlayer() {
	_, err := s.service.HeadToHead(s.ctx, 1, 1)
	s.ErrorIs(err, model.ErrSamePlayer)
}
