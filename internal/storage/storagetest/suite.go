// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/storage"
)

// Suite runs the storage contract against the backend returned by NewStorage.
// Backends embed it and set NewStorage before running.
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	Storage storage.Storage
	ctx     context.Context
	now     time.Time
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.Storage = s.NewStorage()
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
}

func score(v int) *int { return &v }

func (s *Suite) createPlayer(name string) *model.Player {
	player := &model.Player{Name: name, EloRating: model.DefaultRating, CreatedAt: s.now}
	s.Require().NoError(s.Storage.CreatePlayer(s.ctx, player))
	return player
}

// commit records a game at the given minute offset using the players' current versions
func (s *Suite) commit(winnerID, loserID model.PlayerID, minute int, scores ...int) *model.Game {
	winner, err := s.Storage.GetPlayer(s.ctx, winnerID)
	s.Require().NoError(err)
	loser, err := s.Storage.GetPlayer(s.ctx, loserID)
	s.Require().NoError(err)

	game := model.Game{
		Winner:             winner.Ref(),
		Loser:              loser.Ref(),
		WinnerRatingBefore: winner.EloRating,
		WinnerRatingAfter:  winner.EloRating + 16,
		LoserRatingBefore:  loser.EloRating,
		LoserRatingAfter:   loser.EloRating - 16,
		CreatedAt:          s.now.Add(time.Duration(minute) * time.Minute),
	}
	if len(scores) == 2 {
		game.WinnerScore = score(scores[0])
		game.LoserScore = score(scores[1])
	}

	stored, err := s.Storage.CommitGame(s.ctx, &model.GameCommit{
		Game:          game,
		WinnerVersion: winner.Version,
		LoserVersion:  loser.Version,
	})
	s.Require().NoError(err)
	return stored
}

// Player registry

func (s *Suite) TestCreateAndGetPlayer() {
	alice := s.createPlayer("Alice")
	s.NotZero(alice.ID)
	s.Equal(int64(1), alice.Version)

	retrieved, err := s.Storage.GetPlayer(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal("Alice", retrieved.Name)
	s.Equal(model.DefaultRating, retrieved.EloRating)
	s.Equal(int64(1), retrieved.Version)
	s.True(s.now.Equal(retrieved.CreatedAt))
}

func (s *Suite) TestPlayerIDsIncrease() {
	alice := s.createPlayer("Alice")
	bob := s.createPlayer("Bob")
	s.Greater(bob.ID, alice.ID)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.ctx, 999)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestCreatePlayerDuplicateNameIgnoresCase() {
	s.createPlayer("Alice")

	err := s.Storage.CreatePlayer(s.ctx, &model.Player{Name: "alice", EloRating: model.DefaultRating, CreatedAt: s.now})
	s.ErrorIs(err, model.ErrValidation)
	s.ErrorIs(err, model.ErrPlayerNameTaken)
}

func (s *Suite) TestListPlayers() {
	s.createPlayer("Alice")
	s.createPlayer("Bob")

	players, err := s.Storage.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Len(players, 2)
}

func (s *Suite) TestListPlayersEmpty() {
	players, err := s.Storage.ListPlayers(s.ctx)
	s.Require().NoError(err)
	s.Empty(players)
}

// Ledger

func (s *Suite) TestCommitGameUpdatesBothPlayers() {
	alice := s.createPlayer("Alice")
	bob := s.createPlayer("Bob")

	game := s.commit(alice.ID, bob.ID, 0, 11, 7)
	s.NotZero(game.ID)
	s.Equal("Alice", game.Winner.Name)
	s.Equal("Bob", game.Loser.Name)

	winner, err := s.Storage.GetPlayer(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.InDelta(1016.0, winner.EloRating, 1e-9)
	s.Equal(int64(2), winner.Version)

	loser, err := s.Storage.GetPlayer(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.InDelta(984.0, loser.EloRating, 1e-9)
	s.Equal(int64(2), loser.Version)
}

func (s *Suite) TestCommitGameKeepsRatingSnapshot() {
	alice := s.createPlayer("Alice")
	bob := s.createPlayer("Bob")
	s.commit(alice.ID, bob.ID, 0)

	games, err := s.Storage.ListGames(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(games, 1)
	s.InDelta(1000.0, games[0].WinnerRatingBefore, 1e-9)
	s.InDelta(1016.0, games[0].WinnerRatingAfter, 1e-9)
	s.InDelta(1000.0, games[0].LoserRatingBefore, 1e-9)
	s.InDelta(984.0, games[0].LoserRatingAfter, 1e-9)
	s.Nil(games[0].WinnerScore)
	s.Nil(games[0].LoserScore)
}

func (s *Suite) TestCommitGameStaleVersionConflicts() {
	alice := s.createPlayer("Alice")
	bob := s.createPlayer("Bob")
	s.commit(alice.ID, bob.ID, 0)

	_, err := s.Storage.CommitGame(s.ctx, &model.GameCommit{
		Game: model.Game{
			Winner:    alice.Ref(),
			Loser:     bob.Ref(),
			CreatedAt: s.now,
		},
		WinnerVersion: alice.Version,
		LoserVersion:  bob.Version,
	})
	s.ErrorIs(err, model.ErrConflict)

	games, err := s.Storage.ListGames(s.ctx)
	s.Require().NoError(err)
	s.Len(games, 1, "a rejected commit must not append to the ledger")

	current, err := s.Storage.GetPlayer(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.InDelta(1016.0, current.EloRating, 1e-9)
}

func (s *Suite) TestCommitGameUnknownPlayer() {
	alice := s.createPlayer("Alice")

	_, err := s.Storage.CommitGame(s.ctx, &model.GameCommit{
		Game: model.Game{
			Winner:    alice.Ref(),
			Loser:     model.PlayerRef{ID: 999},
			CreatedAt: s.now,
		},
		WinnerVersion: alice.Version,
		LoserVersion:  1,
	})
	s.ErrorIs(err, model.ErrInvalidPlayer)

	current, err := s.Storage.GetPlayer(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal(model.DefaultRating, current.EloRating)
	s.Equal(int64(1), current.Version)
}

func (s *Suite) TestGameIDsIncrease() {
	alice := s.createPlayer("Alice")
	bob := s.createPlayer("Bob")

	first := s.commit(alice.ID, bob.ID, 0)
	second := s.commit(bob.ID, alice.ID, 1)
	s.Greater(second.ID, first.ID)
}

func (s *Suite) TestListGamesChronological() {
	alice := s.createPlayer("Alice")
	bob := s.createPlayer("Bob")

	s.commit(alice.ID, bob.ID, 5)
	s.commit(bob.ID, alice.ID, 1)
	s.commit(alice.ID, bob.ID, 5)

	games, err := s.Storage.ListGames(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(games, 3)
	for i := 1; i < len(games); i++ {
		s.True(games[i-1].Before(games[i]), "game %d out of order", i)
	}
}

func (s *Suite) TestGetPlayerGames() {
	alice := s.createPlayer("Alice")
	bob := s.createPlayer("Bob")
	carol := s.createPlayer("Carol")

	s.commit(alice.ID, bob.ID, 0)
	s.commit(carol.ID, bob.ID, 1)
	s.commit(alice.ID, carol.ID, 2)

	games, err := s.Storage.GetPlayerGames(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Len(games, 2)
	for _, g := range games {
		s.True(g.Involves(alice.ID))
	}
}

func (s *Suite) TestGetPlayerGamesUnknownPlayer() {
	_, err := s.Storage.GetPlayerGames(s.ctx, 999)
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetPairGamesEitherOrder() {
	alice := s.createPlayer("Alice")
	bob := s.createPlayer("Bob")
	carol := s.createPlayer("Carol")

	s.commit(alice.ID, bob.ID, 0)
	s.commit(bob.ID, alice.ID, 1)
	s.commit(alice.ID, carol.ID, 2)

	forward, err := s.Storage.GetPairGames(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)
	backward, err := s.Storage.GetPairGames(s.ctx, bob.ID, alice.ID)
	s.Require().NoError(err)

	s.Len(forward, 2)
	s.Len(backward, 2)
	s.Equal(forward[0].ID, backward[0].ID)
}

func (s *Suite) TestGetPairGamesNone() {
	alice := s.createPlayer("Alice")
	bob := s.createPlayer("Bob")

	games, err := s.Storage.GetPairGames(s.ctx, alice.ID, bob.ID)
	s.Require().NoError(err)
	s.Empty(games)
}

func (s *Suite) TestGlobalStats() {
	alice := s.createPlayer("Alice")
	bob := s.createPlayer("Bob")

	stats, err := s.Storage.GetGlobalStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(model.GlobalStats{}, stats)

	s.commit(alice.ID, bob.ID, 0, 11, 5)
	s.commit(bob.ID, alice.ID, 1)
	s.commit(alice.ID, bob.ID, 2, 12, 10)

	stats, err = s.Storage.GetGlobalStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, stats.TotalGames)
	s.Equal(38, stats.TotalPoints)
}

func (s *Suite) TestConcurrentCommitsOnlyOneWins() {
	alice := s.createPlayer("Alice")
	bob := s.createPlayer("Bob")

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Storage.CommitGame(s.ctx, &model.GameCommit{
				Game: model.Game{
					Winner:            alice.Ref(),
					Loser:             bob.Ref(),
					WinnerRatingAfter: 1016,
					LoserRatingAfter:  984,
					CreatedAt:         s.now,
				},
				WinnerVersion: alice.Version,
				LoserVersion:  bob.Version,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, succeeded)
	games, err := s.Storage.ListGames(s.ctx)
	s.Require().NoError(err)
	s.Len(games, 1)
}

func (s *Suite) TestViewReturnsCallbackError() {
	stop := errors.New("stop")
	err := s.Storage.View(s.ctx, func(storage.Reader) error { return stop })
	s.ErrorIs(err, stop)
}

func (s *Suite) TestViewReadsPlayersAndGames() {
	alice := s.createPlayer("Alice")
	bob := s.createPlayer("Bob")
	s.commit(alice.ID, bob.ID, 1, 11, 4)

	err := s.Storage.View(s.ctx, func(r storage.Reader) error {
		player, err := r.GetPlayer(s.ctx, alice.ID)
		s.Require().NoError(err)
		s.Equal(int64(2), player.Version)

		games, err := r.GetPlayerGames(s.ctx, bob.ID)
		s.Require().NoError(err)
		s.Len(games, 1)

		pair, err := r.GetPairGames(s.ctx, bob.ID, alice.ID)
		s.Require().NoError(err)
		s.Len(pair, 1)

		stats, err := r.GetGlobalStats(s.ctx)
		s.Require().NoError(err)
		s.Equal(model.GlobalStats{TotalGames: 1, TotalPoints: 15}, stats)
		return nil
	})
	s.Require().NoError(err)
}

// Writers go straight to storage, as a second process sharing the backend would
func (s *Suite) TestViewNeverSeesHalfACommit() {
	players := []*model.Player{
		s.createPlayer("Alice"),
		s.createPlayer("Bob"),
		s.createPlayer("Carol"),
	}
	total := float64(len(players)) * model.DefaultRating

	const (
		writers        = 3
		gamesPerWriter = 25
		readers        = 3
	)

	var (
		writersWG sync.WaitGroup
		readersWG sync.WaitGroup
		done      = make(chan struct{})
		mu        sync.Mutex
		torn      []string
	)

	// Only a snapshot View returned successfully is judged; a backend may
	// rerun fn after reading across a commit.
	checkSnapshot := func() error {
		var (
			current []*model.Player
			stats   model.GlobalStats
		)
		err := s.Storage.View(s.ctx, func(r storage.Reader) error {
			var err error
			if current, err = r.ListPlayers(s.ctx); err != nil {
				return err
			}
			stats, err = r.GetGlobalStats(s.ctx)
			return err
		})
		if err != nil {
			return err
		}

		var (
			sum   float64
			bumps int64
		)
		for _, p := range current {
			sum += p.EloRating
			bumps += p.Version - 1
		}
		if sum < total-1e-6 || sum > total+1e-6 || bumps != 2*int64(stats.TotalGames) {
			mu.Lock()
			torn = append(torn, fmt.Sprintf("ratings sum %f, %d version bumps, %d games", sum, bumps, stats.TotalGames))
			mu.Unlock()
		}
		return nil
	}

	for w := 0; w < writers; w++ {
		writersWG.Add(1)
		go func(w int) {
			defer writersWG.Done()
			for committed := 0; committed < gamesPerWriter; {
				winner, err := s.Storage.GetPlayer(s.ctx, players[w].ID)
				if !s.NoError(err) {
					return
				}
				loser, err := s.Storage.GetPlayer(s.ctx, players[(w+1)%len(players)].ID)
				if !s.NoError(err) {
					return
				}
				_, err = s.Storage.CommitGame(s.ctx, &model.GameCommit{
					Game: model.Game{
						Winner:             winner.Ref(),
						Loser:              loser.Ref(),
						WinnerRatingBefore: winner.EloRating,
						WinnerRatingAfter:  winner.EloRating + 1,
						LoserRatingBefore:  loser.EloRating,
						LoserRatingAfter:   loser.EloRating - 1,
						CreatedAt:          s.now,
					},
					WinnerVersion: winner.Version,
					LoserVersion:  loser.Version,
				})
				if errors.Is(err, model.ErrConflict) {
					continue
				}
				if !s.NoError(err) {
					return
				}
				committed++
			}
		}(w)
	}

	for r := 0; r < readers; r++ {
		readersWG.Add(1)
		go func() {
			defer readersWG.Done()
			for {
				// A backend may give up on a snapshot under heavy contention
				if err := checkSnapshot(); err != nil && !errors.Is(err, model.ErrConflict) {
					s.NoError(err)
					return
				}
				select {
				case <-done:
					return
				default:
				}
			}
		}()
	}

	writersWG.Wait()
	close(done)
	readersWG.Wait()

	s.Require().NoError(checkSnapshot())
	s.Empty(torn)

	stats, err := s.Storage.GetGlobalStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(writers*gamesPerWriter, stats.TotalGames)
}
