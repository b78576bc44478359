// Package ledger records games and players and serves the reads derived from them.
//
// Every write runs under a single write lock covering validate, read, compute
// and commit. Storage additionally rejects commits computed from stale player
// versions, so several processes sharing one backend still never interleave a
// rating update. Reads that combine several lookups run inside storage.View
// and see either all or none of any commit.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mcoot/pongladder/internal/dependencies/clock"
	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/services/rating"
	"github.com/mcoot/pongladder/internal/storage"
)

// DefaultRecentGames bounds the recent games returned with player stats
const DefaultRecentGames = 20

// Observer is notified after a game has been committed
type Observer interface {
	GameRecorded(ctx context.Context, game *model.Game)
}

// Service owns the ledger and the player registry
type Service struct {
	storage     storage.Storage
	engine      *rating.Engine
	clock       clock.Clock
	logger      *slog.Logger
	recentGames int

	// mu serialises writes within this process
	mu sync.Mutex

	observersMu sync.RWMutex
	observers   []Observer
}

// New creates a ledger service. A non-positive recentGames selects DefaultRecentGames.
func New(
	storage storage.Storage,
	engine *rating.Engine,
	clock clock.Clock,
	logger *slog.Logger,
	recentGames int,
) *Service {
	if recentGames <= 0 {
		recentGames = DefaultRecentGames
	}
	return &Service{
		storage:     storage,
		engine:      engine,
		clock:       clock,
		logger:      logger,
		recentGames: recentGames,
	}
}

// Subscribe registers an observer for committed games
func (s *Service) Subscribe(o Observer) {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	s.observers = append(s.observers, o)
}

// CreatePlayer registers a new player at the default rating
func (s *Service) CreatePlayer(ctx context.Context, name string) (*model.Player, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	player := &model.Player{
		Name:      name,
		EloRating: model.DefaultRating,
		CreatedAt: s.clock.Now(),
	}
	if err := s.storage.CreatePlayer(ctx, player); err != nil {
		if !errors.Is(err, model.ErrValidation) {
			s.logger.Error("failed to create player",
				slog.String("name", name),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("player created",
		slog.Int64("player_id", int64(player.ID)),
		slog.String("name", player.Name),
	)
	return player, nil
}

// RecordGame validates a result, appends it to the ledger and applies the
// rating update to both players in one commit. Nothing is written on error.
func (s *Service) RecordGame(ctx context.Context, result model.GameResult) (*model.Game, error) {
	if result.WinnerID == result.LoserID {
		return nil, model.ErrSamePlayer
	}
	if err := validateScores(result.WinnerScore, result.LoserScore); err != nil {
		return nil, err
	}

	s.mu.Lock()
	game, err := s.commit(ctx, result)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("game rejected",
			slog.Int64("winner_id", int64(result.WinnerID)),
			slog.Int64("loser_id", int64(result.LoserID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("game recorded",
		slog.Int64("game_id", int64(game.ID)),
		slog.Int64("winner_id", int64(game.Winner.ID)),
		slog.Int64("loser_id", int64(game.Loser.ID)),
		slog.Float64("winner_rating", game.WinnerRatingAfter),
		slog.Float64("loser_rating", game.LoserRatingAfter),
	)

	s.notify(ctx, game)
	return game, nil
}

// commit must be called with the write lock held
func (s *Service) commit(ctx context.Context, result model.GameResult) (*model.Game, error) {
	winner, err := s.participant(ctx, result.WinnerID)
	if err != nil {
		return nil, err
	}
	loser, err := s.participant(ctx, result.LoserID)
	if err != nil {
		return nil, err
	}

	winnerAfter, loserAfter, err := s.engine.ApplyResult(winner, loser)
	if err != nil {
		return nil, err
	}

	return s.storage.CommitGame(ctx, &model.GameCommit{
		Game: model.Game{
			Winner:             winner.Ref(),
			Loser:              loser.Ref(),
			WinnerScore:        result.WinnerScore,
			LoserScore:         result.LoserScore,
			WinnerRatingBefore: winner.EloRating,
			WinnerRatingAfter:  winnerAfter,
			LoserRatingBefore:  loser.EloRating,
			LoserRatingAfter:   loserAfter,
			CreatedAt:          s.clock.Now(),
		},
		WinnerVersion: winner.Version,
		LoserVersion:  loser.Version,
	})
}

func (s *Service) participant(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	player, err := s.storage.GetPlayer(ctx, id)
	if errors.Is(err, model.ErrPlayerNotFound) {
		return nil, fmt.Errorf("player %d: %w", id, model.ErrInvalidPlayer)
	}
	return player, err
}

func (s *Service) notify(ctx context.Context, game *model.Game) {
	s.observersMu.RLock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.observersMu.RUnlock()

	for _, o := range observers {
		o.GameRecorded(ctx, game)
	}
}

// GetPlayer returns a player's current snapshot
func (s *Service) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return s.storage.GetPlayer(ctx, id)
}

// KFactor returns the K-factor new games are rated with
func (s *Service) KFactor() float64 {
	return s.engine.KFactor()
}

// Leaderboard returns every player by rating descending, ties broken by id ascending
func (s *Service) Leaderboard(ctx context.Context) ([]*model.Player, error) {
	return leaderboard(ctx, s.storage)
}

func leaderboard(ctx context.Context, r storage.Reader) ([]*model.Player, error) {
	players, err := r.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	SortLeaderboard(players)
	return players, nil
}

// SortLeaderboard orders players by rating descending, then id ascending
func SortLeaderboard(players []*model.Player) {
	sort.Slice(players, func(i, j int) bool {
		if players[i].EloRating != players[j].EloRating {
			return players[i].EloRating > players[j].EloRating
		}
		return players[i].ID < players[j].ID
	})
}

// Index returns the leaderboard and ladder-wide totals from one consistent view
func (s *Service) Index(ctx context.Context) (*model.IndexData, error) {
	var index model.IndexData
	err := s.storage.View(ctx, func(r storage.Reader) error {
		players, err := leaderboard(ctx, r)
		if err != nil {
			return err
		}
		stats, err := r.GetGlobalStats(ctx)
		if err != nil {
			return err
		}
		index = model.IndexData{Leaderboard: players, GlobalStats: stats}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &index, nil
}

// PlayerHistory returns a player and their full chronological game history
// from one consistent view
func (s *Service) PlayerHistory(ctx context.Context, id model.PlayerID) (*model.Player, []*model.Game, error) {
	var (
		player *model.Player
		games  []*model.Game
	)
	err := s.storage.View(ctx, func(r storage.Reader) error {
		var err error
		if player, err = r.GetPlayer(ctx, id); err != nil {
			return err
		}
		games, err = r.GetPlayerGames(ctx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return player, games, nil
}

// PlayerStats derives a player's counters and recent games from their history
func (s *Service) PlayerStats(id model.PlayerID, games []*model.Game) model.PlayerStats {
	stats := model.PlayerStats{
		GamesPlayed: len(games),
		RecentGames: model.ReverseGames(games, s.recentGames),
	}
	for _, g := range games {
		if g.WonBy(id) {
			stats.GamesWon++
		}
	}
	return stats
}

// PairHistory returns both players and the chronological games between them
// from one consistent view. Unknown players fail with model.ErrPlayerNotFound.
func (s *Service) PairHistory(ctx context.Context, a, b model.PlayerID) (*model.Player, *model.Player, []*model.Game, error) {
	var (
		first, second *model.Player
		games         []*model.Game
	)
	err := s.storage.View(ctx, func(r storage.Reader) error {
		var err error
		if first, err = r.GetPlayer(ctx, a); err != nil {
			return err
		}
		if second, err = r.GetPlayer(ctx, b); err != nil {
			return err
		}
		games, err = r.GetPairGames(ctx, a, b)
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return first, second, games, nil
}

// RatingDiscrepancy reports a player whose stored rating differs from the
// rating obtained by replaying the ledger
type RatingDiscrepancy struct {
	PlayerID model.PlayerID
	Name     string
	Stored   float64
	Replayed float64
}

// AuditRatings replays the whole ledger from the default rating and returns
// every player whose stored rating has drifted beyond rating.Epsilon.
//
// The replay uses the K-factor configured now. Games recorded under a
// different K-factor therefore show up as drift for every player they touched.
func (s *Service) AuditRatings(ctx context.Context) ([]RatingDiscrepancy, error) {
	var (
		players []*model.Player
		games   []*model.Game
	)
	err := s.storage.View(ctx, func(r storage.Reader) error {
		var err error
		if players, err = r.ListPlayers(ctx); err != nil {
			return err
		}
		games, err = r.ListGames(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	replayed := s.engine.Replay(games)
	var discrepancies []RatingDiscrepancy
	for _, p := range players {
		expected, ok := replayed[p.ID]
		if !ok {
			expected = model.DefaultRating
		}
		if !rating.Equal(p.EloRating, expected) {
			discrepancies = append(discrepancies, RatingDiscrepancy{
				PlayerID: p.ID,
				Name:     p.Name,
				Stored:   p.EloRating,
				Replayed: expected,
			})
		}
	}
	sort.Slice(discrepancies, func(i, j int) bool {
		return discrepancies[i].PlayerID < discrepancies[j].PlayerID
	})

	if len(discrepancies) > 0 {
		s.logger.Warn("rating audit found discrepancies", slog.Int("count", len(discrepancies)))
	}
	return discrepancies, nil
}

func validateName(name string) error {
	if name == "" {
		return model.NewValidationError("name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > model.MaxNameLength {
		return model.NewValidationError("name", fmt.Sprintf("must be at most %d characters", model.MaxNameLength))
	}
	return nil
}

func validateScores(winnerScore, loserScore *int) error {
	if (winnerScore == nil) != (loserScore == nil) {
		return model.NewValidationError("scores", "winnerScore and loserScore must both be set or both be omitted")
	}
	if winnerScore == nil {
		return nil
	}
	if *winnerScore < 0 || *winnerScore > model.MaxScore {
		return model.NewValidationError("winnerScore", fmt.Sprintf("must be between 0 and %d", model.MaxScore))
	}
	if *loserScore < 0 || *loserScore > model.MaxScore {
		return model.NewValidationError("loserScore", fmt.Sprintf("must be between 0 and %d", model.MaxScore))
	}
	return nil
}
