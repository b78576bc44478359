package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players      map[model.PlayerID]*model.Player
	nameIndex    map[string]model.PlayerID
	games        []*model.Game
	playerGames  map[model.PlayerID][]*model.Game
	pairGames    map[pairKey][]*model.Game
	nextPlayerID model.PlayerID
	nextGameID   model.GameID
	totalPoints  int
}

type pairKey struct {
	low  model.PlayerID
	high model.PlayerID
}

func newPairKey(a, b model.PlayerID) pairKey {
	low, high := storage.PairKey(a, b)
	return pairKey{low: low, high: high}
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:      make(map[model.PlayerID]*model.Player),
		nameIndex:    make(map[string]model.PlayerID),
		playerGames:  make(map[model.PlayerID][]*model.Game),
		pairGames:    make(map[pairKey][]*model.Game),
		nextPlayerID: 1,
		nextGameID:   1,
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player registry operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(player.Name)
	if _, taken := s.nameIndex[key]; taken {
		return model.ErrPlayerNameTaken
	}

	player.ID = s.nextPlayerID
	player.Version = 1
	s.nextPlayerID++

	stored := *player
	s.players[player.ID] = &stored
	s.nameIndex[key] = player.ID
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return locked{s}.GetPlayer(ctx, id)
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return locked{s}.ListPlayers(ctx)
}

// Ledger operations

func (s *Storage) CommitGame(ctx context.Context, commit *model.GameCommit) (*model.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	winner, ok := s.players[commit.Game.Winner.ID]
	if !ok {
		return nil, model.ErrInvalidPlayer
	}
	loser, ok := s.players[commit.Game.Loser.ID]
	if !ok {
		return nil, model.ErrInvalidPlayer
	}
	if winner.Version != commit.WinnerVersion || loser.Version != commit.LoserVersion {
		return nil, model.ErrConflict
	}

	game := commit.Game
	game.ID = s.nextGameID
	s.nextGameID++

	// Players are replaced rather than mutated so earlier readers keep a consistent copy
	updatedWinner := *winner
	updatedWinner.EloRating = game.WinnerRatingAfter
	updatedWinner.Version++
	updatedLoser := *loser
	updatedLoser.EloRating = game.LoserRatingAfter
	updatedLoser.Version++

	stored := &game
	s.games = append(s.games, stored)
	s.playerGames[winner.ID] = append(s.playerGames[winner.ID], stored)
	s.playerGames[loser.ID] = append(s.playerGames[loser.ID], stored)
	key := newPairKey(winner.ID, loser.ID)
	s.pairGames[key] = append(s.pairGames[key], stored)
	s.totalPoints += storage.GamePoints(stored)
	s.players[winner.ID] = &updatedWinner
	s.players[loser.ID] = &updatedLoser

	result := game
	return &result, nil
}

func (s *Storage) ListGames(ctx context.Context) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return locked{s}.ListGames(ctx)
}

func (s *Storage) GetPlayerGames(ctx context.Context, id model.PlayerID) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return locked{s}.GetPlayerGames(ctx, id)
}

func (s *Storage) GetPairGames(ctx context.Context, a, b model.PlayerID) ([]*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return locked{s}.GetPairGames(ctx, a, b)
}

func (s *Storage) GetGlobalStats(ctx context.Context) (model.GlobalStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return locked{s}.GetGlobalStats(ctx)
}

// View holds the read lock for the whole of fn
func (s *Storage) View(ctx context.Context, fn func(storage.Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(locked{s})
}

// locked reads the maps directly; the caller holds s.mu
type locked struct {
	s *Storage
}

func (l locked) GetPlayer(_ context.Context, id model.PlayerID) (*model.Player, error) {
	player, ok := l.s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}

func (l locked) ListPlayers(_ context.Context) ([]*model.Player, error) {
	players := make([]*model.Player, 0, len(l.s.players))
	for _, player := range l.s.players {
		p := *player
		players = append(players, &p)
	}
	return players, nil
}

func (l locked) ListGames(_ context.Context) ([]*model.Game, error) {
	return copyGames(l.s.games), nil
}

func (l locked) GetPlayerGames(_ context.Context, id model.PlayerID) ([]*model.Game, error) {
	if _, ok := l.s.players[id]; !ok {
		return nil, model.ErrPlayerNotFound
	}
	return copyGames(l.s.playerGames[id]), nil
}

func (l locked) GetPairGames(_ context.Context, a, b model.PlayerID) ([]*model.Game, error) {
	return copyGames(l.s.pairGames[newPairKey(a, b)]), nil
}

func (l locked) GetGlobalStats(_ context.Context) (model.GlobalStats, error) {
	return model.GlobalStats{
		TotalGames:  len(l.s.games),
		TotalPoints: l.s.totalPoints,
	}, nil
}

// copyGames returns a sorted copy of the slice; the games themselves are
// immutable once stored and can be shared
func copyGames(games []*model.Game) []*model.Game {
	result := make([]*model.Game, len(games))
	copy(result, games)
	model.SortGames(result)
	return result
}
