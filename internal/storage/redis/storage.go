package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
//
// Writes use WATCH/MULTI: a write whose watched keys change before EXEC is
// discarded and reported as model.ErrConflict.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player registry operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	nameKey := playerNameIndexKey(player.Name)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, nameKey).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return model.ErrPlayerNameTaken
		}

		id, err := tx.Incr(ctx, playerSequenceKey()).Result()
		if err != nil {
			return err
		}
		player.ID = model.PlayerID(id)
		player.Version = 1

		data, err := json.Marshal(player)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, playerKey(player.ID), data, 0)
			pipe.SAdd(ctx, playersIndexKey(), strconv.FormatInt(id, 10))
			pipe.Set(ctx, nameKey, id, 0)
			return nil
		})
		return err
	}, nameKey)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrConflict
	}
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return getPlayer(ctx, s.client, id)
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	return reader{s.client}.ListPlayers(ctx)
}

// Ledger operations

func (s *Storage) CommitGame(ctx context.Context, commit *model.GameCommit) (*model.Game, error) {
	winnerID := commit.Game.Winner.ID
	loserID := commit.Game.Loser.ID
	var committed model.Game

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		winner, err := getPlayer(ctx, tx, winnerID)
		if errors.Is(err, model.ErrPlayerNotFound) {
			return model.ErrInvalidPlayer
		}
		if err != nil {
			return err
		}
		loser, err := getPlayer(ctx, tx, loserID)
		if errors.Is(err, model.ErrPlayerNotFound) {
			return model.ErrInvalidPlayer
		}
		if err != nil {
			return err
		}
		if winner.Version != commit.WinnerVersion || loser.Version != commit.LoserVersion {
			return model.ErrConflict
		}

		seq, err := tx.Get(ctx, gameSequenceKey()).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		committed = commit.Game
		committed.ID = model.GameID(seq + 1)

		winner.EloRating = committed.WinnerRatingAfter
		winner.Version++
		loser.EloRating = committed.LoserRatingAfter
		loser.Version++

		gameData, err := json.Marshal(&committed)
		if err != nil {
			return err
		}
		winnerData, err := json.Marshal(winner)
		if err != nil {
			return err
		}
		loserData, err := json.Marshal(loser)
		if err != nil {
			return err
		}

		gKey := gameKey(committed.ID)

		// Everything below lands in one MULTI/EXEC
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameSequenceKey(), int64(committed.ID), 0)
			pipe.Set(ctx, gKey, gameData, 0)
			pipe.RPush(ctx, ledgerKey(), gKey)
			pipe.RPush(ctx, playerGamesIndexKey(winnerID), gKey)
			pipe.RPush(ctx, playerGamesIndexKey(loserID), gKey)
			pipe.RPush(ctx, pairGamesIndexKey(winnerID, loserID), gKey)
			pipe.Set(ctx, playerKey(winnerID), winnerData, 0)
			pipe.Set(ctx, playerKey(loserID), loserData, 0)
			pipe.HIncrBy(ctx, statsKey(), statsFieldGames, 1)
			pipe.HIncrBy(ctx, statsKey(), statsFieldPoints, int64(storage.GamePoints(&committed)))
			return nil
		})
		return err
	}, playerKey(winnerID), playerKey(loserID), gameSequenceKey())

	if errors.Is(err, redis.TxFailedErr) {
		return nil, model.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return &committed, nil
}

func (s *Storage) ListGames(ctx context.Context) ([]*model.Game, error) {
	return reader{s.client}.ListGames(ctx)
}

func (s *Storage) GetPlayerGames(ctx context.Context, id model.PlayerID) ([]*model.Game, error) {
	return reader{s.client}.GetPlayerGames(ctx, id)
}

func (s *Storage) GetPairGames(ctx context.Context, a, b model.PlayerID) ([]*model.Game, error) {
	return reader{s.client}.GetPairGames(ctx, a, b)
}

func (s *Storage) GetGlobalStats(ctx context.Context) (model.GlobalStats, error) {
	return reader{s.client}.GetGlobalStats(ctx)
}

// View runs fn with the sequence keys watched, then validates with an EXEC.
// Every write bumps one of those keys, so a failed EXEC means fn may have
// read across a commit and it is run again.
func (s *Storage) View(ctx context.Context, fn func(storage.Reader) error) error {
	attempts := s.cfg.MaxViewAttempts
	if attempts <= 0 {
		attempts = DefaultMaxViewAttempts
	}
	for range attempts {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			if err := fn(reader{tx}); err != nil {
				return err
			}
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Exists(ctx, gameSequenceKey())
				return nil
			})
			return err
		}, gameSequenceKey(), playerSequenceKey())

		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return model.ErrConflict
}

// commands is the subset of redis commands the reads need. Both the client
// and a watching transaction provide it.
type commands interface {
	getter
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
}

// reader serves the read side of the store over c
type reader struct {
	c commands
}

func (r reader) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return getPlayer(ctx, r.c, id)
}

func (r reader) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	ids, err := r.c.SMembers(ctx, playersIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Player{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt player index entry %q: %w", raw, err)
		}
		keys = append(keys, playerKey(model.PlayerID(id)))
	}

	values, err := r.c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(values))
	for i, val := range values {
		str, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("player %s is indexed but missing", keys[i])
		}
		var player model.Player
		if err := json.Unmarshal([]byte(str), &player); err != nil {
			return nil, err
		}
		players = append(players, &player)
	}
	return players, nil
}

func (r reader) ListGames(ctx context.Context) ([]*model.Game, error) {
	return r.gamesFromIndex(ctx, ledgerKey())
}

func (r reader) GetPlayerGames(ctx context.Context, id model.PlayerID) ([]*model.Game, error) {
	exists, err := r.c.Exists(ctx, playerKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrPlayerNotFound
	}
	return r.gamesFromIndex(ctx, playerGamesIndexKey(id))
}

func (r reader) GetPairGames(ctx context.Context, a, b model.PlayerID) ([]*model.Game, error) {
	return r.gamesFromIndex(ctx, pairGamesIndexKey(a, b))
}

func (r reader) GetGlobalStats(ctx context.Context) (model.GlobalStats, error) {
	values, err := r.c.HMGet(ctx, statsKey(), statsFieldGames, statsFieldPoints).Result()
	if err != nil {
		return model.GlobalStats{}, err
	}

	var stats model.GlobalStats
	if stats.TotalGames, err = hashInt(values[0]); err != nil {
		return model.GlobalStats{}, err
	}
	if stats.TotalPoints, err = hashInt(values[1]); err != nil {
		return model.GlobalStats{}, err
	}
	return stats, nil
}

// gamesFromIndex loads every game referenced by a LIST index, oldest first
func (r reader) gamesFromIndex(ctx context.Context, indexKey string) ([]*model.Game, error) {
	gameKeys, err := r.c.LRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	if len(gameKeys) == 0 {
		return []*model.Game{}, nil
	}

	// Fetch all games in one round trip using MGET
	values, err := r.c.MGet(ctx, gameKeys...).Result()
	if err != nil {
		return nil, err
	}

	games := make([]*model.Game, 0, len(values))
	for i, val := range values {
		str, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("game %s is indexed but missing", gameKeys[i])
		}
		var game model.Game
		if err := json.Unmarshal([]byte(str), &game); err != nil {
			return nil, err
		}
		games = append(games, &game)
	}

	model.SortGames(games)
	return games, nil
}

// getter is satisfied by both the client and a watching transaction
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// getPlayer reads a player through either the client or a watching transaction
func getPlayer(ctx context.Context, c getter, id model.PlayerID) (*model.Player, error) {
	data, err := c.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func hashInt(val any) (int, error) {
	if val == nil {
		return 0, nil
	}
	str, ok := val.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected stats value %v", val)
	}
	return strconv.Atoi(str)
}
