package redis

import (
	"fmt"
	"strings"

	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/storage"
)

// Key prefix for all ladder data
const keyPrefix = "pong"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%d", keyPrefix, id)
}

// playersIndexKey returns the Redis key for the SET of all player ids
func playersIndexKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

// playerNameIndexKey returns the Redis key for the name -> player_id index
func playerNameIndexKey(name string) string {
	return fmt.Sprintf("%s:idx:player_name:%s", keyPrefix, strings.ToLower(name))
}

// playerSequenceKey returns the Redis key of the player id counter
func playerSequenceKey() string {
	return fmt.Sprintf("%s:seq:player", keyPrefix)
}

// gameSequenceKey returns the Redis key of the game id counter. Every commit
// writes it, so watching it serialises ledger appends.
func gameSequenceKey() string {
	return fmt.Sprintf("%s:seq:game", keyPrefix)
}

// gameKey returns the Redis key for a Game
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%d", keyPrefix, id)
}

// ledgerKey returns the Redis key for the LIST of all game keys in append order
func ledgerKey() string {
	return fmt.Sprintf("%s:ledger", keyPrefix)
}

// playerGamesIndexKey returns the Redis key for the LIST of a player's game keys
func playerGamesIndexKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_games:%d", keyPrefix, id)
}

// pairGamesIndexKey returns the Redis key for the LIST of game keys between two players
func pairGamesIndexKey(a, b model.PlayerID) string {
	low, high := storage.PairKey(a, b)
	return fmt.Sprintf("%s:idx:pair_games:%d:%d", keyPrefix, low, high)
}

// statsKey returns the Redis key for the HASH of global totals
func statsKey() string {
	return fmt.Sprintf("%s:stats", keyPrefix)
}

const (
	statsFieldGames  = "total_games"
	statsFieldPoints = "total_points"
)
