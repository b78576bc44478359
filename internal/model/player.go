package model

import "time"

// PlayerID uniquely identifies a player. IDs are assigned by storage in creation order.
type PlayerID int64

const (
	// DefaultRating is the Elo rating every player starts with
	DefaultRating = 1000.0
	// MaxNameLength is the longest accepted player name, in characters
	MaxNameLength = 63
)

// Player represents a ladder participant and their current rating snapshot
type Player struct {
	ID        PlayerID
	Name      string
	EloRating float64
	Version   int64 // bumped on every rating change, used for optimistic commits
	CreatedAt time.Time
}

// Ref returns the id/name pair embedded in game records
func (p *Player) Ref() PlayerRef {
	return PlayerRef{ID: p.ID, Name: p.Name}
}

// PlayerRef is the minimal player identity carried by games
type PlayerRef struct {
	ID   PlayerID
	Name string
}
