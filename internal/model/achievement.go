package model

// AchievementID identifies a catalog entry
type AchievementID int

// Achievement describes a milestone a player can unlock
type Achievement struct {
	ID          AchievementID
	Title       string
	Description string
}
