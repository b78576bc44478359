package model

import "time"

// HeadToHeadPlayer holds one side of a rivalry
type HeadToHeadPlayer struct {
	ID   PlayerID
	Name string

	GamesWon int
	// WinProbability is the empirical share of the pair's games this player won
	WinProbability float64
	// ExpectedScore is the Elo expected score from both players' current ratings
	ExpectedScore    float64
	LongestWinStreak int
	TotalPoints      int
	AvgPointsPerGame float64
}

// ScoreStats summarises the games of a pair that have both scores recorded
type ScoreStats struct {
	ScoredGames          int
	AvgScoreDifferential float64
	BiggestBlowout       *Game
	MostCompetitive      *Game
}

// HeadToHead is the derived rivalry summary between two players
type HeadToHead struct {
	Player1        HeadToHeadPlayer
	Player2        HeadToHeadPlayer
	FirstPlayedAt  time.Time
	TotalGameCount int
	RecentGames    []*Game
	ScoreStats     ScoreStats
}
