package response

import (
	"time"

	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/services/ledger"
)

// Created is the response for create endpoints
type Created struct {
	ID int64 `json:"id"`
}

// PlayerRef is the id/name pair embedded in games
type PlayerRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func playerRefFromModel(p model.PlayerRef) PlayerRef {
	return PlayerRef{ID: int64(p.ID), Name: p.Name}
}

// LeaderboardEntry represents a ranked player
type LeaderboardEntry struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	EloRating float64 `json:"eloRating"`
}

// LeaderboardFromModel converts ranked players
func LeaderboardFromModel(players []*model.Player) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, len(players))
	for i, p := range players {
		entries[i] = LeaderboardEntry{
			ID:        int64(p.ID),
			Name:      p.Name,
			EloRating: p.EloRating,
		}
	}
	return entries
}

// GlobalStats represents ladder-wide totals
type GlobalStats struct {
	TotalGames  int `json:"totalGames"`
	TotalPoints int `json:"totalPoints"`
}

// Index is the landing view
type Index struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	GlobalStats GlobalStats        `json:"globalStats"`
}

// IndexFromModel converts model.IndexData
func IndexFromModel(d *model.IndexData) Index {
	return Index{
		Leaderboard: LeaderboardFromModel(d.Leaderboard),
		GlobalStats: GlobalStats{
			TotalGames:  d.GlobalStats.TotalGames,
			TotalPoints: d.GlobalStats.TotalPoints,
		},
	}
}

// Game represents a recorded game. Scores are null for unscored games.
type Game struct {
	ID          int64     `json:"id"`
	Winner      PlayerRef `json:"winner"`
	Loser       PlayerRef `json:"loser"`
	WinnerScore *int      `json:"winnerScore"`
	LoserScore  *int      `json:"loserScore"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GameFromModel converts model.Game
func GameFromModel(g *model.Game) Game {
	return Game{
		ID:          int64(g.ID),
		Winner:      playerRefFromModel(g.Winner),
		Loser:       playerRefFromModel(g.Loser),
		WinnerScore: g.WinnerScore,
		LoserScore:  g.LoserScore,
		CreatedAt:   g.CreatedAt,
	}
}

func gamesFromModel(games []*model.Game) []Game {
	out := make([]Game, len(games))
	for i, g := range games {
		out[i] = GameFromModel(g)
	}
	return out
}

func optionalGame(g *model.Game) *Game {
	if g == nil {
		return nil
	}
	out := GameFromModel(g)
	return &out
}

// Achievement represents a catalog entry
type Achievement struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AchievementsFromModel converts achievements, keeping their order
func AchievementsFromModel(achievements []model.Achievement) []Achievement {
	out := make([]Achievement, len(achievements))
	for i, a := range achievements {
		out[i] = Achievement{
			ID:          int(a.ID),
			Title:       a.Title,
			Description: a.Description,
		}
	}
	return out
}

// PlayerProfile is the composite player view
type PlayerProfile struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	EloRating    float64       `json:"eloRating"`
	CreatedAt    time.Time     `json:"createdAt"`
	GamesPlayed  int           `json:"gamesPlayed"`
	GamesWon     int           `json:"gamesWon"`
	RecentGames  []Game        `json:"recentGames"`
	Achievements []Achievement `json:"achievements"`
}

// PlayerProfileFromModel converts model.PlayerProfile
func PlayerProfileFromModel(p *model.PlayerProfile) PlayerProfile {
	return PlayerProfile{
		ID:           int64(p.Player.ID),
		Name:         p.Player.Name,
		EloRating:    p.Player.EloRating,
		CreatedAt:    p.Player.CreatedAt,
		GamesPlayed:  p.GamesPlayed,
		GamesWon:     p.GamesWon,
		RecentGames:  gamesFromModel(p.RecentGames),
		Achievements: AchievementsFromModel(p.Achievements),
	}
}

// HeadToHeadPlayer is one side of a rivalry
type HeadToHeadPlayer struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	GamesWon         int     `json:"gamesWon"`
	WinProbability   float64 `json:"winProbability"`
	ExpectedScore    float64 `json:"expectedScore"`
	LongestWinStreak int     `json:"longestWinStreak"`
	TotalPoints      int     `json:"totalPoints"`
	AvgPointsPerGame float64 `json:"avgPointsPerGame"`
}

func headToHeadPlayerFromModel(p model.HeadToHeadPlayer) HeadToHeadPlayer {
	return HeadToHeadPlayer{
		ID:               int64(p.ID),
		Name:             p.Name,
		GamesWon:         p.GamesWon,
		WinProbability:   p.WinProbability,
		ExpectedScore:    p.ExpectedScore,
		LongestWinStreak: p.LongestWinStreak,
		TotalPoints:      p.TotalPoints,
		AvgPointsPerGame: p.AvgPointsPerGame,
	}
}

// ScoreStats summarises the scored games of a pair
type ScoreStats struct {
	ScoredGames          int     `json:"scoredGames"`
	AvgScoreDifferential float64 `json:"avgScoreDifferential"`
	BiggestBlowout       *Game   `json:"biggestBlowout"`
	MostCompetitive      *Game   `json:"mostCompetitive"`
}

// HeadToHead is the rivalry summary
type HeadToHead struct {
	Player1        HeadToHeadPlayer `json:"player1"`
	Player2        HeadToHeadPlayer `json:"player2"`
	FirstPlayedAt  time.Time        `json:"firstPlayedAt"`
	TotalGameCount int              `json:"totalGameCount"`
	RecentGames    []Game           `json:"recentGames"`
	ScoreStats     ScoreStats       `json:"scoreStats"`
}

// HeadToHeadFromModel converts model.HeadToHead
func HeadToHeadFromModel(h *model.HeadToHead) HeadToHead {
	return HeadToHead{
		Player1:        headToHeadPlayerFromModel(h.Player1),
		Player2:        headToHeadPlayerFromModel(h.Player2),
		FirstPlayedAt:  h.FirstPlayedAt,
		TotalGameCount: h.TotalGameCount,
		RecentGames:    gamesFromModel(h.RecentGames),
		ScoreStats: ScoreStats{
			ScoredGames:          h.ScoreStats.ScoredGames,
			AvgScoreDifferential: h.ScoreStats.AvgScoreDifferential,
			BiggestBlowout:       optionalGame(h.ScoreStats.BiggestBlowout),
			MostCompetitive:      optionalGame(h.ScoreStats.MostCompetitive),
		},
	}
}

// RatingDiscrepancy reports a player whose stored rating drifted from the ledger
type RatingDiscrepancy struct {
	PlayerID int64   `json:"playerId"`
	Name     string  `json:"name"`
	Stored   float64 `json:"stored"`
	Replayed float64 `json:"replayed"`
}

// RatingAudit is the response of the rating audit. KFactor is the one the
// ledger was replayed with.
type RatingAudit struct {
	Consistent    bool                `json:"consistent"`
	KFactor       float64             `json:"kFactor"`
	Discrepancies []RatingDiscrepancy `json:"discrepancies"`
}

// RatingAuditFromModel converts audit results
func RatingAuditFromModel(kFactor float64, discrepancies []ledger.RatingDiscrepancy) RatingAudit {
	out := make([]RatingDiscrepancy, len(discrepancies))
	for i, d := range discrepancies {
		out[i] = RatingDiscrepancy{
			PlayerID: int64(d.PlayerID),
			Name:     d.Name,
			Stored:   d.Stored,
			Replayed: d.Replayed,
		}
	}
	return RatingAudit{Consistent: len(out) == 0, KFactor: kFactor, Discrepancies: out}
}
