package model

// GlobalStats are ladder-wide totals
type GlobalStats struct {
	TotalGames  int
	TotalPoints int
}

// IndexData is the landing view: leaderboard plus global totals
type IndexData struct {
	Leaderboard []*Player
	GlobalStats GlobalStats
}

// PlayerStats are the ledger-derived counters for a single player
type PlayerStats struct {
	GamesPlayed int
	GamesWon    int
	RecentGames []*Game
}

// PlayerProfile is the composite player view
type PlayerProfile struct {
	Player       *Player
	GamesPlayed  int
	GamesWon     int
	RecentGames  []*Game
	Achievements []Achievement
}
