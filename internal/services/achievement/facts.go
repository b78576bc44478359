package achievement

import (
	"math"
	"time"

	"github.com/mcoot/pongladder/internal/model"
)

// ScoreLine is a recorded winner/loser score pair
type ScoreLine struct {
	WinnerScore int
	LoserScore  int
}

// OpponentFacts are a player's aggregates against a single opponent
type OpponentFacts struct {
	Games  int
	Losses int
	// LongestDailyWins is the longest run of wins against this opponent on one calendar day
	LongestDailyWins int

	dailyWins int
	lastWin   int64
}

// Facts are the aggregates of one player's history that rule kinds test against.
// They are computed once per evaluation, in chronological order.
type Facts struct {
	PlayerID model.PlayerID
	Games    []*model.Game

	GamesPlayed       int
	GamesWon          int
	LongestWinStreak  int
	LongestLoseStreak int

	// MostGamesInDay and LongestDayStreak use calendar days in the evaluator's location
	MostGamesInDay   int
	LongestDayStreak int
	HoursPlayed      [24]bool

	Opponents map[model.PlayerID]*OpponentFacts

	WinScores           map[ScoreLine]bool
	LossScores          map[ScoreLine]bool
	HighestWinningScore int

	// PeakRating is the highest rating the player held after any game
	PeakRating float64
	// BiggestUpset is the largest pre-game rating deficit overcome in a win
	BiggestUpset float64
}

// civilDay numbers calendar days in loc so consecutive days differ by one
func civilDay(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// Collect folds a player's games into Facts. Games are sorted before folding.
func Collect(playerID model.PlayerID, games []*model.Game, loc *time.Location) *Facts {
	ordered := make([]*model.Game, len(games))
	copy(ordered, games)
	model.SortGames(ordered)

	f := &Facts{
		PlayerID:     playerID,
		Games:        ordered,
		GamesPlayed:  len(ordered),
		Opponents:    make(map[model.PlayerID]*OpponentFacts),
		WinScores:    make(map[ScoreLine]bool),
		LossScores:   make(map[ScoreLine]bool),
		PeakRating:   model.DefaultRating,
		BiggestUpset: math.Inf(-1),
	}

	var (
		winStreak  int
		loseStreak int
		gamesToday int
		dayStreak  int
		lastDay    int64 = math.MinInt64
	)

	for _, g := range ordered {
		day := civilDay(g.CreatedAt, loc)
		switch {
		case day == lastDay:
			gamesToday++
		case lastDay != math.MinInt64 && day == lastDay+1:
			gamesToday = 1
			dayStreak++
		default:
			gamesToday = 1
			dayStreak = 1
		}
		lastDay = day
		f.MostGamesInDay = max(f.MostGamesInDay, gamesToday)
		f.LongestDayStreak = max(f.LongestDayStreak, dayStreak)
		f.HoursPlayed[g.CreatedAt.In(loc).Hour()] = true

		won := g.WonBy(playerID)
		opponent := f.opponent(g.Opponent(playerID).ID)
		opponent.Games++

		if won {
			f.GamesWon++
			winStreak++
			loseStreak = 0
			f.LongestWinStreak = max(f.LongestWinStreak, winStreak)

			if opponent.dailyWins > 0 && opponent.lastWin == day {
				opponent.dailyWins++
			} else {
				opponent.dailyWins = 1
			}
			opponent.lastWin = day
			opponent.LongestDailyWins = max(opponent.LongestDailyWins, opponent.dailyWins)

			f.BiggestUpset = math.Max(f.BiggestUpset, g.LoserRatingBefore-g.WinnerRatingBefore)
		} else {
			loseStreak++
			winStreak = 0
			f.LongestLoseStreak = max(f.LongestLoseStreak, loseStreak)

			opponent.Losses++
			opponent.dailyWins = 0
		}

		if g.HasScores() {
			line := ScoreLine{WinnerScore: *g.WinnerScore, LoserScore: *g.LoserScore}
			if won {
				f.WinScores[line] = true
				f.HighestWinningScore = max(f.HighestWinningScore, line.WinnerScore)
			} else {
				f.LossScores[line] = true
			}
		}

		f.PeakRating = math.Max(f.PeakRating, g.RatingAfter(playerID))
	}

	return f
}

func (f *Facts) opponent(id model.PlayerID) *OpponentFacts {
	o, ok := f.Opponents[id]
	if !ok {
		o = &OpponentFacts{}
		f.Opponents[id] = o
	}
	return o
}
