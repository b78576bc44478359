package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mcoot/pongladder/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to stdout
func NewOutput(format string) *Output {
	return &Output{format: format, w: os.Stdout}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Index:
		o.printIndex(v)
	case []response.LeaderboardEntry:
		o.printLeaderboard(v)
	case []response.Achievement:
		o.printAchievements(v)
	case response.PlayerProfile:
		o.printProfile(v)
	case response.HeadToHead:
		o.printHeadToHead(v)
	case response.RatingAudit:
		o.printAudit(v)
	case HealthResult:
		o.printf("Server: %s\nStatus: %s (%s)\n", v.Server, v.Status, v.Latency)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

func (o *Output) printIndex(idx response.Index) {
	o.printLeaderboard(idx.Leaderboard)
	o.printf("\nGames played: %d\n", idx.GlobalStats.TotalGames)
	o.printf("Points scored: %d\n", idx.GlobalStats.TotalPoints)
}

func (o *Output) printLeaderboard(entries []response.LeaderboardEntry) {
	if len(entries) == 0 {
		o.printf("No players yet\n")
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tPLAYER\tID\tRATING")
	for i, e := range entries {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%.1f\n", i+1, e.Name, e.ID, e.EloRating)
	}
	_ = tw.Flush()
}

func (o *Output) printAchievements(achievements []response.Achievement) {
	for _, a := range achievements {
		o.printf("  [%2d] %s - %s\n", a.ID, a.Title, a.Description)
	}
}

func (o *Output) printProfile(p response.PlayerProfile) {
	o.printf("Player: %s (%d)\n", p.Name, p.ID)
	o.printf("Rating: %.1f\n", p.EloRating)
	o.printf("Joined: %s\n", p.CreatedAt.Format(time.DateOnly))
	o.printf("Record: %d won / %d played\n", p.GamesWon, p.GamesPlayed)

	if len(p.RecentGames) > 0 {
		o.printf("\nRecent games:\n")
		for _, g := range p.RecentGames {
			o.printf("  %s\n", formatGame(g))
		}
	}

	if len(p.Achievements) > 0 {
		o.printf("\nAchievements (%d):\n", len(p.Achievements))
		o.printAchievements(p.Achievements)
	}
}

func (o *Output) printHeadToHead(h response.HeadToHead) {
	o.printf("%s vs %s\n", h.Player1.Name, h.Player2.Name)
	o.printf("Games: %d (first played %s)\n", h.TotalGameCount, h.FirstPlayedAt.Format(time.DateOnly))

	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "\tWINS\tWIN %\tEXPECTED\tBEST STREAK\tPOINTS\tAVG")
	for _, p := range []response.HeadToHeadPlayer{h.Player1, h.Player2} {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.3f\t%d\t%d\t%.1f\n",
			p.Name, p.GamesWon, p.WinProbability*100, p.ExpectedScore,
			p.LongestWinStreak, p.TotalPoints, p.AvgPointsPerGame)
	}
	_ = tw.Flush()

	if h.ScoreStats.ScoredGames > 0 {
		o.printf("\nScored games: %d, average margin %.1f\n", h.ScoreStats.ScoredGames, h.ScoreStats.AvgScoreDifferential)
		if h.ScoreStats.BiggestBlowout != nil {
			o.printf("Biggest blowout: %s\n", formatGame(*h.ScoreStats.BiggestBlowout))
		}
		if h.ScoreStats.MostCompetitive != nil {
			o.printf("Closest game: %s\n", formatGame(*h.ScoreStats.MostCompetitive))
		}
	}

	if len(h.RecentGames) > 0 {
		o.printf("\nRecent games:\n")
		for _, g := range h.RecentGames {
			o.printf("  %s\n", formatGame(g))
		}
	}
}

func (o *Output) printAudit(a response.RatingAudit) {
	if a.Consistent {
		o.printf("All ratings match the game ledger\n")
		return
	}
	o.printf("Rating drift detected for %d player(s), replayed with K=%g:\n", len(a.Discrepancies), a.KFactor)
	for _, d := range a.Discrepancies {
		o.printf("  %s (%d): stored %.4f, replayed %.4f\n", d.Name, d.PlayerID, d.Stored, d.Replayed)
	}
}

func formatGame(g response.Game) string {
	score := ""
	if g.WinnerScore != nil && g.LoserScore != nil {
		score = fmt.Sprintf(" %d-%d", *g.WinnerScore, *g.LoserScore)
	}
	return fmt.Sprintf("#%d %s beat %s%s (%s)", g.ID, g.Winner.Name, g.Loser.Name, score, g.CreatedAt.Format(time.DateTime))
}
