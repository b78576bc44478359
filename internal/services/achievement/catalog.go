package achievement

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/pongladder/internal/model"
)

// Rule is a catalog entry: the achievement shown to players plus the rule
// kind and params that unlock it
type Rule struct {
	ID          model.AchievementID `json:"id" yaml:"id"`
	Title       string              `json:"title" yaml:"title"`
	Description string              `json:"description" yaml:"description"`
	Kind        string              `json:"kind" yaml:"kind"`
	Params      Params              `json:"params" yaml:"params"`
}

// Achievement returns the player-facing part of the rule
func (r Rule) Achievement() model.Achievement {
	return model.Achievement{ID: r.ID, Title: r.Title, Description: r.Description}
}

// DefaultCatalog returns the built-in achievement rules in display order
func DefaultCatalog() []Rule {
	return []Rule{
		{1, "Warming Up", "Play your first game", KindGamesPlayed, Params{Count: 1}},
		{2, "Minimum Viable Pong", "Play 10 games", KindGamesPlayed, Params{Count: 10}},
		{3, "Regular", "Play 50 games", KindGamesPlayed, Params{Count: 50}},
		{4, "Centurion", "Play 100 games", KindGamesPlayed, Params{Count: 100}},
		{5, "Legend", "Play 250 games", KindGamesPlayed, Params{Count: 250}},
		{6, "Unicorn", "Play 500 games", KindGamesPlayed, Params{Count: 500}},

		{7, "Chocolate", "Win a game 11-0", KindWinWithScore, Params{WinnerScore: 11, LoserScore: 0}},
		{8, "Bottle Job", "Win a game 11-1", KindWinWithScore, Params{WinnerScore: 11, LoserScore: 1}},
		{9, "Clutch", "Win a game 12-10", KindWinWithScore, Params{WinnerScore: 12, LoserScore: 10}},
		{10, "Marathon Madness", "Win a game scoring 15 or more points", KindWinWithMinScore, Params{MinScore: 15}},
		{11, "Heartbreaker", "Lose a game 12-10", KindLoseWithScore, Params{WinnerScore: 12, LoserScore: 10}},

		{12, "Streaky", "Win 5 games in a row", KindWinStreak, Params{Count: 5}},
		{13, "Unstoppable", "Win 10 games in a row", KindWinStreak, Params{Count: 10}},
		{14, "Immortal", "Win 15 games in a row", KindWinStreak, Params{Count: 15}},

		{15, "I Get Knocked Down", "Lose 5 games in a row", KindLoseStreak, Params{Count: 5}},
		{16, "Hat Trick", "Beat the same opponent 3 times in a row in one day", KindDailyWinsVsOpponent, Params{Count: 3}},
		{17, "Brutal", "Beat the same opponent 5 times in a row in one day", KindDailyWinsVsOpponent, Params{Count: 5}},

		{18, "Nemesis", "Lose 15 games to the same opponent", KindLossesVsOpponent, Params{Count: 15}},
		{19, "Rivalry", "Play 25 games against the same opponent", KindGamesVsOpponent, Params{Count: 25}},
		{20, "Social Butterfly", "Play against 5 different opponents", KindDistinctOpponents, Params{Count: 5}},

		{21, "Daily Standup", "Play 5 games in one day", KindGamesInDay, Params{Count: 5}},
		{22, "Do You Even Work Here?", "Play 10 games in one day", KindGamesInDay, Params{Count: 10}},

		{23, "Go Home", "Play a game before 9am or after 6pm", KindPlayOutsideHours, Params{StartHour: 9, EndHour: 18}},
		{24, "Dedicated", "Play on 3 consecutive days", KindConsecutiveDays, Params{Count: 3}},
		{25, "Addicted", "Play on 5 consecutive days", KindConsecutiveDays, Params{Count: 5}},

		{26, "Hostile Takeover", "Beat an opponent rated at least 100 points above you", KindUpsetWin, Params{Rating: 100}},
		{27, "Rising Star", "Reach a rating of 1100", KindRatingReached, Params{Rating: 1100}},
		{28, "Big Shot", "Reach a rating of 1200", KindRatingReached, Params{Rating: 1200}},
		{29, "Final Boss", "Reach a rating of 1300", KindRatingReached, Params{Rating: 1300}},
	}
}

// LoadCatalog reads a catalog from a .json, .yaml or .yml file. Fields the
// catalog format does not know are rejected, so a misspelt param cannot
// silently fall back to zero.
func LoadCatalog(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read achievement catalog: %w", err)
	}

	var rules []Rule
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&rules)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&rules)
	default:
		return nil, fmt.Errorf("achievement catalog %s: unsupported format", path)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse achievement catalog %s: %w", path, err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("achievement catalog %s is empty", path)
	}
	return rules, nil
}
