package achievement

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mcoot/pongladder/internal/model"
)

// Params are the thresholds a rule kind is configured with. Each kind reads
// only the fields it needs.
type Params struct {
	Count       int     `json:"count,omitempty" yaml:"count,omitempty"`
	WinnerScore int     `json:"winnerScore,omitempty" yaml:"winnerScore,omitempty"`
	LoserScore  int     `json:"loserScore,omitempty" yaml:"loserScore,omitempty"`
	MinScore    int     `json:"minScore,omitempty" yaml:"minScore,omitempty"`
	Rating      float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	StartHour   int     `json:"startHour,omitempty" yaml:"startHour,omitempty"`
	EndHour     int     `json:"endHour,omitempty" yaml:"endHour,omitempty"`
}

// Condition reports whether a player's facts unlock an achievement
type Condition func(f *Facts) bool

// Kind builds a Condition from configured params, rejecting invalid ones
type Kind func(p Params) (Condition, error)

// Rule kind names understood by the default registry
const (
	KindGamesPlayed         = "games_played"
	KindWinWithScore        = "win_with_score"
	KindWinWithMinScore     = "win_with_min_score"
	KindLoseWithScore       = "lose_with_score"
	KindWinStreak           = "win_streak"
	KindLoseStreak          = "lose_streak"
	KindDailyWinsVsOpponent = "daily_wins_vs_opponent"
	KindLossesVsOpponent    = "losses_vs_opponent"
	KindGamesVsOpponent     = "games_vs_opponent"
	KindDistinctOpponents   = "distinct_opponents"
	KindGamesInDay          = "games_in_day"
	KindConsecutiveDays     = "consecutive_days"
	KindPlayOutsideHours    = "play_outside_hours"
	KindUpsetWin            = "upset_win"
	KindRatingReached       = "rating_reached"
)

// Registry maps rule kind names to their builders. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry returns a registry holding every built-in kind
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]Kind)}
	r.Register(KindGamesPlayed, countKind(func(f *Facts) int { return f.GamesPlayed }))
	r.Register(KindWinStreak, countKind(func(f *Facts) int { return f.LongestWinStreak }))
	r.Register(KindLoseStreak, countKind(func(f *Facts) int { return f.LongestLoseStreak }))
	r.Register(KindDistinctOpponents, countKind(func(f *Facts) int { return len(f.Opponents) }))
	r.Register(KindGamesInDay, countKind(func(f *Facts) int { return f.MostGamesInDay }))
	r.Register(KindConsecutiveDays, countKind(func(f *Facts) int { return f.LongestDayStreak }))
	r.Register(KindDailyWinsVsOpponent, opponentKind(func(o *OpponentFacts) int { return o.LongestDailyWins }))
	r.Register(KindLossesVsOpponent, opponentKind(func(o *OpponentFacts) int { return o.Losses }))
	r.Register(KindGamesVsOpponent, opponentKind(func(o *OpponentFacts) int { return o.Games }))
	r.Register(KindWinWithScore, scoreLineKind(func(f *Facts) map[ScoreLine]bool { return f.WinScores }))
	r.Register(KindLoseWithScore, scoreLineKind(func(f *Facts) map[ScoreLine]bool { return f.LossScores }))
	r.Register(KindWinWithMinScore, winWithMinScore)
	r.Register(KindPlayOutsideHours, playOutsideHours)
	r.Register(KindUpsetWin, upsetWin)
	r.Register(KindRatingReached, ratingReached)
	return r
}

// Register adds or replaces a rule kind
func (r *Registry) Register(name string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[name] = kind
}

// Build compiles a rule's condition
func (r *Registry) Build(rule Rule) (Condition, error) {
	r.mu.RLock()
	kind, ok := r.kinds[rule.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("achievement %d: unknown rule kind %q (known: %s)",
			rule.ID, rule.Kind, strings.Join(r.Kinds(), ", "))
	}
	cond, err := kind(rule.Params)
	if err != nil {
		return nil, fmt.Errorf("achievement %d (%s): %w", rule.ID, rule.Kind, err)
	}
	return cond, nil
}

// Kinds lists the registered kind names in sorted order
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func countKind(metric func(f *Facts) int) Kind {
	return func(p Params) (Condition, error) {
		if p.Count <= 0 {
			return nil, fmt.Errorf("count must be positive")
		}
		return func(f *Facts) bool { return metric(f) >= p.Count }, nil
	}
}

func opponentKind(metric func(o *OpponentFacts) int) Kind {
	return func(p Params) (Condition, error) {
		if p.Count <= 0 {
			return nil, fmt.Errorf("count must be positive")
		}
		return func(f *Facts) bool {
			for _, o := range f.Opponents {
				if metric(o) >= p.Count {
					return true
				}
			}
			return false
		}, nil
	}
}

func scoreLineKind(lines func(f *Facts) map[ScoreLine]bool) Kind {
	return func(p Params) (Condition, error) {
		if err := checkScore(p.WinnerScore); err != nil {
			return nil, err
		}
		if err := checkScore(p.LoserScore); err != nil {
			return nil, err
		}
		want := ScoreLine{WinnerScore: p.WinnerScore, LoserScore: p.LoserScore}
		return func(f *Facts) bool { return lines(f)[want] }, nil
	}
}

func winWithMinScore(p Params) (Condition, error) {
	if p.MinScore <= 0 {
		return nil, fmt.Errorf("minScore must be positive")
	}
	if err := checkScore(p.MinScore); err != nil {
		return nil, err
	}
	return func(f *Facts) bool { return f.HighestWinningScore >= p.MinScore }, nil
}

// playOutsideHours unlocks for any game whose local hour falls outside [StartHour, EndHour)
func playOutsideHours(p Params) (Condition, error) {
	if p.StartHour < 0 || p.EndHour > 24 || p.StartHour >= p.EndHour {
		return nil, fmt.Errorf("hours must satisfy 0 <= startHour < endHour <= 24")
	}
	return func(f *Facts) bool {
		for hour, played := range f.HoursPlayed {
			if played && (hour < p.StartHour || hour >= p.EndHour) {
				return true
			}
		}
		return false
	}, nil
}

func upsetWin(p Params) (Condition, error) {
	if p.Rating <= 0 {
		return nil, fmt.Errorf("rating must be positive")
	}
	return func(f *Facts) bool { return f.BiggestUpset >= p.Rating }, nil
}

func ratingReached(p Params) (Condition, error) {
	if p.Rating <= 0 {
		return nil, fmt.Errorf("rating must be positive")
	}
	return func(f *Facts) bool { return f.GamesPlayed > 0 && f.PeakRating >= p.Rating }, nil
}

func checkScore(v int) error {
	if v < 0 || v > model.MaxScore {
		return fmt.Errorf("score %d out of range", v)
	}
	return nil
}
