package achievement

import (
	"fmt"
	"strings"
	"time"

	// Embeds the zone database so day-based rules work without system tzdata
	_ "time/tzdata"

	"github.com/mcoot/pongladder/internal/model"
)

// DefaultTimezone is the location whose calendar days and hours day-based rules use
const DefaultTimezone = "Europe/London"

type compiledRule struct {
	achievement model.Achievement
	condition   Condition
}

// Evaluator interprets a compiled catalog against player histories.
// Evaluation is a pure function of the games passed in.
type Evaluator struct {
	rules    []compiledRule
	location *time.Location
}

// NewEvaluator compiles rules with the registry. IDs must be unique and titles non-empty.
func NewEvaluator(registry *Registry, rules []Rule, location *time.Location) (*Evaluator, error) {
	if location == nil {
		location = time.UTC
	}
	seen := make(map[model.AchievementID]bool, len(rules))
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		if seen[rule.ID] {
			return nil, fmt.Errorf("duplicate achievement id %d", rule.ID)
		}
		seen[rule.ID] = true
		if strings.TrimSpace(rule.Title) == "" {
			return nil, fmt.Errorf("achievement %d: title is required", rule.ID)
		}
		cond, err := registry.Build(rule)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledRule{achievement: rule.Achievement(), condition: cond})
	}
	return &Evaluator{rules: compiled, location: location}, nil
}

// Catalog returns every achievement in catalog order
func (e *Evaluator) Catalog() []model.Achievement {
	out := make([]model.Achievement, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.achievement
	}
	return out
}

// Evaluate returns the achievements unlocked by a player's games, in catalog order
func (e *Evaluator) Evaluate(playerID model.PlayerID, games []*model.Game) []model.Achievement {
	facts := Collect(playerID, games, e.location)
	unlocked := make([]model.Achievement, 0)
	for _, r := range e.rules {
		if r.condition(facts) {
			unlocked = append(unlocked, r.achievement)
		}
	}
	return unlocked
}

// LoadLocation resolves a timezone name, defaulting to DefaultTimezone when empty
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
