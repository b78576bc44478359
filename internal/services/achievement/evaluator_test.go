package achievement

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongladder/internal/model"
)

type EvaluatorSuite struct {
	suite.Suite
	evaluator *Evaluator
	london    *time.Location
	player    model.PlayerRef
	opponent  model.PlayerRef
	games     []*model.Game
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	loc, err := LoadLocation("")
	s.Require().NoError(err)
	s.london = loc

	s.evaluator, err = NewEvaluator(NewRegistry(), DefaultCatalog(), loc)
	s.Require().NoError(err)

	s.player = model.PlayerRef{ID: 1, Name: "Test Player"}
	s.opponent = model.PlayerRef{ID: 2, Name: "Test Opponent"}
	s.games = nil
}

func score(v int) *int { return &v }

// play appends a game at the given London wall-clock time
func (s *EvaluatorSuite) play(won bool, at time.Time, scores ...int) *model.Game {
	return s.playAgainst(s.opponent, won, at, scores...)
}

func (s *EvaluatorSuite) playAgainst(opponent model.PlayerRef, won bool, at time.Time, scores ...int) *model.Game {
	g := &model.Game{
		ID:                 model.GameID(len(s.games) + 1),
		Winner:             s.player,
		Loser:              opponent,
		WinnerRatingBefore: 1000,
		WinnerRatingAfter:  1016,
		LoserRatingBefore:  1000,
		LoserRatingAfter:   984,
		CreatedAt:          at,
	}
	if !won {
		g.Winner, g.Loser = opponent, s.player
	}
	if len(scores) == 2 {
		g.WinnerScore = score(scores[0])
		g.LoserScore = score(scores[1])
	}
	s.games = append(s.games, g)
	return g
}

func (s *EvaluatorSuite) at(day, hour int) time.Time {
	return time.Date(2023, 1, day, hour, 0, 0, 0, s.london)
}

func (s *EvaluatorSuite) unlocked() map[model.AchievementID]bool {
	out := make(map[model.AchievementID]bool)
	for _, a := range s.evaluator.Evaluate(s.player.ID, s.games) {
		out[a.ID] = true
	}
	return out
}

const (
	playOne          model.AchievementID = 1
	playTen          model.AchievementID = 2
	winElevenNil     model.AchievementID = 7
	winElevenOne     model.AchievementID = 8
	winClutch        model.AchievementID = 9
	winMarathon      model.AchievementID = 10
	loseClutch       model.AchievementID = 11
	winFive          model.AchievementID = 12
	winTen           model.AchievementID = 13
	winFifteen       model.AchievementID = 14
	loseFive         model.AchievementID = 15
	hatTrick         model.AchievementID = 16
	brutal           model.AchievementID = 17
	nemesis          model.AchievementID = 18
	rivalry          model.AchievementID = 19
	socialButterfly  model.AchievementID = 20
	dailyStandup     model.AchievementID = 21
	outsideWorkHours model.AchievementID = 23
	threeDayStreak   model.AchievementID = 24
	fiveDayStreak    model.AchievementID = 25
	hostileTakeover  model.AchievementID = 26
	risingStar       model.AchievementID = 27
	bigShot          model.AchievementID = 28
)

func (s *EvaluatorSuite) TestNoGamesUnlocksNothing() {
	s.Empty(s.evaluator.Evaluate(s.player.ID, nil))
}

func (s *EvaluatorSuite) TestPlayOne() {
	s.play(true, s.at(2, 10), 11, 5)

	got := s.unlocked()
	s.True(got[playOne])
	s.False(got[playTen])
}

func (s *EvaluatorSuite) TestWinFifteenConsecutive() {
	for i := 0; i < 15; i++ {
		s.play(true, s.at(1, 0).Add(time.Duration(10+i)*time.Hour), 11, 5)
	}

	got := s.unlocked()
	s.True(got[winFive])
	s.True(got[winTen])
	s.True(got[winFifteen])
}

func (s *EvaluatorSuite) TestLossBreaksWinStreak() {
	for i := 0; i < 4; i++ {
		s.play(true, s.at(2+i, 10))
	}
	s.play(false, s.at(6, 10))
	for i := 0; i < 4; i++ {
		s.play(true, s.at(7+i, 10))
	}

	s.False(s.unlocked()[winFive])
}

func (s *EvaluatorSuite) TestLoseFiveConsecutive() {
	for i := 0; i < 5; i++ {
		s.play(false, s.at(2+i, 10))
	}

	got := s.unlocked()
	s.True(got[loseFive])
	s.True(got[playOne])
}

func (s *EvaluatorSuite) TestScoreLines() {
	s.play(true, s.at(2, 10), 11, 0)
	s.play(true, s.at(2, 11), 11, 1)
	s.play(true, s.at(2, 12), 12, 10)
	s.play(false, s.at(2, 13), 12, 10)

	got := s.unlocked()
	s.True(got[winElevenNil])
	s.True(got[winElevenOne])
	s.True(got[winClutch])
	s.True(got[loseClutch])
	s.False(got[winMarathon])
}

func (s *EvaluatorSuite) TestLosingElevenNilDoesNotUnlockWin() {
	s.play(false, s.at(2, 10), 11, 0)

	s.False(s.unlocked()[winElevenNil])
}

func (s *EvaluatorSuite) TestMarathon() {
	s.play(true, s.at(2, 10), 16, 14)

	s.True(s.unlocked()[winMarathon])
}

func (s *EvaluatorSuite) TestHatTrickNeedsSameDay() {
	s.play(true, s.at(2, 10))
	s.play(true, s.at(2, 11))
	s.play(true, s.at(3, 10))

	s.False(s.unlocked()[hatTrick])

	s.play(true, s.at(3, 11))
	s.play(true, s.at(3, 12))

	got := s.unlocked()
	s.True(got[hatTrick])
	s.False(got[brutal])
}

func (s *EvaluatorSuite) TestHatTrickBrokenByLoss() {
	s.play(true, s.at(2, 10))
	s.play(true, s.at(2, 11))
	s.play(false, s.at(2, 12))
	s.play(true, s.at(2, 13))

	s.False(s.unlocked()[hatTrick])
}

func (s *EvaluatorSuite) TestHatTrickCountsPerOpponent() {
	other := model.PlayerRef{ID: 3, Name: "Other"}
	s.play(true, s.at(2, 10))
	s.playAgainst(other, true, s.at(2, 11))
	s.play(true, s.at(2, 12))

	s.False(s.unlocked()[hatTrick])
}

func (s *EvaluatorSuite) TestNemesisAndRivalry() {
	for i := 0; i < 15; i++ {
		s.play(false, s.at(1, 0).Add(time.Duration(i)*24*time.Hour))
	}
	got := s.unlocked()
	s.True(got[nemesis])
	s.False(got[rivalry])

	for i := 0; i < 10; i++ {
		s.play(true, s.at(20, 0).Add(time.Duration(i)*24*time.Hour))
	}
	s.True(s.unlocked()[rivalry])
}

func (s *EvaluatorSuite) TestSocialButterfly() {
	for i := 0; i < 4; i++ {
		s.playAgainst(model.PlayerRef{ID: model.PlayerID(10 + i)}, true, s.at(2+i, 10))
	}
	s.False(s.unlocked()[socialButterfly])

	s.playAgainst(model.PlayerRef{ID: 20}, false, s.at(9, 10))
	s.True(s.unlocked()[socialButterfly])
}

func (s *EvaluatorSuite) TestDailyStandup() {
	for i := 0; i < 4; i++ {
		s.play(true, s.at(2, 9+i))
	}
	s.play(true, s.at(3, 9))
	s.False(s.unlocked()[dailyStandup])

	for i := 0; i < 4; i++ {
		s.play(false, s.at(3, 10+i))
	}
	s.True(s.unlocked()[dailyStandup])
}

func (s *EvaluatorSuite) TestOutsideWorkHoursUsesLocalTime() {
	// 17:30 UTC is 18:30 in London during summer time
	s.play(true, time.Date(2023, 7, 3, 17, 30, 0, 0, time.UTC))
	s.True(s.unlocked()[outsideWorkHours])
}

func (s *EvaluatorSuite) TestWithinWorkHours() {
	s.play(true, s.at(2, 9))
	s.play(true, s.at(2, 17))
	s.False(s.unlocked()[outsideWorkHours])

	s.play(true, s.at(2, 8))
	s.True(s.unlocked()[outsideWorkHours])
}

func (s *EvaluatorSuite) TestConsecutiveDays() {
	s.play(true, s.at(2, 10))
	s.play(true, s.at(3, 10))
	s.play(true, s.at(5, 10))
	s.play(true, s.at(6, 10))
	s.False(s.unlocked()[threeDayStreak])

	s.play(true, s.at(7, 10))
	s.play(true, s.at(7, 11))
	got := s.unlocked()
	s.True(got[threeDayStreak])
	s.False(got[fiveDayStreak])
}

func (s *EvaluatorSuite) TestConsecutiveDaysAcrossMonths() {
	s.play(true, time.Date(2023, 1, 30, 12, 0, 0, 0, s.london))
	s.play(true, time.Date(2023, 1, 31, 12, 0, 0, 0, s.london))
	s.play(true, time.Date(2023, 2, 1, 12, 0, 0, 0, s.london))

	s.True(s.unlocked()[threeDayStreak])
}

func (s *EvaluatorSuite) TestUpsetWin() {
	g := s.play(true, s.at(2, 10))
	g.WinnerRatingBefore = 1000
	g.LoserRatingBefore = 1099
	s.False(s.unlocked()[hostileTakeover])

	g.LoserRatingBefore = 1100
	s.True(s.unlocked()[hostileTakeover])
}

func (s *EvaluatorSuite) TestUpsetNeedsWin() {
	g := s.play(false, s.at(2, 10))
	g.WinnerRatingBefore = 1500
	g.LoserRatingBefore = 1000
	s.False(s.unlocked()[hostileTakeover])
}

func (s *EvaluatorSuite) TestRatingReachedIsKeptAfterDropping() {
	g := s.play(true, s.at(2, 10))
	g.WinnerRatingAfter = 1150
	later := s.play(false, s.at(3, 10))
	later.LoserRatingAfter = 1080

	got := s.unlocked()
	s.True(got[risingStar])
	s.False(got[bigShot])
}

func (s *EvaluatorSuite) TestEvaluationIsIdempotentAndOrderIndependent() {
	s.play(true, s.at(2, 10), 11, 0)
	s.play(false, s.at(2, 11), 12, 10)
	s.play(true, s.at(3, 19))

	first := s.evaluator.Evaluate(s.player.ID, s.games)
	second := s.evaluator.Evaluate(s.player.ID, s.games)
	s.Equal(first, second)

	shuffled := []*model.Game{s.games[2], s.games[0], s.games[1]}
	s.Equal(first, s.evaluator.Evaluate(s.player.ID, shuffled))
}

func (s *EvaluatorSuite) TestResultsInCatalogOrder() {
	for i := 0; i < 5; i++ {
		s.play(true, s.at(2, 10+i), 11, 0)
	}

	got := s.evaluator.Evaluate(s.player.ID, s.games)
	for i := 1; i < len(got); i++ {
		s.Less(got[i-1].ID, got[i].ID)
	}
}

// Catalog tests

func (s *EvaluatorSuite) TestDefaultCatalog() {
	catalog := s.evaluator.Catalog()
	s.Len(catalog, 29)

	seen := make(map[model.AchievementID]bool)
	for i, a := range catalog {
		s.Equal(model.AchievementID(i+1), a.ID)
		s.NotEmpty(a.Title)
		s.NotEmpty(a.Description)
		s.False(seen[a.ID])
		seen[a.ID] = true
	}
}

func (s *EvaluatorSuite) TestUnknownKindRejected() {
	_, err := NewEvaluator(NewRegistry(), []Rule{{ID: 1, Title: "x", Kind: "nope"}}, s.london)
	s.ErrorContains(err, "unknown rule kind")
	s.ErrorContains(err, KindGamesPlayed)
	s.ErrorContains(err, KindWinStreak)
}

func (s *EvaluatorSuite) TestRegistryKindsSorted() {
	registry := NewRegistry()
	registry.Register("aaa_first", func(Params) (Condition, error) { return nil, nil })

	kinds := registry.Kinds()
	s.Equal("aaa_first", kinds[0])
	s.Contains(kinds, KindRatingReached)
	s.IsNonDecreasing(kinds)
}

func (s *EvaluatorSuite) TestInvalidParamsRejected() {
	_, err := NewEvaluator(NewRegistry(), []Rule{{ID: 1, Title: "x", Kind: KindGamesPlayed}}, s.london)
	s.ErrorContains(err, "count must be positive")

	_, err = NewEvaluator(NewRegistry(), []Rule{{ID: 1, Title: "x", Kind: KindPlayOutsideHours, Params: Params{StartHour: 18, EndHour: 9}}}, s.london)
	s.Error(err)
}

func (s *EvaluatorSuite) TestDuplicateIDRejected() {
	rules := []Rule{
		{ID: 1, Title: "a", Kind: KindGamesPlayed, Params: Params{Count: 1}},
		{ID: 1, Title: "b", Kind: KindGamesPlayed, Params: Params{Count: 2}},
	}
	_, err := NewEvaluator(NewRegistry(), rules, s.london)
	s.ErrorContains(err, "duplicate")
}

func (s *EvaluatorSuite) TestCustomKindPlugsIn() {
	registry := NewRegistry()
	registry.Register("won_on_monday", func(p Params) (Condition, error) {
		return func(f *Facts) bool {
			for _, g := range f.Games {
				if g.WonBy(f.PlayerID) && g.CreatedAt.In(s.london).Weekday() == time.Monday {
					return true
				}
			}
			return false
		}, nil
	})
	evaluator, err := NewEvaluator(registry, []Rule{{ID: 100, Title: "Manic Monday", Kind: "won_on_monday"}}, s.london)
	s.Require().NoError(err)

	s.play(true, s.at(2, 10)) // 2023-01-02 is a Monday
	got := evaluator.Evaluate(s.player.ID, s.games)
	s.Require().Len(got, 1)
	s.Equal("Manic Monday", got[0].Title)
}

func (s *EvaluatorSuite) TestLoadCatalogYAML() {
	path := filepath.Join(s.T().TempDir(), "catalog.yaml")
	content := `
- id: 1
  title: First Blood
  description: Win a game
  kind: win_streak
  params:
    count: 1
- id: 2
  title: Night Owl
  description: Play after 10pm
  kind: play_outside_hours
  params:
    startHour: 0
    endHour: 22
`
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	rules, err := LoadCatalog(path)
	s.Require().NoError(err)
	s.Require().Len(rules, 2)
	s.Equal(KindPlayOutsideHours, rules[1].Kind)
	s.Equal(22, rules[1].Params.EndHour)

	evaluator, err := NewEvaluator(NewRegistry(), rules, s.london)
	s.Require().NoError(err)
	s.play(true, s.at(2, 23))
	s.Len(evaluator.Evaluate(s.player.ID, s.games), 2)
}

func (s *EvaluatorSuite) TestLoadCatalogJSON() {
	path := filepath.Join(s.T().TempDir(), "catalog.json")
	content := `[{"id":7,"title":"Rising","description":"Reach 1050","kind":"rating_reached","params":{"rating":1050}}]`
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	rules, err := LoadCatalog(path)
	s.Require().NoError(err)
	s.Require().Len(rules, 1)
	s.Equal(model.AchievementID(7), rules[0].ID)
	s.InDelta(1050.0, rules[0].Params.Rating, 1e-9)
}

func (s *EvaluatorSuite) TestLoadCatalogErrors() {
	dir := s.T().TempDir()

	_, err := LoadCatalog(filepath.Join(dir, "missing.json"))
	s.Error(err)

	txt := filepath.Join(dir, "catalog.txt")
	s.Require().NoError(os.WriteFile(txt, []byte("[]"), 0o600))
	_, err = LoadCatalog(txt)
	s.ErrorContains(err, "unsupported format")

	empty := filepath.Join(dir, "catalog.json")
	s.Require().NoError(os.WriteFile(empty, []byte("[]"), 0o600))
	_, err = LoadCatalog(empty)
	s.ErrorContains(err, "empty")

	blank := filepath.Join(dir, "blank.yaml")
	s.Require().NoError(os.WriteFile(blank, nil, 0o600))
	_, err = LoadCatalog(blank)
	s.ErrorContains(err, "empty")
}

func (s *EvaluatorSuite) TestLoadCatalogRejectsUnknownFields() {
	dir := s.T().TempDir()

	misspeltJSON := filepath.Join(dir, "catalog.json")
	s.Require().NoError(os.WriteFile(misspeltJSON,
		[]byte(`[{"id":1,"title":"Clean Sheet","kind":"win_with_score","params":{"winner_score":11,"loserScore":0}}]`), 0o600))
	_, err := LoadCatalog(misspeltJSON)
	s.ErrorContains(err, "winner_score")

	misspeltYAML := filepath.Join(dir, "catalog.yaml")
	s.Require().NoError(os.WriteFile(misspeltYAML, []byte(`
- id: 1
  title: Clean Sheet
  kind: win_with_score
  params:
    winner_score: 11
    loserScore: 0
`), 0o600))
	_, err = LoadCatalog(misspeltYAML)
	s.ErrorContains(err, "winner_score")

	extraRuleField := filepath.Join(dir, "extra.yaml")
	s.Require().NoError(os.WriteFile(extraRuleField, []byte(`
- id: 1
  title: Warm Up
  kind: games_played
  points: 10
  params:
    count: 1
`), 0o600))
	_, err = LoadCatalog(extraRuleField)
	s.ErrorContains(err, "points")
}

func (s *EvaluatorSuite) TestLoadLocation() {
	loc, err := LoadLocation("America/New_York")
	s.Require().NoError(err)
	s.Equal("America/New_York", loc.String())

	_, err = LoadLocation("Not/AZone")
	s.Error(err)
}
