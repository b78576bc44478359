package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mcoot/pongladder/internal/api/response"
	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/services/achievement"
	"github.com/mcoot/pongladder/internal/services/ledger"
)

// Event names
const (
	EventConnected           = "connected"
	EventGameRecorded        = "game-recorded"
	EventAchievementUnlocked = "achievement-unlocked"
)

// AchievementUnlocked is the payload of an achievement-unlocked event
type AchievementUnlocked struct {
	PlayerID     int64                  `json:"playerId"`
	GameID       int64                  `json:"gameId"`
	Achievements []response.Achievement `json:"achievements"`
}

// Publisher turns ledger and achievement notifications into hub events
type Publisher struct {
	hub    *Hub
	logger *slog.Logger
}

var (
	_ ledger.Observer            = (*Publisher)(nil)
	_ achievement.UnlockObserver = (*Publisher)(nil)
)

// NewPublisher creates a publisher for hub
func NewPublisher(hub *Hub, logger *slog.Logger) *Publisher {
	return &Publisher{hub: hub, logger: logger}
}

// GameRecorded broadcasts the new ledger entry
func (p *Publisher) GameRecorded(_ context.Context, game *model.Game) {
	p.publish(EventGameRecorded, response.GameFromModel(game))
}

// AchievementsUnlocked broadcasts a player's new unlocks
func (p *Publisher) AchievementsUnlocked(_ context.Context, id model.PlayerID, game *model.Game, unlocked []model.Achievement) {
	p.publish(EventAchievementUnlocked, AchievementUnlocked{
		PlayerID:     int64(id),
		GameID:       int64(game.ID),
		Achievements: response.AchievementsFromModel(unlocked),
	})
}

func (p *Publisher) publish(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to encode event",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		return
	}
	p.hub.BroadcastEvent(event, string(data))
}
