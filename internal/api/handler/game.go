package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/pongladder/internal/api/request"
	"github.com/mcoot/pongladder/internal/api/response"
	"github.com/mcoot/pongladder/internal/model"
	"github.com/mcoot/pongladder/internal/services/ledger"
)

// GameHandler handles game submission
type GameHandler struct {
	ledger *ledger.Service
}

// NewGameHandler creates a new game handler
func NewGameHandler(ledger *ledger.Service) *GameHandler {
	return &GameHandler{
		ledger: ledger,
	}
}

// Record handles POST /api/v1/games
func (h *GameHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req request.RecordGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.WinnerID == nil {
		WriteError(w, NewInvalidRequestError("winnerId is required"))
		return
	}
	if req.LoserID == nil {
		WriteError(w, NewInvalidRequestError("loserId is required"))
		return
	}

	game, err := h.ledger.RecordGame(r.Context(), model.GameResult{
		WinnerID:    model.PlayerID(*req.WinnerID),
		LoserID:     model.PlayerID(*req.LoserID),
		WinnerScore: req.WinnerScore,
		LoserScore:  req.LoserScore,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.WriteCreated(w, int64(game.ID))
}
