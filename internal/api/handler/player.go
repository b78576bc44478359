package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/pongladder/internal/api/request"
	"github.com/mcoot/pongladder/internal/api/response"
	"github.com/mcoot/pongladder/internal/services/ledger"
	"github.com/mcoot/pongladder/internal/services/query"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	ledger *ledger.Service
	facade *query.Facade
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(ledger *ledger.Service, facade *query.Facade) *PlayerHandler {
	return &PlayerHandler{
		ledger: ledger,
		facade: facade,
	}
}

// Create handles POST /api/v1/players
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	player, err := h.ledger.CreatePlayer(r.Context(), req.Name)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.WriteCreated(w, int64(player.ID))
}

// Get handles GET /api/v1/players/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathPlayerID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	profile, err := h.facade.PlayerProfile(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerProfileFromModel(profile))
}
