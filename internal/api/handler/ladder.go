package handler

import (
	"net/http"

	"github.com/mcoot/pongladder/internal/api/response"
	"github.com/mcoot/pongladder/internal/services/ledger"
	"github.com/mcoot/pongladder/internal/services/query"
)

// LadderHandler serves ladder-wide views
type LadderHandler struct {
	facade *query.Facade
	ledger *ledger.Service
}

// NewLadderHandler creates a new ladder handler
func NewLadderHandler(facade *query.Facade, ledger *ledger.Service) *LadderHandler {
	return &LadderHandler{
		facade: facade,
		ledger: ledger,
	}
}

// Index handles GET /api/v1/index
func (h *LadderHandler) Index(w http.ResponseWriter, r *http.Request) {
	index, err := h.facade.IndexData(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.IndexFromModel(index))
}

// Leaderboard handles GET /api/v1/leaderboard
func (h *LadderHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	players, err := h.facade.Leaderboard(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(players))
}

// Achievements handles GET /api/v1/achievements
func (h *LadderHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.AchievementsFromModel(h.facade.Achievements()))
}

// AuditRatings handles GET /api/v1/ratings/audit
func (h *LadderHandler) AuditRatings(w http.ResponseWriter, r *http.Request) {
	discrepancies, err := h.ledger.AuditRatings(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RatingAuditFromModel(h.ledger.KFactor(), discrepancies))
}
