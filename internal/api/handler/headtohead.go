package handler

import (
	"net/http"

	"github.com/mcoot/pongladder/internal/api/response"
	"github.com/mcoot/pongladder/internal/services/query"
)

// HeadToHeadHandler serves rivalry summaries
type HeadToHeadHandler struct {
	facade *query.Facade
}

// NewHeadToHeadHandler creates a new head-to-head handler
func NewHeadToHeadHandler(facade *query.Facade) *HeadToHeadHandler {
	return &HeadToHeadHandler{facade: facade}
}

// Get handles GET /api/v1/head-to-head?p1={id}&p2={id}
func (h *HeadToHeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p1, err := parsePlayerID(q.Get("p1"), "p1")
	if err != nil {
		WriteError(w, err)
		return
	}
	p2, err := parsePlayerID(q.Get("p2"), "p2")
	if err != nil {
		WriteError(w, err)
		return
	}

	h2h, err := h.facade.HeadToHead(r.Context(), p1, p2)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.HeadToHeadFromModel(h2h))
}
