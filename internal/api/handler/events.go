package handler

import (
	"net/http"

	"github.com/mcoot/pongladder/internal/api/events"
	"github.com/mcoot/pongladder/internal/middleware"
)

// EventsHandler serves the live activity stream
type EventsHandler struct {
	hub *events.Hub
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *events.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream handles GET /api/v1/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	events.Serve(w, r, h.hub, middleware.RequestIDFromContext(r.Context()))
}
