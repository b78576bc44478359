package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/pongladder/internal/api/apierr"
	"github.com/mcoot/pongladder/internal/api/events"
	"github.com/mcoot/pongladder/internal/api/handler"
	"github.com/mcoot/pongladder/internal/middleware"
	"github.com/mcoot/pongladder/internal/services/ledger"
	"github.com/mcoot/pongladder/internal/services/query"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger        *slog.Logger
	LedgerService *ledger.Service
	QueryFacade   *query.Facade
	// Events enables GET /api/v1/events when set
	Events *events.Hub
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError())
	})

	// Create handlers
	ladderHandler := handler.NewLadderHandler(cfg.QueryFacade, cfg.LedgerService)
	playerHandler := handler.NewPlayerHandler(cfg.LedgerService, cfg.QueryFacade)
	gameHandler := handler.NewGameHandler(cfg.LedgerService)
	headToHeadHandler := handler.NewHeadToHeadHandler(cfg.QueryFacade)

	// Create middleware
	requestIDMiddleware := middleware.RequestID()
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, apierr.WritePanic)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(requestIDMiddleware)
	api.Use(loggingMiddleware)
	api.Use(recoveryMiddleware)

	// Ladder views
	api.HandleFunc("/index", ladderHandler.Index).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", ladderHandler.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/achievements", ladderHandler.Achievements).Methods(http.MethodGet)
	api.HandleFunc("/ratings/audit", ladderHandler.AuditRatings).Methods(http.MethodGet)

	// Player routes
	api.HandleFunc("/players", playerHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/players/{id}", playerHandler.Get).Methods(http.MethodGet)

	// Game routes
	api.HandleFunc("/games", gameHandler.Record).Methods(http.MethodPost)
	api.HandleFunc("/head-to-head", headToHeadHandler.Get).Methods(http.MethodGet)

	// Live activity stream
	if cfg.Events != nil {
		eventsHandler := handler.NewEventsHandler(cfg.Events)
		api.HandleFunc("/events", eventsHandler.Stream).Methods(http.MethodGet)
	}

	// Health check endpoint
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
