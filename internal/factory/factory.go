package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/pongladder/internal/api/events"
	"github.com/mcoot/pongladder/internal/dependencies/clock"
	"github.com/mcoot/pongladder/internal/services/achievement"
	"github.com/mcoot/pongladder/internal/services/headtohead"
	"github.com/mcoot/pongladder/internal/services/ledger"
	"github.com/mcoot/pongladder/internal/services/query"
	"github.com/mcoot/pongladder/internal/services/rating"
	"github.com/mcoot/pongladder/internal/storage"
	"github.com/mcoot/pongladder/internal/storage/memory"
	redisstorage "github.com/mcoot/pongladder/internal/storage/redis"
	"github.com/mcoot/pongladder/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock

	// Services
	RatingEngine       *rating.Engine
	LedgerService      *ledger.Service
	HeadToHeadService  *headtohead.Service
	AchievementService *achievement.Service
	QueryFacade        *query.Facade

	// Live event stream fed by the ledger and achievement services
	Events *events.Hub

	closer io.Closer
}

// Close stops the event hub and releases the storage backend
func (a *App) Close() error {
	err := a.Events.Close()
	if a.closer != nil {
		err = errors.Join(err, a.closer.Close())
	}
	return err
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string

	// Ladder settings; zero values select each service's default
	KFactor        float64
	RecentGames    int
	H2HRecentGames int

	// Timezone for day-based achievements; empty selects Europe/London
	Timezone string
	// AchievementsFile replaces the built-in catalog when set
	AchievementsFile string
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	evaluator, err := newEvaluator(cfg.AchievementsFile, cfg.Timezone)
	if err != nil {
		return nil, err
	}

	// Create storage based on type
	var (
		store  storage.Storage
		closer io.Closer
	)
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store, closer = redisStore, redisStore
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		sqliteStore, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store, closer = sqliteStore, sqliteStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sqlite'")
	}

	app := newWithDependencies(store, clock.New(), evaluator, cfg, logger)
	app.closer = closer
	return app, nil
}

func newEvaluator(catalogPath, timezone string) (*achievement.Evaluator, error) {
	loc, err := achievement.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	rules := achievement.DefaultCatalog()
	if catalogPath != "" {
		if rules, err = achievement.LoadCatalog(catalogPath); err != nil {
			return nil, err
		}
	}
	evaluator, err := achievement.NewEvaluator(achievement.NewRegistry(), rules, loc)
	if err != nil {
		return nil, fmt.Errorf("achievement catalog: %w", err)
	}
	return evaluator, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	evaluator *achievement.Evaluator,
	cfg Config,
	logger *slog.Logger,
) *App {
	// Create services
	engine := rating.New(cfg.KFactor)
	ledgerService := ledger.New(store, engine, clk, logger, cfg.RecentGames)
	headToHeadService := headtohead.New(ledgerService, logger, cfg.H2HRecentGames)
	achievementService := achievement.New(ledgerService, evaluator, logger)
	facade := query.NewFacade(ledgerService, headToHeadService, achievementService)

	// Game events go out before the unlocks they trigger
	hub := events.NewHub(logger)
	go hub.Run()
	publisher := events.NewPublisher(hub, logger)
	ledgerService.Subscribe(publisher)
	ledgerService.Subscribe(achievementService)
	achievementService.Subscribe(publisher)

	return &App{
		Storage:            store,
		Clock:              clk,
		RatingEngine:       engine,
		LedgerService:      ledgerService,
		HeadToHeadService:  headToHeadService,
		AchievementService: achievementService,
		QueryFacade:        facade,
		Events:             hub,
	}
}
