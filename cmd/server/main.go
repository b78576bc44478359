package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/pongladder/internal/api"
	"github.com/mcoot/pongladder/internal/config"
	"github.com/mcoot/pongladder/internal/factory"
	redisstorage "github.com/mcoot/pongladder/internal/storage/redis"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		Logger:           logger,
		StorageType:      cfg.Storage,
		SQLitePath:       cfg.SQLitePath,
		KFactor:          cfg.KFactor,
		RecentGames:      cfg.RecentGames,
		H2HRecentGames:   cfg.H2HRecentGames,
		Timezone:         cfg.Timezone,
		AchievementsFile: cfg.AchievementsFile,
	}
	if cfg.Storage == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	logger.Info("ladder configured",
		slog.String("storage", cfg.Storage),
		slog.Float64("k_factor", app.RatingEngine.KFactor()),
		slog.Int("achievements", len(app.AchievementService.Catalog())),
	)

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:        logger,
		LedgerService: app.LedgerService,
		QueryFacade:   app.QueryFacade,
		Events:        app.Events,
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)
	server.OnShutdown(func() { _ = app.Events.Close() })

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Error("server stopped with error", slog.String("error", err.Error()))
		return
	}
	logger.Info("server stopped")
}
