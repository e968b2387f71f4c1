package main

import (
	"context"
	"log"
	"time"

	"hospital-booking/cmd"
	"hospital-booking/internal/data/repository"
	"hospital-booking/internal/wire"
	"hospital-booking/pkg/cache"
	"hospital-booking/pkg/database"
	"hospital-booking/pkg/observability"
	"hospital-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("storage", config.App.StorageDriver),
		zap.Bool("debug", config.App.Debug),
	)

	var repos *repository.Repository
	switch config.App.StorageDriver {
	case "memory":
		logger.Warn("Using in-memory storage; data is lost on restart")
		repos = repository.NewMemoryRepository(logger, repository.MemoryHooks{})
	default:
		db, err := database.InitDB(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if config.Database.Migrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := database.Migrate(ctx, db)
			cancel()
			if err != nil {
				logger.Fatal("Failed to migrate database", zap.Error(err))
			}
		}

		logger.Info("Database connected successfully")
		repos = repository.NewRepository(db, logger)
	}

	var queryCache cache.Cache = cache.NewMemory()
	if config.Redis.Enabled() {
		redisCache, err := cache.NewRedis(config.Redis, config.App.Name)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisCache.Close()
		queryCache = redisCache
		logger.Info("Redis cache connected", zap.String("addr", config.Redis.Addr))
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal("Failed to init metrics", zap.Error(err))
	}

	app := wire.Wiring(repos, queryCache, metrics, config, logger)

	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
}
