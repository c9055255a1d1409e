package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yell/internal/config"
	"yell/internal/handlers"
	"yell/internal/middleware"
	"yell/internal/repository"
	"yell/internal/service"
	"yell/internal/worker"
	"yell/pkg/database"
	"yell/pkg/logger"
	"yell/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()

	if err := logger.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	if envErr != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().Msg("=== Entry Store Service Starting ===")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, database.Config{
		Driver:          cfg.DB.Driver,
		URL:             cfg.DB.URL,
		ConnectAttempts: cfg.DB.ConnectAttempts,
		ConnectDelay:    cfg.DB.ConnectDelay,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		Debug:           cfg.App.Debug,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	entryRepo := repository.NewEntryRepository(db)

	var cacheRepo repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := redis.Connect(ctx, redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()

		cacheRepo = repository.NewCacheRepository(redisClient)
		log.Info().Dur("ttl", cfg.Cache.TTL).Msg("Entry cache enabled")
	}

	entryService := service.NewEntryService(entryRepo, cacheRepo, service.EntryServiceConfig{
		CacheTTL: cfg.Cache.TTL,
	})

	// Background store probe feeding /health
	probe := worker.NewStoreProbeWorker(entryRepo, cfg.Workers.HealthProbeInterval)
	scheduler := worker.NewScheduler()
	scheduler.AddWorker(probe)

	go scheduler.Start()
	defer scheduler.Stop()

	if cfg.App.Debug {
		gin.SetMode(gin.DebugMode)
		log.Info().Msg("Running in DEBUG mode")
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := handlers.RegisterValidators(); err != nil {
		log.Fatal().Err(err).Msg("Failed to register validators")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		r.Use(middleware.RateLimitMiddleware(limiter))
		log.Info().
			Int("rps", cfg.RateLimit.RequestsPerSecond).
			Int("burst", cfg.RateLimit.Burst).
			Msg("Rate limiting enabled")
	}

	handlers.NewHealthHandler(probe, entryService, cacheRepo).RegisterRoutes(r)
	handlers.NewEntryHandler(entryService).RegisterRoutes(r)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server failed")
		scheduler.Stop()
		database.Close(db)
		os.Exit(1)
	}

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
