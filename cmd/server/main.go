package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/car-storefront-api/internal/api"
	"github.com/car-storefront-api/internal/cache"
	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/internal/database"
	"github.com/car-storefront-api/internal/repository"
	"github.com/car-storefront-api/internal/service"
	"github.com/car-storefront-api/internal/settings"
	"github.com/car-storefront-api/internal/storage"
	"github.com/car-storefront-api/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Options{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.Info().Msg("Starting car storefront API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
		if err := db.MigrateDown(cfg.Server.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to roll back migrations")
		}
		log.Info().Msg("Migrations rolled back")
		return
	}

	// Run migrations
	if err := db.RunMigrations(cfg.Server.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	ctx := context.Background()

	// Initialize repositories
	repos := repository.New(db)

	// Public catalog cache, redis when configured
	var catalog cache.Catalog = cache.Nop{}
	if cfg.Cache.RedisAddr != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.Cache, log)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, catalog cache disabled")
		} else {
			defer redisCache.Close()
			catalog = redisCache
		}
	}

	// Initialize services
	services := service.NewServices(repos, catalog, cfg, log)

	// Image storage
	imageStore, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize image storage")
	}
	images := storage.NewImages(imageStore, cfg.Storage.MaxImageWidth, log)
	uploadDir := ""
	if !cfg.Storage.UsesS3() {
		uploadDir = cfg.Storage.UploadDir
	}

	// Site settings snapshot and theme
	theme := settings.NewCSSTheme()
	store := settings.New(services.Settings, log, settings.WithTheme(theme))
	services.Settings.AttachStore(store)
	if err := store.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Serving default site settings until the next refresh")
	}

	if err := services.Auth.EnsureDefaultAdmin(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create default admin")
	}

	// Start background import processor
	go services.Run.StartProcessor(ctx)
	log.Info().Msg("Background import processor started")

	// Initialize router
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(services, cfg, log,
		api.WithImages(images, uploadDir),
		api.WithTheme(theme),
		api.WithHealthCheck(db.HealthCheck),
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop import processor
	services.Run.StopProcessor()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
