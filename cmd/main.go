package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/top3hunter/recommend-service/internal/cache"
	"github.com/top3hunter/recommend-service/internal/config"
	"github.com/top3hunter/recommend-service/internal/domain"
	"github.com/top3hunter/recommend-service/internal/handler"
	"github.com/top3hunter/recommend-service/internal/llm"
	"github.com/top3hunter/recommend-service/internal/repository"
	"github.com/top3hunter/recommend-service/internal/search"
	"github.com/top3hunter/recommend-service/internal/service"
	"github.com/top3hunter/recommend-service/internal/settings"
	"github.com/top3hunter/recommend-service/pkg/database"
	"github.com/top3hunter/recommend-service/pkg/jwt"
	pkglog "github.com/top3hunter/recommend-service/pkg/log"
	"github.com/top3hunter/recommend-service/pkg/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "recommend-service",
	})
	logger := pkglog.L()

	// Initialize configuration database
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.ConfigurationModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database connected")

	// Initialize settings service over the configurations table
	configRepo := repository.NewGormConfigurationRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := settings.Seed(ctx, configRepo); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("failed to seed configurations")
	}

	settingsService := settings.NewService(configRepo)
	if err := settingsService.Start(ctx); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("failed to start settings service")
	}
	cancel()
	defer settingsService.Close()

	// Initialize Redis result cache. The pipeline degrades to recomputing
	// every request when Redis is unreachable.
	var resultCache cache.ResultCache
	redisCache, err := cache.NewRedisResultCache(cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running without result cache")
	} else {
		resultCache = redisCache
		defer redisCache.Close()
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	// Initialize the pipeline
	searchClient := search.NewSerperClient(settingsService)
	extractor := llm.NewExtractor(settingsService,
		llm.NewAnthropicProvider(),
		llm.NewOpenAIProvider(),
	)
	recommendService := service.NewRecommendService(
		settingsService, searchClient, extractor, resultCache, cfg.Cache.Prefix,
	)

	// Admin authentication
	if cfg.Admin.JWTSecret == "" {
		logger.Fatal().Msg("admin.jwt_secret is required")
	}
	if cfg.Admin.PasswordHash == "" {
		logger.Warn().Msg("admin.password_hash is empty, admin login is disabled")
	}
	tokens := jwt.NewManager(
		cfg.Admin.JWTSecret,
		time.Duration(cfg.Admin.TokenLifetime)*time.Minute,
		"recommend-service",
	)
	auth := middleware.NewAuthMiddleware(tokens)

	// Initialize HTTP handlers
	recommendHandler := handler.NewRecommendHandler(recommendService)
	adminHandler := handler.NewAdminHandler(cfg.Admin, tokens, settingsService, recommendService)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	handler.RegisterRoutes(r, recommendHandler, adminHandler, auth)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info().Str("addr", addr).Msg("recommend-service starting")
	if err := r.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
