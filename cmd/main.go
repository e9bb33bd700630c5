package main

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/kunduachyut/linkfro-chat-relay/internal/cache"
	"github.com/kunduachyut/linkfro-chat-relay/internal/config"
	"github.com/kunduachyut/linkfro-chat-relay/internal/directory"
	"github.com/kunduachyut/linkfro-chat-relay/internal/domain"
	"github.com/kunduachyut/linkfro-chat-relay/internal/handler"
	"github.com/kunduachyut/linkfro-chat-relay/internal/hub"
	"github.com/kunduachyut/linkfro-chat-relay/internal/service"
	"github.com/kunduachyut/linkfro-chat-relay/internal/store"
	"github.com/kunduachyut/linkfro-chat-relay/pkg/database"
	pkglog "github.com/kunduachyut/linkfro-chat-relay/pkg/log"
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
		ServiceName: "chat-relay",
	})
	logger := pkglog.L()

	// Connect to the application database using GORM
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
		LogQueries:      cfg.Log.Level == "debug",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Migrate the relay's own tables. The purchases table belongs to the
	// main application and is not migrated here.
	if err := database.AutoMigrate(db, &domain.ChatModel{}, &domain.MessageModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// Message store and purchase directory over the shared database
	msgStore := store.NewGormMessageStore(db)
	defer msgStore.Close()
	purchaseDir := directory.NewGormDirectory(db)

	// History cache
	msgCache, err := cache.NewRedisMessageCache(cfg.Redis, cfg.Cache.Prefix)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer msgCache.Close()
	logger.Info().Str("address", cfg.Redis.Address).Msg("redis cache connected")

	// Relay hub
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	// Relay service
	relay := service.NewRelayService(wsHub, msgStore, purchaseDir, msgCache, cfg.Cache.TTL)

	// Handlers
	wsHandler := handler.NewWSHandler(relay)
	httpHandler := handler.NewHTTPHandler(relay)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	wsHandler.RegisterRoutes(r)
	httpHandler.RegisterRoutes(r)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info().
		Str("addr", addr).
		Str("relay_url", cfg.Relay.URL).
		Str("driver", cfg.Database.Driver).
		Msg("chat-relay starting")
	if err := r.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
