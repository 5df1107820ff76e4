package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/ecolens/backend/internal/api/handlers"
	"github.com/ecolens/backend/internal/history"
	"github.com/ecolens/backend/internal/llm"
	"github.com/ecolens/backend/internal/metrics"
	"github.com/ecolens/backend/internal/middleware/ratelimit"
	"github.com/ecolens/backend/internal/middleware/security"
	"github.com/ecolens/backend/internal/middleware/validation"
	"github.com/ecolens/backend/internal/pipeline"
	"github.com/ecolens/backend/internal/search/web"
	"github.com/ecolens/backend/internal/simulate"
	"github.com/ecolens/backend/internal/storage/sqlite"
	"github.com/ecolens/backend/pkg/config"
	appLogger "github.com/ecolens/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting EcoLens comparison API server")

	metrics.Register()

	var archive *sqlite.Client
	archive, err = sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Warn("Archive unavailable, continuing without it", zap.Error(err))
		archive = nil
	} else {
		defer archive.Close()
		if err := archive.InitSchema(); err != nil {
			appLogger.Fatal("Failed to initialize archive schema", zap.Error(err))
		}
	}

	scout := web.NewClient(
		cfg.Search.SerpAPIKey,
		cfg.Search.MaxResults,
		time.Duration(cfg.Search.TimeoutSec)*time.Second,
	)

	analyst := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
		time.Duration(cfg.LLM.TimeoutSec)*time.Second,
	)

	orchestrator := &pipeline.Orchestrator{
		Scout:    scout,
		Analyst:  analyst,
		Fallback: simulate.New(),
		Creds: pipeline.EnvCredentials{
			SearchKey:     cfg.Search.SerpAPIKey,
			GenerationKey: cfg.LLM.APIKey,
			AllowScrape:   cfg.Search.Enabled && cfg.Search.AllowScrape,
		},
		History: history.NewStore(),
	}
	if archive != nil {
		orchestrator.Archive = archive
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.RateLimitPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		MaxQueryLength: cfg.Pipeline.MaxQueryLength,
		Logger:         appLogger.GetLogger(),
	}))

	compareHandler := handlers.NewCompareHandler(orchestrator)
	historyHandler := handlers.NewHistoryHandler(orchestrator, archive)
	wsHandler := handlers.NewWebSocketHandler(orchestrator)

	api := app.Group("/api/v1")

	api.Post("/compare", compareHandler.HandleCompare)
	api.Get("/compare/history", historyHandler.HandleHistory)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
