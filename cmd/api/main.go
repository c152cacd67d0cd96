package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/sdrf-annotator/backend/internal/analysis"
	"github.com/sdrf-annotator/backend/internal/api/handlers"
	"github.com/sdrf-annotator/backend/internal/cache/redis"
	"github.com/sdrf-annotator/backend/internal/extraction"
	"github.com/sdrf-annotator/backend/internal/llm"
	"github.com/sdrf-annotator/backend/internal/metrics"
	"github.com/sdrf-annotator/backend/internal/middleware/ratelimit"
	"github.com/sdrf-annotator/backend/internal/middleware/security"
	"github.com/sdrf-annotator/backend/internal/middleware/validation"
	"github.com/sdrf-annotator/backend/internal/ontology"
	"github.com/sdrf-annotator/backend/internal/sdrf"
	"github.com/sdrf-annotator/backend/internal/storage/sqlite"
	"github.com/sdrf-annotator/backend/pkg/config"
	appLogger "github.com/sdrf-annotator/backend/pkg/logger"
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

	appLogger.Info("Starting SDRF Annotator API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			time.Duration(cfg.Redis.TTLSec)*time.Second,
		)
		if err != nil {
			appLogger.Warn("Redis unavailable, continuing without hot cache", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	store := ontology.NewStore(sqliteClient)
	termCache := ontology.BuildTermCache(store, cfg.Analysis.VocabularyTypes)
	matcher := ontology.NewMatcher(termCache)
	extractor := extraction.NewExtractor(cfg.Analysis.ContextWindowChars)
	generator := sdrf.NewGenerator(cfg.Analysis.SuggestionCutoff)

	var assistant analysis.Assistant
	if cfg.LLM.Enabled && cfg.LLM.APIKey != "" {
		assistant = llm.NewClient(
			cfg.LLM.APIKey,
			cfg.LLM.Model,
			cfg.LLM.Temperature,
			cfg.LLM.MaxTokens,
			cfg.LLM.TimeoutSec,
		)
	} else {
		appLogger.Info("LLM disabled, enhanced analyzer types degrade to standard matching")
	}

	suggestionCache := analysis.NewSuggestionCache(sqliteClient, redisClient)
	analyzer := analysis.NewAnalyzer(sqliteClient, suggestionCache, extractor, matcher, generator, assistant, analysis.Config{
		MinConfidence:    cfg.Analysis.MinConfidence,
		SuggestionCutoff: cfg.Analysis.SuggestionCutoff,
		VocabularyTypes:  cfg.Analysis.VocabularyTypes,
	})

	batchOpts := analysis.BatchOptions{
		BatchSize:   cfg.Analysis.BatchSize,
		Delay:       time.Duration(cfg.Analysis.BatchDelayMs) * time.Millisecond,
		Concurrency: cfg.Analysis.BatchConcurrency,
	}

	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go runCacheCleanup(cleanupCtx, suggestionCache, cfg.Cache.RetentionDays)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 120,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxBatchSteps: 100,
		Logger:        appLogger.GetLogger(),
	}))

	stepsHandler := handlers.NewStepsHandler(sqliteClient, suggestionCache)
	analysisHandler := handlers.NewAnalysisHandler(analyzer, batchOpts)
	wsHandler := handlers.NewWebSocketHandler(analyzer, batchOpts)

	api := app.Group("/api/v1")

	api.Post("/steps", stepsHandler.CreateStep)
	api.Get("/steps/:id", stepsHandler.GetStep)
	api.Put("/steps/:id", stepsHandler.UpdateStep)
	api.Post("/steps/:id/analyze", analysisHandler.AnalyzeStep)
	api.Get("/steps/:id/suggestions", stepsHandler.GetSuggestions)
	api.Delete("/steps/:id/suggestions", stepsHandler.DeleteSuggestions)
	api.Post("/analyze/batch", analysisHandler.AnalyzeBatch)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/analyze", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"vocabularies": termCache.VocabularyTypes(),
		})
	})

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

// runCacheCleanup deletes cache entries past the retention window once a day.
func runCacheCleanup(ctx context.Context, cache *analysis.SuggestionCache, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	retention := time.Duration(retentionDays) * 24 * time.Hour

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := cache.Cleanup(retention); err != nil {
				appLogger.Error("Cache cleanup failed", zap.Error(err))
			}
		}
	}
}
