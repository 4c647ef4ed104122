package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"twin-research/internal/config"
	apihttp "twin-research/internal/http"
	"twin-research/internal/llm"
	"twin-research/internal/repository"
	"twin-research/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	store := repository.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)

	selector := service.NewProfileSelector(store, logger)
	decomposer := service.NewQuestionDecomposer(llmClient, logger)
	panel := service.NewPanelResponder(store, llmClient, logger)
	analyzer := service.NewResponseAnalyzer(llmClient, logger)
	surveySvc := service.NewSurveyService(selector, decomposer, panel, analyzer, llmClient, logger)
	insightsSvc := service.NewInsightsService(selector, store, llmClient, logger)

	var limiter service.QueryRateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			window := time.Duration(cfg.QueryRateWindow) * time.Minute
			limiter = service.NewRedisQueryRateLimiter(redisClient, window, cfg.QueryRateLimit)
		}
		cancel()
	}

	queryHandler := apihttp.NewQueryHandler(logger, surveySvc, insightsSvc, limiter)
	router := apihttp.NewRouter(logger, queryHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
