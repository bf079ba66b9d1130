package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	chatdomain "github.com/boddenberg/finbuddy-assistant-go/internal/chat/domain"
	chatinfra "github.com/boddenberg/finbuddy-assistant-go/internal/chat/infra"
	chatservice "github.com/boddenberg/finbuddy-assistant-go/internal/chat/service"
	"github.com/boddenberg/finbuddy-assistant-go/internal/config"
	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/handler"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/cache"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/client"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/memory"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/observability"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/resilience"
	"github.com/boddenberg/finbuddy-assistant-go/internal/port"
	"github.com/boddenberg/finbuddy-assistant-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("ai_enabled", cfg.AIEnabled()),
		zap.String("gemini_model", cfg.GeminiModel),
		zap.Bool("categorizer_enabled", cfg.CategorizerURL != ""),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("market_cache_ttl", cfg.MarketCacheTTL),
		zap.Duration("metrics_cache_ttl", cfg.MetricsCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("default_project", cfg.DefaultProject),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "finbuddy-assistant")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Caches ---
	// AI answers and budget plans live until cleared; market quotes and
	// metric snapshots expire.
	responseCache := cache.New[chatdomain.RouteResult](0)
	planCache := cache.New[string](0)
	snapshotCache := cache.New[domain.MetricsSnapshot](cfg.MetricsCacheTTL)
	quoteCache := cache.New[*domain.StockQuote](cfg.MarketCacheTTL)
	defer snapshotCache.Close()
	defer quoteCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	breakers := map[string]*gobreaker.CircuitBreaker{
		"gemini":      nil,
		"categorizer": nil,
		"market":      resilience.NewCircuitBreaker("market", logger),
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	var generator port.TextGenerator = client.DisabledGenerator{}
	if cfg.AIEnabled() {
		breakers["gemini"] = resilience.NewCircuitBreaker("gemini", logger)
		gemini, err := client.NewGeminiClient(context.Background(), cfg.GoogleAPIKey, cfg.GeminiModel, breakers["gemini"], resilienceCfg, metrics, logger)
		if err != nil {
			logger.Fatal("failed to create gemini client", zap.Error(err))
		}
		generator = gemini
	} else {
		logger.Warn("GOOGLE_API_KEY not set, AI features will answer with their fallbacks")
	}

	var categorizer port.TransactionCategorizer = chatinfra.DisabledCategorizer{}
	if cfg.CategorizerURL != "" {
		breakers["categorizer"] = resilience.NewCircuitBreaker("categorizer", logger)
		categorizer = chatinfra.NewCategorizerClient(httpClient, cfg.CategorizerURL, breakers["categorizer"], resilienceCfg)
	} else {
		logger.Warn("CATEGORIZER_URL not set, categorization requests will answer \"Other\"")
	}

	quotes := client.NewYahooClient(httpClient, cfg.MarketAPIURL, breakers["market"], resilienceCfg)

	// --- Chat ---
	prompts := chatservice.NewPromptStrategy(generator)
	router := chatservice.NewRouter(
		generator,
		[]chatservice.ChatStrategy{
			chatservice.NewCategorizationStrategy(categorizer, metrics, logger),
			chatservice.NewForecastingStrategy(),
			prompts,
		},
		prompts,
		responseCache,
		cfg.ClassifierMaxTokens,
		metrics,
		logger,
	)

	// --- Services ---
	workspace, err := service.NewWorkspace(context.Background(), memory.NewStore(), router, cfg.DefaultProject, metrics, logger)
	if err != nil {
		logger.Fatal("failed to create workspace", zap.Error(err))
	}
	forecaster := service.NewWeatherForecaster(generator, snapshotCache, cfg.ForecastWindowDays, metrics, logger)

	svc := handler.Services{
		Workspace:  workspace,
		Forecaster: forecaster,
		Reports:    service.NewReports(workspace, forecaster, metrics, logger),
		Planner:    service.NewPlanner(workspace, router, planCache, metrics, logger),
		Market:     service.NewMarket(quotes, generator, quoteCache, metrics, logger),
		Breakers:   breakers,
	}

	// --- Router ---
	mux := handler.NewRouter(svc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
