package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/darkneiss/ai-pr-sentinel-sub000/common/id"
	"github.com/darkneiss/ai-pr-sentinel-sub000/common/llm"
	"github.com/darkneiss/ai-pr-sentinel-sub000/common/logger"
	"github.com/darkneiss/ai-pr-sentinel-sub000/common/otel"
	"github.com/darkneiss/ai-pr-sentinel-sub000/core/config"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/delivery"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/http/middleware"
	httprouter "github.com/darkneiss/ai-pr-sentinel-sub000/internal/http/router"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/prompt"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/service"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/service/issue_tracker"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/triage"
)

const llmRetryBackoff = 500 * time.Millisecond

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "sentinel starting",
		"env", cfg.Env,
		"service", cfg.OTel.ServiceName,
		"tracker", cfg.Tracker.Provider,
		"ai_enabled", cfg.Triage.AIEnabled,
	)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	store, closeStore := deliveryStore(ctx, cfg.Redis)
	defer closeStore()

	tracker, err := issue_tracker.New(cfg.Tracker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create issue tracker client", "error", err)
		os.Exit(1)
	}

	analyzer, err := newAnalyzer(cfg, tracker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up ai triage", "error", err)
		os.Exit(1)
	}

	services := service.NewServices(service.ServicesConfig{
		Tracker:    tracker,
		Analyzer:   analyzer,
		Deliveries: delivery.NewDeduplicator(store, cfg.Webhook.DeliveryTTL),
		Labels:     cfg.Triage.Labels,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30*time.Second + time.Duration(cfg.LLM.MaxAttempts)*cfg.LLM.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// deliveryStore uses Redis when REDIS_URL is set so replicas share one dedup window.
// It falls back to a process-local map when Redis is not configured or unreachable.
func deliveryStore(ctx context.Context, cfg config.RedisConfig) (delivery.Store, func()) {
	if !cfg.Enabled() {
		slog.InfoContext(ctx, "delivery dedup using in-memory store")
		return delivery.NewMemoryStore(), func() {}
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		slog.WarnContext(ctx, "invalid redis url, delivery dedup using in-memory store", "error", err)
		return delivery.NewMemoryStore(), func() {}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		slog.WarnContext(ctx, "redis unreachable, delivery dedup using in-memory store", "error", err)
		return delivery.NewMemoryStore(), func() {}
	}
	slog.InfoContext(ctx, "redis connected", "key_prefix", cfg.KeyPrefix)

	return delivery.NewRedisStore(client, cfg.KeyPrefix), func() {
		if err := client.Close(); err != nil {
			slog.ErrorContext(ctx, "redis close error", "error", err)
		}
	}
}

// newAnalyzer returns nil when AI triage is disabled.
func newAnalyzer(cfg config.Config, tracker issue_tracker.IssueTracker) (*triage.Analyzer, error) {
	if !cfg.Triage.AIEnabled {
		return nil, nil
	}

	client, err := llm.NewJSONClient(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}

	prompts, err := prompt.Load(cfg.Triage.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}

	return triage.NewAnalyzer(
		service.AnalyzerConfig(cfg),
		llm.WithRetry(client, cfg.LLM.MaxAttempts, llmRetryBackoff),
		prompts,
		tracker,
		tracker,
		tracker,
	), nil
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		Provider:          cfg.Tracker.Provider,
		WebhookSecret:     cfg.Webhook.Secret,
		RequireDeliveryID: cfg.Webhook.RequireDeliveryID,
	})

	return router
}

const banner = `
 ____  _____ _   _ _____ ___ _   _ _____ _
/ ___|| ____| \ | |_   _|_ _| \ | | ____| |
\___ \|  _| |  \| | | |  | ||  \| |  _| | |
 ___) | |___| |\  | | |  | || |\  | |___| |___
|____/|_____|_| \_| |_| |___|_| \_|_____|_____|
`
