package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/darkneiss/ai-pr-sentinel-sub000/core/config"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/http/handler/webhook"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/service"
)

type RouterConfig struct {
	Provider          string
	WebhookSecret     string
	RequireDeliveryID bool
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	opts := webhook.Options{RequireDeliveryID: cfg.RequireDeliveryID}
	webhooks := router.Group("/webhooks")

	switch cfg.Provider {
	case config.ProviderGitLab:
		h := webhook.NewGitLabWebhookHandler(cfg.WebhookSecret, services.Deliveries(), services.IssueTriage(), opts)
		WebhookRouter(webhooks, config.ProviderGitLab, h)
	default:
		h := webhook.NewGitHubWebhookHandler(cfg.WebhookSecret, services.Deliveries(), services.IssueTriage(), opts)
		WebhookRouter(webhooks, config.ProviderGitHub, h)
	}
}
