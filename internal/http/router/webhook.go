package router

import (
	"github.com/gin-gonic/gin"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/http/handler/webhook"
)

func WebhookRouter(router *gin.RouterGroup, provider string, handler *webhook.Handler) {
	router.POST("/"+provider, handler.HandleEvent)
}
