package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/darkneiss/ai-pr-sentinel-sub000/common/logger"
)

// Delivery headers sent by the supported trackers, checked in order.
var (
	eventHeaders    = []string{"X-GitHub-Event", "X-Gitlab-Event"}
	deliveryHeaders = []string{"X-GitHub-Delivery", "X-Gitlab-Event-UUID", "Idempotency-Key"}
)

// Logger emits one access line per request under the "sentinel.http" component.
// Webhook requests also carry the tracker event name and delivery id so a rejected
// delivery can be matched to the tracker's redelivery log. Health and metrics
// scrapes log at debug.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		fields := logger.LogFields{Component: "sentinel.http"}
		if id := firstHeader(c, deliveryHeaders); id != "" {
			fields.DeliveryID = logger.Ptr(id)
		}
		c.Request = c.Request.WithContext(logger.WithLogFields(c.Request.Context(), fields))

		c.Next()

		ctx := c.Request.Context()
		status := c.Writer.Status()
		path := c.Request.URL.Path
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"body_bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if event := firstHeader(c, eventHeaders); event != "" {
			attrs = append(attrs, "event", event)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			slog.ErrorContext(ctx, "request failed", attrs...)
		case status >= 400:
			slog.WarnContext(ctx, "request rejected", attrs...)
		case route == "/health" || route == "/metrics":
			slog.DebugContext(ctx, "request served", attrs...)
		default:
			slog.InfoContext(ctx, "request served", attrs...)
		}
	}
}

func firstHeader(c *gin.Context, names []string) string {
	for _, name := range names {
		if v := c.GetHeader(name); v != "" {
			return v
		}
	}
	return ""
}
