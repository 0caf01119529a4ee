package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/darkneiss/ai-pr-sentinel-sub000/common/metrics"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/http/dto"
)

// Recovery converts handler panics into a 500 and marks the request span failed.
// The tracker treats the 500 as a failed delivery and redelivers it.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ctx := c.Request.Context()
			err := fmt.Errorf("panic: %v", r)

			span := trace.SpanFromContext(ctx)
			span.RecordError(err, trace.WithStackTrace(true))
			span.SetStatus(codes.Error, "panic recovered")

			route := c.FullPath()
			metrics.HTTPPanics.WithLabelValues(route).Inc()

			slog.ErrorContext(ctx, "panic recovered",
				"error", err,
				"method", c.Request.Method,
				"route", route,
				"stack", string(debug.Stack()),
			)

			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error: "internal server error",
			})
		}()
		c.Next()
	}
}
