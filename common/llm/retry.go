package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

type retryingClient struct {
	next        JSONClient
	maxAttempts int
	backoff     time.Duration
}

// WithRetry wraps a JSONClient so retryable failures (rate limits, 5xx, network)
// are attempted up to maxAttempts times with linear backoff.
// maxAttempts <= 1 returns next unchanged.
func WithRetry(next JSONClient, maxAttempts int, backoff time.Duration) JSONClient {
	if maxAttempts <= 1 {
		return next
	}
	return &retryingClient{next: next, maxAttempts: maxAttempts, backoff: backoff}
}

func (c *retryingClient) GenerateJSON(ctx context.Context, req JSONRequest) (*JSONResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.next.GenerateJSON(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt == c.maxAttempts || !IsRetryable(ctx, err) {
			break
		}

		slog.WarnContext(ctx, "llm call failed, retrying",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("llm retry aborted: %w", ctx.Err())
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

func (c *retryingClient) Model() string {
	return c.next.Model()
}

func IsRetryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.DebugContext(ctx, "llm error not retryable: context cancelled or deadline exceeded")
		return false
	}

	if errors.Is(err, ErrEmptyResponse) {
		return true
	}

	statusCode := 0
	var openaiErr *openai.Error
	var anthropicErr *anthropic.Error
	switch {
	case errors.As(err, &openaiErr):
		statusCode = openaiErr.StatusCode
	case errors.As(err, &anthropicErr):
		statusCode = anthropicErr.StatusCode
	default:
		// Network errors (no API response) are generally retryable
		slog.WarnContext(ctx, "llm network error, will retry", "error", err)
		return true
	}

	switch {
	case statusCode == 429:
		slog.WarnContext(ctx, "llm rate limited, will retry", "status_code", statusCode)
		return true
	case statusCode >= 500:
		slog.WarnContext(ctx, "llm server error, will retry", "status_code", statusCode)
		return true
	default:
		// The caller owns the error-level log for the failed call.
		slog.WarnContext(ctx, "llm client error, not retryable", "status_code", statusCode)
		return false
	}
}
