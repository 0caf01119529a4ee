package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Handlers and the triage pipeline enrich the context once; every slog call made with that
// context then carries the delivery and issue identifiers without repeating them.
type LogFields struct {
	Provider    *string // Tracker provider (e.g., "github", "gitlab")
	Repository  *string // Repository full name (owner/name)
	IssueNumber *int    // Issue number within the repository
	DeliveryID  *string // Provider-assigned webhook delivery ID
	Action      *string // Issue action (e.g., "opened", "edited")
	RunID       *int64  // Triage run ID
	Component   string  // Component name (OTel semantic convention style, e.g., "sentinel.triage.analyzer")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.Provider != nil {
		result.Provider = new.Provider
	}
	if new.Repository != nil {
		result.Repository = new.Repository
	}
	if new.IssueNumber != nil {
		result.IssueNumber = new.IssueNumber
	}
	if new.DeliveryID != nil {
		result.DeliveryID = new.DeliveryID
	}
	if new.Action != nil {
		result.Action = new.Action
	}
	if new.RunID != nil {
		result.RunID = new.RunID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{IssueNumber: logger.Ptr(n)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen bytes, appending "..." if truncated.
// Useful for logging potentially long strings like model output or error messages.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
