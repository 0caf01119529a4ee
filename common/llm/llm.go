package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm returned empty response")

// Config holds LLM client configuration.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string // Required: API key for the provider
	BaseURL  string // Optional: custom API endpoint
	Model    string // Model name (e.g., "gpt-4o-mini", "claude-sonnet-4-5-20250929")
}

// JSONClient generates a single JSON document from a system and user prompt.
// Implementations must surface provider failures as errors and never return
// empty text without one.
type JSONClient interface {
	GenerateJSON(ctx context.Context, req JSONRequest) (*JSONResponse, error)
	Model() string
}

// JSONRequest describes one structured-output call.
type JSONRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Timeout      time.Duration // 0 = rely on the caller's context
	Temperature  *float64      // nil = model default, explicit 0 = deterministic
	SchemaName   string        // Optional: name sent with Schema
	Schema       any           // Optional: JSON schema the provider should honor
}

// JSONResponse carries the raw model text; parsing belongs to the caller.
type JSONResponse struct {
	RawText          string
	PromptTokens     int
	CompletionTokens int
}

// NewJSONClient selects the provider named in cfg.Provider. Defaults to OpenAI.
func NewJSONClient(cfg Config) (JSONClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// GenerateSchema reflects a JSON schema for T without $ref indirection.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func Temp(t float64) *float64 {
	return &t
}

// withTimeout applies the per-request timeout, if any.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
