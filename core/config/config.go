package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel    OTelConfig
	Webhook WebhookConfig
	Redis   RedisConfig
	Tracker TrackerConfig
	LLM     LLMConfig
	Triage  TriageConfig
	Env      string
	Port     string
	NodeID   int64
	LogLevel string // Optional: overrides the environment default ("debug", "info", "warn", "error")
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	SampleRatio    float64 // Fraction of new traces recorded; parent decisions are honoured
}

type WebhookConfig struct {
	Secret            string
	RequireSignature  bool
	RequireDeliveryID bool
	DeliveryTTL       time.Duration
}

type RedisConfig struct {
	URL       string
	KeyPrefix string
}

type TrackerConfig struct {
	Provider string // "github" or "gitlab"
	Token    string
	BaseURL  string // Optional: GitHub Enterprise or self-hosted GitLab
	BotLogin string // Optional: restricts prior-reply lookups to this author
}

type LLMConfig struct {
	Provider    string // "openai" or "anthropic"
	APIKey      string
	BaseURL     string // Optional: for custom endpoints
	Model       string
	MaxTokens   int
	Timeout     time.Duration
	Temperature *float64 // nil = model default
	MaxAttempts int
}

type TriageConfig struct {
	AIEnabled                   bool
	ClassificationThreshold     float64
	SentimentThreshold          float64
	DuplicateFallbackSimilarity float64
	RecentIssuesLimit           int
	Labels                      LabelConfig
	HostileKeywords             []string
	LogRawPreview               bool
	RawPreviewChars             int
	PromptsPath                 string
}

type LabelConfig struct {
	Bug       string
	Feature   string
	Question  string
	Duplicate string
	Monitor   string
	NeedsInfo string
}

const (
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"

	minDeliveryTTL = time.Second
)

// Load loads configuration from environment variables.
// In development it first loads a local .env file when present.
func Load() (Config, error) {
	if getEnv("SENTINEL_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:      getEnv("SENTINEL_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		NodeID:   int64(getEnvInt("NODE_ID", 1)),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "")),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "sentinel"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			SampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLER_RATIO", 1.0),
		},
		Webhook: WebhookConfig{
			Secret:            getEnv("WEBHOOK_SECRET", ""),
			RequireSignature:  getEnvBool("WEBHOOK_REQUIRE_SIGNATURE", false),
			RequireDeliveryID: getEnvBool("WEBHOOK_REQUIRE_DELIVERY_ID", false),
			DeliveryTTL:       getEnvDuration("WEBHOOK_DELIVERY_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			URL:       getEnv("REDIS_URL", ""),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "sentinel:delivery:"),
		},
		Tracker: TrackerConfig{
			Provider: strings.ToLower(getEnv("TRACKER_PROVIDER", ProviderGitHub)),
			Token:    getEnv("TRACKER_TOKEN", ""),
			BaseURL:  getEnv("TRACKER_BASE_URL", ""),
			BotLogin: getEnv("TRACKER_BOT_LOGIN", ""),
		},
		LLM: LLMConfig{
			Provider:    strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			APIKey:      getEnv("LLM_API_KEY", ""),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			Model:       getEnv("LLM_MODEL", ""),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1200),
			Timeout:     getEnvDuration("LLM_TIMEOUT", 15*time.Second),
			Temperature: getEnvFloatPtr("LLM_TEMPERATURE"),
			MaxAttempts: getEnvInt("LLM_MAX_ATTEMPTS", 2),
		},
		Triage: TriageConfig{
			AIEnabled:                   getEnvBool("TRIAGE_AI_ENABLED", false),
			ClassificationThreshold:     getEnvFloat("TRIAGE_CLASSIFICATION_THRESHOLD", 0.8),
			SentimentThreshold:          getEnvFloat("TRIAGE_SENTIMENT_THRESHOLD", 0.8),
			DuplicateFallbackSimilarity: getEnvFloat("TRIAGE_DUPLICATE_FALLBACK_SIMILARITY", 0.9),
			RecentIssuesLimit:           getEnvInt("TRIAGE_RECENT_ISSUES_LIMIT", 5),
			Labels: LabelConfig{
				Bug:       getEnv("TRIAGE_LABEL_BUG", "kind/bug"),
				Feature:   getEnv("TRIAGE_LABEL_FEATURE", "kind/feature"),
				Question:  getEnv("TRIAGE_LABEL_QUESTION", "kind/question"),
				Duplicate: getEnv("TRIAGE_LABEL_DUPLICATE", "duplicate"),
				Monitor:   getEnv("TRIAGE_LABEL_MONITOR", "triage/monitor"),
				NeedsInfo: getEnv("TRIAGE_LABEL_NEEDS_INFO", "triage/needs-info"),
			},
			HostileKeywords: getEnvList("TRIAGE_HOSTILE_KEYWORDS", nil),
			LogRawPreview:   getEnvBool("TRIAGE_LOG_RAW_PREVIEW", false),
			RawPreviewChars: getEnvInt("TRIAGE_RAW_PREVIEW_CHARS", 200),
			PromptsPath:     getEnv("TRIAGE_PROMPTS_PATH", ""),
		},
	}

	if cfg.Webhook.DeliveryTTL < minDeliveryTTL {
		cfg.Webhook.DeliveryTTL = minDeliveryTTL
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Webhook.RequireSignature && c.Webhook.Secret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_REQUIRE_SIGNATURE is enabled")
	}

	switch c.Tracker.Provider {
	case ProviderGitHub, ProviderGitLab:
	default:
		return fmt.Errorf("unsupported TRACKER_PROVIDER: %s", c.Tracker.Provider)
	}

	if c.Tracker.Token == "" {
		return fmt.Errorf("TRACKER_TOKEN is required")
	}

	if c.Triage.AIEnabled {
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required when TRIAGE_AI_ENABLED is set")
		}
		if c.LLM.Provider != "openai" && c.LLM.Provider != "anthropic" {
			return fmt.Errorf("unsupported LLM_PROVIDER: %s", c.LLM.Provider)
		}
	}

	if c.Triage.ClassificationThreshold < 0 || c.Triage.ClassificationThreshold > 1 {
		return fmt.Errorf("TRIAGE_CLASSIFICATION_THRESHOLD must be within [0,1]")
	}
	if c.Triage.SentimentThreshold < 0 || c.Triage.SentimentThreshold > 1 {
		return fmt.Errorf("TRIAGE_SENTIMENT_THRESHOLD must be within [0,1]")
	}
	if c.OTel.SampleRatio < 0 || c.OTel.SampleRatio > 1 {
		return fmt.Errorf("OTEL_TRACES_SAMPLER_RATIO must be within [0,1]")
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported LOG_LEVEL: %s", c.LogLevel)
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c WebhookConfig) SignatureEnabled() bool {
	return c.Secret != ""
}

func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvFloatPtr(key string) *float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return &f
		}
	}
	return nil
}

// getEnvDuration accepts Go duration strings ("30s") or plain milliseconds ("15000").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
