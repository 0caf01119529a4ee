package webhook

import (
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/delivery"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/mapper"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/service"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/signature"
)

const GitHubSignatureHeader = "X-Hub-Signature-256"

// NewGitHubWebhookHandler verifies X-Hub-Signature-256 HMACs when secret is non-empty.
func NewGitHubWebhookHandler(secret string, dedup *delivery.Deduplicator, triage service.IssueTriageService, opts Options) *Handler {
	return newHandler(
		domain.ProviderGitHub,
		GitHubSignatureHeader,
		signature.NewHMACVerifier(secret),
		mapper.NewGitHubEventMapper(),
		dedup,
		triage,
		opts,
	)
}
