package webhook

import (
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/delivery"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/mapper"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/service"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/signature"
)

const GitLabTokenHeader = "X-Gitlab-Token"

// NewGitLabWebhookHandler compares X-Gitlab-Token against secret when secret is non-empty.
func NewGitLabWebhookHandler(secret string, dedup *delivery.Deduplicator, triage service.IssueTriageService, opts Options) *Handler {
	return newHandler(
		domain.ProviderGitLab,
		GitLabTokenHeader,
		signature.NewTokenVerifier(secret),
		mapper.NewGitLabEventMapper(),
		dedup,
		triage,
		opts,
	)
}
