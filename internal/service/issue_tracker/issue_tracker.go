package issue_tracker

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/darkneiss/ai-pr-sentinel-sub000/core/config"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/triage"
)

var ErrInvalidRepository = errors.New("invalid repository name")

// IssueTracker is everything the triage pipeline needs from one provider.
type IssueTracker interface {
	triage.GovernanceGateway
	triage.IssueHistoryGateway
	triage.RepositoryContextGateway
}

// New builds the tracker selected by cfg.Provider. Only one provider is active per process.
func New(cfg config.TrackerConfig) (IssueTracker, error) {
	switch cfg.Provider {
	case config.ProviderGitHub, "":
		return NewGitHubTracker(cfg.Token, cfg.BaseURL)
	case config.ProviderGitLab:
		return NewGitLabTracker(cfg.Token, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", triage.ErrUnsupportedProvider, cfg.Provider)
	}
}

// splitRepository splits "owner/name" into its parts.
func splitRepository(fullName string) (string, string, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepository, fullName)
	}
	return owner, repo, nil
}

func isNotFound(resp *http.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

func hasPrefixFrom(body, prefix, author, wantAuthor string) bool {
	if wantAuthor != "" && !strings.EqualFold(author, wantAuthor) {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(body), prefix)
}
