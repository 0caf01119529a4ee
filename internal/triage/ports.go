package triage

import (
	"context"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
)

// GovernanceGateway applies label and comment mutations to the issue tracker.
type GovernanceGateway interface {
	AddLabels(ctx context.Context, repositoryFullName string, issueNumber int, labels []string) error
	RemoveLabel(ctx context.Context, repositoryFullName string, issueNumber int, label string) error
	CreateComment(ctx context.Context, repositoryFullName string, issueNumber int, body string) error
	LogValidatedIssue(ctx context.Context, repositoryFullName string, issueNumber int) error
}

type FindRecentIssuesParams struct {
	RepositoryFullName string
	Limit              int
}

type HasCommentWithPrefixParams struct {
	RepositoryFullName string
	IssueNumber        int
	BodyPrefix         string
	AuthorLogin        string // Optional
}

// IssueHistoryGateway reads prior issues and comments.
type IssueHistoryGateway interface {
	FindRecentIssues(ctx context.Context, params FindRecentIssuesParams) ([]domain.RecentIssueSummary, error)
	HasIssueCommentWithPrefix(ctx context.Context, params HasCommentWithPrefixParams) (bool, error)
}

// RepositoryContextGateway supplies optional repository metadata for the prompt.
type RepositoryContextGateway interface {
	FindRepositoryContext(ctx context.Context, repositoryFullName string) (*domain.RepositoryContext, error)
}
