package issue_tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v58/github"
	"golang.org/x/oauth2"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/triage"
)

const (
	githubPerPage      = 100
	maxRecentIssueScan = 100
)

// IssuesService is the subset of the go-github issues API used by GitHubTracker.
type IssuesService interface {
	AddLabelsToIssue(ctx context.Context, owner, repo string, number int, labels []string) ([]*github.Label, *github.Response, error)
	RemoveLabelForIssue(ctx context.Context, owner, repo string, number int, label string) (*github.Response, error)
	CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error)
	ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error)
	ListByRepo(ctx context.Context, owner, repo string, opts *github.IssueListByRepoOptions) ([]*github.Issue, *github.Response, error)
}

// RepositoriesService is the subset of the go-github repositories API used by GitHubTracker.
type RepositoriesService interface {
	Get(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error)
}

type GitHubTracker struct {
	issues IssuesService
	repos  RepositoriesService
}

var _ IssueTracker = (*GitHubTracker)(nil)

// NewGitHubTracker authenticates with a static token. baseURL targets GitHub Enterprise when set.
func NewGitHubTracker(token, baseURL string) (*GitHubTracker, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(context.Background(), ts))

	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configuring github enterprise url: %w", err)
		}
	}

	return NewGitHubTrackerWithServices(client.Issues, client.Repositories), nil
}

func NewGitHubTrackerWithServices(issues IssuesService, repos RepositoriesService) *GitHubTracker {
	return &GitHubTracker{issues: issues, repos: repos}
}

func (t *GitHubTracker) AddLabels(ctx context.Context, repositoryFullName string, issueNumber int, labels []string) error {
	owner, repo, err := splitRepository(repositoryFullName)
	if err != nil {
		return err
	}
	if _, _, err := t.issues.AddLabelsToIssue(ctx, owner, repo, issueNumber, labels); err != nil {
		return fmt.Errorf("adding labels to github issue: %w", err)
	}
	return nil
}

// RemoveLabel treats a missing label as already removed.
func (t *GitHubTracker) RemoveLabel(ctx context.Context, repositoryFullName string, issueNumber int, label string) error {
	owner, repo, err := splitRepository(repositoryFullName)
	if err != nil {
		return err
	}
	resp, err := t.issues.RemoveLabelForIssue(ctx, owner, repo, issueNumber, label)
	if err != nil {
		if resp != nil && isNotFound(resp.Response) {
			slog.DebugContext(ctx, "label already absent", "label", label)
			return nil
		}
		return fmt.Errorf("removing label from github issue: %w", err)
	}
	return nil
}

func (t *GitHubTracker) CreateComment(ctx context.Context, repositoryFullName string, issueNumber int, body string) error {
	owner, repo, err := splitRepository(repositoryFullName)
	if err != nil {
		return err
	}
	if _, _, err := t.issues.CreateComment(ctx, owner, repo, issueNumber, &github.IssueComment{Body: github.String(body)}); err != nil {
		return fmt.Errorf("creating github comment: %w", err)
	}
	return nil
}

func (t *GitHubTracker) LogValidatedIssue(ctx context.Context, repositoryFullName string, issueNumber int) error {
	slog.InfoContext(ctx, "issue passed integrity validation",
		"provider", domain.ProviderGitHub,
		"repository", repositoryFullName,
		"issue_number", issueNumber)
	return nil
}

// FindRecentIssues returns open and closed issues, newest first, without pull requests.
func (t *GitHubTracker) FindRecentIssues(ctx context.Context, params triage.FindRecentIssuesParams) ([]domain.RecentIssueSummary, error) {
	owner, repo, err := splitRepository(params.RepositoryFullName)
	if err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		return nil, nil
	}

	// Pull requests share the issue listing, so over-fetch and filter.
	perPage := min(params.Limit*2, maxRecentIssueScan)
	issues, _, err := t.issues.ListByRepo(ctx, owner, repo, &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	})
	if err != nil {
		return nil, fmt.Errorf("listing github issues: %w", err)
	}

	summaries := make([]domain.RecentIssueSummary, 0, params.Limit)
	for _, issue := range issues {
		if issue == nil || issue.IsPullRequest() {
			continue
		}
		labels := make([]string, 0, len(issue.Labels))
		for _, label := range issue.Labels {
			labels = append(labels, label.GetName())
		}
		summaries = append(summaries, domain.RecentIssueSummary{
			Number: issue.GetNumber(),
			Title:  issue.GetTitle(),
			Labels: labels,
			State:  issue.GetState(),
		})
		if len(summaries) == params.Limit {
			break
		}
	}
	return summaries, nil
}

// HasIssueCommentWithPrefix pages through every comment on the issue.
func (t *GitHubTracker) HasIssueCommentWithPrefix(ctx context.Context, params triage.HasCommentWithPrefixParams) (bool, error) {
	owner, repo, err := splitRepository(params.RepositoryFullName)
	if err != nil {
		return false, err
	}

	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: githubPerPage}}
	for {
		comments, resp, err := t.issues.ListComments(ctx, owner, repo, params.IssueNumber, opts)
		if err != nil {
			return false, fmt.Errorf("listing github comments: %w", err)
		}

		for _, comment := range comments {
			if hasPrefixFrom(comment.GetBody(), params.BodyPrefix, comment.GetUser().GetLogin(), params.AuthorLogin) {
				return true, nil
			}
		}

		if resp == nil || resp.NextPage == 0 {
			return false, nil
		}
		opts.Page = resp.NextPage
	}
}

func (t *GitHubTracker) FindRepositoryContext(ctx context.Context, repositoryFullName string) (*domain.RepositoryContext, error) {
	owner, repo, err := splitRepository(repositoryFullName)
	if err != nil {
		return nil, err
	}
	repository, _, err := t.repos.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("fetching github repository: %w", err)
	}
	return &domain.RepositoryContext{
		FullName:    repository.GetFullName(),
		Description: repository.GetDescription(),
		Topics:      repository.Topics,
	}, nil
}
