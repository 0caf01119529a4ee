package issue_tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/triage"
)

const gitlabRecentIssuesPageSize = 20

// GitLabTracker addresses projects by their full path ("group/subgroup/project").
type GitLabTracker struct {
	client *gitlab.Client
}

var _ IssueTracker = (*GitLabTracker)(nil)

// NewGitLabTracker targets gitlab.com unless baseURL points at a self-hosted instance.
func NewGitLabTracker(token, baseURL string) (*GitLabTracker, error) {
	var (
		client *gitlab.Client
		err    error
	)
	if baseURL == "" {
		client, err = gitlab.NewClient(token)
	} else {
		apiURL := strings.TrimSuffix(baseURL, "/")
		if !strings.HasSuffix(apiURL, "/api/v4") {
			apiURL += "/api/v4"
		}
		client, err = gitlab.NewClient(token, gitlab.WithBaseURL(apiURL))
	}
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &GitLabTracker{client: client}, nil
}

func (t *GitLabTracker) AddLabels(ctx context.Context, repositoryFullName string, issueNumber int, labels []string) error {
	_, _, err := t.client.Issues.UpdateIssue(repositoryFullName, int64(issueNumber), &gitlab.UpdateIssueOptions{
		AddLabels: gitlab.Ptr(gitlab.LabelOptions(labels)),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("adding labels to gitlab issue: %w", err)
	}
	return nil
}

// RemoveLabel treats a missing issue or label as already removed.
func (t *GitLabTracker) RemoveLabel(ctx context.Context, repositoryFullName string, issueNumber int, label string) error {
	_, resp, err := t.client.Issues.UpdateIssue(repositoryFullName, int64(issueNumber), &gitlab.UpdateIssueOptions{
		RemoveLabels: gitlab.Ptr(gitlab.LabelOptions{label}),
	}, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && isNotFound(resp.Response) {
			slog.DebugContext(ctx, "label already absent", "label", label)
			return nil
		}
		return fmt.Errorf("removing label from gitlab issue: %w", err)
	}
	return nil
}

func (t *GitLabTracker) CreateComment(ctx context.Context, repositoryFullName string, issueNumber int, body string) error {
	_, _, err := t.client.Notes.CreateIssueNote(repositoryFullName, int64(issueNumber), &gitlab.CreateIssueNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("creating gitlab note: %w", err)
	}
	return nil
}

func (t *GitLabTracker) LogValidatedIssue(ctx context.Context, repositoryFullName string, issueNumber int) error {
	slog.InfoContext(ctx, "issue passed integrity validation",
		"provider", domain.ProviderGitLab,
		"repository", repositoryFullName,
		"issue_number", issueNumber)
	return nil
}

// FindRecentIssues returns the newest issues in any state.
func (t *GitLabTracker) FindRecentIssues(ctx context.Context, params triage.FindRecentIssuesParams) ([]domain.RecentIssueSummary, error) {
	if params.Limit <= 0 {
		return nil, nil
	}

	issues, _, err := t.client.Issues.ListProjectIssues(params.RepositoryFullName, &gitlab.ListProjectIssuesOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: gitlabRecentIssuesPageSize},
		OrderBy:     gitlab.Ptr("created_at"),
		Sort:        gitlab.Ptr("desc"),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("listing gitlab issues: %w", err)
	}

	summaries := make([]domain.RecentIssueSummary, 0, params.Limit)
	for _, issue := range issues {
		if issue == nil {
			continue
		}
		summaries = append(summaries, domain.RecentIssueSummary{
			Number: int(issue.IID),
			Title:  issue.Title,
			Labels: append([]string(nil), issue.Labels...),
			State:  issue.State,
		})
		if len(summaries) == params.Limit {
			break
		}
	}
	return summaries, nil
}

// HasIssueCommentWithPrefix pages through every note on the issue.
func (t *GitLabTracker) HasIssueCommentWithPrefix(ctx context.Context, params triage.HasCommentWithPrefixParams) (bool, error) {
	opts := &gitlab.ListIssueNotesOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: 100},
	}

	for {
		notes, resp, err := t.client.Notes.ListIssueNotes(params.RepositoryFullName, int64(params.IssueNumber), opts, gitlab.WithContext(ctx))
		if err != nil {
			return false, fmt.Errorf("listing gitlab notes: %w", err)
		}

		for _, note := range notes {
			if note == nil || note.System {
				continue
			}
			if hasPrefixFrom(note.Body, params.BodyPrefix, note.Author.Username, params.AuthorLogin) {
				return true, nil
			}
		}

		if resp.NextPage == 0 {
			return false, nil
		}
		opts.Page = resp.NextPage
	}
}

func (t *GitLabTracker) FindRepositoryContext(ctx context.Context, repositoryFullName string) (*domain.RepositoryContext, error) {
	project, _, err := t.client.Projects.GetProject(repositoryFullName, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching gitlab project: %w", err)
	}
	return &domain.RepositoryContext{
		FullName:    project.PathWithNamespace,
		Description: project.Description,
		Topics:      project.Topics,
	}, nil
}
