package mapper

import (
	"context"
	"fmt"

	"github.com/google/go-github/v58/github"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
)

const githubIssuesEvent = "issues"

var githubActions = map[string]domain.IssueAction{
	"opened":   domain.IssueActionOpened,
	"edited":   domain.IssueActionEdited,
	"reopened": domain.IssueActionReopened,
	"closed":   domain.IssueActionClosed,
	"labeled":  domain.IssueActionLabeled,
}

type GitHubEventMapper struct{}

func NewGitHubEventMapper() *GitHubEventMapper {
	return &GitHubEventMapper{}
}

func (m *GitHubEventMapper) Map(ctx context.Context, body []byte, headers map[string]string) (*domain.IssueEvent, error) {
	eventType := headerValue(headers, "X-GitHub-Event")
	if eventType != githubIssuesEvent {
		return nil, fmt.Errorf("%w: github event %q", ErrUnsupportedEvent, eventType)
	}

	parsed, err := github.ParseWebHook(eventType, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	event, ok := parsed.(*github.IssuesEvent)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected github payload type %T", ErrInvalidPayload, parsed)
	}

	action, ok := githubActions[event.GetAction()]
	if !ok {
		return nil, fmt.Errorf("%w: github issues action %q", ErrUnsupportedEvent, event.GetAction())
	}

	issue := event.GetIssue()
	if issue == nil || issue.GetNumber() <= 0 {
		return nil, fmt.Errorf("%w: missing issue", ErrInvalidPayload)
	}
	if issue.IsPullRequest() {
		return nil, fmt.Errorf("%w: pull request", ErrUnsupportedEvent)
	}

	repo := event.GetRepo().GetFullName()
	if repo == "" {
		return nil, fmt.Errorf("%w: missing repository", ErrInvalidPayload)
	}

	labels := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		if name := label.GetName(); name != "" {
			labels = append(labels, name)
		}
	}

	return &domain.IssueEvent{
		Provider:           domain.ProviderGitHub,
		DeliveryID:         m.DeliveryID(headers),
		Action:             action,
		RepositoryFullName: repo,
		Issue: domain.Issue{
			Number: issue.GetNumber(),
			Title:  issue.GetTitle(),
			Body:   issue.GetBody(),
			Labels: labels,
			Author: issue.GetUser().GetLogin(),
			State:  issue.GetState(),
			URL:    issue.GetHTMLURL(),
		},
	}, nil
}

func (m *GitHubEventMapper) DeliveryID(headers map[string]string) string {
	return headerValue(headers, "X-GitHub-Delivery")
}
