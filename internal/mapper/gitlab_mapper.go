package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
)

var gitlabActions = map[string]domain.IssueAction{
	"open":   domain.IssueActionOpened,
	"update": domain.IssueActionEdited,
	"reopen": domain.IssueActionReopened,
	"close":  domain.IssueActionClosed,
}

type GitLabEventMapper struct{}

func NewGitLabEventMapper() *GitLabEventMapper {
	return &GitLabEventMapper{}
}

func (m *GitLabEventMapper) Map(ctx context.Context, body []byte, headers map[string]string) (*domain.IssueEvent, error) {
	var payload gitlabIssuePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if payload.ObjectKind != "issue" {
		return nil, fmt.Errorf("%w: gitlab event header=%q object_kind=%q",
			ErrUnsupportedEvent, headerValue(headers, "X-Gitlab-Event"), payload.ObjectKind)
	}

	attrs := payload.ObjectAttributes
	action, ok := gitlabActions[attrs.Action]
	if !ok {
		return nil, fmt.Errorf("%w: gitlab issue action %q", ErrUnsupportedEvent, attrs.Action)
	}

	if attrs.IID <= 0 || attrs.IID > math.MaxInt32 {
		return nil, fmt.Errorf("%w: no issue IID found in payload", ErrInvalidPayload)
	}
	if payload.Project.PathWithNamespace == "" {
		return nil, fmt.Errorf("%w: missing project path", ErrInvalidPayload)
	}

	labels := make([]string, 0, len(payload.Labels))
	for _, label := range payload.Labels {
		if label.Title != "" {
			labels = append(labels, label.Title)
		}
	}

	return &domain.IssueEvent{
		Provider:           domain.ProviderGitLab,
		DeliveryID:         m.DeliveryID(headers),
		Action:             action,
		RepositoryFullName: payload.Project.PathWithNamespace,
		Issue: domain.Issue{
			Number: int(attrs.IID),
			Title:  attrs.Title,
			Body:   attrs.Description,
			Labels: labels,
			Author: payload.User.Username,
			State:  attrs.State,
			URL:    attrs.URL,
		},
	}, nil
}

// DeliveryID prefers X-Gitlab-Event-UUID and falls back to Idempotency-Key.
func (m *GitLabEventMapper) DeliveryID(headers map[string]string) string {
	if id := headerValue(headers, "X-Gitlab-Event-UUID"); id != "" {
		return id
	}
	return headerValue(headers, "Idempotency-Key")
}

type gitlabIssuePayload struct {
	ObjectKind string `json:"object_kind"`
	User       struct {
		Username string `json:"username"`
	} `json:"user"`
	Project struct {
		PathWithNamespace string `json:"path_with_namespace"`
	} `json:"project"`
	ObjectAttributes struct {
		IID         int64  `json:"iid"`
		Title       string `json:"title"`
		Description string `json:"description"`
		State       string `json:"state"`
		Action      string `json:"action"`
		URL         string `json:"url"`
	} `json:"object_attributes"`
	Labels []struct {
		Title string `json:"title"`
	} `json:"labels"`
}
