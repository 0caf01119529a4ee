package domain

import "strings"

// Tracker providers.
const (
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"
)

// IssueAction is the normalized action of an issue webhook event.
type IssueAction string

const (
	IssueActionOpened   IssueAction = "opened"
	IssueActionEdited   IssueAction = "edited"
	IssueActionReopened IssueAction = "reopened"
	IssueActionClosed   IssueAction = "closed"
	IssueActionLabeled  IssueAction = "labeled"
)

// Issue is the provider-neutral view of an issue at the time of the event.
type Issue struct {
	Number int
	Title  string
	Body   string
	Labels []string
	Author string
	State  string
	URL    string
}

// IssueEvent is a webhook delivery mapped out of a provider payload.
type IssueEvent struct {
	Provider           string
	DeliveryID         string
	Action             IssueAction
	RepositoryFullName string
	Issue              Issue
}

// RecentIssueSummary is read-only repository history supplied to the model as context.
type RecentIssueSummary struct {
	Number int
	Title  string
	Labels []string
	State  string
}

// RepositoryContext describes the repository the issue belongs to.
type RepositoryContext struct {
	FullName    string
	Description string
	Topics      []string
}

// HasLabel reports whether the issue currently carries label (case-insensitive).
func (i Issue) HasLabel(label string) bool {
	return ContainsLabel(i.Labels, label)
}

// ContainsLabel reports whether labels contains label (case-insensitive).
func ContainsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}
