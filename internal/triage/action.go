package triage

import (
	"context"
	"fmt"
)

type ActionType string

const (
	ActionAddLabels     ActionType = "add_labels"
	ActionRemoveLabel   ActionType = "remove_label"
	ActionCreateComment ActionType = "create_comment"
)

// Action is one governance operation proposed by the Planner.
type Action struct {
	Type               ActionType `json:"type"`
	RepositoryFullName string     `json:"repository"`
	IssueNumber        int        `json:"issueNumber"`
	Labels             []string   `json:"labels,omitempty"`
	Label              string     `json:"label,omitempty"`
	Body               string     `json:"body,omitempty"`
}

func addLabels(repo string, issue int, labels ...string) Action {
	return Action{Type: ActionAddLabels, RepositoryFullName: repo, IssueNumber: issue, Labels: labels}
}

func removeLabel(repo string, issue int, label string) Action {
	return Action{Type: ActionRemoveLabel, RepositoryFullName: repo, IssueNumber: issue, Label: label}
}

func createComment(repo string, issue int, body string) Action {
	return Action{Type: ActionCreateComment, RepositoryFullName: repo, IssueNumber: issue, Body: body}
}

// Apply executes the action against the gateway.
func (a Action) Apply(ctx context.Context, gateway GovernanceGateway) error {
	switch a.Type {
	case ActionAddLabels:
		return gateway.AddLabels(ctx, a.RepositoryFullName, a.IssueNumber, a.Labels)
	case ActionRemoveLabel:
		return gateway.RemoveLabel(ctx, a.RepositoryFullName, a.IssueNumber, a.Label)
	case ActionCreateComment:
		return gateway.CreateComment(ctx, a.RepositoryFullName, a.IssueNumber, a.Body)
	}
	return fmt.Errorf("unknown action type: %s", a.Type)
}
