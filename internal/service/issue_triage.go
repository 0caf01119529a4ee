package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/darkneiss/ai-pr-sentinel-sub000/common/logger"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/triage"
)

// IssueTriageResult reports what ran for one issue event. Integrity is nil for actions that
// are not triaged; AI is nil when the AI stage did not run.
type IssueTriageResult struct {
	Integrity *triage.IntegrityReport `json:"integrity,omitempty"`
	AI        *triage.Result          `json:"ai,omitempty"`
}

type IssueTriageService interface {
	Triage(ctx context.Context, event domain.IssueEvent) (*IssueTriageResult, error)
}

// IssueAnalyzer runs the AI stage. It must not return errors; failures are reported in the result.
type IssueAnalyzer interface {
	Analyze(ctx context.Context, input triage.AnalyzeIssueWithAiInput) triage.Result
}

type issueTriageService struct {
	governance     triage.GovernanceGateway
	analyzer       IssueAnalyzer
	needsInfoLabel string
}

// NewIssueTriageService runs the integrity gate and, when analyzer is non-nil, AI triage.
func NewIssueTriageService(governance triage.GovernanceGateway, analyzer IssueAnalyzer, needsInfoLabel string) IssueTriageService {
	return &issueTriageService{
		governance:     governance,
		analyzer:       analyzer,
		needsInfoLabel: needsInfoLabel,
	}
}

// Triage returns an error only for governance failures in the integrity stage; the AI stage
// fails open.
func (s *issueTriageService) Triage(ctx context.Context, event domain.IssueEvent) (*IssueTriageResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Provider:    logger.Ptr(event.Provider),
		Repository:  logger.Ptr(event.RepositoryFullName),
		IssueNumber: logger.Ptr(event.Issue.Number),
		Action:      logger.Ptr(string(event.Action)),
		Component:   "sentinel.service.issue_triage",
	})

	if !triage.SupportsAction(event.Action) {
		slog.InfoContext(ctx, "issue action not triaged")
		return &IssueTriageResult{AI: &triage.Result{Status: triage.StatusSkipped, Reason: triage.ReasonUnsupportedAction}}, nil
	}

	repo, issue := event.RepositoryFullName, event.Issue
	report := triage.ValidateIssueIntegrity(issue)
	result := &IssueTriageResult{Integrity: &report}

	if !report.Valid {
		slog.InfoContext(ctx, "issue failed integrity validation", "problems", report.Problems)

		if issue.HasLabel(s.needsInfoLabel) {
			return result, nil
		}
		if err := s.governance.AddLabels(ctx, repo, issue.Number, []string{s.needsInfoLabel}); err != nil {
			return nil, fmt.Errorf("adding needs-info label: %w", err)
		}
		if err := s.governance.CreateComment(ctx, repo, issue.Number, triage.IntegrityComment(report)); err != nil {
			return nil, fmt.Errorf("creating integrity comment: %w", err)
		}
		return result, nil
	}

	if issue.HasLabel(s.needsInfoLabel) {
		if err := s.governance.RemoveLabel(ctx, repo, issue.Number, s.needsInfoLabel); err != nil {
			return nil, fmt.Errorf("removing needs-info label: %w", err)
		}
	}
	if err := s.governance.LogValidatedIssue(ctx, repo, issue.Number); err != nil {
		return nil, fmt.Errorf("logging validated issue: %w", err)
	}

	if s.analyzer == nil {
		return result, nil
	}

	ai := s.analyzer.Analyze(ctx, triage.AnalyzeIssueWithAiInput{
		Action:             event.Action,
		RepositoryFullName: repo,
		Issue:              issue,
	})
	result.AI = &ai
	return result, nil
}
