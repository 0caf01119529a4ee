package service

import (
	"github.com/darkneiss/ai-pr-sentinel-sub000/core/config"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/delivery"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/service/issue_tracker"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/triage"
)

type Services struct {
	tracker    issue_tracker.IssueTracker
	analyzer   *triage.Analyzer // nil when AI triage is disabled
	deliveries *delivery.Deduplicator
	labels     config.LabelConfig
}

type ServicesConfig struct {
	Tracker    issue_tracker.IssueTracker
	Analyzer   *triage.Analyzer
	Deliveries *delivery.Deduplicator
	Labels     config.LabelConfig
}

func NewServices(cfg ServicesConfig) *Services {
	return &Services{
		tracker:    cfg.Tracker,
		analyzer:   cfg.Analyzer,
		deliveries: cfg.Deliveries,
		labels:     cfg.Labels,
	}
}

func (s *Services) Deliveries() *delivery.Deduplicator {
	return s.deliveries
}

func (s *Services) IssueTriage() IssueTriageService {
	if s.analyzer == nil {
		return NewIssueTriageService(s.tracker, nil, s.labels.NeedsInfo)
	}
	return NewIssueTriageService(s.tracker, s.analyzer, s.labels.NeedsInfo)
}

// AnalyzerConfig maps process configuration onto the triage analyzer settings.
func AnalyzerConfig(cfg config.Config) triage.AnalyzerConfig {
	return triage.AnalyzerConfig{
		Labels: triage.Labels{
			Bug:       cfg.Triage.Labels.Bug,
			Feature:   cfg.Triage.Labels.Feature,
			Question:  cfg.Triage.Labels.Question,
			Duplicate: cfg.Triage.Labels.Duplicate,
			Monitor:   cfg.Triage.Labels.Monitor,
		},
		ClassificationThreshold:     cfg.Triage.ClassificationThreshold,
		SentimentThreshold:          cfg.Triage.SentimentThreshold,
		DuplicateFallbackSimilarity: cfg.Triage.DuplicateFallbackSimilarity,
		HostileKeywords:             cfg.Triage.HostileKeywords,
		RecentIssuesLimit:           cfg.Triage.RecentIssuesLimit,
		BotLogin:                    cfg.Tracker.BotLogin,
		MaxTokens:                   cfg.LLM.MaxTokens,
		Timeout:                     cfg.LLM.Timeout,
		Temperature:                 cfg.LLM.Temperature,
		LogRawPreview:               cfg.Triage.LogRawPreview,
		RawPreviewChars:             cfg.Triage.RawPreviewChars,
		Production:                  cfg.IsProduction(),
	}
}
