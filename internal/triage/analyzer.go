package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/darkneiss/ai-pr-sentinel-sub000/common/id"
	"github.com/darkneiss/ai-pr-sentinel-sub000/common/llm"
	"github.com/darkneiss/ai-pr-sentinel-sub000/common/logger"
	"github.com/darkneiss/ai-pr-sentinel-sub000/common/metrics"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/prompt"
)

const DefaultRecentIssuesLimit = 5

type AnalyzerConfig struct {
	Labels                      Labels
	ClassificationThreshold     float64
	SentimentThreshold          float64
	DuplicateFallbackSimilarity float64
	HostileKeywords             []string
	RecentIssuesLimit           int
	BotLogin                    string // Optional: author of prior question replies

	MaxTokens   int
	Timeout     time.Duration
	Temperature *float64

	// Raw model output is only previewed in logs outside production and when enabled.
	LogRawPreview   bool
	RawPreviewChars int
	Production      bool
}

// Analyzer runs one AI triage pass per issue event. Every failure after the action check
// is absorbed into a skipped result; nothing is retried at this layer.
type Analyzer struct {
	cfg         AnalyzerConfig
	client      llm.JSONClient
	prompts     *prompt.Registry
	governance  GovernanceGateway
	history     IssueHistoryGateway
	repoContext RepositoryContextGateway
	normalizer  *Normalizer
	hostile     *HostileHeuristic
	planner     *Planner
	schema      any
}

// NewAnalyzer wires the analysis pipeline. repoContext may be nil.
func NewAnalyzer(
	cfg AnalyzerConfig,
	client llm.JSONClient,
	prompts *prompt.Registry,
	governance GovernanceGateway,
	history IssueHistoryGateway,
	repoContext RepositoryContextGateway,
) *Analyzer {
	if cfg.RecentIssuesLimit <= 0 {
		cfg.RecentIssuesLimit = DefaultRecentIssuesLimit
	}

	return &Analyzer{
		cfg:         cfg,
		client:      client,
		prompts:     prompts,
		governance:  governance,
		history:     history,
		repoContext: repoContext,
		normalizer:  NewNormalizer(cfg.DuplicateFallbackSimilarity),
		hostile:     NewHostileHeuristic(cfg.HostileKeywords),
		planner:     NewPlanner(cfg.Labels, cfg.ClassificationThreshold),
		schema:      llm.GenerateSchema[AiIssueAnalysis](),
	}
}

// SupportsAction reports whether AI triage runs for the given issue action.
func SupportsAction(action domain.IssueAction) bool {
	switch action {
	case domain.IssueActionOpened, domain.IssueActionEdited, domain.IssueActionReopened:
		return true
	}
	return false
}

// Analyze never returns an error and never panics: the result is completed,
// skipped/unsupported_action or skipped/ai_unavailable.
func (a *Analyzer) Analyze(ctx context.Context, input AnalyzeIssueWithAiInput) (result Result) {
	defer func() {
		metrics.TriageResults.WithLabelValues(string(result.Status), string(result.Reason)).Inc()
	}()

	if !SupportsAction(input.Action) {
		slog.DebugContext(ctx, "ai triage skipped for unsupported action", "action", input.Action)
		return skipped(ReasonUnsupportedAction)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Repository:  logger.Ptr(input.RepositoryFullName),
		IssueNumber: logger.Ptr(input.Issue.Number),
		Action:      logger.Ptr(string(input.Action)),
		RunID:       logger.Ptr(id.New()),
		Component:   "sentinel.triage.analyzer",
	})

	sc := logger.StartSpan(ctx, "triage.analyze_issue")
	defer sc.End()
	ctx = sc.Context()

	defer func() {
		if r := recover(); r != nil {
			result = a.failOpen(ctx, sc, newAnalysisError(FailureUpstream, "panic", fmt.Errorf("recovered: %v", r)), "")
		}
	}()

	actions, raw, err := a.run(ctx, input)
	if err != nil {
		return a.failOpen(ctx, sc, err, raw)
	}

	slog.InfoContext(ctx, "ai triage completed", "action_count", len(actions))
	return completed(actions)
}

func (a *Analyzer) run(ctx context.Context, input AnalyzeIssueWithAiInput) ([]Action, string, error) {
	repo, issue := input.RepositoryFullName, input.Issue

	repoContext := a.fetchRepositoryContext(ctx, repo)

	recent, err := a.history.FindRecentIssues(ctx, FindRecentIssuesParams{
		RepositoryFullName: repo,
		Limit:              a.cfg.RecentIssuesLimit,
	})
	if err != nil {
		return nil, "", newAnalysisError(FailureUpstream, "fetch_recent_issues", err)
	}

	system, user, err := a.prompts.Render(prompt.IssueTriage, newPromptData(input, repoContext, recent))
	if err != nil {
		return nil, "", newAnalysisError(FailureUpstream, "render_prompt", err)
	}

	start := time.Now()
	resp, err := a.client.GenerateJSON(ctx, llm.JSONRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		MaxTokens:    a.cfg.MaxTokens,
		Timeout:      a.cfg.Timeout,
		Temperature:  a.cfg.Temperature,
		SchemaName:   prompt.IssueTriage,
		Schema:       a.schema,
	})
	if err != nil {
		return nil, "", newAnalysisError(FailureUpstream, "generate", err)
	}
	if resp == nil || resp.RawText == "" {
		return nil, "", newAnalysisError(FailureUpstream, "generate", llm.ErrEmptyResponse)
	}
	raw := resp.RawText

	slog.DebugContext(ctx, "model responded",
		"model", a.client.Model(),
		"raw_length", len(raw),
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds())

	analysis, err := a.normalizer.Normalize(ctx, raw, NormalizeContext{
		IssueNumber:  issue.Number,
		RecentIssues: recent,
	})
	if err != nil {
		return nil, raw, err
	}

	keywordHit := a.hostile.Match(issue.Title, issue.Body)
	in := PlanInput{
		Action:             input.Action,
		RepositoryFullName: repo,
		Issue:              issue,
		Analysis:           analysis,
		Hostile:            ResolveHostile(analysis.Sentiment, keywordHit, a.cfg.SentimentThreshold),
	}

	slog.InfoContext(ctx, "issue analysed",
		"classification", analysis.Classification.Type,
		"classification_confidence", analysis.Classification.Confidence,
		"tone", analysis.Sentiment.Tone,
		"sentiment_confidence", analysis.Sentiment.Confidence,
		"keyword_hit", keywordHit,
		"hostile", in.Hostile,
		"is_duplicate", analysis.DuplicateDetection.IsDuplicate)

	if a.planner.QuestionReplyEligible(in) {
		replied, err := a.history.HasIssueCommentWithPrefix(ctx, HasCommentWithPrefixParams{
			RepositoryFullName: repo,
			IssueNumber:        issue.Number,
			BodyPrefix:         QuestionReplyMarker,
			AuthorLogin:        a.cfg.BotLogin,
		})
		if err != nil {
			return nil, raw, newAnalysisError(FailureUpstream, "find_prior_reply", err)
		}
		in.HasPriorQuestionReply = replied
	}

	actions := a.planner.Plan(in)
	for _, action := range actions {
		if err := action.Apply(ctx, a.governance); err != nil {
			metrics.GovernanceActions.WithLabelValues(string(action.Type), "failed").Inc()
			return nil, raw, newAnalysisError(FailureGovernanceWrite, string(action.Type), err)
		}
		metrics.GovernanceActions.WithLabelValues(string(action.Type), "applied").Inc()
	}

	return actions, raw, nil
}

// fetchRepositoryContext is best effort: failures only lose prompt context.
func (a *Analyzer) fetchRepositoryContext(ctx context.Context, repo string) *domain.RepositoryContext {
	if a.repoContext == nil {
		return nil
	}
	repoContext, err := a.repoContext.FindRepositoryContext(ctx, repo)
	if err != nil {
		slog.WarnContext(ctx, "repository context unavailable, continuing without it", "error", err)
		return nil
	}
	return repoContext
}

func (a *Analyzer) failOpen(ctx context.Context, sc *logger.SpanContext, err error, raw string) Result {
	sc.RecordError(err)

	attrs := []any{"error", err, "raw_length", len(raw)}
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		attrs = append(attrs, "failure_kind", analysisErr.Kind, "stage", analysisErr.Stage)
	}
	if raw != "" && a.cfg.LogRawPreview && !a.cfg.Production {
		attrs = append(attrs, "raw_preview", logger.Truncate(raw, a.cfg.RawPreviewChars))
	}

	slog.ErrorContext(ctx, "ai triage failed, no action taken", attrs...)
	return skipped(ReasonAIUnavailable)
}

type promptData struct {
	Repository            string
	RepositoryDescription string
	RepositoryTopics      []string
	IssueNumber           int
	Title                 string
	Labels                []string
	Body                  string
	RecentIssues          []domain.RecentIssueSummary
}

func newPromptData(input AnalyzeIssueWithAiInput, repoContext *domain.RepositoryContext, recent []domain.RecentIssueSummary) promptData {
	data := promptData{
		Repository:   input.RepositoryFullName,
		IssueNumber:  input.Issue.Number,
		Title:        input.Issue.Title,
		Labels:       input.Issue.Labels,
		Body:         input.Issue.Body,
		RecentIssues: recent,
	}
	if repoContext != nil {
		data.RepositoryDescription = repoContext.Description
		data.RepositoryTopics = repoContext.Topics
	}
	return data
}
