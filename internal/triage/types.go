package triage

import "github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"

type ClassificationType string

const (
	ClassificationBug      ClassificationType = "bug"
	ClassificationFeature  ClassificationType = "feature"
	ClassificationQuestion ClassificationType = "question"
	ClassificationUnknown  ClassificationType = "unknown"
)

type SentimentTone string

const (
	ToneNeutral  SentimentTone = "neutral"
	ToneHostile  SentimentTone = "hostile"
	TonePositive SentimentTone = "positive"
)

// AiIssueAnalysis is the canonical analysis every model response shape is normalized into.
// All fields hold defined values once Normalize returns without error.
type AiIssueAnalysis struct {
	Classification     Classification     `json:"classification"`
	DuplicateDetection DuplicateDetection `json:"duplicateDetection"`
	Sentiment          Sentiment          `json:"sentiment"`
	SuggestedResponse  *string            `json:"suggestedResponse,omitempty"`
}

type Classification struct {
	Type       ClassificationType `json:"type" jsonschema:"enum=bug,enum=feature,enum=question"`
	Confidence float64            `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	Reasoning  string             `json:"reasoning,omitempty"`
}

type DuplicateDetection struct {
	IsDuplicate         bool    `json:"isDuplicate"`
	OriginalIssueNumber *int    `json:"originalIssueNumber"`
	SimilarityScore     float64 `json:"similarityScore" jsonschema:"minimum=0,maximum=1"`
}

type Sentiment struct {
	Tone       SentimentTone `json:"tone" jsonschema:"enum=neutral,enum=hostile,enum=positive"`
	Confidence float64       `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	Reasoning  string        `json:"reasoning,omitempty"`
}

// AnalyzeIssueWithAiInput is immutable for the lifetime of one analysis run.
type AnalyzeIssueWithAiInput struct {
	Action             domain.IssueAction
	RepositoryFullName string
	Issue              domain.Issue
}

type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
)

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonUnsupportedAction Reason = "unsupported_action"
	ReasonAIUnavailable     Reason = "ai_unavailable"
)

// Result is the only observable outcome of an analysis run.
type Result struct {
	Status  Status   `json:"status"`
	Reason  Reason   `json:"reason,omitempty"`
	Actions []Action `json:"actions,omitempty"`
}

func completed(actions []Action) Result {
	return Result{Status: StatusCompleted, Actions: actions}
}

func skipped(reason Reason) Result {
	return Result{Status: StatusSkipped, Reason: reason}
}
