package triage

import (
	"fmt"
	"strings"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
)

const (
	// QuestionReplyMarker prefixes every automatic question reply so it can be found again.
	QuestionReplyMarker = "<!-- sentinel:question-reply -->"

	DefaultClassificationThreshold = 0.8
)

const fallbackQuestionReply = `Thanks for the question! While a maintainer takes a look, please check:

- the README and the project documentation
- existing issues and discussions for similar questions
- that your report includes the version you are using and the steps you tried`

var questionOpeners = []string{
	"how ", "what ", "why ", "where ", "when ", "which ", "who ",
	"is ", "are ", "can ", "could ", "does ", "do ", "should ", "would ",
}

type Labels struct {
	Bug       string
	Feature   string
	Question  string
	Duplicate string
	Monitor   string
}

func DefaultLabels() Labels {
	return Labels{
		Bug:       "kind/bug",
		Feature:   "kind/feature",
		Question:  "kind/question",
		Duplicate: "duplicate",
		Monitor:   "triage/monitor",
	}
}

// PlanInput is everything the planner decides on. It is built by the analyzer and never mutated.
type PlanInput struct {
	Action                domain.IssueAction
	RepositoryFullName    string
	Issue                 domain.Issue
	Analysis              AiIssueAnalysis
	Hostile               bool
	HasPriorQuestionReply bool
}

// Planner maps an analysis to an ordered list of governance actions. It performs no I/O.
type Planner struct {
	labels                  Labels
	classificationThreshold float64
}

func NewPlanner(labels Labels, classificationThreshold float64) *Planner {
	return &Planner{
		labels:                  labels,
		classificationThreshold: classificationThreshold,
	}
}

// Plan evaluates, in order: hostile guard, kind relabel, duplicate, question reply.
func (p *Planner) Plan(in PlanInput) []Action {
	var actions []Action
	repo, number := in.RepositoryFullName, in.Issue.Number

	if in.Hostile {
		if !in.Issue.HasLabel(p.labels.Monitor) {
			actions = append(actions, addLabels(repo, number, p.labels.Monitor))
		}
	} else {
		actions = append(actions, p.planKindLabel(in)...)
	}

	dup := in.Analysis.DuplicateDetection
	if dup.IsDuplicate && dup.OriginalIssueNumber != nil &&
		*dup.OriginalIssueNumber > 0 && *dup.OriginalIssueNumber != number &&
		!in.Issue.HasLabel(p.labels.Duplicate) {
		actions = append(actions,
			addLabels(repo, number, p.labels.Duplicate),
			createComment(repo, number, fmt.Sprintf("Possible duplicate of #%d", *dup.OriginalIssueNumber)),
		)
	}

	if p.QuestionReplyEligible(in) && !in.HasPriorQuestionReply {
		actions = append(actions, createComment(repo, number, QuestionReplyBody(in.Analysis.SuggestedResponse)))
	}

	return actions
}

func (p *Planner) planKindLabel(in PlanInput) []Action {
	c := in.Analysis.Classification
	if c.Confidence < p.classificationThreshold {
		return nil
	}
	target := p.kindLabel(c.Type)
	if target == "" || in.Issue.HasLabel(target) {
		return nil
	}

	var actions []Action
	for _, stale := range p.kindLabels() {
		if stale != target && in.Issue.HasLabel(stale) {
			actions = append(actions, removeLabel(in.RepositoryFullName, in.Issue.Number, stale))
		}
	}
	return append(actions, addLabels(in.RepositoryFullName, in.Issue.Number, target))
}

// QuestionReplyEligible reports whether the issue qualifies for an automatic reply,
// ignoring whether one was already posted.
func (p *Planner) QuestionReplyEligible(in PlanInput) bool {
	if in.Action != domain.IssueActionOpened || in.Hostile {
		return false
	}
	c := in.Analysis.Classification
	switch c.Type {
	case ClassificationQuestion:
		return c.Confidence >= p.classificationThreshold
	case ClassificationUnknown:
		return looksLikeQuestion(in.Issue.Title, in.Issue.Body)
	}
	return false
}

// QuestionReplyBody prefers the model's suggested response over the fallback checklist.
func QuestionReplyBody(suggested *string) string {
	body := fallbackQuestionReply
	if suggested != nil && strings.TrimSpace(*suggested) != "" {
		body = strings.TrimSpace(*suggested)
	}
	return QuestionReplyMarker + "\n" + body
}

func (p *Planner) kindLabel(t ClassificationType) string {
	switch t {
	case ClassificationBug:
		return p.labels.Bug
	case ClassificationFeature:
		return p.labels.Feature
	case ClassificationQuestion:
		return p.labels.Question
	}
	return ""
}

func (p *Planner) kindLabels() []string {
	return []string{p.labels.Bug, p.labels.Feature, p.labels.Question}
}

func looksLikeQuestion(title, body string) bool {
	title = strings.ToLower(strings.TrimSpace(title))
	if strings.HasSuffix(title, "?") {
		return true
	}
	for _, opener := range questionOpeners {
		if strings.HasPrefix(title, opener) {
			return true
		}
	}
	firstLine, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	return strings.HasSuffix(strings.TrimSpace(firstLine), "?")
}
