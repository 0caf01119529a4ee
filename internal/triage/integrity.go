package triage

import (
	"strings"
	"unicode/utf8"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
)

const (
	// IntegrityCommentMarker prefixes the comment listing integrity problems.
	IntegrityCommentMarker = "<!-- sentinel:integrity -->"

	minTitleLength = 10
	minBodyLength  = 30
)

var placeholderTitles = map[string]struct{}{
	"bug":      {},
	"help":     {},
	"issue":    {},
	"question": {},
	"test":     {},
	"problem":  {},
}

type IntegrityReport struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// ValidateIssueIntegrity checks that an issue carries enough information to be triaged.
func ValidateIssueIntegrity(issue domain.Issue) IntegrityReport {
	var problems []string

	title := strings.TrimSpace(issue.Title)
	if _, placeholder := placeholderTitles[strings.ToLower(title)]; placeholder {
		problems = append(problems, "The title is a placeholder. Describe the problem in a short sentence.")
	} else if utf8.RuneCountInString(title) < minTitleLength {
		problems = append(problems, "The title is too short (at least 10 characters).")
	}

	if utf8.RuneCountInString(strings.TrimSpace(issue.Body)) < minBodyLength {
		problems = append(problems, "The description is too short (at least 30 characters). Add steps, expected and actual behaviour.")
	}

	if strings.TrimSpace(issue.Author) == "" {
		problems = append(problems, "The issue has no author.")
	}

	return IntegrityReport{Valid: len(problems) == 0, Problems: problems}
}

// IntegrityComment renders the comment posted on issues that fail validation.
func IntegrityComment(report IntegrityReport) string {
	var b strings.Builder
	b.WriteString(IntegrityCommentMarker)
	b.WriteString("\nThanks for opening this issue! It needs a bit more information before it can be triaged:\n")
	for _, problem := range report.Problems {
		b.WriteString("\n- ")
		b.WriteString(problem)
	}
	return b.String()
}
