package triage

import (
	"regexp"
	"strings"
)

// DefaultHostileKeywords is used when no keyword list is configured.
var DefaultHostileKeywords = []string{
	"idiot",
	"idiots",
	"stupid",
	"moron",
	"dumb",
	"garbage",
	"trash",
	"useless",
	"pathetic",
	"incompetent",
	"shut up",
	"wtf",
	"this sucks",
	"you suck",
	"worst software",
	"waste of time",
}

// HostileHeuristic flags issues whose text contains a hostile keyword or phrase.
type HostileHeuristic struct {
	patterns []*regexp.Regexp
}

func NewHostileHeuristic(keywords []string) *HostileHeuristic {
	if len(keywords) == 0 {
		keywords = DefaultHostileKeywords
	}

	h := &HostileHeuristic{}
	for _, keyword := range keywords {
		words := strings.Fields(strings.ToLower(keyword))
		if len(words) == 0 {
			continue
		}
		quoted := make([]string, len(words))
		for i, word := range words {
			quoted[i] = regexp.QuoteMeta(word)
		}
		h.patterns = append(h.patterns,
			regexp.MustCompile(`(?i)(^|[^\pL\pN_])`+strings.Join(quoted, `\s+`)+`($|[^\pL\pN_])`))
	}
	return h
}

// Match reports whether title or body contains any keyword as a whole word or phrase.
func (h *HostileHeuristic) Match(title, body string) bool {
	text := title + "\n" + body
	for _, pattern := range h.patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// ResolveHostile decides the effective hostility of an issue. A model sentiment at or above
// threshold wins in both directions; below it the keyword signal decides.
func ResolveHostile(sentiment Sentiment, keywordHit bool, threshold float64) bool {
	if sentiment.Confidence >= threshold {
		return sentiment.Tone == ToneHostile
	}
	return keywordHit
}
