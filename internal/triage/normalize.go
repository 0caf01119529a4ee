package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
)

const (
	// DefaultClassificationConfidence applies when a recognised type arrives without a confidence.
	DefaultClassificationConfidence = 1.0
	// DefaultDuplicateFallbackSimilarity is the similarity above which an unreferenced
	// duplicate claim is attributed to the most recent issue.
	DefaultDuplicateFallbackSimilarity = 0.9
)

var (
	classificationAliases = map[string]ClassificationType{
		"bug":             ClassificationBug,
		"defect":          ClassificationBug,
		"feature":         ClassificationFeature,
		"enhancement":     ClassificationFeature,
		"feature_request": ClassificationFeature,
		"feature-request": ClassificationFeature,
		"request":         ClassificationFeature,
		"question":        ClassificationQuestion,
		"support":         ClassificationQuestion,
		"help":            ClassificationQuestion,
		"positive":        ClassificationFeature,
	}

	toneAliases = map[string]SentimentTone{
		"hostile":    ToneHostile,
		"toxic":      ToneHostile,
		"aggressive": ToneHostile,
		"abusive":    ToneHostile,
		"positive":   TonePositive,
		"friendly":   TonePositive,
		"neutral":    ToneNeutral,
	}

	hashReferencePattern = regexp.MustCompile(`#(\d+)`)
	urlReferencePattern  = regexp.MustCompile(`/issues/(\d+)`)
)

// NormalizeContext is the issue-local context duplicate references are resolved against.
type NormalizeContext struct {
	IssueNumber  int
	RecentIssues []domain.RecentIssueSummary // newest first
}

// shapeMatcher recognises one historical response shape for a single field.
// It declines with ok=false when the shape is not present.
type shapeMatcher[T any] func(obj map[string]any) (value T, ok bool)

// duplicateClaim is the unresolved duplicate information found in a response.
type duplicateClaim struct {
	IsDuplicate bool
	References  []any
	Similarity  float64
}

// Matchers run in order; modern shapes precede aliases, aliases precede legacy shapes.
var (
	classificationMatchers = []shapeMatcher[Classification]{
		matchClassificationObject,
		matchClassificationString,
		matchLegacyIssueType,
	}

	sentimentMatchers = []shapeMatcher[Sentiment]{
		matchSentimentObject,
		matchSentimentString,
		matchToneObject,
		matchLegacyTone,
	}

	duplicateMatchers = []shapeMatcher[duplicateClaim]{
		matchDuplicateDetection,
		matchDuplicateAlias,
		matchTopLevelDuplicate,
		matchLegacyDuplicateDetection,
	}

	responseMatchers = []shapeMatcher[string]{
		matchResponse("suggestedResponse"),
		matchResponse("suggested_response"),
	}
)

// Normalizer converts raw model text into a canonical AiIssueAnalysis.
type Normalizer struct {
	fallbackSimilarity float64
}

func NewNormalizer(fallbackSimilarity float64) *Normalizer {
	if fallbackSimilarity <= 0 || fallbackSimilarity > 1 {
		fallbackSimilarity = DefaultDuplicateFallbackSimilarity
	}
	return &Normalizer{fallbackSimilarity: fallbackSimilarity}
}

// Normalize parses raw model output. Any JSON object carrying classification or sentiment
// information yields an analysis with every field defined; anything else is a
// normalization failure.
func (n *Normalizer) Normalize(ctx context.Context, raw string, nctx NormalizeContext) (AiIssueAnalysis, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return AiIssueAnalysis{}, newAnalysisError(FailureNormalization, "normalize", err)
	}

	classification, hasClassification := firstMatch(obj, classificationMatchers)
	sentiment, hasSentiment := firstMatch(obj, sentimentMatchers)
	if !hasClassification && !hasSentiment {
		return AiIssueAnalysis{}, newAnalysisError(FailureNormalization, "normalize", ErrMissingAnalysis)
	}
	if !hasClassification {
		classification = Classification{Type: ClassificationUnknown}
	}
	if !hasSentiment {
		sentiment = Sentiment{Tone: ToneNeutral}
	}

	claim, _ := firstMatch(obj, duplicateMatchers)

	analysis := AiIssueAnalysis{
		Classification:     classification,
		Sentiment:          sentiment,
		DuplicateDetection: n.resolveDuplicate(ctx, claim, nctx),
	}
	if response, ok := firstMatch(obj, responseMatchers); ok {
		analysis.SuggestedResponse = &response
	}

	return analysis, nil
}

func (n *Normalizer) resolveDuplicate(ctx context.Context, claim duplicateClaim, nctx NormalizeContext) DuplicateDetection {
	detection := DuplicateDetection{
		IsDuplicate:     claim.IsDuplicate,
		SimilarityScore: claim.Similarity,
	}
	if !claim.IsDuplicate {
		return detection
	}

	candidates := issueReferences(claim.References)
	for _, candidate := range candidates {
		if candidate != nctx.IssueNumber {
			target := candidate
			detection.OriginalIssueNumber = &target
			return detection
		}
	}

	if len(candidates) > 0 {
		slog.InfoContext(ctx, "duplicate reference points at the issue itself, skipping duplicate action",
			"candidates", candidates)
		return detection
	}

	if len(claim.References) > 0 {
		slog.InfoContext(ctx, "duplicate reference is not a usable issue number, skipping duplicate action",
			"reference_count", len(claim.References))
		return detection
	}

	if claim.Similarity > n.fallbackSimilarity {
		for _, recent := range nctx.RecentIssues {
			if recent.Number > 0 && recent.Number != nctx.IssueNumber {
				target := recent.Number
				detection.OriginalIssueNumber = &target
				slog.InfoContext(ctx, "duplicate target taken from most recent issue",
					"original_issue_number", target,
					"similarity_score", claim.Similarity)
				return detection
			}
		}
	}

	return detection
}

func firstMatch[T any](obj map[string]any, matchers []shapeMatcher[T]) (T, bool) {
	for _, match := range matchers {
		if value, ok := match(obj); ok {
			return value, true
		}
	}
	var zero T
	return zero, false
}

func decodeObject(raw string) (map[string]any, error) {
	text := stripCodeFence(strings.TrimSpace(raw))

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, ErrNotAnObject
	}
	return obj, nil
}

// stripCodeFence removes a surrounding markdown fence such as ```json ... ```.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	newline := strings.IndexByte(text, '\n')
	if newline < 0 {
		return text
	}
	text = strings.TrimSpace(text[newline+1:])
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}

// Classification shapes

func matchClassificationObject(obj map[string]any) (Classification, bool) {
	m, ok := obj["classification"].(map[string]any)
	if !ok {
		return Classification{}, false
	}
	c := classificationFrom(firstPresent(m, "type", "category", "label"), m["confidence"])
	c.Reasoning = stringValue(m["reasoning"])
	return c, true
}

func matchClassificationString(obj map[string]any) (Classification, bool) {
	s, ok := obj["classification"].(string)
	if !ok {
		return Classification{}, false
	}
	return classificationFrom(s, obj["classification_confidence"]), true
}

func matchLegacyIssueType(obj map[string]any) (Classification, bool) {
	s, ok := obj["issue_type"].(string)
	if !ok {
		return Classification{}, false
	}
	return classificationFrom(s, obj["classification_confidence"]), true
}

// classificationFrom maps unrecognised types to unknown with zero confidence.
func classificationFrom(rawType any, rawConfidence any) Classification {
	s, _ := rawType.(string)
	kind, ok := classificationAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return Classification{Type: ClassificationUnknown, Confidence: 0}
	}
	confidence, ok := parseConfidence(rawConfidence)
	if !ok {
		confidence = DefaultClassificationConfidence
	}
	return Classification{Type: kind, Confidence: confidence}
}

// Sentiment shapes

func matchSentimentObject(obj map[string]any) (Sentiment, bool) {
	m, ok := obj["sentiment"].(map[string]any)
	if !ok {
		return Sentiment{}, false
	}
	s := sentimentFrom(firstPresent(m, "tone", "label", "sentiment"), m["confidence"])
	s.Reasoning = stringValue(m["reasoning"])
	return s, true
}

func matchSentimentString(obj map[string]any) (Sentiment, bool) {
	s, ok := obj["sentiment"].(string)
	if !ok {
		return Sentiment{}, false
	}
	return sentimentFrom(s, obj["sentiment_confidence"]), true
}

func matchToneObject(obj map[string]any) (Sentiment, bool) {
	m, ok := obj["tone"].(map[string]any)
	if !ok {
		return Sentiment{}, false
	}
	if _, present := m["sentiment"]; !present {
		return Sentiment{}, false
	}
	s := sentimentFrom(m["sentiment"], m["confidence"])
	s.Reasoning = stringValue(m["reasoning"])
	return s, true
}

func matchLegacyTone(obj map[string]any) (Sentiment, bool) {
	s, ok := obj["tone"].(string)
	if !ok {
		return Sentiment{}, false
	}
	return sentimentFrom(s, obj["confidence"]), true
}

// sentimentFrom maps unrecognised tones to neutral; absent confidence is zero.
func sentimentFrom(rawTone any, rawConfidence any) Sentiment {
	s, _ := rawTone.(string)
	tone, ok := toneAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		tone = ToneNeutral
	}
	confidence, _ := parseConfidence(rawConfidence)
	return Sentiment{Tone: tone, Confidence: confidence}
}

// Duplicate shapes

func matchDuplicateDetection(obj map[string]any) (duplicateClaim, bool) {
	m, ok := obj["duplicateDetection"].(map[string]any)
	if !ok {
		return duplicateClaim{}, false
	}
	return claimFromObject(m), true
}

func matchDuplicateAlias(obj map[string]any) (duplicateClaim, bool) {
	switch v := obj["duplicate"].(type) {
	case map[string]any:
		return claimFromObject(v), true
	case bool:
		return duplicateClaim{
			IsDuplicate: v,
			References:  presentValues(obj, "originalIssueNumber", "original_issue_number", "duplicate_of"),
			Similarity:  topLevelSimilarity(obj),
		}, true
	}
	return duplicateClaim{}, false
}

func matchTopLevelDuplicate(obj map[string]any) (duplicateClaim, bool) {
	isDuplicate, ok := boolField(obj, "isDuplicate", "is_duplicate")
	if !ok {
		return duplicateClaim{}, false
	}
	return duplicateClaim{
		IsDuplicate: isDuplicate,
		References:  presentValues(obj, "originalIssueNumber", "original_issue_number", "duplicate_of"),
		Similarity:  topLevelSimilarity(obj),
	}, true
}

// topLevelSimilarity reads a bare top-level confidence as similarity only when no legacy
// tone string claims it as the sentiment confidence.
func topLevelSimilarity(obj map[string]any) float64 {
	if _, legacyTone := obj["tone"].(string); legacyTone {
		return confidenceField(obj, "similarityScore", "similarity_score")
	}
	return confidenceField(obj, "similarityScore", "similarity_score", "confidence")
}

func matchLegacyDuplicateDetection(obj map[string]any) (duplicateClaim, bool) {
	m, ok := obj["duplicate_detection"].(map[string]any)
	if !ok {
		return duplicateClaim{}, false
	}
	return claimFromObject(m), true
}

// claimFromObject reads both camelCase and snake_case keys. A reference without an
// explicit flag counts as a duplicate claim.
func claimFromObject(m map[string]any) duplicateClaim {
	claim := duplicateClaim{
		References: presentValues(m, "originalIssueNumber", "original_issue_number", "duplicate_of", "duplicateOf"),
		Similarity: confidenceField(m, "similarityScore", "similarity_score", "similarity", "confidence"),
	}
	isDuplicate, hasFlag := boolField(m, "isDuplicate", "is_duplicate", "duplicate")
	claim.IsDuplicate = isDuplicate || (!hasFlag && len(claim.References) > 0)
	return claim
}

// issueReferences extracts positive issue numbers, in order, from loosely typed references.
func issueReferences(values []any) []int {
	var refs []int
	for _, value := range values {
		switch v := value.(type) {
		case float64:
			if v > 0 && v == math.Trunc(v) && v <= math.MaxInt32 {
				refs = append(refs, int(v))
			}
		case string:
			refs = append(refs, referencesInText(v)...)
		case map[string]any:
			refs = append(refs, issueReferences([]any{v["number"]})...)
		case []any:
			refs = append(refs, issueReferences(v)...)
		}
	}
	return refs
}

func referencesInText(text string) []int {
	text = strings.TrimSpace(text)
	if n, err := strconv.Atoi(strings.TrimPrefix(text, "#")); err == nil {
		if n > 0 {
			return []int{n}
		}
		return nil
	}

	var refs []int
	for _, pattern := range []*regexp.Regexp{hashReferencePattern, urlReferencePattern} {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if n, err := strconv.Atoi(match[1]); err == nil && n > 0 {
				refs = append(refs, n)
			}
		}
		if len(refs) > 0 {
			return refs
		}
	}
	return nil
}

// Suggested response shapes

func matchResponse(key string) shapeMatcher[string] {
	return func(obj map[string]any) (string, bool) {
		switch v := obj[key].(type) {
		case string:
			trimmed := strings.TrimSpace(v)
			return trimmed, trimmed != ""
		case []any:
			var lines []string
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					lines = append(lines, strings.TrimSpace(s))
				}
			}
			return strings.Join(lines, "\n"), len(lines) > 0
		}
		return "", false
	}
}

// Scalar helpers

// parseConfidence accepts numbers and numeric strings; percentages are scaled to [0,1].
func parseConfidence(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > 1 && f <= 100 {
		f /= 100
	}
	return math.Max(0, math.Min(1, f)), true
}

func confidenceField(m map[string]any, keys ...string) float64 {
	for _, key := range keys {
		if f, ok := parseConfidence(m[key]); ok {
			return f
		}
	}
	return 0
}

func boolField(m map[string]any, keys ...string) (bool, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

func presentValues(m map[string]any, keys ...string) []any {
	var values []any
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			values = append(values, v)
		}
	}
	return values
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
