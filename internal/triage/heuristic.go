package triage

import (
	"strings"

	"github.com/samber/lo"
)

const (
	basePriority        = 30
	highKeywordWeight   = 25
	mediumKeywordWeight = 15
	maxPriority         = 100

	// DefaultClassification is the classification the heuristic always reports.
	DefaultClassification = "general"

	// DefaultSuggestedAction is the action the heuristic always reports.
	DefaultSuggestedAction = "Manual review required"
)

var (
	highPriorityKeywords   = []string{"critical", "down", "failed", "error", "security", "breach"}
	mediumPriorityKeywords = []string{"warning", "slow", "timeout", "degraded"}
)

// Score is the keyword heuristic used whenever no model backend produces a result.
//
// Each keyword found anywhere in the lower-cased title and description adds its
// weight once. Matching is by substring, so "down" also matches "markdown".
// The score is capped at 100.
func Score(t AlertText) Result {
	text := strings.ToLower(t.Title + " " + t.Description)
	found := func(keyword string) bool { return strings.Contains(text, keyword) }

	score := basePriority +
		highKeywordWeight*lo.CountBy(highPriorityKeywords, found) +
		mediumKeywordWeight*lo.CountBy(mediumPriorityKeywords, found)

	return Result{
		PriorityScore:   min(score, maxPriority),
		Classification:  DefaultClassification,
		SuggestedAction: DefaultSuggestedAction,
		Method:          MethodHeuristic,
	}
}
