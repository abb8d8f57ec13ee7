package triage

import (
	"strings"
	"unicode/utf8"
)

// FeatureCount is the arity of FeatureVector. Changing it or the feature
// order invalidates every persisted local model.
const FeatureCount = 5

// FeatureVector is the numeric input to the local classifier:
// title length, description length, and title indicators for
// "critical", "error" and "down".
type FeatureVector [FeatureCount]float64

// Extract derives the feature vector for an alert. Lengths count characters, not bytes.
func Extract(t AlertText) FeatureVector {
	title := strings.ToLower(t.Title)
	return FeatureVector{
		float64(utf8.RuneCountInString(t.Title)),
		float64(utf8.RuneCountInString(t.Description)),
		indicator(strings.Contains(title, "critical")),
		indicator(strings.Contains(title, "error")),
		indicator(strings.Contains(title, "down")),
	}
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
