package triage

import "strings"

// Severity is the label predicted by the local classifier.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityClasses maps class index to label. The order is part of the
// persisted model format.
var severityClasses = [...]Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// SeverityClassCount is the number of classes the local classifier predicts.
const SeverityClassCount = len(severityClasses)

// SeverityFromClass returns the label for a class index, or medium when out of range.
func SeverityFromClass(class int) Severity {
	if class < 0 || class >= SeverityClassCount {
		return SeverityMedium
	}
	return severityClasses[class]
}

// ParseSeverity maps a free-form label to a Severity. Unknown labels are
// reported with ok=false and default to medium.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := sev.Class(); ok {
		return sev, true
	}
	return SeverityMedium, false
}

// Class returns the class index of s.
func (s Severity) Class() (int, bool) {
	for i, c := range severityClasses {
		if c == s {
			return i, true
		}
	}
	return 0, false
}

// Priority is the priority score reported for a model-predicted severity.
func (s Severity) Priority() int {
	switch s {
	case SeverityLow:
		return 25
	case SeverityHigh:
		return 75
	case SeverityCritical:
		return 95
	default:
		return 50
	}
}

// SuggestedAction is the action reported for a model-predicted severity.
func (s Severity) SuggestedAction() string {
	switch s {
	case SeverityLow:
		return "Monitor, no immediate action required"
	case SeverityHigh:
		return "Investigate within the hour"
	case SeverityCritical:
		return "Escalate to on-call immediately"
	default:
		return "Review during business hours"
	}
}
