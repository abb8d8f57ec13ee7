package triage

// Method records which path produced a Result.
type Method string

const (
	// MethodHeuristic means the keyword heuristic produced the result
	MethodHeuristic Method = "heuristic"

	// MethodRemoteModel means a remote generative model produced the result
	MethodRemoteModel Method = "remote_model"

	// MethodLocalModel means the local statistical classifier produced the result
	MethodLocalModel Method = "local_model"
)

// AlertText is the text an alert is triaged on. Description may be empty.
type AlertText struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Result is the outcome of a single triage decision.
type Result struct {
	PriorityScore   int    `json:"priority_score"`
	Classification  string `json:"classification"`
	SuggestedAction string `json:"suggested_action"`
	Method          Method `json:"method"`

	// Severity and Confidence are only set by the local model.
	Severity   Severity `json:"severity,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
}

// ResolutionEstimate is a model's guess at how long an alert will take to resolve.
type ResolutionEstimate struct {
	EstimatedResolutionTime string   `json:"estimated_resolution_time"`
	Confidence              float64  `json:"confidence"`
	RecommendedActions      []string `json:"recommended_actions"`
}

// FallbackResolution is returned when no model can estimate resolution.
func FallbackResolution() ResolutionEstimate {
	return ResolutionEstimate{
		EstimatedResolutionTime: "Unknown",
		Confidence:              0,
		RecommendedActions:      []string{"Manual investigation required"},
	}
}
