package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

// Classifications accepted from the model.
var Classifications = []string{"network", "security", "performance", "hardware", "software"}

type analysis struct {
	PriorityScore   int
	Classification  string
	SuggestedAction string
}

// stripCodeFence removes a surrounding markdown code fence and its language
// tag, whatever the tag or its case.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	body := strings.TrimLeftFunc(s, isFenceTagRune)
	if body != s && (body == "" || unicode.IsSpace(rune(body[0]))) {
		s = body
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isFenceTagRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("+-_.", r)
}

func parseAnalysis(raw string) (analysis, error) {
	var wire struct {
		PriorityScore   *float64 `json:"priority_score"`
		Classification  *string  `json:"classification"`
		SuggestedAction *string  `json:"suggested_action"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &wire); err != nil {
		return analysis{}, fmt.Errorf("decode: %w", err)
	}

	var errs []error
	if wire.PriorityScore == nil {
		errs = append(errs, errors.New("missing priority_score"))
	} else if s := *wire.PriorityScore; s != math.Trunc(s) || s < 0 || s > 100 {
		errs = append(errs, fmt.Errorf("priority_score %v is not an integer in [0,100]", s))
	}

	var class string
	if wire.Classification == nil {
		errs = append(errs, errors.New("missing classification"))
	} else {
		class = strings.ToLower(strings.TrimSpace(*wire.Classification))
		if !slices.Contains(Classifications, class) {
			errs = append(errs, fmt.Errorf("unknown classification %q", *wire.Classification))
		}
	}

	var action string
	if wire.SuggestedAction != nil {
		action = strings.TrimSpace(*wire.SuggestedAction)
	}
	if action == "" {
		errs = append(errs, errors.New("missing suggested_action"))
	}

	if err := errors.Join(errs...); err != nil {
		return analysis{}, err
	}
	return analysis{
		PriorityScore:   int(*wire.PriorityScore),
		Classification:  class,
		SuggestedAction: action,
	}, nil
}

func parseResolution(raw string) (triage.ResolutionEstimate, error) {
	var wire struct {
		EstimatedResolutionTime string   `json:"estimated_resolution_time"`
		Confidence              float64  `json:"confidence"`
		RecommendedActions      []string `json:"recommended_actions"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &wire); err != nil {
		return triage.ResolutionEstimate{}, fmt.Errorf("decode: %w", err)
	}
	if strings.TrimSpace(wire.EstimatedResolutionTime) == "" {
		return triage.ResolutionEstimate{}, errors.New("missing estimated_resolution_time")
	}

	actions := lo.Compact(lo.Map(wire.RecommendedActions, func(a string, _ int) string {
		return strings.TrimSpace(a)
	}))
	if len(actions) == 0 {
		actions = triage.FallbackResolution().RecommendedActions
	}

	return triage.ResolutionEstimate{
		EstimatedResolutionTime: strings.TrimSpace(wire.EstimatedResolutionTime),
		Confidence:              lo.Clamp(wire.Confidence, 0, 1),
		RecommendedActions:      actions,
	}, nil
}
