package remote

import (
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

func buildAnalysisPrompt(t triage.AlertText) string {
	return fmt.Sprintf(`You are an IT operations expert specializing in alert analysis.

Analyze the following IT alert and provide:
1. Priority score (integer 0-100, where 100 is most critical)
2. Classification category (network, security, performance, hardware, software)
3. Suggested action

Alert Title: %s
Alert Description: %s

Respond with JSON only, in this exact shape:
{
  "priority_score": <integer>,
  "classification": "<category>",
  "suggested_action": "<action>"
}`, t.Title, t.Description)
}

func buildResolutionPrompt(alert map[string]any) (string, error) {
	data, err := json.MarshalIndent(alert, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal alert: %w", err)
	}
	return fmt.Sprintf(`Based on the following alert data, predict the resolution time and provide recommended actions.

Alert Data: %s

Respond with JSON only, in this exact shape:
{
  "estimated_resolution_time": "<time estimate>",
  "confidence": <0.0-1.0>,
  "recommended_actions": ["<action1>", "<action2>", "<action3>"]
}`, data), nil
}
