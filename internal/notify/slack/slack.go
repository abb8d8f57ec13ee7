// Package slack announces high-priority alerts to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/opsgenix/internal/alert"
)

const (
	maxTextLen  = 3000
	httpTimeout = 10 * time.Second
)

// Notifier posts alerts to a Slack webhook. It satisfies alert.Notifier.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout:   httpTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Notify posts a to the configured webhook.
func (n *Notifier) Notify(ctx context.Context, a *alert.Alert) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(a))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(a *alert.Alert) map[string]any {
	return map[string]any{
		"text": fmt.Sprintf("High priority alert (%d): %s", a.AIPriorityScore, a.Title),
		"blocks": []map[string]any{
			headerBlock(a),
			fieldsBlock(a),
			actionBlock(a),
			{"type": "divider"},
			contextBlock(a),
		},
	}
}

func headerBlock(a *alert.Alert) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": truncate(fmt.Sprintf("%s %s", severityEmoji(a.Severity), a.Title), 150),
		},
	}
}

func field(label string, value any) map[string]any {
	return map[string]any{
		"type": "mrkdwn",
		"text": fmt.Sprintf("*%s:* %v", label, value),
	}
}

func fieldsBlock(a *alert.Alert) map[string]any {
	source := a.SourceSystem
	if source == "" {
		source = "unknown"
	}
	return map[string]any{
		"type": "section",
		"fields": []map[string]any{
			field("Severity", a.Severity),
			field("Status", a.Status),
			field("Priority", fmt.Sprintf("%d/100", a.AIPriorityScore)),
			field("Classification", a.AIClassification),
			field("Triage", a.TriageMethod),
			field("Source", source),
		},
	}
}

func actionBlock(a *alert.Alert) map[string]any {
	text := truncate(a.SuggestedAction, maxTextLen)
	if text == "" {
		text = "_No suggested action._"
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Suggested action*\n%s", text),
		},
	}
}

func contextBlock(a *alert.Alert) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("opsgenix • alert %s • %s", a.ID, a.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
			},
		},
	}
}

func severityEmoji(s alert.Severity) string {
	switch s {
	case alert.SeverityCritical:
		return "\U0001f534" // red circle
	case alert.SeverityHigh:
		return "\U0001f7e0" // orange circle
	case alert.SeverityMedium:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
