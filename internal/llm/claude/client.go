// Package claude sends single-prompt completions to the Anthropic Messages API.
package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/opsgenix/internal/triage/remote"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// Client implements remote.Generator using the Anthropic SDK.
type Client struct {
	client anthropic.Client
	model  string
}

// New creates a Claude client. Retries are disabled; the triage engine
// falls back to the heuristic instead.
func New(apiKey, model string, opts ...option.RequestOption) *Client {
	if model == "" {
		model = DefaultModel
	}
	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &Client{
		client: anthropic.NewClient(reqOpts...),
		model:  model,
	}
}

// Provider implements remote.Generator.
func (c *Client) Provider() string { return "anthropic" }

// Generate implements remote.Generator.
func (c *Client) Generate(ctx context.Context, req *remote.GenerateRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	params.Temperature = anthropic.Float(req.Temperature)

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api: %w", err)
	}
	return textFromMessage(msg)
}

func textFromMessage(msg *anthropic.Message) (string, error) {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic api: response has no text content")
	}
	return sb.String(), nil
}
