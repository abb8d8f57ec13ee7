// Package gemini sends single-prompt completions to Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/linnemanlabs/opsgenix/internal/triage/remote"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// Client implements remote.Generator using the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// New creates a Gemini client. It does not contact the API.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	return NewWithConfig(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, model)
}

// NewWithConfig creates a Gemini client from a full SDK config.
func NewWithConfig(ctx context.Context, cc *genai.ClientConfig, model string) (*Client, error) {
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Provider implements remote.Generator.
func (c *Client) Provider() string { return "gemini" }

// Generate implements remote.Generator.
func (c *Client) Generate(ctx context.Context, req *remote.GenerateRequest) (string, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens), //nolint:gosec // bounded by config validation
		Temperature:     genai.Ptr(float32(req.Temperature)),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini api: %w", err)
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini api: no candidates in response")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("gemini api: empty candidate (finish reason %s)", cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("gemini api: response has no text content")
	}
	return sb.String(), nil
}
