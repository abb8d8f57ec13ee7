package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/linnemanlabs/opsgenix/internal/triage/remote"
)

func TestResponseText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{"nil", nil, "", true},
		{"no candidates", &genai.GenerateContentResponse{}, "", true},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}, "", true},
		{
			"joins parts",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "{\"a\":"},
					{Text: "thinking...", Thought: true},
					{Text: "1}"},
				}},
			}}},
			`{"a":1}`, false,
		},
		{
			"only empty parts",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: ""}}},
			}}},
			"", true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := responseText(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("responseText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerate_AgainstFakeServer(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"ok\":true}"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c, err := NewWithConfig(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL},
	}, "")
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}

	out, err := c.Generate(context.Background(), &remote.GenerateRequest{Prompt: "hello", MaxTokens: 256, Temperature: 0.3})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"ok":true}` {
		t.Errorf("out = %q", out)
	}
	if !strings.Contains(gotPath, DefaultModel+":generateContent") {
		t.Errorf("path = %q, want model %s", gotPath, DefaultModel)
	}
	if gotBody == nil {
		t.Error("request body not received")
	}
}
