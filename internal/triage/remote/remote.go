// Package remote implements a triage backend backed by a hosted generative model.
package remote

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

// BackendName is the name reported by Backend.
const BackendName = "remote"

var tracer = otel.Tracer("github.com/linnemanlabs/opsgenix/internal/triage/remote")

// GenerateRequest is a single-prompt completion request.
type GenerateRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator sends a prompt to a hosted model and returns the concatenated text reply.
type Generator interface {
	Provider() string
	Generate(ctx context.Context, req *GenerateRequest) (string, error)
}

// Options tunes every request the backend sends.
type Options struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Backend classifies alerts by asking a generative model for a JSON verdict.
type Backend struct {
	gen  Generator
	opts Options
}

// New creates a remote backend. A nil gen yields a backend that always
// reports triage.ErrBackendUnavailable.
func New(gen Generator, opts Options) *Backend {
	return &Backend{gen: gen, opts: opts}
}

// Name implements triage.Backend.
func (b *Backend) Name() string { return BackendName }

// Classify implements triage.Backend.
func (b *Backend) Classify(ctx context.Context, text triage.AlertText) (triage.Result, error) {
	if b.gen == nil {
		return triage.Result{}, triage.ErrBackendUnavailable
	}

	raw, err := b.generate(ctx, "analyze_alert", buildAnalysisPrompt(text))
	if err != nil {
		return triage.Result{}, triage.NewBackendError(BackendName, "generate", err)
	}

	a, err := parseAnalysis(raw)
	if err != nil {
		return triage.Result{}, triage.NewBackendError(BackendName, "invalid response", err)
	}

	return triage.Result{
		PriorityScore:   a.PriorityScore,
		Classification:  a.Classification,
		SuggestedAction: a.SuggestedAction,
		Method:          triage.MethodRemoteModel,
	}, nil
}

// PredictResolution asks the model how long an alert will take to resolve.
// On any failure it returns triage.FallbackResolution together with the cause.
func (b *Backend) PredictResolution(ctx context.Context, alert map[string]any) (triage.ResolutionEstimate, error) {
	if b.gen == nil {
		return triage.FallbackResolution(), triage.ErrBackendUnavailable
	}

	prompt, err := buildResolutionPrompt(alert)
	if err != nil {
		return triage.FallbackResolution(), triage.NewBackendError(BackendName, "build prompt", err)
	}

	raw, err := b.generate(ctx, "predict_resolution", prompt)
	if err != nil {
		return triage.FallbackResolution(), triage.NewBackendError(BackendName, "generate", err)
	}

	est, err := parseResolution(raw)
	if err != nil {
		return triage.FallbackResolution(), triage.NewBackendError(BackendName, "invalid response", err)
	}
	return est, nil
}

func (b *Backend) generate(ctx context.Context, operation, prompt string) (string, error) {
	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}

	ctx, span := tracer.Start(ctx, "remote.generate", trace.WithAttributes(
		attribute.String("gen_ai.operation.name", operation),
		attribute.String("gen_ai.system", b.gen.Provider()),
		attribute.Int("gen_ai.request.max_tokens", b.opts.MaxTokens),
		attribute.Float64("gen_ai.request.temperature", b.opts.Temperature),
	))
	defer span.End()

	out, err := b.gen.Generate(ctx, &GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   b.opts.MaxTokens,
		Temperature: b.opts.Temperature,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return "", fmt.Errorf("%s: %w", b.gen.Provider(), err)
	}

	span.SetAttributes(attribute.Int("gen_ai.response.length", len(out)))
	return out, nil
}
