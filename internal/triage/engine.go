package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

var tracer = otel.Tracer("github.com/linnemanlabs/opsgenix/internal/triage")

// Backend outcomes reported to EngineHooks.
const (
	OutcomeNone        = "none"
	OutcomeSuccess     = "success"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// EngineHooks receives a notification for every decision. Nil funcs are skipped.
type EngineHooks struct {
	OnDecision func(e *DecisionEvent)
}

// DecisionEvent describes one Decide call.
type DecisionEvent struct {
	Backend       string
	Method        Method
	Outcome       string
	PriorityScore int
	Duration      float64
}

// Engine decides priority and classification for alerts. It calls at most
// one backend attempt per decision and falls back to the heuristic on any
// backend failure. It holds no per-call state and is safe for concurrent use.
type Engine struct {
	backend Backend
	logger  log.Logger
	hooks   EngineHooks
}

// NewEngine creates an engine around backend, which may be nil.
func NewEngine(backend Backend, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		backend: backend,
		logger:  logger,
		hooks:   hooks,
	}
}

// BackendName returns the active backend name, or "none".
func (e *Engine) BackendName() string {
	if e.backend == nil {
		return "none"
	}
	return e.backend.Name()
}

// Decide returns a triage result for text. It never fails.
func (e *Engine) Decide(ctx context.Context, text AlertText) Result {
	start := time.Now()
	backendName := e.BackendName()

	ctx, span := tracer.Start(ctx, "triage.Decide", trace.WithAttributes(
		attribute.String("triage.backend", backendName),
	))
	defer span.End()

	result, outcome := e.attempt(ctx, text)

	span.SetAttributes(
		attribute.String("triage.method", string(result.Method)),
		attribute.String("triage.outcome", outcome),
		attribute.Int("triage.priority_score", result.PriorityScore),
	)

	if e.hooks.OnDecision != nil {
		e.hooks.OnDecision(&DecisionEvent{
			Backend:       backendName,
			Method:        result.Method,
			Outcome:       outcome,
			PriorityScore: result.PriorityScore,
			Duration:      time.Since(start).Seconds(),
		})
	}
	return result
}

func (e *Engine) attempt(ctx context.Context, text AlertText) (Result, string) {
	if e.backend == nil {
		return Score(text), OutcomeNone
	}

	result, err := e.backend.Classify(ctx, text)
	if err == nil {
		err = validResult(result)
	}
	switch {
	case err == nil:
		return result, OutcomeSuccess
	case errors.Is(err, ErrBackendUnavailable):
		return Score(text), OutcomeUnavailable
	default:
		e.logger.Warn(ctx, "triage backend failed, using heuristic",
			"backend", e.backend.Name(),
			"error", err.Error(),
		)
		return Score(text), OutcomeError
	}
}

func validResult(r Result) error {
	if r.PriorityScore < 0 || r.PriorityScore > maxPriority {
		return NewBackendError("engine", "invalid result", fmt.Errorf("priority_score %d out of range", r.PriorityScore))
	}
	if r.Method == "" {
		return NewBackendError("engine", "invalid result", errors.New("missing method"))
	}
	return nil
}
