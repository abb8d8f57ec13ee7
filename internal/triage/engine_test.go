package triage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/go-core/log"
)

// fakeBackend returns a preconfigured result or error and counts calls.
type fakeBackend struct {
	mu     sync.Mutex
	name   string
	result Result
	err    error
	calls  int
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Classify(_ context.Context, _ AlertText) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var sampleAlert = AlertText{Title: "Critical database failed", Description: "primary unreachable"}

func TestDecide_NoBackendUsesHeuristic(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil, log.Nop(), EngineHooks{})
	got := e.Decide(context.Background(), sampleAlert)
	want := Score(sampleAlert)

	if got != want {
		t.Errorf("Decide = %+v, want %+v", got, want)
	}
	if e.BackendName() != "none" {
		t.Errorf("BackendName = %q, want none", e.BackendName())
	}
}

func TestDecide_BackendSuccess(t *testing.T) {
	t.Parallel()

	want := Result{
		PriorityScore:   85,
		Classification:  "network",
		SuggestedAction: "Restart the load balancer",
		Method:          MethodRemoteModel,
	}
	b := &fakeBackend{name: "remote", result: want}
	e := NewEngine(b, nil, EngineHooks{})

	got := e.Decide(context.Background(), sampleAlert)
	if got != want {
		t.Errorf("Decide = %+v, want %+v", got, want)
	}
	if b.callCount() != 1 {
		t.Errorf("backend calls = %d, want 1", b.callCount())
	}
}

func TestDecide_FallbackEqualsHeuristic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		backend *fakeBackend
	}{
		{"unavailable", &fakeBackend{name: "remote", err: ErrBackendUnavailable}},
		{"backend error", &fakeBackend{name: "remote", err: NewBackendError("remote", "call failed", errors.New("timeout"))}},
		{"unexpected error", &fakeBackend{name: "local", err: errors.New("boom")}},
		{"score out of range", &fakeBackend{name: "remote", result: Result{PriorityScore: 150, Method: MethodRemoteModel}}},
		{"negative score", &fakeBackend{name: "remote", result: Result{PriorityScore: -1, Method: MethodRemoteModel}}},
		{"missing method", &fakeBackend{name: "local", result: Result{PriorityScore: 50}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewEngine(tt.backend, log.Nop(), EngineHooks{})
			got := e.Decide(context.Background(), sampleAlert)
			want := Score(sampleAlert)

			if got != want {
				t.Errorf("Decide = %+v, want heuristic %+v", got, want)
			}
			if tt.backend.callCount() != 1 {
				t.Errorf("backend calls = %d, want exactly 1", tt.backend.callCount())
			}
		})
	}
}

func TestDecide_HooksReportOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		backend     Backend
		wantBackend string
		wantOutcome string
		wantMethod  Method
	}{
		{"no backend", nil, "none", OutcomeNone, MethodHeuristic},
		{"success", &fakeBackend{name: "local", result: Result{PriorityScore: 95, Method: MethodLocalModel}}, "local", OutcomeSuccess, MethodLocalModel},
		{"unavailable", &fakeBackend{name: "remote", err: ErrBackendUnavailable}, "remote", OutcomeUnavailable, MethodHeuristic},
		{"failed", &fakeBackend{name: "remote", err: NewBackendError("remote", "bad json", nil)}, "remote", OutcomeError, MethodHeuristic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var events []*DecisionEvent
			e := NewEngine(tt.backend, log.Nop(), EngineHooks{
				OnDecision: func(ev *DecisionEvent) { events = append(events, ev) },
			})
			e.Decide(context.Background(), sampleAlert)

			if len(events) != 1 {
				t.Fatalf("events = %d, want 1", len(events))
			}
			ev := events[0]
			if ev.Backend != tt.wantBackend {
				t.Errorf("Backend = %q, want %q", ev.Backend, tt.wantBackend)
			}
			if ev.Outcome != tt.wantOutcome {
				t.Errorf("Outcome = %q, want %q", ev.Outcome, tt.wantOutcome)
			}
			if ev.Method != tt.wantMethod {
				t.Errorf("Method = %q, want %q", ev.Method, tt.wantMethod)
			}
			if ev.Duration < 0 {
				t.Errorf("Duration = %v, want >= 0", ev.Duration)
			}
		})
	}
}

func TestDecide_ConcurrentUse(t *testing.T) {
	t.Parallel()

	b := &fakeBackend{name: "local", result: Result{PriorityScore: 50, Method: MethodLocalModel}}
	e := NewEngine(b, log.Nop(), EngineHooks{})

	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			if r := e.Decide(context.Background(), sampleAlert); r.Method != MethodLocalModel {
				t.Errorf("Method = %q, want %q", r.Method, MethodLocalModel)
			}
		})
	}
	wg.Wait()

	if b.callCount() != 32 {
		t.Errorf("backend calls = %d, want 32", b.callCount())
	}
}

func TestMetricsHooks(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	e := NewEngine(&fakeBackend{name: "remote", err: ErrBackendUnavailable}, log.Nop(), m.Hooks())
	e.Decide(context.Background(), sampleAlert)
	e.Decide(context.Background(), sampleAlert)

	got := testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("remote", string(MethodHeuristic), OutcomeUnavailable))
	if got != 2 {
		t.Errorf("decisions_total = %v, want 2", got)
	}
}

func TestDecide_CreatesSpan(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	e := NewEngine(&fakeBackend{name: "remote", err: NewBackendError("remote", "call failed", nil)}, log.Nop(), EngineHooks{})
	e.Decide(context.Background(), sampleAlert)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	s := spans[0]
	if s.Name != "triage.Decide" {
		t.Errorf("span name = %q, want triage.Decide", s.Name)
	}

	attrs := make(map[string]any)
	for _, a := range s.Attributes {
		attrs[string(a.Key)] = a.Value.AsInterface()
	}
	if attrs["triage.backend"] != "remote" {
		t.Errorf("triage.backend = %v, want remote", attrs["triage.backend"])
	}
	if attrs["triage.outcome"] != OutcomeError {
		t.Errorf("triage.outcome = %v, want %s", attrs["triage.outcome"], OutcomeError)
	}
	if attrs["triage.method"] != string(MethodHeuristic) {
		t.Errorf("triage.method = %v, want heuristic", attrs["triage.method"])
	}
}
