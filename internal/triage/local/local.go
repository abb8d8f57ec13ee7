// Package local implements a triage backend around an in-process random
// forest classifier that can be retrained at runtime.
package local

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

// BackendName is the name reported by Backend.
const BackendName = "local"

const bootstrapSamples = 100

// Info describes the model currently in use.
type Info struct {
	Bootstrapped bool      `json:"bootstrapped"`
	TrainedAt    time.Time `json:"trained_at"`
	Samples      int       `json:"samples"`
	Trees        int       `json:"trees"`
}

// Sample is one labelled alert used for retraining. Unknown labels train as medium.
type Sample struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Severity    string `json:"severity" yaml:"severity"`
}

// TrainingSummary reports the outcome of a successful Retrain.
type TrainingSummary struct {
	Samples          int                     `json:"samples"`
	UnknownLabels    int                     `json:"unknown_labels"`
	ClassCounts      map[triage.Severity]int `json:"class_counts"`
	TrainingAccuracy float64                 `json:"training_accuracy"`
	TrainedAt        time.Time               `json:"trained_at"`
}

// Backend classifies alerts with the current model. Classify is lock-free;
// Retrain builds a replacement off to the side and swaps it in atomically.
type Backend struct {
	store  Store
	logger log.Logger
	params ForestParams
	now    func() time.Time

	state atomic.Pointer[State]
	mu    sync.Mutex // serializes Retrain
}

// New creates a backend with no model loaded. Call Init before use.
func New(store Store, logger log.Logger) *Backend {
	if logger == nil {
		logger = log.Nop()
	}
	return &Backend{
		store:  store,
		logger: logger,
		params: DefaultForestParams(),
		now:    time.Now,
	}
}

// Open creates a backend and loads or bootstraps its model.
func Open(ctx context.Context, store Store, logger log.Logger) (*Backend, error) {
	b := New(store, logger)
	if err := b.Init(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// Init loads the persisted model. When none exists or it is corrupt, a
// placeholder model is trained on random data and persisted; Info reports it
// as bootstrapped.
func (b *Backend) Init(ctx context.Context) error {
	st, err := b.store.Load(ctx)
	if err == nil {
		b.state.Store(st)
		b.logger.Info(ctx, "local triage model loaded",
			"trained_at", st.Info.TrainedAt,
			"samples", st.Info.Samples,
			"bootstrapped", st.Info.Bootstrapped,
		)
		return nil
	}
	if !errors.Is(err, ErrNoState) {
		b.logger.Warn(ctx, "persisted triage model is corrupt, bootstrapping", "error", err.Error())
	}

	st, err = b.bootstrap()
	if err != nil {
		return fmt.Errorf("bootstrap local model: %w", err)
	}
	if err := b.store.Save(ctx, st); err != nil {
		b.logger.Warn(ctx, "failed to persist bootstrap triage model", "error", err.Error())
	}
	b.state.Store(st)
	b.logger.Warn(ctx, "local triage model bootstrapped from placeholder data, retrain before relying on it")
	return nil
}

// Name implements triage.Backend.
func (b *Backend) Name() string { return BackendName }

// Classify implements triage.Backend.
func (b *Backend) Classify(ctx context.Context, text triage.AlertText) (triage.Result, error) {
	st := b.state.Load()
	if st == nil {
		return triage.Result{}, triage.ErrBackendUnavailable
	}
	if err := ctx.Err(); err != nil {
		return triage.Result{}, triage.NewBackendError(BackendName, "canceled", err)
	}

	class, proba := st.Forest.Predict(st.Scaler.Transform(triage.Extract(text)))
	sev := triage.SeverityFromClass(class)

	return triage.Result{
		PriorityScore:   sev.Priority(),
		Classification:  triage.DefaultClassification,
		SuggestedAction: sev.SuggestedAction(),
		Method:          triage.MethodLocalModel,
		Severity:        sev,
		Confidence:      proba,
	}, nil
}

// Info describes the current model. ok is false when no model is loaded.
func (b *Backend) Info() (Info, bool) {
	st := b.state.Load()
	if st == nil {
		return Info{}, false
	}
	return st.Info, true
}

// Retrain fits a new model on samples, persists it and then swaps it in.
// An empty sample set returns triage.ErrTraining and leaves the model untouched,
// as does a persist failure.
func (b *Backend) Retrain(ctx context.Context, samples []Sample) (TrainingSummary, error) {
	if len(samples) == 0 {
		return TrainingSummary{}, fmt.Errorf("%w: no training samples", triage.ErrTraining)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	xs := make([]triage.FeatureVector, len(samples))
	ys := make([]int, len(samples))
	summary := TrainingSummary{
		Samples:     len(samples),
		ClassCounts: make(map[triage.Severity]int, triage.SeverityClassCount),
	}
	for i, s := range samples {
		xs[i] = triage.Extract(triage.AlertText{Title: s.Title, Description: s.Description})
		sev, ok := triage.ParseSeverity(s.Severity)
		if !ok {
			summary.UnknownLabels++
		}
		ys[i], _ = sev.Class()
		summary.ClassCounts[sev]++
	}

	if err := ctx.Err(); err != nil {
		return TrainingSummary{}, fmt.Errorf("%w: %w", triage.ErrTraining, err)
	}

	st, err := b.fit(xs, ys)
	if err != nil {
		return TrainingSummary{}, fmt.Errorf("%w: %w", triage.ErrTraining, err)
	}
	st.Info.Samples = len(samples)

	if err := b.store.Save(ctx, st); err != nil {
		return TrainingSummary{}, fmt.Errorf("persist model: %w", err)
	}
	b.state.Store(st)

	summary.TrainedAt = st.Info.TrainedAt
	summary.TrainingAccuracy = accuracy(st, xs, ys)

	b.logger.Info(ctx, "local triage model retrained",
		"samples", summary.Samples,
		"unknown_labels", summary.UnknownLabels,
		"training_accuracy", summary.TrainingAccuracy,
	)
	return summary, nil
}

func (b *Backend) bootstrap() (*State, error) {
	rng := rand.New(rand.NewPCG(b.params.Seed, b.params.Seed)) //nolint:gosec // placeholder data
	xs := make([]triage.FeatureVector, bootstrapSamples)
	ys := make([]int, bootstrapSamples)
	for i := range xs {
		for j := range xs[i] {
			xs[i][j] = rng.Float64()
		}
		ys[i] = rng.IntN(triage.SeverityClassCount)
	}

	st, err := b.fit(xs, ys)
	if err != nil {
		return nil, err
	}
	st.Info.Bootstrapped = true
	st.Info.Samples = bootstrapSamples
	return st, nil
}

func (b *Backend) fit(xs []triage.FeatureVector, ys []int) (*State, error) {
	scaler, err := FitScaler(xs)
	if err != nil {
		return nil, err
	}
	scaled := make([]triage.FeatureVector, len(xs))
	for i, x := range xs {
		scaled[i] = scaler.Transform(x)
	}
	forest, err := TrainForest(scaled, ys, triage.SeverityClassCount, b.params)
	if err != nil {
		return nil, err
	}
	return &State{
		Scaler: scaler,
		Forest: forest,
		Info: Info{
			TrainedAt: b.now().UTC(),
			Trees:     len(forest.Trees),
		},
	}, nil
}

func accuracy(st *State, xs []triage.FeatureVector, ys []int) float64 {
	correct := 0
	for i, x := range xs {
		if c, _ := st.Forest.Predict(st.Scaler.Transform(x)); c == ys[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(xs))
}
