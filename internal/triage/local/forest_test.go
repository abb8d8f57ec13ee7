package local

import (
	"math"
	"testing"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

func TestFitScaler(t *testing.T) {
	t.Parallel()

	xs := []triage.FeatureVector{
		{1, 10, 0, 5, 0},
		{3, 20, 0, 5, 1},
	}
	s, err := FitScaler(xs)
	if err != nil {
		t.Fatalf("FitScaler: %v", err)
	}

	wantMean := [triage.FeatureCount]float64{2, 15, 0, 5, 0.5}
	wantScale := [triage.FeatureCount]float64{1, 5, 1, 1, 0.5}
	if s.Mean != wantMean {
		t.Errorf("Mean = %v, want %v", s.Mean, wantMean)
	}
	if s.Scale != wantScale {
		t.Errorf("Scale = %v, want %v (population std, zero -> 1)", s.Scale, wantScale)
	}

	got := s.Transform(triage.FeatureVector{3, 10, 0, 5, 1})
	want := triage.FeatureVector{1, -1, 0, 0, 1}
	if got != want {
		t.Errorf("Transform = %v, want %v", got, want)
	}

	if _, err := FitScaler(nil); err == nil {
		t.Error("FitScaler(nil) should fail")
	}
}

func TestGini(t *testing.T) {
	t.Parallel()

	tests := []struct {
		counts []int
		n      int
		want   float64
	}{
		{[]int{4, 0, 0, 0}, 4, 0},
		{[]int{2, 2, 0, 0}, 4, 0.5},
		{[]int{1, 1, 1, 1}, 4, 0.75},
		{[]int{0, 0, 0, 0}, 0, 0},
	}
	for _, tt := range tests {
		if got := gini(tt.counts, tt.n); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("gini(%v) = %v, want %v", tt.counts, got, tt.want)
		}
	}
}

func TestTrainForest_Errors(t *testing.T) {
	t.Parallel()

	p := DefaultForestParams()
	if _, err := TrainForest(nil, nil, 4, p); err == nil {
		t.Error("expected error for no samples")
	}
	if _, err := TrainForest([]triage.FeatureVector{{}}, []int{0, 1}, 4, p); err == nil {
		t.Error("expected error for label count mismatch")
	}
	if _, err := TrainForest([]triage.FeatureVector{{}}, []int{7}, 4, p); err == nil {
		t.Error("expected error for out-of-range label")
	}
}

func separableData() ([]triage.FeatureVector, []int) {
	var xs []triage.FeatureVector
	var ys []int
	for i := range 40 {
		class := i % 4
		xs = append(xs, triage.FeatureVector{float64(class * 10), float64(class), 0, 0, 0})
		ys = append(ys, class)
	}
	return xs, ys
}

func TestTrainForest_Separable(t *testing.T) {
	t.Parallel()

	xs, ys := separableData()
	f, err := TrainForest(xs, ys, 4, DefaultForestParams())
	if err != nil {
		t.Fatalf("TrainForest: %v", err)
	}
	if len(f.Trees) != DefaultTrees {
		t.Errorf("trees = %d, want %d", len(f.Trees), DefaultTrees)
	}
	if err := f.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	for i, x := range xs {
		class, p := f.Predict(x)
		if class != ys[i] {
			t.Errorf("Predict(%v) = %d, want %d", x, class, ys[i])
		}
		if p <= 0.5 || p > 1 {
			t.Errorf("probability = %v, want in (0.5, 1]", p)
		}
	}
}

func TestTrainForest_Deterministic(t *testing.T) {
	t.Parallel()

	xs, ys := separableData()
	// Flip some labels so trees are not trivially identical.
	ys[3], ys[7], ys[11] = 0, 1, 2

	a, err := TrainForest(xs, ys, 4, DefaultForestParams())
	if err != nil {
		t.Fatal(err)
	}
	b, err := TrainForest(xs, ys, 4, DefaultForestParams())
	if err != nil {
		t.Fatal(err)
	}

	probes := []triage.FeatureVector{{0, 0, 0, 0, 0}, {15, 1.5, 0, 0, 0}, {30, 3, 1, 1, 1}, {-5, 9, 0, 1, 0}}
	for _, x := range probes {
		pa, pb := a.PredictProba(x), b.PredictProba(x)
		for c := range pa {
			if pa[c] != pb[c] {
				t.Fatalf("PredictProba(%v) differs between runs: %v vs %v", x, pa, pb)
			}
		}
	}
}

func TestPredictProba_SumsToOne(t *testing.T) {
	t.Parallel()

	xs, ys := separableData()
	f, err := TrainForest(xs, ys, 4, ForestParams{Trees: 3, MaxDepth: 2, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}

	sum := 0.0
	for _, p := range f.PredictProba(triage.FeatureVector{12, 1, 0, 0, 0}) {
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probabilities sum to %v, want 1", sum)
	}
}
