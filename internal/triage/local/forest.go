package local

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/linnemanlabs/opsgenix/internal/triage"
)

// Forest hyperparameters.
const (
	DefaultTrees    = 10
	DefaultMaxDepth = 10
	DefaultSeed     = 42
	minSamplesSplit = 2
)

// Node is a CART decision node. Leaves have Left == Right == nil and carry
// the class distribution of the training samples that reached them.
type Node struct {
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *Node     `json:"left,omitempty"`
	Right     *Node     `json:"right,omitempty"`
	Dist      []float64 `json:"dist,omitempty"`
}

func (n *Node) leaf() bool { return n.Left == nil && n.Right == nil }

// Forest is a random forest classifier over triage feature vectors.
type Forest struct {
	Classes int     `json:"classes"`
	Trees   []*Node `json:"trees"`
}

// ForestParams controls training.
type ForestParams struct {
	Trees    int
	MaxDepth int
	Seed     uint64
}

// DefaultForestParams returns the production forest shape.
func DefaultForestParams() ForestParams {
	return ForestParams{Trees: DefaultTrees, MaxDepth: DefaultMaxDepth, Seed: DefaultSeed}
}

// TrainForest fits a forest of bootstrap-sampled Gini trees, considering
// floor(sqrt(features)) random candidate features at each split.
func TrainForest(xs []triage.FeatureVector, ys []int, classes int, p ForestParams) (*Forest, error) {
	if len(xs) == 0 {
		return nil, errors.New("train forest: no samples")
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("train forest: %d samples but %d labels", len(xs), len(ys))
	}
	for i, y := range ys {
		if y < 0 || y >= classes {
			return nil, fmt.Errorf("train forest: label %d of sample %d out of range", y, i)
		}
	}

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed)) //nolint:gosec // deterministic model training
	t := &trainer{
		xs:       xs,
		ys:       ys,
		classes:  classes,
		maxDepth: p.MaxDepth,
		maxFeat:  max(1, int(math.Sqrt(float64(triage.FeatureCount)))),
		rng:      rng,
	}

	f := &Forest{Classes: classes, Trees: make([]*Node, 0, p.Trees)}
	for range p.Trees {
		idx := make([]int, len(xs))
		for i := range idx {
			idx[i] = rng.IntN(len(xs))
		}
		f.Trees = append(f.Trees, t.grow(idx, 0))
	}
	return f, nil
}

// PredictProba returns the mean of the per-tree leaf distributions for x.
func (f *Forest) PredictProba(x triage.FeatureVector) []float64 {
	out := make([]float64, f.Classes)
	for _, tree := range f.Trees {
		n := tree
		for !n.leaf() {
			if x[n.Feature] <= n.Threshold {
				n = n.Left
			} else {
				n = n.Right
			}
		}
		for c, p := range n.Dist {
			out[c] += p
		}
	}
	for c := range out {
		out[c] /= float64(len(f.Trees))
	}
	return out
}

// Predict returns the most probable class and its probability. Ties go to the lower class.
func (f *Forest) Predict(x triage.FeatureVector) (int, float64) {
	proba := f.PredictProba(x)
	best := 0
	for c, p := range proba {
		if p > proba[best] {
			best = c
		}
	}
	return best, proba[best]
}

func (f *Forest) validate() error {
	if f.Classes <= 0 {
		return fmt.Errorf("invalid class count %d", f.Classes)
	}
	if len(f.Trees) == 0 {
		return errors.New("no trees")
	}
	for i, tree := range f.Trees {
		if err := validateNode(tree, f.Classes); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func validateNode(n *Node, classes int) error {
	if n == nil {
		return errors.New("nil node")
	}
	if n.leaf() {
		if len(n.Dist) != classes {
			return fmt.Errorf("leaf distribution has %d classes, want %d", len(n.Dist), classes)
		}
		return nil
	}
	if n.Left == nil || n.Right == nil {
		return errors.New("split node missing a child")
	}
	if n.Feature < 0 || n.Feature >= triage.FeatureCount {
		return fmt.Errorf("split feature %d out of range", n.Feature)
	}
	if err := validateNode(n.Left, classes); err != nil {
		return err
	}
	return validateNode(n.Right, classes)
}

type trainer struct {
	xs       []triage.FeatureVector
	ys       []int
	classes  int
	maxDepth int
	maxFeat  int
	rng      *rand.Rand
}

func (t *trainer) grow(idx []int, depth int) *Node {
	counts := t.counts(idx)
	if depth >= t.maxDepth || len(idx) < minSamplesSplit || pure(counts) {
		return t.leafNode(counts, len(idx))
	}

	feature, threshold, ok := t.bestSplit(idx, gini(counts, len(idx)))
	if !ok {
		return t.leafNode(counts, len(idx))
	}

	var left, right []int
	for _, i := range idx {
		if t.xs[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &Node{
		Feature:   feature,
		Threshold: threshold,
		Left:      t.grow(left, depth+1),
		Right:     t.grow(right, depth+1),
	}
}

// bestSplit finds the split with the lowest weighted Gini impurity among
// maxFeat randomly drawn features. When none of those improves on parent it
// keeps drawing from the remaining features. ok is false when no feature helps.
func (t *trainer) bestSplit(idx []int, parent float64) (feature int, threshold float64, ok bool) {
	best := parent
	n := float64(len(idx))

	for tried, f := range t.rng.Perm(triage.FeatureCount) {
		if tried >= t.maxFeat && ok {
			break
		}
		sorted := make([]int, len(idx))
		copy(sorted, idx)
		sortByFeature(sorted, t.xs, f)

		left := make([]int, t.classes)
		right := t.counts(sorted)
		for k := 0; k < len(sorted)-1; k++ {
			y := t.ys[sorted[k]]
			left[y]++
			right[y]--

			v, next := t.xs[sorted[k]][f], t.xs[sorted[k+1]][f]
			if v == next {
				continue
			}
			nl := k + 1
			nr := len(sorted) - nl
			g := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / n
			if g < best {
				best, feature, threshold, ok = g, f, (v+next)/2, true
			}
		}
	}
	return feature, threshold, ok
}

func sortByFeature(idx []int, xs []triage.FeatureVector, f int) {
	slices.SortStableFunc(idx, func(a, b int) int { return cmp.Compare(xs[a][f], xs[b][f]) })
}

func (t *trainer) counts(idx []int) []int {
	c := make([]int, t.classes)
	for _, i := range idx {
		c[t.ys[i]]++
	}
	return c
}

func (t *trainer) leafNode(counts []int, n int) *Node {
	dist := make([]float64, t.classes)
	if n > 0 {
		for c, k := range counts {
			dist[c] = float64(k) / float64(n)
		}
	}
	return &Node{Dist: dist}
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, k := range counts {
		p := float64(k) / float64(n)
		g -= p * p
	}
	return g
}

func pure(counts []int) bool {
	nonzero := 0
	for _, k := range counts {
		if k > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}
