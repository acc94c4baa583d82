package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/city-risk-service/internal/domain"
)

// leafMarker is the child index that marks a leaf node.
const leafMarker = -1

// Forest evaluates a tree ensemble exported from a trained random forest.
// Each tree is stored as parallel node arrays. Regressors average leaf values
// across trees; classifiers average the per-tree normalized leaf distributions.
type Forest struct {
	name          string
	kind          Kind
	schemaVersion string
	features      []string
	classes       []int
	trees         []tree
}

type tree struct {
	left      []int
	right     []int
	feature   []int
	threshold []float64
	value     [][]float64
}

// forestArtifact is the on-disk JSON layout.
type forestArtifact struct {
	Name          string         `json:"name"`
	Kind          Kind           `json:"kind"`
	SchemaVersion string         `json:"schema_version"`
	Features      []string       `json:"features"`
	Classes       []int          `json:"classes,omitempty"`
	Trees         []treeArtifact `json:"trees"`
}

type treeArtifact struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// ParseForest decodes and validates a tree-ensemble artifact.
func ParseForest(data []byte) (*Forest, error) {
	var a forestArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode forest artifact: %w", err)
	}
	return newForest(a)
}

func newForest(a forestArtifact) (*Forest, error) {
	switch a.Kind {
	case KindRegressor, KindClassifier:
	default:
		return nil, fmt.Errorf("forest %q: unknown kind %q", a.Name, a.Kind)
	}
	if len(a.Features) == 0 {
		return nil, fmt.Errorf("forest %q: no features", a.Name)
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("forest %q: no trees", a.Name)
	}
	if a.Kind == KindClassifier && len(a.Classes) == 0 {
		return nil, fmt.Errorf("forest %q: classifier without classes", a.Name)
	}

	width := 1
	if a.Kind == KindClassifier {
		width = len(a.Classes)
	}

	f := &Forest{
		name:          a.Name,
		kind:          a.Kind,
		schemaVersion: a.SchemaVersion,
		features:      a.Features,
		classes:       a.Classes,
		trees:         make([]tree, 0, len(a.Trees)),
	}
	for i, ta := range a.Trees {
		t, err := newTree(ta, len(a.Features), width)
		if err != nil {
			return nil, fmt.Errorf("forest %q tree %d: %w", a.Name, i, err)
		}
		f.trees = append(f.trees, t)
	}
	return f, nil
}

func newTree(a treeArtifact, numFeatures, width int) (tree, error) {
	n := len(a.ChildrenLeft)
	if n == 0 {
		return tree{}, errors.New("empty tree")
	}
	if len(a.ChildrenRight) != n || len(a.Feature) != n || len(a.Threshold) != n || len(a.Value) != n {
		return tree{}, errors.New("node arrays differ in length")
	}
	for i := range n {
		if a.ChildrenLeft[i] == leafMarker {
			if len(a.Value[i]) != width {
				return tree{}, fmt.Errorf("leaf %d has %d values, want %d", i, len(a.Value[i]), width)
			}
			continue
		}
		if !validChild(a.ChildrenLeft[i], n) || !validChild(a.ChildrenRight[i], n) {
			return tree{}, fmt.Errorf("node %d has child out of range", i)
		}
		if a.Feature[i] < 0 || a.Feature[i] >= numFeatures {
			return tree{}, fmt.Errorf("node %d splits on feature %d of %d", i, a.Feature[i], numFeatures)
		}
	}
	return tree{
		left:      a.ChildrenLeft,
		right:     a.ChildrenRight,
		feature:   a.Feature,
		threshold: a.Threshold,
		value:     a.Value,
	}, nil
}

func validChild(idx, n int) bool {
	// Root is never a child; this also rules out self-loops at the root.
	return idx > 0 && idx < n
}

// leaf walks from the root to a leaf and returns its values.
func (t tree) leaf(x []float64) ([]float64, error) {
	node := 0
	for range len(t.left) {
		if t.left[node] == leafMarker {
			return t.value[node], nil
		}
		if x[t.feature[node]] <= t.threshold[node] {
			node = t.left[node]
		} else {
			node = t.right[node]
		}
	}
	return nil, errors.New("tree traversal did not reach a leaf")
}

// Name returns the artifact name.
func (f *Forest) Name() string { return f.name }

// Kind implements Descriptor.
func (f *Forest) Kind() Kind { return f.kind }

// Features implements Descriptor.
func (f *Forest) Features() []string { return slices.Clone(f.features) }

// SchemaVersion implements Descriptor.
func (f *Forest) SchemaVersion() string { return f.schemaVersion }

// Classes implements ProbabilisticClassifier.
func (f *Forest) Classes() []int { return slices.Clone(f.classes) }

// Predict implements Regressor.
func (f *Forest) Predict(ctx context.Context, v domain.FeatureVector) (float64, error) {
	if f.kind != KindRegressor {
		return 0, fmt.Errorf("forest %q is a %s", f.name, f.kind)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkVector(f.features, v); err != nil {
		return 0, err
	}

	x := v.Values()
	leaves := make([]float64, len(f.trees))
	for i, t := range f.trees {
		val, err := t.leaf(x)
		if err != nil {
			return 0, fmt.Errorf("forest %q tree %d: %w", f.name, i, err)
		}
		leaves[i] = val[0]
	}
	return floats.Sum(leaves) / float64(len(leaves)), nil
}

// PredictProba implements ProbabilisticClassifier. The result is aligned with
// Classes.
func (f *Forest) PredictProba(ctx context.Context, v domain.FeatureVector) ([]float64, error) {
	if f.kind != KindClassifier {
		return nil, fmt.Errorf("forest %q is a %s", f.name, f.kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkVector(f.features, v); err != nil {
		return nil, err
	}

	x := v.Values()
	proba := make([]float64, len(f.classes))
	dist := make([]float64, len(f.classes))
	for i, t := range f.trees {
		val, err := t.leaf(x)
		if err != nil {
			return nil, fmt.Errorf("forest %q tree %d: %w", f.name, i, err)
		}
		copy(dist, val)
		if total := floats.Sum(dist); total > 0 {
			floats.Scale(1/total, dist)
		}
		floats.Add(proba, dist)
	}
	floats.Scale(1/float64(len(f.trees)), proba)
	return proba, nil
}

// PredictClass implements ProbabilisticClassifier. It returns the label with
// the highest averaged probability; ties resolve to the earlier label.
func (f *Forest) PredictClass(ctx context.Context, v domain.FeatureVector) (int, error) {
	proba, err := f.PredictProba(ctx, v)
	if err != nil {
		return 0, err
	}
	return f.classes[floats.MaxIdx(proba)], nil
}
