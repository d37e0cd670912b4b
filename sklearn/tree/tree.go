// Package tree implements CART decision trees for classification and
// regression. Both estimators share one flattened-node builder; the forest
// and boosting estimators in sklearn/ensemble grow their trees through
// FitSamples and read leaves through Apply.
package tree

import (
	"fmt"
	"math/rand"

	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// params holds the hyperparameters shared by both tree estimators.
type params struct {
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	randomState     int64
}

// Option configures a decision tree.
type Option func(*params)

// WithCriterion sets the split quality measure: "gini" or "entropy" for
// classification, "squared_error" for regression.
func WithCriterion(criterion string) Option {
	return func(p *params) {
		p.criterion = criterion
	}
}

// WithMaxDepth limits the depth of the tree. Zero or negative means unlimited.
func WithMaxDepth(depth int) Option {
	return func(p *params) {
		p.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(p *params) {
		p.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(p *params) {
		p.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many non-constant features are examined per
// split. Zero means all features.
func WithMaxFeatures(n int) Option {
	return func(p *params) {
		p.maxFeatures = n
	}
}

// WithRandomState seeds the feature permutation used at each split.
func WithRandomState(seed int64) Option {
	return func(p *params) {
		p.randomState = seed
	}
}

func newParams(criterion string, opts []Option) params {
	p := params{
		criterion:       criterion,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p params) validate() error {
	if p.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", p.minSamplesSplit)
	}
	if p.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", p.minSamplesLeaf)
	}
	if p.maxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be non-negative", p.maxFeatures)
	}
	return nil
}

func (p params) newBuilder(crit criterion, X *mat.Dense, y []float64, nClasses int) *builder {
	return &builder{
		crit:            crit,
		maxDepth:        p.maxDepth,
		minSamplesSplit: p.minSamplesSplit,
		minSamplesLeaf:  p.minSamplesLeaf,
		maxFeatures:     p.maxFeatures,
		nClasses:        nClasses,
		rng:             rand.New(rand.NewSource(p.randomState)),
		X:               X,
		y:               y,
	}
}

func (p params) asMap() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         p.criterion,
		"max_depth":         p.maxDepth,
		"min_samples_split": p.minSamplesSplit,
		"min_samples_leaf":  p.minSamplesLeaf,
		"max_features":      p.maxFeatures,
		"random_state":      p.randomState,
	}
}

// checkFitInput validates X and y and returns a dense copy of X and the
// targets as a slice.
func checkFitInput(op string, X, y mat.Matrix) (*mat.Dense, []float64, error) {
	if X == nil || y == nil {
		return nil, nil, errors.NewValueError(op, "X and y must not be nil")
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, nil, errors.ErrEmptyData
	}
	yRows, yCols := y.Dims()
	if yRows != rows {
		return nil, nil, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return nil, nil, errors.NewDimensionError(op, 1, yCols, 1)
	}
	return mat.DenseCopyOf(X), mat.Col(nil, 0, y), nil
}

func checkSamples(op string, samples []int, rows int) error {
	if len(samples) == 0 {
		return errors.NewDataInsufficiencyError(op, 0, "no samples to fit")
	}
	for _, i := range samples {
		if i < 0 || i >= rows {
			return errors.NewValueError(op, fmt.Sprintf("sample index %d out of range [0, %d)", i, rows))
		}
	}
	return nil
}

func allSamples(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// applyTree returns the leaf id reached by each row of X.
func applyTree(t *fittedTree, X mat.Matrix) []int {
	rows, cols := X.Dims()
	leaves := make([]int, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		leaves[i] = t.leaf(row)
	}
	return leaves
}
