// Package ensemble provides random forests and gradient boosting built on
// the CART trees of sklearn/tree.
package ensemble

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/core/parallel"
	"github.com/YuminosukeSato/scigolab/metrics"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"github.com/YuminosukeSato/scigolab/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

// forestParams holds the hyperparameters shared by both forests.
type forestParams struct {
	nEstimators    int
	maxDepth       int
	minSamplesLeaf int
	maxFeatures    string
	bootstrap      bool
	randomState    int64
}

// ForestOption configures a random forest.
type ForestOption func(*forestParams)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) ForestOption {
	return func(p *forestParams) {
		p.nEstimators = n
	}
}

// WithForestMaxDepth limits the depth of each tree. Zero means unlimited.
func WithForestMaxDepth(depth int) ForestOption {
	return func(p *forestParams) {
		p.maxDepth = depth
	}
}

// WithForestMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithForestMinSamplesLeaf(n int) ForestOption {
	return func(p *forestParams) {
		p.minSamplesLeaf = n
	}
}

// WithForestMaxFeatures sets the per-split feature budget: "sqrt", "log2"
// or "all".
func WithForestMaxFeatures(mode string) ForestOption {
	return func(p *forestParams) {
		p.maxFeatures = mode
	}
}

// WithBootstrap sets whether each tree is grown on a bootstrap resample.
func WithBootstrap(bootstrap bool) ForestOption {
	return func(p *forestParams) {
		p.bootstrap = bootstrap
	}
}

// WithForestRandomState seeds the resampling and the trees.
func WithForestRandomState(seed int64) ForestOption {
	return func(p *forestParams) {
		p.randomState = seed
	}
}

func newForestParams(maxFeatures string, opts []ForestOption) forestParams {
	p := forestParams{
		nEstimators:    100,
		minSamplesLeaf: 1,
		maxFeatures:    maxFeatures,
		bootstrap:      true,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p forestParams) validate() error {
	if p.nEstimators <= 0 {
		return errors.NewValidationError("n_estimators", "must be positive", p.nEstimators)
	}
	switch p.maxFeatures {
	case "sqrt", "log2", "all":
	default:
		return errors.NewValidationError("max_features", "must be 'sqrt', 'log2' or 'all'", p.maxFeatures)
	}
	return nil
}

func (p forestParams) featureBudget(nFeatures int) int {
	switch p.maxFeatures {
	case "sqrt":
		return max(1, int(math.Sqrt(float64(nFeatures))))
	case "log2":
		return max(1, int(math.Log2(float64(nFeatures))))
	default:
		return nFeatures
	}
}

// treeSeed derives the seed of the i-th tree.
func (p forestParams) treeSeed(i int) int64 {
	return p.randomState + int64(i)
}

// samples returns the rows the i-th tree is grown on.
func (p forestParams) samples(i, nRows int) []int {
	idx := make([]int, nRows)
	if !p.bootstrap {
		for j := range idx {
			idx[j] = j
		}
		return idx
	}
	rng := rand.New(rand.NewSource(p.treeSeed(i)))
	for j := range idx {
		idx[j] = rng.Intn(nRows)
	}
	return idx
}

func (p forestParams) treeOptions(i, nFeatures int) []tree.Option {
	return []tree.Option{
		tree.WithMaxDepth(p.maxDepth),
		tree.WithMinSamplesLeaf(p.minSamplesLeaf),
		tree.WithMaxFeatures(p.featureBudget(nFeatures)),
		tree.WithRandomState(p.treeSeed(i)),
	}
}

func (p forestParams) asMap() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     p.nEstimators,
		"max_depth":        p.maxDepth,
		"min_samples_leaf": p.minSamplesLeaf,
		"max_features":     p.maxFeatures,
		"bootstrap":        p.bootstrap,
		"random_state":     p.randomState,
	}
}

// RandomForestClassifier averages the class probabilities of bootstrapped
// decision trees.
type RandomForestClassifier struct {
	state  *model.StateManager
	params forestParams

	estimators_ []*tree.DecisionTreeClassifier
	classes_    []int
}

// NewRandomForestClassifier creates a forest of 100 trees with
// max_features="sqrt".
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	return &RandomForestClassifier{
		state:  model.NewStateManager(),
		params: newForestParams("sqrt", opts),
	}
}

// Fit grows the trees concurrently. Each tree draws from its own seeded
// source, so the result does not depend on scheduling.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	if err := rf.params.validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}
	rf.state.Reset()

	Xd := mat.DenseCopyOf(X)
	trees := make([]*tree.DecisionTreeClassifier, rf.params.nEstimators)
	err = parallel.ForEach(len(trees), func(i int) error {
		t := tree.NewDecisionTreeClassifier(rf.params.treeOptions(i, cols)...)
		if err := t.FitSamples(Xd, y, rf.params.samples(i, rows)); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return err
	}

	rf.estimators_ = trees
	rf.classes_ = trees[0].Classes()
	rf.state.SetDimensions(cols, rows)
	rf.state.SetFitted()
	return nil
}

// PredictProba returns the mean of the trees' class probabilities.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := rf.state.CheckFeatures("RandomForestClassifier.PredictProba", cols); err != nil {
		return nil, err
	}
	sum := mat.NewDense(rows, len(rf.classes_), nil)
	for _, t := range rf.estimators_ {
		p, err := t.PredictProba(X)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, p)
	}
	sum.Scale(1/float64(len(rf.estimators_)), sum)
	return sum, nil
}

// Predict returns the class with the highest mean probability.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return tree.ArgmaxLabels(probas, rf.classes_), nil
}

// Score returns the mean accuracy on (X, y).
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	return accuracyScore(rf, X, y)
}

// Classes returns the sorted class labels seen during Fit.
func (rf *RandomForestClassifier) Classes() []int {
	return append([]int(nil), rf.classes_...)
}

// FeatureImportances returns the mean importance over all trees.
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	imps := make([][]float64, len(rf.estimators_))
	for i, t := range rf.estimators_ {
		imps[i] = t.GetFeatureImportances()
	}
	return meanImportances(imps)
}

// GetParams returns the hyperparameters.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return rf.params.asMap()
}

func (rf *RandomForestClassifier) String() string {
	return fmt.Sprintf("RandomForestClassifier(n_estimators=%d, fitted=%t)", rf.params.nEstimators, rf.state.IsFitted())
}

// RandomForestRegressor averages the predictions of bootstrapped
// regression trees.
type RandomForestRegressor struct {
	state  *model.StateManager
	params forestParams

	estimators_ []*tree.DecisionTreeRegressor
}

// NewRandomForestRegressor creates a forest of 100 trees that consider all
// features at each split.
func NewRandomForestRegressor(opts ...ForestOption) *RandomForestRegressor {
	return &RandomForestRegressor{
		state:  model.NewStateManager(),
		params: newForestParams("all", opts),
	}
}

// Fit grows the trees concurrently.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	if err := rf.params.validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}
	rf.state.Reset()

	Xd := mat.DenseCopyOf(X)
	trees := make([]*tree.DecisionTreeRegressor, rf.params.nEstimators)
	err = parallel.ForEach(len(trees), func(i int) error {
		t := tree.NewDecisionTreeRegressor(rf.params.treeOptions(i, cols)...)
		if err := t.FitSamples(Xd, y, rf.params.samples(i, rows)); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return err
	}

	rf.estimators_ = trees
	rf.state.SetDimensions(cols, rows)
	rf.state.SetFitted()
	return nil
}

// Predict returns the mean prediction of the trees.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := rf.state.CheckFeatures("RandomForestRegressor.Predict", cols); err != nil {
		return nil, err
	}
	sum := mat.NewDense(rows, 1, nil)
	for _, t := range rf.estimators_ {
		p, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, p)
	}
	sum.Scale(1/float64(len(rf.estimators_)), sum)
	return sum, nil
}

// Score returns R² on (X, y).
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	return r2Score(rf, X, y)
}

// FeatureImportances returns the mean importance over all trees.
func (rf *RandomForestRegressor) FeatureImportances() []float64 {
	imps := make([][]float64, len(rf.estimators_))
	for i, t := range rf.estimators_ {
		imps[i] = t.GetFeatureImportances()
	}
	return meanImportances(imps)
}

// GetParams returns the hyperparameters.
func (rf *RandomForestRegressor) GetParams() map[string]interface{} {
	return rf.params.asMap()
}

func (rf *RandomForestRegressor) String() string {
	return fmt.Sprintf("RandomForestRegressor(n_estimators=%d, fitted=%t)", rf.params.nEstimators, rf.state.IsFitted())
}

func meanImportances(imps [][]float64) []float64 {
	if len(imps) == 0 {
		return nil
	}
	out := make([]float64, len(imps[0]))
	for _, imp := range imps {
		for j, v := range imp {
			out[j] += v / float64(len(imps))
		}
	}
	return out
}

func accuracyScore(p model.Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	return metrics.Accuracy(mat.NewVecDense(rows, mat.Col(nil, 0, y)), mat.NewVecDense(rows, mat.Col(nil, 0, pred)))
}

func r2Score(p model.Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	return metrics.R2Score(mat.NewVecDense(rows, mat.Col(nil, 0, y)), mat.NewVecDense(rows, mat.Col(nil, 0, pred)))
}
