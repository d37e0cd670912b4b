package ensemble

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"github.com/YuminosukeSato/scigolab/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

// boostParams holds the hyperparameters shared by both boosting estimators.
type boostParams struct {
	nEstimators    int
	learningRate   float64
	maxDepth       int
	minSamplesLeaf int
	randomState    int64
}

// BoostingOption configures a gradient boosting estimator.
type BoostingOption func(*boostParams)

// WithBoostingNEstimators sets the number of boosting stages.
func WithBoostingNEstimators(n int) BoostingOption {
	return func(p *boostParams) {
		p.nEstimators = n
	}
}

// WithLearningRate sets the shrinkage applied to each stage.
func WithLearningRate(lr float64) BoostingOption {
	return func(p *boostParams) {
		p.learningRate = lr
	}
}

// WithBoostingMaxDepth sets the depth of each stage's tree.
func WithBoostingMaxDepth(depth int) BoostingOption {
	return func(p *boostParams) {
		p.maxDepth = depth
	}
}

// WithBoostingRandomState seeds the feature permutation of each tree.
func WithBoostingRandomState(seed int64) BoostingOption {
	return func(p *boostParams) {
		p.randomState = seed
	}
}

func newBoostParams(opts []BoostingOption) boostParams {
	p := boostParams{
		nEstimators:    100,
		learningRate:   0.1,
		maxDepth:       3,
		minSamplesLeaf: 1,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func (p boostParams) validate() error {
	if p.nEstimators <= 0 {
		return errors.NewValidationError("n_estimators", "must be positive", p.nEstimators)
	}
	if p.learningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", p.learningRate)
	}
	if p.maxDepth <= 0 {
		return errors.NewValidationError("max_depth", "must be positive", p.maxDepth)
	}
	return nil
}

func (p boostParams) newTree() *tree.DecisionTreeRegressor {
	return tree.NewDecisionTreeRegressor(
		tree.WithMaxDepth(p.maxDepth),
		tree.WithMinSamplesLeaf(p.minSamplesLeaf),
		tree.WithRandomState(p.randomState),
	)
}

func (p boostParams) asMap() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":  p.nEstimators,
		"learning_rate": p.learningRate,
		"max_depth":     p.maxDepth,
		"random_state":  p.randomState,
	}
}

// stage is one fitted tree together with the value assigned to each of
// its leaves. A nil leafValues means the tree's own predictions are used.
type stage struct {
	tree       *tree.DecisionTreeRegressor
	leafValues []float64
}

func (s stage) predict(X mat.Matrix) ([]float64, error) {
	if s.leafValues == nil {
		pred, err := s.tree.Predict(X)
		if err != nil {
			return nil, err
		}
		return mat.Col(nil, 0, pred), nil
	}
	leaves, err := s.tree.Apply(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(leaves))
	for i, l := range leaves {
		out[i] = s.leafValues[l]
	}
	return out, nil
}

// GradientBoostingRegressor fits regression trees to the residuals of the
// running prediction under squared loss.
type GradientBoostingRegressor struct {
	state  *model.StateManager
	params boostParams

	init_   float64
	stages_ []stage
}

// NewGradientBoostingRegressor creates a model with 100 stages, learning
// rate 0.1 and depth-3 trees.
func NewGradientBoostingRegressor(opts ...BoostingOption) *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		state:  model.NewStateManager(),
		params: newBoostParams(opts),
	}
}

// Fit starts from the mean of y and adds one tree per stage.
func (gb *GradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")

	if err := gb.params.validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", rows, yRows, 0)
	}
	gb.state.Reset()

	yv := mat.Col(nil, 0, y)
	init := 0.0
	for _, v := range yv {
		init += v
	}
	init /= float64(rows)

	F := make([]float64, rows)
	for i := range F {
		F[i] = init
	}
	residual := mat.NewDense(rows, 1, nil)
	stages := make([]stage, 0, gb.params.nEstimators)
	for m := 0; m < gb.params.nEstimators; m++ {
		for i := range F {
			residual.Set(i, 0, yv[i]-F[i])
		}
		t := gb.params.newTree()
		if err := t.Fit(X, residual); err != nil {
			return errors.Wrapf(err, "stage %d", m)
		}
		s := stage{tree: t}
		update, err := s.predict(X)
		if err != nil {
			return err
		}
		for i := range F {
			F[i] += gb.params.learningRate * update[i]
		}
		stages = append(stages, s)
	}

	gb.init_ = init
	gb.stages_ = stages
	gb.state.SetDimensions(cols, rows)
	gb.state.SetFitted()
	return nil
}

// Predict returns init + learning_rate · Σ stage predictions.
func (gb *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := gb.state.RequireFitted("GradientBoostingRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := gb.state.CheckFeatures("GradientBoostingRegressor.Predict", cols); err != nil {
		return nil, err
	}
	F := make([]float64, rows)
	for i := range F {
		F[i] = gb.init_
	}
	for _, s := range gb.stages_ {
		update, err := s.predict(X)
		if err != nil {
			return nil, err
		}
		for i := range F {
			F[i] += gb.params.learningRate * update[i]
		}
	}
	return mat.NewDense(rows, 1, F), nil
}

// Score returns R² on (X, y).
func (gb *GradientBoostingRegressor) Score(X, y mat.Matrix) (float64, error) {
	return r2Score(gb, X, y)
}

// GetParams returns the hyperparameters.
func (gb *GradientBoostingRegressor) GetParams() map[string]interface{} {
	return gb.params.asMap()
}

func (gb *GradientBoostingRegressor) String() string {
	return fmt.Sprintf("GradientBoostingRegressor(n_estimators=%d, learning_rate=%g, fitted=%t)",
		gb.params.nEstimators, gb.params.learningRate, gb.state.IsFitted())
}

// GradientBoostingClassifier boosts regression trees under log loss. Two
// classes share a single score column; k classes fit one tree per class
// per stage. Leaf values take a single Newton step.
type GradientBoostingClassifier struct {
	state  *model.StateManager
	params boostParams

	classes_ []int
	init_    []float64
	// stages_[m][k] is the tree for score column k at stage m
	stages_ [][]stage
}

// NewGradientBoostingClassifier creates a model with 100 stages, learning
// rate 0.1 and depth-3 trees.
func NewGradientBoostingClassifier(opts ...BoostingOption) *GradientBoostingClassifier {
	return &GradientBoostingClassifier{
		state:  model.NewStateManager(),
		params: newBoostParams(opts),
	}
}

// Fit runs the boosting stages.
func (gb *GradientBoostingClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingClassifier.Fit")

	if err := gb.params.validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("GradientBoostingClassifier.Fit", rows, yRows, 0)
	}
	gb.state.Reset()

	classes, labels := encodeLabels(mat.Col(nil, 0, y))
	if len(classes) < 2 {
		return errors.NewValueError("GradientBoostingClassifier.Fit",
			fmt.Sprintf("needs samples of at least 2 classes, got %d", len(classes)))
	}
	K := len(classes)
	nCols := K
	if K == 2 {
		nCols = 1
	}

	prior := make([]float64, K)
	for _, l := range labels {
		prior[l] += 1 / float64(rows)
	}
	init := make([]float64, nCols)
	if K == 2 {
		init[0] = math.Log(prior[1] / prior[0])
	} else {
		for k := range init {
			init[k] = math.Log(math.Max(prior[k], 1e-300))
		}
	}

	F := mat.NewDense(rows, nCols, nil)
	for i := 0; i < rows; i++ {
		F.SetRow(i, init)
	}

	residual := mat.NewDense(rows, 1, nil)
	stages := make([][]stage, 0, gb.params.nEstimators)
	for m := 0; m < gb.params.nEstimators; m++ {
		probs := scoresToProba(F, K)
		row := make([]stage, nCols)
		for k := 0; k < nCols; k++ {
			target := k
			if K == 2 {
				target = 1
			}
			for i := 0; i < rows; i++ {
				indicator := 0.0
				if labels[i] == target {
					indicator = 1
				}
				residual.Set(i, 0, indicator-probs.At(i, target))
			}
			t := gb.params.newTree()
			if err := t.Fit(X, residual); err != nil {
				return errors.Wrapf(err, "stage %d class %d", m, k)
			}
			leaves, err := t.Apply(X)
			if err != nil {
				return err
			}
			s := stage{tree: t, leafValues: newtonLeafValues(leaves, residual, t.NumNodes(), K)}
			for i, l := range leaves {
				F.Set(i, k, F.At(i, k)+gb.params.learningRate*s.leafValues[l])
			}
			row[k] = s
		}
		stages = append(stages, row)
	}

	gb.classes_ = classes
	gb.init_ = init
	gb.stages_ = stages
	gb.state.SetDimensions(cols, rows)
	gb.state.SetFitted()
	return nil
}

// newtonLeafValues computes Σr / Σ|r|(1-|r|) per leaf, scaled by (K-1)/K
// for more than two classes.
func newtonLeafValues(leaves []int, residual *mat.Dense, nNodes, K int) []float64 {
	num := make([]float64, nNodes)
	den := make([]float64, nNodes)
	for i, l := range leaves {
		r := residual.At(i, 0)
		num[l] += r
		den[l] += math.Abs(r) * (1 - math.Abs(r))
	}
	scale := 1.0
	if K > 2 {
		scale = float64(K-1) / float64(K)
	}
	values := make([]float64, nNodes)
	for l := range values {
		if math.Abs(den[l]) < 1e-150 {
			continue
		}
		values[l] = scale * num[l] / den[l]
	}
	return values
}

// DecisionFunction returns the raw boosted scores: n×1 for two classes,
// n×k otherwise.
func (gb *GradientBoostingClassifier) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := gb.state.RequireFitted("GradientBoostingClassifier", "DecisionFunction"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := gb.state.CheckFeatures("GradientBoostingClassifier.DecisionFunction", cols); err != nil {
		return nil, err
	}
	F := mat.NewDense(rows, len(gb.init_), nil)
	for i := 0; i < rows; i++ {
		F.SetRow(i, gb.init_)
	}
	for _, row := range gb.stages_ {
		for k, s := range row {
			update, err := s.predict(X)
			if err != nil {
				return nil, err
			}
			for i := 0; i < rows; i++ {
				F.Set(i, k, F.At(i, k)+gb.params.learningRate*update[i])
			}
		}
	}
	return F, nil
}

// PredictProba converts the boosted scores to class probabilities.
func (gb *GradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	F, err := gb.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return scoresToProba(F.(*mat.Dense), len(gb.classes_)), nil
}

// Predict returns the most probable class label per row.
func (gb *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := gb.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return tree.ArgmaxLabels(probas, gb.classes_), nil
}

// Score returns the mean accuracy on (X, y).
func (gb *GradientBoostingClassifier) Score(X, y mat.Matrix) (float64, error) {
	return accuracyScore(gb, X, y)
}

// Classes returns the sorted class labels seen during Fit.
func (gb *GradientBoostingClassifier) Classes() []int {
	return append([]int(nil), gb.classes_...)
}

// GetParams returns the hyperparameters.
func (gb *GradientBoostingClassifier) GetParams() map[string]interface{} {
	return gb.params.asMap()
}

func (gb *GradientBoostingClassifier) String() string {
	return fmt.Sprintf("GradientBoostingClassifier(n_estimators=%d, learning_rate=%g, fitted=%t)",
		gb.params.nEstimators, gb.params.learningRate, gb.state.IsFitted())
}

// scoresToProba applies the sigmoid to a single score column or the
// softmax across K columns.
func scoresToProba(F *mat.Dense, K int) *mat.Dense {
	rows, nCols := F.Dims()
	out := mat.NewDense(rows, K, nil)
	for i := 0; i < rows; i++ {
		if nCols == 1 {
			p := 1 / (1 + math.Exp(-F.At(i, 0)))
			out.Set(i, 0, 1-p)
			out.Set(i, 1, p)
			continue
		}
		out.SetRow(i, errors.Softmax(F.RawRowView(i)))
	}
	return out
}

// encodeLabels maps labels onto 0..k-1 in ascending order.
func encodeLabels(y []float64) ([]int, []int) {
	seen := make(map[int]bool)
	for _, v := range y {
		seen[int(v)] = true
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	labels := make([]int, len(y))
	for i, v := range y {
		labels[i] = index[int(v)]
	}
	return classes, labels
}
