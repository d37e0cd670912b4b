package tree

import (
	"fmt"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/metrics"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DecisionTreeRegressor is a CART regression tree minimizing squared error.
type DecisionTreeRegressor struct {
	state  *model.StateManager
	params params

	tree_ *fittedTree
}

// NewDecisionTreeRegressor creates a regressor with criterion
// "squared_error" and unlimited depth.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	return &DecisionTreeRegressor{
		state:  model.NewStateManager(),
		params: newParams("squared_error", opts),
	}
}

// Fit grows the tree on all rows of X.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	rows, _ := X.Dims()
	return dt.FitSamples(X, y, allSamples(rows))
}

// FitSamples grows the tree on the listed rows, which may repeat.
func (dt *DecisionTreeRegressor) FitSamples(X, y mat.Matrix, samples []int) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	if err := dt.params.validate(); err != nil {
		return err
	}
	if dt.params.criterion != "squared_error" {
		return errors.NewValidationError("criterion", "must be 'squared_error'", dt.params.criterion)
	}
	Xd, yRaw, err := checkFitInput("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	rows, cols := Xd.Dims()
	if err := checkSamples("DecisionTreeRegressor.Fit", samples, rows); err != nil {
		return err
	}
	if err := errors.CheckValues("DecisionTreeRegressor.Fit", yRaw); err != nil {
		return err
	}
	dt.state.Reset()

	b := dt.params.newBuilder(criterionSquaredError, Xd, yRaw, 0)
	dt.tree_ = b.grow(samples)
	dt.state.SetDimensions(cols, len(samples))
	dt.state.SetFitted()
	return nil
}

// Predict returns the mean target of each row's leaf.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	leaves, err := dt.Apply(X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(leaves), 1, nil)
	for i, leaf := range leaves {
		out.Set(i, 0, dt.tree_.nodes[leaf].value[0])
	}
	return out, nil
}

// Apply returns the id of the leaf each row of X falls in.
func (dt *DecisionTreeRegressor) Apply(X mat.Matrix) ([]int, error) {
	if err := dt.state.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := dt.state.CheckFeatures("DecisionTreeRegressor.Predict", cols); err != nil {
		return nil, err
	}
	return applyTree(dt.tree_, X), nil
}

// NumNodes returns the number of nodes in the fitted tree; leaf ids
// returned by Apply are below this bound.
func (dt *DecisionTreeRegressor) NumNodes() int {
	if dt.tree_ == nil {
		return 0
	}
	return len(dt.tree_.nodes)
}

// Score returns R² on (X, y).
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	return metrics.R2Score(mat.NewVecDense(rows, mat.Col(nil, 0, y)), mat.NewVecDense(rows, mat.Col(nil, 0, pred)))
}

// GetFeatureImportances returns the normalized total variance reduction
// contributed by each feature.
func (dt *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	if dt.tree_ == nil {
		return nil
	}
	return append([]float64(nil), dt.tree_.importances...)
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeRegressor) GetDepth() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.depth
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.nLeaves
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return dt.params.asMap()
}

func (dt *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d, fitted=%t)", dt.params.maxDepth, dt.state.IsFitted())
}
