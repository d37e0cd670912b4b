package tree

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/metrics"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DecisionTreeClassifier は CART による分類木
type DecisionTreeClassifier struct {
	state  *model.StateManager
	params params

	tree_     *fittedTree
	classes_  []int
	nClasses_ int
}

// NewDecisionTreeClassifier creates a classifier with criterion "gini" and
// unlimited depth.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	return &DecisionTreeClassifier{
		state:  model.NewStateManager(),
		params: newParams("gini", opts),
	}
}

// Fit grows the tree on all rows of X.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	rows, _ := X.Dims()
	return dt.FitSamples(X, y, allSamples(rows))
}

// FitSamples grows the tree on the listed rows, which may repeat. The class
// set is taken from all of y so that trees grown on different resamples
// report probabilities over the same columns.
func (dt *DecisionTreeClassifier) FitSamples(X, y mat.Matrix, samples []int) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	if err := dt.params.validate(); err != nil {
		return err
	}
	var crit criterion
	switch dt.params.criterion {
	case "gini":
		crit = criterionGini
	case "entropy":
		crit = criterionEntropy
	default:
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.params.criterion)
	}
	Xd, yRaw, err := checkFitInput("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	rows, cols := Xd.Dims()
	if err := checkSamples("DecisionTreeClassifier.Fit", samples, rows); err != nil {
		return err
	}
	dt.state.Reset()

	classes, encoded := encodeClasses(yRaw)
	b := dt.params.newBuilder(crit, Xd, encoded, len(classes))
	dt.tree_ = b.grow(samples)
	dt.classes_ = classes
	dt.nClasses_ = len(classes)
	dt.state.SetDimensions(cols, len(samples))
	dt.state.SetFitted()
	return nil
}

// PredictProba returns the class distribution of the leaf each row falls in.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := dt.state.CheckFeatures("DecisionTreeClassifier.PredictProba", cols); err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, dt.nClasses_, nil)
	for i, leaf := range applyTree(dt.tree_, X) {
		out.SetRow(i, dt.tree_.nodes[leaf].value)
	}
	return out, nil
}

// Predict returns the majority class of each row's leaf.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return ArgmaxLabels(probas, dt.classes_), nil
}

// Score returns the mean accuracy on (X, y).
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	return metrics.Accuracy(mat.NewVecDense(rows, mat.Col(nil, 0, y)), mat.NewVecDense(rows, mat.Col(nil, 0, pred)))
}

// Classes returns the sorted class labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []int {
	return append([]int(nil), dt.classes_...)
}

// GetFeatureImportances returns the normalized total impurity decrease
// contributed by each feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	if dt.tree_ == nil {
		return nil
	}
	return append([]float64(nil), dt.tree_.importances...)
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.depth
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.nLeaves
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return dt.params.asMap()
}

func (dt *DecisionTreeClassifier) String() string {
	if !dt.state.IsFitted() {
		return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, fitted=false)", dt.params.criterion)
	}
	return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, depth=%d, leaves=%d)",
		dt.params.criterion, dt.tree_.depth, dt.tree_.nLeaves)
}

// encodeClasses maps labels onto 0..k-1 in ascending label order.
func encodeClasses(y []float64) ([]int, []float64) {
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
	encoded := make([]float64, len(y))
	for i, v := range y {
		encoded[i] = float64(index[int(v)])
	}
	return classes, encoded
}

// ArgmaxLabels maps each probability row to the label of its largest
// column. Ties go to the lowest index.
func ArgmaxLabels(probas mat.Matrix, classes []int) *mat.Dense {
	rows, cols := probas.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for k := 1; k < cols; k++ {
			if probas.At(i, k) > probas.At(i, best) {
				best = k
			}
		}
		out.Set(i, 0, float64(classes[best]))
	}
	return out
}
