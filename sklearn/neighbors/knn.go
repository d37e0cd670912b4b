// Package neighbors provides a k-nearest-neighbors classifier.
package neighbors

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/metrics"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KNeighborsClassifier votes among the k nearest training rows under the
// Euclidean distance with uniform weights.
type KNeighborsClassifier struct {
	state *model.StateManager

	nNeighbors int

	X_       *mat.Dense
	labels_  []int
	classes_ []int
}

// Option configures a KNeighborsClassifier.
type Option func(*KNeighborsClassifier)

// WithNNeighbors sets k.
func WithNNeighbors(k int) Option {
	return func(c *KNeighborsClassifier) {
		c.nNeighbors = k
	}
}

// NewKNeighborsClassifier creates a classifier with k=5.
func NewKNeighborsClassifier(opts ...Option) *KNeighborsClassifier {
	c := &KNeighborsClassifier{
		state:      model.NewStateManager(),
		nNeighbors: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fit stores the training rows.
func (c *KNeighborsClassifier) Fit(X, y mat.Matrix) error {
	if c.nNeighbors <= 0 {
		return errors.NewValidationError("n_neighbors", "must be positive", c.nNeighbors)
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("KNeighborsClassifier.Fit", rows, yRows, 0)
	}
	c.state.Reset()

	yv := mat.Col(nil, 0, y)
	seen := make(map[int]bool)
	for _, v := range yv {
		seen[int(v)] = true
	}
	classes := make([]int, 0, len(seen))
	for k := range seen {
		classes = append(classes, k)
	}
	sort.Ints(classes)
	index := make(map[int]int, len(classes))
	for i, k := range classes {
		index[k] = i
	}
	labels := make([]int, rows)
	for i, v := range yv {
		labels[i] = index[int(v)]
	}

	c.X_ = mat.DenseCopyOf(X)
	c.labels_ = labels
	c.classes_ = classes
	c.state.SetDimensions(cols, rows)
	c.state.SetFitted()
	return nil
}

// KNeighbors returns, for each row of X, the indices of its k nearest
// training rows ordered by distance. Equal distances keep training order.
func (c *KNeighborsClassifier) KNeighbors(X mat.Matrix) ([][]int, error) {
	if err := c.state.RequireFitted("KNeighborsClassifier", "KNeighbors"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := c.state.CheckFeatures("KNeighborsClassifier.KNeighbors", cols); err != nil {
		return nil, err
	}
	nTrain, _ := c.X_.Dims()
	if c.nNeighbors > nTrain {
		return nil, errors.NewValueError("KNeighborsClassifier.KNeighbors",
			fmt.Sprintf("expected n_neighbors <= n_samples_fit, but n_neighbors = %d, n_samples_fit = %d", c.nNeighbors, nTrain))
	}

	out := make([][]int, rows)
	x := make([]float64, cols)
	dist := make([]float64, nTrain)
	for i := 0; i < rows; i++ {
		mat.Row(x, i, X)
		order := make([]int, nTrain)
		for j := 0; j < nTrain; j++ {
			order[j] = j
			dist[j] = floats.Distance(x, c.X_.RawRowView(j), 2)
		}
		sort.SliceStable(order, func(a, b int) bool {
			return dist[order[a]] < dist[order[b]]
		})
		out[i] = order[:c.nNeighbors]
	}
	return out, nil
}

// PredictProba returns the fraction of the k neighbors in each class.
func (c *KNeighborsClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	neighbors, err := c.KNeighbors(X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(neighbors), len(c.classes_), nil)
	for i, nb := range neighbors {
		for _, j := range nb {
			l := c.labels_[j]
			out.Set(i, l, out.At(i, l)+1/float64(len(nb)))
		}
	}
	return out, nil
}

// Predict returns the majority class among the neighbors. Ties go to the
// smaller label.
func (c *KNeighborsClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, cols := probas.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		best := 0
		for k := 1; k < cols; k++ {
			if probas.At(i, k) > probas.At(i, best) {
				best = k
			}
		}
		out.Set(i, 0, float64(c.classes_[best]))
	}
	return out, nil
}

// Score returns the mean accuracy on (X, y).
func (c *KNeighborsClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	return metrics.Accuracy(mat.NewVecDense(rows, mat.Col(nil, 0, y)), mat.NewVecDense(rows, mat.Col(nil, 0, pred)))
}

// Classes returns the sorted class labels seen during Fit.
func (c *KNeighborsClassifier) Classes() []int {
	return append([]int(nil), c.classes_...)
}

// GetParams returns the hyperparameters.
func (c *KNeighborsClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors": c.nNeighbors,
		"weights":     "uniform",
		"metric":      "euclidean",
	}
}

func (c *KNeighborsClassifier) String() string {
	return fmt.Sprintf("KNeighborsClassifier(n_neighbors=%d, fitted=%t)", c.nNeighbors, c.state.IsFitted())
}
