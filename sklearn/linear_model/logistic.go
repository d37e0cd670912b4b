package linear_model

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/metrics"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is L2-regularized logistic regression. Two classes use
// a single sigmoid model; more classes use a multinomial (softmax) model.
// Weights start at zero and are optimized with L-BFGS, so fitting is
// deterministic.
type LogisticRegression struct {
	state *model.StateManager

	C            float64
	fitIntercept bool
	maxIter      int
	tol          float64

	// coef_ は binary のとき 1 行、multinomial のときクラス数の行を持つ
	coef_      [][]float64
	intercept_ []float64
	classes_   []int
	nIter_     int
}

// LogisticRegressionOption configures a LogisticRegression.
type LogisticRegressionOption func(*LogisticRegression)

// WithLRC sets the inverse regularization strength.
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLRMaxIter sets the maximum number of optimizer iterations.
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the gradient norm tolerance.
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLogisticFitIntercept sets whether to learn an intercept.
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// NewLogisticRegression creates a model with C=1, max_iter=100, tol=1e-4.
func NewLogisticRegression(options ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		C:            1.0,
		fitIntercept: true,
		maxIter:      100,
		tol:          1e-4,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// Fit learns the weights from X and integer class labels y.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LogisticRegression.Fit")

	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", lr.maxIter)
	}
	yVec, err := checkXY("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	rows, cols := X.Dims()
	lr.state.Reset()

	classes := extractClasses(yVec)
	if len(classes) < 2 {
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("needs samples of at least 2 classes, got %d", len(classes)))
	}
	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	labels := make([]int, rows)
	for i := range labels {
		labels[i] = index[int(yVec.AtVec(i))]
	}

	Xd := mat.DenseCopyOf(X)
	nOut := len(classes)
	if nOut == 2 {
		nOut = 1
	}
	problem := lr.problem(Xd, labels, nOut)
	init := make([]float64, nOut*(cols+1))

	result, optErr := optimize.Minimize(problem, init, &optimize.Settings{
		GradientThreshold: lr.tol,
		MajorIterations:   lr.maxIter,
	}, &optimize.LBFGS{})
	if result == nil {
		return errors.NewModelError("LogisticRegression.Fit", "optimize", optErr)
	}
	if result.Status == optimize.IterationLimit {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.maxIter,
			"lbfgs failed to converge; increase max_iter or scale the data"))
	}
	if err := errors.CheckValues("LogisticRegression.Fit", result.X); err != nil {
		return err
	}

	lr.coef_ = make([][]float64, nOut)
	lr.intercept_ = make([]float64, nOut)
	for k := 0; k < nOut; k++ {
		off := k * (cols + 1)
		lr.coef_[k] = append([]float64(nil), result.X[off:off+cols]...)
		lr.intercept_[k] = result.X[off+cols]
	}
	lr.classes_ = classes
	lr.nIter_ = result.MajorIterations
	lr.state.SetDimensions(cols, rows)
	lr.state.SetFitted()
	return nil
}

// problem builds the objective (mean log loss + ||W||²/(2·C·n)) and its
// gradient. Parameters are laid out per output as [w_1..w_p, b].
func (lr *LogisticRegression) problem(X *mat.Dense, labels []int, nOut int) optimize.Problem {
	rows, cols := X.Dims()
	n := float64(rows)
	reg := 1.0 / (lr.C * n)
	stride := cols + 1

	scores := func(params []float64, i int, z []float64) {
		row := X.RawRowView(i)
		for k := 0; k < nOut; k++ {
			w := params[k*stride : k*stride+cols]
			s := 0.0
			if lr.fitIntercept {
				s = params[k*stride+cols]
			}
			for j, xv := range row {
				s += w[j] * xv
			}
			z[k] = s
		}
	}

	penalty := func(params []float64) float64 {
		sum := 0.0
		for k := 0; k < nOut; k++ {
			for _, w := range params[k*stride : k*stride+cols] {
				sum += w * w
			}
		}
		return 0.5 * reg * sum
	}

	// residuals fills r with dLoss/dz for sample i and returns the loss.
	residuals := func(z []float64, label int, r []float64) float64 {
		if nOut == 1 {
			t := float64(label)
			p := sigmoid(z[0])
			r[0] = p - t
			// log(1+exp(-z)) for t=1, log(1+exp(z)) for t=0
			if label == 1 {
				return softplus(-z[0])
			}
			return softplus(z[0])
		}
		lse := errors.LogSumExp(z)
		for k := range z {
			r[k] = math.Exp(z[k] - lse)
		}
		r[label] -= 1
		return lse - z[label]
	}

	return optimize.Problem{
		Func: func(params []float64) float64 {
			z := make([]float64, nOut)
			r := make([]float64, nOut)
			loss := 0.0
			for i := 0; i < rows; i++ {
				scores(params, i, z)
				loss += residuals(z, labels[i], r)
			}
			return loss/n + penalty(params)
		},
		Grad: func(grad, params []float64) {
			for i := range grad {
				grad[i] = 0
			}
			z := make([]float64, nOut)
			r := make([]float64, nOut)
			for i := 0; i < rows; i++ {
				scores(params, i, z)
				residuals(z, labels[i], r)
				row := X.RawRowView(i)
				for k := 0; k < nOut; k++ {
					g := grad[k*stride : (k+1)*stride]
					for j, xv := range row {
						g[j] += r[k] * xv / n
					}
					if lr.fitIntercept {
						g[cols] += r[k] / n
					}
				}
			}
			for k := 0; k < nOut; k++ {
				for j := 0; j < cols; j++ {
					grad[k*stride+j] += reg * params[k*stride+j]
				}
			}
		},
	}
}

// DecisionFunction returns raw scores: n×1 for two classes (positive class
// score), n×k otherwise.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "DecisionFunction"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := lr.state.CheckFeatures("LogisticRegression.DecisionFunction", cols); err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, len(lr.coef_), nil)
	for i := 0; i < rows; i++ {
		for k, w := range lr.coef_ {
			s := lr.intercept_[k]
			for j := 0; j < cols; j++ {
				s += X.At(i, j) * w[j]
			}
			out.Set(i, k, s)
		}
	}
	return out, nil
}

// PredictProba returns class probabilities, one column per class.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	rows, _ := scores.Dims()
	probas := mat.NewDense(rows, len(lr.classes_), nil)
	for i := 0; i < rows; i++ {
		if len(lr.coef_) == 1 {
			p1 := sigmoid(scores.At(i, 0))
			probas.Set(i, 0, 1-p1)
			probas.Set(i, 1, p1)
			continue
		}
		probas.SetRow(i, errors.Softmax(mat.Row(nil, i, scores)))
	}
	return probas, nil
}

// Predict returns the most probable class label per row.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxLabels(probas, lr.classes_), nil
}

// Score returns the mean accuracy on (X, y).
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	return classificationScore(lr, X, y)
}

// Classes returns the sorted class labels seen during Fit.
func (lr *LogisticRegression) Classes() []int {
	return append([]int(nil), lr.classes_...)
}

// NIter returns the optimizer iterations used by the last Fit.
func (lr *LogisticRegression) NIter() int {
	return lr.nIter_
}

// GetParams returns the hyperparameters.
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

func (lr *LogisticRegression) String() string {
	return fmt.Sprintf("LogisticRegression(C=%g, max_iter=%d, fitted=%t)", lr.C, lr.maxIter, lr.state.IsFitted())
}

// extractClasses returns the distinct labels of y in ascending order.
func extractClasses(y *mat.VecDense) []int {
	seen := make(map[int]bool)
	for i := 0; i < y.Len(); i++ {
		seen[int(y.AtVec(i))] = true
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

// argmaxLabels maps each probability row to the label of its largest
// column. Ties go to the lowest index.
func argmaxLabels(probas mat.Matrix, classes []int) *mat.Dense {
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

func classificationScore(p model.Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	return metrics.Accuracy(mat.NewVecDense(rows, mat.Col(nil, 0, y)), mat.NewVecDense(rows, mat.Col(nil, 0, pred)))
}

// sigmoid は数値的に安定なシグモイド関数
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}

// softplus computes log(1+exp(x)) without overflow.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}
