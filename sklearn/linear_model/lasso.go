package linear_model

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Lasso minimizes (1/2n)·||y - Xw - b||² + alpha·||w||₁ by cyclic
// coordinate descent starting from w = 0.
type Lasso struct {
	state *model.StateManager

	alpha        float64
	fitIntercept bool
	maxIter      int
	tol          float64

	coef_      []float64
	intercept_ float64
	nIter_     int
}

// LassoOption configures a Lasso model.
type LassoOption func(*Lasso)

// WithLassoAlpha sets the L1 regularization strength.
func WithLassoAlpha(alpha float64) LassoOption {
	return func(l *Lasso) {
		l.alpha = alpha
	}
}

// WithLassoMaxIter sets the maximum number of coordinate sweeps.
func WithLassoMaxIter(maxIter int) LassoOption {
	return func(l *Lasso) {
		l.maxIter = maxIter
	}
}

// WithLassoTol sets the convergence tolerance on the largest weight update.
func WithLassoTol(tol float64) LassoOption {
	return func(l *Lasso) {
		l.tol = tol
	}
}

// NewLasso creates a Lasso model with alpha=1, max_iter=1000, tol=1e-4.
func NewLasso(options ...LassoOption) *Lasso {
	l := &Lasso{
		state:        model.NewStateManager(),
		alpha:        1.0,
		fitIntercept: true,
		maxIter:      1000,
		tol:          1e-4,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Fit runs coordinate descent on the centered data.
func (l *Lasso) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Lasso.Fit")

	if l.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", l.alpha)
	}
	if l.maxIter <= 0 {
		return errors.NewValidationError("max_iter", "must be positive", l.maxIter)
	}
	yVec, err := checkXY("Lasso.Fit", X, y)
	if err != nil {
		return err
	}
	rows, cols := X.Dims()
	l.state.Reset()

	Xc, yc, xMean, yMean := centerData(X, yVec, l.fitIntercept)
	n := float64(rows)

	colNorm := make([]float64, cols)
	for j := 0; j < cols; j++ {
		c := Xc.ColView(j)
		colNorm[j] = mat.Dot(c, c)
	}

	w := make([]float64, cols)
	residual := mat.VecDenseCopyOf(yc)
	threshold := l.alpha * n

	var yScale float64
	for i := 0; i < rows; i++ {
		yScale = math.Max(yScale, math.Abs(yc.AtVec(i)))
	}
	tol := l.tol * math.Max(yScale, 1e-12)

	converged := false
	iter := 0
	for iter = 1; iter <= l.maxIter; iter++ {
		maxDelta, maxW := 0.0, 0.0
		for j := 0; j < cols; j++ {
			if colNorm[j] == 0 {
				continue
			}
			old := w[j]
			col := Xc.ColView(j)
			// rho = x_jᵀ (r + x_j w_j)
			rho := mat.Dot(col, residual) + colNorm[j]*old
			updated := softThreshold(rho, threshold) / colNorm[j]
			if updated != old {
				residual.AddScaledVec(residual, old-updated, col)
				w[j] = updated
			}
			maxDelta = math.Max(maxDelta, math.Abs(updated-old))
			maxW = math.Max(maxW, math.Abs(updated))
		}
		if maxW == 0 || maxDelta <= tol {
			converged = true
			break
		}
	}
	if !converged {
		iter = l.maxIter
		errors.Warn(errors.NewConvergenceWarning("Lasso", l.maxIter,
			"coordinate descent did not converge; consider increasing max_iter"))
	}

	l.coef_ = w
	l.intercept_ = 0
	if l.fitIntercept {
		l.intercept_ = interceptFrom(w, xMean, yMean)
	}
	l.nIter_ = iter
	l.state.SetDimensions(cols, rows)
	l.state.SetFitted()
	return nil
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}

// Predict returns X·w + b.
func (l *Lasso) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := l.state.RequireFitted("Lasso", "Predict"); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := l.state.CheckFeatures("Lasso.Predict", cols); err != nil {
		return nil, err
	}
	return predictLinear(X, l.coef_, l.intercept_), nil
}

// Score returns R² on (X, y).
func (l *Lasso) Score(X, y mat.Matrix) (float64, error) {
	return regressionScore(l, X, y)
}

// Coefficients returns a copy of the learned weights.
func (l *Lasso) Coefficients() []float64 {
	return append([]float64(nil), l.coef_...)
}

// Intercept returns the learned intercept.
func (l *Lasso) Intercept() float64 {
	return l.intercept_
}

// NIter returns the number of sweeps run by the last Fit.
func (l *Lasso) NIter() int {
	return l.nIter_
}

// GetParams returns the hyperparameters.
func (l *Lasso) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         l.alpha,
		"fit_intercept": l.fitIntercept,
		"max_iter":      l.maxIter,
		"tol":           l.tol,
	}
}

func (l *Lasso) String() string {
	return fmt.Sprintf("Lasso(alpha=%g, max_iter=%d, fitted=%t)", l.alpha, l.maxIter, l.state.IsFitted())
}
