package linear_model

import (
	"fmt"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Ridge is least squares with an L2 penalty alpha·||w||². The intercept is
// not penalized.
type Ridge struct {
	state *model.StateManager

	alpha        float64
	fitIntercept bool

	coef_      []float64
	intercept_ float64
}

// RidgeOption configures a Ridge model.
type RidgeOption func(*Ridge)

// WithRidgeAlpha sets the regularization strength.
func WithRidgeAlpha(alpha float64) RidgeOption {
	return func(r *Ridge) {
		r.alpha = alpha
	}
}

// WithRidgeFitIntercept sets whether to learn an intercept.
func WithRidgeFitIntercept(fit bool) RidgeOption {
	return func(r *Ridge) {
		r.fitIntercept = fit
	}
}

// NewRidge creates a Ridge model with alpha=1.
func NewRidge(options ...RidgeOption) *Ridge {
	r := &Ridge{
		state:        model.NewStateManager(),
		alpha:        1.0,
		fitIntercept: true,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Fit solves w = V·diag(s/(s²+α))·Uᵀ·y on the centered data.
func (r *Ridge) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Ridge.Fit")

	if r.alpha < 0 {
		return errors.NewValidationError("alpha", "must be non-negative", r.alpha)
	}
	yVec, err := checkXY("Ridge.Fit", X, y)
	if err != nil {
		return err
	}
	rows, cols := X.Dims()
	r.state.Reset()

	Xc, yc, xMean, yMean := centerData(X, yVec, r.fitIntercept)

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return errors.NewModelError("Ridge.Fit", "svd", errors.ErrSingularMatrix)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	// d_k = s_k / (s_k² + α) · (u_kᵀ y)
	d := mat.NewVecDense(len(s), nil)
	for k, sk := range s {
		denom := sk*sk + r.alpha
		if sk <= 0 || denom == 0 {
			continue
		}
		d.SetVec(k, sk/denom*mat.Dot(u.ColView(k), yc))
	}
	coef := mat.NewVecDense(cols, nil)
	coef.MulVec(&v, d)

	r.coef_ = mat.Col(nil, 0, coef)
	r.intercept_ = 0
	if r.fitIntercept {
		r.intercept_ = interceptFrom(r.coef_, xMean, yMean)
	}
	r.state.SetDimensions(cols, rows)
	r.state.SetFitted()
	return nil
}

// Predict returns X·w + b.
func (r *Ridge) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.state.RequireFitted("Ridge", "Predict"); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := r.state.CheckFeatures("Ridge.Predict", cols); err != nil {
		return nil, err
	}
	return predictLinear(X, r.coef_, r.intercept_), nil
}

// Score returns R² on (X, y).
func (r *Ridge) Score(X, y mat.Matrix) (float64, error) {
	return regressionScore(r, X, y)
}

// Coefficients returns a copy of the learned weights.
func (r *Ridge) Coefficients() []float64 {
	return append([]float64(nil), r.coef_...)
}

// Intercept returns the learned intercept.
func (r *Ridge) Intercept() float64 {
	return r.intercept_
}

// GetParams returns the hyperparameters.
func (r *Ridge) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"alpha":         r.alpha,
		"fit_intercept": r.fitIntercept,
	}
}

func (r *Ridge) String() string {
	return fmt.Sprintf("Ridge(alpha=%g, fitted=%t)", r.alpha, r.state.IsFitted())
}
