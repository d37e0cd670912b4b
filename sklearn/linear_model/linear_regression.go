package linear_model

import (
	"fmt"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/metrics"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares solved through a thin SVD,
// so rank-deficient designs (e.g. a full one-hot block next to an
// intercept) still produce the minimum-norm solution.
type LinearRegression struct {
	state *model.StateManager

	fitIntercept bool

	coef_      []float64
	intercept_ float64
	rank_      int
}

// LinearRegressionOption configures a LinearRegression.
type LinearRegressionOption func(*LinearRegression)

// WithLRFitIntercept は切片を学習するかどうかを設定
func WithLRFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{
		state:        model.NewStateManager(),
		fitIntercept: true,
	}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")

	yVec, err := checkXY("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}
	rows, cols := X.Dims()
	lr.state.Reset()

	Xc, yc, xMean, yMean := centerData(X, yVec, lr.fitIntercept)

	var svd mat.SVD
	if ok := svd.Factorize(Xc, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "svd", errors.ErrSingularMatrix)
	}
	rank := lstsqRank(&svd, rows, cols)
	coef := mat.NewDense(cols, 1, nil)
	if rank > 0 {
		svd.SolveTo(coef, yc, rank)
	}

	lr.coef_ = mat.Col(nil, 0, coef)
	lr.intercept_ = 0
	if lr.fitIntercept {
		lr.intercept_ = interceptFrom(lr.coef_, xMean, yMean)
	}
	lr.rank_ = rank
	lr.state.SetDimensions(cols, rows)
	lr.state.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	_, cols := X.Dims()
	if err := lr.state.CheckFeatures("LinearRegression.Predict", cols); err != nil {
		return nil, err
	}
	return predictLinear(X, lr.coef_, lr.intercept_), nil
}

// Score returns the coefficient of determination on (X, y).
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	return regressionScore(lr, X, y)
}

// Coefficients returns a copy of the learned weights.
func (lr *LinearRegression) Coefficients() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept returns the learned intercept.
func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept_
}

// Rank returns the effective rank of the centered design matrix.
func (lr *LinearRegression) Rank() int {
	return lr.rank_
}

// IsFitted reports whether Fit has completed.
func (lr *LinearRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// GetParams returns the hyperparameters.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"fit_intercept": lr.fitIntercept,
	}
}

// String returns a string representation of the model.
func (lr *LinearRegression) String() string {
	if !lr.state.IsFitted() {
		return "LinearRegression(fitted=false)"
	}
	nFeatures, nSamples := lr.state.GetDimensions()
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, n_samples=%d)",
		lr.fitIntercept, nFeatures, nSamples)
}

// regressionScore computes R² for any predictor.
func regressionScore(p model.Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	yTrue := mat.NewVecDense(rows, mat.Col(nil, 0, y))
	yPred := mat.NewVecDense(rows, mat.Col(nil, 0, pred))
	return metrics.R2Score(yTrue, yPred)
}
