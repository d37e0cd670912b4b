package linear_model

import (
	"math"

	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// checkXY validates the shapes of a training pair and returns y as a vector.
func checkXY(op string, X, y mat.Matrix) (*mat.VecDense, error) {
	if X == nil || y == nil {
		return nil, errors.NewValueError(op, "X and y must not be nil")
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.ErrEmptyData
	}
	yRows, yCols := y.Dims()
	if yRows != rows {
		return nil, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return nil, errors.NewDimensionError(op, 1, yCols, 1)
	}
	vec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		vec.SetVec(i, y.At(i, 0))
	}
	return vec, nil
}

// centerData subtracts column means from X and the mean from y when
// fitIntercept is set. The returned means are zero otherwise.
func centerData(X mat.Matrix, y *mat.VecDense, fitIntercept bool) (*mat.Dense, *mat.VecDense, []float64, float64) {
	rows, cols := X.Dims()
	xMean := make([]float64, cols)
	yMean := 0.0
	Xc := mat.DenseCopyOf(X)
	yc := mat.VecDenseCopyOf(y)
	if !fitIntercept {
		return Xc, yc, xMean, yMean
	}
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += Xc.At(i, j)
		}
		xMean[j] = sum / float64(rows)
	}
	for i := 0; i < rows; i++ {
		yMean += yc.AtVec(i)
	}
	yMean /= float64(rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			Xc.Set(i, j, Xc.At(i, j)-xMean[j])
		}
		yc.SetVec(i, yc.AtVec(i)-yMean)
	}
	return Xc, yc, xMean, yMean
}

// interceptFrom recovers the intercept of a model fitted on centered data.
func interceptFrom(coef, xMean []float64, yMean float64) float64 {
	b := yMean
	for j, w := range coef {
		b -= w * xMean[j]
	}
	return b
}

// predictLinear evaluates X·coef + intercept as an n×1 matrix.
func predictLinear(X mat.Matrix, coef []float64, intercept float64) *mat.Dense {
	rows, cols := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		v := intercept
		for j := 0; j < cols; j++ {
			v += X.At(i, j) * coef[j]
		}
		out.Set(i, 0, v)
	}
	return out
}

// lstsqRank mirrors numpy's default rcond for least squares.
func lstsqRank(svd *mat.SVD, rows, cols int) int {
	rcond := math.Nextafter(1, 2) - 1
	return svd.Rank(rcond * float64(max(rows, cols)))
}
