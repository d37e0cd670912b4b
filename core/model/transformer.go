package model

import "gonum.org/v1/gonum/mat"

// Transformer is a fitted column-wise transform on a dense matrix, such as
// the numeric scaling step of the preprocessing plan.
type Transformer interface {
	// Fit は変換パラメータを学習する
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
