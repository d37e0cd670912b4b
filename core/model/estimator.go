package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は n×1 の列ベクトル。
	// 分類器では y はクラス番号 0..k-1 を float64 で保持する。
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict returns an n×1 column of predictions.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is an untrained or trained supervised model. Every catalog
// factory returns a fresh Estimator.
type Estimator interface {
	Fitter
	Predictor
}

// LinearModel は線形モデルのインターフェース
type LinearModel interface {
	// Coefficients は学習された重み（係数）を返す
	Coefficients() []float64
	// Intercept は学習された切片を返す
	Intercept() float64
}
