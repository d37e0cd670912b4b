// Package model defines the estimator contracts shared by every algorithm
// in the catalog and the experiment pipeline that drives them.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that can compute their default score
// (R² for regressors, accuracy for classifiers).
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// Regressor combines interfaces for regression models.
type Regressor interface {
	Estimator
	Scorer
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator
	Scorer

	// Classes returns the sorted class indices seen during fitting.
	Classes() []int
}

// ProbabilisticClassifier can report per-class probabilities. Columns of
// the returned n×k matrix follow Classes().
type ProbabilisticClassifier interface {
	Classifier
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// DecisionFunctioner exposes raw confidence scores. For two classes the
// result is n×1 (positive means Classes()[1]); otherwise n×k.
type DecisionFunctioner interface {
	DecisionFunction(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	GetParams() map[string]interface{}
}
