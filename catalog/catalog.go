// Package catalog is the closed table of algorithms an experiment can run.
// The table is built once at package initialization and never modified;
// each lookup hands out a fresh, untrained estimator.
package catalog

import (
	"sort"

	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"github.com/YuminosukeSato/scigolab/sklearn/ensemble"
	"github.com/YuminosukeSato/scigolab/sklearn/linear_model"
	"github.com/YuminosukeSato/scigolab/sklearn/neighbors"
	"github.com/YuminosukeSato/scigolab/sklearn/svm"
	"github.com/YuminosukeSato/scigolab/sklearn/tree"
)

// DefaultSeed is passed to every randomized estimator.
const DefaultSeed int64 = 42

// TaskKind distinguishes regression from classification.
type TaskKind int

const (
	Regression TaskKind = iota
	Classification
)

func (k TaskKind) String() string {
	switch k {
	case Regression:
		return "regression"
	case Classification:
		return "classification"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its name.
func (k TaskKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes "regression" or "classification".
func (k *TaskKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "regression":
		*k = Regression
	case "classification":
		*k = Classification
	default:
		return errors.NewValidationError("task_kind", "unknown task kind", string(b))
	}
	return nil
}

// Factory builds an untrained estimator. seed feeds estimators with a
// random component and is ignored by the rest.
type Factory func(seed int64) model.Estimator

// AlgorithmDescriptor describes one catalog entry.
type AlgorithmDescriptor struct {
	ID          string
	Kind        TaskKind
	Description string
	BestFor     string

	factory Factory
}

// NewModel returns a fresh untrained estimator seeded with DefaultSeed.
func (d AlgorithmDescriptor) NewModel() model.Estimator {
	return d.factory(DefaultSeed)
}

// NewModelWithSeed returns a fresh untrained estimator using seed.
func (d AlgorithmDescriptor) NewModelWithSeed(seed int64) model.Estimator {
	return d.factory(seed)
}

// Groups lists the catalog split by task kind, each sorted by id.
type Groups struct {
	Classification []AlgorithmDescriptor
	Regression     []AlgorithmDescriptor
}

var entries = buildEntries()

func buildEntries() map[string]AlgorithmDescriptor {
	list := []AlgorithmDescriptor{
		{
			ID:          "linear_regression",
			Kind:        Regression,
			Description: "Fits a straight line to predict a continuous numeric target.",
			BestFor:     "Continuous numeric datasets with linear relationships.",
			factory: func(int64) model.Estimator {
				return linear_model.NewLinearRegression()
			},
		},
		{
			ID:          "ridge_regression",
			Kind:        Regression,
			Description: "Linear regression with L2 regularization to reduce overfitting.",
			BestFor:     "Numeric datasets with many correlated features or risk of overfitting.",
			factory: func(int64) model.Estimator {
				return linear_model.NewRidge(linear_model.WithRidgeAlpha(1.0))
			},
		},
		{
			ID:          "lasso_regression",
			Kind:        Regression,
			Description: "Linear regression with L1 regularization to perform feature selection.",
			BestFor:     "Sparse datasets where you want to eliminate irrelevant features.",
			factory: func(int64) model.Estimator {
				return linear_model.NewLasso(linear_model.WithLassoAlpha(1.0))
			},
		},
		{
			ID:          "random_forest_regressor",
			Kind:        Regression,
			Description: "Ensemble of decision trees for robust predictions.",
			BestFor:     "Large datasets with non-linear relationships.",
			factory: func(seed int64) model.Estimator {
				return ensemble.NewRandomForestRegressor(
					ensemble.WithNEstimators(100),
					ensemble.WithForestRandomState(seed),
				)
			},
		},
		{
			ID:          "gradient_boosting_regressor",
			Kind:        Regression,
			Description: "Boosting method that combines weak learners to create strong models.",
			BestFor:     "Complex non-linear regression problems where accuracy is key.",
			factory: func(seed int64) model.Estimator {
				return ensemble.NewGradientBoostingRegressor(
					ensemble.WithBoostingNEstimators(100),
					ensemble.WithLearningRate(0.1),
					ensemble.WithBoostingMaxDepth(3),
					ensemble.WithBoostingRandomState(seed),
				)
			},
		},
		{
			ID:          "decision_tree_regressor",
			Kind:        Regression,
			Description: "Single decision tree model for regression tasks.",
			BestFor:     "Simple datasets where interpretability is important.",
			factory: func(seed int64) model.Estimator {
				return tree.NewDecisionTreeRegressor(tree.WithRandomState(seed))
			},
		},
		{
			ID:          "logistic_regression",
			Kind:        Classification,
			Description: "Predicts probability of a binary class using a logistic function.",
			BestFor:     "Binary classification datasets (yes/no, spam/ham, etc.).",
			factory: func(int64) model.Estimator {
				return linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(1000))
			},
		},
		{
			ID:          "random_forest_classifier",
			Kind:        Classification,
			Description: "Ensemble of trees for multi-class classification.",
			BestFor:     "Categorical targets with many classes or noisy data.",
			factory: func(seed int64) model.Estimator {
				return ensemble.NewRandomForestClassifier(
					ensemble.WithNEstimators(100),
					ensemble.WithForestRandomState(seed),
				)
			},
		},
		{
			ID:          "gradient_boosting_classifier",
			Kind:        Classification,
			Description: "Boosting method for classification tasks that focuses on hard-to-classify samples.",
			BestFor:     "Complex classification problems where accuracy is critical.",
			factory: func(seed int64) model.Estimator {
				return ensemble.NewGradientBoostingClassifier(ensemble.WithBoostingRandomState(seed))
			},
		},
		{
			ID:          "decision_tree_classifier",
			Kind:        Classification,
			Description: "Single decision tree model for classification tasks.",
			BestFor:     "Small datasets or when model interpretability is key.",
			factory: func(seed int64) model.Estimator {
				return tree.NewDecisionTreeClassifier(tree.WithRandomState(seed))
			},
		},
		{
			ID:          "svm_classifier",
			Kind:        Classification,
			Description: "Finds best hyperplane to separate classes in feature space.",
			BestFor:     "Small/medium datasets with clear class boundaries.",
			factory: func(int64) model.Estimator {
				return svm.NewSVC()
			},
		},
		{
			ID:          "knn_classifier",
			Kind:        Classification,
			Description: "Predicts class based on the majority of nearest neighbors.",
			BestFor:     "Small datasets where decision boundaries are irregular.",
			factory: func(int64) model.Estimator {
				return neighbors.NewKNeighborsClassifier(neighbors.WithNNeighbors(5))
			},
		},
	}
	m := make(map[string]AlgorithmDescriptor, len(list))
	for _, d := range list {
		m[d.ID] = d
	}
	return m
}

// Resolve looks up an algorithm by id.
func Resolve(id string) (AlgorithmDescriptor, error) {
	d, ok := entries[id]
	if !ok {
		return AlgorithmDescriptor{}, errors.NewValidationError("algorithm", "unsupported algorithm", id)
	}
	return d, nil
}

// All returns every entry sorted by id.
func All() []AlgorithmDescriptor {
	out := make([]AlgorithmDescriptor, 0, len(entries))
	for _, d := range entries {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// List returns the entries grouped by task kind.
func List() Groups {
	var g Groups
	for _, d := range All() {
		if d.Kind == Classification {
			g.Classification = append(g.Classification, d)
		} else {
			g.Regression = append(g.Regression, d)
		}
	}
	return g
}
