package experiment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigolab/catalog"
	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/dataset"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"github.com/YuminosukeSato/scigolab/preprocessing"
)

// TrainedPipeline is a fitted preprocessing plan plus a fitted estimator.
// It is not modified after Run returns.
type TrainedPipeline struct {
	Kind     catalog.TaskKind
	Features []string

	plan      *preprocessing.ColumnTransformer
	estimator model.Estimator
	classes   []string
}

// NewTrainedPipeline pairs a fitted plan with a fitted estimator. classes
// labels the estimator's class codes and is nil for regression.
func NewTrainedPipeline(kind catalog.TaskKind, features []string, plan *preprocessing.ColumnTransformer, est model.Estimator, classes []string) *TrainedPipeline {
	return &TrainedPipeline{
		Kind:      kind,
		Features:  features,
		plan:      plan,
		estimator: est,
		classes:   classes,
	}
}

// Estimator returns the fitted model.
func (p *TrainedPipeline) Estimator() model.Estimator { return p.estimator }

// Plan returns the fitted column transformer.
func (p *TrainedPipeline) Plan() *preprocessing.ColumnTransformer { return p.plan }

// ClassLabels returns the label of each encoded class, in code order.
// It is nil for regression.
func (p *TrainedPipeline) ClassLabels() []string { return p.classes }

// ScoreClasses returns the class codes that label the columns of
// PredictProba and DecisionFunction. Classes missing from the training
// partition have no column.
func (p *TrainedPipeline) ScoreClasses() []int {
	if c, ok := p.estimator.(model.Classifier); ok {
		return c.Classes()
	}
	return nil
}

func (p *TrainedPipeline) transform(t *dataset.Table) (*mat.Dense, error) {
	X, err := t.Select(p.Features...)
	if err != nil {
		return nil, err
	}
	return p.plan.Transform(X)
}

// Predict returns one prediction per row. For classifiers these are class
// codes indexing ClassLabels.
func (p *TrainedPipeline) Predict(t *dataset.Table) ([]float64, error) {
	X, err := p.transform(t)
	if err != nil {
		return nil, err
	}
	pred, err := p.estimator.Predict(X)
	if err != nil {
		return nil, err
	}
	return column(pred), nil
}

// HasPredictProba reports whether the estimator yields probabilities.
func (p *TrainedPipeline) HasPredictProba() bool {
	_, ok := p.estimator.(model.ProbabilisticClassifier)
	return ok
}

// HasDecisionFunction reports whether the estimator yields raw scores.
func (p *TrainedPipeline) HasDecisionFunction() bool {
	_, ok := p.estimator.(model.DecisionFunctioner)
	return ok
}

// PredictProba returns class probabilities, columns following ScoreClasses.
func (p *TrainedPipeline) PredictProba(t *dataset.Table) (mat.Matrix, error) {
	pc, ok := p.estimator.(model.ProbabilisticClassifier)
	if !ok {
		return nil, errors.NewValueError("PredictProba", fmt.Sprintf("%T has no probability output", p.estimator))
	}
	X, err := p.transform(t)
	if err != nil {
		return nil, err
	}
	return pc.PredictProba(X)
}

// DecisionFunction returns raw scores: n×1 for two classes, otherwise one
// column per entry of ScoreClasses.
func (p *TrainedPipeline) DecisionFunction(t *dataset.Table) (mat.Matrix, error) {
	df, ok := p.estimator.(model.DecisionFunctioner)
	if !ok {
		return nil, errors.NewValueError("DecisionFunction", fmt.Sprintf("%T has no decision function", p.estimator))
	}
	X, err := p.transform(t)
	if err != nil {
		return nil, err
	}
	return df.DecisionFunction(X)
}

// Scores returns the output used for ranking: probabilities when the
// estimator has them, the decision function otherwise.
func (p *TrainedPipeline) Scores(t *dataset.Table) (mat.Matrix, error) {
	switch {
	case p.HasPredictProba():
		return p.PredictProba(t)
	case p.HasDecisionFunction():
		return p.DecisionFunction(t)
	default:
		return nil, errors.NewValueError("Scores", fmt.Sprintf("%T has no score output", p.estimator))
	}
}

func column(m mat.Matrix) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = m.At(i, 0)
	}
	return out
}
