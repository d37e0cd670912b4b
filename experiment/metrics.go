package experiment

import (
	"github.com/YuminosukeSato/scigolab/catalog"
	"github.com/YuminosukeSato/scigolab/metrics"
	"gonum.org/v1/gonum/mat"
)

// Metric names.
const (
	MetricRMSE      = "rmse"
	MetricR2        = "r2"
	MetricAccuracy  = "accuracy"
	MetricPrecision = "precision"
	MetricRecall    = "recall"
	MetricF1        = "f1"
)

var (
	regressionMetrics     = []string{MetricRMSE, MetricR2}
	classificationMetrics = []string{MetricAccuracy, MetricPrecision, MetricRecall, MetricF1}
)

// MetricBundle is the set of evaluation scores of one run.
type MetricBundle struct {
	Task   catalog.TaskKind   `json:"task" msgpack:"task"`
	Values map[string]float64 `json:"values" msgpack:"values"`
}

// Names returns the metric names in display order.
func (b MetricBundle) Names() []string {
	if b.Task == catalog.Classification {
		return classificationMetrics
	}
	return regressionMetrics
}

// Get returns the named value.
func (b MetricBundle) Get(name string) (float64, bool) {
	v, ok := b.Values[name]
	return v, ok
}

// evaluate scores predictions against the held-out targets.
func evaluate(kind catalog.TaskKind, yTrue, yPred []float64) (MetricBundle, error) {
	t := mat.NewVecDense(len(yTrue), append([]float64(nil), yTrue...))
	p := mat.NewVecDense(len(yPred), append([]float64(nil), yPred...))

	if kind == catalog.Regression {
		rmse, err := metrics.RMSE(t, p)
		if err != nil {
			return MetricBundle{}, err
		}
		r2, err := metrics.R2Score(t, p)
		if err != nil {
			return MetricBundle{}, err
		}
		return MetricBundle{Task: kind, Values: map[string]float64{MetricRMSE: rmse, MetricR2: r2}}, nil
	}

	acc, err := metrics.Accuracy(t, p)
	if err != nil {
		return MetricBundle{}, err
	}
	precision, recall, f1, err := metrics.PrecisionRecallF1(t, p)
	if err != nil {
		return MetricBundle{}, err
	}
	return MetricBundle{Task: kind, Values: map[string]float64{
		MetricAccuracy:  acc,
		MetricPrecision: precision,
		MetricRecall:    recall,
		MetricF1:        f1,
	}}, nil
}
