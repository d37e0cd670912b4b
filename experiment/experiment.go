// Package experiment runs one supervised-learning experiment end to end:
// feature selection, preprocessing plan, deterministic train/test split,
// fitting on the training rows and scoring on the held-out rows.
//
// Every validation happens before the split, so a bad request never costs a
// fit. Identical inputs give identical splits, predictions and metrics.
package experiment

import (
	"context"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigolab/catalog"
	"github.com/YuminosukeSato/scigolab/core/model"
	"github.com/YuminosukeSato/scigolab/dataset"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"github.com/YuminosukeSato/scigolab/pkg/log"
	"github.com/YuminosukeSato/scigolab/preprocessing"
)

// DefaultSplitFraction is the share of rows held out when none is given.
const DefaultSplitFraction = 0.2

// RunConfig selects what to train.
type RunConfig struct {
	Target string
	// Features restricts the feature columns. Empty means every column
	// except the target.
	Features      []string
	SplitFraction float64
	Algorithm     string
	// Seed drives the split and randomized estimators. Zero means
	// catalog.DefaultSeed.
	Seed int64
}

// Result is the outcome of a successful run.
type Result struct {
	Pipeline   *TrainedPipeline
	Metrics    MetricBundle
	Descriptor catalog.AlgorithmDescriptor
	Split      SplitResult

	// XTest holds the held-out feature rows.
	XTest *dataset.Table
	// YTest holds the held-out targets; class codes for classification.
	YTest       []float64
	Predictions []float64
	// Classes maps class codes to labels. Nil for regression.
	Classes []string
}

// Run validates cfg against table, then splits, fits and scores.
func Run(ctx context.Context, table *dataset.Table, cfg RunConfig) (*Result, error) {
	logger := log.GetLoggerWithName("experiment").With(
		log.AlgorithmIDKey, cfg.Algorithm,
		log.TargetKey, cfg.Target,
	)
	start := time.Now()

	if table == nil {
		return nil, errors.NewValidationError("dataset", "no table", nil)
	}
	targetCol, ok := table.Column(cfg.Target)
	if !ok {
		return nil, errors.NewValidationError("target", "unknown target", cfg.Target)
	}
	desc, err := catalog.Resolve(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	if !(cfg.SplitFraction > 0 && cfg.SplitFraction < 1) {
		return nil, errors.NewValidationError("split", "must be strictly between 0 and 1", cfg.SplitFraction)
	}
	features, err := selectFeatures(table, cfg.Target, cfg.Features)
	if err != nil {
		return nil, err
	}
	X, err := table.Select(features...)
	if err != nil {
		return nil, err
	}
	plan, err := preprocessing.BuildPlan(X.Schema(), cfg.Target)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = catalog.DefaultSeed
	}

	keep, y := labelledRows(targetCol)
	if len(keep) < table.NumRows() {
		logger.Info("dropped rows with missing target",
			log.SamplesKey, table.NumRows()-len(keep),
			log.PhaseKey, log.PhaseValidation,
		)
		X = X.Take(keep)
	}
	split, err := Split(X, y, cfg.SplitFraction, seed)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	codes, classes, err := encodeTarget(desc.Kind, cfg.Target, y)
	if err != nil {
		return nil, err
	}
	yTrain := pickFloat(codes, split.TrainIdx)
	yTest := pickFloat(codes, split.TestIdx)
	if desc.Kind == catalog.Classification && distinct(yTrain) < 2 {
		return nil, errors.NewDataInsufficiencyError("Run", len(yTrain),
			"insufficient data: training partition holds fewer than two classes")
	}

	logger.Debug("split done",
		log.OperationKey, log.OperationSplit,
		log.TrainSamplesKey, len(split.TrainIdx),
		log.TestSamplesKey, len(split.TestIdx),
		log.RandomSeedKey, seed,
		log.SplitFractionKey, cfg.SplitFraction,
	)

	var est model.Estimator
	err = errors.SafeExecute("experiment.fit", func() error {
		XTrain, err := plan.FitTransform(split.XTrain)
		if err != nil {
			return err
		}
		est = desc.NewModelWithSeed(seed)
		if err := est.Fit(XTrain, mat.NewDense(len(yTrain), 1, yTrain)); err != nil {
			return errors.Wrapf(err, "fit %s", desc.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pipe := NewTrainedPipeline(desc.Kind, features, plan, est, classes)

	var pred []float64
	err = errors.SafeExecute("experiment.predict", func() error {
		var err error
		pred, err = pipe.Predict(split.XTest)
		return err
	})
	if err != nil {
		return nil, err
	}

	bundle, err := evaluate(desc.Kind, yTest, pred)
	if err != nil {
		return nil, err
	}

	fields := []any{
		log.TaskKindKey, desc.Kind.String(),
		log.FeaturesKey, plan.NumOutputFeatures(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	if desc.Kind == catalog.Classification {
		fields = append(fields, log.AccuracyKey, bundle.Values[MetricAccuracy], log.ClassesKey, len(classes))
	} else {
		fields = append(fields, log.RMSEKey, bundle.Values[MetricRMSE], log.R2ScoreKey, bundle.Values[MetricR2])
	}
	logger.Info("experiment finished", fields...)

	return &Result{
		Pipeline:    pipe,
		Metrics:     bundle,
		Descriptor:  desc,
		Split:       split,
		XTest:       split.XTest,
		YTest:       yTest,
		Predictions: pred,
		Classes:     classes,
	}, nil
}

func selectFeatures(table *dataset.Table, target string, requested []string) ([]string, error) {
	if len(requested) == 0 {
		out := make([]string, 0, table.NumCols())
		for _, n := range table.Names() {
			if n != target {
				out = append(out, n)
			}
		}
		return out, nil
	}
	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested))
	for _, n := range requested {
		if n == target {
			return nil, errors.NewValidationError("features", "target column present in features", n)
		}
		if !table.Has(n) {
			return nil, errors.NewValidationError("features", "unknown column", n)
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out, nil
}

// labelledRows returns the rows whose target is present, and those targets.
func labelledRows(target dataset.Column) ([]int, []dataset.Value) {
	keep := make([]int, 0, len(target.Values))
	y := make([]dataset.Value, 0, len(target.Values))
	for i, v := range target.Values {
		if v.IsMissing() {
			continue
		}
		keep = append(keep, i)
		y = append(y, v)
	}
	return keep, y
}

// encodeTarget turns target cells into float64 training targets. Class
// labels are sorted numerically when all are numbers, lexically otherwise,
// and coded 0..k-1 in that order.
func encodeTarget(kind catalog.TaskKind, name string, y []dataset.Value) ([]float64, []string, error) {
	codes := make([]float64, len(y))
	if kind == catalog.Regression {
		for i, v := range y {
			f, ok := v.Float()
			if !ok {
				return nil, nil, errors.NewValidationError("target", "regression target must be numeric", name)
			}
			codes[i] = f
		}
		return codes, nil, nil
	}

	allNumeric := true
	seen := make(map[string]dataset.Value)
	for _, v := range y {
		if !v.IsNumber() {
			allNumeric = false
		}
		seen[v.String()] = v
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	if allNumeric {
		sort.Slice(labels, func(i, j int) bool {
			a, _ := seen[labels[i]].Float()
			b, _ := seen[labels[j]].Float()
			return a < b
		})
	} else {
		sort.Strings(labels)
	}
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	for i, v := range y {
		codes[i] = float64(index[v.String()])
	}
	return codes, labels, nil
}

func pickFloat(values []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = values[r]
	}
	return out
}

func distinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// ClassLabel returns the label of a class code, or the code itself when it
// is out of range.
func (r *Result) ClassLabel(code int) string {
	if code >= 0 && code < len(r.Classes) {
		return r.Classes[code]
	}
	return strconv.Itoa(code)
}
