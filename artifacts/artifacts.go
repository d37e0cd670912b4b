// Package artifacts renders the diagnostic plots of an experiment as PNG
// images: residual and predicted-vs-actual scatters for regression, a
// confusion-matrix heatmap and ROC curves for classification.
//
// A plot that cannot be drawn is reported as a Skipped value rather than an
// error. Only the training result itself can fail an experiment.
package artifacts

import (
	"fmt"

	"github.com/YuminosukeSato/scigolab/catalog"
	"github.com/YuminosukeSato/scigolab/experiment"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"github.com/YuminosukeSato/scigolab/pkg/log"
)

// Artifact labels.
const (
	LabelResidual          = "residual_plot.png"
	LabelPredictedVsActual = "predicted_vs_actual.png"
	LabelConfusionMatrix   = "confusion_matrix.png"
	LabelROCCurve          = "roc_curve.png"
)

// ContentTypePNG is the media type of every rendered artifact.
const ContentTypePNG = "image/png"

// Artifact is one rendered image.
type Artifact struct {
	Label       string `json:"label" msgpack:"label"`
	ContentType string `json:"content_type" msgpack:"content_type"`
	Data        []byte `json:"data" msgpack:"data"`
}

// Skipped records a plot that was not produced and why.
type Skipped struct {
	Label  string
	Reason string
}

func (s Skipped) String() string {
	return fmt.Sprintf("%s skipped: %s", s.Label, s.Reason)
}

type renderFunc func(res *experiment.Result) ([]byte, error)

// Generate renders every plot that applies to the result's task kind.
// Artifacts come back in display order.
func Generate(res *experiment.Result) ([]Artifact, []Skipped) {
	logger := log.GetLoggerWithName("artifacts").With(
		log.AlgorithmIDKey, res.Descriptor.ID,
		log.PhaseKey, log.PhaseArtifacts,
	)

	type job struct {
		label  string
		render renderFunc
	}
	var jobs []job
	if res.Metrics.Task == catalog.Regression {
		jobs = []job{
			{LabelResidual, renderResidual},
			{LabelPredictedVsActual, renderPredictedVsActual},
		}
	} else {
		jobs = []job{{LabelConfusionMatrix, renderConfusionMatrix}}
		if res.Pipeline.HasPredictProba() || res.Pipeline.HasDecisionFunction() {
			jobs = append(jobs, job{LabelROCCurve, renderROC})
		} else {
			jobs = append(jobs, job{LabelROCCurve, nil})
		}
	}

	var (
		out     []Artifact
		skipped []Skipped
	)
	for _, j := range jobs {
		if j.render == nil {
			s := Skipped{Label: j.label, Reason: "estimator has no score output"}
			logger.Info("artifact skipped", log.ArtifactKey, s.Label, log.ReasonKey, s.Reason)
			skipped = append(skipped, s)
			continue
		}
		data, s := render(j.label, j.render, res)
		if s != nil {
			logger.Info("artifact skipped", log.ArtifactKey, s.Label, log.ReasonKey, s.Reason)
			skipped = append(skipped, *s)
			continue
		}
		logger.Debug("artifact rendered", log.ArtifactKey, j.label, log.OperationKey, log.OperationRender)
		out = append(out, Artifact{Label: j.label, ContentType: ContentTypePNG, Data: data})
	}
	return out, skipped
}

// render runs fn with panics converted to a Skipped outcome.
func render(label string, fn renderFunc, res *experiment.Result) ([]byte, *Skipped) {
	var data []byte
	err := errors.SafeExecute("render "+label, func() error {
		var err error
		data, err = fn(res)
		return err
	})
	if err != nil {
		var skip *skipError
		if errors.As(err, &skip) {
			return nil, &Skipped{Label: label, Reason: skip.reason}
		}
		return nil, &Skipped{Label: label, Reason: err.Error()}
	}
	return data, nil
}

// skipError marks an expected reason for not drawing a plot.
type skipError struct{ reason string }

func (e *skipError) Error() string { return e.reason }

func skip(reason string) error { return &skipError{reason: reason} }
