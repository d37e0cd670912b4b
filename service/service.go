// Package service ties the experiment pipeline to storage: it loads the
// uploaded dataset, runs the pipeline under a concurrency limit, renders the
// artifacts and persists the outcome.
package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/YuminosukeSato/scigolab/artifacts"
	"github.com/YuminosukeSato/scigolab/dataset"
	"github.com/YuminosukeSato/scigolab/experiment"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"github.com/YuminosukeSato/scigolab/pkg/log"
	"github.com/YuminosukeSato/scigolab/report"
	"github.com/YuminosukeSato/scigolab/store"
)

// Options configures Experiments.
type Options struct {
	// MaxConcurrentRuns bounds how many runs fit at once. Values below 1
	// mean 1.
	MaxConcurrentRuns int64
	// Seed is passed to every run. Zero means the catalog default.
	Seed int64
	// RunTimeout abandons a run after this long. Zero disables it.
	RunTimeout time.Duration
}

// RunRequest is what a caller asks to train.
type RunRequest struct {
	DatasetID int64
	Target    string
	Features  []string
	Split     float64
	Algorithm string
}

// RunFailedError reports a run that passed validation but failed while
// training or scoring. The failure is stored as a failed record.
type RunFailedError struct {
	ExperimentID int64
	Err          error
}

func (e *RunFailedError) Error() string {
	return fmt.Sprintf("experiment %d failed: %v", e.ExperimentID, e.Err)
}

func (e *RunFailedError) Unwrap() error { return e.Err }

// Experiments is the experiment service. It is safe for concurrent use.
type Experiments struct {
	store  *store.Store
	sem    *semaphore.Weighted
	opts   Options
	logger log.Logger
	now    func() time.Time
}

// New returns a service backed by st.
func New(st *store.Store, opts Options) *Experiments {
	if opts.MaxConcurrentRuns < 1 {
		opts.MaxConcurrentRuns = 1
	}
	return &Experiments{
		store:  st,
		sem:    semaphore.NewWeighted(opts.MaxConcurrentRuns),
		opts:   opts,
		logger: log.GetLoggerWithName("service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// IsClientError reports whether err was caused by the request rather than
// by the server.
func IsClientError(err error) bool {
	var (
		valErr   *errors.ValidationError
		insufErr *errors.DataInsufficiencyError
		parseErr *errors.UpstreamParseError
	)
	return errors.As(err, &valErr) ||
		errors.As(err, &insufErr) ||
		errors.As(err, &parseErr) ||
		errors.Is(err, store.ErrNotFound)
}

// UploadDataset parses data to check it and infer its schema, then stores
// the raw bytes.
func (s *Experiments) UploadDataset(ctx context.Context, owner, filename string, data []byte) (*store.DatasetRecord, error) {
	format, err := dataset.FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}
	tbl, err := dataset.LoadBytes(data, format)
	if err != nil {
		return nil, err
	}
	rec := &store.DatasetRecord{
		Owner:      owner,
		Name:       filename,
		Format:     format,
		UploadedAt: s.now(),
		Columns:    tbl.Schema(),
	}
	if _, err := s.store.CreateDataset(ctx, rec, data); err != nil {
		return nil, err
	}
	datasetsUploaded.WithLabelValues(string(format)).Inc()
	s.logger.Info("dataset uploaded",
		log.DatasetIDKey, rec.ID,
		log.UserIDKey, owner,
		log.SamplesKey, tbl.NumRows(),
		"columns", tbl.NumCols(),
	)
	return rec, nil
}

// Dataset returns a stored dataset record.
func (s *Experiments) Dataset(ctx context.Context, id int64) (*store.DatasetRecord, error) {
	return s.store.GetDataset(ctx, id)
}

func (s *Experiments) loadTable(ctx context.Context, id int64) (*dataset.Table, error) {
	rec, err := s.store.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	blob, err := s.store.GetDatasetBlob(ctx, id)
	if err != nil {
		return nil, err
	}
	return dataset.LoadBytes(blob, rec.Format)
}

// Run trains and scores one experiment and stores the result. Client
// errors return without creating a record. Failures after validation are
// stored as a failed record and returned as *RunFailedError.
func (s *Experiments) Run(ctx context.Context, owner string, req RunRequest) (*store.ExperimentRecord, error) {
	ctx, span := tracer.Start(ctx, "service.Run", trace.WithAttributes(
		attribute.Int64("dataset.id", req.DatasetID),
		attribute.String("algorithm.id", req.Algorithm),
		attribute.String("experiment.target", req.Target),
	))
	defer span.End()

	logger := s.logger.With(
		log.DatasetIDKey, req.DatasetID,
		log.AlgorithmIDKey, req.Algorithm,
		log.UserIDKey, owner,
	)

	if err := s.sem.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "waiting for a run slot")
		return nil, err
	}
	defer s.sem.Release(1)
	runsInFlight.Inc()
	defer runsInFlight.Dec()

	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}
	start := time.Now()

	tbl, err := s.loadTable(ctx, req.DatasetID)
	if err != nil {
		return nil, s.reject(span, req.Algorithm, err)
	}

	_, runSpan := tracer.Start(ctx, "experiment.Run")
	res, err := experiment.Run(ctx, tbl, experiment.RunConfig{
		Target:        req.Target,
		Features:      req.Features,
		SplitFraction: req.Split,
		Algorithm:     req.Algorithm,
		Seed:          s.opts.Seed,
	})
	if err != nil {
		runSpan.RecordError(err)
		runSpan.SetStatus(codes.Error, err.Error())
	}
	runSpan.End()

	rec := &store.ExperimentRecord{
		DatasetID: req.DatasetID,
		Owner:     owner,
		CreatedAt: s.now(),
		Target:    req.Target,
		Features:  append([]string(nil), req.Features...),
		Algorithm: req.Algorithm,
	}

	if err != nil {
		if IsClientError(err) || ctx.Err() != nil {
			return nil, s.reject(span, req.Algorithm, err)
		}
		return nil, s.fail(ctx, span, logger, rec, err)
	}
	rec.TaskKind = res.Descriptor.Kind

	_, artSpan := tracer.Start(ctx, "artifacts.Generate")
	arts, skipped := artifacts.Generate(res)
	artSpan.SetAttributes(attribute.Int("artifacts.rendered", len(arts)), attribute.Int("artifacts.skipped", len(skipped)))
	artSpan.End()
	for _, sk := range skipped {
		artifactsSkipped.WithLabelValues(sk.Label).Inc()
	}

	rec.Status = store.StatusDone
	rec.Metrics = res.Metrics
	rec.Artifacts = arts
	if _, err := s.store.CreateExperiment(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist experiment")
		runsTotal.WithLabelValues(req.Algorithm, outcomeFailed).Inc()
		return nil, err
	}

	elapsed := time.Since(start)
	runsTotal.WithLabelValues(req.Algorithm, outcomeDone).Inc()
	runDuration.WithLabelValues(req.Algorithm).Observe(elapsed.Seconds())
	span.SetAttributes(attribute.Int64("experiment.id", rec.ID))
	span.SetStatus(codes.Ok, "")
	logger.Info("experiment stored",
		log.ExperimentIDKey, rec.ID,
		log.TaskKindKey, rec.TaskKind.String(),
		log.DurationMsKey, elapsed.Milliseconds(),
		"artifacts", len(arts),
	)
	return rec, nil
}

func (s *Experiments) reject(span trace.Span, algorithm string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	runsTotal.WithLabelValues(algorithm, outcomeRejected).Inc()
	return err
}

// fail stores rec as failed with cause as its reason.
func (s *Experiments) fail(ctx context.Context, span trace.Span, logger log.Logger, rec *store.ExperimentRecord, cause error) error {
	span.RecordError(cause)
	span.SetStatus(codes.Error, cause.Error())
	runsTotal.WithLabelValues(rec.Algorithm, outcomeFailed).Inc()

	rec.Status = store.StatusFailed
	rec.Error = cause.Error()
	if _, err := s.store.CreateExperiment(ctx, rec); err != nil {
		logger.Error("could not store failed experiment", err)
		return errors.Wrap(cause, "run failed")
	}
	logger.Error("experiment failed", cause, log.ExperimentIDKey, rec.ID)
	return &RunFailedError{ExperimentID: rec.ID, Err: cause}
}

// Get returns a stored experiment with its metrics and artifacts.
func (s *Experiments) Get(ctx context.Context, id int64) (*store.ExperimentRecord, error) {
	return s.store.GetExperiment(ctx, id)
}

// List returns all experiments, newest first.
func (s *Experiments) List(ctx context.Context) ([]store.ExperimentRecord, error) {
	return s.store.ListExperiments(ctx)
}

// Report renders the PDF of a stored experiment and its download name.
func (s *Experiments) Report(ctx context.Context, id int64) ([]byte, string, error) {
	rec, err := s.store.GetExperiment(ctx, id)
	if err != nil {
		return nil, "", err
	}
	pdf, err := report.Assemble(rec)
	if err != nil {
		return nil, "", errors.Wrapf(err, "report for experiment %d", id)
	}
	return pdf, report.Filename(id), nil
}
