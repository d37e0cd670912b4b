package log

// Standard attribute keys. Keys use a dotted hierarchy ("data.samples",
// "experiment.id") so records from the pipeline, the artifact renderer and the
// HTTP layer can be filtered the same way.

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "RandomForestClassifier".
	ModelNameKey = "model.name"

	// OperationKey is the step being performed: fit, predict, transform, score, render.
	OperationKey = "ml.operation"

	// ComponentKey identifies the package or subsystem emitting the record.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase: validation, preprocessing, training, evaluation.
	PhaseKey = "ml.phase"

	// TaskKindKey is "regression" or "classification".
	TaskKindKey = "ml.task_kind"
)

// Experiment context.
const (
	ExperimentIDKey = "experiment.id"
	DatasetIDKey    = "dataset.id"
	AlgorithmIDKey  = "algorithm.id"
	TargetKey       = "experiment.target"
	UserIDKey       = "user.id"
	ArtifactKey     = "artifact.label"
	RequestIDKey    = "request_id"
)

// Data shape.
const (
	// SamplesKey is the number of rows processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns after preprocessing.
	FeaturesKey = "data.features"

	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"
	ClassesKey      = "data.classes"
)

// Performance.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	R2ScoreKey    = "metrics.r2_score"
	RMSEKey       = "metrics.rmse"
)

// Configuration.
const (
	RandomSeedKey    = "config.random_seed"
	SplitFractionKey = "config.split_fraction"
)

// Error context.
const (
	ErrorCodeKey = "error.code"
	ReasonKey    = "error.reason"
)

// Standard values for OperationKey.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"
	OperationRender    = "render"
	OperationSplit     = "split"
)

// Standard values for PhaseKey.
const (
	PhaseValidation    = "validation"
	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseEvaluation    = "evaluation"
	PhaseArtifacts     = "artifacts"
)
