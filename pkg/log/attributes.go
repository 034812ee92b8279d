// Standard attribute keys for machine learning operations.
//
// Using these keys consistently across the estimator suite enables log
// analysis and filtering over training runs: which estimator variant ran,
// on how many samples, under which filter threshold, for how long. The
// keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples").

package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator or model type.
	// Examples: "ElasticNetEstimator", "LGBMEstimator", "MinMaxScaler"
	ModelNameKey = "model.name"

	// EstimatorIDKey provides a unique identifier for a specific fit run,
	// typically a UUID generated at pipeline entry.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the machine learning operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the
	// operation. Examples: "prs.pipeline", "gbdt.trainer", "preprocessing"
	ComponentKey = "component"

	// PhaseKey indicates the phase of the model lifecycle.
	// Examples: "training", "validation", "inference", "preprocessing"
	PhaseKey = "ml.phase"
)

// Data shape and characteristics.
const (
	// SamplesKey indicates the number of samples (rows) being processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) being processed.
	FeaturesKey = "data.features"

	// ValFracKey records the validation fraction used for the split.
	ValFracKey = "data.val_frac"

	// ValSamplesKey indicates the number of rows assigned to validation.
	ValSamplesKey = "data.val_samples"
)

// PRS-specific context.
const (
	// FilterThresholdKey records the p-value/window threshold key used to
	// select the variant feature subset.
	FilterThresholdKey = "prs.filter_threshold"

	// CovariatesKey records the number of covariate columns.
	CovariatesKey = "prs.covariates"

	// PartitionKey records the index of the ensemble partition being fitted.
	PartitionKey = "ensemble.partition"

	// PartitionsKey records the total number of ensemble partitions.
	PartitionsKey = "ensemble.n_partitions"
)

// Performance metrics.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// DurationSecondsKey records the execution time in seconds for longer
	// operations such as full training runs.
	DurationSecondsKey = "perf.duration_seconds"

	// LossKey records a loss value during training or evaluation.
	LossKey = "metrics.loss"

	// R2ScoreKey records the coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// IterationKey records the current iteration during iterative training.
	IterationKey = "training.iteration"

	// BestIterationKey records the iteration selected by early stopping.
	BestIterationKey = "training.best_iteration"
)

// Error and warning context.
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	// Examples: "DIMENSION_MISMATCH", "NOT_FITTED", "CONVERGENCE_FAILURE"
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// SuggestionKey provides a hint for resolving the reported issue.
	SuggestionKey = "error.suggestion"
)

// Standard attribute value constants for common operations.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationPartialFit   = "partial_fit"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorConvergence       = "CONVERGENCE_FAILURE"
	ErrorLookup            = "LOOKUP_FAILURE"
)
