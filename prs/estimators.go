package prs

import (
	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/dataset"
	"github.com/RossDeVito/AutoML-PRS/gbdt"
	"github.com/RossDeVito/AutoML-PRS/linear"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
	"github.com/RossDeVito/AutoML-PRS/pkg/log"
	"github.com/RossDeVito/AutoML-PRS/preprocessing"
)

// Task selects the prediction problem an estimator is built for.
type Task int

const (
	TaskRegression Task = iota
	TaskClassification
	TaskRanking
)

// String returns the task name.
func (t Task) String() string {
	switch t {
	case TaskRegression:
		return "regression"
	case TaskClassification:
		return "classification"
	case TaskRanking:
		return "ranking"
	default:
		return "unknown"
	}
}

// ParseTask maps a task name to its Task value.
func ParseTask(s string) (Task, error) {
	switch s {
	case "regression":
		return TaskRegression, nil
	case "classification":
		return TaskClassification, nil
	case "ranking":
		return TaskRanking, nil
	default:
		return 0, errors.NewValueError("prs.ParseTask", "unknown task: "+s)
	}
}

type learnerKind int

const (
	kindLGBM learnerKind = iota
	kindElasticNet
	kindSGD
)

// Hyperparameter keys consumed by the pipeline rather than the learner.
var pipelineParams = map[string]bool{
	"early_stopping_rounds": true,
	"filter_threshold":      true,
	"n_partitions":          true,
}

// LGBM variant defaults; the boosting-round ceiling is high because the
// effective length comes from early stopping on the validation split.
const (
	lgbmMaxEstimators        = 50000
	lgbmMaxBin               = 127
	defaultEarlyStopRounds   = 50
	defaultLinearNPartitions = 2
)

// Estimator is one configured variant of the suite. The variants differ
// in learner family, threshold filtering, scaling, and partitioning, all
// carried as capability flags on this one type.
type Estimator struct {
	name               string
	task               Task
	kind               learnerKind
	params             map[string]interface{}
	thresholdFiltering bool
	scaling            bool
	partitioned        bool
	nPartitions        int
	verbose            int

	// fitted state, retained for Predict
	fitted    Learner
	subsetter *Subsetter
	threshold string
	scaler    *preprocessing.MinMaxScaler
	pipeline  *FitPipeline

	logger log.Logger
}

// EstimatorOption configures a variant at construction time.
type EstimatorOption func(*Estimator)

// WithParams supplies the hyperparameter configuration. Learner keys are
// passed through to the learner; filter_threshold, early_stopping_rounds,
// and n_partitions configure the pipeline instead.
func WithParams(params map[string]interface{}) EstimatorOption {
	return func(e *Estimator) { e.params = params }
}

// WithoutScaling disables the min-max scaling that the linear variants
// apply by default.
func WithoutScaling() EstimatorOption {
	return func(e *Estimator) { e.scaling = false }
}

// WithVerbose sets the verbosity level (progress bars, per-iteration
// evaluation logging).
func WithVerbose(v int) EstimatorOption {
	return func(e *Estimator) { e.verbose = v }
}

// NewLGBMEstimator builds the gradient-boosted tree variant without
// threshold filtering. All three tasks are supported.
func NewLGBMEstimator(task Task, opts ...EstimatorOption) (*Estimator, error) {
	return newEstimator("LGBMEstimator", task, kindLGBM, false, opts)
}

// NewLGBMEstimatorMultiThresh builds the tree variant with p-value
// threshold feature filtering.
func NewLGBMEstimatorMultiThresh(task Task, opts ...EstimatorOption) (*Estimator, error) {
	return newEstimator("LGBMEstimatorMultiThresh", task, kindLGBM, true, opts)
}

// NewElasticNetEstimator builds the elastic-net variant. Only the
// regression task is supported.
func NewElasticNetEstimator(task Task, opts ...EstimatorOption) (*Estimator, error) {
	return newEstimator("ElasticNetEstimator", task, kindElasticNet, false, opts)
}

// NewElasticNetEstimatorMultiThresh builds the elastic-net variant with
// threshold filtering.
func NewElasticNetEstimatorMultiThresh(task Task, opts ...EstimatorOption) (*Estimator, error) {
	return newEstimator("ElasticNetEstimatorMultiThresh", task, kindElasticNet, true, opts)
}

// NewNPartElasticNetEstimator builds a partitioned ensemble of
// elastic-net learners, two partitions by default.
func NewNPartElasticNetEstimator(task Task, opts ...EstimatorOption) (*Estimator, error) {
	e, err := newEstimator("NPartElasticNetEstimator", task, kindElasticNet, false, opts)
	if err != nil {
		return nil, err
	}
	e.markPartitioned()
	return e, nil
}

// NewNPartElasticNetEstimatorMultiThresh builds the partitioned
// elastic-net ensemble with threshold filtering.
func NewNPartElasticNetEstimatorMultiThresh(task Task, opts ...EstimatorOption) (*Estimator, error) {
	e, err := newEstimator("NPartElasticNetEstimatorMultiThresh", task, kindElasticNet, true, opts)
	if err != nil {
		return nil, err
	}
	e.markPartitioned()
	return e, nil
}

// NewSGDEstimator builds the stochastic gradient descent variant. Only
// the regression task is supported.
func NewSGDEstimator(task Task, opts ...EstimatorOption) (*Estimator, error) {
	return newEstimator("SGDEstimator", task, kindSGD, false, opts)
}

// NewSGDEstimatorMultiThresh builds the SGD variant with threshold
// filtering.
func NewSGDEstimatorMultiThresh(task Task, opts ...EstimatorOption) (*Estimator, error) {
	return newEstimator("SGDEstimatorMultiThresh", task, kindSGD, true, opts)
}

func newEstimator(name string, task Task, kind learnerKind, thresholdFiltering bool, opts []EstimatorOption) (*Estimator, error) {
	if kind != kindLGBM && task != TaskRegression {
		return nil, errors.NewValueError("prs.New"+name,
			name+" only supports the regression task, got "+task.String())
	}

	e := &Estimator{
		name:               name,
		task:               task,
		kind:               kind,
		params:             map[string]interface{}{},
		thresholdFiltering: thresholdFiltering,
		scaling:            kind != kindLGBM,
		logger:             log.GetLoggerWithName("prs." + name).With(log.ModelNameKey, name),
	}
	if kind == kindLGBM {
		// Tree variants train verbosely, reporting per-iteration evaluation.
		e.verbose = 1
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Estimator) markPartitioned() {
	e.partitioned = true
	e.nPartitions = defaultLinearNPartitions
	if v, ok := e.params["n_partitions"]; ok {
		if n, err := asIntParam("n_partitions", v); err == nil && n > 0 {
			e.nPartitions = n
		}
	}
}

// Name returns the variant name.
func (e *Estimator) Name() string { return e.name }

// Task returns the task the estimator was built for.
func (e *Estimator) Task() Task { return e.task }

// Verbose returns the verbosity level.
func (e *Estimator) Verbose() int { return e.verbose }

// IsFitted reports whether Fit has completed successfully.
func (e *Estimator) IsFitted() bool { return e.fitted != nil }

// History returns the per-iteration evaluation history of the last fit,
// or nil for learner families that do not track one.
func (e *Estimator) History() map[string][]float64 {
	if tree, ok := e.fitted.(*treeLearner); ok {
		return tree.History()
	}
	return nil
}

// PipelineState exposes the last fit pipeline's state.
func (e *Estimator) PipelineState() PipelineState {
	if e.pipeline == nil {
		return StateCreated
	}
	return e.pipeline.State()
}

// FitOption configures one fit call.
type FitOption func(*fitConfig)

type fitConfig struct {
	variantSets map[string][]string
	covariates  []string
	valFrac     float64
	groups      []int
	seed        uint64
}

// WithVariantSets supplies the per-threshold variant column sets and the
// covariate columns. Required by the MultiThresh variants.
func WithVariantSets(sets map[string][]string, covariates []string) FitOption {
	return func(c *fitConfig) {
		c.variantSets = sets
		c.covariates = covariates
	}
}

// WithValFrac overrides the validation fraction (default 0.1).
func WithValFrac(v float64) FitOption {
	return func(c *fitConfig) { c.valFrac = v }
}

// WithGroups supplies per-row group labels for the ranking task. Rows of
// one group must be consecutive.
func WithGroups(groups []int) FitOption {
	return func(c *fitConfig) { c.groups = groups }
}

// WithSeed seeds the validation split, partition shuffle, and learner.
func WithSeed(seed uint64) FitOption {
	return func(c *fitConfig) { c.seed = seed }
}

// Fit trains the estimator on the table and labels, returning the
// elapsed training time in seconds. The preprocessing fitted here (the
// feature subset and scaler) is retained and reapplied by Predict.
func (e *Estimator) Fit(X dataset.Table, y *mat.VecDense, opts ...FitOption) (seconds float64, err error) {
	defer errors.Recover(&err, "prs."+e.name+".Fit")

	cfg := fitConfig{valFrac: DefaultValFrac, seed: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	e.subsetter = nil
	e.scaler = nil
	e.fitted = nil

	if e.thresholdFiltering {
		if cfg.variantSets == nil {
			return 0, errors.NewValueError("prs."+e.name+".Fit",
				"variant sets are required for threshold filtering")
		}
		threshold, ok := e.params["filter_threshold"].(string)
		if !ok {
			return 0, errors.NewValueError("prs."+e.name+".Fit",
				"filter_threshold parameter is required for threshold filtering")
		}
		e.subsetter = &Subsetter{Covariates: cfg.covariates, VariantSets: cfg.variantSets}
		e.threshold = threshold
	}
	if e.scaling {
		e.scaler = preprocessing.NewMinMaxScaler()
	}

	pipeline := NewFitPipeline(func() (Learner, error) { return e.buildLearner(cfg.seed) })
	pipeline.Subsetter = e.subsetter
	pipeline.Threshold = e.threshold
	pipeline.Scaler = e.scaler
	pipeline.ValFrac = cfg.valFrac
	pipeline.Seed = cfg.seed
	e.pipeline = pipeline

	result, err := pipeline.Fit(X, y, cfg.groups)
	if err != nil {
		return 0, err
	}
	e.fitted = result.Model
	e.logger.Info("estimator fit complete",
		log.OperationKey, log.OperationFit,
		log.DurationSecondsKey, result.TrainSeconds,
	)
	return result.TrainSeconds, nil
}

// Predict applies the preprocessing fitted during Fit and returns one
// score per row.
func (e *Estimator) Predict(X dataset.Table) (_ *mat.VecDense, err error) {
	defer errors.Recover(&err, "prs."+e.name+".Predict")

	if e.fitted == nil {
		return nil, errors.NewNotFittedError(e.name, "Predict")
	}

	features := X
	if e.subsetter != nil {
		features, err = e.subsetter.Subset(X, e.threshold)
		if err != nil {
			return nil, err
		}
	}
	if e.scaler != nil {
		features, err = e.scaler.Transform(features)
		if err != nil {
			return nil, err
		}
	}
	return e.fitted.PredictTable(features)
}

// buildLearner constructs the learner from the hyperparameters minus the
// pipeline-only keys.
func (e *Estimator) buildLearner(seed uint64) (Learner, error) {
	learnerParams := make(map[string]interface{}, len(e.params))
	for k, v := range e.params {
		if !pipelineParams[k] {
			learnerParams[k] = v
		}
	}

	switch e.kind {
	case kindLGBM:
		return e.buildTreeLearner(learnerParams, seed)
	case kindElasticNet:
		en := linear.NewElasticNet(linear.WithSeed(seed))
		if err := en.SetParams(learnerParams); err != nil {
			return nil, err
		}
		if e.partitioned {
			ensemble := NewPartitionedEnsemble(en, e.nPartitions)
			ensemble.Seed = seed
			ensemble.Verbose = e.verbose
			return &ensembleLearner{ensemble: ensemble}, nil
		}
		return &matrixLearner{est: en}, nil
	case kindSGD:
		sgd := linear.NewSGDRegressor(linear.WithSGDSeed(seed))
		if err := sgd.SetParams(learnerParams); err != nil {
			return nil, err
		}
		return &matrixLearner{est: sgd}, nil
	}
	return nil, errors.NewValueError("prs."+e.name, "unknown learner kind")
}

func (e *Estimator) buildTreeLearner(learnerParams map[string]interface{}, seed uint64) (Learner, error) {
	earlyStopRounds := defaultEarlyStopRounds
	if v, ok := e.params["early_stopping_rounds"]; ok {
		n, err := asIntParam("early_stopping_rounds", v)
		if err != nil {
			return nil, err
		}
		earlyStopRounds = n
	}

	baseOpts := []gbdt.Option{
		gbdt.WithNumIterations(lgbmMaxEstimators),
		gbdt.WithMaxBin(lgbmMaxBin),
		gbdt.WithEarlyStopping(earlyStopRounds),
		gbdt.WithRandomState(seed),
		gbdt.WithVerbosity(e.verbose),
	}

	learner := &treeLearner{task: e.task}
	var err error
	switch e.task {
	case TaskRegression:
		learner.regressor = gbdt.NewRegressor(baseOpts...)
		err = learner.regressor.SetParams(learnerParams)
	case TaskClassification:
		learner.classifier = gbdt.NewClassifier(baseOpts...)
		err = learner.classifier.SetParams(learnerParams)
	case TaskRanking:
		learner.ranker = gbdt.NewRanker(baseOpts...)
		err = learner.ranker.SetParams(learnerParams)
	}
	if err != nil {
		return nil, err
	}
	return learner, nil
}

// treeLearner adapts the gbdt wrappers to the pipeline's Learner
// interface, passing the validation split as the early-stopping eval set.
type treeLearner struct {
	task       Task
	regressor  *gbdt.Regressor
	classifier *gbdt.Classifier
	ranker     *gbdt.Ranker
}

func (l *treeLearner) FitSplit(trainX dataset.Table, trainY *mat.VecDense, valX dataset.Table, valY *mat.VecDense, groups, valGroups []int) error {
	X, y := trainX.Matrix(), vecToColumn(trainY)
	XVal, yVal := valX.Matrix(), vecToColumn(valY)

	switch l.task {
	case TaskClassification:
		return l.classifier.FitWithValidation(X, y, XVal, yVal)
	case TaskRanking:
		return l.ranker.FitWithGroups(X, y, groups, XVal, yVal, valGroups)
	default:
		return l.regressor.FitWithValidation(X, y, XVal, yVal)
	}
}

func (l *treeLearner) PredictTable(X dataset.Table) (*mat.VecDense, error) {
	features := X.Matrix()
	switch l.task {
	case TaskClassification:
		// The score is the probability of the positive class.
		proba, err := l.classifier.PredictProba(features)
		if err != nil {
			return nil, err
		}
		n, _ := proba.Dims()
		out := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			out.SetVec(i, proba.At(i, 1))
		}
		return out, nil
	case TaskRanking:
		pred, err := l.ranker.Predict(features)
		if err != nil {
			return nil, err
		}
		return columnToVec(pred), nil
	default:
		pred, err := l.regressor.Predict(features)
		if err != nil {
			return nil, err
		}
		return columnToVec(pred), nil
	}
}

// History returns the per-iteration evaluation history of the fitted
// tree learner.
func (l *treeLearner) History() map[string][]float64 {
	switch l.task {
	case TaskClassification:
		return l.classifier.History()
	case TaskRanking:
		return l.ranker.History()
	default:
		return l.regressor.History()
	}
}

// matrixLearner adapts a plain matrix estimator (elastic net, SGD) that
// trains on the training portion only.
type matrixLearner struct {
	est CloneableLearner
}

func (l *matrixLearner) FitSplit(trainX dataset.Table, trainY *mat.VecDense, _ dataset.Table, _ *mat.VecDense, _, _ []int) error {
	return l.est.Fit(trainX.Matrix(), vecToColumn(trainY))
}

func (l *matrixLearner) PredictTable(X dataset.Table) (*mat.VecDense, error) {
	pred, err := l.est.Predict(X.Matrix())
	if err != nil {
		return nil, err
	}
	return columnToVec(pred), nil
}

// ensembleLearner adapts the partitioned ensemble.
type ensembleLearner struct {
	ensemble *PartitionedEnsemble
}

func (l *ensembleLearner) FitSplit(trainX dataset.Table, trainY *mat.VecDense, _ dataset.Table, _ *mat.VecDense, _, _ []int) error {
	return l.ensemble.Fit(trainX, trainY)
}

func (l *ensembleLearner) PredictTable(X dataset.Table) (*mat.VecDense, error) {
	return l.ensemble.Predict(X)
}

// columnToVec copies the first column of a matrix into a vector.
func columnToVec(m mat.Matrix) *mat.VecDense {
	rows, _ := m.Dims()
	v := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}

func asIntParam(key string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	}
	return 0, errors.NewValidationError(key, "must be an integer", value)
}
