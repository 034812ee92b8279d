package gbdt

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/core/model"
	"github.com/RossDeVito/AutoML-PRS/metrics"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
	"github.com/RossDeVito/AutoML-PRS/pkg/log"
)

// Regressor is a scikit-learn style wrapper around the boosting trainer
// with the squared-error objective.
type Regressor struct {
	*model.StateManager
	params  TrainingParams
	fitted  *Model
	history map[string][]float64
	logger  log.Logger
}

// NewRegressor creates a regressor with the given options applied on top
// of the defaults.
func NewRegressor(opts ...Option) *Regressor {
	params := DefaultTrainingParams()
	params.Objective = ObjectiveL2
	for _, opt := range opts {
		opt(&params)
	}
	return &Regressor{
		StateManager: model.NewStateManager(),
		params:       params,
		logger:       log.GetLoggerWithName("gbdt.Regressor"),
	}
}

// Fit trains on X and y without a validation set.
func (r *Regressor) Fit(X, y mat.Matrix) error {
	return r.FitWithValidation(X, y, nil, nil)
}

// FitWithValidation trains while evaluating every iteration on the
// validation set; early stopping applies when configured and a
// validation set is present.
func (r *Regressor) FitWithValidation(X, y, XVal, yVal mat.Matrix, callbacks ...Callback) error {
	fitted, history, err := fitBooster(r.params, X, y, XVal, yVal, nil, nil, r.logger, callbacks...)
	if err != nil {
		return err
	}
	r.fitted = fitted
	r.history = history
	rows, _ := X.Dims()
	r.SetDimensions(fitted.NumFeatures, rows)
	r.SetFitted()
	return nil
}

// Predict returns predictions as an n x 1 matrix.
func (r *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("Regressor", "Predict")
	}
	pred, err := r.fitted.Predict(X)
	if err != nil {
		return nil, err
	}
	return vecToColumn(pred), nil
}

// Score computes R² on the given data.
func (r *Regressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(columnToVec(y), columnToVec(pred))
}

// Booster returns the fitted tree ensemble, or nil before Fit.
func (r *Regressor) Booster() *Model { return r.fitted }

// History returns the per-iteration evaluation history from the last
// fit, keyed by "<dataset>_<metric>".
func (r *Regressor) History() map[string][]float64 { return r.history }

// GetParams returns the training hyperparameters.
func (r *Regressor) GetParams(deep bool) map[string]interface{} {
	return paramsToMap(r.params)
}

// SetParams updates the training hyperparameters.
func (r *Regressor) SetParams(params map[string]interface{}) error {
	return applyParamsMap(&r.params, params)
}

// Clone returns an unfitted copy with the same parameters.
func (r *Regressor) Clone() model.SKLearnCompatible {
	return &Regressor{
		StateManager: model.NewStateManager(),
		params:       r.params,
		logger:       r.logger,
	}
}

// Classifier is a binary classifier over the logistic objective. Labels
// must be 0 or 1.
type Classifier struct {
	*model.StateManager
	params  TrainingParams
	fitted  *Model
	history map[string][]float64
	logger  log.Logger
}

// NewClassifier creates a binary classifier with the given options.
func NewClassifier(opts ...Option) *Classifier {
	params := DefaultTrainingParams()
	params.Objective = ObjectiveBinary
	for _, opt := range opts {
		opt(&params)
	}
	return &Classifier{
		StateManager: model.NewStateManager(),
		params:       params,
		logger:       log.GetLoggerWithName("gbdt.Classifier"),
	}
}

// Fit trains on X and y without a validation set.
func (c *Classifier) Fit(X, y mat.Matrix) error {
	return c.FitWithValidation(X, y, nil, nil)
}

// FitWithValidation trains while evaluating every iteration on the
// validation set.
func (c *Classifier) FitWithValidation(X, y, XVal, yVal mat.Matrix, callbacks ...Callback) error {
	fitted, history, err := fitBooster(c.params, X, y, XVal, yVal, nil, nil, c.logger, callbacks...)
	if err != nil {
		return err
	}
	c.fitted = fitted
	c.history = history
	rows, _ := X.Dims()
	c.SetDimensions(fitted.NumFeatures, rows)
	c.SetFitted()
	return nil
}

// Predict returns the predicted class label (0 or 1) per row.
func (c *Classifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.predictProba(X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(proba.Len(), 1, nil)
	for i := 0; i < proba.Len(); i++ {
		if proba.AtVec(i) >= 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}

// PredictProba returns an n x 2 matrix of class probabilities with
// columns ordered [P(y=0), P(y=1)].
func (c *Classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.predictProba(X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(proba.Len(), 2, nil)
	for i := 0; i < proba.Len(); i++ {
		p := proba.AtVec(i)
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

func (c *Classifier) predictProba(X mat.Matrix) (*mat.VecDense, error) {
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("Classifier", "Predict")
	}
	return c.fitted.Predict(X)
}

// Classes returns the class labels the classifier was trained on.
func (c *Classifier) Classes() []int { return []int{0, 1} }

// Booster returns the fitted tree ensemble, or nil before Fit.
func (c *Classifier) Booster() *Model { return c.fitted }

// History returns the per-iteration evaluation history from the last fit.
func (c *Classifier) History() map[string][]float64 { return c.history }

// GetParams returns the training hyperparameters.
func (c *Classifier) GetParams(deep bool) map[string]interface{} {
	return paramsToMap(c.params)
}

// SetParams updates the training hyperparameters.
func (c *Classifier) SetParams(params map[string]interface{}) error {
	return applyParamsMap(&c.params, params)
}

// Clone returns an unfitted copy with the same parameters.
func (c *Classifier) Clone() model.SKLearnCompatible {
	return &Classifier{
		StateManager: model.NewStateManager(),
		params:       c.params,
		logger:       c.logger,
	}
}

// Ranker trains the pairwise ranking objective. Rows of each query group
// must be consecutive; group sizes are passed alongside the data.
type Ranker struct {
	*model.StateManager
	params  TrainingParams
	fitted  *Model
	history map[string][]float64
	logger  log.Logger
}

// NewRanker creates a ranker with the given options.
func NewRanker(opts ...Option) *Ranker {
	params := DefaultTrainingParams()
	params.Objective = ObjectiveLambdarank
	for _, opt := range opts {
		opt(&params)
	}
	return &Ranker{
		StateManager: model.NewStateManager(),
		params:       params,
		logger:       log.GetLoggerWithName("gbdt.Ranker"),
	}
}

// Fit trains treating all rows as a single query group.
func (r *Ranker) Fit(X, y mat.Matrix) error {
	return r.FitWithGroups(X, y, nil, nil, nil, nil)
}

// FitWithGroups trains with per-group row counts for the training and
// validation sets.
func (r *Ranker) FitWithGroups(X, y mat.Matrix, groups []int, XVal, yVal mat.Matrix, valGroups []int, callbacks ...Callback) error {
	fitted, history, err := fitBooster(r.params, X, y, XVal, yVal, groups, valGroups, r.logger, callbacks...)
	if err != nil {
		return err
	}
	r.fitted = fitted
	r.history = history
	rows, _ := X.Dims()
	r.SetDimensions(fitted.NumFeatures, rows)
	r.SetFitted()
	return nil
}

// Predict returns raw relevance scores as an n x 1 matrix.
func (r *Ranker) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !r.IsFitted() {
		return nil, errors.NewNotFittedError("Ranker", "Predict")
	}
	pred, err := r.fitted.Predict(X)
	if err != nil {
		return nil, err
	}
	return vecToColumn(pred), nil
}

// Booster returns the fitted tree ensemble, or nil before Fit.
func (r *Ranker) Booster() *Model { return r.fitted }

// History returns the per-iteration evaluation history from the last fit.
func (r *Ranker) History() map[string][]float64 { return r.history }

// GetParams returns the training hyperparameters.
func (r *Ranker) GetParams(deep bool) map[string]interface{} {
	return paramsToMap(r.params)
}

// SetParams updates the training hyperparameters.
func (r *Ranker) SetParams(params map[string]interface{}) error {
	return applyParamsMap(&r.params, params)
}

// Clone returns an unfitted copy with the same parameters.
func (r *Ranker) Clone() model.SKLearnCompatible {
	return &Ranker{
		StateManager: model.NewStateManager(),
		params:       r.params,
		logger:       r.logger,
	}
}

// fitBooster runs one training pass shared by all wrappers, recording
// the evaluation history and logging the fit.
func fitBooster(params TrainingParams, X, y, XVal, yVal mat.Matrix, groups, valGroups []int, logger log.Logger, callbacks ...Callback) (*Model, map[string][]float64, error) {
	start := time.Now()
	rows, cols := 0, 0
	if X != nil {
		rows, cols = X.Dims()
	}
	logger.Info("fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
	)

	var history map[string][]float64
	trainer := NewTrainer(params)
	cbs := append([]Callback{RecordEvaluation(&history)}, callbacks...)
	if err := trainer.FitWithValidation(X, y, XVal, yVal, groups, valGroups, cbs...); err != nil {
		logger.Error("fit failed", err, log.OperationKey, log.OperationFit)
		return nil, nil, err
	}

	logger.Info("fit finished",
		log.OperationKey, log.OperationFit,
		log.IterationKey, trainer.Model().NumIterations(),
		log.DurationSecondsKey, time.Since(start).Seconds(),
	)
	return trainer.Model(), history, nil
}

// paramsToMap flattens TrainingParams to a scikit-learn style map.
func paramsToMap(p TrainingParams) map[string]interface{} {
	return map[string]interface{}{
		"num_iterations":        p.NumIterations,
		"learning_rate":         p.LearningRate,
		"num_leaves":            p.NumLeaves,
		"max_depth":             p.MaxDepth,
		"min_child_samples":     p.MinChildSamples,
		"min_child_weight":      p.MinChildWeight,
		"lambda_l2":             p.Lambda,
		"lambda_l1":             p.Alpha,
		"min_gain_to_split":     p.MinGainToSplit,
		"subsample":             p.SubsampleRatio,
		"colsample_bytree":      p.ColsampleRatio,
		"max_bin":               p.MaxBin,
		"objective":             p.Objective,
		"seed":                  p.Seed,
		"verbosity":             p.Verbosity,
		"early_stopping_rounds": p.EarlyStoppingRounds,
	}
}

// applyParamsMap updates TrainingParams from a scikit-learn style map,
// accepting the common aliases for each key.
func applyParamsMap(p *TrainingParams, params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "num_iterations", "n_estimators", "num_boost_round":
			n, err := asInt(key, value)
			if err != nil {
				return err
			}
			p.NumIterations = n
		case "learning_rate", "eta":
			f, err := asFloat(key, value)
			if err != nil {
				return err
			}
			p.LearningRate = f
		case "num_leaves":
			n, err := asInt(key, value)
			if err != nil {
				return err
			}
			p.NumLeaves = n
		case "max_depth":
			n, err := asInt(key, value)
			if err != nil {
				return err
			}
			p.MaxDepth = n
		case "min_child_samples", "min_data_in_leaf":
			n, err := asInt(key, value)
			if err != nil {
				return err
			}
			p.MinChildSamples = n
		case "min_child_weight":
			f, err := asFloat(key, value)
			if err != nil {
				return err
			}
			p.MinChildWeight = f
		case "lambda_l2", "reg_lambda":
			f, err := asFloat(key, value)
			if err != nil {
				return err
			}
			p.Lambda = f
		case "lambda_l1", "reg_alpha":
			f, err := asFloat(key, value)
			if err != nil {
				return err
			}
			p.Alpha = f
		case "min_gain_to_split", "min_split_gain":
			f, err := asFloat(key, value)
			if err != nil {
				return err
			}
			p.MinGainToSplit = f
		case "subsample", "bagging_fraction":
			f, err := asFloat(key, value)
			if err != nil {
				return err
			}
			p.SubsampleRatio = f
		case "colsample_bytree", "feature_fraction":
			f, err := asFloat(key, value)
			if err != nil {
				return err
			}
			p.ColsampleRatio = f
		case "max_bin":
			n, err := asInt(key, value)
			if err != nil {
				return err
			}
			p.MaxBin = n
		case "objective":
			s, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			p.Objective = s
		case "seed", "random_state":
			n, err := asInt(key, value)
			if err != nil {
				return err
			}
			p.Seed = uint64(n)
		case "verbosity", "verbose":
			n, err := asInt(key, value)
			if err != nil {
				return err
			}
			p.Verbosity = n
		case "early_stopping_rounds":
			n, err := asInt(key, value)
			if err != nil {
				return err
			}
			p.EarlyStoppingRounds = n
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

func asFloat(key string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	}
	return 0, errors.NewValidationError(key, "must be numeric", value)
}

func asInt(key string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	}
	return 0, errors.NewValidationError(key, "must be an integer", value)
}

// vecToColumn wraps a vector as an n x 1 dense matrix.
func vecToColumn(v *mat.VecDense) *mat.Dense {
	out := mat.NewDense(v.Len(), 1, nil)
	for i := 0; i < v.Len(); i++ {
		out.Set(i, 0, v.AtVec(i))
	}
	return out
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
