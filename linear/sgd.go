package linear

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/core/model"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// Learning rate schedules for SGDRegressor.
const (
	LearningRateOptimal    = "optimal"
	LearningRateInvScaling = "invscaling"
	LearningRateAdaptive   = "adaptive"
)

// SGDRegressor is a linear model fitted by minimizing the squared loss
// with an elastic net penalty via stochastic gradient descent. When
// early stopping is enabled (the default for the PRS variants), a
// fraction of the training data is held out and training stops once the
// held-out loss stops improving for nIterNoChange consecutive epochs.
type SGDRegressor struct {
	model.BaseEstimator

	alpha          float64
	l1Ratio        float64
	maxIter        int
	tol            float64
	eta0           float64
	powerT         float64
	learningRate   string
	nIterNoChange  int
	earlyStopping  bool
	validationFrac float64
	shuffle        bool
	seed           uint64

	coef      []float64
	intercept float64
	nFeatures int
	nIter     int
	sampleT   float64 // running per-sample step counter, persists across PartialFit
}

// SGDOption configures an SGDRegressor.
type SGDOption func(*SGDRegressor)

// WithSGDAlpha sets the regularization strength.
func WithSGDAlpha(alpha float64) SGDOption {
	return func(s *SGDRegressor) { s.alpha = alpha }
}

// WithSGDL1Ratio sets the L1 share of the elastic net penalty.
func WithSGDL1Ratio(ratio float64) SGDOption {
	return func(s *SGDRegressor) { s.l1Ratio = ratio }
}

// WithSGDMaxIter sets the maximum number of epochs.
func WithSGDMaxIter(n int) SGDOption {
	return func(s *SGDRegressor) { s.maxIter = n }
}

// WithSGDTol sets the minimum loss improvement counted as progress.
func WithSGDTol(tol float64) SGDOption {
	return func(s *SGDRegressor) { s.tol = tol }
}

// WithEta0 sets the initial learning rate.
func WithEta0(eta float64) SGDOption {
	return func(s *SGDRegressor) { s.eta0 = eta }
}

// WithLearningRate selects the schedule: LearningRateOptimal,
// LearningRateInvScaling, or LearningRateAdaptive.
func WithLearningRate(schedule string) SGDOption {
	return func(s *SGDRegressor) { s.learningRate = schedule }
}

// WithNIterNoChange sets how many epochs without improvement are
// tolerated before stopping (or, for the adaptive schedule, before the
// learning rate is cut).
func WithNIterNoChange(n int) SGDOption {
	return func(s *SGDRegressor) { s.nIterNoChange = n }
}

// WithEarlyStopping toggles the internal validation hold-out.
func WithEarlyStopping(enabled bool) SGDOption {
	return func(s *SGDRegressor) { s.earlyStopping = enabled }
}

// WithSGDSeed sets the seed for shuffling and the validation hold-out.
func WithSGDSeed(seed uint64) SGDOption {
	return func(s *SGDRegressor) { s.seed = seed }
}

// NewSGDRegressor creates an SGDRegressor. Defaults follow the PRS
// configuration: elastic net penalty, invscaling schedule, eta0 0.01,
// 10000 epochs maximum, early stopping enabled with a 0.1 hold-out.
func NewSGDRegressor(opts ...SGDOption) *SGDRegressor {
	s := &SGDRegressor{
		alpha:          1e-4,
		l1Ratio:        0.15,
		maxIter:        10000,
		tol:            1e-3,
		eta0:           0.01,
		powerT:         0.25,
		learningRate:   LearningRateInvScaling,
		nIterNoChange:  5,
		earlyStopping:  true,
		validationFrac: 0.1,
		shuffle:        true,
		seed:           1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fit trains the model. Reaching maxIter without the stopping criterion
// firing reports a ConvergenceWarning.
func (s *SGDRegressor) Fit(X, y mat.Matrix) error {
	n, p := X.Dims()
	ry, cy := y.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("SGDRegressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != n {
		return errors.NewDimensionError("SGDRegressor.Fit", n, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("SGDRegressor.Fit", "y must be a column vector")
	}
	switch s.learningRate {
	case LearningRateOptimal, LearningRateInvScaling, LearningRateAdaptive:
	default:
		return errors.NewValueError("SGDRegressor.Fit",
			"learning_rate must be 'optimal', 'invscaling', or 'adaptive'")
	}

	s.coef = make([]float64, p)
	s.intercept = 0
	s.nFeatures = p
	s.sampleT = 1

	rng := rand.New(rand.NewPCG(s.seed, s.seed))

	// Optional hold-out for early stopping.
	trainIdx := make([]int, 0, n)
	var valIdx []int
	if s.earlyStopping {
		for i := 0; i < n; i++ {
			if rng.Float64() < s.validationFrac {
				valIdx = append(valIdx, i)
			} else {
				trainIdx = append(trainIdx, i)
			}
		}
		if len(valIdx) == 0 || len(trainIdx) == 0 {
			return errors.NewModelError("SGDRegressor.Fit",
				"early-stopping hold-out left an empty partition", errors.ErrEmptyData)
		}
	} else {
		for i := 0; i < n; i++ {
			trainIdx = append(trainIdx, i)
		}
	}

	eta := s.eta0
	bestLoss := math.Inf(1)
	noImprove := 0
	stopped := false

	for epoch := 0; epoch < s.maxIter; epoch++ {
		s.nIter = epoch + 1
		if s.shuffle {
			rng.Shuffle(len(trainIdx), func(a, b int) {
				trainIdx[a], trainIdx[b] = trainIdx[b], trainIdx[a]
			})
		}

		for _, i := range trainIdx {
			eta = s.stepSize(eta)
			s.update(X, y, i, eta)
			s.sampleT++
		}

		// Stopping criterion: held-out loss when early stopping is on,
		// otherwise training loss.
		var loss float64
		if s.earlyStopping {
			loss = s.meanSquaredLoss(X, y, valIdx)
		} else {
			loss = s.meanSquaredLoss(X, y, trainIdx)
		}
		// A diverged run surfaces as an error instead of fitted garbage.
		if err := errors.CheckScalar("SGDRegressor.Fit", loss, epoch); err != nil {
			return err
		}

		if loss < bestLoss-s.tol {
			bestLoss = loss
			noImprove = 0
		} else {
			noImprove++
		}
		if noImprove >= s.nIterNoChange {
			if s.learningRate == LearningRateAdaptive {
				eta /= 5
				noImprove = 0
				if eta >= 1e-6 {
					continue
				}
			}
			stopped = true
			break
		}
	}
	if !stopped {
		errors.Warn(errors.NewConvergenceWarning("SGDRegressor", s.maxIter,
			"stopping criterion did not fire"))
	}

	s.SetFitted()
	return nil
}

// PartialFit runs a single epoch over the given samples without the
// early-stopping hold-out, continuing from the current coefficients.
// classes is ignored for regression and present to satisfy the
// incremental learner interface.
func (s *SGDRegressor) PartialFit(X, y mat.Matrix, classes []int) error {
	n, p := X.Dims()
	ry, cy := y.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("SGDRegressor.PartialFit", "empty data", errors.ErrEmptyData)
	}
	if ry != n {
		return errors.NewDimensionError("SGDRegressor.PartialFit", n, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("SGDRegressor.PartialFit", "y must be a column vector")
	}

	if s.coef == nil {
		s.coef = make([]float64, p)
		s.nFeatures = p
		s.sampleT = 1
	} else if p != s.nFeatures {
		return errors.NewDimensionError("SGDRegressor.PartialFit", s.nFeatures, p, 1)
	}

	eta := s.eta0
	for i := 0; i < n; i++ {
		eta = s.stepSize(eta)
		s.update(X, y, i, eta)
		s.sampleT++
	}
	s.nIter++
	s.SetFitted()
	return nil
}

// stepSize returns the learning rate for the current per-sample step.
// The adaptive schedule keeps the rate passed in, which Fit cuts on
// plateaus.
func (s *SGDRegressor) stepSize(current float64) float64 {
	switch s.learningRate {
	case LearningRateInvScaling:
		return s.eta0 / math.Pow(s.sampleT, s.powerT)
	case LearningRateOptimal:
		t0 := 1.0 / (s.alpha * s.eta0)
		return 1.0 / (s.alpha * (t0 + s.sampleT))
	default:
		return current
	}
}

// update applies one stochastic gradient step for sample i.
func (s *SGDRegressor) update(X, y mat.Matrix, i int, eta float64) {
	pred := s.intercept
	for j := 0; j < s.nFeatures; j++ {
		pred += X.At(i, j) * s.coef[j]
	}
	residual := pred - y.At(i, 0)

	for j := 0; j < s.nFeatures; j++ {
		grad := residual * X.At(i, j)
		grad += s.alpha * (1 - s.l1Ratio) * s.coef[j]
		grad += s.alpha * s.l1Ratio * sign(s.coef[j])
		s.coef[j] -= eta * grad
	}
	s.intercept -= eta * residual
}

func (s *SGDRegressor) meanSquaredLoss(X, y mat.Matrix, idx []int) float64 {
	var sum float64
	for _, i := range idx {
		pred := s.intercept
		for j := 0; j < s.nFeatures; j++ {
			pred += X.At(i, j) * s.coef[j]
		}
		diff := pred - y.At(i, 0)
		sum += diff * diff
	}
	return sum / float64(len(idx))
}

// Predict returns Xw + b as an n×1 matrix.
func (s *SGDRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("SGDRegressor", "Predict")
	}
	n, p := X.Dims()
	if p != s.nFeatures {
		return nil, errors.NewDimensionError("SGDRegressor.Predict", s.nFeatures, p, 1)
	}

	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		pred := s.intercept
		for j := 0; j < p; j++ {
			pred += X.At(i, j) * s.coef[j]
		}
		out.Set(i, 0, pred)
	}
	return out, nil
}

// Weights returns the learned coefficients.
func (s *SGDRegressor) Weights() []float64 {
	if s.coef == nil {
		return nil
	}
	out := make([]float64, len(s.coef))
	copy(out, s.coef)
	return out
}

// Intercept returns the learned intercept.
func (s *SGDRegressor) Intercept() float64 {
	return s.intercept
}

// NIter returns the number of epochs run so far.
func (s *SGDRegressor) NIter() int {
	return s.nIter
}

// Score computes the coefficient of determination R².
func (s *SGDRegressor) Score(X, y mat.Matrix) (float64, error) {
	if !s.IsFitted() {
		return 0, errors.NewNotFittedError("SGDRegressor", "Score")
	}
	yPred, err := s.Predict(X)
	if err != nil {
		return 0, err
	}
	return r2(y, yPred)
}

// GetParams returns the model's hyperparameters.
func (s *SGDRegressor) GetParams(deep bool) map[string]interface{} {
	return map[string]interface{}{
		"alpha":            s.alpha,
		"l1_ratio":         s.l1Ratio,
		"max_iter":         s.maxIter,
		"tol":              s.tol,
		"eta0":             s.eta0,
		"learning_rate":    s.learningRate,
		"n_iter_no_change": s.nIterNoChange,
		"early_stopping":   s.earlyStopping,
		"seed":             s.seed,
	}
}

// SetParams sets the model's hyperparameters.
func (s *SGDRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "alpha":
			f, err := toFloat(key, value)
			if err != nil {
				return err
			}
			s.alpha = f
		case "l1_ratio":
			f, err := toFloat(key, value)
			if err != nil {
				return err
			}
			s.l1Ratio = f
		case "max_iter":
			n, err := toInt(key, value)
			if err != nil {
				return err
			}
			s.maxIter = n
		case "tol":
			f, err := toFloat(key, value)
			if err != nil {
				return err
			}
			s.tol = f
		case "eta0":
			f, err := toFloat(key, value)
			if err != nil {
				return err
			}
			s.eta0 = f
		case "learning_rate":
			schedule, ok := value.(string)
			if !ok {
				return errors.NewValidationError("learning_rate", "must be a string", value)
			}
			s.learningRate = schedule
		case "n_iter_no_change":
			n, err := toInt(key, value)
			if err != nil {
				return err
			}
			s.nIterNoChange = n
		case "early_stopping":
			enabled, ok := value.(bool)
			if !ok {
				return errors.NewValidationError("early_stopping", "must be a bool", value)
			}
			s.earlyStopping = enabled
		case "seed":
			n, err := toInt(key, value)
			if err != nil {
				return err
			}
			s.seed = uint64(n)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

// Clone returns a fresh untrained copy with identical hyperparameters.
func (s *SGDRegressor) Clone() model.SKLearnCompatible {
	return &SGDRegressor{
		alpha:          s.alpha,
		l1Ratio:        s.l1Ratio,
		maxIter:        s.maxIter,
		tol:            s.tol,
		eta0:           s.eta0,
		powerT:         s.powerT,
		learningRate:   s.learningRate,
		nIterNoChange:  s.nIterNoChange,
		earlyStopping:  s.earlyStopping,
		validationFrac: s.validationFrac,
		shuffle:        s.shuffle,
		seed:           s.seed,
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
