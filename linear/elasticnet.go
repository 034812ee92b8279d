// Package linear provides the linear base learners for the PRS estimator
// suite: an elastic net fitted by coordinate descent and a stochastic
// gradient descent regressor with optional early stopping. Both expose
// the scikit-learn style Fit/Predict/Clone surface the partitioned
// ensemble and the fit pipeline build on.
package linear

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/core/model"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// Feature selection orders for the coordinate descent sweep.
const (
	SelectionCyclic = "cyclic"
	SelectionRandom = "random"
)

// ElasticNet is a linear regression model with combined L1/L2 priors,
// fitted by coordinate descent. It minimizes
//
//	1/(2n) ||y - Xw||² + alpha * l1Ratio * ||w||₁
//	                   + alpha * (1 - l1Ratio)/2 * ||w||²
//
// The intercept is always fitted, by centering internally.
type ElasticNet struct {
	model.BaseEstimator

	alpha     float64
	l1Ratio   float64
	maxIter   int
	tol       float64
	selection string
	seed      uint64

	coef      *mat.VecDense
	intercept float64
	nFeatures int
	nIter     int
}

// ElasticNetOption configures an ElasticNet.
type ElasticNetOption func(*ElasticNet)

// WithAlpha sets the overall regularization strength.
func WithAlpha(alpha float64) ElasticNetOption {
	return func(e *ElasticNet) { e.alpha = alpha }
}

// WithL1Ratio sets the L1 share of the penalty (1.0 is pure lasso).
func WithL1Ratio(ratio float64) ElasticNetOption {
	return func(e *ElasticNet) { e.l1Ratio = ratio }
}

// WithMaxIter sets the maximum number of coordinate descent sweeps.
func WithMaxIter(n int) ElasticNetOption {
	return func(e *ElasticNet) { e.maxIter = n }
}

// WithTol sets the convergence tolerance on the coefficient updates.
func WithTol(tol float64) ElasticNetOption {
	return func(e *ElasticNet) { e.tol = tol }
}

// WithSelection sets the sweep order, SelectionCyclic or SelectionRandom.
func WithSelection(selection string) ElasticNetOption {
	return func(e *ElasticNet) { e.selection = selection }
}

// WithSeed sets the seed for the random sweep order.
func WithSeed(seed uint64) ElasticNetOption {
	return func(e *ElasticNet) { e.seed = seed }
}

// NewElasticNet creates an ElasticNet with scikit-learn's defaults:
// alpha 1.0, l1Ratio 0.5, 1000 sweeps, tolerance 1e-4, cyclic selection.
func NewElasticNet(opts ...ElasticNetOption) *ElasticNet {
	e := &ElasticNet{
		alpha:     1.0,
		l1Ratio:   0.5,
		maxIter:   1000,
		tol:       1e-4,
		selection: SelectionCyclic,
		seed:      1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fit learns the coefficients by coordinate descent. Hitting the sweep
// limit without convergence reports a ConvergenceWarning and keeps the
// last iterate.
func (e *ElasticNet) Fit(X, y mat.Matrix) error {
	n, p := X.Dims()
	ry, cy := y.Dims()
	if n == 0 || p == 0 {
		return errors.NewModelError("ElasticNet.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != n {
		return errors.NewDimensionError("ElasticNet.Fit", n, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("ElasticNet.Fit", "y must be a column vector")
	}
	if e.selection != SelectionCyclic && e.selection != SelectionRandom {
		return errors.NewValueError("ElasticNet.Fit", "selection must be 'cyclic' or 'random'")
	}

	// Center features and target so the intercept drops out of the
	// coordinate updates.
	colMean := make([]float64, p)
	for j := 0; j < p; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += X.At(i, j)
		}
		colMean[j] = sum / float64(n)
	}
	var yMean float64
	for i := 0; i < n; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(n)

	xc := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			xc.Set(i, j, X.At(i, j)-colMean[j])
		}
	}

	w := make([]float64, p)
	resid := make([]float64, n)
	for i := 0; i < n; i++ {
		resid[i] = y.At(i, 0) - yMean
	}

	// Per-feature second moments for the update denominators.
	sqNorm := make([]float64, p)
	for j := 0; j < p; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			v := xc.At(i, j)
			sum += v * v
		}
		sqNorm[j] = sum / float64(n)
	}

	l1Penalty := e.alpha * e.l1Ratio
	l2Penalty := e.alpha * (1 - e.l1Ratio)
	rng := rand.New(rand.NewPCG(e.seed, e.seed))

	converged := false
	iter := 0
	for ; iter < e.maxIter; iter++ {
		order := make([]int, p)
		for j := range order {
			order[j] = j
		}
		if e.selection == SelectionRandom {
			rng.Shuffle(p, func(a, b int) { order[a], order[b] = order[b], order[a] })
		}

		maxDelta := 0.0
		for _, j := range order {
			if sqNorm[j] == 0 {
				continue
			}

			var dot float64
			for i := 0; i < n; i++ {
				dot += xc.At(i, j) * resid[i]
			}
			rho := dot/float64(n) + sqNorm[j]*w[j]

			updated := errors.SafeDivide(softThreshold(rho, l1Penalty), sqNorm[j]+l2Penalty)
			if updated == w[j] {
				continue
			}

			delta := w[j] - updated
			for i := 0; i < n; i++ {
				resid[i] += xc.At(i, j) * delta
			}
			w[j] = updated
			if math.Abs(delta) > maxDelta {
				maxDelta = math.Abs(delta)
			}
		}

		if maxDelta < e.tol {
			converged = true
			iter++
			break
		}
	}
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("ElasticNet", e.maxIter,
			"coefficient updates did not reach tolerance"))
	}
	if err := errors.CheckNumericalStability("ElasticNet.Fit", w, iter); err != nil {
		return err
	}

	e.coef = mat.NewVecDense(p, w)
	e.intercept = yMean
	for j := 0; j < p; j++ {
		e.intercept -= colMean[j] * w[j]
	}
	e.nFeatures = p
	e.nIter = iter
	e.SetFitted()
	return nil
}

// Predict returns Xw + b as an n×1 matrix.
func (e *ElasticNet) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("ElasticNet", "Predict")
	}
	n, p := X.Dims()
	if p != e.nFeatures {
		return nil, errors.NewDimensionError("ElasticNet.Predict", e.nFeatures, p, 1)
	}

	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		pred := e.intercept
		for j := 0; j < p; j++ {
			pred += X.At(i, j) * e.coef.AtVec(j)
		}
		out.Set(i, 0, pred)
	}
	return out, nil
}

// Weights returns the learned coefficients.
func (e *ElasticNet) Weights() []float64 {
	if e.coef == nil {
		return nil
	}
	out := make([]float64, e.coef.Len())
	for i := range out {
		out[i] = e.coef.AtVec(i)
	}
	return out
}

// Intercept returns the learned intercept.
func (e *ElasticNet) Intercept() float64 {
	return e.intercept
}

// NIter returns the number of coordinate descent sweeps run by Fit.
func (e *ElasticNet) NIter() int {
	return e.nIter
}

// Score computes the coefficient of determination R².
func (e *ElasticNet) Score(X, y mat.Matrix) (float64, error) {
	if !e.IsFitted() {
		return 0, errors.NewNotFittedError("ElasticNet", "Score")
	}
	yPred, err := e.Predict(X)
	if err != nil {
		return 0, err
	}
	return r2(y, yPred)
}

// GetParams returns the model's hyperparameters.
func (e *ElasticNet) GetParams(deep bool) map[string]interface{} {
	return map[string]interface{}{
		"alpha":     e.alpha,
		"l1_ratio":  e.l1Ratio,
		"max_iter":  e.maxIter,
		"tol":       e.tol,
		"selection": e.selection,
		"seed":      e.seed,
	}
}

// SetParams sets the model's hyperparameters.
func (e *ElasticNet) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "alpha":
			f, err := toFloat(key, value)
			if err != nil {
				return err
			}
			e.alpha = f
		case "l1_ratio":
			f, err := toFloat(key, value)
			if err != nil {
				return err
			}
			e.l1Ratio = f
		case "max_iter":
			n, err := toInt(key, value)
			if err != nil {
				return err
			}
			e.maxIter = n
		case "tol":
			f, err := toFloat(key, value)
			if err != nil {
				return err
			}
			e.tol = f
		case "selection":
			s, ok := value.(string)
			if !ok {
				return errors.NewValidationError("selection", "must be a string", value)
			}
			e.selection = s
		case "seed":
			n, err := toInt(key, value)
			if err != nil {
				return err
			}
			e.seed = uint64(n)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

// Clone returns a fresh untrained copy with identical hyperparameters.
func (e *ElasticNet) Clone() model.SKLearnCompatible {
	return &ElasticNet{
		alpha:     e.alpha,
		l1Ratio:   e.l1Ratio,
		maxIter:   e.maxIter,
		tol:       e.tol,
		selection: e.selection,
		seed:      e.seed,
	}
}

func softThreshold(value, threshold float64) float64 {
	switch {
	case value > threshold:
		return value - threshold
	case value < -threshold:
		return value + threshold
	default:
		return 0
	}
}

// r2 computes R² for column-vector y and predictions.
func r2(y, yPred mat.Matrix) (float64, error) {
	n, _ := y.Dims()
	var yMean float64
	for i := 0; i < n; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		yTrue := y.At(i, 0)
		diff := yTrue - yPred.At(i, 0)
		tss += (yTrue - yMean) * (yTrue - yMean)
		rss += diff * diff
	}
	if tss == 0 {
		return 0, errors.Newf("total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}

func toFloat(key string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, errors.NewValidationError(key, "must be numeric", value)
}

func toInt(key string, value interface{}) (int, error) {
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
