package gbdt

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/metrics"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// ObjectiveFunction supplies the gradients, hessians, and evaluation
// metric for one training objective. Gradients are with respect to the
// raw (untransformed) scores. The groups argument carries per-group row
// counts for the ranking objective and is ignored otherwise.
type ObjectiveFunction interface {
	// Name returns the objective identifier.
	Name() string

	// InitScore returns the constant raw score boosting starts from.
	InitScore(y []float64) float64

	// GradHess fills grad and hess for the current raw predictions.
	GradHess(pred, y []float64, groups []int, grad, hess []float64)

	// Transform maps a raw score to the output scale.
	Transform(raw float64) float64

	// EvalName returns the validation metric name, e.g. "rmse".
	EvalName() string

	// Eval computes the validation metric on raw predictions.
	Eval(pred, y []float64, groups []int) (float64, error)

	// Maximize reports whether larger Eval values are better.
	Maximize() bool
}

// CreateObjectiveFunction returns the objective for the given name.
func CreateObjectiveFunction(name string) (ObjectiveFunction, error) {
	switch name {
	case ObjectiveL2, "regression", "mse":
		return &l2Objective{}, nil
	case ObjectiveBinary:
		return &binaryObjective{}, nil
	case ObjectiveLambdarank:
		return &lambdarankObjective{}, nil
	default:
		return nil, errors.NewValueError("gbdt.CreateObjectiveFunction",
			"unknown objective: "+name)
	}
}

// l2Objective is squared-error regression.
type l2Objective struct{}

func (o *l2Objective) Name() string { return ObjectiveL2 }

func (o *l2Objective) InitScore(y []float64) float64 {
	var sum float64
	for _, v := range y {
		sum += v
	}
	return sum / float64(len(y))
}

func (o *l2Objective) GradHess(pred, y []float64, _ []int, grad, hess []float64) {
	for i := range y {
		grad[i] = pred[i] - y[i]
		hess[i] = 1
	}
}

func (o *l2Objective) Transform(raw float64) float64 { return raw }

func (o *l2Objective) EvalName() string { return "rmse" }

func (o *l2Objective) Eval(pred, y []float64, _ []int) (float64, error) {
	return metrics.RMSE(mat.NewVecDense(len(y), y), mat.NewVecDense(len(pred), pred))
}

func (o *l2Objective) Maximize() bool { return false }

// binaryObjective is binary classification with logistic loss. Labels
// must be 0 or 1; raw scores are log-odds.
type binaryObjective struct{}

func (o *binaryObjective) Name() string { return ObjectiveBinary }

func (o *binaryObjective) InitScore(y []float64) float64 {
	var pos float64
	for _, v := range y {
		pos += v
	}
	p := pos / float64(len(y))
	// Clamp so a single-class training set still yields a finite score.
	p = errors.ClipValue(p, 1e-12, 1-1e-12)
	return math.Log(p / (1 - p))
}

func (o *binaryObjective) GradHess(pred, y []float64, _ []int, grad, hess []float64) {
	for i := range y {
		p := sigmoid(pred[i])
		grad[i] = p - y[i]
		hess[i] = math.Max(p*(1-p), 1e-16)
	}
}

func (o *binaryObjective) Transform(raw float64) float64 { return sigmoid(raw) }

func (o *binaryObjective) EvalName() string { return "binary_logloss" }

func (o *binaryObjective) Eval(pred, y []float64, _ []int) (float64, error) {
	proba := make([]float64, len(pred))
	for i, raw := range pred {
		proba[i] = sigmoid(raw)
	}
	return metrics.BinaryLogLoss(mat.NewVecDense(len(y), y), mat.NewVecDense(len(proba), proba))
}

func (o *binaryObjective) Maximize() bool { return false }

// lambdarankObjective is pairwise learning-to-rank: within each group,
// every pair ordered by relevance contributes logistic gradients pushing
// the more relevant row's score above the less relevant one's.
type lambdarankObjective struct{}

func (o *lambdarankObjective) Name() string { return ObjectiveLambdarank }

func (o *lambdarankObjective) InitScore(_ []float64) float64 { return 0 }

func (o *lambdarankObjective) GradHess(pred, y []float64, groups []int, grad, hess []float64) {
	for i := range grad {
		grad[i] = 0
		hess[i] = 0
	}
	if len(groups) == 0 {
		groups = []int{len(y)}
	}

	start := 0
	for _, count := range groups {
		for a := start; a < start+count; a++ {
			for b := start; b < start+count; b++ {
				if y[a] <= y[b] {
					continue
				}
				// a is more relevant than b.
				rho := sigmoid(-(pred[a] - pred[b]))
				weight := rho * (1 - rho)
				grad[a] -= rho
				grad[b] += rho
				hess[a] += weight
				hess[b] += weight
			}
		}
		start += count
	}
	for i := range hess {
		hess[i] = math.Max(hess[i], 1e-16)
	}
}

func (o *lambdarankObjective) Transform(raw float64) float64 { return raw }

func (o *lambdarankObjective) EvalName() string { return "ndcg" }

func (o *lambdarankObjective) Eval(pred, y []float64, groups []int) (float64, error) {
	if len(groups) == 0 {
		groups = []int{len(y)}
	}
	return metrics.GroupedNDCG(
		mat.NewVecDense(len(y), y),
		mat.NewVecDense(len(pred), pred),
		groups,
	)
}

func (o *lambdarankObjective) Maximize() bool { return true }

// sigmoid with an overflow-guarded exponential, so extreme raw scores
// map to exactly 0 or 1 instead of NaN.
func sigmoid(x float64) float64 {
	return 1 / (1 + errors.StabilizeExp(-x))
}
