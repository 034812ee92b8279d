package gbdt

import (
	"math"
	"time"

	"github.com/RossDeVito/AutoML-PRS/pkg/log"
)

// CallbackEnv is the state passed to callbacks after each boosting
// iteration. Setting StopTraining ends the loop; BestIteration tells the
// trainer where to truncate the model.
type CallbackEnv struct {
	Iteration     int
	BeginTime     time.Time
	EvalResults   map[string]float64
	StopTraining  bool
	BestIteration int
}

// Callback runs once per boosting iteration.
type Callback func(env *CallbackEnv) error

// RecordEvaluation appends every per-iteration metric to history, keyed
// by "<dataset>_<metric>".
func RecordEvaluation(history *map[string][]float64) Callback {
	return func(env *CallbackEnv) error {
		if *history == nil {
			*history = make(map[string][]float64)
		}
		for name, value := range env.EvalResults {
			(*history)[name] = append((*history)[name], value)
		}
		return nil
	}
}

// LogEvaluation logs the evaluation results every period iterations.
func LogEvaluation(period int) Callback {
	logger := log.GetLoggerWithName("gbdt.trainer")
	return func(env *CallbackEnv) error {
		if period <= 0 || env.Iteration%period != 0 {
			return nil
		}
		fields := []any{log.IterationKey, env.Iteration}
		for name, value := range env.EvalResults {
			fields = append(fields, name, value)
		}
		logger.Debug("evaluation", fields...)
		return nil
	}
}

// EarlyStopping stops training once the tracked metric has not improved
// for the given number of rounds. The best iteration is recorded so the
// trainer can truncate the ensemble back to it.
func EarlyStopping(rounds int, metric string, maximize bool) Callback {
	logger := log.GetLoggerWithName("gbdt.trainer")
	bestScore := math.Inf(1)
	if maximize {
		bestScore = math.Inf(-1)
	}
	bestIteration := 0
	roundsNoImprove := 0

	return func(env *CallbackEnv) error {
		value, ok := env.EvalResults[metric]
		if !ok {
			return nil
		}

		improved := value < bestScore
		if maximize {
			improved = value > bestScore
		}
		if improved {
			bestScore = value
			bestIteration = env.Iteration
			roundsNoImprove = 0
		} else {
			roundsNoImprove++
		}
		env.BestIteration = bestIteration

		if roundsNoImprove >= rounds {
			logger.Info("early stopping",
				log.IterationKey, env.Iteration,
				log.BestIterationKey, bestIteration,
				"metric", metric,
				"best_score", bestScore,
			)
			env.StopTraining = true
		}
		return nil
	}
}

// TimeLimit stops training after the given wall-clock duration.
func TimeLimit(maxDuration time.Duration) Callback {
	start := time.Now()
	return func(env *CallbackEnv) error {
		if time.Since(start) > maxDuration {
			env.StopTraining = true
		}
		return nil
	}
}

// CallbackList runs a set of callbacks with a shared environment.
type CallbackList struct {
	callbacks []Callback
	env       *CallbackEnv
}

// NewCallbackList creates a callback list over the given callbacks.
func NewCallbackList(callbacks ...Callback) *CallbackList {
	return &CallbackList{
		callbacks: callbacks,
		env: &CallbackEnv{
			BestIteration: -1,
			EvalResults:   make(map[string]float64),
		},
	}
}

// BeforeIteration marks the start of an iteration.
func (cl *CallbackList) BeforeIteration(iteration int) {
	cl.env.Iteration = iteration
	cl.env.BeginTime = time.Now()
}

// AfterIteration runs all callbacks with the iteration's evaluation
// results.
func (cl *CallbackList) AfterIteration(iteration int, evalResults map[string]float64) error {
	cl.env.Iteration = iteration
	cl.env.EvalResults = evalResults

	for _, cb := range cl.callbacks {
		if err := cb(cl.env); err != nil {
			return err
		}
	}
	return nil
}

// ShouldStop reports whether any callback requested a stop.
func (cl *CallbackList) ShouldStop() bool {
	return cl.env.StopTraining
}

// BestIteration returns the best iteration seen by an early-stopping
// callback, or -1 when none tracked one.
func (cl *CallbackList) BestIteration() int {
	return cl.env.BestIteration
}
