package prs

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/dataset"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
	"github.com/RossDeVito/AutoML-PRS/pkg/log"
	"github.com/RossDeVito/AutoML-PRS/preprocessing"
)

// PipelineState tracks where a fit pipeline is in its lifecycle.
type PipelineState int

const (
	StateCreated PipelineState = iota
	StateFeaturesSelected
	StateSplit
	StateModelConstructed
	StateFitting
	StateFitted
	StateFailed
)

// String returns the state name.
func (s PipelineState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateFeaturesSelected:
		return "features_selected"
	case StateSplit:
		return "split"
	case StateModelConstructed:
		return "model_constructed"
	case StateFitting:
		return "fitting"
	case StateFitted:
		return "fitted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Learner is what the pipeline constructs and fits: it receives the
// training and validation portions plus optional per-group row counts
// (run-length encoded, for the ranking task).
type Learner interface {
	FitSplit(trainX dataset.Table, trainY *mat.VecDense, valX dataset.Table, valY *mat.VecDense, groups, valGroups []int) error
	PredictTable(X dataset.Table) (*mat.VecDense, error)
}

// DefaultValFrac is the validation fraction used when none is set.
const DefaultValFrac = 0.1

// FitResult is the outcome of a successful pipeline fit.
type FitResult struct {
	Model        Learner
	TrainSeconds float64
}

// FitPipeline runs one estimator fit end to end: optional threshold
// feature subsetting, optional min-max scaling, validation split, learner
// construction, and the fit itself. Any error moves the pipeline to the
// failed state and propagates unmodified.
type FitPipeline struct {
	Subsetter *Subsetter
	Threshold string
	Scaler    *preprocessing.MinMaxScaler
	ValFrac   float64
	Seed      uint64
	Construct func() (Learner, error)

	state  PipelineState
	runID  string
	logger log.Logger
}

// NewFitPipeline creates a pipeline in the created state.
func NewFitPipeline(construct func() (Learner, error)) *FitPipeline {
	return &FitPipeline{
		ValFrac:   DefaultValFrac,
		Seed:      1,
		Construct: construct,
		state:     StateCreated,
		logger:    log.GetLoggerWithName("prs.FitPipeline"),
	}
}

// State returns the pipeline's current state.
func (p *FitPipeline) State() PipelineState {
	return p.state
}

// Fit runs the whole pipeline on the given table and labels. groupLabels
// are optional per-row group labels for the ranking task; they are split
// with the same mask as the rows and run-length encoded for the learner.
func (p *FitPipeline) Fit(X dataset.Table, y *mat.VecDense, groupLabels []int) (result *FitResult, err error) {
	start := time.Now()
	p.runID = uuid.NewString()
	logger := p.logger.With(log.EstimatorIDKey, p.runID)

	defer func() {
		if err != nil {
			p.state = StateFailed
			logger.Error("pipeline fit failed", err, log.PhaseKey, p.state.String())
		}
	}()
	// Registered after the state handler so a recovered panic is turned
	// into err before the handler inspects it.
	defer errors.Recover(&err, "prs.FitPipeline.Fit")

	logger.Info("pipeline fit started",
		log.SamplesKey, X.NumRows(),
		log.FeaturesKey, X.NumCols(),
		log.ValFracKey, p.ValFrac,
	)

	features := X
	if p.Subsetter != nil {
		features, err = p.Subsetter.Subset(X, p.Threshold)
		if err != nil {
			return nil, err
		}
		logger.Debug("features subset",
			log.FilterThresholdKey, p.Threshold,
			log.FeaturesKey, features.NumCols(),
		)
	}
	p.state = StateFeaturesSelected

	if p.Scaler != nil {
		features, err = p.Scaler.FitTransform(features)
		if err != nil {
			return nil, err
		}
	}

	valFrac := p.ValFrac
	if valFrac == 0 {
		valFrac = DefaultValFrac
	}
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))

	split, err := SplitValidation(features, y, valFrac, rng)
	if err != nil {
		return nil, err
	}
	p.state = StateSplit

	var groups, valGroups []int
	if groupLabels != nil {
		groups, err = GroupCounts(filterInts(groupLabels, split.TrainMask))
		if err != nil {
			return nil, err
		}
		valGroups, err = GroupCounts(filterInts(groupLabels, split.ValMask))
		if err != nil {
			return nil, err
		}
	}

	learner, err := p.Construct()
	if err != nil {
		return nil, err
	}
	p.state = StateModelConstructed

	p.state = StateFitting
	logger.Info("fitting model",
		log.SamplesKey, split.TrainX.NumRows(),
		log.ValSamplesKey, split.ValX.NumRows(),
	)
	if err = learner.FitSplit(split.TrainX, split.TrainY, split.ValX, split.ValY, groups, valGroups); err != nil {
		return nil, err
	}

	p.state = StateFitted
	elapsed := time.Since(start).Seconds()
	logger.Info("pipeline fit finished", log.DurationSecondsKey, elapsed)
	return &FitResult{Model: learner, TrainSeconds: elapsed}, nil
}
