// Package gbdt implements the gradient-boosted decision tree learner
// used by the tree-based PRS estimator variants: a histogram-based
// trainer with leaf-wise growth, iteration callbacks, and early stopping
// on a validation set, plus scikit-learn style Regressor, Classifier,
// and Ranker wrappers.
package gbdt

// Objective names accepted by TrainingParams.Objective.
const (
	ObjectiveL2         = "l2"
	ObjectiveBinary     = "binary"
	ObjectiveLambdarank = "lambdarank"
)

// TrainingParams contains all training hyperparameters.
type TrainingParams struct {
	// Boosting
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`

	// Tree shape
	NumLeaves       int     `json:"num_leaves"`
	MaxDepth        int     `json:"max_depth"` // <= 0 means unlimited
	MinChildSamples int     `json:"min_child_samples"`
	MinChildWeight  float64 `json:"min_child_weight"`

	// Regularization
	Lambda         float64 `json:"lambda_l2"`
	Alpha          float64 `json:"lambda_l1"`
	MinGainToSplit float64 `json:"min_gain_to_split"`

	// Sampling
	SubsampleRatio float64 `json:"subsample"`        // row fraction per iteration
	ColsampleRatio float64 `json:"colsample_bytree"` // feature fraction per tree

	// Histogram
	MaxBin int `json:"max_bin"`

	// Objective
	Objective string `json:"objective"`

	// Control
	Seed                uint64 `json:"seed"`
	Verbosity           int    `json:"verbosity"`
	EarlyStoppingRounds int    `json:"early_stopping_rounds"` // 0 disables
}

// DefaultTrainingParams returns the baseline configuration the wrappers
// start from before applying options.
func DefaultTrainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:   100,
		LearningRate:    0.1,
		NumLeaves:       31,
		MaxDepth:        -1,
		MinChildSamples: 20,
		SubsampleRatio:  1.0,
		ColsampleRatio:  1.0,
		MaxBin:          255,
		Objective:       ObjectiveL2,
		Seed:            1,
	}
}

// withDefaults fills zero values with the defaults, mirroring how the
// wrappers accept partially specified configurations.
func (p TrainingParams) withDefaults() TrainingParams {
	def := DefaultTrainingParams()
	if p.NumIterations == 0 {
		p.NumIterations = def.NumIterations
	}
	if p.LearningRate == 0 {
		p.LearningRate = def.LearningRate
	}
	if p.NumLeaves == 0 {
		p.NumLeaves = def.NumLeaves
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = def.MaxDepth
	}
	if p.MinChildSamples == 0 {
		p.MinChildSamples = def.MinChildSamples
	}
	if p.SubsampleRatio == 0 {
		p.SubsampleRatio = def.SubsampleRatio
	}
	if p.ColsampleRatio == 0 {
		p.ColsampleRatio = def.ColsampleRatio
	}
	if p.MaxBin == 0 {
		p.MaxBin = def.MaxBin
	}
	if p.Objective == "" {
		p.Objective = def.Objective
	}
	if p.Seed == 0 {
		p.Seed = def.Seed
	}
	return p
}

// Option configures the training parameters of a wrapper estimator.
type Option func(*TrainingParams)

// WithNumIterations sets the maximum number of boosting rounds.
func WithNumIterations(n int) Option {
	return func(p *TrainingParams) { p.NumIterations = n }
}

// WithLearningRate sets the shrinkage applied to each tree.
func WithLearningRate(rate float64) Option {
	return func(p *TrainingParams) { p.LearningRate = rate }
}

// WithNumLeaves caps the number of leaves per tree.
func WithNumLeaves(n int) Option {
	return func(p *TrainingParams) { p.NumLeaves = n }
}

// WithMaxDepth caps the tree depth; values <= 0 mean unlimited.
func WithMaxDepth(depth int) Option {
	return func(p *TrainingParams) { p.MaxDepth = depth }
}

// WithMinChildSamples sets the minimum rows per leaf.
func WithMinChildSamples(n int) Option {
	return func(p *TrainingParams) { p.MinChildSamples = n }
}

// WithMinChildWeight sets the minimum hessian sum per leaf.
func WithMinChildWeight(w float64) Option {
	return func(p *TrainingParams) { p.MinChildWeight = w }
}

// WithRegAlpha sets the L1 leaf regularization.
func WithRegAlpha(alpha float64) Option {
	return func(p *TrainingParams) { p.Alpha = alpha }
}

// WithRegLambda sets the L2 leaf regularization.
func WithRegLambda(lambda float64) Option {
	return func(p *TrainingParams) { p.Lambda = lambda }
}

// WithSubsample sets the row fraction drawn per iteration.
func WithSubsample(ratio float64) Option {
	return func(p *TrainingParams) { p.SubsampleRatio = ratio }
}

// WithColsampleBytree sets the feature fraction drawn per tree.
func WithColsampleBytree(ratio float64) Option {
	return func(p *TrainingParams) { p.ColsampleRatio = ratio }
}

// WithMaxBin caps the number of histogram bins per feature.
func WithMaxBin(n int) Option {
	return func(p *TrainingParams) { p.MaxBin = n }
}

// WithEarlyStopping enables early stopping after the given number of
// rounds without validation improvement.
func WithEarlyStopping(rounds int) Option {
	return func(p *TrainingParams) { p.EarlyStoppingRounds = rounds }
}

// WithRandomState seeds row and feature sampling.
func WithRandomState(seed uint64) Option {
	return func(p *TrainingParams) { p.Seed = seed }
}

// WithVerbosity sets the logging verbosity of the trainer.
func WithVerbosity(v int) Option {
	return func(p *TrainingParams) { p.Verbosity = v }
}
