package gbdt

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
	"github.com/RossDeVito/AutoML-PRS/pkg/log"
)

// Trainer runs the boosting loop: per-iteration gradients from the
// objective, histogram-based leaf-wise tree growth, optional row and
// feature subsampling, and callback-driven early stopping on a
// validation set.
type Trainer struct {
	params    TrainingParams
	objective ObjectiveFunction
	model     *Model
	logger    log.Logger
}

// NewTrainer creates a trainer. Zero-valued parameters fall back to the
// defaults.
func NewTrainer(params TrainingParams) *Trainer {
	return &Trainer{
		params: params.withDefaults(),
		logger: log.GetLoggerWithName("gbdt.trainer"),
	}
}

// Model returns the fitted ensemble, or nil before Fit.
func (t *Trainer) Model() *Model {
	return t.model
}

// Fit trains on X and y without a validation set.
func (t *Trainer) Fit(X, y mat.Matrix, callbacks ...Callback) error {
	return t.FitWithValidation(X, y, nil, nil, nil, nil, callbacks...)
}

// FitWithValidation trains on X and y while evaluating each iteration on
// the validation set. groups and valGroups carry per-group row counts
// for the ranking objective and are nil otherwise. When early stopping
// fires, the model is truncated back to the best iteration.
func (t *Trainer) FitWithValidation(X, y, XVal, yVal mat.Matrix, groups, valGroups []int, callbacks ...Callback) error {
	start := time.Now()

	rows, cols, yData, err := checkTrainingData(X, y)
	if err != nil {
		return err
	}

	objective, err := CreateObjectiveFunction(t.params.Objective)
	if err != nil {
		return err
	}
	t.objective = objective

	rowData := materializeRows(X, rows, cols)

	var valRowData [][]float64
	var yValData []float64
	if XVal != nil {
		valRows, valCols, valY, valErr := checkTrainingData(XVal, yVal)
		if valErr != nil {
			return errors.Wrap(valErr, "validation set")
		}
		if valCols != cols {
			return errors.NewDimensionError("gbdt.FitWithValidation", cols, valCols, 1)
		}
		valRowData = materializeRows(XVal, valRows, valCols)
		yValData = valY
	}

	cbs := callbacks
	if t.params.EarlyStoppingRounds > 0 && XVal != nil {
		cbs = append([]Callback{EarlyStopping(
			t.params.EarlyStoppingRounds,
			"valid_"+objective.EvalName(),
			objective.Maximize(),
		)}, cbs...)
	}
	if t.params.Verbosity > 0 {
		cbs = append(cbs, LogEvaluation(t.params.Verbosity))
	}
	cbList := NewCallbackList(cbs...)

	featureCols := make([][]float64, cols)
	for j := 0; j < cols; j++ {
		col := make([]float64, rows)
		for i := 0; i < rows; i++ {
			col[i] = rowData[i][j]
		}
		featureCols[j] = col
	}
	mapper := newBinMapper(featureCols, t.params.MaxBin)

	binned := make([][]int, cols)
	for j := 0; j < cols; j++ {
		bj := make([]int, rows)
		for i := 0; i < rows; i++ {
			bj[i] = mapper.bin(j, featureCols[j][i])
		}
		binned[j] = bj
	}

	initScore := objective.InitScore(yData)
	t.model = &Model{
		InitScore:   initScore,
		NumFeatures: cols,
		Objective:   objective.Name(),
		objective:   objective,
	}

	pred := make([]float64, rows)
	for i := range pred {
		pred[i] = initScore
	}
	valPred := make([]float64, len(yValData))
	for i := range valPred {
		valPred[i] = initScore
	}

	grad := make([]float64, rows)
	hess := make([]float64, rows)
	rng := rand.New(rand.NewPCG(t.params.Seed, t.params.Seed))

	for iter := 0; iter < t.params.NumIterations; iter++ {
		cbList.BeforeIteration(iter)

		objective.GradHess(pred, yData, groups, grad, hess)

		sampledRows := t.sampleRows(rng, rows)
		grower := &treeGrower{
			params:   t.params,
			mapper:   mapper,
			binned:   binned,
			grad:     grad,
			hess:     hess,
			features: t.sampleFeatures(rng, cols),
		}
		tree := grower.grow(sampledRows)
		t.model.Trees = append(t.model.Trees, tree)

		for i := 0; i < rows; i++ {
			pred[i] += tree.predictRow(rowData[i])
		}
		for i := range valRowData {
			valPred[i] += tree.predictRow(valRowData[i])
		}

		evalResults, evalErr := t.evaluate(objective, pred, yData, groups, valPred, yValData, valGroups)
		if evalErr != nil {
			return evalErr
		}
		if err := cbList.AfterIteration(iter, evalResults); err != nil {
			return err
		}
		if cbList.ShouldStop() {
			if best := cbList.BestIteration(); best >= 0 {
				t.model.truncate(best + 1)
			}
			break
		}
	}

	t.logger.Info("training finished",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationKey, t.model.NumIterations(),
		log.DurationSecondsKey, time.Since(start).Seconds(),
	)
	return nil
}

// sampleRows draws the row subset for one iteration.
func (t *Trainer) sampleRows(rng *rand.Rand, rows int) []int {
	if t.params.SubsampleRatio >= 1 {
		all := make([]int, rows)
		for i := range all {
			all[i] = i
		}
		return all
	}
	k := int(math.Ceil(t.params.SubsampleRatio * float64(rows)))
	if k < 1 {
		k = 1
	}
	sampled := rng.Perm(rows)[:k]
	sort.Ints(sampled)
	return sampled
}

// sampleFeatures draws the feature subset for one tree.
func (t *Trainer) sampleFeatures(rng *rand.Rand, cols int) []int {
	if t.params.ColsampleRatio >= 1 {
		all := make([]int, cols)
		for j := range all {
			all[j] = j
		}
		return all
	}
	k := int(math.Ceil(t.params.ColsampleRatio * float64(cols)))
	if k < 1 {
		k = 1
	}
	sampled := rng.Perm(cols)[:k]
	sort.Ints(sampled)
	return sampled
}

// evaluate computes the objective metric on the training set and, when
// present, the validation set.
func (t *Trainer) evaluate(objective ObjectiveFunction, pred, y []float64, groups []int, valPred, yVal []float64, valGroups []int) (map[string]float64, error) {
	results := make(map[string]float64, 2)

	trainScore, err := objective.Eval(pred, y, groups)
	if err != nil {
		return nil, errors.Wrap(err, "training evaluation")
	}
	results["training_"+objective.EvalName()] = trainScore

	if len(yVal) > 0 {
		valScore, err := objective.Eval(valPred, yVal, valGroups)
		if err != nil {
			return nil, errors.Wrap(err, "validation evaluation")
		}
		results["valid_"+objective.EvalName()] = valScore
	}
	return results, nil
}

// checkTrainingData validates the shape of one (X, y) pair and extracts
// the label vector.
func checkTrainingData(X, y mat.Matrix) (rows, cols int, yData []float64, err error) {
	if X == nil || y == nil {
		return 0, 0, nil, errors.NewModelError("gbdt.Fit", "nil input", errors.ErrEmptyData)
	}
	rows, cols = X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, nil, errors.NewModelError("gbdt.Fit", "empty matrix", errors.ErrEmptyData)
	}
	if yCols != 1 {
		return 0, 0, nil, errors.NewValueError("gbdt.Fit", "y must be a column vector")
	}
	if yRows != rows {
		return 0, 0, nil, errors.NewDimensionError("gbdt.Fit", rows, yRows, 0)
	}

	yData = make([]float64, rows)
	for i := 0; i < rows; i++ {
		yData[i] = y.At(i, 0)
	}
	return rows, cols, yData, nil
}

// materializeRows copies X into per-row slices for fast tree traversal.
func materializeRows(X mat.Matrix, rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		for j := 0; j < cols; j++ {
			row[j] = X.At(i, j)
		}
		out[i] = row
	}
	return out
}
