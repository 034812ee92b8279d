package prs

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/core/model"
	"github.com/RossDeVito/AutoML-PRS/dataset"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// newTable builds an eager table with the given column names and data.
func newTable(t *testing.T, cols []string, data []float64) dataset.Table {
	t.Helper()
	table, err := dataset.NewEagerTable(cols, mat.NewDense(len(data)/len(cols), len(cols), data))
	require.NoError(t, err)
	return table
}

// syntheticTable draws n rows over the named columns and labels
// y = sum of the first two columns plus noise.
func syntheticTable(t *testing.T, n int, cols []string, seed uint64) (dataset.Table, *mat.VecDense) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	data := mat.NewDense(n, len(cols), nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := range cols {
			data.Set(i, j, rng.Float64()*2-1)
		}
		label := data.At(i, 0)
		if len(cols) > 1 {
			label += data.At(i, 1)
		}
		y.SetVec(i, label+0.01*(rng.Float64()*2-1))
	}
	table, err := dataset.NewEagerTable(cols, data)
	require.NoError(t, err)
	return table, y
}

func TestSubsetter(t *testing.T) {
	table := newTable(t,
		[]string{"age", "sex", "rs1", "rs2", "rs3"},
		[]float64{
			40, 1, 0, 1, 2,
			50, 0, 2, 1, 0,
		})

	sub := &Subsetter{
		Covariates: []string{"age", "sex"},
		VariantSets: map[string][]string{
			"p1e-05": {"rs1", "rs3"},
			"p0.01":  {"rs1", "rs2", "rs3"},
		},
	}

	t.Run("CovariatesFirst", func(t *testing.T) {
		got, err := sub.Subset(table, "p1e-05")
		require.NoError(t, err)
		assert.Equal(t, []string{"age", "sex", "rs1", "rs3"}, got.Columns())
		assert.Equal(t, 2.0, got.Matrix().At(0, 3))
		// Source table keeps its full shape.
		assert.Equal(t, 5, table.NumCols())
	})

	t.Run("MissingThreshold", func(t *testing.T) {
		_, err := sub.Subset(table, "p0.5")
		require.Error(t, err)

		var lookupErr *errors.LookupError
		require.True(t, errors.As(err, &lookupErr))
		assert.Equal(t, "p0.5", lookupErr.Key)
	})
}

func TestSplitValidation(t *testing.T) {
	t.Run("SplitStatistics", func(t *testing.T) {
		table, y := syntheticTable(t, 10000, []string{"a", "b"}, 3)
		rng := rand.New(rand.NewPCG(1, 1))

		split, err := SplitValidation(table, y, 0.2, rng)
		require.NoError(t, err)

		assert.Equal(t, 10000, split.TrainX.NumRows()+split.ValX.NumRows())
		assert.Equal(t, split.TrainX.NumRows(), split.TrainY.Len())
		assert.Equal(t, split.ValX.NumRows(), split.ValY.Len())
		// Bernoulli(0.2) over 10000 rows stays near its mean.
		assert.InDelta(t, 2000, split.ValX.NumRows(), 200)
	})

	t.Run("MasksMirrorThePortions", func(t *testing.T) {
		table, y := syntheticTable(t, 500, []string{"a"}, 11)
		rng := rand.New(rand.NewPCG(2, 2))

		split, err := SplitValidation(table, y, 0.25, rng)
		require.NoError(t, err)

		require.Len(t, split.ValMask, 500)
		require.Len(t, split.TrainMask, 500)
		valRows, trainRows := 0, 0
		for i := range split.ValMask {
			assert.NotEqual(t, split.TrainMask[i], split.ValMask[i])
			if split.ValMask[i] {
				valRows++
			} else {
				trainRows++
			}
		}
		assert.Equal(t, split.ValX.NumRows(), valRows)
		assert.Equal(t, split.TrainX.NumRows(), trainRows)
	})

	t.Run("MaskAlignment", func(t *testing.T) {
		// Labels equal the first feature, so the masks applied to the
		// table and labels must stay row-aligned on both sides.
		n := 200
		data := mat.NewDense(n, 1, nil)
		y := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			data.Set(i, 0, float64(i))
			y.SetVec(i, float64(i))
		}
		table, err := dataset.NewEagerTable([]string{"x"}, data)
		require.NoError(t, err)

		rng := rand.New(rand.NewPCG(7, 7))
		split, err := SplitValidation(table, y, 0.3, rng)
		require.NoError(t, err)

		for i := 0; i < split.TrainX.NumRows(); i++ {
			assert.Equal(t, split.TrainX.Matrix().At(i, 0), split.TrainY.AtVec(i))
		}
		for i := 0; i < split.ValX.NumRows(); i++ {
			assert.Equal(t, split.ValX.Matrix().At(i, 0), split.ValY.AtVec(i))
		}
	})

	t.Run("InvalidFraction", func(t *testing.T) {
		table, y := syntheticTable(t, 10, []string{"a"}, 1)
		rng := rand.New(rand.NewPCG(1, 1))

		for _, frac := range []float64{0, 1, -0.1, 1.5} {
			_, err := SplitValidation(table, y, frac, rng)
			require.Error(t, err, fmt.Sprintf("frac=%g", frac))

			var valueErr *errors.ValueError
			assert.True(t, errors.As(err, &valueErr))
		}
	})
}

// recordingLearner counts the rows each clone is fitted on and predicts
// a constant, so partition sizes and the ensemble mean are observable.
type recordingLearner struct {
	model.BaseEstimator
	constant float64
	fitRows  *[]int
}

func (r *recordingLearner) Fit(X, y mat.Matrix) error {
	rows, _ := X.Dims()
	*r.fitRows = append(*r.fitRows, rows)
	r.SetFitted()
	return nil
}

func (r *recordingLearner) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, _ := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, r.constant)
	}
	return out, nil
}

func (r *recordingLearner) GetParams(deep bool) map[string]interface{} { return nil }

func (r *recordingLearner) SetParams(params map[string]interface{}) error { return nil }

func (r *recordingLearner) Clone() model.SKLearnCompatible {
	return &recordingLearner{constant: r.constant, fitRows: r.fitRows}
}

// panickingLearner blows up during fit, standing in for a learner bug.
type panickingLearner struct {
	model.BaseEstimator
}

func (p *panickingLearner) Fit(X, y mat.Matrix) error { panic("member blew up") }

func (p *panickingLearner) Predict(X mat.Matrix) (mat.Matrix, error) { return nil, nil }

func (p *panickingLearner) GetParams(deep bool) map[string]interface{} { return nil }

func (p *panickingLearner) SetParams(params map[string]interface{}) error { return nil }

func (p *panickingLearner) Clone() model.SKLearnCompatible { return &panickingLearner{} }

func TestPartitionedEnsemble(t *testing.T) {
	t.Run("PartitionSizes", func(t *testing.T) {
		table, y := syntheticTable(t, 100, []string{"a", "b"}, 5)

		var fitRows []int
		ens := NewPartitionedEnsemble(&recordingLearner{constant: 1, fitRows: &fitRows}, 3)
		require.NoError(t, ens.Fit(table, y))

		// floor(100/3) per block, last absorbs the remainder.
		assert.Equal(t, []int{33, 33, 34}, fitRows)
		assert.Len(t, ens.Members(), 3)
	})

	t.Run("PredictIsUnweightedMean", func(t *testing.T) {
		table, y := syntheticTable(t, 30, []string{"a", "b"}, 5)

		var fitRows []int
		ens := NewPartitionedEnsemble(&recordingLearner{constant: 3, fitRows: &fitRows}, 3)
		require.NoError(t, ens.Fit(table, y))

		pred, err := ens.Predict(table)
		require.NoError(t, err)
		for i := 0; i < pred.Len(); i++ {
			assert.InDelta(t, 3.0, pred.AtVec(i), 1e-12)
		}
	})

	t.Run("PredictBeforeFit", func(t *testing.T) {
		table, _ := syntheticTable(t, 10, []string{"a"}, 1)
		var fitRows []int
		ens := NewPartitionedEnsemble(&recordingLearner{fitRows: &fitRows}, 2)

		_, err := ens.Predict(table)
		require.Error(t, err)

		var notFitted *errors.NotFittedError
		assert.True(t, errors.As(err, &notFitted))
	})

	t.Run("MemberPanicBecomesError", func(t *testing.T) {
		table, y := syntheticTable(t, 30, []string{"a"}, 1)
		ens := NewPartitionedEnsemble(&panickingLearner{}, 3)

		err := ens.Fit(table, y)
		require.Error(t, err)

		var panicErr *errors.PanicError
		assert.True(t, errors.As(err, &panicErr))
		assert.False(t, ens.IsFitted())
	})

	t.Run("FewerRowsThanPartitions", func(t *testing.T) {
		table, y := syntheticTable(t, 2, []string{"a"}, 1)
		var fitRows []int
		ens := NewPartitionedEnsemble(&recordingLearner{fitRows: &fitRows}, 3)

		err := ens.Fit(table, y)
		require.Error(t, err)

		var valueErr *errors.ValueError
		assert.True(t, errors.As(err, &valueErr))
	})
}

func TestGroupCounts(t *testing.T) {
	counts, err := GroupCounts([]int{0, 0, 0, 1, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1}, counts)

	counts, err = GroupCounts(nil)
	require.NoError(t, err)
	assert.Nil(t, counts)

	_, err = GroupCounts([]int{0, 1, 0})
	require.Error(t, err)
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))
}

func TestLGBMEstimatorEndToEnd(t *testing.T) {
	table, y := syntheticTable(t, 1000, []string{"age", "rs1", "rs2"}, 17)

	est, err := NewLGBMEstimator(TaskRegression, WithParams(map[string]interface{}{
		"num_leaves":            7,
		"min_child_samples":     10,
		"early_stopping_rounds": 10,
	}))
	require.NoError(t, err)

	seconds, err := est.Fit(table, y, WithValFrac(0.2), WithSeed(3))
	require.NoError(t, err)
	assert.Positive(t, seconds)
	assert.True(t, est.IsFitted())
	assert.Equal(t, StateFitted, est.PipelineState())

	head, err := table.Slice(0, 10)
	require.NoError(t, err)
	pred, err := est.Predict(head)
	require.NoError(t, err)
	assert.Equal(t, 10, pred.Len())
}

func TestElasticNetEstimatorRejectsNonRegression(t *testing.T) {
	for _, construct := range []func(Task, ...EstimatorOption) (*Estimator, error){
		NewElasticNetEstimator,
		NewElasticNetEstimatorMultiThresh,
		NewNPartElasticNetEstimator,
		NewNPartElasticNetEstimatorMultiThresh,
		NewSGDEstimator,
		NewSGDEstimatorMultiThresh,
	} {
		for _, task := range []Task{TaskClassification, TaskRanking} {
			_, err := construct(task)
			require.Error(t, err, task.String())

			var valueErr *errors.ValueError
			assert.True(t, errors.As(err, &valueErr))
		}

		_, err := construct(TaskRegression)
		require.NoError(t, err)
	}
}

func TestElasticNetEstimatorMultiThresh(t *testing.T) {
	table, y := syntheticTable(t, 500, []string{"age", "rs1", "rs2", "rs3"}, 23)

	est, err := NewElasticNetEstimatorMultiThresh(TaskRegression, WithParams(map[string]interface{}{
		"alpha":            1e-4,
		"max_iter":         2000,
		"filter_threshold": "p0.01",
	}))
	require.NoError(t, err)

	sets := map[string][]string{
		"p0.01":  {"rs1", "rs2"},
		"p1e-05": {"rs1"},
	}
	_, err = est.Fit(table, y,
		WithVariantSets(sets, []string{"age"}),
		WithSeed(5),
	)
	require.NoError(t, err)

	pred, err := est.Predict(table)
	require.NoError(t, err)
	assert.Equal(t, table.NumRows(), pred.Len())
}

func TestMultiThreshRequiresVariantSets(t *testing.T) {
	table, y := syntheticTable(t, 100, []string{"a", "b"}, 1)

	est, err := NewLGBMEstimatorMultiThresh(TaskRegression, WithParams(map[string]interface{}{
		"filter_threshold": "p0.01",
	}))
	require.NoError(t, err)

	_, err = est.Fit(table, y)
	require.Error(t, err)

	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))
}

func TestNPartElasticNetEstimator(t *testing.T) {
	table, y := syntheticTable(t, 400, []string{"a", "b", "c"}, 31)

	est, err := NewNPartElasticNetEstimator(TaskRegression, WithParams(map[string]interface{}{
		"alpha":    1e-4,
		"max_iter": 1500,
	}))
	require.NoError(t, err)

	_, err = est.Fit(table, y, WithSeed(7))
	require.NoError(t, err)

	pred, err := est.Predict(table)
	require.NoError(t, err)
	assert.Equal(t, 400, pred.Len())
}

func TestPipelineStateTransitions(t *testing.T) {
	t.Run("FailedOnMissingThreshold", func(t *testing.T) {
		table, y := syntheticTable(t, 100, []string{"a", "b"}, 1)

		pipeline := NewFitPipeline(func() (Learner, error) {
			t.Fatal("constructor must not run after a subset failure")
			return nil, nil
		})
		pipeline.Subsetter = &Subsetter{
			Covariates:  []string{"a"},
			VariantSets: map[string][]string{"p0.01": {"b"}},
		}
		pipeline.Threshold = "p0.5"

		_, err := pipeline.Fit(table, y, nil)
		require.Error(t, err)
		assert.Equal(t, StateFailed, pipeline.State())
	})

	t.Run("FailedOnLearnerError", func(t *testing.T) {
		table, y := syntheticTable(t, 100, []string{"a", "b"}, 1)

		pipeline := NewFitPipeline(func() (Learner, error) {
			return nil, errors.NewValueError("test", "bad configuration")
		})
		_, err := pipeline.Fit(table, y, nil)
		require.Error(t, err)
		assert.Equal(t, StateFailed, pipeline.State())
	})

	t.Run("FailedOnInvalidValFrac", func(t *testing.T) {
		table, y := syntheticTable(t, 50, []string{"a", "b"}, 1)

		var fitRows []int
		pipeline := NewFitPipeline(func() (Learner, error) {
			return &matrixLearner{est: &recordingLearner{fitRows: &fitRows}}, nil
		})
		pipeline.ValFrac = 1.5

		_, err := pipeline.Fit(table, y, nil)
		require.Error(t, err)

		var valueErr *errors.ValueError
		assert.True(t, errors.As(err, &valueErr))
		assert.Equal(t, StateFailed, pipeline.State())
	})

	t.Run("FailedOnConstructorPanic", func(t *testing.T) {
		table, y := syntheticTable(t, 100, []string{"a"}, 1)

		pipeline := NewFitPipeline(func() (Learner, error) {
			panic("constructor blew up")
		})
		_, err := pipeline.Fit(table, y, nil)
		require.Error(t, err)

		var panicErr *errors.PanicError
		assert.True(t, errors.As(err, &panicErr))
		assert.Equal(t, StateFailed, pipeline.State())
	})
}

func TestEstimatorVerbosityDefaults(t *testing.T) {
	lgbm, err := NewLGBMEstimator(TaskRegression)
	require.NoError(t, err)
	assert.Equal(t, 1, lgbm.Verbose())

	quiet, err := NewLGBMEstimator(TaskRegression, WithVerbose(0))
	require.NoError(t, err)
	assert.Equal(t, 0, quiet.Verbose())

	en, err := NewElasticNetEstimator(TaskRegression)
	require.NoError(t, err)
	assert.Equal(t, 0, en.Verbose())
}

func TestSearchSpaceValues(t *testing.T) {
	t.Run("LGBM", func(t *testing.T) {
		space := LGBMSearchSpace()

		leaves := space["num_leaves"]
		assert.Equal(t, LogRandInt, leaves.Kind)
		assert.Equal(t, 7.0, leaves.Low)
		assert.Equal(t, 4095.0, leaves.High)
		assert.Equal(t, 7, leaves.Init)
		assert.Equal(t, 7, leaves.LowCostInit)

		regLambda := space["reg_lambda"]
		assert.Equal(t, LogUniform, regLambda.Kind)
		assert.Equal(t, 1e-12, regLambda.Low)
		assert.Equal(t, 1000.0, regLambda.High)
		assert.Equal(t, 1e-10, regLambda.Init)

		stop := space["early_stopping_rounds"]
		assert.Equal(t, RandInt, stop.Kind)
		assert.Equal(t, 10.0, stop.Low)
		assert.Equal(t, 250.0, stop.High)
		assert.Equal(t, 50, stop.Init)
	})

	t.Run("ElasticNet", func(t *testing.T) {
		space := ElasticNetSearchSpace()

		alpha := space["alpha"]
		assert.Equal(t, LogUniform, alpha.Kind)
		assert.Equal(t, 1e-10, alpha.Low)
		assert.Equal(t, 2.0, alpha.High)
		assert.Equal(t, 1e-4, alpha.Init)

		selection := space["selection"]
		assert.Equal(t, Choice, selection.Kind)
		assert.Equal(t, []string{"cyclic", "random"}, selection.Choices)
		assert.Equal(t, "cyclic", selection.Init)
	})

	t.Run("SGD", func(t *testing.T) {
		space := SGDSearchSpace()

		eta0 := space["eta0"]
		assert.Equal(t, LogUniform, eta0.Kind)
		assert.Equal(t, 1e-7, eta0.Low)
		assert.Equal(t, 0.05, eta0.High)
		assert.Equal(t, 0.01, eta0.Init)

		schedule := space["learning_rate"]
		assert.Equal(t, []string{"optimal", "invscaling", "adaptive"}, schedule.Choices)
		assert.Equal(t, "invscaling", schedule.Init)
	})

	t.Run("SampleStaysInBounds", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 1))
		space := LGBMSearchSpace()
		for i := 0; i < 100; i++ {
			v := space["num_leaves"].Sample(rng).(int)
			assert.GreaterOrEqual(t, v, 7)
			assert.LessOrEqual(t, v, 4095)

			f := space["subsample"].Sample(rng).(float64)
			assert.GreaterOrEqual(t, f, 0.4)
			assert.LessOrEqual(t, f, 1.0)
		}
	})
}

func TestEstimatorPredictBeforeFit(t *testing.T) {
	table, _ := syntheticTable(t, 10, []string{"a"}, 1)

	est, err := NewSGDEstimator(TaskRegression)
	require.NoError(t, err)

	_, err = est.Predict(table)
	require.Error(t, err)

	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))
}
