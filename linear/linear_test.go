package linear

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// syntheticLinear generates y = Xw + b + noise with a fixed seed.
func syntheticLinear(n int, w []float64, b, noise float64, seed uint64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewPCG(seed, seed))
	p := len(w)
	X := mat.NewDense(n, p, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		pred := b
		for j := 0; j < p; j++ {
			v := rng.Float64()*2 - 1
			X.Set(i, j, v)
			pred += v * w[j]
		}
		y.Set(i, 0, pred+noise*(rng.Float64()*2-1))
	}
	return X, y
}

func TestElasticNetRecoversSparseCoefficients(t *testing.T) {
	// Third coefficient is zero; a lasso-leaning penalty should keep it
	// near zero while recovering the others.
	X, y := syntheticLinear(500, []float64{2.0, -1.5, 0.0}, 0.5, 0.01, 7)

	en := NewElasticNet(
		WithAlpha(1e-3),
		WithL1Ratio(1.0),
		WithMaxIter(2000),
		WithTol(1e-6),
	)
	require.NoError(t, en.Fit(X, y))

	w := en.Weights()
	require.Len(t, w, 3)
	assert.InDelta(t, 2.0, w[0], 0.1)
	assert.InDelta(t, -1.5, w[1], 0.1)
	assert.InDelta(t, 0.0, w[2], 0.05)
	assert.InDelta(t, 0.5, en.Intercept(), 0.1)

	score, err := en.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.99)
}

func TestElasticNetRandomSelection(t *testing.T) {
	X, y := syntheticLinear(300, []float64{1.0, 1.0}, 0.0, 0.01, 11)

	en := NewElasticNet(
		WithAlpha(1e-3),
		WithL1Ratio(0.5),
		WithMaxIter(2000),
		WithTol(1e-6),
		WithSelection(SelectionRandom),
		WithSeed(3),
	)
	require.NoError(t, en.Fit(X, y))

	score, err := en.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.99)
}

func TestElasticNetPredictBeforeFit(t *testing.T) {
	en := NewElasticNet()
	_, err := en.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	require.Error(t, err)

	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))
}

func TestElasticNetInvalidSelection(t *testing.T) {
	X, y := syntheticLinear(10, []float64{1}, 0, 0, 1)
	en := NewElasticNet(WithSelection("sorted"))
	err := en.Fit(X, y)
	require.Error(t, err)

	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))
}

func TestElasticNetClone(t *testing.T) {
	en := NewElasticNet(WithAlpha(0.25), WithL1Ratio(0.9), WithMaxIter(42))
	X, y := syntheticLinear(50, []float64{1}, 0, 0, 1)
	require.NoError(t, en.Fit(X, y))

	clone, ok := en.Clone().(*ElasticNet)
	require.True(t, ok)
	assert.False(t, clone.IsFitted())
	assert.Equal(t, en.GetParams(false), clone.GetParams(false))
}

func TestSGDRegressorInvScaling(t *testing.T) {
	// y = 2x, no noise: invscaling SGD should get close.
	X, y := syntheticLinear(800, []float64{2.0}, 0.0, 0.0, 5)

	sgd := NewSGDRegressor(
		WithSGDAlpha(1e-6),
		WithLearningRate(LearningRateInvScaling),
		WithEta0(0.05),
		WithSGDMaxIter(200),
		WithNIterNoChange(10),
		WithSGDTol(1e-5),
		WithSGDSeed(9),
	)
	require.NoError(t, sgd.Fit(X, y))

	w := sgd.Weights()
	require.Len(t, w, 1)
	assert.InDelta(t, 2.0, w[0], 0.1)

	score, err := sgd.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.98)
}

func TestSGDRegressorPartialFit(t *testing.T) {
	X, y := syntheticLinear(200, []float64{1.5}, 0.0, 0.0, 13)

	sgd := NewSGDRegressor(WithSGDAlpha(1e-6), WithEta0(0.05), WithSGDSeed(2))
	for epoch := 0; epoch < 20; epoch++ {
		require.NoError(t, sgd.PartialFit(X, y, nil))
	}

	assert.Equal(t, 20, sgd.NIter())
	w := sgd.Weights()
	require.Len(t, w, 1)
	assert.InDelta(t, 1.5, w[0], 0.15)
}

func TestSetParamsRejectsNonNumericValues(t *testing.T) {
	t.Run("ElasticNet", func(t *testing.T) {
		en := NewElasticNet()
		err := en.SetParams(map[string]interface{}{"alpha": "0.1"})
		require.Error(t, err)

		var validationErr *errors.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		// The bad value must not be silently coerced to zero.
		assert.Equal(t, 1.0, en.GetParams(false)["alpha"])
	})

	t.Run("SGDRegressor", func(t *testing.T) {
		sgd := NewSGDRegressor()
		err := sgd.SetParams(map[string]interface{}{"eta0": "0.5"})
		require.Error(t, err)

		var validationErr *errors.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, 0.01, sgd.GetParams(false)["eta0"])

		err = sgd.SetParams(map[string]interface{}{"max_iter": "many"})
		require.Error(t, err)
		assert.True(t, errors.As(err, &validationErr))
	})
}

func TestSGDRegressorDivergenceSurfacesAsError(t *testing.T) {
	// An absurd learning rate blows the weights up to Inf within the
	// first epoch; Fit must report that instead of returning a model.
	X, y := syntheticLinear(50, []float64{2.0}, 1.0, 0.0, 3)

	sgd := NewSGDRegressor(
		WithEta0(1e200),
		WithSGDMaxIter(10),
		WithEarlyStopping(false),
	)
	err := sgd.Fit(X, y)
	require.Error(t, err)

	var instErr *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &instErr))
	assert.False(t, sgd.IsFitted())
}

func TestSGDRegressorInvalidSchedule(t *testing.T) {
	X, y := syntheticLinear(10, []float64{1}, 0, 0, 1)
	sgd := NewSGDRegressor(WithLearningRate("linear"))
	err := sgd.Fit(X, y)
	require.Error(t, err)

	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))
}

func TestSGDRegressorClone(t *testing.T) {
	sgd := NewSGDRegressor(WithSGDAlpha(0.5), WithLearningRate(LearningRateAdaptive))
	clone, ok := sgd.Clone().(*SGDRegressor)
	require.True(t, ok)
	assert.False(t, clone.IsFitted())
	assert.Equal(t, sgd.GetParams(false), clone.GetParams(false))
}

func TestSGDRegressorDimensionMismatch(t *testing.T) {
	X, y := syntheticLinear(50, []float64{1, 1}, 0, 0, 1)
	sgd := NewSGDRegressor(WithSGDMaxIter(5), WithEarlyStopping(false), WithNIterNoChange(2))
	require.NoError(t, sgd.Fit(X, y))

	_, err := sgd.Predict(mat.NewDense(1, 3, []float64{1, 2, 3}))
	require.Error(t, err)

	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}
