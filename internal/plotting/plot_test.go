package plotting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

func TestPredictionScatter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scatter.png")

	yTrue := mat.NewVecDense(4, []float64{0, 1, 2, 3})
	yPred := mat.NewVecDense(4, []float64{0.1, 0.9, 2.2, 2.8})
	require.NoError(t, PredictionScatter(yTrue, yPred, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestPredictionScatterLengthMismatch(t *testing.T) {
	err := PredictionScatter(mat.NewVecDense(2, nil), mat.NewVecDense(3, nil), "unused.png")
	require.Error(t, err)

	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestTrainingCurve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "curve.svg")

	history := map[string][]float64{
		"training_rmse": {1.0, 0.8, 0.6, 0.5},
		"valid_rmse":    {1.1, 0.9, 0.85, 0.87},
	}
	require.NoError(t, TrainingCurve(history, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestTrainingCurveEmptyHistory(t *testing.T) {
	err := TrainingCurve(nil, "unused.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
