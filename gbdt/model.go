package gbdt

import (
	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/core/parallel"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// Model is a fitted gradient-boosted tree ensemble. Predictions are the
// init score plus the sum of all tree outputs.
type Model struct {
	Trees       []*Tree `json:"trees"`
	InitScore   float64 `json:"init_score"`
	NumFeatures int     `json:"num_features"`
	Objective   string  `json:"objective"`

	objective ObjectiveFunction
}

// NumIterations returns the number of fitted trees.
func (m *Model) NumIterations() int {
	return len(m.Trees)
}

// truncate drops trees past the given iteration count.
func (m *Model) truncate(numTrees int) {
	if numTrees >= 0 && numTrees < len(m.Trees) {
		m.Trees = m.Trees[:numTrees]
	}
}

// rawRow returns the untransformed score for one row.
func (m *Model) rawRow(row []float64) float64 {
	score := m.InitScore
	for _, tree := range m.Trees {
		score += tree.predictRow(row)
	}
	return score
}

// RawPredict returns untransformed scores for every row of X. Rows are
// scored in parallel when there are enough of them to pay for it.
func (m *Model) RawPredict(X mat.Matrix) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("gbdt.RawPredict", m.NumFeatures, cols, 1)
	}

	out := make([]float64, rows)
	parallel.ParallelizeWithThreshold(rows, 256, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			for j := 0; j < cols; j++ {
				row[j] = X.At(i, j)
			}
			out[i] = m.rawRow(row)
		}
	})
	return mat.NewVecDense(rows, out), nil
}

// Predict returns scores on the objective's output scale: identity for
// regression and ranking, probabilities for the binary objective.
func (m *Model) Predict(X mat.Matrix) (*mat.VecDense, error) {
	raw, err := m.RawPredict(X)
	if err != nil {
		return nil, err
	}
	for i := 0; i < raw.Len(); i++ {
		raw.SetVec(i, m.objective.Transform(raw.AtVec(i)))
	}
	return raw, nil
}
