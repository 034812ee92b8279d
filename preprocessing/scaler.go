// Package preprocessing provides the feature scaling step shared by the
// linear estimator variants. The scaler operates on the dataset.Table
// abstraction, so eager and lazy tables are handled identically.
package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/core/model"
	"github.com/RossDeVito/AutoML-PRS/dataset"
	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// MinMaxScaler rescales each feature column to [0, 1] by the minimum and
// maximum observed at fit time.
//
// The state is learned once from the first table seen and then frozen:
// after the first successful Fit, later Fit calls are no-ops and reuse
// the stored minima and maxima. This keeps train, validation, and test
// data on the same scale across one estimator lifecycle.
//
// Zero-variance columns (max == min) transform to X - min, a constant
// zero column, never NaN or Inf.
type MinMaxScaler struct {
	model.BaseEstimator

	dataMin   []float64
	dataMax   []float64
	nFeatures int
}

// NewMinMaxScaler creates an unfitted MinMaxScaler.
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// Fit computes the per-column minimum and maximum. Once fitted, further
// Fit calls return nil without recomputing.
func (m *MinMaxScaler) Fit(t dataset.Table) error {
	if m.IsFitted() {
		return nil
	}

	r := t.NumRows()
	c := t.NumCols()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}

	X := t.Matrix()
	m.nFeatures = c
	m.dataMin = make([]float64, c)
	m.dataMax = make([]float64, c)

	for j := 0; j < c; j++ {
		lo := X.At(0, j)
		hi := lo
		for i := 1; i < r; i++ {
			v := X.At(i, j)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		m.dataMin[j] = lo
		m.dataMax[j] = hi
	}

	m.SetFitted()
	return nil
}

// Transform returns (X - min) / (max - min) per column as a new eager
// table with the same column names.
func (m *MinMaxScaler) Transform(t dataset.Table) (dataset.Table, error) {
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("MinMaxScaler", "Transform")
	}

	r := t.NumRows()
	c := t.NumCols()
	if c != m.nFeatures {
		return nil, errors.NewDimensionError("MinMaxScaler.Transform", m.nFeatures, c, 1)
	}

	X := t.Matrix()
	out := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		span := m.dataMax[j] - m.dataMin[j]
		for i := 0; i < r; i++ {
			v := X.At(i, j) - m.dataMin[j]
			if span != 0 {
				v /= span
			}
			out.Set(i, j, v)
		}
	}

	return dataset.NewEagerTable(t.Columns(), out)
}

// FitTransform fits on t (or reuses the frozen state) and transforms it.
func (m *MinMaxScaler) FitTransform(t dataset.Table) (dataset.Table, error) {
	if err := m.Fit(t); err != nil {
		return nil, err
	}
	return m.Transform(t)
}

// DataMin returns the fitted per-column minima, or nil before fit.
func (m *MinMaxScaler) DataMin() []float64 {
	if !m.IsFitted() {
		return nil
	}
	out := make([]float64, len(m.dataMin))
	copy(out, m.dataMin)
	return out
}

// DataMax returns the fitted per-column maxima, or nil before fit.
func (m *MinMaxScaler) DataMax() []float64 {
	if !m.IsFitted() {
		return nil
	}
	out := make([]float64, len(m.dataMax))
	copy(out, m.dataMax)
	return out
}

// String returns a short description of the scaler.
func (m *MinMaxScaler) String() string {
	if !m.IsFitted() {
		return "MinMaxScaler()"
	}
	return fmt.Sprintf("MinMaxScaler(n_features=%d)", m.nFeatures)
}
