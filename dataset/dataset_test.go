package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// newBackends builds one table per backend over the same data so the
// contract tests can run identically against both.
func newBackends(t *testing.T, cols []string, data []float64) map[string]Table {
	t.Helper()
	rows := len(data) / len(cols)

	eager, err := NewEagerTable(cols, mat.NewDense(rows, len(cols), data))
	require.NoError(t, err)
	lazy, err := NewLazyTable(cols, mat.NewDense(rows, len(cols), data))
	require.NoError(t, err)

	return map[string]Table{"eager": eager, "lazy": lazy}
}

func TestTableSelect(t *testing.T) {
	cols := []string{"age", "sex", "rs101", "rs202"}
	data := []float64{
		51, 0, 1, 2,
		47, 1, 0, 1,
		63, 0, 2, 0,
	}

	for name, tbl := range newBackends(t, cols, data) {
		t.Run(name, func(t *testing.T) {
			sub, err := tbl.Select([]string{"rs202", "age"})
			require.NoError(t, err)

			assert.Equal(t, []string{"rs202", "age"}, sub.Columns())
			assert.Equal(t, 3, sub.NumRows())
			assert.Equal(t, 2, sub.NumCols())

			m := sub.Matrix()
			assert.InDelta(t, 2.0, m.At(0, 0), 1e-12)
			assert.InDelta(t, 51.0, m.At(0, 1), 1e-12)
			assert.InDelta(t, 0.0, m.At(2, 0), 1e-12)

			// Input table is untouched.
			assert.Equal(t, cols, tbl.Columns())
		})
	}
}

func TestTableSelectUnknownColumn(t *testing.T) {
	for name, tbl := range newBackends(t, []string{"a", "b"}, []float64{1, 2, 3, 4}) {
		t.Run(name, func(t *testing.T) {
			_, err := tbl.Select([]string{"a", "missing"})
			require.Error(t, err)

			var lookupErr *errors.LookupError
			require.True(t, errors.As(err, &lookupErr))
			assert.Equal(t, "missing", lookupErr.Key)
		})
	}
}

func TestTableFilterRows(t *testing.T) {
	cols := []string{"x", "y"}
	data := []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	}

	for name, tbl := range newBackends(t, cols, data) {
		t.Run(name, func(t *testing.T) {
			sub, err := tbl.FilterRows([]bool{true, false, false, true})
			require.NoError(t, err)

			assert.Equal(t, 2, sub.NumRows())
			m := sub.Matrix()
			assert.InDelta(t, 1.0, m.At(0, 0), 1e-12)
			assert.InDelta(t, 40.0, m.At(1, 1), 1e-12)
		})
	}
}

func TestTableFilterRowsBadMask(t *testing.T) {
	for name, tbl := range newBackends(t, []string{"x"}, []float64{1, 2, 3}) {
		t.Run(name, func(t *testing.T) {
			_, err := tbl.FilterRows([]bool{true, false})
			require.Error(t, err)

			var dimErr *errors.DimensionError
			assert.True(t, errors.As(err, &dimErr))
		})
	}
}

func TestTableSlice(t *testing.T) {
	cols := []string{"x"}
	data := []float64{0, 1, 2, 3, 4}

	for name, tbl := range newBackends(t, cols, data) {
		t.Run(name, func(t *testing.T) {
			sub, err := tbl.Slice(1, 4)
			require.NoError(t, err)

			require.Equal(t, 3, sub.NumRows())
			col, err := sub.Column("x")
			require.NoError(t, err)
			assert.Equal(t, []float64{1, 2, 3}, col)

			_, err = tbl.Slice(3, 3)
			assert.Error(t, err)
			_, err = tbl.Slice(2, 9)
			assert.Error(t, err)
		})
	}
}

func TestTableChainedPlan(t *testing.T) {
	cols := []string{"a", "b", "c"}
	data := []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
		10, 11, 12,
	}

	for name, tbl := range newBackends(t, cols, data) {
		t.Run(name, func(t *testing.T) {
			sub, err := tbl.Select([]string{"c", "a"})
			require.NoError(t, err)
			sub, err = sub.FilterRows([]bool{false, true, true, true})
			require.NoError(t, err)
			sub, err = sub.Slice(1, 3)
			require.NoError(t, err)

			m := sub.Matrix()
			r, c := m.Dims()
			assert.Equal(t, 2, r)
			assert.Equal(t, 2, c)
			assert.InDelta(t, 9.0, m.At(0, 0), 1e-12)
			assert.InDelta(t, 7.0, m.At(0, 1), 1e-12)
			assert.InDelta(t, 12.0, m.At(1, 0), 1e-12)
			assert.InDelta(t, 10.0, m.At(1, 1), 1e-12)
		})
	}
}

func TestLazyCollectMatchesEager(t *testing.T) {
	cols := []string{"a", "b"}
	data := []float64{1, 2, 3, 4, 5, 6}

	lazy, err := NewLazyTable(cols, mat.NewDense(3, 2, data))
	require.NoError(t, err)

	filtered, err := lazy.FilterRows([]bool{true, false, true})
	require.NoError(t, err)

	collected, err := filtered.(*LazyTable).Collect()
	require.NoError(t, err)
	assert.Equal(t, cols, collected.Columns())
	assert.True(t, mat.EqualApprox(filtered.Matrix(), collected.Matrix(), 1e-12))
}
