package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// EagerTable is the materialized backend: column names plus a dense
// matrix. Every operation allocates and returns a new table immediately.
type EagerTable struct {
	cols  []string
	index map[string]int
	data  *mat.Dense
}

// NewEagerTable creates an eager table over data. The number of column
// names must match the matrix width.
func NewEagerTable(cols []string, data *mat.Dense) (*EagerTable, error) {
	_, c := data.Dims()
	if c != len(cols) {
		return nil, errors.NewDimensionError("dataset.NewEagerTable", len(cols), c, 1)
	}
	names := make([]string, len(cols))
	copy(names, cols)
	return &EagerTable{cols: names, index: columnIndex(names), data: data}, nil
}

// NumRows returns the number of samples.
func (t *EagerTable) NumRows() int {
	r, _ := t.data.Dims()
	return r
}

// NumCols returns the number of feature columns.
func (t *EagerTable) NumCols() int {
	return len(t.cols)
}

// Columns returns the ordered column names.
func (t *EagerTable) Columns() []string {
	names := make([]string, len(t.cols))
	copy(names, t.cols)
	return names
}

// Select returns a new table holding the named columns in the given order.
func (t *EagerTable) Select(cols []string) (Table, error) {
	r := t.NumRows()
	out := mat.NewDense(r, len(cols), nil)
	for j, name := range cols {
		src, ok := t.index[name]
		if !ok {
			return nil, errors.NewLookupError("dataset.Select", name)
		}
		for i := 0; i < r; i++ {
			out.Set(i, j, t.data.At(i, src))
		}
	}
	return NewEagerTable(cols, out)
}

// FilterRows returns the rows where mask is true.
func (t *EagerTable) FilterRows(mask []bool) (Table, error) {
	r := t.NumRows()
	if len(mask) != r {
		return nil, errors.NewDimensionError("dataset.FilterRows", r, len(mask), 0)
	}
	kept := 0
	for _, keep := range mask {
		if keep {
			kept++
		}
	}
	if kept == 0 {
		return nil, errors.NewModelError("dataset.FilterRows", "empty selection", errors.ErrEmptyData)
	}
	out := mat.NewDense(kept, len(t.cols), nil)
	row := 0
	for i, keep := range mask {
		if !keep {
			continue
		}
		for j := range t.cols {
			out.Set(row, j, t.data.At(i, j))
		}
		row++
	}
	return NewEagerTable(t.cols, out)
}

// Slice returns the half-open row range [start, end).
func (t *EagerTable) Slice(start, end int) (Table, error) {
	r := t.NumRows()
	if start < 0 || end <= start || end > r {
		return nil, errors.NewValueError("dataset.Slice",
			fmt.Sprintf("invalid range [%d, %d) for %d rows", start, end, r))
	}
	out := mat.NewDense(end-start, len(t.cols), nil)
	for i := start; i < end; i++ {
		for j := range t.cols {
			out.Set(i-start, j, t.data.At(i, j))
		}
	}
	return NewEagerTable(t.cols, out)
}

// Matrix returns the underlying dense matrix. Callers must treat it as
// read-only; the table retains ownership.
func (t *EagerTable) Matrix() *mat.Dense {
	return t.data
}

// Column materializes a single named column.
func (t *EagerTable) Column(name string) ([]float64, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, errors.NewLookupError("dataset.Column", name)
	}
	r := t.NumRows()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = t.data.At(i, j)
	}
	return out, nil
}
