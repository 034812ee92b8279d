package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/RossDeVito/AutoML-PRS/pkg/errors"
)

// LazyTable is the deferred backend: it wraps a base eager table plus a
// pending plan of selected columns and row indices. Select, FilterRows,
// and Slice only extend the plan; Matrix and Column materialize through
// it. Behavior is identical to EagerTable for every operation.
type LazyTable struct {
	base *EagerTable

	// Plan. cols is always resolved (a subset of base columns, in query
	// order); rows is nil while all base rows are still selected.
	cols  []string
	index map[string]int
	rows  []int
}

// NewLazyTable creates a lazy table over data with an identity plan.
func NewLazyTable(cols []string, data *mat.Dense) (*LazyTable, error) {
	base, err := NewEagerTable(cols, data)
	if err != nil {
		return nil, err
	}
	return &LazyTable{
		base:  base,
		cols:  base.Columns(),
		index: columnIndex(base.cols),
	}, nil
}

// NumRows returns the number of samples selected by the plan.
func (t *LazyTable) NumRows() int {
	if t.rows == nil {
		return t.base.NumRows()
	}
	return len(t.rows)
}

// NumCols returns the number of columns selected by the plan.
func (t *LazyTable) NumCols() int {
	return len(t.cols)
}

// Columns returns the ordered column names selected by the plan.
func (t *LazyTable) Columns() []string {
	names := make([]string, len(t.cols))
	copy(names, t.cols)
	return names
}

// Select narrows the plan to the named columns, in the given order.
func (t *LazyTable) Select(cols []string) (Table, error) {
	names := make([]string, len(cols))
	for i, name := range cols {
		if _, ok := t.index[name]; !ok {
			return nil, errors.NewLookupError("dataset.Select", name)
		}
		names[i] = name
	}
	return &LazyTable{
		base:  t.base,
		cols:  names,
		index: columnIndex(names),
		rows:  t.rows,
	}, nil
}

// FilterRows narrows the plan to rows where mask is true.
func (t *LazyTable) FilterRows(mask []bool) (Table, error) {
	r := t.NumRows()
	if len(mask) != r {
		return nil, errors.NewDimensionError("dataset.FilterRows", r, len(mask), 0)
	}
	var rows []int
	for i, keep := range mask {
		if keep {
			rows = append(rows, t.baseRow(i))
		}
	}
	if len(rows) == 0 {
		return nil, errors.NewModelError("dataset.FilterRows", "empty selection", errors.ErrEmptyData)
	}
	return t.withRows(rows), nil
}

// Slice narrows the plan to the half-open row range [start, end).
func (t *LazyTable) Slice(start, end int) (Table, error) {
	r := t.NumRows()
	if start < 0 || end <= start || end > r {
		return nil, errors.NewValueError("dataset.Slice",
			fmt.Sprintf("invalid range [%d, %d) for %d rows", start, end, r))
	}
	rows := make([]int, end-start)
	for i := start; i < end; i++ {
		rows[i-start] = t.baseRow(i)
	}
	return t.withRows(rows), nil
}

// Matrix materializes the plan as a dense row-major matrix.
func (t *LazyTable) Matrix() *mat.Dense {
	r := t.NumRows()
	out := mat.NewDense(r, len(t.cols), nil)
	for j, name := range t.cols {
		src := t.base.index[name]
		for i := 0; i < r; i++ {
			out.Set(i, j, t.base.data.At(t.baseRow(i), src))
		}
	}
	return out
}

// Column materializes a single named column through the plan.
func (t *LazyTable) Column(name string) ([]float64, error) {
	if _, ok := t.index[name]; !ok {
		return nil, errors.NewLookupError("dataset.Column", name)
	}
	src := t.base.index[name]
	r := t.NumRows()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = t.base.data.At(t.baseRow(i), src)
	}
	return out, nil
}

// Collect materializes the plan into an eager table.
func (t *LazyTable) Collect() (*EagerTable, error) {
	return NewEagerTable(t.cols, t.Matrix())
}

func (t *LazyTable) baseRow(i int) int {
	if t.rows == nil {
		return i
	}
	return t.rows[i]
}

func (t *LazyTable) withRows(rows []int) *LazyTable {
	return &LazyTable{
		base:  t.base,
		cols:  t.cols,
		index: t.index,
		rows:  rows,
	}
}
