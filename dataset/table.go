// Package dataset provides the columnar table abstraction shared by the
// estimator suite. Two backends implement the same interface: EagerTable
// materializes every operation immediately, while LazyTable accumulates a
// plan of column selections and row filters and materializes on demand.
// The two are observationally identical, so preprocessing and training
// code never branches on the concrete representation.
package dataset

import (
	"gonum.org/v1/gonum/mat"
)

// Table is the read-only dataset interface: a rectangular block of
// samples by named feature columns. Operations never mutate the receiver;
// they return a new table sharing or copying the underlying storage per
// the backend's ownership rules.
type Table interface {
	// NumRows returns the number of samples.
	NumRows() int

	// NumCols returns the number of feature columns.
	NumCols() int

	// Columns returns the ordered column names.
	Columns() []string

	// Select returns the table restricted to the named columns, in the
	// given order. An unknown column name is a lookup error.
	Select(cols []string) (Table, error)

	// FilterRows returns the rows where mask is true, preserving order.
	// The mask length must equal NumRows.
	FilterRows(mask []bool) (Table, error)

	// Slice returns the half-open row range [start, end).
	Slice(start, end int) (Table, error)

	// Matrix materializes the table as a dense row-major matrix.
	Matrix() *mat.Dense

	// Column materializes a single named column.
	Column(name string) ([]float64, error)
}

// columnIndex builds a name-to-position map for a column list.
func columnIndex(cols []string) map[string]int {
	idx := make(map[string]int, len(cols))
	for i, name := range cols {
		idx[name] = i
	}
	return idx
}
