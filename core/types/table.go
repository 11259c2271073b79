// Package types - Flow table types
package types

import (
	cgerrors "circularity-gap/internal/errors"
)

// ColumnLabel identifies one column of a flow table
type ColumnLabel struct {
	// Country is the outer label (region code)
	Country string `json:"country"`

	// Sector is the inner label (activity or final-demand category)
	Sector string `json:"sector"`
}

// FlowTable is a read-only matrix of physical flows.
// Rows are labeled (category, sub-category[, type]); columns are (country, sector).
type FlowTable struct {
	name      string
	rowLabels [][]string
	columns   []ColumnLabel
	data      []float64 // row-major

	countries    []string
	countryIndex map[string][]int
}

// NewFlowTable builds a table and checks every row has one value per column.
func NewFlowTable(name string, rowLabels [][]string, columns []ColumnLabel, values [][]float64) (*FlowTable, error) {
	if len(rowLabels) != len(values) {
		return nil, cgerrors.DataShape(name, "%d row labels for %d value rows", len(rowLabels), len(values))
	}

	t := &FlowTable{
		name:         name,
		rowLabels:    make([][]string, len(rowLabels)),
		columns:      append([]ColumnLabel(nil), columns...),
		data:         make([]float64, 0, len(values)*len(columns)),
		countryIndex: make(map[string][]int),
	}

	for r, row := range values {
		if len(row) != len(columns) {
			return nil, cgerrors.DataShape(name, "row %d has %d values, expected %d", r, len(row), len(columns)).
				WithContext("row", r)
		}
		t.data = append(t.data, row...)
		t.rowLabels[r] = append([]string(nil), rowLabels[r]...)
	}

	for c, col := range t.columns {
		if _, seen := t.countryIndex[col.Country]; !seen {
			t.countries = append(t.countries, col.Country)
		}
		t.countryIndex[col.Country] = append(t.countryIndex[col.Country], c)
	}

	return t, nil
}

// Name returns the table name
func (t *FlowTable) Name() string { return t.name }

// Rows returns the number of rows
func (t *FlowTable) Rows() int { return len(t.rowLabels) }

// Cols returns the number of columns
func (t *FlowTable) Cols() int { return len(t.columns) }

// RowLabel returns the labels of row r
func (t *FlowTable) RowLabel(r int) []string {
	return append([]string(nil), t.rowLabels[r]...)
}

// Column returns the label of column c
func (t *FlowTable) Column(c int) ColumnLabel { return t.columns[c] }

// Columns returns a copy of the column labels
func (t *FlowTable) Columns() []ColumnLabel {
	return append([]ColumnLabel(nil), t.columns...)
}

// At returns the value at row r, column c
func (t *FlowTable) At(r, c int) float64 {
	return t.data[r*len(t.columns)+c]
}

// RowSum sums row r across every column
func (t *FlowTable) RowSum(r int) float64 {
	n := len(t.columns)
	var sum float64
	for _, v := range t.data[r*n : (r+1)*n] {
		sum += v
	}
	return sum
}

// RowSumAt sums row r over the given columns
func (t *FlowTable) RowSumAt(r int, cols []int) float64 {
	base := r * len(t.columns)
	var sum float64
	for _, c := range cols {
		sum += t.data[base+c]
	}
	return sum
}

// Countries returns the distinct outer column labels in first-appearance order
func (t *FlowTable) Countries() []string {
	return append([]string(nil), t.countries...)
}

// CountryColumns returns the column indices of one country's block
func (t *FlowTable) CountryColumns(country string) ([]int, bool) {
	cols, ok := t.countryIndex[country]
	if !ok {
		return nil, false
	}
	return append([]int(nil), cols...), true
}

// SameColumns reports whether two tables share the column universe
func (t *FlowTable) SameColumns(other *FlowTable) bool {
	if len(t.columns) != len(other.columns) {
		return false
	}
	for i := range t.columns {
		if t.columns[i] != other.columns[i] {
			return false
		}
	}
	return true
}

// RequireRows returns a DataShape error if any row index is out of range
func (t *FlowTable) RequireRows(rows []int) error {
	for _, r := range rows {
		if r < 0 || r >= len(t.rowLabels) {
			return cgerrors.DataShape(t.name, "row %d out of range (table has %d rows)", r, len(t.rowLabels)).
				WithContext("row", r)
		}
	}
	return nil
}

// RequireCols returns a DataShape error if any column index is out of range
func (t *FlowTable) RequireCols(cols []int) error {
	for _, c := range cols {
		if c < 0 || c >= len(t.columns) {
			return cgerrors.DataShape(t.name, "column %d out of range (table has %d columns)", c, len(t.columns)).
				WithContext("column", c)
		}
	}
	return nil
}
