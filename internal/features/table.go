package features

import (
	"fmt"
	"sort"
)

// Identifier and label columns carried next to the feature columns.
const (
	FileColumn  = "File"
	ClassColumn = "Class"
)

// Vector is one recording's features.
type Vector struct {
	File   string             `json:"file"`
	Class  string             `json:"class"`
	Values map[string]float64 `json:"values"`
}

// Table is an ordered set of vectors sharing the same feature columns.
type Table struct {
	Columns []string
	Rows    []Vector
}

// NewTable validates that every row carries exactly the given columns.
func NewTable(columns []string, rows []Vector) (Table, error) {
	index := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c == FileColumn || c == ClassColumn {
			return Table{}, fmt.Errorf("feature column %q collides with a reserved column", c)
		}
		if _, dup := index[c]; dup {
			return Table{}, fmt.Errorf("duplicate feature column %q", c)
		}
		index[c] = struct{}{}
	}

	for i, row := range rows {
		if len(row.Values) != len(columns) {
			return Table{}, fmt.Errorf("row %d (%s): has %d features, table has %d", i, row.File, len(row.Values), len(columns))
		}
		for _, c := range columns {
			if _, ok := row.Values[c]; !ok {
				return Table{}, fmt.Errorf("row %d (%s): missing feature %q", i, row.File, c)
			}
		}
	}

	return Table{Columns: append([]string(nil), columns...), Rows: rows}, nil
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Has reports whether column is one of the table's feature columns.
func (t Table) Has(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Labels returns the class of every row in row order.
func (t Table) Labels() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Class
	}
	return out
}

// Files returns the identifier of every row in row order.
func (t Table) Files() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.File
	}
	return out
}

// Matrix returns the feature values as dense rows in column order.
func (t Table) Matrix() [][]float64 {
	out := make([][]float64, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Row(i)
	}
	return out
}

// Row returns the values of row i in column order.
func (t Table) Row(i int) []float64 {
	values := make([]float64, len(t.Columns))
	for j, c := range t.Columns {
		values[j] = t.Rows[i].Values[c]
	}
	return values
}

// SortByFile returns a copy of t with rows ordered by identifier, making
// tables built from the same files comparable regardless of discovery order.
func (t Table) SortByFile() Table {
	rows := append([]Vector(nil), t.Rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].File < rows[j].File
	})
	return Table{Columns: t.Columns, Rows: rows}
}
