package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Delimiter separates fields in feature table files.
const Delimiter = ';'

// Layout orders the File column relative to the feature columns.
type Layout int

const (
	// FileFirst writes File, the feature columns, then Class.
	FileFirst Layout = iota
	// FeaturesFirst writes the feature columns, then File and Class.
	FeaturesFirst
)

// WriteCSV writes t in the FileFirst layout.
func WriteCSV(w io.Writer, t Table) error {
	return WriteCSVLayout(w, t, FileFirst)
}

// WriteCSVLayout writes t with the given column layout. Values are written
// with the shortest representation that parses back to the same float64.
// ReadCSV accepts either layout.
func WriteCSVLayout(w io.Writer, t Table, layout Layout) error {
	writer := csv.NewWriter(w)
	writer.Comma = Delimiter

	header := make([]string, 0, len(t.Columns)+2)
	if layout == FileFirst {
		header = append(header, FileColumn)
	}
	header = append(header, t.Columns...)
	if layout == FeaturesFirst {
		header = append(header, FileColumn)
	}
	header = append(header, ClassColumn)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range t.Rows {
		record := make([]string, 0, len(header))
		if layout == FileFirst {
			record = append(record, row.File)
		}
		for _, c := range t.Columns {
			record = append(record, strconv.FormatFloat(row.Values[c], 'g', -1, 64))
		}
		if layout == FeaturesFirst {
			record = append(record, row.File)
		}
		record = append(record, row.Class)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", row.File, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ReadCSV parses a feature table. The header must contain File and Class;
// every other column is a feature. When required is non-empty, all of its
// columns must be present or a *SchemaMismatch is returned before any row
// is read.
func ReadCSV(r io.Reader, required Schema) (Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, fmt.Errorf("feature table is empty")
		}
		return Table{}, fmt.Errorf("read header: %w", err)
	}

	fileIdx, classIdx := -1, -1
	var columns []string
	featureIdx := make(map[string]int)
	for i, name := range header {
		switch name {
		case FileColumn:
			fileIdx = i
		case ClassColumn:
			classIdx = i
		default:
			if _, dup := featureIdx[name]; dup {
				return Table{}, fmt.Errorf("duplicate column %q in header", name)
			}
			featureIdx[name] = i
			columns = append(columns, name)
		}
	}
	if fileIdx < 0 || classIdx < 0 {
		return Table{}, fmt.Errorf("header must contain %q and %q columns", FileColumn, ClassColumn)
	}

	var missing []string
	for _, c := range required {
		if _, ok := featureIdx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return Table{}, &SchemaMismatch{Missing: missing}
	}

	var rows []Vector
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("line %d: %w", line, err)
		}

		values := make(map[string]float64, len(columns))
		for _, c := range columns {
			raw := record[featureIdx[c]]
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Table{}, fmt.Errorf("line %d column %q: %w", line, c, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Table{}, fmt.Errorf("line %d column %q: value %q is not finite", line, c, raw)
			}
			values[c] = v
		}
		rows = append(rows, Vector{File: record[fileIdx], Class: record[classIdx], Values: values})
	}

	return NewTable(columns, rows)
}
