package features

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Schema is the ordered list of feature columns a classifier consumes.
type Schema []string

// DefaultSchema is the feature subset picked for the gesture dataset.
var DefaultSchema = Schema{
	"Gyro_Z_Area under the curve",
	"Gyro_X_Slope",
	"Gyro_X_Sum absolute diff",
	"Gyro_X_Signal distance",
	"Accel_Z_Mean",
}

// Validate rejects empty schemas, blank or reserved names and duplicates.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schema has no columns")
	}
	seen := make(map[string]struct{}, len(s))
	for _, c := range s {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("schema contains a blank column name")
		}
		if c == FileColumn || c == ClassColumn {
			return fmt.Errorf("schema column %q is reserved", c)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("schema column %q is listed twice", c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Equal reports whether both schemas list the same columns in the same order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// SchemaStatus tags the outcome of a projection.
type SchemaStatus int

const (
	// SchemaFull means every requested column was present.
	SchemaFull SchemaStatus = iota
	// SchemaDegraded means some requested columns were absent and dropped.
	SchemaDegraded
)

func (s SchemaStatus) String() string {
	switch s {
	case SchemaFull:
		return "full"
	case SchemaDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("SchemaStatus(%d)", int(s))
	}
}

// SchemaMismatch lists requested columns missing from a table.
type SchemaMismatch struct {
	Missing []string
}

func (e *SchemaMismatch) Error() string {
	return fmt.Sprintf("schema mismatch: missing columns %s", strings.Join(e.Missing, ", "))
}

// PredictionSchemaError is fatal: the table handed to a trained model does
// not carry the exact schema the model was trained on.
type PredictionSchemaError struct {
	Expected Schema
	Missing  []string
}

func (e *PredictionSchemaError) Error() string {
	return fmt.Sprintf("prediction schema error: model expects %d columns, missing %s",
		len(e.Expected), strings.Join(e.Missing, ", "))
}

// Selection describes how a requested schema was realized on a table.
type Selection struct {
	Status    SchemaStatus
	Requested Schema
	Realized  Schema
	Missing   []string
}

// Err returns a *SchemaMismatch for degraded selections and nil otherwise.
func (s Selection) Err() error {
	if s.Status == SchemaDegraded {
		return &SchemaMismatch{Missing: s.Missing}
	}
	return nil
}

// Select projects t onto schema, preserving row order. Absent columns are
// dropped and reported in the returned Selection; this is the training
// path, where the realized schema is persisted with the model.
func Select(t Table, schema Schema) (Table, Selection) {
	sel := Selection{Status: SchemaFull, Requested: schema}
	for _, c := range schema {
		if t.Has(c) {
			sel.Realized = append(sel.Realized, c)
		} else {
			sel.Missing = append(sel.Missing, c)
		}
	}
	if len(sel.Missing) > 0 {
		sel.Status = SchemaDegraded
		log.Warn().
			Strs("missing", sel.Missing).
			Strs("realized", sel.Realized).
			Msg("Selected features missing from table, continuing with available columns")
	}
	return project(t, sel.Realized), sel
}

// SelectStrict projects t onto schema and fails with a
// *PredictionSchemaError if any column is absent. This is the inference path.
func SelectStrict(t Table, schema Schema) (Table, error) {
	var missing []string
	for _, c := range schema {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return Table{}, &PredictionSchemaError{Expected: schema, Missing: missing}
	}
	return project(t, schema), nil
}

func project(t Table, columns Schema) Table {
	rows := make([]Vector, len(t.Rows))
	for i, r := range t.Rows {
		values := make(map[string]float64, len(columns))
		for _, c := range columns {
			values[c] = r.Values[c]
		}
		rows[i] = Vector{File: r.File, Class: r.Class, Values: values}
	}
	return Table{Columns: append([]string(nil), columns...), Rows: rows}
}
