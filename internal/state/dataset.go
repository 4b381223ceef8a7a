package state

import (
	"math"
	"strconv"
	"strings"
	"time"

	"exoplanet-backend/internal/models"
)

// Dataset is an immutable snapshot of the reference table. A reload builds a
// new Dataset; existing ones are never mutated.
type Dataset struct {
	Version  uint64
	Path     string
	LoadedAt time.Time

	Schema  *models.Schema
	Numeric []bool
	Records []models.Record
}

// NewDataset infers column types and builds typed records from raw rows.
// A column is numeric iff every non-empty cell parses as a real number.
func NewDataset(headers []string, rows [][]string) *Dataset {
	schema := models.NewSchema(cleanHeaders(headers))
	names := schema.Names()

	numeric := make([]bool, len(names))
	for colIdx := range names {
		numeric[colIdx] = isNumericColumn(rows, colIdx)
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		values := make([]models.Value, len(names))
		for colIdx := range names {
			cell := ""
			if colIdx < len(row) {
				cell = strings.TrimSpace(row[colIdx])
			}
			switch {
			case cell == "":
				values[colIdx] = models.NullValue()
			case numeric[colIdx]:
				num, _ := ParseNumber(cell)
				values[colIdx] = models.NumberValue(cell, num)
			default:
				values[colIdx] = models.TextValue(cell)
			}
		}
		records = append(records, models.NewRecord(schema, values))
	}

	return &Dataset{
		LoadedAt: time.Now(),
		Schema:   schema,
		Numeric:  numeric,
		Records:  records,
	}
}

func isNumericColumn(rows [][]string, colIdx int) bool {
	for _, row := range rows {
		if colIdx >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[colIdx])
		if val == "" {
			continue
		}
		if _, ok := ParseNumber(val); !ok {
			return false
		}
	}
	return true
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Columns returns the column names in schema order.
func (d *Dataset) Columns() []string {
	if d == nil || d.Schema == nil {
		return nil
	}
	return d.Schema.Names()
}

// HasColumn reports whether a column is part of the schema.
func (d *Dataset) HasColumn(name string) bool {
	return d != nil && d.Schema != nil && d.Schema.Has(name)
}

// IsNumeric reports the inferred type of a column.
func (d *Dataset) IsNumeric(name string) bool {
	if d == nil || d.Schema == nil {
		return false
	}
	i, ok := d.Schema.Index(name)
	return ok && d.Numeric[i]
}

// ParseNumber parses integers and decimals with optional exponent. Hex
// floats, digit separators, NaN and infinities are rejected.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
