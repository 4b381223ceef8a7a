package models

const (
	ColumnTypeNumeric = "numeric"
	ColumnTypeText    = "text"
)

// ColumnProfile summarises one dataset column. Min, Max, Mean and Median are
// set only for numeric columns with at least one non-null value.
type ColumnProfile struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	IsNumeric    bool     `json:"is_numeric"`
	NonNullCount int      `json:"non_null_count"`
	NullCount    int      `json:"null_count"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
	Mean         *float64 `json:"mean,omitempty"`
	Median       *float64 `json:"median,omitempty"`
}

// HasRange reports whether the profile can normalise values.
func (p ColumnProfile) HasRange() bool {
	return p.IsNumeric && p.Min != nil && p.Max != nil
}

// ColumnsResponse is returned by /api/columns
type ColumnsResponse struct {
	Columns        []ColumnProfile `json:"columns"`
	DatasetVersion uint64          `json:"dataset_version"`
	Error          string          `json:"error,omitempty"`
}
