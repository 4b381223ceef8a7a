package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"exoplanet-backend/internal/models"
	"exoplanet-backend/internal/state"
)

const (
	// DefaultNeighbors is the neighbour count used when none is configured.
	DefaultNeighbors = 5
	// MaxNeighbors bounds the configurable neighbour count.
	MaxNeighbors = 100

	numericTolerance = 1e-9
	cancelCheckEvery = 1024
)

// selection is a validated query: the selected columns in request order and
// their trimmed values.
type selection struct {
	columns []string
	values  map[string]string
}

// validateQuery rejects empty selections and selected columns without a
// value. Duplicate column names collapse to their first occurrence.
func validateQuery(q models.Query) (selection, error) {
	sel := selection{values: make(map[string]string, len(q.SelectedColumns))}
	seen := make(map[string]bool, len(q.SelectedColumns))
	for _, raw := range q.SelectedColumns {
		col := strings.TrimSpace(raw)
		if col == "" || seen[col] {
			continue
		}
		seen[col] = true
		sel.columns = append(sel.columns, col)
	}
	if len(sel.columns) == 0 {
		return sel, invalidQuery("no columns selected")
	}

	var missing []string
	for _, col := range sel.columns {
		val, ok := q.Values[col]
		val = strings.TrimSpace(val)
		if !ok || val == "" {
			missing = append(missing, col)
			continue
		}
		sel.values[col] = val
	}
	if len(missing) > 0 {
		return sel, invalidQuery("missing values for selected columns: %s", strings.Join(missing, ", "))
	}
	return sel, nil
}

// checkColumns rejects selected columns that are not in the schema.
func checkColumns(ds *state.Dataset, sel selection) error {
	known := ds.Columns()
	for _, col := range sel.columns {
		if ds.HasColumn(col) {
			continue
		}
		if hint, ok := SuggestColumn(col, known); ok {
			return invalidQuery("unknown column %q (did you mean %q?)", col, hint)
		}
		return invalidQuery("unknown column %q", col)
	}
	return nil
}

// FindExactMatch returns the lowest record index equal to the query on
// every selected column. Numeric columns compare within a fixed tolerance
// and fall back to trimmed string comparison when the query value does
// not parse. Text columns compare case-sensitively. Null never matches.
func FindExactMatch(ctx context.Context, ds *state.Dataset, columns []string, values map[string]string) (int, bool, error) {
	type comparer struct {
		idx     int
		numeric bool
		raw     string
		num     float64
	}
	cmps := make([]comparer, 0, len(columns))
	for _, col := range columns {
		idx, ok := ds.Schema.Index(col)
		if !ok {
			return 0, false, invalidQuery("unknown column %q", col)
		}
		c := comparer{idx: idx, raw: strings.TrimSpace(values[col])}
		if ds.Numeric[idx] {
			c.num, c.numeric = state.ParseNumber(c.raw)
		}
		cmps = append(cmps, c)
	}

	for i, rec := range ds.Records {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return 0, false, analysisError("cancelled: %v", err)
			}
		}

		matched := true
		for _, c := range cmps {
			v := rec.At(c.idx)
			switch {
			case v.IsNull():
				matched = false
			case c.numeric && v.Kind == models.KindNumber:
				matched = math.Abs(v.Num-c.num) < numericTolerance
			default:
				matched = strings.TrimSpace(v.Raw) == c.raw
			}
			if !matched {
				break
			}
		}
		if matched {
			return i, true, nil
		}
	}
	return 0, false, nil
}

// columnMetric computes one column's contribution to a distance.
type columnMetric struct {
	name    string
	idx     int
	numeric bool
	text    string
	qNorm   float64
	min     float64
	span    float64
}

func (m columnMetric) contribution(v models.Value) float64 {
	if v.IsNull() {
		return 1
	}
	if !m.numeric {
		if v.Raw == m.text {
			return 0
		}
		return 1
	}
	if m.span == 0 {
		return 0
	}
	d := m.qNorm - unit((v.Num-m.min)/m.span)
	return d * d
}

// unit clamps a normalised value to [0,1] so a numeric column never
// contributes more than a missing value does.
func unit(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func buildMetrics(ds *state.Dataset, profiles *ProfileSet, columns []string, values map[string]string) ([]columnMetric, error) {
	metrics := make([]columnMetric, 0, len(columns))
	for _, col := range columns {
		idx, ok := ds.Schema.Index(col)
		if !ok {
			return nil, invalidQuery("unknown column %q", col)
		}
		m := columnMetric{name: col, idx: idx, numeric: ds.Numeric[idx], text: values[col]}
		if !m.numeric {
			metrics = append(metrics, m)
			continue
		}

		q, ok := state.ParseNumber(values[col])
		if !ok {
			return nil, analysisError("value %q for numeric column %q is not a number", values[col], col)
		}
		profile, ok := profiles.Lookup(col)
		if !ok || !profile.IsNumeric {
			return nil, analysisError("no numeric profile for column %q", col)
		}
		if profile.NonNullCount > 0 {
			if !profile.HasRange() {
				return nil, analysisError("column %q has no value range", col)
			}
			m.min = *profile.Min
			m.span = *profile.Max - *profile.Min
			if m.span != 0 {
				m.qNorm = unit((q - m.min) / m.span)
			}
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// Distance is the Euclidean norm of per-column contributions of rec
// against the query over the selected columns.
func Distance(rec models.Record, metrics []columnMetric) float64 {
	sum := 0.0
	for _, m := range metrics {
		sum += m.contribution(rec.At(m.idx))
	}
	return math.Sqrt(sum)
}

// Similarity maps a distance onto (0,1]; it strictly decreases with distance.
func Similarity(distance float64) float64 {
	return 1 / (1 + distance)
}

// FindNeighbors ranks every record by distance from the query and returns
// the k nearest, ordered by ascending distance then ascending index.
func FindNeighbors(ctx context.Context, ds *state.Dataset, profiles *ProfileSet, columns []string, values map[string]string, k int) ([]models.Neighbor, error) {
	if k <= 0 {
		k = DefaultNeighbors
	}
	metrics, err := buildMetrics(ds, profiles, columns, values)
	if err != nil {
		return nil, err
	}

	type scored struct {
		idx  int
		dist float64
	}
	ranked := make([]scored, len(ds.Records))
	for i, rec := range ds.Records {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, analysisError("cancelled: %v", err)
			}
		}
		d := Distance(rec, metrics)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return nil, analysisError("undefined distance for record %d", i)
		}
		ranked[i] = scored{idx: i, dist: d}
	}

	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].dist != ranked[b].dist {
			return ranked[a].dist < ranked[b].dist
		}
		return ranked[a].idx < ranked[b].idx
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	neighbors := make([]models.Neighbor, len(ranked))
	for i, r := range ranked {
		neighbors[i] = models.Neighbor{
			RecordIndex:     r.idx,
			Record:          ds.Records[r.idx],
			Distance:        r.dist,
			SimilarityScore: Similarity(r.dist),
		}
	}
	return neighbors, nil
}

// Outcome is the raw result of an analysis before assembly.
type Outcome struct {
	Exact          *models.ExactMatch
	Neighbors      []models.Neighbor
	Classification models.Classification
}

// analyze runs validation, exact match and neighbour search against one
// snapshot. Expected failures come back as wrapped taxonomy errors.
func (e *Engine) analyze(ctx context.Context, ds *state.Dataset, q models.Query) (Outcome, error) {
	sel, err := validateQuery(q)
	if err != nil {
		return Outcome{}, err
	}
	if ds.Len() == 0 {
		return Outcome{}, insufficientData("reference dataset is empty")
	}
	if err := checkColumns(ds, sel); err != nil {
		return Outcome{}, err
	}

	idx, ok, err := FindExactMatch(ctx, ds, sel.columns, sel.values)
	if err != nil {
		return Outcome{}, err
	}
	if ok {
		return Outcome{Exact: &models.ExactMatch{Record: ds.Records[idx], RecordIndex: idx}}, nil
	}

	if !ds.HasColumn(e.deriver.LabelColumn()) {
		return Outcome{}, fmt.Errorf("%w: %q", ErrNoLabelColumn, e.deriver.LabelColumn())
	}

	neighbors, err := FindNeighbors(ctx, ds, e.profiles.Get(ds), sel.columns, sel.values, e.k)
	if err != nil {
		return Outcome{}, err
	}
	cls, err := e.deriver.Classify(neighbors)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Neighbors: neighbors, Classification: cls}, nil
}

// isExpected reports whether err belongs to the engine's failure taxonomy.
func isExpected(err error) bool {
	return errors.Is(err, ErrInvalidQuery) || errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrAnalysis)
}
