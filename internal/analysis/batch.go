// Package analysis classifies uploaded CSV batches of whole records.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"exoplanet-backend/internal/models"
	"exoplanet-backend/internal/service"
	"exoplanet-backend/internal/state"
)

// ErrNoFeatureColumns is returned when a file maps onto none of the
// required feature columns.
var ErrNoFeatureColumns = errors.New("no recognised feature columns")

// Feature fields of the six-field vector.
const (
	fieldOrbitalPeriod      = "orbital_period"
	fieldTransitDuration    = "transit_duration"
	fieldPlanetaryRadius    = "planetary_radius"
	fieldStellarRadius      = "stellar_radius"
	fieldStellarMass        = "stellar_mass"
	fieldStellarTemperature = "stellar_temperature"
)

// headerAliases maps normalised header names onto feature fields. NASA
// KOI column names are accepted alongside the API field names.
var headerAliases = map[string]string{
	"orbital_period":      fieldOrbitalPeriod,
	"orbitalperiod":       fieldOrbitalPeriod,
	"koi_period":          fieldOrbitalPeriod,
	"pl_orbper":           fieldOrbitalPeriod,
	"transit_duration":    fieldTransitDuration,
	"transitduration":     fieldTransitDuration,
	"koi_duration":        fieldTransitDuration,
	"pl_trandurh":         fieldTransitDuration,
	"planetary_radius":    fieldPlanetaryRadius,
	"planetaryradius":     fieldPlanetaryRadius,
	"koi_prad":            fieldPlanetaryRadius,
	"pl_rade":             fieldPlanetaryRadius,
	"stellar_radius":      fieldStellarRadius,
	"stellarradius":       fieldStellarRadius,
	"koi_srad":            fieldStellarRadius,
	"st_rad":              fieldStellarRadius,
	"stellar_mass":        fieldStellarMass,
	"stellarmass":         fieldStellarMass,
	"koi_smass":           fieldStellarMass,
	"st_mass":             fieldStellarMass,
	"stellar_temperature": fieldStellarTemperature,
	"stellartemperature":  fieldStellarTemperature,
	"koi_steff":           fieldStellarTemperature,
	"st_teff":             fieldStellarTemperature,
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

// mapHeaders returns field -> column index. The first matching column wins.
func mapHeaders(headers []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range headers {
		field, ok := headerAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, dup := idx[field]; !dup {
			idx[field] = i
		}
	}
	return idx
}

// rowRequest builds a whole-record request from one CSV row. Empty cells
// are absent; non-numeric cells are an error.
func rowRequest(row []string, idx map[string]int) (models.WholeRecordRequest, error) {
	var req models.WholeRecordRequest
	targets := map[string]**float64{
		fieldOrbitalPeriod:      &req.OrbitalPeriod,
		fieldTransitDuration:    &req.TransitDuration,
		fieldPlanetaryRadius:    &req.PlanetaryRadius,
		fieldStellarRadius:      &req.StellarRadius,
		fieldStellarMass:        &req.StellarMass,
		fieldStellarTemperature: &req.StellarTemperature,
	}
	for field, col := range idx {
		if col >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[col])
		if cell == "" {
			continue
		}
		v, ok := state.ParseNumber(cell)
		if !ok {
			return req, fmt.Errorf("%s: %q is not a number", field, cell)
		}
		*targets[field] = &v
	}
	return req, nil
}

// BatchService classifies every row of an uploaded CSV.
type BatchService struct {
	predictions *service.PredictionService
	workers     int
}

func NewBatchService(predictions *service.PredictionService, workers int) *BatchService {
	if workers < 1 {
		workers = 4
	}
	return &BatchService{predictions: predictions, workers: workers}
}

// ClassifyCSV classifies each row with a bounded worker pool. Output order
// matches input order. Invalid rows are reported per row and never fail
// the batch; classified rows are saved in one batch.
func (s *BatchService) ClassifyCSV(ctx context.Context, r io.Reader, userIP string) (models.UploadResponse, error) {
	headers, rows, err := state.ReadCSV(r)
	if err != nil {
		return models.UploadResponse{}, fmt.Errorf("parse CSV: %w", err)
	}
	idx := mapHeaders(headers)
	if len(idx) == 0 {
		return models.UploadResponse{}, fmt.Errorf("%w (expected e.g. orbital_period, transit_duration, planetary_radius)", ErrNoFeatureColumns)
	}

	start := time.Now()
	results := make([]models.Prediction, len(rows))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.classifyRow(ctx, rows[i], idx, i+1, userIP)
			}
		}()
	}
	for i := range rows {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var ok []models.Prediction
	failed := 0
	for _, p := range results {
		if p.Error != "" {
			failed++
			continue
		}
		ok = append(ok, p)
	}

	note := ""
	if len(ok) > 0 {
		note = s.predictions.SaveBatch(ctx, ok)
	}

	log.Printf("[Batch] Classified %d rows (%d failed) in %v", len(rows), failed, time.Since(start))
	return models.UploadResponse{
		Message:        "File processed successfully",
		Predictions:    results,
		TotalProcessed: len(rows),
		Failed:         failed,
		Note:           note,
	}, nil
}

func (s *BatchService) classifyRow(ctx context.Context, row []string, idx map[string]int, rowNum int, userIP string) models.Prediction {
	req, err := rowRequest(row, idx)
	if err == nil {
		var p models.Prediction
		p, err = s.predictions.Classify(ctx, req, models.SourceBatch, userIP)
		if err == nil {
			p.Row = rowNum
			return p
		}
	}
	return models.Prediction{
		Source:    models.SourceBatch,
		UserIP:    userIP,
		Row:       rowNum,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	}
}
