package service

import (
	"context"
	"fmt"
	"log"
	"math"

	"exoplanet-backend/internal/models"
)

// Fixed answer used when the classifier cannot be reached.
const (
	FallbackLabel      = models.LabelCandidate
	FallbackConfidence = 0.75
)

// ValidateWholeRecord checks a whole-record submission and applies stellar
// defaults. Required fields must be present; every field must be a finite,
// non-negative number.
func ValidateWholeRecord(req models.WholeRecordRequest) (models.FeatureVector, error) {
	required := []struct {
		name string
		val  *float64
	}{
		{"orbital_period", req.OrbitalPeriod},
		{"transit_duration", req.TransitDuration},
		{"planetary_radius", req.PlanetaryRadius},
	}
	for _, f := range required {
		if f.val == nil {
			return models.FeatureVector{}, invalidQuery("%s is required", f.name)
		}
	}

	fv := models.FeatureVector{
		OrbitalPeriod:      *req.OrbitalPeriod,
		TransitDuration:    *req.TransitDuration,
		PlanetaryRadius:    *req.PlanetaryRadius,
		StellarRadius:      valueOr(req.StellarRadius, models.DefaultStellarRadius),
		StellarMass:        valueOr(req.StellarMass, models.DefaultStellarMass),
		StellarTemperature: valueOr(req.StellarTemperature, models.DefaultStellarTemperature),
	}

	fields := []struct {
		name string
		val  float64
	}{
		{"orbital_period", fv.OrbitalPeriod},
		{"transit_duration", fv.TransitDuration},
		{"planetary_radius", fv.PlanetaryRadius},
		{"stellar_radius", fv.StellarRadius},
		{"stellar_mass", fv.StellarMass},
		{"stellar_temperature", fv.StellarTemperature},
	}
	for _, f := range fields {
		if math.IsNaN(f.val) || math.IsInf(f.val, 0) {
			return models.FeatureVector{}, invalidQuery("%s must be a finite number", f.name)
		}
		if f.val < 0 {
			return models.FeatureVector{}, invalidQuery("%s must be non-negative", f.name)
		}
	}
	return fv, nil
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// SubmitWholeRecord classifies a six-field vector with the black-box
// classifier. Classifier failures never fail the request: the fixed
// fallback is returned, flagged, with a note.
func (e *Engine) SubmitWholeRecord(ctx context.Context, req models.WholeRecordRequest) (models.FeatureVector, models.Classification, error) {
	fv, err := ValidateWholeRecord(req)
	if err != nil {
		return fv, models.Classification{}, err
	}
	return fv, e.classifyVector(ctx, fv), nil
}

func (e *Engine) classifyVector(ctx context.Context, fv models.FeatureVector) models.Classification {
	ctx, cancel := context.WithTimeout(ctx, e.predictTimeout)
	defer cancel()

	res, err := e.predictor.Predict(ctx, fv)
	if err != nil {
		log.Printf("[Predictor] %s failed, using fallback: %v", e.predictor.Name(), err)
		return fallbackClassification(fmt.Sprintf("classifier unavailable: %v", err))
	}

	label, ok := models.CanonicalLabel(res.Classification)
	if !ok {
		log.Printf("[Predictor] %s returned unknown label %q, using fallback", e.predictor.Name(), res.Classification)
		return fallbackClassification(fmt.Sprintf("classifier returned unknown label %q", res.Classification))
	}
	return models.Classification{
		Classification: label,
		Confidence:     clamp01(res.Confidence),
	}
}

func fallbackClassification(note string) models.Classification {
	return models.Classification{
		Classification: FallbackLabel,
		Confidence:     FallbackConfidence,
		Fallback:       true,
		Note:           note,
	}
}
