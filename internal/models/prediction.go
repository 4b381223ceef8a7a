package models

import "time"

// Defaults applied to optional stellar parameters of a whole-record submission.
const (
	DefaultStellarRadius      = 1.0
	DefaultStellarMass        = 1.0
	DefaultStellarTemperature = 5778.0
)

// FeatureVector is the fixed six-field input of the black-box classifier.
type FeatureVector struct {
	OrbitalPeriod      float64 `json:"orbital_period"`
	TransitDuration    float64 `json:"transit_duration"`
	PlanetaryRadius    float64 `json:"planetary_radius"`
	StellarRadius      float64 `json:"stellar_radius"`
	StellarMass        float64 `json:"stellar_mass"`
	StellarTemperature float64 `json:"stellar_temperature"`
}

// WholeRecordRequest is the legacy single-record submission. Nil fields are absent.
type WholeRecordRequest struct {
	OrbitalPeriod      *float64 `json:"orbital_period"`
	TransitDuration    *float64 `json:"transit_duration"`
	PlanetaryRadius    *float64 `json:"planetary_radius"`
	StellarRadius      *float64 `json:"stellar_radius,omitempty"`
	StellarMass        *float64 `json:"stellar_mass,omitempty"`
	StellarTemperature *float64 `json:"stellar_temperature,omitempty"`
}

// Prediction sources.
const (
	SourceSingle = "single"
	SourceBatch  = "batch"
)

// Prediction is a stored classification of a whole-record submission.
type Prediction struct {
	ID string `json:"id"`
	FeatureVector
	Prediction string    `json:"prediction"`
	Confidence float64   `json:"confidence"`
	Fallback   bool      `json:"fallback,omitempty"`
	Note       string    `json:"note,omitempty"`
	Source     string    `json:"source"`
	Actual     string    `json:"actual,omitempty"`
	UserIP     string    `json:"user_ip"`
	Row        int       `json:"row,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// PredictionPage is returned by /api/predictions
type PredictionPage struct {
	Predictions []Prediction `json:"predictions"`
	TotalPages  int          `json:"total_pages"`
	CurrentPage int          `json:"current_page"`
	Total       int          `json:"total"`
	Note        string       `json:"note,omitempty"`
}

// CalibrationBucket groups labelled predictions by confidence range.
type CalibrationBucket struct {
	RangeMin       float64 `json:"range_min"`
	RangeMax       float64 `json:"range_max"`
	TotalCount     int     `json:"total_count"`
	CorrectCount   int     `json:"correct_count"`
	ActualAccuracy float64 `json:"actual_accuracy"`
}

// ConfidenceInterval is a two-sided interval around an estimated rate.
type ConfidenceInterval struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Mean       float64 `json:"mean"`
	Confidence float64 `json:"confidence"`
}

// Performance is returned by /api/performance
type Performance struct {
	Accuracy            float64             `json:"accuracy"`
	AccuracyInterval    *ConfidenceInterval `json:"accuracy_interval,omitempty"`
	Precision           float64             `json:"precision"`
	Recall              float64             `json:"recall"`
	F1Score             float64             `json:"f1_score"`
	TotalPredictions    int                 `json:"total_predictions"`
	LabelledPredictions int                 `json:"labelled_predictions"`
	FallbackPredictions int                 `json:"fallback_predictions"`
	ByClassification    map[string]int      `json:"by_classification"`
	Calibration         []CalibrationBucket `json:"calibration"`
	LastUpdated         time.Time           `json:"last_updated"`
	Note                string              `json:"note,omitempty"`
}
