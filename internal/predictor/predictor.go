// Package predictor talks to the black-box exoplanet classifier that scores
// a fixed six-field feature vector.
package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"exoplanet-backend/internal/models"
)

// ErrUnavailable is returned when no classifier is configured.
var ErrUnavailable = errors.New("classifier not available")

// Result is the classifier's raw answer. Classification is not yet
// canonicalised.
type Result struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Error          string  `json:"error,omitempty"`
}

// Predictor scores a feature vector. Implementations must honour ctx.
type Predictor interface {
	Predict(ctx context.Context, fv models.FeatureVector) (Result, error)
	Name() string
}

// Unavailable is the Predictor used when nothing is configured.
type Unavailable struct{}

func (Unavailable) Predict(ctx context.Context, fv models.FeatureVector) (Result, error) {
	return Result{}, ErrUnavailable
}

func (Unavailable) Name() string { return "none" }

var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// parseResult extracts the first JSON object from raw classifier output.
// A result carrying an error field is treated as a failed prediction.
func parseResult(raw []byte) (Result, error) {
	obj := jsonObject.Find(raw)
	if obj == nil {
		return Result{}, fmt.Errorf("no JSON found in classifier output")
	}

	var res Result
	if err := json.Unmarshal(obj, &res); err != nil {
		return Result{}, fmt.Errorf("decode classifier output: %w", err)
	}
	if res.Error != "" {
		return res, fmt.Errorf("classifier error: %s", res.Error)
	}
	if res.Classification == "" {
		return res, fmt.Errorf("classifier returned no classification")
	}
	return res, nil
}
