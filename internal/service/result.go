package service

import (
	"errors"
	"fmt"

	"exoplanet-backend/internal/models"
)

// Assemble maps an engine outcome onto the tagged analysis result. It has
// no side effects.
func Assemble(out Outcome, err error) models.AnalysisResult {
	if err != nil {
		return failureResult(err)
	}
	if out.Exact != nil {
		return models.AnalysisResult{
			Type:       models.ResultExactMatch,
			ExactMatch: out.Exact,
			Message:    fmt.Sprintf("Exact match found at record %d", out.Exact.RecordIndex),
		}
	}
	return models.AnalysisResult{
		Type: models.ResultMLAnalysis,
		MLAnalysis: &models.MLAnalysis{
			Classification: out.Classification,
			Neighbors:      out.Neighbors,
		},
		Message: fmt.Sprintf("No exact match; classified as %s from %d nearest neighbours",
			out.Classification.Classification, len(out.Neighbors)),
	}
}

// FailureCode returns the stable failure code for err.
func FailureCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		return models.FailureInvalidQuery
	case errors.Is(err, ErrInsufficientData):
		return models.FailureInsufficientData
	default:
		return models.FailureAnalysis
	}
}

func failureResult(err error) models.AnalysisResult {
	return models.AnalysisResult{
		Type: models.ResultFailure,
		Failure: &models.Failure{
			Message: err.Error(),
			Code:    FailureCode(err),
		},
		Message: "Analysis failed",
	}
}
