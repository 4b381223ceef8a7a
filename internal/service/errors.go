package service

import (
	"errors"
	"fmt"

	"exoplanet-backend/internal/state"
)

// Error taxonomy of the matching engine. Wrapped errors carry detail;
// callers classify with errors.Is.
var (
	ErrLoad             = state.ErrLoad
	ErrInvalidQuery     = errors.New("invalid query")
	ErrAnalysis         = errors.New("analysis error")
	ErrInsufficientData = errors.New("insufficient data")

	ErrNoLabelColumn = fmt.Errorf("%w: label column not in dataset", ErrInvalidQuery)
)

func invalidQuery(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}

func analysisError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrAnalysis, fmt.Sprintf(format, args...))
}

func insufficientData(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, fmt.Sprintf(format, args...))
}
