package store

import (
	"context"

	"exoplanet-backend/internal/models"
)

// Nop is used when no database is configured. Writes fail with
// ErrUnavailable; reads return nothing.
type Nop struct{}

func (Nop) Save(context.Context, models.Prediction) error        { return ErrUnavailable }
func (Nop) SaveBatch(context.Context, []models.Prediction) error { return ErrUnavailable }

func (Nop) Get(context.Context, string) (models.Prediction, error) {
	return models.Prediction{}, ErrUnavailable
}

func (Nop) List(context.Context, int, int) ([]models.Prediction, int, error) {
	return []models.Prediction{}, 0, nil
}

func (Nop) SetActual(context.Context, string, string) error { return ErrUnavailable }

func (Nop) All(context.Context) ([]models.Prediction, error) {
	return []models.Prediction{}, nil
}

func (Nop) Available() bool { return false }
func (Nop) Close() error    { return nil }
