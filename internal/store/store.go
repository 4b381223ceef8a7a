// Package store persists classified predictions and their feedback labels.
package store

import (
	"context"
	"errors"
	"fmt"

	"exoplanet-backend/internal/models"
)

var (
	// ErrNotFound is returned when no prediction has the requested id.
	ErrNotFound = errors.New("prediction not found")
	// ErrUnavailable is returned by the Nop store.
	ErrUnavailable = errors.New("database not available")
)

// Store is an append/query store for predictions. List returns the page
// newest first together with the total count.
type Store interface {
	Save(ctx context.Context, p models.Prediction) error
	SaveBatch(ctx context.Context, ps []models.Prediction) error
	Get(ctx context.Context, id string) (models.Prediction, error)
	List(ctx context.Context, page, limit int) ([]models.Prediction, int, error)
	SetActual(ctx context.Context, id, actual string) error
	All(ctx context.Context) ([]models.Prediction, error)
	Available() bool
	Close() error
}

// Supported drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// Open returns a Store for the given driver. The dsn is a file path for
// sqlite and bolt and a connection string for postgres.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", DriverNone:
		return Nop{}, nil
	case DriverSQLite, DriverPostgres:
		s, err := OpenSQL(ctx, driver, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverBolt:
		s, err := OpenBolt(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// pageBounds normalises page/limit to 1-based page and positive limit and
// returns the row offset.
func pageBounds(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return page, limit, (page - 1) * limit
}
