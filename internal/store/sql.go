package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"exoplanet-backend/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS predictions (
		id                  TEXT PRIMARY KEY,
		orbital_period      DOUBLE PRECISION NOT NULL,
		transit_duration    DOUBLE PRECISION NOT NULL,
		planetary_radius    DOUBLE PRECISION NOT NULL,
		stellar_radius      DOUBLE PRECISION NOT NULL,
		stellar_mass        DOUBLE PRECISION NOT NULL,
		stellar_temperature DOUBLE PRECISION NOT NULL,
		prediction          TEXT NOT NULL,
		confidence          DOUBLE PRECISION NOT NULL,
		fallback            INTEGER NOT NULL DEFAULT 0,
		note                TEXT NOT NULL DEFAULT '',
		source              TEXT NOT NULL DEFAULT '',
		actual              TEXT NOT NULL DEFAULT '',
		user_ip             TEXT NOT NULL DEFAULT '',
		row_num             INTEGER NOT NULL DEFAULT 0,
		error_message       TEXT NOT NULL DEFAULT '',
		created_at_ns       BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS predictions_created_idx ON predictions (created_at_ns)`,
}

const insertPrediction = `INSERT INTO predictions (
	id, orbital_period, transit_duration, planetary_radius, stellar_radius, stellar_mass,
	stellar_temperature, prediction, confidence, fallback, note, source, actual, user_ip,
	row_num, error_message, created_at_ns
) VALUES (
	:id, :orbital_period, :transit_duration, :planetary_radius, :stellar_radius, :stellar_mass,
	:stellar_temperature, :prediction, :confidence, :fallback, :note, :source, :actual, :user_ip,
	:row_num, :error_message, :created_at_ns
)`

// predictionRow is the portable column layout shared by sqlite and postgres.
type predictionRow struct {
	ID                 string  `db:"id"`
	OrbitalPeriod      float64 `db:"orbital_period"`
	TransitDuration    float64 `db:"transit_duration"`
	PlanetaryRadius    float64 `db:"planetary_radius"`
	StellarRadius      float64 `db:"stellar_radius"`
	StellarMass        float64 `db:"stellar_mass"`
	StellarTemperature float64 `db:"stellar_temperature"`
	Prediction         string  `db:"prediction"`
	Confidence         float64 `db:"confidence"`
	Fallback           int     `db:"fallback"`
	Note               string  `db:"note"`
	Source             string  `db:"source"`
	Actual             string  `db:"actual"`
	UserIP             string  `db:"user_ip"`
	RowNum             int     `db:"row_num"`
	ErrorMessage       string  `db:"error_message"`
	CreatedAtNs        int64   `db:"created_at_ns"`
}

func toRow(p models.Prediction) predictionRow {
	row := predictionRow{
		ID:                 p.ID,
		OrbitalPeriod:      p.OrbitalPeriod,
		TransitDuration:    p.TransitDuration,
		PlanetaryRadius:    p.PlanetaryRadius,
		StellarRadius:      p.StellarRadius,
		StellarMass:        p.StellarMass,
		StellarTemperature: p.StellarTemperature,
		Prediction:         p.Prediction,
		Confidence:         p.Confidence,
		Note:               p.Note,
		Source:             p.Source,
		Actual:             p.Actual,
		UserIP:             p.UserIP,
		RowNum:             p.Row,
		ErrorMessage:       p.Error,
		CreatedAtNs:        p.Timestamp.UnixNano(),
	}
	if p.Fallback {
		row.Fallback = 1
	}
	return row
}

func (r predictionRow) model() models.Prediction {
	return models.Prediction{
		ID: r.ID,
		FeatureVector: models.FeatureVector{
			OrbitalPeriod:      r.OrbitalPeriod,
			TransitDuration:    r.TransitDuration,
			PlanetaryRadius:    r.PlanetaryRadius,
			StellarRadius:      r.StellarRadius,
			StellarMass:        r.StellarMass,
			StellarTemperature: r.StellarTemperature,
		},
		Prediction: r.Prediction,
		Confidence: r.Confidence,
		Fallback:   r.Fallback != 0,
		Note:       r.Note,
		Source:     r.Source,
		Actual:     r.Actual,
		UserIP:     r.UserIP,
		Row:        r.RowNum,
		Error:      r.ErrorMessage,
		Timestamp:  time.Unix(0, r.CreatedAtNs).UTC(),
	}
}

// SQLStore keeps predictions in a sqlite or postgres table.
type SQLStore struct {
	db *sqlx.DB
}

// OpenSQL connects, pings and ensures the schema exists.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s store requires a DSN", driver)
	}
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// sqlite allows one writer at a time.
		db.SetMaxOpenConns(1)
	}
	s := &SQLStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an existing connection and ensures the schema exists.
func NewSQLStore(ctx context.Context, db *sqlx.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate predictions: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) Save(ctx context.Context, p models.Prediction) error {
	_, err := s.db.NamedExecContext(ctx, insertPrediction, toRow(p))
	return err
}

func (s *SQLStore) SaveBatch(ctx context.Context, ps []models.Prediction) error {
	if len(ps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, p := range ps {
		if _, err := tx.NamedExecContext(ctx, insertPrediction, toRow(p)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Get(ctx context.Context, id string) (models.Prediction, error) {
	var row predictionRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT * FROM predictions WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Prediction{}, ErrNotFound
	}
	if err != nil {
		return models.Prediction{}, err
	}
	return row.model(), nil
}

func (s *SQLStore) List(ctx context.Context, page, limit int) ([]models.Prediction, int, error) {
	_, limit, offset := pageBounds(page, limit)

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM predictions`); err != nil {
		return nil, 0, err
	}

	var rows []predictionRow
	query := s.db.Rebind(`SELECT * FROM predictions ORDER BY created_at_ns DESC, id DESC LIMIT ? OFFSET ?`)
	if err := s.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, err
	}
	out := make([]models.Prediction, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, total, nil
}

func (s *SQLStore) SetActual(ctx context.Context, id, actual string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE predictions SET actual = ? WHERE id = ?`), actual, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) All(ctx context.Context) ([]models.Prediction, error) {
	var rows []predictionRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM predictions ORDER BY created_at_ns, id`); err != nil {
		return nil, err
	}
	out := make([]models.Prediction, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

func (s *SQLStore) Available() bool { return true }

func (s *SQLStore) Close() error {
	return s.db.Close()
}
