package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"exoplanet-backend/internal/models"
	"exoplanet-backend/internal/store"

	"github.com/google/uuid"
)

// Notes surfaced when persistence is not configured.
const (
	NoteNotSaved   = "Database not available - data not saved"
	NoteNoHistory  = "Database not available - no prediction history"
	noteSaveFailed = "Prediction could not be saved"
)

// PredictionService classifies whole-record submissions and keeps their
// history and feedback in a Store.
type PredictionService struct {
	engine *Engine
	store  store.Store
	now    func() time.Time
}

func NewPredictionService(engine *Engine, st store.Store) *PredictionService {
	if st == nil {
		st = store.Nop{}
	}
	return &PredictionService{
		engine: engine,
		store:  st,
		now:    time.Now,
	}
}

func (s *PredictionService) Engine() *Engine {
	return s.engine
}

// NewPrediction builds an unsaved prediction record with a fresh id.
func (s *PredictionService) NewPrediction(fv models.FeatureVector, cls models.Classification, source, userIP string) models.Prediction {
	return models.Prediction{
		ID:            uuid.NewString(),
		FeatureVector: fv,
		Prediction:    cls.Classification,
		Confidence:    cls.Confidence,
		Fallback:      cls.Fallback,
		Note:          cls.Note,
		Source:        source,
		UserIP:        userIP,
		Timestamp:     s.now().UTC(),
	}
}

// Classify validates and classifies one record without saving it.
func (s *PredictionService) Classify(ctx context.Context, req models.WholeRecordRequest, source, userIP string) (models.Prediction, error) {
	fv, cls, err := s.engine.SubmitWholeRecord(ctx, req)
	if err != nil {
		return models.Prediction{}, err
	}
	return s.NewPrediction(fv, cls, source, userIP), nil
}

// Predict classifies and saves one record. Storage problems do not fail
// the request; they are reported in the returned note.
func (s *PredictionService) Predict(ctx context.Context, req models.WholeRecordRequest, userIP string) (models.Prediction, string, error) {
	p, err := s.Classify(ctx, req, models.SourceSingle, userIP)
	if err != nil {
		return models.Prediction{}, "", err
	}
	return p, s.save(ctx, []models.Prediction{p}), nil
}

// SaveBatch persists a batch and returns a note when it could not.
func (s *PredictionService) SaveBatch(ctx context.Context, ps []models.Prediction) string {
	return s.save(ctx, ps)
}

func (s *PredictionService) save(ctx context.Context, ps []models.Prediction) string {
	if !s.store.Available() {
		return NoteNotSaved
	}
	var err error
	if len(ps) == 1 {
		err = s.store.Save(ctx, ps[0])
	} else {
		err = s.store.SaveBatch(ctx, ps)
	}
	if err != nil {
		log.Printf("[Predictions] Save failed: %v", err)
		return noteSaveFailed
	}
	return ""
}

// List returns one page of history, newest first.
func (s *PredictionService) List(ctx context.Context, page, limit int) (models.PredictionPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	if !s.store.Available() {
		return models.PredictionPage{
			Predictions: []models.Prediction{},
			CurrentPage: 1,
			Note:        NoteNoHistory,
		}, nil
	}

	preds, total, err := s.store.List(ctx, page, limit)
	if err != nil {
		return models.PredictionPage{}, err
	}
	return models.PredictionPage{
		Predictions: preds,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: page,
		Total:       total,
	}, nil
}

// Feedback records the ground-truth label of a stored prediction.
func (s *PredictionService) Feedback(ctx context.Context, id, actual string) (models.Prediction, error) {
	label, ok := models.CanonicalLabel(actual)
	if !ok {
		return models.Prediction{}, invalidQuery("unknown label %q (expected one of: %s)",
			actual, strings.Join(models.Labels(), ", "))
	}
	if err := s.store.SetActual(ctx, id, label); err != nil {
		return models.Prediction{}, err
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Prediction{}, err
	}
	log.Printf("[Feedback] %s: predicted %q, actual %q", id, p.Prediction, label)
	return p, nil
}

// Performance computes metrics over the stored history.
func (s *PredictionService) Performance(ctx context.Context) (models.Performance, error) {
	if !s.store.Available() {
		return DefaultPerformance(s.now().UTC()), nil
	}
	preds, err := s.store.All(ctx)
	if err != nil {
		return models.Performance{}, fmt.Errorf("load predictions: %w", err)
	}
	return ComputePerformance(preds, s.now().UTC()), nil
}

// IsNotFound reports whether err means an unknown prediction id.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

// IsUnavailable reports whether err means no database is configured.
func IsUnavailable(err error) bool {
	return errors.Is(err, store.ErrUnavailable)
}
