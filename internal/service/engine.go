package service

import (
	"context"
	"log"
	"time"

	"exoplanet-backend/internal/models"
	"exoplanet-backend/internal/predictor"
	"exoplanet-backend/internal/state"
)

// Snapshotter provides the current dataset snapshot.
type Snapshotter interface {
	Snapshot() *state.Dataset
}

type EngineOptions struct {
	Neighbors      int
	LabelColumn    string
	Predictor      predictor.Predictor
	PredictTimeout time.Duration
}

// Engine is the record-matching and classification core. It holds no
// mutable state of its own; every call captures one dataset snapshot.
type Engine struct {
	source         Snapshotter
	profiles       *ProfileStore
	deriver        *Deriver
	predictor      predictor.Predictor
	k              int
	predictTimeout time.Duration
}

func NewEngine(source Snapshotter, profiles *ProfileStore, opts EngineOptions) *Engine {
	k := opts.Neighbors
	if k <= 0 {
		k = DefaultNeighbors
	}
	if k > MaxNeighbors {
		k = MaxNeighbors
	}
	p := opts.Predictor
	if p == nil {
		p = predictor.Unavailable{}
	}
	timeout := opts.PredictTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if profiles == nil {
		profiles = NewProfileStore(0)
	}
	return &Engine{
		source:         source,
		profiles:       profiles,
		deriver:        NewDeriver(opts.LabelColumn),
		predictor:      p,
		k:              k,
		predictTimeout: timeout,
	}
}

func (e *Engine) Neighbors() int {
	return e.k
}

func (e *Engine) LabelColumn() string {
	return e.deriver.LabelColumn()
}

// ColumnProfiles returns the profiles of the current snapshot and its version.
// Both are zero before the first load.
func (e *Engine) ColumnProfiles() ([]models.ColumnProfile, uint64) {
	ds := e.source.Snapshot()
	if ds == nil {
		return nil, 0
	}
	set := e.profiles.Get(ds)
	return set.Profiles, set.Version
}

// Analyze runs a query against the current snapshot. It never returns an
// error: expected failures become a failure result.
func (e *Engine) Analyze(ctx context.Context, q models.Query) models.AnalysisResult {
	return e.AnalyzeSnapshot(ctx, e.source.Snapshot(), q)
}

// AnalyzeSnapshot runs a query against a specific snapshot.
func (e *Engine) AnalyzeSnapshot(ctx context.Context, ds *state.Dataset, q models.Query) models.AnalysisResult {
	if ds == nil {
		ds = &state.Dataset{}
	}
	out, err := e.analyze(ctx, ds, q)
	if err != nil && !isExpected(err) {
		err = analysisError("%v", err)
	}
	if err != nil {
		log.Printf("[Engine] Analysis failed (version %d): %v", ds.Version, err)
	}
	res := Assemble(out, err)
	res.DatasetVersion = ds.Version
	return res
}
