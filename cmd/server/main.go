package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exoplanet-backend/internal/analysis"
	"exoplanet-backend/internal/api"
	"exoplanet-backend/internal/config"
	"exoplanet-backend/internal/predictor"
	"exoplanet-backend/internal/service"
	"exoplanet-backend/internal/state"
	"exoplanet-backend/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reference dataset
	dataset := state.NewStore(cfg.DatasetPath)
	profiles := service.NewProfileStore(cfg.ProfileTTL)
	dataset.Subscribe(profiles.OnReload)
	if err := dataset.Load(); err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	if cfg.WatchDataset {
		watcher, err := state.NewWatcher(dataset, cfg.WatchDebounce)
		if err != nil {
			log.Printf("[Dataset] Hot reload disabled: %v", err)
		} else {
			go func() {
				if err := watcher.Run(ctx); err != nil {
					log.Printf("[Dataset] Watcher stopped: %v", err)
				}
			}()
		}
	}

	// Initialize Services
	pred, err := newPredictor(cfg)
	if err != nil {
		log.Fatalf("Invalid predictor configuration: %v", err)
	}

	st, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		log.Printf("[Store] %s unavailable, predictions will not be saved: %v", cfg.StoreDriver, err)
		st = store.Nop{}
	}
	defer st.Close()

	engine := service.NewEngine(dataset, profiles, service.EngineOptions{
		Neighbors:      cfg.Neighbors,
		LabelColumn:    cfg.LabelColumn,
		Predictor:      pred,
		PredictTimeout: cfg.PredictTimeout,
	})
	predictions := service.NewPredictionService(engine, st)
	batch := analysis.NewBatchService(predictions, cfg.BatchWorkers)

	// Initialize Handler
	handler := api.NewHandler(dataset, predictions, batch, cfg.UploadLimit)

	// Router Setup
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Throttle(cfg.MaxInFlight))

	// CORS - Allow frontend
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Root endpoint
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Exoplanet Classification Backend is Running"))
	})

	// Register all API Routes
	handler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	snap := dataset.Snapshot()
	log.Printf("🚀 Starting exoplanet backend on http://localhost:%s", cfg.Port)
	log.Printf("📊 Dataset: %s (%d rows, %d columns, label %q, K=%d)",
		cfg.DatasetPath, snap.Len(), len(snap.Columns()), cfg.LabelColumn, engine.Neighbors())
	log.Printf("🤖 Classifier: %s, store: %s", pred.Name(), cfg.StoreDriver)
	log.Printf("📡 CORS enabled for: %v", cfg.AllowedOrigins)

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	case <-ctx.Done():
		log.Printf("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}
}

// newPredictor picks the whole-record classifier: an HTTP model server,
// a local command, or none (every prediction falls back).
func newPredictor(cfg config.Config) (predictor.Predictor, error) {
	switch {
	case cfg.PredictorURL != "":
		return predictor.NewHTTPPredictor(cfg.PredictorURL, cfg.PredictTimeout), nil
	case cfg.PredictorCmd != "":
		return predictor.NewCommandPredictor(cfg.PredictorCmd, cfg.PredictTimeout)
	default:
		return predictor.Unavailable{}, nil
	}
}
