package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"exoplanet-backend/internal/analysis"
	"exoplanet-backend/internal/models"
	"exoplanet-backend/internal/service"
	"exoplanet-backend/internal/state"

	"github.com/go-chi/chi/v5"
)

const (
	DefaultUploadLimit = 10 << 20 // 10MB
	MaxJSONBody        = 1 << 20
)

type Handler struct {
	Engine      *service.Engine
	Predictions *service.PredictionService
	Batch       *analysis.BatchService
	Dataset     *state.Store
	UploadLimit int64
}

func NewHandler(dataset *state.Store, predictions *service.PredictionService, batch *analysis.BatchService, uploadLimit int64) *Handler {
	if uploadLimit <= 0 {
		uploadLimit = DefaultUploadLimit
	}
	return &Handler{
		Engine:      predictions.Engine(),
		Predictions: predictions,
		Batch:       batch,
		Dataset:     dataset,
		UploadLimit: uploadLimit,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Get("/api/health", h.APIHealth)

	// Record matching
	r.Get("/api/columns", h.GetColumns)
	r.Post("/api/submit-data", h.SubmitData)

	// Whole-record classification
	r.Post("/api/predict", h.Predict)
	r.Post("/api/upload-csv", h.UploadCSV)
	r.Get("/api/predictions", h.ListPredictions)
	r.Post("/api/predictions/{id}/feedback", h.SubmitFeedback)
	r.Get("/api/performance", h.GetPerformance)

	// Reference dataset
	r.Get("/api/dataset", h.GetDataset)
	r.Post("/api/dataset/reload", h.ReloadDataset)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Encode response: %v", err)
	}
}

// ============================================================================
// Health
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (h *Handler) APIHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Message: "Exoplanet classification backend is running",
	})
}

// ============================================================================
// Record matching
// ============================================================================

// GetColumns returns the column profiles of the current dataset snapshot.
func (h *Handler) GetColumns(w http.ResponseWriter, r *http.Request) {
	profiles, version := h.Engine.ColumnProfiles()
	resp := models.ColumnsResponse{Columns: profiles, DatasetVersion: version}
	if resp.Columns == nil {
		resp.Columns = []models.ColumnProfile{}
		resp.Error = "No dataset loaded"
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubmitData runs exact-match / nearest-neighbour analysis over the
// selected columns.
func (h *Handler) SubmitData(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitDataRequest
	if !decodeBody(w, r, &req) {
		return
	}

	inputs := req.UserInputs
	if len(inputs) == 0 {
		inputs = req.UserInputsSnake
	}
	cols := req.SelectedColumns
	if len(cols) == 0 {
		cols = req.SelectedColumnsSnake
	}

	q := models.Query{
		SelectedColumns: cols,
		Values:          make(map[string]string, len(inputs)),
	}
	for k, v := range inputs {
		if s, ok := inputString(v); ok {
			q.Values[k] = s
		}
	}

	result := h.Engine.Analyze(r.Context(), q)
	writeJSON(w, analysisStatus(result), models.SubmitDataResponse{
		Message:   "Data submitted successfully",
		Analysis:  result,
		Timestamp: time.Now().UTC(),
	})
}

// inputString renders a JSON input value as the raw string the engine
// parses. Null values are treated as absent.
func inputString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	default:
		return fmt.Sprint(t), true
	}
}

func analysisStatus(res models.AnalysisResult) int {
	if res.Failure == nil {
		return http.StatusOK
	}
	if res.Failure.Code == models.FailureInvalidQuery {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}

// ============================================================================
// Whole-record classification
// ============================================================================

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req models.WholeRecordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, note, err := h.Predictions.Predict(r.Context(), req, clientIP(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuery) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("[API] Predict failed: %v", err)
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.PredictResponse{
		Message:    "Prediction completed",
		Prediction: p,
		Note:       note,
	})
}

// UploadCSV classifies every row of an uploaded CSV file.
func (h *Handler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.UploadLimit)
	if err := r.ParseMultipartForm(h.UploadLimit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		http.Error(w, "Only CSV files are allowed", http.StatusBadRequest)
		return
	}
	if header.Size > h.UploadLimit {
		http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}

	resp, err := h.Batch.ClassifyCSV(r.Context(), file, clientIP(r))
	if err != nil {
		http.Error(w, fmt.Sprintf("Error processing file: %v", err), http.StatusBadRequest)
		return
	}
	log.Printf("[API] %s: %d rows classified (%d failed)", header.Filename, resp.TotalProcessed, resp.Failed)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	resp, err := h.Predictions.List(r.Context(), page, limit)
	if err != nil {
		log.Printf("[API] List predictions: %v", err)
		http.Error(w, "Failed to fetch predictions", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.FeedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := h.Predictions.Feedback(r.Context(), id, req.Actual)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, p)
	case errors.Is(err, service.ErrInvalidQuery):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case service.IsNotFound(err):
		http.Error(w, "Prediction not found", http.StatusNotFound)
	case service.IsUnavailable(err):
		http.Error(w, service.NoteNotSaved, http.StatusServiceUnavailable)
	default:
		log.Printf("[API] Feedback %s: %v", id, err)
		http.Error(w, "Failed to save feedback", http.StatusInternalServerError)
	}
}

func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.Predictions.Performance(r.Context())
	if err != nil {
		log.Printf("[API] Performance: %v", err)
		http.Error(w, "Failed to compute performance", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

// ============================================================================
// Reference dataset
// ============================================================================

func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Dataset.Status(h.Engine.LabelColumn()))
}

// ReloadDataset re-reads the dataset file. On failure the previous
// snapshot stays active and the error is reported with status 422.
func (h *Handler) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if err := h.Dataset.Reload(); err != nil {
		log.Printf("[API] Dataset reload failed: %v", err)
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, h.Dataset.Status(h.Engine.LabelColumn()))
}

// ============================================================================
// Helpers
// ============================================================================

// decodeBody reads a size-limited JSON request body into v and writes the
// error response itself when it fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// clientIP returns the remote host. RealIP middleware has already
// replaced RemoteAddr when a proxy header is present.
func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.HasSuffix(host, "]") {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
