package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"exoplanet-backend/internal/analysis"
	"exoplanet-backend/internal/models"
	"exoplanet-backend/internal/predictor"
	"exoplanet-backend/internal/service"
	"exoplanet-backend/internal/state"
	"exoplanet-backend/internal/store"

	"github.com/go-chi/chi/v5"
)

const koiCSV = "kepoi_name,koi_period,koi_prad,koi_disposition\n" +
	"K00752.01,9.48,2.26,CONFIRMED\n" +
	"K00753.01,19.89,14.60,FALSE POSITIVE\n" +
	"K00754.01,1.73,33.46,CANDIDATE\n"

type fixedPredictor struct{}

func (fixedPredictor) Predict(ctx context.Context, fv models.FeatureVector) (predictor.Result, error) {
	return predictor.Result{Classification: "CONFIRMED", Confidence: 0.88}, nil
}

func (fixedPredictor) Name() string { return "fixed" }

type testServer struct {
	router  http.Handler
	dataset *state.Store
	path    string
}

func newTestServer(t *testing.T, st store.Store) *testServer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "koi.csv")
	if err := os.WriteFile(path, []byte(koiCSV), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	ds := state.NewStore(path)
	if err := ds.Load(); err != nil {
		t.Fatalf("load dataset: %v", err)
	}

	profiles := service.NewProfileStore(0)
	ds.Subscribe(profiles.OnReload)
	engine := service.NewEngine(ds, profiles, service.EngineOptions{
		Neighbors:   2,
		LabelColumn: "koi_disposition",
		Predictor:   fixedPredictor{},
	})
	preds := service.NewPredictionService(engine, st)
	h := NewHandler(ds, preds, analysis.NewBatchService(preds, 2), 1<<20)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return &testServer{router: r, dataset: ds, path: path}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected /health response %d %q", rec.Code, rec.Body.String())
	}
	var resp models.HealthResponse
	rec := s.do(t, http.MethodGet, "/api/health", "")
	decode(t, rec, &resp)
	if resp.Status != "healthy" {
		t.Fatalf("unexpected health %+v", resp)
	}
}

func TestGetColumns(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodGet, "/api/columns", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp models.ColumnsResponse
	decode(t, rec, &resp)
	if len(resp.Columns) != 4 || resp.DatasetVersion != 1 {
		t.Fatalf("unexpected columns response %+v", resp)
	}
	period := resp.Columns[1]
	if period.Name != "koi_period" || !period.IsNumeric || period.Min == nil || *period.Min != 1.73 || *period.Max != 19.89 {
		t.Fatalf("unexpected koi_period profile %+v", period)
	}
	if resp.Columns[0].IsNumeric {
		t.Fatalf("kepoi_name must be text")
	}
}

func TestSubmitData(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/submit-data",
		`{"userInputs":{"koi_period":9.48,"koi_prad":"2.26"},"selectedColumns":["koi_period","koi_prad"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.SubmitDataResponse
	decode(t, rec, &resp)
	if resp.Analysis.Type != models.ResultExactMatch || resp.Analysis.ExactMatch.RecordIndex != 0 {
		t.Fatalf("expected exact match on record 0, got %+v", resp.Analysis)
	}

	rec = s.do(t, http.MethodPost, "/api/submit-data",
		`{"user_inputs":{"koi_period":"10"},"selected_columns":["koi_period"]}`)
	resp = models.SubmitDataResponse{}
	decode(t, rec, &resp)
	if rec.Code != http.StatusOK || resp.Analysis.Type != models.ResultMLAnalysis {
		t.Fatalf("expected ml_analysis, got %d %+v", rec.Code, resp.Analysis)
	}
	ml := resp.Analysis.MLAnalysis
	if len(ml.Neighbors) != 2 || ml.Neighbors[0].RecordIndex != 0 {
		t.Fatalf("unexpected neighbours %+v", ml.Neighbors)
	}
	if ml.Classification.Classification == "" || ml.Classification.Confidence <= 0 || ml.Classification.Confidence > 1 {
		t.Fatalf("unexpected classification %+v", ml.Classification)
	}
}

func TestSubmitData_Failures(t *testing.T) {
	s := newTestServer(t, nil)

	cases := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"no columns", `{"userInputs":{},"selectedColumns":[]}`, http.StatusBadRequest, models.FailureInvalidQuery},
		{"missing value", `{"userInputs":{"koi_prad":1},"selectedColumns":["koi_period"]}`, http.StatusBadRequest, models.FailureInvalidQuery},
		{"null value", `{"userInputs":{"koi_period":null},"selectedColumns":["koi_period"]}`, http.StatusBadRequest, models.FailureInvalidQuery},
		{"unknown column", `{"userInputs":{"koi_perod":1},"selectedColumns":["koi_perod"]}`, http.StatusBadRequest, models.FailureInvalidQuery},
		{"not a number", `{"userInputs":{"koi_period":"long"},"selectedColumns":["koi_period"]}`, http.StatusUnprocessableEntity, models.FailureAnalysis},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/submit-data", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			var resp models.SubmitDataResponse
			decode(t, rec, &resp)
			if resp.Analysis.Type != models.ResultFailure || resp.Analysis.Failure.Code != tc.code {
				t.Fatalf("expected failure %s, got %+v", tc.code, resp.Analysis)
			}
		})
	}

	if rec := s.do(t, http.MethodPost, "/api/submit-data", "{"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rec.Code)
	}
}

func TestPredict(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/predict",
		`{"orbital_period":9.48,"transit_duration":2.9,"planetary_radius":2.26}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.PredictResponse
	decode(t, rec, &resp)
	p := resp.Prediction
	if p.Prediction != models.LabelConfirmed || p.Confidence != 0.88 || p.StellarTemperature != 5778 {
		t.Fatalf("unexpected prediction %+v", p)
	}
	if resp.Note != service.NoteNotSaved {
		t.Fatalf("expected not-saved note, got %q", resp.Note)
	}

	rec = s.do(t, http.MethodPost, "/api/predict", `{"orbital_period":-1,"transit_duration":2.9,"planetary_radius":2.26}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative period, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodPost, "/api/predict", `{"transit_duration":2.9}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing fields, got %d", rec.Code)
	}
}

func TestPredictionHistoryAndFeedback(t *testing.T) {
	st, err := store.OpenBolt(filepath.Join(t.TempDir(), "predictions.bolt"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	defer st.Close()
	s := newTestServer(t, st)

	var created models.PredictResponse
	rec := s.do(t, http.MethodPost, "/api/predict",
		`{"orbital_period":19.89,"transit_duration":1.7,"planetary_radius":14.6}`)
	decode(t, rec, &created)
	if created.Note != "" || created.Prediction.ID == "" {
		t.Fatalf("expected saved prediction, got %+v", created)
	}

	var page models.PredictionPage
	decode(t, s.do(t, http.MethodGet, "/api/predictions?page=1&limit=5", ""), &page)
	if page.Total != 1 || len(page.Predictions) != 1 || page.Predictions[0].ID != created.Prediction.ID {
		t.Fatalf("unexpected page %+v", page)
	}

	rec = s.do(t, http.MethodPost, "/api/predictions/"+created.Prediction.ID+"/feedback", `{"actual":"FALSE POSITIVE"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated models.Prediction
	decode(t, rec, &updated)
	if updated.Actual != models.LabelFalsePositive {
		t.Fatalf("expected actual label stored, got %+v", updated)
	}

	if rec := s.do(t, http.MethodPost, "/api/predictions/nope/feedback", `{"actual":"CONFIRMED"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/predictions/"+created.Prediction.ID+"/feedback", `{"actual":"maybe"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown label, got %d", rec.Code)
	}

	var perf models.Performance
	decode(t, s.do(t, http.MethodGet, "/api/performance", ""), &perf)
	if perf.TotalPredictions != 1 || perf.LabelledPredictions != 1 || perf.Accuracy != 0 {
		t.Fatalf("unexpected performance %+v", perf)
	}
}

func TestFeedbackWithoutStore(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/api/predictions/abc/feedback", `{"actual":"CONFIRMED"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func multipartCSV(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadCSV(t *testing.T) {
	s := newTestServer(t, nil)

	body, ctype := multipartCSV(t, "batch.csv",
		"koi_period,koi_duration,koi_prad\n9.48,2.9,2.26\nx,1,1\n")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-csv", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.UploadResponse
	decode(t, rec, &resp)
	if resp.TotalProcessed != 2 || resp.Failed != 1 || resp.Predictions[1].Error == "" {
		t.Fatalf("unexpected upload response %+v", resp)
	}

	body, ctype = multipartCSV(t, "batch.txt", "a,b\n1,2\n")
	req = httptest.NewRequest(http.MethodPost, "/api/upload-csv", body)
	req.Header.Set("Content-Type", ctype)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-CSV upload, got %d", rec.Code)
	}
}

func TestDatasetStatusAndReload(t *testing.T) {
	s := newTestServer(t, nil)

	var status models.DatasetStatus
	decode(t, s.do(t, http.MethodGet, "/api/dataset", ""), &status)
	if !status.Loaded || status.Version != 1 || status.Rows != 3 || status.LabelColumn != "koi_disposition" {
		t.Fatalf("unexpected status %+v", status)
	}

	extra := koiCSV + "K00755.01,2.52,2.75,CONFIRMED\n"
	if err := os.WriteFile(s.path, []byte(extra), 0o644); err != nil {
		t.Fatalf("rewrite dataset: %v", err)
	}
	rec := s.do(t, http.MethodPost, "/api/dataset/reload", "")
	status = models.DatasetStatus{}
	decode(t, rec, &status)
	if rec.Code != http.StatusOK || status.Version != 2 || status.Rows != 4 {
		t.Fatalf("unexpected reload status %d %+v", rec.Code, status)
	}

	if err := os.Remove(s.path); err != nil {
		t.Fatalf("remove dataset: %v", err)
	}
	rec = s.do(t, http.MethodPost, "/api/dataset/reload", "")
	status = models.DatasetStatus{}
	decode(t, rec, &status)
	if rec.Code != http.StatusUnprocessableEntity || status.Version != 2 || status.LastError == "" {
		t.Fatalf("expected failed reload to keep version 2, got %d %+v", rec.Code, status)
	}
}

func TestClientIP(t *testing.T) {
	cases := map[string]string{
		"192.0.2.1:1234": "192.0.2.1",
		"[::1]:8001":     "::1",
		"10.0.0.7":       "10.0.0.7",
	}
	for in, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = in
		if got := clientIP(r); got != want {
			t.Fatalf("clientIP(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJSONBodyLimit(t *testing.T) {
	s := newTestServer(t, nil)
	pad := strings.Repeat(" ", MaxJSONBody)

	for _, target := range []string{"/api/submit-data", "/api/predict", "/api/predictions/abc/feedback"} {
		rec := s.do(t, http.MethodPost, target, `{"orbital_period":1,`+pad+`"transit_duration":1}`)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("%s: expected 413 for oversized body, got %d", target, rec.Code)
		}
	}
}

func TestGetColumns_NoDataset(t *testing.T) {
	ds := state.NewStore(filepath.Join(t.TempDir(), "missing.csv"))
	engine := service.NewEngine(ds, nil, service.EngineOptions{})
	preds := service.NewPredictionService(engine, nil)
	h := NewHandler(ds, preds, analysis.NewBatchService(preds, 1), 0)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/api/columns", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp models.ColumnsResponse
	decode(t, rec, &resp)
	if resp.Error != "No dataset loaded" || len(resp.Columns) != 0 || resp.DatasetVersion != 0 {
		t.Fatalf("unexpected response without dataset %+v", resp)
	}
}
