package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"exoplanet-backend/internal/models"
)

var sampleVector = models.FeatureVector{
	OrbitalPeriod:      9.488,
	TransitDuration:    2.958,
	PlanetaryRadius:    2.26,
	StellarRadius:      0.927,
	StellarMass:        0.919,
	StellarTemperature: 5455,
}

func TestParseResult(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"plain", `{"classification":"Confirmed Exoplanet","confidence":0.91}`, "Confirmed Exoplanet", false},
		{"noise", "loading model...\n{\"classification\":\"False Positive\",\"confidence\":0.6}\n", "False Positive", false},
		{"error field", `{"classification":"Planetary Candidate","confidence":0.75,"error":"model missing"}`, "", true},
		{"empty", ``, "", true},
		{"no label", `{"confidence":0.5}`, "", true},
		{"garbage", `{not json}`, "", true},
	}
	for _, tc := range cases {
		res, err := parseResult([]byte(tc.raw))
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if res.Classification != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, res.Classification)
		}
	}
}

func TestHTTPPredictor_Predict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var fv models.FeatureVector
		if err := json.NewDecoder(r.Body).Decode(&fv); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if fv.StellarTemperature != 5455 {
			t.Errorf("expected stellar_temperature 5455, got %v", fv.StellarTemperature)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Result{Classification: "CONFIRMED", Confidence: 0.88})
	}))
	defer srv.Close()

	p := NewHTTPPredictor(srv.URL+"/", time.Second)
	res, err := p.Predict(context.Background(), sampleVector)
	if err != nil {
		t.Fatalf("Predict error: %v", err)
	}
	if res.Classification != "CONFIRMED" || res.Confidence != 0.88 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestHTTPPredictor_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPPredictor(srv.URL, time.Second)
	if _, err := p.Predict(context.Background(), sampleVector); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

func TestHTTPPredictor_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p := NewHTTPPredictor(srv.URL, 50*time.Millisecond)
	start := time.Now()
	if _, err := p.Predict(context.Background(), sampleVector); err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout not honoured")
	}
}

func TestCommandPredictor(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	p, err := NewCommandPredictor("sh -c", time.Second)
	if err != nil {
		t.Fatalf("NewCommandPredictor error: %v", err)
	}
	p.args = append(p.args, `echo '{"classification":"CANDIDATE","confidence":0.7}'`, "sh")

	res, err := p.Predict(context.Background(), sampleVector)
	if err != nil {
		t.Fatalf("Predict error: %v", err)
	}
	if res.Classification != "CANDIDATE" || res.Confidence != 0.7 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCommandPredictor_ReceivesVector(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	p := &CommandPredictor{
		name:    "sh",
		args:    []string{"-c", `case "$1" in *'"stellar_temperature":5455'*) echo '{"classification":"FALSE POSITIVE","confidence":0.5}';; *) exit 3;; esac`, "sh"},
		timeout: time.Second,
	}
	res, err := p.Predict(context.Background(), sampleVector)
	if err != nil {
		t.Fatalf("Predict error: %v", err)
	}
	if res.Classification != "FALSE POSITIVE" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCommandPredictor_Failures(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	slow := &CommandPredictor{name: "sh", args: []string{"-c", "sleep 5", "sh"}, timeout: 50 * time.Millisecond}
	if _, err := slow.Predict(context.Background(), sampleVector); err == nil {
		t.Fatalf("expected timeout error")
	}

	failing := &CommandPredictor{name: "sh", args: []string{"-c", "exit 1", "sh"}, timeout: time.Second}
	if _, err := failing.Predict(context.Background(), sampleVector); err == nil {
		t.Fatalf("expected error for non-zero exit")
	}

	if _, err := NewCommandPredictor("   ", time.Second); err == nil {
		t.Fatalf("expected error for empty command")
	}
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Predict(context.Background(), sampleVector)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
