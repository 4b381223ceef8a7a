package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"exoplanet-backend/internal/models"
)

// HTTPPredictor posts the feature vector as JSON to a model server.
type HTTPPredictor struct {
	baseURL string
	client  *http.Client
}

func NewHTTPPredictor(baseURL string, timeout time.Duration) *HTTPPredictor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPredictor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *HTTPPredictor) Name() string {
	return "http:" + p.baseURL
}

// Predict calls POST {baseURL}/predict
func (p *HTTPPredictor) Predict(ctx context.Context, fv models.FeatureVector) (Result, error) {
	jsonData, err := json.Marshal(fv)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/predict", bytes.NewReader(jsonData))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("model server returned status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, err
	}
	return parseResult(body)
}
