package models

import "time"

// HealthResponse is returned by /api/health
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SubmitDataRequest for /api/submit-data. Both camelCase (UI) and snake_case
// keys are accepted.
type SubmitDataRequest struct {
	UserInputs           map[string]interface{} `json:"userInputs"`
	SelectedColumns      []string               `json:"selectedColumns"`
	UserInputsSnake      map[string]interface{} `json:"user_inputs"`
	SelectedColumnsSnake []string               `json:"selected_columns"`
}

// SubmitDataResponse wraps an analysis result.
type SubmitDataResponse struct {
	Message   string         `json:"message"`
	Analysis  AnalysisResult `json:"analysis"`
	Timestamp time.Time      `json:"timestamp"`
}

// PredictResponse is returned by /api/predict
type PredictResponse struct {
	Message    string     `json:"message"`
	Prediction Prediction `json:"prediction"`
	Note       string     `json:"note,omitempty"`
}

// UploadResponse is returned after a batch CSV is classified
type UploadResponse struct {
	Message        string       `json:"message"`
	Predictions    []Prediction `json:"predictions"`
	TotalProcessed int          `json:"totalProcessed"`
	Failed         int          `json:"failed"`
	Note           string       `json:"note,omitempty"`
}

// FeedbackRequest for /api/predictions/{id}/feedback
type FeedbackRequest struct {
	Actual string `json:"actual"`
}

// DatasetStatus describes the current reference dataset snapshot.
type DatasetStatus struct {
	Loaded      bool       `json:"loaded"`
	Path        string     `json:"path"`
	Version     uint64     `json:"version"`
	Rows        int        `json:"rows"`
	Columns     int        `json:"columns"`
	ColumnNames []string   `json:"column_names"`
	LabelColumn string     `json:"label_column"`
	LoadedAt    time.Time  `json:"loaded_at"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
}
