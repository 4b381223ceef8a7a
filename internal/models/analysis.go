package models

// Result types of an analysis.
const (
	ResultExactMatch = "exact_match"
	ResultMLAnalysis = "ml_analysis"
	ResultFailure    = "failure"
)

// Failure codes.
const (
	FailureInvalidQuery     = "invalid_query"
	FailureInsufficientData = "insufficient_data"
	FailureAnalysis         = "analysis_error"
)

// Query selects the columns to match on and supplies a raw value for each.
type Query struct {
	SelectedColumns []string          `json:"selected_columns"`
	Values          map[string]string `json:"values"`
}

// Neighbor is a reference record ranked by distance from a query.
type Neighbor struct {
	RecordIndex     int     `json:"record_index"`
	Record          Record  `json:"record"`
	Distance        float64 `json:"distance"`
	SimilarityScore float64 `json:"similarity_score"`
}

// Classification is a label from the fixed vocabulary plus a confidence in [0,1].
type Classification struct {
	Classification string             `json:"classification"`
	Confidence     float64            `json:"confidence"`
	Votes          map[string]int     `json:"votes,omitempty"`
	Probabilities  map[string]float64 `json:"probabilities,omitempty"`
	Fallback       bool               `json:"fallback,omitempty"`
	Note           string             `json:"note,omitempty"`
}

type ExactMatch struct {
	Record      Record `json:"record"`
	RecordIndex int    `json:"record_index"`
}

type MLAnalysis struct {
	Classification Classification `json:"classification"`
	Neighbors      []Neighbor     `json:"neighbors"`
}

type Failure struct {
	Message string `json:"message"`
	Code    string `json:"error"`
}

// AnalysisResult is a tagged variant: exactly one of ExactMatch, MLAnalysis
// and Failure is set, matching Type.
type AnalysisResult struct {
	Type           string      `json:"type"`
	ExactMatch     *ExactMatch `json:"exact_match,omitempty"`
	MLAnalysis     *MLAnalysis `json:"ml_analysis,omitempty"`
	Failure        *Failure    `json:"failure,omitempty"`
	Message        string      `json:"message"`
	DatasetVersion uint64      `json:"dataset_version,omitempty"`
}
