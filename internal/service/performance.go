package service

import (
	"time"

	"exoplanet-backend/internal/models"
)

const calibrationBuckets = 10

// Reported when no prediction store is configured.
const (
	defaultAccuracy  = 0.95
	defaultPrecision = 0.94
	defaultRecall    = 0.93
	defaultF1        = 0.935
)

// DefaultPerformance is served when there is no database to compute from.
func DefaultPerformance(now time.Time) models.Performance {
	return models.Performance{
		Accuracy:         defaultAccuracy,
		Precision:        defaultPrecision,
		Recall:           defaultRecall,
		F1Score:          defaultF1,
		ByClassification: map[string]int{},
		Calibration:      initializeBuckets(),
		LastUpdated:      now,
		Note:             "Database not available - showing default values",
	}
}

// initializeBuckets creates 10 buckets for confidence ranges 0-0.1, ..., 0.9-1.0
func initializeBuckets() []models.CalibrationBucket {
	buckets := make([]models.CalibrationBucket, calibrationBuckets)
	for i := range buckets {
		buckets[i] = models.CalibrationBucket{
			RangeMin: float64(i) / calibrationBuckets,
			RangeMax: float64(i+1) / calibrationBuckets,
		}
	}
	return buckets
}

func bucketIndex(confidence float64) int {
	idx := int(confidence * calibrationBuckets)
	if idx >= calibrationBuckets {
		idx = calibrationBuckets - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

type labelCounts struct {
	tp, fp, fn int
}

// ComputePerformance derives accuracy, macro precision/recall/F1 and
// confidence calibration from stored predictions. Only predictions with
// feedback count toward the scores; rows that failed validation are ignored.
func ComputePerformance(preds []models.Prediction, now time.Time) models.Performance {
	perf := models.Performance{
		ByClassification: map[string]int{},
		Calibration:      initializeBuckets(),
		LastUpdated:      now,
	}

	counts := map[string]*labelCounts{}
	for _, label := range models.Labels() {
		counts[label] = &labelCounts{}
	}

	correct := 0
	for _, p := range preds {
		if p.Error != "" {
			continue
		}
		perf.TotalPredictions++
		perf.ByClassification[p.Prediction]++
		if p.Fallback {
			perf.FallbackPredictions++
		}

		actual, ok := models.CanonicalLabel(p.Actual)
		if !ok {
			continue
		}
		perf.LabelledPredictions++
		hit := actual == p.Prediction

		b := &perf.Calibration[bucketIndex(p.Confidence)]
		b.TotalCount++
		if hit {
			b.CorrectCount++
			correct++
			counts[actual].tp++
			continue
		}
		counts[actual].fn++
		if c, ok := counts[p.Prediction]; ok {
			c.fp++
		}
	}

	for i := range perf.Calibration {
		b := &perf.Calibration[i]
		if b.TotalCount > 0 {
			b.ActualAccuracy = float64(b.CorrectCount) / float64(b.TotalCount)
		}
	}

	if perf.LabelledPredictions == 0 {
		perf.Note = "No feedback recorded yet - submit actual labels to compute metrics"
		return perf
	}

	perf.Accuracy = float64(correct) / float64(perf.LabelledPredictions)
	ci := AccuracyInterval(correct, perf.LabelledPredictions)
	perf.AccuracyInterval = &ci

	// Macro average over labels that occur as prediction or ground truth.
	var sumP, sumR, sumF float64
	n := 0
	for _, label := range models.Labels() {
		c := counts[label]
		if c.tp+c.fp+c.fn == 0 {
			continue
		}
		n++
		precision := ratio(c.tp, c.tp+c.fp)
		recall := ratio(c.tp, c.tp+c.fn)
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		sumP += precision
		sumR += recall
		sumF += f1
	}
	if n > 0 {
		perf.Precision = sumP / float64(n)
		perf.Recall = sumR / float64(n)
		perf.F1Score = sumF / float64(n)
	}
	return perf
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
