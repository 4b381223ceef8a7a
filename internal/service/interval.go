package service

import (
	"math"

	"exoplanet-backend/internal/models"
)

// AccuracyInterval returns a 95% interval for the accuracy of correct out
// of total labelled predictions, using a Beta(correct+1, total-correct+1)
// posterior and its normal approximation.
func AccuracyInterval(correct, total int) models.ConfidenceInterval {
	if total <= 0 {
		return models.ConfidenceInterval{Confidence: 0.95}
	}

	alpha := float64(correct) + 1
	beta := float64(total-correct) + 1

	return models.ConfidenceInterval{
		Lower:      betaQuantile(alpha, beta, 0.025),
		Upper:      betaQuantile(alpha, beta, 0.975),
		Mean:       alpha / (alpha + beta),
		Confidence: 0.95,
	}
}

func betaQuantile(alpha, beta, p float64) float64 {
	mean := alpha / (alpha + beta)
	variance := (alpha * beta) / ((alpha + beta) * (alpha + beta) * (alpha + beta + 1))
	return clamp01(mean + normalQuantile(p)*math.Sqrt(variance))
}

// normalQuantile approximates the standard normal quantile (Abramowitz-Stegun 26.2.23).
func normalQuantile(p float64) float64 {
	if p <= 0 {
		return -10
	}
	if p >= 1 {
		return 10
	}
	if p < 0.5 {
		return -normalQuantile(1 - p)
	}

	t := math.Sqrt(-2 * math.Log(1-p))
	return t - (2.515517+0.802853*t+0.010328*t*t)/
		(1+1.432788*t+0.189269*t*t+0.001308*t*t*t)
}
