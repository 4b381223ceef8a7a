package models

import "strings"

// Classification vocabulary. Every classification leaving the core uses one
// of these labels.
const (
	LabelConfirmed     = "Confirmed Exoplanet"
	LabelCandidate     = "Planetary Candidate"
	LabelFalsePositive = "False Positive"
)

// Labels returns the vocabulary in display order.
func Labels() []string {
	return []string{LabelConfirmed, LabelCandidate, LabelFalsePositive}
}

var labelAliases = map[string]string{
	"confirmed":           LabelConfirmed,
	"confirmed exoplanet": LabelConfirmed,
	"confirmed planet":    LabelConfirmed,
	"cp":                  LabelConfirmed,
	"kp":                  LabelConfirmed,
	"candidate":           LabelCandidate,
	"planetary candidate": LabelCandidate,
	"pc":                  LabelCandidate,
	"apc":                 LabelCandidate,
	"false positive":      LabelFalsePositive,
	"false_positive":      LabelFalsePositive,
	"fp":                  LabelFalsePositive,
	"fa":                  LabelFalsePositive,
	"refuted":             LabelFalsePositive,
}

// CanonicalLabel maps a raw disposition (NASA archive codes, display names,
// any case) onto the vocabulary.
func CanonicalLabel(raw string) (string, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if key == "" {
		return "", false
	}
	label, ok := labelAliases[key]
	return label, ok
}
