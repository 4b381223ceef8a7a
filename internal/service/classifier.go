package service

import (
	"strings"

	"exoplanet-backend/internal/models"
)

// DefaultLabelColumn is the disposition column of the KOI cumulative table.
const DefaultLabelColumn = "koi_disposition"

// Deriver turns a ranked neighbour list into a label and confidence by
// majority vote over the neighbours' label column.
type Deriver struct {
	labelColumn string
}

func NewDeriver(labelColumn string) *Deriver {
	labelColumn = strings.TrimSpace(labelColumn)
	if labelColumn == "" {
		labelColumn = DefaultLabelColumn
	}
	return &Deriver{labelColumn: labelColumn}
}

func (d *Deriver) LabelColumn() string {
	return d.labelColumn
}

// Classify votes over canonical labels. Confidence is the winning vote
// fraction scaled by the mean similarity of the agreeing neighbours.
// Ties go to the larger summed similarity, then to the nearest neighbour.
// Neighbours whose label is null or outside the vocabulary do not vote.
func (d *Deriver) Classify(neighbors []models.Neighbor) (models.Classification, error) {
	if len(neighbors) == 0 {
		return models.Classification{}, insufficientData("no neighbours to classify")
	}

	votes := make(map[string]int)
	simSum := make(map[string]float64)
	firstSeen := make(map[string]int)
	for rank, n := range neighbors {
		v := n.Record.Get(d.labelColumn)
		if v.IsNull() {
			continue
		}
		label, ok := models.CanonicalLabel(v.Raw)
		if !ok {
			continue
		}
		if _, seen := firstSeen[label]; !seen {
			firstSeen[label] = rank
		}
		votes[label]++
		simSum[label] += n.SimilarityScore
	}
	if len(votes) == 0 {
		return models.Classification{}, insufficientData("no neighbour carries a usable %q label", d.labelColumn)
	}

	winner := ""
	for label := range votes {
		if winner == "" || better(label, winner, votes, simSum, firstSeen) {
			winner = label
		}
	}

	total := float64(len(neighbors))
	voteFraction := float64(votes[winner]) / total
	meanSim := simSum[winner] / float64(votes[winner])

	probs := make(map[string]float64, len(models.Labels()))
	for _, label := range models.Labels() {
		probs[label] = float64(votes[label]) / total
	}

	return models.Classification{
		Classification: winner,
		Confidence:     clamp01(voteFraction * meanSim),
		Votes:          votes,
		Probabilities:  probs,
	}, nil
}

func better(a, b string, votes map[string]int, simSum map[string]float64, firstSeen map[string]int) bool {
	if votes[a] != votes[b] {
		return votes[a] > votes[b]
	}
	if simSum[a] != simSum[b] {
		return simSum[a] > simSum[b]
	}
	return firstSeen[a] < firstSeen[b]
}

func clamp01(x float64) float64 {
	if x != x || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
