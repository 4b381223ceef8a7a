package service

import (
	"strings"
)

// suggestThreshold is the minimum LevenshteinRatio for a column hint.
const suggestThreshold = 0.6

// SuggestColumn returns the known column closest to name, if any is close
// enough to be a plausible typo.
func SuggestColumn(name string, columns []string) (string, bool) {
	best, bestScore := "", 0.0
	for _, col := range columns {
		score := LevenshteinRatio(name, col)
		if score > bestScore {
			best, bestScore = col, score
		}
	}
	if bestScore < suggestThreshold {
		return "", false
	}
	return best, true
}

// LevenshteinRatio calculates similarity ratio (0-1)
func LevenshteinRatio(s1, s2 string) float64 {
	r1 := []rune(strings.ToLower(s1))
	r2 := []rune(strings.ToLower(s2))
	maxLen := float64(max(len(r1), len(r2)))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - (float64(levenshtein(r1, r2)) / maxLen)
}

func levenshtein(r1, r2 []rune) int {
	len1, len2 := len(r1), len(r2)

	row := make([]int, len2+1)
	for i := 0; i <= len2; i++ {
		row[i] = i
	}

	for i := 1; i <= len1; i++ {
		prev := i
		for j := 1; j <= len2; j++ {
			var val int
			if r1[i-1] == r2[j-1] {
				val = row[j-1]
			} else {
				val = min(row[j-1]+1, prev+1, row[j]+1)
			}
			row[j-1] = prev
			prev = val
		}
		row[len2] = prev
	}
	return row[len2]
}
