package service

import "testing"

func TestLevenshteinRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"koi_period", "koi_period", 1},
		{"KOI_PERIOD", "koi_period", 1},
		{"koi_perod", "koi_period", 0.9},
		{"abc", "xyz", 0},
		{"op", "opp", 1 - 1.0/3},
	}
	for _, tc := range cases {
		if got := LevenshteinRatio(tc.a, tc.b); !almostEqual(got, tc.want) {
			t.Fatalf("LevenshteinRatio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSuggestColumn(t *testing.T) {
	cols := []string{"koi_period", "koi_duration", "koi_prad", "koi_disposition"}
	if got, ok := SuggestColumn("koi_duraton", cols); !ok || got != "koi_duration" {
		t.Fatalf("expected koi_duration, got %q %v", got, ok)
	}
	if _, ok := SuggestColumn("stellar_mass", cols); ok {
		t.Fatalf("expected no suggestion for a distant name")
	}
}
