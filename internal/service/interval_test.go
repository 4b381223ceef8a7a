package service

import (
	"math"
	"testing"
)

func TestNormalQuantile(t *testing.T) {
	if got := normalQuantile(0.975); math.Abs(got-1.96) > 0.01 {
		t.Fatalf("normalQuantile(0.975) = %.4f, want ~1.96", got)
	}
	if got := normalQuantile(0.5); math.Abs(got) > 0.01 {
		t.Fatalf("normalQuantile(0.5) = %.4f, want ~0", got)
	}
	if math.Abs(normalQuantile(0.025)+normalQuantile(0.975)) > 1e-9 {
		t.Fatalf("expected symmetric quantiles")
	}
}

func TestAccuracyInterval(t *testing.T) {
	ci := AccuracyInterval(0, 0)
	if ci.Lower != 0 || ci.Upper != 0 || ci.Confidence != 0.95 {
		t.Fatalf("unexpected empty interval %+v", ci)
	}

	ci = AccuracyInterval(80, 100)
	if math.Abs(ci.Mean-81.0/102.0) > 1e-12 {
		t.Fatalf("unexpected mean %.4f", ci.Mean)
	}
	if !(ci.Lower < ci.Mean && ci.Mean < ci.Upper) || ci.Lower < 0.7 || ci.Upper > 0.9 {
		t.Fatalf("unexpected interval %+v", ci)
	}

	wide := AccuracyInterval(4, 5)
	if wide.Upper-wide.Lower <= ci.Upper-ci.Lower {
		t.Fatalf("fewer samples must give a wider interval")
	}
	if all := AccuracyInterval(5, 5); all.Upper != 1 {
		t.Fatalf("expected upper bound clamped to 1, got %.4f", all.Upper)
	}
}
