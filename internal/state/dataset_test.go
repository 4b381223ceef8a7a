package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"exoplanet-backend/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"3", 3, true},
		{" 1.5 ", 1.5, true},
		{"-0.25", -0.25, true},
		{"1e3", 1000, true},
		{"2.5E-2", 0.025, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"0x1p3", 0, false},
		{"1_000", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"-infinity", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseNumber(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("ParseNumber(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNewDataset_TypeInference(t *testing.T) {
	ds := NewDataset(
		[]string{"koi_period", "kepoi_name", "koi_disposition"},
		[][]string{
			{"9.48", "K00752.01", "CONFIRMED"},
			{"", "K00752.02", "CANDIDATE"},
			{"19.9", "K00753.01", ""},
		},
	)
	if ds.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", ds.Len())
	}
	if !ds.IsNumeric("koi_period") {
		t.Fatalf("expected koi_period to be numeric")
	}
	if ds.IsNumeric("kepoi_name") || ds.IsNumeric("koi_disposition") {
		t.Fatalf("expected text columns to be non-numeric")
	}
	if ds.IsNumeric("missing") {
		t.Fatalf("unknown column must not be numeric")
	}

	v := ds.Records[1].Get("koi_period")
	if !v.IsNull() {
		t.Fatalf("expected null for empty cell, got %+v", v)
	}
	v = ds.Records[0].Get("koi_period")
	if v.Kind != models.KindNumber || v.Num != 9.48 {
		t.Fatalf("expected number 9.48, got %+v", v)
	}
	if !ds.Records[2].Get("koi_disposition").IsNull() {
		t.Fatalf("expected null label")
	}
}

func TestNewDataset_ShortRowsPadded(t *testing.T) {
	ds := NewDataset([]string{"a", "b", "c"}, [][]string{{"1"}})
	rec := ds.Records[0]
	if rec.Len() != 3 {
		t.Fatalf("expected full schema width, got %d", rec.Len())
	}
	if !rec.Get("b").IsNull() || !rec.Get("c").IsNull() {
		t.Fatalf("expected missing cells to be null")
	}
}

func TestNewDataset_DuplicateHeaders(t *testing.T) {
	ds := NewDataset([]string{"x", "x", " "}, [][]string{{"1", "2", "3"}})
	cols := ds.Columns()
	want := []string{"x", "x.1", "column_2"}
	if strings.Join(cols, ",") != strings.Join(want, ",") {
		t.Fatalf("expected columns %v, got %v", want, cols)
	}
	if ds.Records[0].Get("x.1").Num != 2 {
		t.Fatalf("expected x.1 = 2, got %+v", ds.Records[0].Get("x.1"))
	}
}

func TestLoadFile_CommentsBOMAndBlankRows(t *testing.T) {
	dir := t.TempDir()
	content := "\ufeff# This file was produced by the NASA Exoplanet Archive\n" +
		"# COLUMN koi_period: Orbital Period [days]\n" +
		"kepid,koi_period,koi_disposition\n" +
		"10797460,9.488,CONFIRMED\n" +
		",,\n" +
		"10811496,19.899,FALSE POSITIVE\n"
	path := writeFile(t, dir, "koi.csv", content)

	ds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", ds.Len())
	}
	if cols := ds.Columns(); cols[0] != "kepid" {
		t.Fatalf("expected BOM to be stripped, got %q", cols[0])
	}
	if ds.Path != path {
		t.Fatalf("expected path %q, got %q", path, ds.Path)
	}
}

func TestLoadFile_Semicolon(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "semi.csv", "a;b\n1;x\n2;y\n")

	ds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if len(ds.Columns()) != 2 || !ds.IsNumeric("a") || ds.IsNumeric("b") {
		t.Fatalf("unexpected schema %v", ds.Columns())
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"missing": filepath.Join(dir, "nope.csv"),
		"empty":   writeFile(t, dir, "empty.csv", ""),
		"header":  writeFile(t, dir, "header.csv", "a,b\n"),
		"blank":   writeFile(t, dir, "blank.csv", "a,b\n,\n , \n"),
	}
	for name, path := range cases {
		if _, err := LoadFile(path); err == nil {
			t.Fatalf("%s: expected error", name)
		} else if !strings.Contains(err.Error(), ErrLoad.Error()) {
			t.Fatalf("%s: expected ErrLoad, got %v", name, err)
		}
	}
}
