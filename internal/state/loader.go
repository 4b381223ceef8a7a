package state

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrLoad reports a missing, unreadable or empty backing table.
var ErrLoad = errors.New("dataset load failed")

// LoadFile reads a delimited file into a new Dataset. Zero data rows is an error.
func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	headers, rows, err := ReadCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", ErrLoad, path)
	}

	ds := NewDataset(headers, rows)
	ds.Path = path
	return ds, nil
}

// ReadCSV parses a header line plus data rows. Lines starting with '#' are
// skipped (NASA archive exports carry a comment preamble), a UTF-8 BOM is
// dropped and a semicolon delimiter is detected from the header line.
// Completely empty rows are discarded.
func ReadCSV(r io.Reader) ([]string, [][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := newCSVReader(data, ',')
	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("missing header row")
		}
		return nil, nil, fmt.Errorf("failed to read headers: %v", err)
	}

	// Try with semicolon separator
	if len(headers) == 1 && strings.Contains(headers[0], ";") {
		reader = newCSVReader(data, ';')
		headers, err = reader.Read()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read headers: %v", err)
		}
	}
	headers = cleanHeaders(headers)

	rows := [][]string{}
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Malformed rows are skipped rather than failing the whole table.
			skipped++
			continue
		}
		if blankRow(record) {
			continue
		}
		rows = append(rows, record)
	}
	if skipped > 0 {
		log.Printf("[Dataset] Skipped %d malformed rows", skipped)
	}
	return headers, rows, nil
}

func newCSVReader(data []byte, comma rune) *csv.Reader {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.Comment = '#'
	reader.FieldsPerRecord = -1 // Allow variable fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	return reader
}

// cleanHeaders normalises header names and makes them unique, suffixing
// repeats with ".1", ".2", ...
func cleanHeaders(headers []string) []string {
	out := make([]string, len(headers))
	seen := make(map[string]int, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(norm.NFKC.String(h))
		if name == "" {
			name = "column_" + strconv.Itoa(i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func blankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
