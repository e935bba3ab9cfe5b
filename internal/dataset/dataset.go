// Package dataset loads ACS person records from CSV and prepares them for
// benchmarking: subsampling, population filtering, and few-shot splits.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bwilder0/folktexts/internal/qa"
)

// Row is one census record. Numeric cells are stored as float64; anything
// else stays a string.
type Row map[string]any

// Value returns the raw value for a column, or ok=false when the cell is
// missing.
func (r Row) Value(column string) (any, bool) {
	v, ok := r[column]
	return v, ok
}

// Float returns the column as a float64, or ok=false.
func (r Row) Float(column string) (float64, bool) {
	v, ok := r[column]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// TaskPath is the conventional location of a task's CSV under a data
// directory.
func TaskPath(dataDir string, taskName string) string {
	return filepath.Join(dataDir, taskName+".csv")
}

// Load reads a header-rowed CSV of census records.
func Load(path string) ([]Row, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("dataset: empty path")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %q: %w", path, err)
	}
	defer f.Close()

	return decode(f, path)
}

func decode(r io.Reader, path string) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read header of %q: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read %q: %w", path, err)
		}

		row := make(Row, len(header))
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if f, err := strconv.ParseFloat(cell, 64); err == nil {
				row[header[i]] = f
			} else {
				row[header[i]] = cell
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Subsample keeps a random fraction of rows, deterministically for a given
// seed. Fractions outside (0, 1) return the input unchanged.
func Subsample(rows []Row, fraction float64, seed int64) []Row {
	if fraction <= 0 || fraction >= 1 || len(rows) == 0 {
		return rows
	}

	n := int(float64(len(rows)) * fraction)
	if n < 1 {
		n = 1
	}

	rng := rand.New(rand.NewSource(seed))
	picked := rng.Perm(len(rows))[:n]
	// Keep original row order for reproducible prompt sequences.
	mask := make([]bool, len(rows))
	for _, i := range picked {
		mask[i] = true
	}

	out := make([]Row, 0, n)
	for i, row := range rows {
		if mask[i] {
			out = append(out, row)
		}
	}
	return out
}

// ParseFilters parses `column=value` population filter expressions.
func ParseFilters(exprs []string) (map[string]string, error) {
	if len(exprs) == 0 {
		return nil, nil
	}

	out := make(map[string]string, len(exprs))
	for _, expr := range exprs {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		name, value, ok := strings.Cut(expr, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("dataset: population filter %q must follow the format 'column_name=value'", expr)
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// Filter keeps rows whose columns match every filter value. Values are
// compared by canonical key, so "1" matches a numeric cell holding 1.0.
func Filter(rows []Row, filter map[string]string) []Row {
	if len(filter) == 0 {
		return rows
	}

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if matches(row, filter) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row Row, filter map[string]string) bool {
	for column, want := range filter {
		v, ok := row[column]
		if !ok {
			return false
		}
		if qa.KeyFor(v) != canonicalFilterValue(want) {
			return false
		}
	}
	return true
}

func canonicalFilterValue(s string) string {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return qa.KeyFor(f)
	}
	return s
}

// SplitFewShot carves n few-shot example rows out of rows, deterministically
// for a given seed, returning the examples and the remaining evaluation
// rows.
func SplitFewShot(rows []Row, n int, seed int64) (shots []Row, rest []Row) {
	if n <= 0 || len(rows) == 0 {
		return nil, rows
	}
	if n >= len(rows) {
		return rows, nil
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(rows))

	taken := make(map[int]bool, n)
	for _, i := range perm[:n] {
		taken[i] = true
	}

	shots = make([]Row, 0, n)
	rest = make([]Row, 0, len(rows)-n)
	for i, row := range rows {
		if taken[i] {
			shots = append(shots, row)
		} else {
			rest = append(rest, row)
		}
	}
	return shots, rest
}
