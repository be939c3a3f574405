// Package dataset loads historical sensor recordings used by the simulator.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"pipeline-guard/internal/domain"
)

// ColumnTimestamp names the time column of a recording. Sensor columns use
// the domain names; any other column is ignored.
const ColumnTimestamp = "Timestamp"

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("dataset: missing column")

// timeLayouts are tried in order when parsing the Timestamp column.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

// LoadFile reads a recording from path.
func LoadFile(path string) ([]domain.RawSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	samples, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return samples, nil
}

// LoadCSV parses a recording with a header row. Rows keep file order.
func LoadCSV(r io.Reader) ([]domain.RawSample, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := locate(header,
		ColumnTimestamp,
		domain.ColumnPressure,
		domain.ColumnFlowRate,
		domain.ColumnTemperature,
	)
	if err != nil {
		return nil, err
	}
	cr.FieldsPerRecord = len(header)

	var samples []domain.RawSample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		s, err := parseRow(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}

	return samples, nil
}

// locate maps each wanted column to its position in header.
func locate(header []string, names ...string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		// Spreadsheet exports often carry a UTF-8 BOM on the first cell.
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	idx := make([]int, len(names))
	for i, name := range names {
		p, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		idx[i] = p
	}
	return idx, nil
}

func parseRow(rec []string, idx []int) (domain.RawSample, error) {
	ts, err := parseTime(rec[idx[0]])
	if err != nil {
		return domain.RawSample{}, err
	}

	var vals [3]float64
	for i := range vals {
		v, err := parseReading(rec[idx[i+1]])
		if err != nil {
			return domain.RawSample{}, err
		}
		vals[i] = v
	}

	return domain.RawSample{
		Time:        ts,
		Pressure:    vals[0],
		FlowRate:    vals[1],
		Temperature: vals[2],
	}, nil
}

// parseReading returns NaN for a missing reading. The feature windows it
// falls in then come out non-finite and those rows are dropped.
func parseReading(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "na", "n/a", "null":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	return v, nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unsupported format", raw)
}
