// Package csvlog stores the classified sample log as a CSV file.
//
// Layout: header row, then one row per sample, newest last:
//
//	time,pressure,flow_rate,prediction_status,prediction_class
package csvlog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"time"

	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/storage"
)

// Header is the required first row of the log file.
var Header = []string{"time", "pressure", "flow_rate", "prediction_status", "prediction_class"}

// TimeLayout is the timestamp format of the time column.
const TimeLayout = time.RFC3339Nano

// ErrBadHeader is returned when the file does not start with Header.
var ErrBadHeader = errors.New("csv log: unexpected header")

// Log implements storage.SampleLog on a CSV file.
// Only one process may append. Any number may read.
type Log struct {
	path string

	mu sync.Mutex // serialises appends within the writer process
}

// New returns a Log for path. The file is created on first Append.
func New(path string) *Log {
	return &Log{path: path}
}

// Compile-time interface check.
var _ storage.SampleLog = (*Log)(nil)

// Path returns the file path.
func (l *Log) Path() string {
	return l.path
}

// Append writes one complete record with a single write call.
// The header is written first when the file is empty.
func (l *Log) Append(_ context.Context, s *domain.ClassifiedSample) error {
	if s == nil {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv log: %w: %v", storage.ErrLogUnavailable, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat csv log: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("encode header: %w", err)
		}
	}
	if err := w.Write(encodeRow(s)); err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode row: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append csv log: %w", err)
	}
	return nil
}

// ReadAll parses the whole file.
// A missing file yields ErrLogUnavailable. A file holding only a header
// (or nothing yet) yields an empty slice.
func (l *Log) ReadAll(_ context.Context) ([]*domain.ClassifiedSample, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", l.path, storage.ErrLogUnavailable)
		}
		return nil, fmt.Errorf("open %s: %w: %v", l.path, storage.ErrLogUnavailable, err)
	}
	defer f.Close()

	return Decode(f)
}

// Tail returns the last n rows.
func (l *Log) Tail(ctx context.Context, n int) ([]*domain.ClassifiedSample, error) {
	rows, err := l.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []*domain.ClassifiedSample{}, nil
	}
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	return rows, nil
}

// Decode parses log content from r.
// A trailing partial line (writer mid-append) is ignored.
func Decode(r io.Reader) ([]*domain.ClassifiedSample, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv log: %w: %v", storage.ErrLogUnavailable, err)
	}
	if i := bytes.LastIndexByte(data, '\n'); i < len(data)-1 {
		data = data[:i+1]
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = len(Header)

	result := []*domain.ClassifiedSample{}
	header, err := cr.Read()
	if err == io.EOF {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, name := range Header {
		if header[i] != name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i, header[i], name)
		}
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		s, err := decodeRow(rec)
		if err != nil {
			return nil, fmt.Errorf("parse row %d: %w", line, err)
		}
		result = append(result, s)
	}
	return result, nil
}

func encodeRow(s *domain.ClassifiedSample) []string {
	return []string{
		s.Time.UTC().Format(TimeLayout),
		strconv.FormatFloat(s.Pressure, 'f', -1, 64),
		strconv.FormatFloat(s.FlowRate, 'f', -1, 64),
		s.Status,
		strconv.Itoa(int(s.Class)),
	}
}

func decodeRow(rec []string) (*domain.ClassifiedSample, error) {
	ts, err := time.Parse(TimeLayout, rec[0])
	if err != nil {
		return nil, fmt.Errorf("time: %w", err)
	}
	pressure, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return nil, fmt.Errorf("pressure: %w", err)
	}
	flow, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return nil, fmt.Errorf("flow_rate: %w", err)
	}
	class, err := strconv.Atoi(rec[4])
	if err != nil {
		return nil, fmt.Errorf("prediction_class: %w", err)
	}
	return &domain.ClassifiedSample{
		Time:     ts.UTC(),
		Pressure: pressure,
		FlowRate: flow,
		Status:   rec[3],
		Class:    domain.SeverityClass(class),
	}, nil
}
