package clickhouse

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/storage"
)

// SampleLog implements storage.SampleLog on the classified_samples table.
// MergeTree has no autoincrement, so the single writer assigns seq itself,
// continuing from the stored maximum.
type SampleLog struct {
	conn *Conn

	mu      sync.Mutex
	nextSeq uint64
	seqInit bool
}

// NewSampleLog creates a new SampleLog.
func NewSampleLog(conn *Conn) *SampleLog {
	return &SampleLog{conn: conn}
}

// Compile-time interface check.
var _ storage.SampleLog = (*SampleLog)(nil)

// Append inserts one row with the next sequence number.
func (l *SampleLog) Append(ctx context.Context, s *domain.ClassifiedSample) error {
	if s == nil {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.seqInit {
		var maxSeq uint64
		if err := l.conn.QueryRow(ctx, `SELECT max(seq) FROM classified_samples`).Scan(&maxSeq); err != nil {
			return fmt.Errorf("load sequence: %w: %v", storage.ErrLogUnavailable, err)
		}
		l.nextSeq = maxSeq + 1
		l.seqInit = true
	}

	batch, err := l.conn.PrepareBatch(ctx, `
		INSERT INTO classified_samples (
			seq, sample_time, pressure, flow_rate, prediction_status, prediction_class
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	if err := batch.Append(
		l.nextSeq, s.Time.UTC(), s.Pressure, s.FlowRate, s.Status, int32(s.Class),
	); err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	l.nextSeq++
	return nil
}

// ReadAll returns every sample ordered by seq.
func (l *SampleLog) ReadAll(ctx context.Context) ([]*domain.ClassifiedSample, error) {
	rows, err := l.conn.Query(ctx, `
		SELECT sample_time, pressure, flow_rate, prediction_status, prediction_class
		FROM classified_samples
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w: %v", storage.ErrLogUnavailable, err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// Tail returns the last n samples ordered by seq.
func (l *SampleLog) Tail(ctx context.Context, n int) ([]*domain.ClassifiedSample, error) {
	if n <= 0 {
		return []*domain.ClassifiedSample{}, nil
	}

	rows, err := l.conn.Query(ctx, `
		SELECT sample_time, pressure, flow_rate, prediction_status, prediction_class
		FROM (
			SELECT seq, sample_time, pressure, flow_rate, prediction_status, prediction_class
			FROM classified_samples
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC
	`, n)
	if err != nil {
		return nil, fmt.Errorf("tail samples: %w: %v", storage.ErrLogUnavailable, err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func scanSamples(rows driver.Rows) ([]*domain.ClassifiedSample, error) {
	result := []*domain.ClassifiedSample{}
	for rows.Next() {
		var (
			ts    time.Time
			class int32
			s     domain.ClassifiedSample
		)
		if err := rows.Scan(&ts, &s.Pressure, &s.FlowRate, &s.Status, &class); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Time = ts.UTC()
		s.Class = domain.SeverityClass(class)
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return result, nil
}
