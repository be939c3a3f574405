package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/storage"
)

// SampleLog implements storage.SampleLog on the classified_samples table.
type SampleLog struct {
	pool *Pool
}

// NewSampleLog creates a new SampleLog.
func NewSampleLog(pool *Pool) *SampleLog {
	return &SampleLog{pool: pool}
}

// Compile-time interface check.
var _ storage.SampleLog = (*SampleLog)(nil)

// Append inserts one row. The BIGSERIAL id fixes the append order.
func (l *SampleLog) Append(ctx context.Context, s *domain.ClassifiedSample) error {
	if s == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO classified_samples (
			sample_time, pressure, flow_rate, prediction_status, prediction_class
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := l.pool.Exec(ctx, query,
		s.Time.UTC(),
		s.Pressure,
		s.FlowRate,
		s.Status,
		int(s.Class),
	)
	if err != nil {
		if isUndefinedTableError(err) {
			return fmt.Errorf("append sample: %w", storage.ErrLogUnavailable)
		}
		return fmt.Errorf("append sample: %w", err)
	}
	return nil
}

// ReadAll returns every sample ordered by id.
func (l *SampleLog) ReadAll(ctx context.Context) ([]*domain.ClassifiedSample, error) {
	query := `
		SELECT sample_time, pressure, flow_rate, prediction_status, prediction_class
		FROM classified_samples
		ORDER BY id ASC
	`

	rows, err := l.pool.Query(ctx, query)
	if err != nil {
		return nil, wrapReadError("read samples", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

// Tail returns the last n samples ordered by id.
func (l *SampleLog) Tail(ctx context.Context, n int) ([]*domain.ClassifiedSample, error) {
	if n <= 0 {
		return []*domain.ClassifiedSample{}, nil
	}

	query := `
		SELECT sample_time, pressure, flow_rate, prediction_status, prediction_class
		FROM (
			SELECT id, sample_time, pressure, flow_rate, prediction_status, prediction_class
			FROM classified_samples
			ORDER BY id DESC
			LIMIT $1
		) tail
		ORDER BY id ASC
	`

	rows, err := l.pool.Query(ctx, query, n)
	if err != nil {
		return nil, wrapReadError("tail samples", err)
	}
	defer rows.Close()

	return scanSamples(rows)
}

func wrapReadError(op string, err error) error {
	if isUndefinedTableError(err) {
		return fmt.Errorf("%s: %w", op, storage.ErrLogUnavailable)
	}
	return fmt.Errorf("%s: %w: %v", op, storage.ErrLogUnavailable, err)
}

func scanSamples(rows pgx.Rows) ([]*domain.ClassifiedSample, error) {
	var result []*domain.ClassifiedSample
	for rows.Next() {
		var (
			s     domain.ClassifiedSample
			class int
		)
		if err := rows.Scan(&s.Time, &s.Pressure, &s.FlowRate, &s.Status, &class); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Class = domain.SeverityClass(class)
		s.Time = s.Time.UTC()
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	if result == nil {
		result = []*domain.ClassifiedSample{}
	}
	return result, nil
}
