package memory

import (
	"context"
	"sync"

	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/storage"
)

// SampleLog is an in-memory implementation of storage.SampleLog.
type SampleLog struct {
	mu   sync.RWMutex
	rows []domain.ClassifiedSample
}

// NewSampleLog creates an empty in-memory sample log.
func NewSampleLog() *SampleLog {
	return &SampleLog{}
}

// Compile-time interface check.
var _ storage.SampleLog = (*SampleLog)(nil)

// Append stores a copy of the sample.
func (l *SampleLog) Append(_ context.Context, s *domain.ClassifiedSample) error {
	if s == nil {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.rows = append(l.rows, *s)
	return nil
}

// ReadAll returns copies of every sample in append order.
func (l *SampleLog) ReadAll(_ context.Context) ([]*domain.ClassifiedSample, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return copyRows(l.rows), nil
}

// Tail returns copies of the last n samples.
func (l *SampleLog) Tail(_ context.Context, n int) ([]*domain.ClassifiedSample, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 {
		return []*domain.ClassifiedSample{}, nil
	}
	start := len(l.rows) - n
	if start < 0 {
		start = 0
	}
	return copyRows(l.rows[start:]), nil
}

// Len returns the number of stored samples.
func (l *SampleLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rows)
}

func copyRows(rows []domain.ClassifiedSample) []*domain.ClassifiedSample {
	result := make([]*domain.ClassifiedSample, len(rows))
	for i := range rows {
		rowCopy := rows[i]
		result[i] = &rowCopy
	}
	return result
}
