package storage

import (
	"context"

	"pipeline-guard/internal/domain"
)

// SampleLog is the append-only log of classified samples.
// Exactly one writer appends. Readers see rows in append order, newest last.
type SampleLog interface {
	// Append adds one sample as a single complete record.
	Append(ctx context.Context, s *domain.ClassifiedSample) error

	// ReadAll returns every sample in append order.
	// Returns ErrLogUnavailable if the backing store is missing or unreadable.
	ReadAll(ctx context.Context) ([]*domain.ClassifiedSample, error)

	// Tail returns at most the last n samples in append order.
	Tail(ctx context.Context, n int) ([]*domain.ClassifiedSample, error)
}

// IncidentStore provides access to closed incidents.
type IncidentStore interface {
	// Insert adds a closed incident. Returns ErrDuplicateKey if incident_id exists.
	Insert(ctx context.Context, inc *domain.Incident) error

	// GetByID retrieves an incident by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, incidentID string) (*domain.Incident, error)

	// List returns the most recent incidents, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*domain.Incident, error)
}
