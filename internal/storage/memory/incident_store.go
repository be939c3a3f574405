package memory

import (
	"context"
	"sort"
	"sync"

	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/storage"
)

// IncidentStore is an in-memory implementation of storage.IncidentStore.
type IncidentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Incident // keyed by incident_id
}

// NewIncidentStore creates a new in-memory incident store.
func NewIncidentStore() *IncidentStore {
	return &IncidentStore{
		data: make(map[string]*domain.Incident),
	}
}

// Compile-time interface check.
var _ storage.IncidentStore = (*IncidentStore)(nil)

// Insert adds a closed incident. Returns ErrDuplicateKey if incident_id exists.
func (s *IncidentStore) Insert(_ context.Context, inc *domain.Incident) error {
	if inc == nil || inc.IncidentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[inc.IncidentID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[inc.IncidentID] = inc.Clone()
	return nil
}

// GetByID retrieves an incident by its ID. Returns ErrNotFound if not exists.
func (s *IncidentStore) GetByID(_ context.Context, incidentID string) (*domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inc, exists := s.data[incidentID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return inc.Clone(), nil
}

// List returns incidents newest first.
func (s *IncidentStore) List(_ context.Context, limit int) ([]*domain.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Incident, 0, len(s.data))
	for _, inc := range s.data {
		result = append(result, inc.Clone())
	}

	// Sort by opened_at DESC, incident_id ASC
	sort.Slice(result, func(i, j int) bool {
		if !result[i].OpenedAt.Equal(result[j].OpenedAt) {
			return result[i].OpenedAt.After(result[j].OpenedAt)
		}
		return result[i].IncidentID < result[j].IncidentID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
