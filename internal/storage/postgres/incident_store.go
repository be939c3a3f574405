package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/storage"
)

// IncidentStore implements storage.IncidentStore using PostgreSQL.
type IncidentStore struct {
	pool *Pool
}

// NewIncidentStore creates a new IncidentStore.
func NewIncidentStore(pool *Pool) *IncidentStore {
	return &IncidentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.IncidentStore = (*IncidentStore)(nil)

// Insert adds a closed incident. Returns ErrDuplicateKey if incident_id exists.
func (s *IncidentStore) Insert(ctx context.Context, inc *domain.Incident) error {
	if inc == nil || inc.IncidentID == "" {
		return storage.ErrInvalidInput
	}

	actions := make([]string, len(inc.Actions))
	for i, a := range inc.Actions {
		actions[i] = string(a)
	}

	query := `
		INSERT INTO incidents (
			incident_id, sample_time, pressure, flow_rate, prediction_status, prediction_class,
			opened_at, closed_at, outcome, notes, actions
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		inc.IncidentID,
		inc.Sample.Time.UTC(),
		inc.Sample.Pressure,
		inc.Sample.FlowRate,
		inc.Sample.Status,
		int(inc.Sample.Class),
		inc.OpenedAt.UTC(),
		inc.ClosedAt,
		string(inc.Outcome),
		inc.Notes,
		actions,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

// GetByID retrieves an incident by its ID. Returns ErrNotFound if not exists.
func (s *IncidentStore) GetByID(ctx context.Context, incidentID string) (*domain.Incident, error) {
	query := `
		SELECT incident_id, sample_time, pressure, flow_rate, prediction_status, prediction_class,
			opened_at, closed_at, outcome, notes, actions
		FROM incidents
		WHERE incident_id = $1
	`

	inc, err := scanIncident(s.pool.QueryRow(ctx, query, incidentID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get incident by id: %w", err)
	}
	return inc, nil
}

// List returns incidents newest first.
func (s *IncidentStore) List(ctx context.Context, limit int) ([]*domain.Incident, error) {
	query := `
		SELECT incident_id, sample_time, pressure, flow_rate, prediction_status, prediction_class,
			opened_at, closed_at, outcome, notes, actions
		FROM incidents
		ORDER BY opened_at DESC, incident_id ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	result := []*domain.Incident{}
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		result = append(result, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return result, nil
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var (
		inc     domain.Incident
		class   int
		outcome string
		actions []string
	)
	err := row.Scan(
		&inc.IncidentID,
		&inc.Sample.Time,
		&inc.Sample.Pressure,
		&inc.Sample.FlowRate,
		&inc.Sample.Status,
		&class,
		&inc.OpenedAt,
		&inc.ClosedAt,
		&outcome,
		&inc.Notes,
		&actions,
	)
	if err != nil {
		return nil, err
	}

	inc.Sample.Class = domain.SeverityClass(class)
	inc.Sample.Time = inc.Sample.Time.UTC()
	inc.OpenedAt = inc.OpenedAt.UTC()
	if inc.ClosedAt != nil {
		t := inc.ClosedAt.UTC()
		inc.ClosedAt = &t
	}
	inc.Outcome = domain.IncidentOutcome(outcome)
	for _, a := range actions {
		inc.Actions = append(inc.Actions, domain.MitigationAction(a))
	}
	return &inc, nil
}
