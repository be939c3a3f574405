// Package alert implements the operator alert workflow: a two-state machine
// that latches on a leak classification and only returns to monitoring
// through an explicit operator transition.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/idhash"
	"pipeline-guard/internal/observability"
	"pipeline-guard/internal/storage"
)

// Rejected operator actions. State is unchanged when one is returned.
var (
	ErrNotesRequired    = errors.New("protocol requires incident notes before resolving")
	ErrNoActiveIncident = errors.New("no active incident")
	ErrUnknownAction    = errors.New("unknown mitigation action")
)

// Snapshot is a read-only copy of the machine state.
type Snapshot struct {
	State    domain.AlertState
	Incident *domain.Incident // nil while monitoring
}

// Latched reports whether an incident is active.
func (s Snapshot) Latched() bool {
	return s.State == domain.AlertStateAlertLatched
}

// Actions returns the mitigations already issued for the active incident.
func (s Snapshot) Actions() []domain.MitigationAction {
	if s.Incident == nil {
		return nil
	}
	return s.Incident.Actions
}

// Options configures the Machine.
type Options struct {
	Actuator  Actuator              // defaults to a LogActuator
	Incidents storage.IncidentStore // closed incidents; nil disables persistence
	Logger    *log.Logger
	Now       func() time.Time
}

// Machine is the alert state machine. Transitions are the only way to
// mutate it and it is safe for concurrent use.
type Machine struct {
	mu       sync.Mutex
	state    domain.AlertState
	incident *domain.Incident

	// acked is the last sample an operator closed an incident on. It stays
	// suppressed while it remains the latest log entry.
	acked *domain.ClassifiedSample

	actuator  Actuator
	incidents storage.IncidentStore
	logger    *log.Logger
	now       func() time.Time
}

// NewMachine creates a Machine in the Monitoring state.
func NewMachine(opts Options) *Machine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	actuator := opts.Actuator
	if actuator == nil {
		actuator = NewLogActuator(logger)
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Machine{
		state:     domain.AlertStateMonitoring,
		actuator:  actuator,
		incidents: opts.Incidents,
		logger:    logger,
		now:       now,
	}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Machine) snapshot() Snapshot {
	return Snapshot{State: m.state, Incident: m.incident.Clone()}
}

// Observe feeds the most recent log entry to the machine. Only that entry
// is considered. While latched, the incident stays frozen to the sample
// that triggered it.
//
// A leak entry latches unless it is the entry the operator last dismissed
// with FalseAlarm or Resolve. That entry is ignored while it stays the
// latest, so a stalled log does not re-raise the alert on the next poll.
// Any newer entry clears the exemption.
func (m *Machine) Observe(_ context.Context, latest *domain.ClassifiedSample) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if latest == nil || m.state == domain.AlertStateAlertLatched {
		return m.snapshot()
	}

	if m.acked != nil {
		if m.acked.SameAs(*latest) {
			return m.snapshot()
		}
		m.acked = nil
	}

	if !latest.IsLeak() {
		return m.snapshot()
	}

	openedAt := m.now()
	m.state = domain.AlertStateAlertLatched
	m.incident = &domain.Incident{
		IncidentID: idhash.ComputeIncidentID(*latest, openedAt),
		Sample:     *latest,
		OpenedAt:   openedAt,
		Outcome:    domain.OutcomeOpen,
	}
	observability.RecordAlertLatched(int(latest.Class))
	m.logger.Printf("ALERT latched: incident=%s status=%q class=%d pressure=%.2f flow=%.2f",
		m.incident.IncidentID, latest.Status, latest.Class, latest.Pressure, latest.FlowRate)

	return m.snapshot()
}

// Mitigate issues a mitigation for the active incident. Each action is
// dispatched at most once per incident; repeats return the stored message
// without calling the actuator. The alert state never changes.
func (m *Machine) Mitigate(ctx context.Context, action domain.MitigationAction) (string, error) {
	if !action.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.AlertStateAlertLatched {
		return "", ErrNoActiveIncident
	}
	if m.incident.HasAction(action) {
		return MitigationMessage(action), nil
	}

	msg, err := m.actuator.Dispatch(ctx, m.incident.Clone(), action)
	if err != nil {
		return "", fmt.Errorf("dispatch %s: %w", action, err)
	}
	m.incident.Actions = append(m.incident.Actions, action)
	observability.RecordMitigation(string(action))

	return msg, nil
}

// FalseAlarm dismisses the active incident and flags its sample for
// retraining. No notes are required.
func (m *Machine) FalseAlarm(ctx context.Context) (Snapshot, error) {
	return m.close(ctx, domain.OutcomeFalseAlarm, "")
}

// Resolve closes the active incident. Notes are mandatory.
func (m *Machine) Resolve(ctx context.Context, notes string) (Snapshot, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state != domain.AlertStateAlertLatched {
			return m.snapshot(), ErrNoActiveIncident
		}
		return m.snapshot(), ErrNotesRequired
	}
	return m.close(ctx, domain.OutcomeResolved, notes)
}

func (m *Machine) close(ctx context.Context, outcome domain.IncidentOutcome, notes string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.AlertStateAlertLatched {
		return m.snapshot(), ErrNoActiveIncident
	}

	closedAt := m.now()
	closed := m.incident.Clone()
	closed.ClosedAt = &closedAt
	closed.Outcome = outcome
	closed.Notes = notes

	// A failed write must not keep the operator locked in the alert view.
	if m.incidents != nil {
		if err := m.incidents.Insert(ctx, closed); err != nil {
			m.logger.Printf("WARN: persist incident %s: %v", closed.IncidentID, err)
		}
	}

	sample := closed.Sample
	m.acked = &sample
	m.state = domain.AlertStateMonitoring
	m.incident = nil
	observability.RecordIncidentClosed(string(outcome))

	switch outcome {
	case domain.OutcomeFalseAlarm:
		m.logger.Printf("Incident %s dismissed as false alarm, sample flagged for retraining", closed.IncidentID)
	default:
		m.logger.Printf("Incident %s resolved, resuming monitoring", closed.IncidentID)
	}

	return m.snapshot(), nil
}
