package domain

import "time"

// AlertState is the process-wide operator UI state.
type AlertState string

const (
	AlertStateMonitoring   AlertState = "MONITORING"
	AlertStateAlertLatched AlertState = "ALERT_LATCHED"
)

// String returns the string representation of AlertState.
func (s AlertState) String() string {
	return string(s)
}

// MitigationAction is an operator command sent to field systems.
// Mitigations never change AlertState.
type MitigationAction string

const (
	ActionThrottle MitigationAction = "THROTTLE"
	ActionShutoff  MitigationAction = "SHUTOFF"
	ActionDispatch MitigationAction = "DISPATCH"
)

// IsValid checks if the action is a known mitigation.
func (a MitigationAction) IsValid() bool {
	return a == ActionThrottle || a == ActionShutoff || a == ActionDispatch
}

// IncidentOutcome records how an incident was closed.
type IncidentOutcome string

const (
	OutcomeOpen       IncidentOutcome = "OPEN"
	OutcomeResolved   IncidentOutcome = "RESOLVED"
	OutcomeFalseAlarm IncidentOutcome = "FALSE_ALARM"
)

// Incident is one latched alert, frozen to the sample that triggered it.
// Corresponds to incidents table in PostgreSQL.
type Incident struct {
	IncidentID string             // base58 hash of the triggering sample
	Sample     ClassifiedSample   // triggering sample
	OpenedAt   time.Time          // when the alert latched
	ClosedAt   *time.Time         // NULL while open
	Outcome    IncidentOutcome    // OPEN, RESOLVED, FALSE_ALARM
	Notes      string             // operator notes, required for RESOLVED
	Actions    []MitigationAction // mitigations issued, in order
}

// HasAction reports whether the mitigation was already issued.
func (i *Incident) HasAction(a MitigationAction) bool {
	for _, existing := range i.Actions {
		if existing == a {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (i *Incident) Clone() *Incident {
	if i == nil {
		return nil
	}
	c := *i
	if i.ClosedAt != nil {
		t := *i.ClosedAt
		c.ClosedAt = &t
	}
	c.Actions = append([]MitigationAction(nil), i.Actions...)
	return &c
}
