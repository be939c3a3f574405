package reporting

import (
	"time"

	"pipeline-guard/internal/domain"
)

// Report is the incident review built from closed incidents and the
// prediction log.
type Report struct {
	GeneratedAt time.Time

	Summary     Summary
	Predictions PredictionSummary

	// Incidents sorted by opened_at ASC, incident_id ASC.
	Incidents []IncidentRow

	// Retraining holds one row per false alarm, relabelled as no leak.
	Retraining []RetrainingRow
}

// Summary aggregates closed incidents.
type Summary struct {
	TotalIncidents int
	Resolved       int
	FalseAlarms    int
	MinorLeaks     int
	MajorLeaks     int
	FalseAlarmRate float64 // false alarms / total incidents

	Throttles  int
	Shutoffs   int
	Dispatches int

	// Time from latch to close.
	TimeToCloseMedian time.Duration
	TimeToCloseP90    time.Duration
	TimeToCloseMax    time.Duration
}

// PredictionSummary counts prediction log rows by class.
// Available is false when no log was attached or it could not be read.
type PredictionSummary struct {
	Available bool
	Total     int
	NoLeak    int
	MinorLeak int
	MajorLeak int
	First     time.Time
	Last      time.Time
	LeakRate  float64 // (minor + major) / total
}

// IncidentRow is one closed incident.
type IncidentRow struct {
	IncidentID  string
	Outcome     domain.IncidentOutcome
	Class       domain.SeverityClass
	Status      string
	SampleTime  time.Time
	Pressure    float64
	FlowRate    float64
	OpenedAt    time.Time
	ClosedAt    time.Time
	TimeToClose time.Duration
	Actions     []domain.MitigationAction
	Notes       string
}

// RetrainingRow is a sample the operator flagged as a false alarm.
type RetrainingRow struct {
	IncidentID     string
	Time           time.Time
	Pressure       float64
	FlowRate       float64
	PredictedClass domain.SeverityClass
	Label          domain.SeverityClass
}
