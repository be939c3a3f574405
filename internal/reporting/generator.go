// Package reporting builds the incident review and the retraining export
// from stored incidents and the prediction log.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/storage"
)

// Generator produces reports from stored data.
type Generator struct {
	incidents storage.IncidentStore
	sampleLog storage.SampleLog // optional
	now       func() time.Time  // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(incidents storage.IncidentStore) *Generator {
	return &Generator{
		incidents: incidents,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithSampleLog adds prediction log counts to the report.
func (g *Generator) WithSampleLog(l storage.SampleLog) *Generator {
	g.sampleLog = l
	return g
}

// Generate builds a report over the most recent limit incidents.
// limit <= 0 means all.
func (g *Generator) Generate(ctx context.Context, limit int) (*Report, error) {
	list, err := g.incidents.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	rows := make([]IncidentRow, 0, len(list))
	for _, inc := range list {
		if inc.Outcome == domain.OutcomeOpen || inc.ClosedAt == nil {
			continue
		}
		rows = append(rows, incidentRow(inc))
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].OpenedAt.Equal(rows[j].OpenedAt) {
			return rows[i].OpenedAt.Before(rows[j].OpenedAt)
		}
		return rows[i].IncidentID < rows[j].IncidentID
	})

	predictions, err := g.predictionSummary(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		Summary:     summarize(rows),
		Predictions: predictions,
		Incidents:   rows,
		Retraining:  retrainingRows(rows),
	}, nil
}

func incidentRow(inc *domain.Incident) IncidentRow {
	closedAt := *inc.ClosedAt
	ttc := closedAt.Sub(inc.OpenedAt)
	if ttc < 0 {
		ttc = 0
	}
	return IncidentRow{
		IncidentID:  inc.IncidentID,
		Outcome:     inc.Outcome,
		Class:       inc.Sample.Class,
		Status:      inc.Sample.Status,
		SampleTime:  inc.Sample.Time,
		Pressure:    inc.Sample.Pressure,
		FlowRate:    inc.Sample.FlowRate,
		OpenedAt:    inc.OpenedAt,
		ClosedAt:    closedAt,
		TimeToClose: ttc,
		Actions:     append([]domain.MitigationAction(nil), inc.Actions...),
		Notes:       inc.Notes,
	}
}

func summarize(rows []IncidentRow) Summary {
	var s Summary
	durations := make([]time.Duration, 0, len(rows))

	for _, r := range rows {
		s.TotalIncidents++
		switch r.Outcome {
		case domain.OutcomeResolved:
			s.Resolved++
		case domain.OutcomeFalseAlarm:
			s.FalseAlarms++
		}
		switch r.Class {
		case domain.SeverityMinorLeak:
			s.MinorLeaks++
		case domain.SeverityMajorLeak:
			s.MajorLeaks++
		}
		for _, a := range r.Actions {
			switch a {
			case domain.ActionThrottle:
				s.Throttles++
			case domain.ActionShutoff:
				s.Shutoffs++
			case domain.ActionDispatch:
				s.Dispatches++
			}
		}
		durations = append(durations, r.TimeToClose)
	}

	s.FalseAlarmRate = rate(s.FalseAlarms, s.TotalIncidents)
	s.TimeToCloseMedian, s.TimeToCloseP90, s.TimeToCloseMax = durationStats(durations)
	return s
}

func retrainingRows(rows []IncidentRow) []RetrainingRow {
	var out []RetrainingRow
	for _, r := range rows {
		if r.Outcome != domain.OutcomeFalseAlarm {
			continue
		}
		out = append(out, RetrainingRow{
			IncidentID:     r.IncidentID,
			Time:           r.SampleTime,
			Pressure:       r.Pressure,
			FlowRate:       r.FlowRate,
			PredictedClass: r.Class,
			Label:          domain.SeverityNoLeak,
		})
	}
	return out
}

// predictionSummary reads the whole log. A missing log is not an error:
// incidents can outlive the log they were raised from.
func (g *Generator) predictionSummary(ctx context.Context) (PredictionSummary, error) {
	var p PredictionSummary
	if g.sampleLog == nil {
		return p, nil
	}

	samples, err := g.sampleLog.ReadAll(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrLogUnavailable) {
			return p, nil
		}
		return p, fmt.Errorf("read prediction log: %w", err)
	}

	p.Available = true
	for _, s := range samples {
		p.Total++
		switch s.Class {
		case domain.SeverityNoLeak:
			p.NoLeak++
		case domain.SeverityMinorLeak:
			p.MinorLeak++
		case domain.SeverityMajorLeak:
			p.MajorLeak++
		}
		if p.First.IsZero() || s.Time.Before(p.First) {
			p.First = s.Time
		}
		if s.Time.After(p.Last) {
			p.Last = s.Time
		}
	}
	p.LeakRate = rate(p.MinorLeak+p.MajorLeak, p.Total)
	return p, nil
}
