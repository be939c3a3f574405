package reporting

import (
	"fmt"
	"strings"
	"time"

	"pipeline-guard/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Incident Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	s := r.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Closed Incidents | %d |\n", s.TotalIncidents))
	sb.WriteString(fmt.Sprintf("| Resolved | %d |\n", s.Resolved))
	sb.WriteString(fmt.Sprintf("| False Alarms | %d |\n", s.FalseAlarms))
	sb.WriteString(fmt.Sprintf("| False Alarm Rate | %.2f%% |\n", s.FalseAlarmRate*100))
	sb.WriteString(fmt.Sprintf("| Minor Leaks | %d |\n", s.MinorLeaks))
	sb.WriteString(fmt.Sprintf("| Major Leaks | %d |\n", s.MajorLeaks))
	sb.WriteString(fmt.Sprintf("| Throttle Commands | %d |\n", s.Throttles))
	sb.WriteString(fmt.Sprintf("| Shutoff Commands | %d |\n", s.Shutoffs))
	sb.WriteString(fmt.Sprintf("| Field Dispatches | %d |\n", s.Dispatches))
	sb.WriteString(fmt.Sprintf("| Time To Close (median) | %s |\n", s.TimeToCloseMedian))
	sb.WriteString(fmt.Sprintf("| Time To Close (p90) | %s |\n", s.TimeToCloseP90))
	sb.WriteString(fmt.Sprintf("| Time To Close (max) | %s |\n", s.TimeToCloseMax))
	sb.WriteString("\n")

	sb.WriteString("## Prediction Log\n\n")
	if p := r.Predictions; p.Available {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Rows | %d |\n", p.Total))
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", domain.StatusNoLeak, p.NoLeak))
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", domain.StatusMinorLeak, p.MinorLeak))
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", domain.StatusMajorLeak, p.MajorLeak))
		sb.WriteString(fmt.Sprintf("| Leak Rate | %.2f%% |\n", p.LeakRate*100))
		if p.Total > 0 {
			sb.WriteString(fmt.Sprintf("| First Row | %s |\n", p.First.Format(time.RFC3339)))
			sb.WriteString(fmt.Sprintf("| Last Row | %s |\n", p.Last.Format(time.RFC3339)))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("Prediction log not available.\n\n")
	}

	sb.WriteString("## Incidents\n\n")
	if len(r.Incidents) == 0 {
		sb.WriteString("No closed incidents.\n\n")
	} else {
		sb.WriteString("| Incident | Opened | Outcome | Status | Pressure | Flow Rate | Actions | Time To Close | Notes |\n")
		sb.WriteString("|----------|--------|---------|--------|----------|-----------|---------|---------------|-------|\n")
		for _, row := range r.Incidents {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f | %.2f | %s | %s | %s |\n",
				row.IncidentID,
				row.OpenedAt.Format(time.RFC3339),
				row.Outcome,
				row.Status,
				row.Pressure,
				row.FlowRate,
				joinActions(row.Actions, ", "),
				row.TimeToClose,
				escapeCell(row.Notes),
			))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Retraining Queue\n\n")
	if len(r.Retraining) == 0 {
		sb.WriteString("No samples flagged for retraining.\n")
	} else {
		sb.WriteString(fmt.Sprintf("%d sample(s) flagged as false alarms. See retraining.csv.\n", len(r.Retraining)))
	}

	return sb.String()
}

func joinActions(actions []domain.MitigationAction, sep string) string {
	if len(actions) == 0 {
		return "-"
	}
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = string(a)
	}
	return strings.Join(parts, sep)
}

// escapeCell keeps free-form notes on one table row.
func escapeCell(s string) string {
	if s == "" {
		return "-"
	}
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.Join(strings.Fields(s), " ")
}
