package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"pipeline-guard/internal/dataset"
	"pipeline-guard/internal/domain"
)

// RenderIncidentsCSV renders closed incidents as CSV string.
func RenderIncidentsCSV(rows []IncidentRow) (string, error) {
	records := [][]string{{
		"incident_id", "opened_at", "closed_at", "outcome", "prediction_class", "prediction_status",
		"sample_time", "pressure", "flow_rate", "actions", "time_to_close_seconds", "notes",
	}}
	for _, r := range rows {
		records = append(records, []string{
			r.IncidentID,
			r.OpenedAt.Format(time.RFC3339),
			r.ClosedAt.Format(time.RFC3339),
			string(r.Outcome),
			strconv.Itoa(int(r.Class)),
			r.Status,
			r.SampleTime.Format(time.RFC3339),
			formatFloat(r.Pressure),
			formatFloat(r.FlowRate),
			joinActions(r.Actions, ";"),
			strconv.FormatFloat(r.TimeToClose.Seconds(), 'f', 3, 64),
			r.Notes,
		})
	}
	return writeCSV(records)
}

// RenderRetrainingCSV renders false alarms relabelled for the next
// training run.
func RenderRetrainingCSV(rows []RetrainingRow) (string, error) {
	records := [][]string{{
		dataset.ColumnTimestamp, domain.ColumnPressure, domain.ColumnFlowRate, "predicted_class", "label", "incident_id",
	}}
	for _, r := range rows {
		records = append(records, []string{
			r.Time.Format("2006-01-02 15:04:05"),
			formatFloat(r.Pressure),
			formatFloat(r.FlowRate),
			strconv.Itoa(int(r.PredictedClass)),
			strconv.Itoa(int(r.Label)),
			r.IncidentID,
		})
	}
	return writeCSV(records)
}

func writeCSV(records [][]string) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.WriteAll(records); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
