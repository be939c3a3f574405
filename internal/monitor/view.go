package monitor

import (
	"strings"
	"time"

	"pipeline-guard/internal/alert"
	"pipeline-guard/internal/domain"
)

// ViewKind selects what the operator screen shows.
type ViewKind string

const (
	ViewWaiting        ViewKind = "waiting"
	ViewLogUnavailable ViewKind = "log_unavailable"
	ViewError          ViewKind = "error"
	ViewNormal         ViewKind = "normal"
	ViewAlert          ViewKind = "alert"
)

// Operator-facing texts.
const (
	MessageWaiting        = "Waiting for data stream..."
	MessageLogUnavailable = "Log file not found. Please start the simulator!"
	MessageHalted         = "System Halted: Active operator input required."
	BannerNormal          = "System Normal: No Leaks Detected"
	BannerAlertPrefix     = "CRITICAL ALERT: "
	StatusSecure          = "Secure"
)

// DefaultChartSize is the number of recent rows plotted in the normal view.
const DefaultChartSize = 50

// Metric is a reading with its change since the previous row.
type Metric struct {
	Value float64 `json:"value"`
	Delta float64 `json:"delta"`
}

// ChartPoint is one plotted log row. Index is its position in the log.
type ChartPoint struct {
	Index    int       `json:"index"`
	Time     time.Time `json:"time"`
	Pressure float64   `json:"pressure"`
	FlowRate float64   `json:"flow_rate"`
}

// IncidentView is the frozen incident shown while latched.
type IncidentView struct {
	ID       string                    `json:"incident_id"`
	Time     time.Time                 `json:"time"`
	Class    string                    `json:"severity_class"`
	Status   string                    `json:"status"`
	Pressure float64                   `json:"pressure"`
	FlowRate float64                   `json:"flow_rate"`
	OpenedAt time.Time                 `json:"opened_at"`
	Actions  []domain.MitigationAction `json:"actions"`
}

// View is one rendered state of the operator screen.
type View struct {
	Kind    ViewKind          `json:"kind"`
	State   domain.AlertState `json:"state"`
	Banner  string            `json:"banner,omitempty"`
	Message string            `json:"message,omitempty"`
	Rows    int               `json:"rows"`

	// Normal view.
	Status   string       `json:"status,omitempty"`
	Pressure *Metric      `json:"pressure,omitempty"`
	FlowRate *Metric      `json:"flow_rate,omitempty"`
	Chart    []ChartPoint `json:"chart,omitempty"`

	// Alert view.
	Incident *IncidentView `json:"incident,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

func waitingView() View {
	return View{Kind: ViewWaiting, State: domain.AlertStateMonitoring, Message: MessageWaiting}
}

func logUnavailableView() View {
	return View{Kind: ViewLogUnavailable, State: domain.AlertStateMonitoring, Message: MessageLogUnavailable}
}

func errorView(err error) View {
	return View{Kind: ViewError, State: domain.AlertStateMonitoring, Message: "Error: " + err.Error()}
}

// normalView renders the latest readings and the trailing chart.
func normalView(rows []*domain.ClassifiedSample, chartSize int) View {
	n := len(rows)
	latest := rows[n-1]
	prev := latest
	if n > 1 {
		prev = rows[n-2]
	}

	start := n - chartSize
	if start < 0 {
		start = 0
	}
	chart := make([]ChartPoint, 0, n-start)
	for i := start; i < n; i++ {
		chart = append(chart, ChartPoint{
			Index:    i,
			Time:     rows[i].Time,
			Pressure: rows[i].Pressure,
			FlowRate: rows[i].FlowRate,
		})
	}

	return View{
		Kind:     ViewNormal,
		State:    domain.AlertStateMonitoring,
		Banner:   BannerNormal,
		Rows:     n,
		Status:   StatusSecure,
		Pressure: &Metric{Value: latest.Pressure, Delta: latest.Pressure - prev.Pressure},
		FlowRate: &Metric{Value: latest.FlowRate, Delta: latest.FlowRate - prev.FlowRate},
		Chart:    chart,
	}
}

// alertView renders the frozen incident. Nothing in it follows the live log.
func alertView(snap alert.Snapshot, rows int) View {
	inc := snap.Incident
	return View{
		Kind:    ViewAlert,
		State:   snap.State,
		Banner:  BannerAlertPrefix + strings.ToUpper(inc.Sample.Status),
		Message: MessageHalted,
		Rows:    rows,
		Incident: &IncidentView{
			ID:       inc.IncidentID,
			Time:     inc.Sample.Time,
			Class:    inc.Sample.Class.String(),
			Status:   inc.Sample.Status,
			Pressure: inc.Sample.Pressure,
			FlowRate: inc.Sample.FlowRate,
			OpenedAt: inc.OpenedAt,
			Actions:  inc.Actions,
		},
	}
}
