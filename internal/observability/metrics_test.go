package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestAlertGauge(t *testing.T) {
	RecordAlertLatched(2)
	if out := scrape(t); !strings.Contains(out, "pipeline_guard_alert_latched 1") {
		t.Error("expected latched gauge at 1")
	}
	if out := scrape(t); !strings.Contains(out, `pipeline_guard_alert_latched_total{class="2"}`) {
		t.Error("expected latched counter for class 2")
	}

	RecordIncidentClosed("RESOLVED")
	if out := scrape(t); !strings.Contains(out, "pipeline_guard_alert_latched 0") {
		t.Error("expected latched gauge back at 0")
	}
}

func TestInstrumentRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.Use(InstrumentRoutes)
	r.HandleFunc("/actions/{action}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}).Methods(http.MethodPost)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions/throttle", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}

	want := `pipeline_guard_http_requests_total{method="POST",route="/actions/{action}",status="409"}`
	if out := scrape(t); !strings.Contains(out, want) {
		t.Errorf("expected %s in metrics output", want)
	}
}

func TestRecordAppend(t *testing.T) {
	RecordAppend()
	if !strings.Contains(scrape(t), "pipeline_guard_simulator_samples_appended_total") {
		t.Error("expected appended counter in metrics output")
	}
}
