package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-guard/internal/alert"
	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/monitor"
	"pipeline-guard/internal/storage/memory"
)

type failingActuator struct{}

func (failingActuator) Dispatch(context.Context, *domain.Incident, domain.MitigationAction) (string, error) {
	return "", errors.New("broker unreachable")
}

type testEnv struct {
	srv       *httptest.Server
	log       *memory.SampleLog
	incidents *memory.IncidentStore
	loop      *monitor.Loop
	hub       *Hub
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestEnv(t *testing.T, actuator alert.Actuator) *testEnv {
	t.Helper()

	sampleLog := memory.NewSampleLog()
	incidents := memory.NewIncidentStore()
	hub := NewHub(quietLogger())
	if actuator == nil {
		actuator = alert.NewLogActuator(quietLogger())
	}
	machine := alert.NewMachine(alert.Options{
		Actuator:  actuator,
		Incidents: incidents,
		Logger:    quietLogger(),
	})
	loop := monitor.NewLoop(monitor.Options{
		Log:       sampleLog,
		Machine:   machine,
		Publisher: hub,
		Logger:    quietLogger(),
	})
	server := NewServer(ServerOptions{
		Loop:      loop,
		Incidents: incidents,
		Hub:       hub,
		Logger:    quietLogger(),
	})

	srv := httptest.NewServer(server)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return &testEnv{srv: srv, log: sampleLog, incidents: incidents, loop: loop, hub: hub}
}

func (e *testEnv) appendSample(t *testing.T, sec int, class domain.SeverityClass) {
	t.Helper()
	require.NoError(t, e.log.Append(context.Background(), &domain.ClassifiedSample{
		Time:     time.Date(2024, 1, 1, 0, 0, sec, 0, time.UTC),
		Pressure: 1.2,
		FlowRate: 61.5,
		Status:   domain.StatusText(class),
		Class:    class,
	}))
}

// latch appends a major leak row and polls once.
func (e *testEnv) latch(t *testing.T) {
	t.Helper()
	e.appendSample(t, 1, domain.SeverityMajorLeak)
	require.Equal(t, monitor.ViewAlert, e.loop.Poll(context.Background()).Kind)
}

func (e *testEnv) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestServer_ActionsWithoutIncident(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{
		"/actions/throttle",
		"/actions/shutoff",
		"/actions/dispatch",
		"/actions/false-alarm",
	} {
		resp := env.post(t, path, "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode, path)
	}

	resp := env.post(t, "/actions/resolve", `{"notes":"anything"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_Mitigation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.latch(t)

	resp := env.post(t, "/actions/throttle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[ActionResponse](t, resp)
	assert.Equal(t, "THROTTLE", got.Action)
	assert.Equal(t, "Valves set to 50%. Loss rate minimized.", got.Message)
	assert.Equal(t, monitor.ViewAlert, got.View.Kind, "mitigation does not change state")
	require.NotNil(t, got.View.Incident)
	assert.Equal(t, []domain.MitigationAction{domain.ActionThrottle}, got.View.Incident.Actions)

	// Idempotent.
	resp = env.post(t, "/actions/throttle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[ActionResponse](t, resp)
	assert.Equal(t, []domain.MitigationAction{domain.ActionThrottle}, got.View.Incident.Actions)
}

func TestServer_MitigationActuatorFailure(t *testing.T) {
	env := newTestEnv(t, failingActuator{})
	env.latch(t)

	resp := env.post(t, "/actions/shutoff", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, monitor.ViewAlert, env.loop.Current().Kind)
}

func TestServer_ResolveRequiresNotes(t *testing.T) {
	env := newTestEnv(t, nil)
	env.latch(t)

	for _, body := range []string{"", `{}`, `{"notes":""}`, `{"notes":"   "}`} {
		resp := env.post(t, "/actions/resolve", body)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, "body %q", body)
		errResp := decode[ErrorResponse](t, resp)
		assert.Contains(t, errResp.Message, "notes")
	}
	assert.True(t, env.loop.Machine().Snapshot().Latched())

	resp := env.post(t, "/actions/resolve", `{"notes":"Burst pipe on sector 7 repaired"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[ActionResponse](t, resp)
	assert.Equal(t, MessageResolved, got.Message)
	assert.Equal(t, domain.AlertStateMonitoring, got.View.State)
	assert.False(t, env.loop.Machine().Snapshot().Latched())
}

func TestServer_ResolveBadBody(t *testing.T) {
	env := newTestEnv(t, nil)
	env.latch(t)

	resp := env.post(t, "/actions/resolve", `{"notes":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.True(t, env.loop.Machine().Snapshot().Latched())
}

func TestServer_FalseAlarmAndIncidents(t *testing.T) {
	env := newTestEnv(t, nil)
	env.latch(t)

	resp := env.post(t, "/actions/dispatch", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.post(t, "/actions/false-alarm", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[ActionResponse](t, resp)
	assert.Equal(t, MessageFalseAlarm, got.Message)
	assert.Equal(t, monitor.ViewNormal, got.View.Kind)

	listResp, err := http.Get(env.srv.URL + "/incidents")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	list := decode[[]IncidentResponse](t, listResp)
	require.Len(t, list, 1)
	assert.Equal(t, domain.OutcomeFalseAlarm, list[0].Outcome)
	assert.Equal(t, []domain.MitigationAction{domain.ActionDispatch}, list[0].Actions)
	assert.Equal(t, domain.SeverityMajorLeak, list[0].Sample.Class)
	assert.NotNil(t, list[0].ClosedAt)
}

func TestServer_IncidentsLimit(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.srv.URL + "/incidents?limit=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2, err := http.Get(env.srv.URL + "/incidents?limit=5")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	assert.Empty(t, decode[[]IncidentResponse](t, resp2))
}

func TestServer_View(t *testing.T) {
	env := newTestEnv(t, nil)
	env.appendSample(t, 1, domain.SeverityNoLeak)
	env.loop.Poll(context.Background())

	resp, err := http.Get(env.srv.URL + "/view")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	v := decode[monitor.View](t, resp)
	assert.Equal(t, monitor.ViewNormal, v.Kind)
	assert.Equal(t, monitor.StatusSecure, v.Status)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.srv.URL + "/actions/throttle")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "MONITORING", health["state"])

	metrics, err := http.Get(env.srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	body, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pipeline_guard_http_requests_total")
}

func TestServer_WebSocketStream(t *testing.T) {
	env := newTestEnv(t, nil)
	env.appendSample(t, 1, domain.SeverityNoLeak)
	env.loop.Poll(context.Background())

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	readView := func() monitor.View {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var v monitor.View
		require.NoError(t, json.Unmarshal(msg, &v))
		return v
	}

	// Latest view on connect.
	assert.Equal(t, monitor.ViewNormal, readView().Kind)
	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	env.appendSample(t, 2, domain.SeverityMajorLeak)
	env.loop.Poll(context.Background())
	v := readView()
	assert.Equal(t, monitor.ViewAlert, v.Kind)
	assert.Equal(t, "CRITICAL ALERT: MAJOR LEAK/BURST", v.Banner)

	// Operator actions are pushed too.
	resp := env.post(t, "/actions/resolve", `{"notes":"isolated and repaired"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, monitor.ViewNormal, readView().Kind)
}

func TestHub_DisconnectRemovesSubscriber(t *testing.T) {
	env := newTestEnv(t, nil)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return env.hub.Subscribers() == 0 }, 2*time.Second, 5*time.Millisecond)
}
