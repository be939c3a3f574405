// Package dashboard serves the operator surface: the live view over
// WebSocket and the discrete operator actions.
package dashboard

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"pipeline-guard/internal/alert"
	"pipeline-guard/internal/domain"
	"pipeline-guard/internal/monitor"
	"pipeline-guard/internal/observability"
	"pipeline-guard/internal/storage"
)

// Operator feedback texts.
const (
	MessageFalseAlarm = "Data point flagged for model retraining."
	MessageResolved   = "Incident logged. Resuming monitoring..."
)

const (
	defaultIncidentLimit = 50
	maxIncidentLimit     = 1000
)

// ServerOptions configures Server.
type ServerOptions struct {
	Loop      *monitor.Loop
	Incidents storage.IncidentStore // optional, backs GET /incidents
	Hub       *Hub                  // optional, created when nil
	Logger    *log.Logger
}

// Server routes:
//
//	POST /actions/throttle|shutoff|dispatch  mitigation, state unchanged
//	POST /actions/false-alarm                back to monitoring
//	POST /actions/resolve {"notes": "..."}   back to monitoring, notes required
//	GET  /view  /ws  /incidents  /health  /metrics
type Server struct {
	loop      *monitor.Loop
	machine   *alert.Machine
	incidents storage.IncidentStore
	hub       *Hub
	router    *mux.Router
	logger    *log.Logger
}

// NewServer creates a Server.
func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(logger)
	}

	s := &Server{
		loop:      opts.Loop,
		machine:   opts.Loop.Machine(),
		incidents: opts.Incidents,
		hub:       hub,
		router:    mux.NewRouter(),
		logger:    logger,
	}
	s.setupRoutes()
	return s
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) setupRoutes() {
	s.router.Use(observability.InstrumentRoutes)

	actions := s.router.PathPrefix("/actions").Methods(http.MethodPost).Subrouter()
	actions.HandleFunc("/throttle", s.handleMitigation(domain.ActionThrottle))
	actions.HandleFunc("/shutoff", s.handleMitigation(domain.ActionShutoff))
	actions.HandleFunc("/dispatch", s.handleMitigation(domain.ActionDispatch))
	actions.HandleFunc("/false-alarm", s.handleFalseAlarm)
	actions.HandleFunc("/resolve", s.handleResolve)

	s.router.HandleFunc("/view", s.handleView).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.hub.ServeWS).Methods(http.MethodGet)
	s.router.HandleFunc("/incidents", s.handleIncidents).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ActionResponse is returned by every accepted action.
type ActionResponse struct {
	Action  string       `json:"action"`
	Message string       `json:"message"`
	View    monitor.View `json:"view"`
}

// ErrorResponse is returned by every rejected request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ResolveRequest is the body of POST /actions/resolve.
type ResolveRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleMitigation(action domain.MitigationAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg, err := s.machine.Mitigate(r.Context(), action)
		if err != nil {
			s.writeActionError(w, string(action), err)
			return
		}
		s.writeAccepted(w, r, string(action), msg)
	}
}

func (s *Server) handleFalseAlarm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.machine.FalseAlarm(r.Context()); err != nil {
		s.writeActionError(w, "FALSE_ALARM", err)
		return
	}
	s.writeAccepted(w, r, "FALSE_ALARM", MessageFalseAlarm)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Message: "invalid request body"})
		return
	}

	if _, err := s.machine.Resolve(r.Context(), req.Notes); err != nil {
		s.writeActionError(w, "RESOLVE", err)
		return
	}
	s.writeAccepted(w, r, "RESOLVE", MessageResolved)
}

// writeAccepted refreshes the view so every subscriber sees the transition
// without waiting for the next tick.
func (s *Server) writeAccepted(w http.ResponseWriter, r *http.Request, action, msg string) {
	view := s.loop.Poll(r.Context())
	s.logger.Printf("Action %s accepted: %s", action, msg)
	writeJSON(w, http.StatusOK, ActionResponse{Action: action, Message: msg, View: view})
}

func (s *Server) writeActionError(w http.ResponseWriter, action string, err error) {
	var status int
	switch {
	case errors.Is(err, alert.ErrNotesRequired):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, alert.ErrNoActiveIncident):
		status = http.StatusConflict
	case errors.Is(err, alert.ErrUnknownAction):
		status = http.StatusBadRequest
	default:
		// The actuator could not reach field systems.
		status = http.StatusBadGateway
	}

	s.logger.Printf("WARN: action %s rejected: %v", action, err)
	writeJSON(w, status, ErrorResponse{Error: action, Message: err.Error()})
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.loop.Current())
}

// IncidentResponse is one closed incident in GET /incidents.
type IncidentResponse struct {
	IncidentID string                    `json:"incident_id"`
	Outcome    domain.IncidentOutcome    `json:"outcome"`
	Sample     domain.ClassifiedSample   `json:"sample"`
	OpenedAt   time.Time                 `json:"opened_at"`
	ClosedAt   *time.Time                `json:"closed_at,omitempty"`
	Notes      string                    `json:"notes,omitempty"`
	Actions    []domain.MitigationAction `json:"actions"`
}

func (s *Server) handleIncidents(w http.ResponseWriter, r *http.Request) {
	limit := defaultIncidentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit", Message: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxIncidentLimit)
	}

	resp := []IncidentResponse{}
	if s.incidents != nil {
		list, err := s.incidents.List(r.Context(), limit)
		if err != nil {
			s.logger.Printf("WARN: list incidents: %v", err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "incidents", Message: err.Error()})
			return
		}
		for _, inc := range list {
			actions := inc.Actions
			if actions == nil {
				actions = []domain.MitigationAction{}
			}
			resp = append(resp, IncidentResponse{
				IncidentID: inc.IncidentID,
				Outcome:    inc.Outcome,
				Sample:     inc.Sample,
				OpenedAt:   inc.OpenedAt,
				ClosedAt:   inc.ClosedAt,
				Notes:      inc.Notes,
				Actions:    actions,
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"state":       s.machine.Snapshot().State,
		"subscribers": s.hub.Subscribers(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
