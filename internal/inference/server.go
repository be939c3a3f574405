package inference

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"pipeline-guard/internal/observability"
)

// ServerOptions configures Server.
type ServerOptions struct {
	Logger *log.Logger
}

// Server exposes a Client over HTTP.
//
//	POST /predict  canonical feature object -> {"prediction", "status"}
//	GET  /health
//	GET  /metrics
type Server struct {
	client Client
	router *mux.Router
	logger *log.Logger
}

// NewServer creates a Server backed by client (usually a LocalClient).
func NewServer(client Client, opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	s := &Server{
		client: client,
		router: mux.NewRouter(),
		logger: opts.Logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(observability.InstrumentRoutes)
	s.router.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Message: InvalidInputMessage})
		return
	}

	v, err := DecodeRequest(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Message: InvalidInputMessage})
		return
	}

	res := s.client.Classify(r.Context(), v)
	if res.Err != nil {
		status := http.StatusInternalServerError
		if errors.Is(res.Err, ErrMalformedInput) {
			status = http.StatusBadRequest
		}
		s.logger.Printf("predict failed: %v", res.Err)
		writeJSON(w, status, ErrorResponse{Error: res.Err.Message, Message: InvalidInputMessage})
		return
	}

	writeJSON(w, http.StatusOK, PredictResponse{Prediction: int(res.Class), Status: res.Status})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
