// Package server exposes the skill over HTTP for the voice platform adapter.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dyluth/koorda/internal/dialogue"
	"github.com/dyluth/koorda/internal/intent"
	"github.com/dyluth/koorda/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds an utterance request body.
const maxBodyBytes = 1 << 20

// Handler answers utterances and session ends.
type Handler interface {
	HandleUtterance(ctx context.Context, ev intent.Event) dialogue.Response
	HandleSessionEnd(ctx context.Context, conversationID string) error
}

// Pinger checks the snapshot store's connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the skill API, health checks and metrics.
type Server struct {
	handler Handler
	pinger  Pinger
	metrics *telemetry.Metrics
	logger  zerolog.Logger
	server  *http.Server
}

// New creates a server listening on addr. pinger may be nil when the store
// has no remote dependency; metrics may be nil.
func New(addr string, handler Handler, pinger Pinger, metrics *telemetry.Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		handler: handler,
		pinger:  pinger,
		metrics: metrics,
		logger:  telemetry.Component(logger, "server"),
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// a relayed reply may take the whole reply timeout
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Routes returns the HTTP handler of the server.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/utterances", s.utteranceHandler)
	mux.HandleFunc("POST /v1/sessions/{id}/end", s.sessionEndHandler)
	mux.HandleFunc("GET /healthz", s.healthCheckHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

// ListenAndServe blocks until the server stops. A graceful shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("event", "server_started").Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// utteranceHandler handles POST /v1/utterances.
func (s *Server) utteranceHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var ev intent.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "malformed utterance: "+err.Error())
		return
	}
	if strings.TrimSpace(ev.ConversationID) == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}
	if strings.TrimSpace(ev.Name) == "" {
		writeError(w, http.StatusBadRequest, "intent is required")
		return
	}
	if ev.RequestID == "" {
		ev.RequestID = r.Header.Get("X-Request-ID")
	}
	if ev.RequestID == "" {
		ev.RequestID = uuid.NewString()
	}

	resp := s.handler.HandleUtterance(r.Context(), ev)
	writeJSON(w, http.StatusOK, resp)
}

// sessionEndHandler handles POST /v1/sessions/{id}/end.
func (s *Server) sessionEndHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.handler.HandleSessionEnd(r.Context(), id); err != nil {
		s.logger.Error().Err(err).
			Str("event", "session_end_failed").
			Str("conversation_id", id).
			Msg("failed to end session")
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// healthCheckHandler handles GET /healthz.
// Returns 200 OK if the snapshot store is reachable, 503 otherwise.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{Status: "healthy"}
	if s.pinger == nil {
		writeJSON(w, http.StatusOK, response)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.pinger.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Redis = "disconnected"
		response.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response.Redis = "connected"
	writeJSON(w, http.StatusOK, response)
}

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status string `json:"status"`
	Redis  string `json:"redis,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ErrorResponse is the JSON body of a rejected request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
