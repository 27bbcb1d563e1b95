// Package server exposes the helm command pipeline over HTTP.
//
// The API is intentionally small: submit a command, inspect or reset the
// ship state, read the recent command log, and toggle confirmation audio.
// Health and metrics endpoints ride along for operations.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/helmsman/internal/health"
	"github.com/MrWong99/helmsman/internal/helm"
	"github.com/MrWong99/helmsman/internal/observe"
)

// MuteControl toggles spoken confirmations at runtime. Implemented by the
// feedback dispatcher.
type MuteControl interface {
	Mute(muted bool)
	Muted() bool
}

// Server routes HTTP requests to the helm pipeline.
type Server struct {
	pipeline *helm.Pipeline
	mute     MuteControl
	health   *health.Handler
	metrics  *observe.Metrics
}

// Option is a functional option for [New].
type Option func(*Server)

// WithMuteControl wires the mute endpoints to a dispatcher. Without it the
// mute endpoints return 404.
func WithMuteControl(m MuteControl) Option {
	return func(s *Server) { s.mute = m }
}

// WithHealth attaches a health handler for /healthz and /readyz.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics overrides the metrics instruments used by the HTTP middleware.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a Server around the given pipeline.
func New(pipeline *helm.Pipeline, opts ...Option) *Server {
	s := &Server{pipeline: pipeline}
	for _, opt := range opts {
		opt(s)
	}
	if s.health == nil {
		s.health = health.New()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handler returns the full HTTP handler with routing and middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/command", s.handleCommand)
	mux.HandleFunc("GET /api/v1/state", s.handleState)
	mux.HandleFunc("POST /api/v1/reset", s.handleReset)
	mux.HandleFunc("GET /api/v1/log", s.handleLog)
	if s.mute != nil {
		mux.HandleFunc("GET /api/v1/mute", s.handleGetMute)
		mux.HandleFunc("PUT /api/v1/mute", s.handleSetMute)
	}

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// commandRequest is the body of POST /api/v1/command.
type commandRequest struct {
	// CommandText is the raw command transcript, as if spoken to the helm.
	CommandText string `json:"commandText"`
}

// commandResponse mirrors helm.Result for API consumers.
type commandResponse struct {
	Raw          string          `json:"rawText"`
	Corrected    string          `json:"correctedCommandText"`
	StateUpdates helm.StateDelta `json:"stateUpdates"`
	State        helm.ShipState  `json:"state"`
	Confirmation string          `json:"confirmationText,omitempty"`
	Spoken       bool            `json:"spoken"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.pipeline.Submit(r.Context(), "http", req.CommandText)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{
		Raw:          result.Raw,
		Corrected:    result.Corrected,
		StateUpdates: result.Delta,
		State:        result.State,
		Confirmation: result.Confirmation,
		Spoken:       result.SpeechErr == nil,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.State())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Reset()
	slog.Info("ship state reset via API")
	writeJSON(w, http.StatusOK, s.pipeline.State())
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	entries := s.pipeline.Log()
	if entries == nil {
		entries = []helm.LogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// muteState is the body and response of the mute endpoints.
type muteState struct {
	Muted bool `json:"muted"`
}

func (s *Server) handleGetMute(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, muteState{Muted: s.mute.Muted()})
}

func (s *Server) handleSetMute(w http.ResponseWriter, r *http.Request) {
	var req muteState
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.mute.Mute(req.Muted)
	slog.Info("confirmation audio toggled via API", "muted", req.Muted)
	writeJSON(w, http.StatusOK, muteState{Muted: s.mute.Muted()})
}

// statusForError maps pipeline sentinel errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, helm.ErrEmptyTranscript):
		return http.StatusBadRequest
	case errors.Is(err, helm.ErrCommandInFlight):
		return http.StatusConflict
	case errors.Is(err, helm.ErrInvalidInterpretation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, helm.ErrCorrectionUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}
