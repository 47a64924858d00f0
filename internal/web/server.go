// Package web exposes the agent over HTTP: a JSON chat endpoint, a
// websocket transport, and read-only analytics and profile views.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/revanthk/concierge/internal/analytics"
)

// TurnHandler processes one user message on a connection.
type TurnHandler interface {
	HandleTurn(ctx context.Context, connID, message string) (string, error)
	EndSession(connID string)
}

// AnalyticsSource produces the aggregate usage view.
type AnalyticsSource interface {
	Summarize() (*analytics.Summary, error)
}

// ProfileSource produces per-user summaries.
type ProfileSource interface {
	Summary(identity string) (string, bool, error)
}

// Server is the HTTP front end.
type Server struct {
	addr     string
	agent    TurnHandler
	events   AnalyticsSource
	profiles ProfileSource
	logger   *slog.Logger
	server   *http.Server
}

// NewServer creates a server listening on addr.
func NewServer(addr string, agent TurnHandler, events AnalyticsSource, profiles ProfileSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:     addr,
		agent:    agent,
		events:   events,
		profiles: profiles,
		logger:   logger,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/analytics", s.handleAnalytics)
	mux.HandleFunc("GET /api/users/{name}/summary", s.handleUserSummary)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests and blocks until the listener
// closes.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	s.logger.Info("starting web server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, format string, args ...any) {
	s.writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

type chatRequest struct {
	ConnectionID string `json:"connection_id"`
	Message      string `json:"message"`
}

type chatResponse struct {
	ConnectionID string `json:"connection_id"`
	Reply        string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.ConnectionID == "" {
		req.ConnectionID = uuid.NewString()
	}

	reply, err := s.agent.HandleTurn(r.Context(), req.ConnectionID, req.Message)
	if err != nil {
		s.logger.Error("turn failed", "connection", req.ConnectionID, "error", err)
		s.writeError(w, http.StatusBadGateway, "turn failed: %v", err)
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse{ConnectionID: req.ConnectionID, Reply: reply})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := s.events.Summarize()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "summarize analytics: %v", err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleUserSummary(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	summary, found, err := s.profiles.Summary(name)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load profile: %v", err)
		return
	}
	if !found {
		s.writeError(w, http.StatusNotFound, "unknown user: %s", name)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"name": name, "summary": summary})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
