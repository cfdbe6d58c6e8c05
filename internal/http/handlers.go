package http

import (
	"context"
	"net/http"
	"time"
)

const readyTimeout = 5 * time.Second

// handleIndex answers the root path so clients can tell the API is up
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	OK(map[string]string{"status": "API running"}).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]string{"storage": "ok"}
	if err := s.svc.Ping(ctx); err != nil {
		checks["storage"] = "failed: " + err.Error()
		ServiceUnavailableError(map[string]any{"status": "not_ready", "checks": checks}).Write(w)
		return
	}

	OK(map[string]any{"status": "ready", "checks": checks}).Write(w)
}
