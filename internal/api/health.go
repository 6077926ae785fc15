package api

import (
	"net/http"
	"time"

	"hypermatrix/internal/version"
)

var startTime = time.Now()

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	WriteJSON(w, map[string]interface{}{
		"status":        "ok",
		"version":       version.Version,
		"uptimeSeconds": int(time.Since(startTime).Seconds()),
	}, http.StatusOK)
}

// handleReady reports readiness: the server is ready once the database
// answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	if err := s.db.Conn().Ping(); err != nil {
		WriteJSON(w, map[string]interface{}{
			"status": "unavailable",
			"reason": err.Error(),
		}, http.StatusServiceUnavailable)
		return
	}

	WriteJSON(w, map[string]interface{}{"status": "ready"}, http.StatusOK)
}
