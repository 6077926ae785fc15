package api

import (
	"net/http"

	"hypermatrix/internal/version"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	// Health and readiness checks
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/ready", s.handleReady)

	// Scan lifecycle and scan-scoped resources
	s.router.HandleFunc("/scans", s.handleScans)      // GET list, POST start
	s.router.HandleFunc("/scans/", s.handleScanRoute) // /scans/:id[/...]

	// Pairwise comparison
	s.router.HandleFunc("/compare", s.handleCompare)

	// Merge planning
	s.router.HandleFunc("/merge/preview", s.handleMergePreview)
	s.router.HandleFunc("/merge/execute", s.handleMergeExecute)

	// Consolidation rules
	s.router.HandleFunc("/rules", s.handleRules) // GET, PUT
	s.router.HandleFunc("/rules/presets", s.handleRulesPresets)
	s.router.HandleFunc("/rules/presets/", s.handleRulesPresetRoute) // POST /rules/presets/:name/apply
	s.router.HandleFunc("/rules/reset", s.handleRulesReset)
	s.router.HandleFunc("/rules/validate", s.handleRulesValidate)

	// Root endpoint
	s.router.HandleFunc("/", s.handleRoot)
}

// handleRoot handles requests to the root path
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	response := map[string]interface{}{
		"name":    "HyperMatrix HTTP API",
		"version": version.Version,
		"endpoints": []string{
			"GET /health - Health check",
			"GET /ready - Readiness check",
			"POST /scans - Start a workspace scan",
			"GET /scans - List scans",
			"GET /scans/:id - Scan status",
			"POST /scans/:id/cancel - Cancel a running scan",
			"DELETE /scans/:id - Delete a finished scan",
			"GET /scans/:id/groups - List sibling groups",
			"GET /scans/:id/groups/:filename - Group detail with affinity matrix",
			"GET /scans/:id/parse-errors - Non-fatal parse failures of a scan",
			"GET /scans/:id/export - Download scan snapshot (zstd JSON)",
			"POST /compare - Score one file pair",
			"POST /merge/preview - Analyze a merge without writing",
			"POST /merge/execute - Resolve and write a merge",
			"GET /rules - Current consolidation rules",
			"PUT /rules - Replace consolidation rules",
			"GET /rules/presets - Built-in and user presets",
			"POST /rules/presets/:name/apply - Apply a preset",
			"POST /rules/reset - Restore default rules",
			"POST /rules/validate - Validate a rules document",
		},
	}

	WriteJSON(w, response, http.StatusOK)
}
