package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"hypermatrix/internal/rules"
)

// handleRules serves GET /rules and PUT /rules.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		WriteJSON(w, s.rules.Get(), http.StatusOK)

	case http.MethodPut:
		var cfg rules.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			BadRequest(w, "invalid request body: "+err.Error())
			return
		}
		if err := s.rules.Put(cfg); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, s.rules.Get(), http.StatusOK)

	default:
		MethodNotAllowed(w)
	}
}

// handleRulesPresets lists built-in and user presets.
func (s *Server) handleRulesPresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}
	presets := s.rules.Presets()
	WriteJSON(w, map[string]interface{}{
		"presets": presets,
		"total":   len(presets),
	}, http.StatusOK)
}

// handleRulesPresetRoute serves POST /rules/presets/:name/apply.
func (s *Server) handleRulesPresetRoute(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/rules/presets/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[1] != "apply" || parts[0] == "" {
		NotFound(w, "unknown rules resource")
		return
	}
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	cfg, err := s.rules.ApplyPreset(parts[0])
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, cfg, http.StatusOK)
}

// handleRulesReset restores the default rules.
func (s *Server) handleRulesReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	cfg, err := s.rules.Reset()
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, cfg, http.StatusOK)
}

// handleRulesValidate checks a rules document without installing it.
func (s *Server) handleRulesValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	var cfg rules.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	issues := rules.Validate(cfg)
	WriteJSON(w, map[string]interface{}{
		"valid":  len(issues) == 0,
		"issues": issues,
	}, http.StatusOK)
}
