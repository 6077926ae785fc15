package api

import (
	"encoding/json"
	"net/http"

	"hypermatrix/internal/merge"
	"hypermatrix/internal/rules"
)

// mergePreviewRequest is the body of POST /merge/preview.
type mergePreviewRequest struct {
	Files    []string `json:"files"`
	BaseFile string   `json:"baseFile,omitempty"`
}

// mergeExecuteRequest is the body of POST /merge/execute.
type mergeExecuteRequest struct {
	Files              []string          `json:"files"`
	BaseFile           string            `json:"baseFile,omitempty"`
	OutputPath         string            `json:"outputPath"`
	ConflictResolution string            `json:"conflictResolution,omitempty"`
	Resolutions        map[string]string `json:"resolutions,omitempty"` // conflict name → chosen file
}

// handleMergePreview analyzes a merge without touching the filesystem.
func (s *Server) handleMergePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	var req mergePreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	plan := merge.NewPlan(req.Files, req.BaseFile)
	plan.SetPreviewMaxLines(s.cfg.Merge.PreviewMaxLines)
	preview, err := plan.Preview(r.Context(), s.rules.Get())
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, preview, http.StatusOK)
}

// handleMergeExecute previews, applies the requested resolutions and
// policy, and writes the merged output.
func (s *Server) handleMergeExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	var req mergeExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.OutputPath == "" {
		BadRequest(w, "outputPath is required")
		return
	}

	cfg := s.rules.Get()
	policy := cfg.ConflictResolution
	if req.ConflictResolution != "" {
		policy = rules.Policy(req.ConflictResolution)
		if !rules.IsValidPolicy(policy) {
			BadRequest(w, "unknown conflictResolution "+req.ConflictResolution)
			return
		}
	}

	plan := merge.NewPlan(req.Files, req.BaseFile)
	plan.SetPreviewMaxLines(s.cfg.Merge.PreviewMaxLines)
	if _, err := plan.Preview(r.Context(), cfg); err != nil {
		WriteError(w, err)
		return
	}
	for name, chosen := range req.Resolutions {
		if err := plan.Resolve(name, chosen); err != nil {
			WriteError(w, err)
			return
		}
	}

	result, err := plan.Execute(r.Context(), req.OutputPath, policy)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, result, http.StatusOK)
}
