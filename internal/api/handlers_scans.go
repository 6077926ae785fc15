package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// startScanRequest is the body of POST /scans.
type startScanRequest struct {
	RootPath string `json:"rootPath"`
	Wait     bool   `json:"wait,omitempty"` // block until the scan finishes
}

// handleScans serves GET /scans and POST /scans.
func (s *Server) handleScans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		scans, err := s.scans.List()
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{
			"scans": scans,
			"total": len(scans),
		}, http.StatusOK)

	case http.MethodPost:
		var req startScanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid request body: "+err.Error())
			return
		}
		if req.RootPath == "" {
			BadRequest(w, "rootPath is required")
			return
		}

		if req.Wait {
			scan, err := s.scans.Run(r.Context(), req.RootPath)
			if err != nil {
				WriteError(w, err)
				return
			}
			WriteJSON(w, scan, http.StatusOK)
			return
		}

		scan, err := s.scans.Start(req.RootPath)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, scan, http.StatusAccepted)

	default:
		MethodNotAllowed(w)
	}
}

// handleScanRoute dispatches /scans/:id and its sub-resources.
func (s *Server) handleScanRoute(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/scans/")
	parts := strings.SplitN(rest, "/", 3)
	scanID := parts[0]
	if scanID == "" {
		NotFound(w, "missing scan id")
		return
	}

	if len(parts) == 1 {
		s.handleScanByID(w, r, scanID)
		return
	}

	switch parts[1] {
	case "cancel":
		s.handleScanCancel(w, r, scanID)
	case "groups":
		if len(parts) == 3 && parts[2] != "" {
			s.handleGroupDetail(w, r, scanID, parts[2])
		} else {
			s.handleGroupList(w, r, scanID)
		}
	case "parse-errors":
		s.handleParseErrors(w, r, scanID)
	case "export":
		s.handleScanExport(w, r, scanID)
	default:
		NotFound(w, "unknown scan resource "+parts[1])
	}
}

func (s *Server) handleScanByID(w http.ResponseWriter, r *http.Request, scanID string) {
	switch r.Method {
	case http.MethodGet:
		scan, err := s.scans.Get(scanID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, scan, http.StatusOK)

	case http.MethodDelete:
		if err := s.scans.Delete(scanID); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]string{"deleted": scanID}, http.StatusOK)

	default:
		MethodNotAllowed(w)
	}
}

func (s *Server) handleScanCancel(w http.ResponseWriter, r *http.Request, scanID string) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	if err := s.scans.Cancel(scanID); err != nil {
		WriteError(w, err)
		return
	}
	scan, err := s.scans.Get(scanID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, scan, http.StatusOK)
}

func (s *Server) handleParseErrors(w http.ResponseWriter, r *http.Request, scanID string) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}
	if _, err := s.scans.Get(scanID); err != nil {
		WriteError(w, err)
		return
	}

	parseErrors, err := s.db.ParseErrorsForScan(scanID)
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}
	WriteJSON(w, map[string]interface{}{
		"parseErrors": parseErrors,
		"total":       len(parseErrors),
	}, http.StatusOK)
}

func (s *Server) handleScanExport(w http.ResponseWriter, r *http.Request, scanID string) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}
	if _, err := s.scans.Get(scanID); err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "scan-"+scanID+".json.zst"))
	if err := s.db.ExportScan(w, scanID); err != nil {
		s.logger.Error("scan export failed", map[string]interface{}{
			"scan_id": scanID, "error": err.Error(),
		})
	}
}
