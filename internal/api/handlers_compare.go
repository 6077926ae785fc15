package api

import (
	"encoding/json"
	"net/http"
)

// compareRequest is the body of POST /compare.
type compareRequest struct {
	ScanID string `json:"scanId"`
	File1  string `json:"file1"`
	File2  string `json:"file2"`
}

// handleCompare scores one file pair of a completed scan.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.ScanID == "" || req.File1 == "" || req.File2 == "" {
		BadRequest(w, "scanId, file1 and file2 are required")
		return
	}

	score, err := s.scans.Compare(r.Context(), req.ScanID, req.File1, req.File2, s.cfg.Affinity.Weights())
	if err != nil {
		WriteError(w, err)
		return
	}

	lines1, lines2, err := s.lineCounts(req.ScanID, req.File1, req.File2)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, map[string]interface{}{
		"affinity":   score,
		"file1Lines": lines1,
		"file2Lines": lines2,
	}, http.StatusOK)
}

func (s *Server) lineCounts(scanID, file1, file2 string) (int, int, error) {
	records, err := s.db.FilesForScan(scanID)
	if err != nil {
		return 0, 0, err
	}
	var lines1, lines2 int
	for _, rec := range records {
		switch rec.Filepath {
		case file1:
			lines1 = rec.Lines
		case file2:
			lines2 = rec.Lines
		}
	}
	return lines1, lines2, nil
}
