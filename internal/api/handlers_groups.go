package api

import (
	"net/http"
	"sort"
	"strings"

	"hypermatrix/internal/errors"
	"hypermatrix/internal/fingerprint"
	"hypermatrix/internal/master"
	"hypermatrix/internal/scan"
)

// groupSummary is one entry of the group listing.
type groupSummary struct {
	Filename        string           `json:"filename"`
	FileCount       int              `json:"fileCount"`
	AverageAffinity float64          `json:"averageAffinity"`
	Files           []string         `json:"files"`
	ProposedMaster  *master.Proposal `json:"proposedMaster,omitempty"`
}

// groupMember is one file of a group detail response.
type groupMember struct {
	fingerprint.FileRecord
	IsMaster bool `json:"isMaster"`
}

// handleGroupList serves GET /scans/:id/groups with limit, sortBy,
// minAffinity and search filters.
func (s *Server) handleGroupList(w http.ResponseWriter, r *http.Request, scanID string) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	rulesCfg := s.rules.Get()
	limit := QueryParamInt(r, "limit", 50)
	// Groups below the configured threshold are not duplicates; an explicit
	// minAffinity param overrides the threshold either way.
	minAffinity := QueryParamFloat(r, "minAffinity", rulesCfg.MinAffinityThreshold)
	search := r.URL.Query().Get("search")
	sortBy := r.URL.Query().Get("sortBy")
	if sortBy == "" {
		sortBy = "files"
	}
	if sortBy != "files" && sortBy != "affinity" && sortBy != "name" {
		BadRequest(w, "sortBy must be one of files, affinity, name")
		return
	}

	proposals, err := s.scans.GroupsWithMasters(r.Context(), scanID, s.cfg.Affinity.Weights(), rulesCfg)
	if err != nil {
		WriteError(w, err)
		return
	}

	summaries := make([]groupSummary, 0, len(proposals))
	for _, gp := range proposals {
		if gp.Group.AverageAffinity < minAffinity {
			continue
		}
		if search != "" && !strings.Contains(gp.Group.Filename, search) {
			continue
		}

		paths := make([]string, 0, len(gp.Group.Files))
		for _, f := range gp.Group.Files {
			paths = append(paths, f.Filepath)
		}
		summaries = append(summaries, groupSummary{
			Filename:        gp.Group.Filename,
			FileCount:       gp.Group.FileCount(),
			AverageAffinity: gp.Group.AverageAffinity,
			Files:           paths,
			ProposedMaster:  gp.Proposal,
		})
	}

	sortSummaries(summaries, sortBy)

	total := len(summaries)
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}

	WriteJSON(w, map[string]interface{}{
		"groups": summaries,
		"total":  total,
	}, http.StatusOK)
}

// sortSummaries orders the listing; all orders break ties by filename so
// repeated calls paginate identically.
func sortSummaries(summaries []groupSummary, sortBy string) {
	sort.SliceStable(summaries, func(i, j int) bool {
		switch sortBy {
		case "affinity":
			if summaries[i].AverageAffinity != summaries[j].AverageAffinity {
				return summaries[i].AverageAffinity > summaries[j].AverageAffinity
			}
		case "name":
			return summaries[i].Filename < summaries[j].Filename
		default: // files
			if summaries[i].FileCount != summaries[j].FileCount {
				return summaries[i].FileCount > summaries[j].FileCount
			}
		}
		return summaries[i].Filename < summaries[j].Filename
	})
}

// handleGroupDetail serves GET /scans/:id/groups/:filename with the full
// member list, pairwise matrix and master proposal.
func (s *Server) handleGroupDetail(w http.ResponseWriter, r *http.Request, scanID, filename string) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	proposals, err := s.scans.GroupsWithMasters(r.Context(), scanID, s.cfg.Affinity.Weights(), s.rules.Get())
	if err != nil {
		WriteError(w, err)
		return
	}

	var found *scan.GroupProposal
	for i := range proposals {
		if proposals[i].Group.Filename == filename {
			found = &proposals[i]
			break
		}
	}
	if found == nil {
		WriteError(w, errors.Newf(errors.FileNotFound, "no sibling group named %q in scan %s", filename, scanID))
		return
	}

	masterPath := ""
	if found.Proposal != nil {
		masterPath = found.Proposal.Filepath
	}

	members := make([]groupMember, 0, len(found.Group.Files))
	for _, f := range found.Group.Files {
		members = append(members, groupMember{FileRecord: f, IsMaster: f.Filepath == masterPath})
	}

	WriteJSON(w, map[string]interface{}{
		"filename":        found.Group.Filename,
		"files":           members,
		"averageAffinity": found.Group.AverageAffinity,
		"affinityMatrix":  found.Group.Matrix,
		"proposedMaster":  found.Proposal,
	}, http.StatusOK)
}
