package scan

import (
	"context"

	"hypermatrix/internal/affinity"
	"hypermatrix/internal/errors"
	"hypermatrix/internal/fingerprint"
	"hypermatrix/internal/master"
	"hypermatrix/internal/rules"
	"hypermatrix/internal/siblings"
	"hypermatrix/internal/storage"
)

// GroupProposal pairs a sibling group with its master proposal. Proposal
// is nil when every member is excluded by the rules.
type GroupProposal struct {
	Group    siblings.Group   `json:"group"`
	Proposal *master.Proposal `json:"proposal,omitempty"`
}

// Groups computes the sibling groups of a completed scan and caches every
// pair score it produced.
func (m *Manager) Groups(ctx context.Context, scanID string, weights affinity.Weights) ([]siblings.Group, error) {
	scan, err := m.Get(scanID)
	if err != nil {
		return nil, err
	}
	if scan.Status != storage.ScanCompleted {
		return nil, errors.Newf(errors.ScopeInvalid, "scan %s is %s, groups need a completed scan", scanID, scan.Status)
	}

	recordPtrs, err := m.db.FilesForScan(scanID)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "loading scan files", err)
	}
	fps, err := m.db.FingerprintsForScan(scanID)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "loading fingerprints", err)
	}

	records := derefRecords(recordPtrs)
	groups, err := siblings.NewGrouper(weights).Group(ctx, records, fps)
	if err != nil {
		return nil, err
	}

	m.cachePairScores(scanID, groups)
	return groups, nil
}

// GroupsWithMasters returns each sibling group with its master proposal
// under the given rules. Groups whose members are all excluded carry a
// nil proposal instead of failing the whole listing.
func (m *Manager) GroupsWithMasters(ctx context.Context, scanID string, weights affinity.Weights, cfg rules.Config) ([]GroupProposal, error) {
	groups, err := m.Groups(ctx, scanID, weights)
	if err != nil {
		return nil, err
	}

	proposals := make([]GroupProposal, 0, len(groups))
	for _, g := range groups {
		gp := GroupProposal{Group: g}
		proposal, selErr := master.Select(&g, cfg)
		if selErr == nil {
			gp.Proposal = proposal
		} else if !errors.Is(selErr, errors.NoEligibleMaster) {
			return nil, selErr
		}
		proposals = append(proposals, gp)
	}
	return proposals, nil
}

// Compare scores one file pair of a completed scan, serving from the
// affinity cache when the pair was already scored.
func (m *Manager) Compare(ctx context.Context, scanID, fileA, fileB string, weights affinity.Weights) (*affinity.Score, error) {
	if _, err := m.Get(scanID); err != nil {
		return nil, err
	}

	if cached, err := m.db.GetAffinity(scanID, fileA, fileB); err == nil && cached != nil {
		return cached, nil
	}

	fps, err := m.db.FingerprintsForScan(scanID)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "loading fingerprints", err)
	}
	fpA, ok := fps[fileA]
	if !ok {
		return nil, errors.Newf(errors.FileNotFound, "file %s is not part of scan %s", fileA, scanID)
	}
	fpB, ok := fps[fileB]
	if !ok {
		return nil, errors.Newf(errors.FileNotFound, "file %s is not part of scan %s", fileB, scanID)
	}

	score := affinity.Compute(fpA, fpB, weights)
	if err := m.db.PutAffinity(scanID, fileA, fileB, score); err != nil {
		m.logger.Warn("failed to cache pair score", map[string]interface{}{
			"scan_id": scanID, "error": err.Error(),
		})
	}
	return &score, nil
}

// cachePairScores stores every in-group pair score. Cache failures are
// logged, not fatal: the scores were already computed.
func (m *Manager) cachePairScores(scanID string, groups []siblings.Group) {
	for _, g := range groups {
		for i := range g.Files {
			for j := i + 1; j < len(g.Files); j++ {
				err := m.db.PutAffinity(scanID, g.Files[i].Filepath, g.Files[j].Filepath, g.Matrix[i][j])
				if err != nil {
					m.logger.Warn("failed to cache pair score", map[string]interface{}{
						"scan_id": scanID, "error": err.Error(),
					})
					return
				}
			}
		}
	}
}

func derefRecords(ptrs []*fingerprint.FileRecord) []fingerprint.FileRecord {
	out := make([]fingerprint.FileRecord, 0, len(ptrs))
	for _, p := range ptrs {
		out = append(out, *p)
	}
	return out
}
