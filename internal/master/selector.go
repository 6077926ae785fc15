// Package master proposes the canonical file of a sibling group: candidates
// are filtered by the never_master_from rules, ranked by a documented
// weighted heuristic, and the winner is returned with a confidence score and
// the human-readable reasons that favored it.
package master

import (
	"sort"

	"hypermatrix/internal/errors"
	"hypermatrix/internal/fingerprint"
	"hypermatrix/internal/rules"
	"hypermatrix/internal/siblings"
)

// Ranking weights. The exact formula is deliberately documented rather
// than black-box: preferred path (3.0) dominates, then completeness
// (functions 1.5, classes 1.0), then size (1.0), then recency (0.5).
// Count, size and recency terms are normalized against the best candidate.
const (
	weightPreferPath = 3.0
	weightFunctions  = 1.5
	weightClasses    = 1.0
	weightSize       = 1.0
	weightRecency    = 0.5
)

// Reason strings use the consolidation UI's vocabulary.
const (
	ReasonIdentical     = "archivos idénticos"
	ReasonPreferredPath = "ruta preferida"
	ReasonMoreFunctions = "mayor número de funciones"
	ReasonMoreClasses   = "mayor número de clases"
	ReasonLargerFile    = "archivo más grande"
	ReasonNewerFile     = "modificado más recientemente"
	ReasonOnlyEligible  = "único candidato elegible"
)

// Proposal is a proposed master with its justification.
type Proposal struct {
	Filepath   string   `json:"filepath"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// Select proposes a master for a sibling group under the given rules.
// Fails with NO_ELIGIBLE_MASTER when every member matches never_master_from.
func Select(group *siblings.Group, cfg rules.Config) (*Proposal, error) {
	return SelectFromRecords(group.Files, cfg)
}

// SelectFromRecords proposes a master from an arbitrary candidate list.
// The merge planner reuses this to pick a default base file.
func SelectFromRecords(candidates []fingerprint.FileRecord, cfg rules.Config) (*Proposal, error) {
	var eligible []fingerprint.FileRecord
	for _, c := range candidates {
		if !rules.MatchAny(c.Filepath, cfg.NeverMasterFrom) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil, errors.New(errors.NoEligibleMaster, "all candidates are excluded by never_master_from rules")
	}

	if len(eligible) == 1 {
		return &Proposal{
			Filepath:   eligible[0].Filepath,
			Confidence: 1.0,
			Reasons:    []string{ReasonOnlyEligible},
		}, nil
	}

	// Two identical files: either is canonical, the choice is certain.
	if len(eligible) == 2 && eligible[0].ContentHash == eligible[1].ContentHash {
		winner := rankPair(eligible[0], eligible[1], cfg)
		return &Proposal{
			Filepath:   winner.Filepath,
			Confidence: 1.0,
			Reasons:    []string{ReasonIdentical},
		}, nil
	}

	ranked := rank(eligible, cfg)
	winner, runnerUp := ranked[0], ranked[1]

	return &Proposal{
		Filepath:   winner.record.Filepath,
		Confidence: confidence(winner.score, runnerUp.score),
		Reasons:    reasons(winner.record, runnerUp.record, cfg),
	}, nil
}

type rankedCandidate struct {
	record fingerprint.FileRecord
	score  float64
}

// rank scores every candidate and sorts by score descending, breaking
// ties lexically by path for determinism.
func rank(candidates []fingerprint.FileRecord, cfg rules.Config) []rankedCandidate {
	var maxFn, maxCls float64
	var maxSize float64
	var maxTime int64
	for _, c := range candidates {
		maxFn = maxF(maxFn, float64(c.FunctionCount))
		maxCls = maxF(maxCls, float64(c.ClassCount))
		maxSize = maxF(maxSize, float64(c.Size))
		if t := c.ModTime.Unix(); t > maxTime {
			maxTime = t
		}
	}

	norm := func(v, max float64) float64 {
		if max <= 0 {
			return 0
		}
		return v / max
	}

	ranked := make([]rankedCandidate, 0, len(candidates))
	for _, c := range candidates {
		score := weightFunctions*norm(float64(c.FunctionCount), maxFn) +
			weightClasses*norm(float64(c.ClassCount), maxCls) +
			weightSize*norm(float64(c.Size), maxSize)
		if rules.MatchAny(c.Filepath, cfg.PreferPaths) {
			score += weightPreferPath
		}
		if !c.ModTime.IsZero() && maxTime > 0 {
			score += weightRecency * norm(float64(c.ModTime.Unix()), float64(maxTime))
		}
		ranked = append(ranked, rankedCandidate{record: c, score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].record.Filepath < ranked[j].record.Filepath
	})
	return ranked
}

// rankPair picks the better of two records under the same ranking.
func rankPair(a, b fingerprint.FileRecord, cfg rules.Config) fingerprint.FileRecord {
	return rank([]fingerprint.FileRecord{a, b}, cfg)[0].record
}

// confidence is the normalized gap between winner and runner-up: a tight
// race yields low confidence, a clear winner high confidence.
func confidence(winner, runnerUp float64) float64 {
	if winner <= 0 {
		return 0
	}
	gap := (winner - runnerUp) / winner
	if gap < 0 {
		return 0
	}
	if gap > 1 {
		return 1
	}
	return gap
}

// reasons lists, in ranking-weight order, the criteria on which the winner
// strictly beats the runner-up.
func reasons(winner, runnerUp fingerprint.FileRecord, cfg rules.Config) []string {
	var out []string

	if rules.MatchAny(winner.Filepath, cfg.PreferPaths) && !rules.MatchAny(runnerUp.Filepath, cfg.PreferPaths) {
		out = append(out, ReasonPreferredPath)
	}
	if winner.FunctionCount > runnerUp.FunctionCount {
		out = append(out, ReasonMoreFunctions)
	}
	if winner.ClassCount > runnerUp.ClassCount {
		out = append(out, ReasonMoreClasses)
	}
	if winner.Size > runnerUp.Size {
		out = append(out, ReasonLargerFile)
	}
	if winner.ModTime.After(runnerUp.ModTime) {
		out = append(out, ReasonNewerFile)
	}

	return out
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
