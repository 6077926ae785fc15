// Package siblings clusters a scan's files into sibling groups: sets of 2+
// files sharing a basename, candidate duplicates of the same logical file.
package siblings

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"hypermatrix/internal/affinity"
	"hypermatrix/internal/fingerprint"
)

// Group is a set of 2+ files sharing a basename, with the full pairwise
// affinity matrix and the mean pairwise overall score.
type Group struct {
	Filename        string                   `json:"filename"`
	Files           []fingerprint.FileRecord `json:"files"`
	AverageAffinity float64                  `json:"averageAffinity"`
	// Matrix[i][j] is the affinity between Files[i] and Files[j].
	Matrix [][]affinity.Score `json:"matrix"`
}

// FileCount returns the number of member files.
func (g *Group) FileCount() int {
	return len(g.Files)
}

// PairScore returns the affinity between two member filepaths.
func (g *Group) PairScore(pathA, pathB string) (affinity.Score, bool) {
	ia, ib := -1, -1
	for i, f := range g.Files {
		if f.Filepath == pathA {
			ia = i
		}
		if f.Filepath == pathB {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return affinity.Score{}, false
	}
	return g.Matrix[ia][ib], true
}

// Grouper builds sibling groups from scan results.
type Grouper struct {
	weights affinity.Weights
	workers int
}

// NewGrouper creates a grouper with the given affinity weights.
func NewGrouper(weights affinity.Weights) *Grouper {
	return &Grouper{weights: weights, workers: runtime.NumCPU()}
}

// Group clusters files by exact basename. Files with a unique basename are
// dropped (not siblings). A file whose fingerprint degraded to content-only
// is still included: degradation shows up as a low structure score, never as
// exclusion. Groups come back sorted by file count descending, then filename
// ascending, so listings are reproducible.
func (g *Grouper) Group(ctx context.Context, files []fingerprint.FileRecord, fps map[string]*fingerprint.Fingerprint) ([]Group, error) {
	byName := make(map[string][]fingerprint.FileRecord)
	for _, f := range files {
		name := filepath.Base(f.Filepath)
		byName[name] = append(byName[name], f)
	}

	var groups []Group
	for name, members := range byName {
		if len(members) < 2 {
			continue
		}

		sort.Slice(members, func(i, j int) bool { return members[i].Filepath < members[j].Filepath })

		matrix, err := g.pairwiseMatrix(ctx, members, fps)
		if err != nil {
			return nil, err
		}

		groups = append(groups, Group{
			Filename:        name,
			Files:           members,
			AverageAffinity: averageOverall(matrix),
			Matrix:          matrix,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].Files) != len(groups[j].Files) {
			return len(groups[i].Files) > len(groups[j].Files)
		}
		return groups[i].Filename < groups[j].Filename
	})

	return groups, nil
}

// pairwiseMatrix computes the full n x n affinity matrix for a member list.
// Pairs are scored in parallel by a bounded worker pool; each cell is
// written by exactly one worker.
func (g *Grouper) pairwiseMatrix(ctx context.Context, members []fingerprint.FileRecord, fps map[string]*fingerprint.Fingerprint) ([][]affinity.Score, error) {
	n := len(members)
	matrix := make([][]affinity.Score, n)
	for i := range matrix {
		matrix[i] = make([]affinity.Score, n)
	}

	type pair struct{ i, j int }
	var pairs []pair
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	workers := g.workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(pairs) {
		workers = len(pairs)
	}

	work := make(chan pair)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range work {
				a := fingerprintFor(fps, members[p.i].Filepath)
				b := fingerprintFor(fps, members[p.j].Filepath)
				score := affinity.Compute(a, b, g.weights)
				matrix[p.i][p.j] = score
				matrix[p.j][p.i] = score
			}
		}()
	}

	var cancelled error
feed:
	for _, p := range pairs {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case work <- p:
		}
	}
	close(work)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}
	return matrix, nil
}

// fingerprintFor looks up a fingerprint, degrading to an empty one for
// files the fingerprint phase could not cover at all.
func fingerprintFor(fps map[string]*fingerprint.Fingerprint, path string) *fingerprint.Fingerprint {
	if fp, ok := fps[path]; ok && fp != nil {
		return fp
	}
	return &fingerprint.Fingerprint{}
}

// averageOverall is the mean overall score across distinct pairs.
func averageOverall(matrix [][]affinity.Score) float64 {
	n := len(matrix)
	if n < 2 {
		return 0
	}

	var sum float64
	var count int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += matrix[i][j].Overall
			count++
		}
	}
	return sum / float64(count)
}
