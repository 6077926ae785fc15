package siblings

import (
	"context"
	"path/filepath"
	"sort"

	"hypermatrix/internal/affinity"
	"hypermatrix/internal/fingerprint"
)

// GroupByContent is the basename-independent extension: it clusters files
// whose pairwise overall affinity reaches the threshold, regardless of
// name. Off by default; the standard grouping is basename-based because
// that is what filename-keyed group listings assume. Each cluster is named
// after the basename of its lexically first member.
func (g *Grouper) GroupByContent(ctx context.Context, files []fingerprint.FileRecord, fps map[string]*fingerprint.Fingerprint, threshold float64) ([]Group, error) {
	n := len(files)
	if n < 2 {
		return nil, nil
	}

	sorted := append([]fingerprint.FileRecord(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Filepath < sorted[j].Filepath })

	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			a := fingerprintFor(fps, sorted[i].Filepath)
			b := fingerprintFor(fps, sorted[j].Filepath)
			if affinity.Compute(a, b, g.weights).Overall >= threshold {
				union(i, j)
			}
		}
	}

	clusters := make(map[int][]fingerprint.FileRecord)
	for i := range sorted {
		root := find(i)
		clusters[root] = append(clusters[root], sorted[i])
	}

	var groups []Group
	for _, members := range clusters {
		if len(members) < 2 {
			continue
		}
		matrix, err := g.pairwiseMatrix(ctx, members, fps)
		if err != nil {
			return nil, err
		}
		groups = append(groups, Group{
			Filename:        filepath.Base(members[0].Filepath),
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
