package siblings

import (
	"context"
	"testing"
	"time"

	"hypermatrix/internal/affinity"
	"hypermatrix/internal/fingerprint"
)

type fixtureFile struct {
	path   string
	source string
}

func buildFixture(t *testing.T, files []fixtureFile) ([]fingerprint.FileRecord, map[string]*fingerprint.Fingerprint) {
	t.Helper()
	computer := fingerprint.NewComputer()

	var records []fingerprint.FileRecord
	fps := make(map[string]*fingerprint.Fingerprint)
	for _, f := range files {
		rec, fp, err := computer.Compute(context.Background(), f.path, []byte(f.source), time.Time{})
		if rec == nil {
			t.Fatalf("compute %s: %v", f.path, err)
		}
		records = append(records, *rec)
		fps[f.path] = fp
	}
	return records, fps
}

const sampleBody = "line one\nline two\nline three\nline four\nline five\nline six\n"

func TestGroupingCompleteness(t *testing.T) {
	records, fps := buildFixture(t, []fixtureFile{
		{"src/utils.txt", sampleBody},
		{"lib/utils.txt", sampleBody},
		{"old/utils.txt", "totally\ndifferent\ncontent\nin\nthis\nfile\n"},
		{"src/main.txt", "unique basename\nhere\nyes\nfour\nfive\nsix\n"},
	})

	grouper := NewGrouper(affinity.DefaultWeights())
	groups, err := grouper.Group(context.Background(), records, fps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	group := groups[0]
	if group.Filename != "utils.txt" {
		t.Errorf("group filename = %q, want utils.txt", group.Filename)
	}
	if len(group.Files) != 3 {
		t.Errorf("expected 3 members, got %d", len(group.Files))
	}

	// main.txt has a unique basename and must be in no group.
	for _, g := range groups {
		for _, f := range g.Files {
			if f.Filepath == "src/main.txt" {
				t.Error("unique-basename file must not appear in a group")
			}
		}
	}
}

func TestAverageAffinityMixedGroup(t *testing.T) {
	records, fps := buildFixture(t, []fixtureFile{
		{"a/config.txt", sampleBody},
		{"b/config.txt", sampleBody},
		{"c/config.txt", "nothing\nalike\nat\nall\nhere\nok\n"},
	})

	grouper := NewGrouper(affinity.DefaultWeights())
	groups, err := grouper.Group(context.Background(), records, fps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	group := groups[0]

	// One identical pair at 1.0 and two dissimilar pairs pull the mean
	// strictly between.
	identical, ok := group.PairScore("a/config.txt", "b/config.txt")
	if !ok || identical.Overall != 1.0 {
		t.Errorf("identical pair overall = %f, want 1.0", identical.Overall)
	}
	if group.AverageAffinity >= 1.0 || group.AverageAffinity <= 0.0 {
		t.Errorf("average affinity = %f, want strictly between 0 and 1", group.AverageAffinity)
	}
}

func TestDeterministicOrdering(t *testing.T) {
	fixture := []fixtureFile{
		{"x/beta.txt", sampleBody},
		{"y/beta.txt", sampleBody},
		{"x/alpha.txt", sampleBody},
		{"y/alpha.txt", sampleBody},
		{"a/big.txt", sampleBody},
		{"b/big.txt", sampleBody},
		{"c/big.txt", sampleBody},
	}
	records, fps := buildFixture(t, fixture)

	grouper := NewGrouper(affinity.DefaultWeights())
	for run := 0; run < 3; run++ {
		groups, err := grouper.Group(context.Background(), records, fps)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(groups) != 3 {
			t.Fatalf("expected 3 groups, got %d", len(groups))
		}
		// big.txt (3 files) first, then alpha/beta by name.
		if groups[0].Filename != "big.txt" || groups[1].Filename != "alpha.txt" || groups[2].Filename != "beta.txt" {
			t.Errorf("unexpected order: %s, %s, %s", groups[0].Filename, groups[1].Filename, groups[2].Filename)
		}
	}
}

func TestMatrixSymmetricWithUnitDiagonal(t *testing.T) {
	records, fps := buildFixture(t, []fixtureFile{
		{"p/x.txt", sampleBody},
		{"q/x.txt", "other\ncontent\nfor\nthis\none\nhere\n"},
	})

	grouper := NewGrouper(affinity.DefaultWeights())
	groups, err := grouper.Group(context.Background(), records, fps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := groups[0].Matrix
	if m[0][0].Overall != 1.0 || m[1][1].Overall != 1.0 {
		t.Error("diagonal must be 1.0")
	}
	if m[0][1] != m[1][0] {
		t.Error("matrix must be symmetric")
	}
}

func TestGroupCancellation(t *testing.T) {
	records, fps := buildFixture(t, []fixtureFile{
		{"a/f.txt", sampleBody},
		{"b/f.txt", sampleBody},
		{"c/f.txt", sampleBody},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	grouper := NewGrouper(affinity.DefaultWeights())
	if _, err := grouper.Group(ctx, records, fps); err == nil {
		t.Error("expected context error after cancellation")
	}
}

func TestGroupByContent(t *testing.T) {
	records, fps := buildFixture(t, []fixtureFile{
		{"a/one.txt", sampleBody},
		{"b/two.txt", sampleBody},
		{"c/three.txt", "completely\nunrelated\nstuff\nin\nhere\nnow\n"},
	})

	grouper := NewGrouper(affinity.DefaultWeights())
	groups, err := grouper.GroupByContent(context.Background(), records, fps, 0.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(groups) != 1 {
		t.Fatalf("expected 1 content group, got %d", len(groups))
	}
	if len(groups[0].Files) != 2 {
		t.Errorf("expected 2 members, got %d", len(groups[0].Files))
	}
}
