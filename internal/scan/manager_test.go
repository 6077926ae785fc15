//go:build cgo

package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"hypermatrix/internal/affinity"
	"hypermatrix/internal/config"
	"hypermatrix/internal/errors"
	"hypermatrix/internal/logging"
	"hypermatrix/internal/rules"
	"hypermatrix/internal/storage"
)

const pyUtils = `def shared():
    return 42

def local_helper():
    return "x"
`

func testWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"frontend/utils.py":       pyUtils,
		"backend/utils.py":        pyUtils,
		"backend/models.py":       "class Model:\n    pass\n",
		"node_modules/ignored.py": "def nope():\n    pass\n",
		"README.md":               "not source\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func testManager(t *testing.T) *Manager {
	t.Helper()
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})
	db, err := storage.Open(filepath.Join(t.TempDir(), "scan.db"), logger)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewManager(db, config.DefaultConfig(), logger)
}

func TestRunScansWorkspace(t *testing.T) {
	m := testManager(t)
	root := testWorkspace(t)

	scan, err := m.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if scan.Status != storage.ScanCompleted {
		t.Fatalf("status = %s, want completed", scan.Status)
	}
	// README.md is unsupported and node_modules is ignored.
	if scan.TotalFiles != 3 {
		t.Errorf("TotalFiles = %d, want 3", scan.TotalFiles)
	}

	got, err := m.Get(scan.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != storage.ScanCompleted || got.FinishedAt == nil {
		t.Errorf("persisted scan = %+v", got)
	}
}

func TestWalkerSkipsIgnoredAndOversized(t *testing.T) {
	root := testWorkspace(t)
	logger := logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel})

	w := NewWalker(root, 10, []string{"node_modules"}, false, logger)
	inputs, err := w.Walk(context.Background())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	// Every .py file exceeds the 10-byte cap.
	if len(inputs) != 0 {
		t.Errorf("Walk with tiny cap returned %d inputs", len(inputs))
	}

	w = NewWalker(root, 0, []string{"node_modules"}, false, logger)
	inputs, err = w.Walk(context.Background())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	for _, in := range inputs {
		if filepath.IsAbs(in.Path) {
			t.Errorf("input path %q is absolute, want relative", in.Path)
		}
		if in.Path == "node_modules/ignored.py" {
			t.Error("ignored directory was walked")
		}
	}
	if len(inputs) != 3 {
		t.Errorf("Walk returned %d inputs, want 3", len(inputs))
	}
}

func TestGroupsAndCompare(t *testing.T) {
	m := testManager(t)
	root := testWorkspace(t)

	scan, err := m.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	groups, err := m.Groups(context.Background(), scan.ID, affinity.DefaultWeights())
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if len(groups) != 1 || groups[0].Filename != "utils.py" {
		t.Fatalf("groups = %+v, want single utils.py group", groups)
	}
	if groups[0].AverageAffinity != 1.0 {
		t.Errorf("AverageAffinity = %v, want 1.0 for identical files", groups[0].AverageAffinity)
	}

	score, err := m.Compare(context.Background(), scan.ID, "frontend/utils.py", "backend/utils.py", affinity.DefaultWeights())
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if score.Overall != 1.0 || !score.HashMatch {
		t.Errorf("score = %+v, want identical", score)
	}

	// The listing above cached the pair; a repeat compare serves the cached
	// row and must return the same score, HashMatch included.
	cached, err := m.Compare(context.Background(), scan.ID, "backend/utils.py", "frontend/utils.py", affinity.DefaultWeights())
	if err != nil {
		t.Fatalf("Compare cached: %v", err)
	}
	if cached.Overall != score.Overall || cached.HashMatch != score.HashMatch || cached.Level != score.Level {
		t.Errorf("cached score = %+v, want %+v", cached, score)
	}

	if _, err := m.Compare(context.Background(), scan.ID, "frontend/utils.py", "ghost.py", affinity.DefaultWeights()); !errors.Is(err, errors.FileNotFound) {
		t.Errorf("Compare with unknown file: error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestGroupsWithMastersRespectsRules(t *testing.T) {
	m := testManager(t)
	root := testWorkspace(t)

	scan, err := m.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	cfg := rules.DefaultConfig()
	proposals, err := m.GroupsWithMasters(context.Background(), scan.ID, affinity.DefaultWeights(), cfg)
	if err != nil {
		t.Fatalf("GroupsWithMasters: %v", err)
	}
	if len(proposals) != 1 || proposals[0].Proposal == nil {
		t.Fatalf("proposals = %+v, want one group with a master", proposals)
	}

	// Excluding every member leaves the group without a proposal.
	cfg.NeverMasterFrom = []string{"frontend/*", "backend/*"}
	proposals, err = m.GroupsWithMasters(context.Background(), scan.ID, affinity.DefaultWeights(), cfg)
	if err != nil {
		t.Fatalf("GroupsWithMasters with exclusions: %v", err)
	}
	if proposals[0].Proposal != nil {
		t.Errorf("proposal = %+v, want nil when all members excluded", proposals[0].Proposal)
	}
}

func TestGetUnknownScan(t *testing.T) {
	m := testManager(t)
	if _, err := m.Get("missing"); !errors.Is(err, errors.ScanNotFound) {
		t.Errorf("error = %v, want SCAN_NOT_FOUND", err)
	}
}

func TestStartAndWait(t *testing.T) {
	m := testManager(t)
	root := testWorkspace(t)

	scan, err := m.Start(root)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if scan.Status != storage.ScanRunning {
		t.Errorf("initial status = %s, want running", scan.Status)
	}

	m.Wait(scan.ID)
	got, err := m.Get(scan.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != storage.ScanCompleted {
		t.Errorf("final status = %s, want completed", got.Status)
	}

	// A finished scan cannot be cancelled.
	if err := m.Cancel(scan.ID); !errors.Is(err, errors.ScopeInvalid) {
		t.Errorf("Cancel finished: error = %v, want SCOPE_INVALID", err)
	}
}

func TestDeleteScan(t *testing.T) {
	m := testManager(t)
	root := testWorkspace(t)

	scan, err := m.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := m.Delete(scan.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(scan.ID); !errors.Is(err, errors.ScanNotFound) {
		t.Errorf("error after delete = %v, want SCAN_NOT_FOUND", err)
	}
}
