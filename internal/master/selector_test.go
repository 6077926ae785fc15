package master

import (
	"testing"
	"time"

	"hypermatrix/internal/errors"
	"hypermatrix/internal/fingerprint"
	"hypermatrix/internal/rules"
)

func record(path string, fns, classes int, size int64, mod int64) fingerprint.FileRecord {
	return fingerprint.FileRecord{
		Filepath:      path,
		Size:          size,
		FunctionCount: fns,
		ClassCount:    classes,
		ContentHash:   path, // Distinct unless a test overrides it
		ModTime:       time.Unix(mod, 0),
	}
}

func TestAllExcluded(t *testing.T) {
	cfg := rules.DefaultConfig()
	cfg.NeverMasterFrom = []string{"backup/*"}

	candidates := []fingerprint.FileRecord{
		record("backup/a.py", 3, 1, 100, 1000),
		record("backup/b.py", 2, 0, 90, 1000),
	}

	_, err := SelectFromRecords(candidates, cfg)
	if err == nil {
		t.Fatal("expected NO_ELIGIBLE_MASTER")
	}
	if !errors.Is(err, errors.NoEligibleMaster) {
		t.Errorf("expected NO_ELIGIBLE_MASTER code, got %v", err)
	}
}

func TestIdenticalPair(t *testing.T) {
	a := record("src/utils.py", 3, 1, 100, 1000)
	b := record("lib/utils.py", 3, 1, 100, 1000)
	a.ContentHash = "same"
	b.ContentHash = "same"

	proposal, err := SelectFromRecords([]fingerprint.FileRecord{a, b}, rules.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proposal.Confidence != 1.0 {
		t.Errorf("confidence = %f, want 1.0 for identical pair", proposal.Confidence)
	}
	if len(proposal.Reasons) != 1 || proposal.Reasons[0] != ReasonIdentical {
		t.Errorf("reasons = %v, want [%s]", proposal.Reasons, ReasonIdentical)
	}
}

func TestMoreFunctionsWins(t *testing.T) {
	cfg := rules.DefaultConfig()
	cfg.PreferPaths = nil

	candidates := []fingerprint.FileRecord{
		record("a/impl.py", 10, 2, 500, 1000),
		record("b/impl.py", 2, 1, 200, 1000),
		record("c/impl.py", 1, 0, 100, 1000),
	}

	proposal, err := SelectFromRecords(candidates, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proposal.Filepath != "a/impl.py" {
		t.Errorf("winner = %s, want a/impl.py", proposal.Filepath)
	}
	if !containsReason(proposal.Reasons, ReasonMoreFunctions) {
		t.Errorf("reasons = %v, want %q included", proposal.Reasons, ReasonMoreFunctions)
	}
}

func TestPreferredPathBoost(t *testing.T) {
	cfg := rules.DefaultConfig()
	cfg.PreferPaths = []string{"src/*"}

	candidates := []fingerprint.FileRecord{
		record("legacy/mod.py", 5, 1, 300, 1000),
		record("src/mod.py", 4, 1, 250, 1000),
	}

	proposal, err := SelectFromRecords(candidates, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proposal.Filepath != "src/mod.py" {
		t.Errorf("winner = %s, want preferred-path src/mod.py", proposal.Filepath)
	}
	if !containsReason(proposal.Reasons, ReasonPreferredPath) {
		t.Errorf("reasons = %v, want %q included", proposal.Reasons, ReasonPreferredPath)
	}
}

func TestConfidenceGap(t *testing.T) {
	cfg := rules.DefaultConfig()
	cfg.PreferPaths = nil

	clear := []fingerprint.FileRecord{
		record("a/x.py", 20, 5, 1000, 2000),
		record("b/x.py", 1, 0, 50, 1000),
		record("c/x.py", 1, 0, 40, 1000),
	}
	tied := []fingerprint.FileRecord{
		record("a/y.py", 3, 1, 100, 1000),
		record("b/y.py", 3, 1, 100, 1000),
		record("c/y.py", 3, 1, 100, 1000),
	}

	clearProposal, err := SelectFromRecords(clear, cfg)
	if err != nil {
		t.Fatal(err)
	}
	tiedProposal, err := SelectFromRecords(tied, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if clearProposal.Confidence <= tiedProposal.Confidence {
		t.Errorf("clear winner confidence %f should exceed tied confidence %f",
			clearProposal.Confidence, tiedProposal.Confidence)
	}
	if tiedProposal.Confidence != 0 {
		t.Errorf("three-way tie confidence = %f, want 0", tiedProposal.Confidence)
	}
}

func TestSingleEligible(t *testing.T) {
	cfg := rules.DefaultConfig()
	cfg.NeverMasterFrom = []string{"backup/*"}

	candidates := []fingerprint.FileRecord{
		record("src/keep.py", 3, 1, 100, 1000),
		record("backup/keep.py", 5, 2, 200, 2000),
	}

	proposal, err := SelectFromRecords(candidates, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proposal.Filepath != "src/keep.py" {
		t.Errorf("winner = %s, want src/keep.py", proposal.Filepath)
	}
	if proposal.Confidence != 1.0 {
		t.Errorf("confidence = %f, want 1.0 for sole eligible candidate", proposal.Confidence)
	}
	if !containsReason(proposal.Reasons, ReasonOnlyEligible) {
		t.Errorf("reasons = %v, want %q", proposal.Reasons, ReasonOnlyEligible)
	}
}

func TestDeterministicTieBreak(t *testing.T) {
	cfg := rules.DefaultConfig()
	cfg.PreferPaths = nil

	candidates := []fingerprint.FileRecord{
		record("z/equal.py", 3, 1, 100, 1000),
		record("a/equal.py", 3, 1, 100, 1000),
		record("m/equal.py", 3, 1, 100, 1000),
	}

	for i := 0; i < 3; i++ {
		proposal, err := SelectFromRecords(candidates, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if proposal.Filepath != "a/equal.py" {
			t.Errorf("tie must break lexically, got %s", proposal.Filepath)
		}
	}
}

func containsReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}
