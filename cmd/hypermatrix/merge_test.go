package main

import (
	"strings"
	"testing"

	"hypermatrix/internal/lang"
	"hypermatrix/internal/merge"
)

func TestConflictLinesPairHintsWithLaterVersions(t *testing.T) {
	c := merge.Conflict{
		Name: "foo",
		Type: lang.KindFunction,
		Versions: []string{
			"frontend/utils.py",
			"backend/utils.py",
			"shared/utils.py",
		},
		Differences: []string{
			"backend/utils.py: +2/-1 líneas respecto a frontend/utils.py",
			"shared/utils.py: idéntico a frontend/utils.py",
		},
	}

	lines := conflictLines(c)
	if len(lines) != 3 {
		t.Fatalf("conflictLines returned %d lines, want 3", len(lines))
	}
	if lines[0] != "frontend/utils.py" {
		t.Errorf("reference line = %q, want bare first version", lines[0])
	}
	if !strings.HasPrefix(lines[1], "backend/utils.py") || !strings.Contains(lines[1], "+2/-1") {
		t.Errorf("line for backend = %q, want its own hint", lines[1])
	}
	if !strings.Contains(lines[2], "idéntico") {
		t.Errorf("line for shared = %q, want its own hint", lines[2])
	}
}
