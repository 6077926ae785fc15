//go:build cgo

package api

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"hypermatrix/internal/affinity"
	"hypermatrix/internal/storage"
)

const flowUtils = `def shared():
    return 42
`

func flowWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, rel := range []string{"app/utils.py", "lib/utils.py"} {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(flowUtils), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// TestScanGroupCompareFlow drives the API end to end: scan a workspace,
// list its sibling groups, inspect the group detail and compare a pair.
func TestScanGroupCompareFlow(t *testing.T) {
	s := testServer(t)
	root := flowWorkspace(t)

	rec := doJSON(t, s, http.MethodPost, "/scans", startScanRequest{RootPath: root, Wait: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /scans = %d: %s", rec.Code, rec.Body.String())
	}
	var scanResp storage.ScanRecord
	decode(t, rec, &scanResp)
	if scanResp.Status != storage.ScanCompleted || scanResp.TotalFiles != 2 {
		t.Fatalf("scan = %+v", scanResp)
	}

	rec = doJSON(t, s, http.MethodGet, "/scans/"+scanResp.ID+"/groups", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET groups = %d: %s", rec.Code, rec.Body.String())
	}
	var list struct {
		Groups []groupSummary `json:"groups"`
		Total  int            `json:"total"`
	}
	decode(t, rec, &list)
	if list.Total != 1 || list.Groups[0].Filename != "utils.py" {
		t.Fatalf("groups = %+v", list)
	}
	if list.Groups[0].ProposedMaster == nil {
		t.Fatal("group carries no master proposal")
	}

	rec = doJSON(t, s, http.MethodGet, "/scans/"+scanResp.ID+"/groups/utils.py", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET group detail = %d: %s", rec.Code, rec.Body.String())
	}
	var detail struct {
		Filename string        `json:"filename"`
		Files    []groupMember `json:"files"`
	}
	decode(t, rec, &detail)
	if len(detail.Files) != 2 {
		t.Fatalf("detail files = %+v", detail.Files)
	}
	masters := 0
	for _, f := range detail.Files {
		if f.IsMaster {
			masters++
		}
	}
	if masters != 1 {
		t.Errorf("group has %d masters, want exactly 1", masters)
	}

	rec = doJSON(t, s, http.MethodPost, "/compare", compareRequest{
		ScanID: scanResp.ID, File1: "app/utils.py", File2: "lib/utils.py",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /compare = %d: %s", rec.Code, rec.Body.String())
	}
	var cmp struct {
		Affinity   affinity.Score `json:"affinity"`
		File1Lines int            `json:"file1Lines"`
		File2Lines int            `json:"file2Lines"`
	}
	decode(t, rec, &cmp)
	if cmp.Affinity.Overall != 1.0 || !cmp.Affinity.HashMatch {
		t.Errorf("compare score = %+v, want identical", cmp.Affinity)
	}
	if cmp.File1Lines == 0 || cmp.File1Lines != cmp.File2Lines {
		t.Errorf("line counts = %d/%d", cmp.File1Lines, cmp.File2Lines)
	}

	rec = doJSON(t, s, http.MethodGet, "/scans/"+scanResp.ID+"/groups?minAffinity=1.1", nil)
	decode(t, rec, &list)
	if list.Total != 0 {
		t.Errorf("minAffinity above 1 still returned %d groups", list.Total)
	}

	rec = doJSON(t, s, http.MethodGet, "/scans/"+scanResp.ID+"/export", nil)
	if rec.Code != http.StatusOK || rec.Body.Len() == 0 {
		t.Errorf("export = %d with %d bytes", rec.Code, rec.Body.Len())
	}
}

// TestMergeOverHTTP previews and executes a merge through the API.
func TestMergeOverHTTP(t *testing.T) {
	s := testServer(t)
	dir := t.TempDir()

	a := filepath.Join(dir, "a.py")
	b := filepath.Join(dir, "b.py")
	if err := os.WriteFile(a, []byte("def foo():\n    return 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("def foo():\n    return 1\n\ndef bar():\n    return 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, s, http.MethodPost, "/merge/preview", mergePreviewRequest{Files: []string{a, b}, BaseFile: a})
	if rec.Code != http.StatusOK {
		t.Fatalf("preview = %d: %s", rec.Code, rec.Body.String())
	}
	var preview struct {
		Conflicts       []interface{}     `json:"conflicts"`
		UniqueFunctions map[string]string `json:"uniqueFunctions"`
	}
	decode(t, rec, &preview)
	if len(preview.Conflicts) != 0 {
		t.Errorf("conflicts = %+v, want none", preview.Conflicts)
	}
	if preview.UniqueFunctions["bar"] != b {
		t.Errorf("uniqueFunctions = %+v", preview.UniqueFunctions)
	}

	out := filepath.Join(dir, "merged.py")
	rec = doJSON(t, s, http.MethodPost, "/merge/execute", mergeExecuteRequest{
		Files: []string{a, b}, BaseFile: a, OutputPath: out, ConflictResolution: "keep_largest",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("execute = %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("merged output missing: %v", err)
	}
}
