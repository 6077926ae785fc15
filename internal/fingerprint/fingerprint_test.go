package fingerprint

import (
	"context"
	"testing"
	"time"
)

func TestComputeReproducible(t *testing.T) {
	source := []byte("alpha\nbeta\ngamma\ndelta\nepsilon\nzeta\n")
	computer := NewComputer()

	rec1, fp1, err1 := computer.Compute(context.Background(), "notes.txt", source, time.Time{})
	rec2, fp2, err2 := computer.Compute(context.Background(), "notes.txt", source, time.Time{})
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}

	if fp1.ContentHash != fp2.ContentHash {
		t.Error("content hash must be reproducible for equal bytes")
	}
	if rec1.ContentHash != rec2.ContentHash {
		t.Error("record hash must be reproducible for equal bytes")
	}
	if len(fp1.ContentSig) != len(fp2.ContentSig) {
		t.Fatal("content signatures differ in length")
	}
	for i := range fp1.ContentSig {
		if fp1.ContentSig[i] != fp2.ContentSig[i] {
			t.Fatal("content signatures differ")
		}
	}
	for i := range fp1.DNA {
		if fp1.DNA[i] != fp2.DNA[i] {
			t.Fatal("DNA vectors differ")
		}
	}
}

func TestContentHashDiffers(t *testing.T) {
	computer := NewComputer()
	_, fp1, _ := computer.Compute(context.Background(), "a.txt", []byte("one"), time.Time{})
	_, fp2, _ := computer.Compute(context.Background(), "b.txt", []byte("two"), time.Time{})
	if fp1.ContentHash == fp2.ContentHash {
		t.Error("different bytes must hash differently")
	}
}

func TestRecordFields(t *testing.T) {
	source := []byte("line1\nline2\nline3")
	computer := NewComputer()
	rec, _, err := computer.Compute(context.Background(), "pkg/data/file.txt", source, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Filepath != "pkg/data/file.txt" {
		t.Errorf("unexpected filepath %q", rec.Filepath)
	}
	if rec.Directory != "pkg/data" {
		t.Errorf("unexpected directory %q", rec.Directory)
	}
	if rec.Size != int64(len(source)) {
		t.Errorf("unexpected size %d", rec.Size)
	}
	if rec.Lines != 3 {
		t.Errorf("expected 3 lines, got %d", rec.Lines)
	}
}

func TestContentSignatureIgnoresWhitespace(t *testing.T) {
	a := []byte("foo\nbar\nbaz\nqux\nquux\ncorge\n")
	b := []byte("  foo\n\tbar\n\nbaz\nqux\n  quux\ncorge\n")

	sigA := contentSignature(a)
	sigB := contentSignature(b)
	if len(sigA) != len(sigB) {
		t.Fatalf("signature sizes differ: %d vs %d", len(sigA), len(sigB))
	}
	for i := range sigA {
		if sigA[i] != sigB[i] {
			t.Fatal("whitespace-only edits must not change the content signature")
		}
	}
}

func TestDNAStableUnderRenaming(t *testing.T) {
	original := []byte(`def process(items):
    total = 0
    for item in items:
        if item > 0:
            total += item
    return total
`)
	renamed := []byte(`def acumular(elementos):
    suma = 0
    for elemento in elementos:
        if elemento > 0:
            suma += elemento
    return suma
`)

	dnaA := dnaSignature(original)
	dnaB := dnaSignature(renamed)
	for i := range dnaA {
		if dnaA[i] != dnaB[i] {
			t.Fatalf("DNA must be identical under pure renaming, differs at dim %d", i)
		}
	}
}

func TestDNAChangesWithShape(t *testing.T) {
	flat := dnaSignature([]byte("x = 1\ny = 2\nz = 3\n"))
	branchy := dnaSignature([]byte("if x:\n    y()\nelse:\n    z()\n"))

	same := true
	for i := range flat {
		if flat[i] != branchy[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("structurally different code should produce different DNA")
	}
}

func TestDNAEmptySource(t *testing.T) {
	vec := dnaSignature(nil)
	if len(vec) != DNADims {
		t.Fatalf("expected %d dims, got %d", DNADims, len(vec))
	}
	for _, v := range vec {
		if v != 0 {
			t.Error("empty source should yield a zero vector")
		}
	}
}

func TestStructureTokens(t *testing.T) {
	sig := StructureSignature{
		Functions: []string{"load", "save"},
		Classes:   []ClassEntry{{Name: "Animal", Bases: []string{"Base"}}},
		Imports:   []string{"os"},
	}

	tokens := sig.Tokens()
	want := map[string]bool{
		"fn:load":           true,
		"fn:save":           true,
		"class:Animal<Base": true,
		"import:os":         true,
	}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %v", len(want), tokens)
	}
	for _, tok := range tokens {
		if !want[tok] {
			t.Errorf("unexpected token %q", tok)
		}
	}
}

func TestComputeAllOrderAndCancellation(t *testing.T) {
	inputs := []Input{
		{Path: "a.txt", Source: []byte("aaa\nbbb\nccc")},
		{Path: "b.txt", Source: []byte("ddd\neee\nfff")},
		{Path: "c.txt", Source: []byte("ggg\nhhh\niii")},
	}

	results, err := ComputeAll(context.Background(), inputs, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(inputs) {
		t.Fatalf("expected %d results, got %d", len(inputs), len(results))
	}
	for i, res := range results {
		if res.Record == nil || res.Record.Filepath != inputs[i].Path {
			t.Errorf("result %d misaligned with input", i)
		}
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ComputeAll(cancelled, inputs, 2)
	if err == nil {
		t.Error("expected context error after cancellation")
	}
}
