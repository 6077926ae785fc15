//go:build cgo

package fingerprint

import (
	"context"
	"testing"
	"time"

	"hypermatrix/internal/errors"
)

func TestComputeStructure(t *testing.T) {
	source := []byte(`import os

class Helper(Base):
    def run(self):
        pass

def main():
    h = Helper()
    h.run()
`)

	computer := NewComputer()
	rec, fp, err := computer.Compute(context.Background(), "tool.py", source, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.FunctionCount != 2 {
		t.Errorf("expected 2 functions, got %d", rec.FunctionCount)
	}
	if rec.ClassCount != 1 {
		t.Errorf("expected 1 class, got %d", rec.ClassCount)
	}
	if fp.Structure.Empty() {
		t.Fatal("structure signature should not be empty")
	}
	if len(fp.Structure.Imports) != 1 || fp.Structure.Imports[0] != "os" {
		t.Errorf("expected import os, got %v", fp.Structure.Imports)
	}
}

func TestComputeParseErrorDegrades(t *testing.T) {
	source := []byte("def broken(:\n  ???\n")

	computer := NewComputer()
	rec, fp, err := computer.Compute(context.Background(), "broken.py", source, time.Time{})

	if err == nil {
		t.Fatal("expected a parse error")
	}
	if !errors.Is(err, errors.ParseError) {
		t.Errorf("expected PARSE_ERROR, got %v", err)
	}
	// Degraded, not fatal: content facets survive.
	if rec == nil || fp == nil {
		t.Fatal("record and fingerprint must be returned despite parse error")
	}
	if fp.ContentHash == "" {
		t.Error("content hash must be computed despite parse error")
	}
	if !fp.Structure.Empty() {
		t.Error("structure signature must be empty on parse failure")
	}
}
