package affinity

import (
	"context"
	"testing"
	"time"

	"hypermatrix/internal/fingerprint"
)

func mustFingerprint(t *testing.T, path string, source []byte) *fingerprint.Fingerprint {
	t.Helper()
	computer := fingerprint.NewComputer()
	_, fp, err := computer.Compute(context.Background(), path, source, time.Time{})
	if fp == nil {
		t.Fatalf("no fingerprint for %s: %v", path, err)
	}
	return fp
}

func TestReflexivity(t *testing.T) {
	fp := mustFingerprint(t, "data.txt", []byte("uno\ndos\ntres\ncuatro\ncinco\nseis\n"))

	score := Compute(fp, fp, DefaultWeights())
	if score.Overall != 1.0 {
		t.Errorf("self score overall = %f, want 1.0", score.Overall)
	}
	if score.Level != LevelHigh {
		t.Errorf("self score level = %s, want high", score.Level)
	}
	if !score.HashMatch {
		t.Error("self score must report hash match")
	}
}

func TestSymmetry(t *testing.T) {
	a := mustFingerprint(t, "a.txt", []byte("alpha\nbeta\ngamma\ndelta\nepsilon\nzeta\n"))
	b := mustFingerprint(t, "b.txt", []byte("alpha\nbeta\ngamma\ndelta\nomega\npsi\n"))

	ab := Compute(a, b, DefaultWeights())
	ba := Compute(b, a, DefaultWeights())

	if ab.Content != ba.Content || ab.Structure != ba.Structure || ab.DNA != ba.DNA || ab.Overall != ba.Overall {
		t.Errorf("score is not symmetric: %+v vs %+v", ab, ba)
	}
	if ab.Level != ba.Level || ab.HashMatch != ba.HashMatch {
		t.Errorf("level/hashMatch not symmetric: %+v vs %+v", ab, ba)
	}
}

func TestHashShortCircuit(t *testing.T) {
	source := []byte("identical\ncontent\nhere\nfour\nfive\nsix\n")
	a := mustFingerprint(t, "src/a.txt", source)
	b := mustFingerprint(t, "other/a.txt", source)

	score := Compute(a, b, DefaultWeights())
	if !score.HashMatch {
		t.Error("equal bytes must report hash_match")
	}
	if score.Content != 1.0 {
		t.Errorf("content = %f, want 1.0 on hash match", score.Content)
	}
}

func TestDisjointContent(t *testing.T) {
	a := mustFingerprint(t, "a.txt", []byte("one\ntwo\nthree\nfour\nfive\nsix\n"))
	b := mustFingerprint(t, "b.txt", []byte("seven\neight\nnine\nten\neleven\ntwelve\n"))

	score := Compute(a, b, DefaultWeights())
	if score.HashMatch {
		t.Error("different bytes must not report hash_match")
	}
	if score.Content != 0.0 {
		t.Errorf("content = %f, want 0.0 for disjoint shingles", score.Content)
	}
}

func TestStructureEmptyVsNonEmpty(t *testing.T) {
	empty := fingerprint.StructureSignature{}
	nonEmpty := fingerprint.StructureSignature{Functions: []string{"foo"}}

	if got := structureSimilarity(empty, nonEmpty); got != 0.0 {
		t.Errorf("empty vs non-empty structure = %f, want 0.0", got)
	}
	if got := structureSimilarity(empty, empty); got != 1.0 {
		t.Errorf("empty vs empty structure = %f, want 1.0", got)
	}
}

func TestStructureOverlap(t *testing.T) {
	a := fingerprint.StructureSignature{Functions: []string{"foo", "bar"}}
	b := fingerprint.StructureSignature{Functions: []string{"foo", "baz"}}

	got := structureSimilarity(a, b)
	if got < 0.33 || got > 0.34 { // 1 shared of 3 distinct
		t.Errorf("structure similarity = %f, want ~0.333", got)
	}
}

func TestLevelThresholds(t *testing.T) {
	tests := []struct {
		overall float64
		want    Level
	}{
		{0.0, LevelLow},
		{0.49, LevelLow},
		{0.5, LevelMedium},
		{0.79, LevelMedium},
		{0.8, LevelHigh},
		{1.0, LevelHigh},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.overall); got != tt.want {
			t.Errorf("LevelFor(%f) = %s, want %s", tt.overall, got, tt.want)
		}
	}
}

func TestInvalidWeightsFallBack(t *testing.T) {
	fp := mustFingerprint(t, "x.txt", []byte("a\nb\nc\nd\ne\nf\n"))
	score := Compute(fp, fp, Weights{})
	if score.Overall != 1.0 {
		t.Errorf("zero weights should fall back to defaults, overall = %f", score.Overall)
	}
}

func TestWeightsShiftOverall(t *testing.T) {
	a := mustFingerprint(t, "a.txt", []byte("shared\nlines\nhere\nyes\nindeed\ntruly\n"))
	b := mustFingerprint(t, "b.txt", []byte("shared\nlines\nhere\nyes\nindeed\ndiffer\n"))

	contentHeavy := Compute(a, b, Weights{Content: 1, Structure: 0, DNA: 0})
	dnaHeavy := Compute(a, b, Weights{Content: 0, Structure: 0, DNA: 1})

	if contentHeavy.Overall == dnaHeavy.Overall {
		t.Error("different weights should yield different overall scores")
	}
	if contentHeavy.Overall != contentHeavy.Content {
		t.Errorf("content-only weights: overall %f should equal content %f",
			contentHeavy.Overall, contentHeavy.Content)
	}
}
