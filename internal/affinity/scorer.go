// Package affinity scores pairwise file similarity across three independent
// dimensions (content, structure, DNA) and combines them into a weighted
// overall score with a coarse level classification.
package affinity

import (
	"math"

	"hypermatrix/internal/fingerprint"
)

// Level buckets an overall score into the bands the UI color-codes.
type Level string

const (
	LevelLow    Level = "low"    // overall < 0.5
	LevelMedium Level = "medium" // overall < 0.8
	LevelHigh   Level = "high"   // overall >= 0.8
)

// Weights combines the three dimensions into the overall score.
// They are normalized at scoring time, so only ratios matter.
type Weights struct {
	Content   float64 `json:"content" toml:"content"`
	Structure float64 `json:"structure" toml:"structure"`
	DNA       float64 `json:"dna" toml:"dna"`
}

// DefaultWeights returns the default dimension weights.
func DefaultWeights() Weights {
	return Weights{Content: 0.4, Structure: 0.3, DNA: 0.3}
}

// Valid reports whether the weights can be normalized.
func (w Weights) Valid() bool {
	return w.Content >= 0 && w.Structure >= 0 && w.DNA >= 0 &&
		w.Content+w.Structure+w.DNA > 0
}

// Score is the affinity between exactly two files. Symmetric: Compute(a,b)
// equals Compute(b,a) component-wise.
type Score struct {
	Content   float64 `json:"content"`
	Structure float64 `json:"structure"`
	DNA       float64 `json:"dna"`
	Overall   float64 `json:"overall"`
	Level     Level   `json:"level"`
	HashMatch bool    `json:"hashMatch"`
}

// Compute scores the affinity between two fingerprints.
func Compute(a, b *fingerprint.Fingerprint, w Weights) Score {
	if !w.Valid() {
		w = DefaultWeights()
	}

	s := Score{
		HashMatch: a.ContentHash == b.ContentHash,
		Structure: structureSimilarity(a.Structure, b.Structure),
		DNA:       dnaSimilarity(a.DNA, b.DNA),
	}

	// Equal hashes short-circuit content comparison.
	if s.HashMatch {
		s.Content = 1.0
	} else {
		s.Content = jaccard(a.ContentSig, b.ContentSig)
	}

	total := w.Content + w.Structure + w.DNA
	s.Overall = clamp01((s.Content*w.Content + s.Structure*w.Structure + s.DNA*w.DNA) / total)
	s.Level = LevelFor(s.Overall)
	return s
}

// LevelFor maps an overall score onto a level band.
func LevelFor(overall float64) Level {
	switch {
	case overall < 0.5:
		return LevelLow
	case overall < 0.8:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// jaccard computes Jaccard similarity over two sorted hash sets.
// Two empty sets are not considered similar unless the hash matched,
// which is handled before this is called.
func jaccard(a, b []uint64) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	inter := 0
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}

	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// structureSimilarity computes Jaccard similarity over the flattened
// structure tokens. An empty signature against a non-empty one is 0.0;
// two empty signatures are identical by definition.
func structureSimilarity(a, b fingerprint.StructureSignature) float64 {
	aEmpty, bEmpty := a.Empty(), b.Empty()
	if aEmpty && bEmpty {
		return 1.0
	}
	if aEmpty || bEmpty {
		return 0.0
	}

	setA := make(map[string]bool)
	for _, tok := range a.Tokens() {
		setA[tok] = true
	}

	inter := 0
	setB := make(map[string]bool)
	for _, tok := range b.Tokens() {
		if setB[tok] {
			continue
		}
		setB[tok] = true
		if setA[tok] {
			inter++
		}
	}

	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

// dnaSimilarity computes cosine similarity between DNA vectors.
// Two zero vectors are identical; a zero against a non-zero is 0.0.
func dnaSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	for i := n; i < len(a); i++ {
		normA += a[i] * a[i]
	}
	for i := n; i < len(b); i++ {
		normB += b[i] * b[i]
	}

	if normA == 0 && normB == 0 {
		return 1.0
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
