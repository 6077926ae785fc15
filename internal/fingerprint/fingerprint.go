// Package fingerprint computes per-file fingerprints: a content hash, a
// shingled content signature, a structural inventory and a rename-resistant
// DNA vector. Fingerprints are pure functions of the file bytes, with no
// randomness or wall-clock dependency, so equal bytes always produce equal
// fingerprints.
package fingerprint

import (
	"context"
	"encoding/hex"
	"hash/fnv"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"hypermatrix/internal/errors"
	"hypermatrix/internal/lang"
)

// shingleSize is the number of normalized lines per content shingle.
const shingleSize = 5

// FileRecord describes one file of a scan. Immutable once computed;
// recomputed only on rescan.
type FileRecord struct {
	Filepath      string    `json:"filepath"`
	Directory     string    `json:"directory"`
	Size          int64     `json:"size"`
	ContentHash   string    `json:"contentHash"`
	FunctionCount int       `json:"functionCount"`
	ClassCount    int       `json:"classCount"`
	Lines         int       `json:"lines"`
	ModTime       time.Time `json:"modTime"`
}

// ClassEntry is a class declaration with its base classes.
type ClassEntry struct {
	Name  string   `json:"name"`
	Bases []string `json:"bases,omitempty"`
}

// StructureSignature is the declared inventory of a file: function names,
// class names with bases, and imported module names.
type StructureSignature struct {
	Functions []string     `json:"functions"`
	Classes   []ClassEntry `json:"classes"`
	Imports   []string     `json:"imports"`
}

// Empty reports whether the structure signature carries no declarations.
func (s StructureSignature) Empty() bool {
	return len(s.Functions) == 0 && len(s.Classes) == 0 && len(s.Imports) == 0
}

// Tokens flattens the signature into a set-comparable token list.
func (s StructureSignature) Tokens() []string {
	tokens := make([]string, 0, len(s.Functions)+len(s.Classes)+len(s.Imports))
	for _, fn := range s.Functions {
		tokens = append(tokens, "fn:"+fn)
	}
	for _, cls := range s.Classes {
		token := "class:" + cls.Name
		if len(cls.Bases) > 0 {
			bases := append([]string(nil), cls.Bases...)
			sort.Strings(bases)
			token += "<" + strings.Join(bases, ",")
		}
		tokens = append(tokens, token)
	}
	for _, imp := range s.Imports {
		tokens = append(tokens, "import:"+imp)
	}
	return tokens
}

// Fingerprint is the three-facet signature of one file.
type Fingerprint struct {
	ContentHash string             `json:"contentHash"`
	ContentSig  []uint64           `json:"contentSig"` // Sorted shingle hashes
	Structure   StructureSignature `json:"structure"`
	DNA         []float64          `json:"dna"` // Fixed-size pattern vector
}

// Computer computes fingerprints. Not safe for concurrent use: the
// underlying tree-sitter parser is single-threaded. Use ComputeAll for
// parallel batches.
type Computer struct {
	parser *lang.Parser
}

// NewComputer creates a fingerprint computer.
func NewComputer() *Computer {
	return &Computer{parser: lang.NewParser()}
}

// Compute builds the FileRecord and Fingerprint for one file.
//
// When the language parser cannot build an AST the returned error carries
// code PARSE_ERROR and the record and fingerprint are still valid: the
// content and DNA facets are computed, the structure signature is empty.
// Files in unsupported languages get an empty structure without an error.
func (c *Computer) Compute(ctx context.Context, path string, source []byte, modTime time.Time) (*FileRecord, *Fingerprint, error) {
	hash := blake2b.Sum256(source)

	fp := &Fingerprint{
		ContentHash: hex.EncodeToString(hash[:]),
		ContentSig:  contentSignature(source),
		DNA:         dnaSignature(source),
	}

	record := &FileRecord{
		Filepath:    path,
		Directory:   filepath.Dir(path),
		Size:        int64(len(source)),
		ContentHash: fp.ContentHash,
		Lines:       countLines(source),
		ModTime:     modTime,
	}

	var parseErr error
	if language, ok := lang.FromPath(path); ok {
		fs, err := c.parser.Parse(ctx, source, language)
		if err != nil {
			parseErr = errors.Wrap(errors.ParseError, "could not parse "+path, err)
		} else {
			fp.Structure = toSignature(fs)
			record.FunctionCount = len(fs.Functions())
			record.ClassCount = len(fs.Classes())
		}
	}

	return record, fp, parseErr
}

// toSignature converts a parsed file structure into a structure signature.
// Names are deduplicated and sorted so the signature is order-independent.
func toSignature(fs *lang.FileStructure) StructureSignature {
	sig := StructureSignature{}

	seenFn := make(map[string]bool)
	for _, d := range fs.Functions() {
		if !seenFn[d.Name] {
			seenFn[d.Name] = true
			sig.Functions = append(sig.Functions, d.Name)
		}
	}
	sort.Strings(sig.Functions)

	seenCls := make(map[string]bool)
	for _, d := range fs.Classes() {
		if !seenCls[d.Name] {
			seenCls[d.Name] = true
			sig.Classes = append(sig.Classes, ClassEntry{Name: d.Name, Bases: d.Bases})
		}
	}
	sort.Slice(sig.Classes, func(i, j int) bool { return sig.Classes[i].Name < sig.Classes[j].Name })

	seenImp := make(map[string]bool)
	for _, imp := range fs.Imports {
		if !seenImp[imp] {
			seenImp[imp] = true
			sig.Imports = append(sig.Imports, imp)
		}
	}
	sort.Strings(sig.Imports)

	return sig
}

// contentSignature builds a set of FNV-1a hashes over shingles of
// normalized lines. Whitespace-only edits do not change the signature.
func contentSignature(source []byte) []uint64 {
	lines := normalizedLines(source)
	if len(lines) == 0 {
		return nil
	}

	window := shingleSize
	if len(lines) < window {
		window = len(lines)
	}

	seen := make(map[uint64]bool)
	for i := 0; i+window <= len(lines); i++ {
		h := fnv.New64a()
		for _, line := range lines[i : i+window] {
			_, _ = h.Write([]byte(line))
			_, _ = h.Write([]byte{'\n'})
		}
		seen[h.Sum64()] = true
	}

	sig := make([]uint64, 0, len(seen))
	for v := range seen {
		sig = append(sig, v)
	}
	sort.Slice(sig, func(i, j int) bool { return sig[i] < sig[j] })
	return sig
}

// normalizedLines splits source into trimmed, non-empty lines.
func normalizedLines(source []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(source), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func countLines(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := 1
	for _, b := range source {
		if b == '\n' {
			n++
		}
	}
	return n
}
