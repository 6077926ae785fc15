package merge

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/crypto/blake2b"

	"hypermatrix/internal/lang"
)

// conflictKey identifies a declared name by kind and name, so a function
// and a class sharing a name never collide in the index or resolutions.
func conflictKey(kind lang.DeclKind, name string) string {
	return string(kind) + ":" + name
}

// declVersion is one file's rendition of a declared name.
type declVersion struct {
	file     string
	decl     lang.Declaration
	body     []byte
	bodyHash string // Whitespace-insensitive body digest
}

// nameInfo tracks every rendition of one declared name across the inputs.
type nameInfo struct {
	name     string
	kind     lang.DeclKind
	versions []declVersion // One per declaring file, input order
}

func (n *nameInfo) distinctBodies() int {
	seen := make(map[string]bool)
	for _, v := range n.versions {
		seen[v.bodyHash] = true
	}
	return len(seen)
}

func (n *nameInfo) declaredIn(path string) *declVersion {
	for i := range n.versions {
		if n.versions[i].file == path {
			return &n.versions[i]
		}
	}
	return nil
}

// analyze classifies every declared name across the loaded files into
// common, unique and conflicting, and renders the preview.
func (p *Plan) analyze() *Preview {
	infos, order := p.collectDeclarations()

	preview := &Preview{
		BaseFile:        p.base,
		UniqueFunctions: make(map[string]string),
		UniqueClasses:   make(map[string]string),
	}

	for _, mf := range p.loaded {
		if mf.structure == nil {
			if _, ok := lang.FromPath(mf.path); ok {
				preview.ParseErrors = append(preview.ParseErrors, mf.path)
			}
		}
	}

	nFiles := len(p.loaded)
	fnNames := make(map[string]bool)
	clsNames := make(map[string]bool)

	for _, key := range order {
		info := infos[key]
		if info.kind == lang.KindFunction {
			fnNames[info.name] = true
		} else {
			clsNames[info.name] = true
		}

		declaring := len(info.versions)
		distinct := info.distinctBodies()

		switch {
		case declaring == nFiles && distinct == 1:
			if info.kind == lang.KindFunction {
				preview.CommonFunctions = append(preview.CommonFunctions, info.name)
			} else {
				preview.CommonClasses = append(preview.CommonClasses, info.name)
			}
		case distinct == 1:
			// Declared in one file, or identically in several but not
			// all: merged additively from the earliest declaring file.
			if info.kind == lang.KindFunction {
				preview.UniqueFunctions[info.name] = info.versions[0].file
			} else {
				preview.UniqueClasses[info.name] = info.versions[0].file
			}
		default:
			preview.Conflicts = append(preview.Conflicts, Conflict{
				Name:        info.name,
				Type:        info.kind,
				Versions:    versionPaths(info),
				Differences: versionDifferences(info),
			})
		}
	}

	preview.Stats = Stats{TotalFunctions: len(fnNames), TotalClasses: len(clsNames)}
	preview.PreviewCode, preview.Truncated = p.renderPreview(preview)

	p.infos = infos
	p.infoOrder = order
	return preview
}

// collectDeclarations indexes every declaration by kind and name. A file
// declaring the same name twice contributes a combined body digest.
func (p *Plan) collectDeclarations() (map[string]*nameInfo, []string) {
	infos := make(map[string]*nameInfo)

	for _, mf := range p.loaded {
		if mf.structure == nil {
			continue
		}
		perFile := make(map[string]*declVersion)
		for _, decl := range mf.structure.Declarations {
			key := conflictKey(decl.Kind, decl.Name)
			body := decl.Body(mf.source)
			hash := bodyDigest(body)

			if existing, ok := perFile[key]; ok {
				existing.bodyHash = bodyDigest([]byte(existing.bodyHash + hash))
				continue
			}

			version := &declVersion{file: mf.path, decl: decl, body: body, bodyHash: hash}
			perFile[key] = version

			info, ok := infos[key]
			if !ok {
				info = &nameInfo{name: decl.Name, kind: decl.Kind}
				infos[key] = info
			}
			info.versions = append(info.versions, *version)
		}
		// Combined digests computed above must flow into the shared index.
		for key, v := range perFile {
			info := infos[key]
			for i := range info.versions {
				if info.versions[i].file == mf.path {
					info.versions[i].bodyHash = v.bodyHash
				}
			}
		}
	}

	order := make([]string, 0, len(infos))
	for key := range infos {
		order = append(order, key)
	}
	sort.Strings(order)
	return infos, order
}

// bodyDigest hashes a declaration body ignoring whitespace differences.
func bodyDigest(body []byte) string {
	normalized := strings.Join(strings.Fields(string(body)), " ")
	sum := blake2b.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func versionPaths(info *nameInfo) []string {
	paths := make([]string, 0, len(info.versions))
	for _, v := range info.versions {
		paths = append(paths, v.file)
	}
	return paths
}

// versionDifferences renders diff hints for a conflict: every later
// version is diffed against the first declaring file's version.
func versionDifferences(info *nameInfo) []string {
	if len(info.versions) < 2 {
		return nil
	}

	dmp := diffmatchpatch.New()
	ref := info.versions[0]
	var hints []string

	for _, v := range info.versions[1:] {
		if v.bodyHash == ref.bodyHash {
			hints = append(hints, fmt.Sprintf("%s: idéntico a %s", v.file, ref.file))
			continue
		}
		added, removed := 0, 0
		for _, d := range dmp.DiffMain(string(ref.body), string(v.body), false) {
			lines := strings.Count(d.Text, "\n")
			if lines == 0 && strings.TrimSpace(d.Text) != "" {
				lines = 1
			}
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				added += lines
			case diffmatchpatch.DiffDelete:
				removed += lines
			}
		}
		hints = append(hints, fmt.Sprintf("%s: +%d/-%d líneas respecto a %s", v.file, added, removed, ref.file))
	}
	return hints
}

// renderPreview builds the merged source estimate: the base file plus the
// additive declarations the merge would append. Capped at maxLines.
func (p *Plan) renderPreview(preview *Preview) (string, bool) {
	base := p.fileByPath(p.base)
	if base == nil {
		return "", false
	}

	prefix := commentPrefix(p.base)
	var b strings.Builder
	fmt.Fprintf(&b, "%s fusión de %d archivos (base: %s)\n", prefix, len(p.loaded), p.base)
	b.Write(base.source)
	if len(base.source) > 0 && base.source[len(base.source)-1] != '\n' {
		b.WriteByte('\n')
	}

	for _, add := range p.additiveDeclarations(preview) {
		fmt.Fprintf(&b, "\n%s aportado por: %s\n", prefix, add.file)
		b.Write(add.body)
		b.WriteByte('\n')
	}

	return capLines(b.String(), p.maxLines)
}

// additiveDeclarations lists the declarations appended to the base:
// unique names the base does not declare, in deterministic order.
func (p *Plan) additiveDeclarations(preview *Preview) []declVersion {
	var adds []declVersion
	for _, key := range p.infoOrder {
		info := p.infos[key]
		if info.distinctBodies() != 1 || len(info.versions) == len(p.loaded) {
			continue
		}
		if info.declaredIn(p.base) != nil {
			continue
		}
		adds = append(adds, info.versions[0])
	}

	sort.Slice(adds, func(i, j int) bool {
		if adds[i].file != adds[j].file {
			return adds[i].file < adds[j].file
		}
		return adds[i].decl.StartByte < adds[j].decl.StartByte
	})
	return adds
}

// commentPrefix returns the line-comment marker for the base file's language.
func commentPrefix(path string) string {
	if language, ok := lang.FromPath(path); ok && language == lang.LangPython {
		return "#"
	}
	return "//"
}

// capLines truncates text to at most maxLines lines.
func capLines(text string, maxLines int) (string, bool) {
	if maxLines <= 0 {
		return text, false
	}
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text, false
	}
	return strings.Join(lines[:maxLines], "\n") + "\n", true
}
