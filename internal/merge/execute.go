package merge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"hypermatrix/internal/errors"
	"hypermatrix/internal/rules"
)

// Execute resolves any remaining conflicts under the given policy, builds
// the merged output and writes it atomically to outputPath. The output
// path must be named explicitly; it may be one of the inputs, and any
// other existing file is refused. The input files are never modified
// unless outputPath names one of them.
func (p *Plan) Execute(ctx context.Context, outputPath string, policy rules.Policy) (*ExecResult, error) {
	if p.state == StateDraft {
		return nil, errors.New(errors.ScopeInvalid, "plan must be previewed before executing")
	}
	if outputPath == "" {
		return nil, errors.New(errors.ScopeInvalid, "output path is required")
	}
	if !rules.IsValidPolicy(policy) {
		return nil, errors.Newf(errors.RulesInvalid, "unknown conflict resolution policy %q", policy)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.Cancelled, "merge cancelled", err)
	}

	resolutions, err := p.resolveAll(policy)
	if err != nil {
		return nil, err
	}

	if !p.isInput(outputPath) {
		if _, statErr := os.Stat(outputPath); statErr == nil {
			return nil, errors.Newf(errors.OutputPathConflict, "output path %q already exists and is not a merge input", outputPath)
		}
	}

	merged := p.buildMerged(resolutions)
	if err := writeAtomic(outputPath, merged); err != nil {
		return nil, errors.Wrap(errors.InternalError, "writing merged output", err)
	}

	p.state = StateExecuted
	return &ExecResult{OutputFile: outputPath, Stats: p.preview.Stats}, nil
}

// resolveAll completes the resolution map for every conflict, keyed the
// same way as the declaration index. Manual resolutions recorded via
// Resolve always win; the policy only decides the conflicts still open.
// The manual and keep_all policies never decide anything themselves, so
// any open conflict under them is an error.
func (p *Plan) resolveAll(policy rules.Policy) (map[string]string, error) {
	resolved := make(map[string]string, len(p.preview.Conflicts))
	var open []string

	for _, c := range p.preview.Conflicts {
		key := conflictKey(c.Type, c.Name)
		if chosen, ok := p.resolutions[key]; ok {
			resolved[key] = chosen
			continue
		}

		switch policy {
		case rules.PolicyManual, rules.PolicyKeepAll:
			open = append(open, c.Name)
		case rules.PolicyKeepLargest:
			resolved[key] = p.pickLargest(key)
		case rules.PolicyKeepComplex:
			resolved[key] = p.pickComplex(key)
		case rules.PolicyKeepNewest:
			resolved[key] = p.pickNewest(key)
		}
	}

	if len(open) > 0 {
		return nil, errors.Newf(errors.UnresolvedConflicts, "%d conflicts require manual resolution under policy %q: %v", len(open), policy, open)
	}
	return resolved, nil
}

// pickLargest keeps the version with the largest body. Ties break to the
// lexically smallest path so repeated runs pick the same winner.
func (p *Plan) pickLargest(key string) string {
	info := p.infos[key]
	best := info.versions[0]
	for _, v := range info.versions[1:] {
		if len(v.body) > len(best.body) || (len(v.body) == len(best.body) && v.file < best.file) {
			best = v
		}
	}
	return best.file
}

// pickComplex keeps the version with the most decision points, then the
// larger body, then the lexically smallest path.
func (p *Plan) pickComplex(key string) string {
	info := p.infos[key]
	best := info.versions[0]
	for _, v := range info.versions[1:] {
		switch {
		case v.decl.Branches != best.decl.Branches:
			if v.decl.Branches > best.decl.Branches {
				best = v
			}
		case len(v.body) != len(best.body):
			if len(v.body) > len(best.body) {
				best = v
			}
		case v.file < best.file:
			best = v
		}
	}
	return best.file
}

// pickNewest keeps the version from the most recently modified file.
func (p *Plan) pickNewest(key string) string {
	info := p.infos[key]
	best := info.versions[0]
	for _, v := range info.versions[1:] {
		bestFile, vFile := p.fileByPath(best.file), p.fileByPath(v.file)
		if vFile.modTime.After(bestFile.modTime) || (vFile.modTime.Equal(bestFile.modTime) && v.file < best.file) {
			best = v
		}
	}
	return best.file
}

// buildMerged renders the merged output: the base file with conflicting
// declarations it loses spliced out for the winning version, plus every
// additive declaration the base does not carry.
func (p *Plan) buildMerged(resolutions map[string]string) []byte {
	base := p.fileByPath(p.base)
	source := base.source

	// Splice conflict losers out of the base, back to front so earlier
	// byte offsets stay valid.
	type splice struct {
		start, end  int
		replacement []byte
	}
	var splices []splice
	var appended []declVersion

	for key, chosen := range resolutions {
		info := p.infos[key]
		winner := info.declaredIn(chosen)
		if winner == nil {
			continue
		}
		if baseVersion := info.declaredIn(p.base); baseVersion != nil {
			if chosen != p.base {
				splices = append(splices, splice{baseVersion.decl.StartByte, baseVersion.decl.EndByte, winner.body})
			}
			continue
		}
		appended = append(appended, *winner)
	}

	sort.Slice(splices, func(i, j int) bool { return splices[i].start > splices[j].start })
	out := make([]byte, len(source))
	copy(out, source)
	for _, s := range splices {
		if s.end > len(out) {
			continue
		}
		out = append(out[:s.start], append(append([]byte(nil), s.replacement...), out[s.end:]...)...)
	}

	for _, info := range p.additiveInfos() {
		appended = append(appended, info.versions[0])
	}
	sort.Slice(appended, func(i, j int) bool {
		if appended[i].file != appended[j].file {
			return appended[i].file < appended[j].file
		}
		return appended[i].decl.StartByte < appended[j].decl.StartByte
	})

	var b bytes.Buffer
	b.Write(out)
	if b.Len() > 0 && out[len(out)-1] != '\n' {
		b.WriteByte('\n')
	}
	prefix := commentPrefix(p.base)
	for _, add := range appended {
		fmt.Fprintf(&b, "\n%s aportado por: %s\n", prefix, add.file)
		b.Write(add.body)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// additiveInfos lists the single-body names the base does not declare.
func (p *Plan) additiveInfos() []*nameInfo {
	var adds []*nameInfo
	for _, key := range p.infoOrder {
		info := p.infos[key]
		if info.distinctBodies() != 1 || len(info.versions) == len(p.loaded) {
			continue
		}
		if info.declaredIn(p.base) != nil {
			continue
		}
		adds = append(adds, info)
	}
	return adds
}

// writeAtomic writes content via a temp file and rename in the target dir.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".merge-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// PreviewFiles runs a one-shot preview over a file list.
func PreviewFiles(ctx context.Context, files []string, baseFile string, cfg rules.Config) (*Preview, error) {
	return NewPlan(files, baseFile).Preview(ctx, cfg)
}

// ExecuteMerge previews and executes in one step under a policy; only
// policies that can auto-resolve every conflict succeed this way.
func ExecuteMerge(ctx context.Context, files []string, baseFile, outputPath string, policy rules.Policy, cfg rules.Config) (*Preview, *ExecResult, error) {
	plan := NewPlan(files, baseFile)
	preview, err := plan.Preview(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	result, err := plan.Execute(ctx, outputPath, policy)
	if err != nil {
		return preview, nil, err
	}
	return preview, result, nil
}
