// Package merge plans and executes multi-file consolidations: it computes
// the union of declared functions and classes across the input files,
// detects name collisions between non-identical bodies, renders a preview,
// and applies a conflict-resolution policy to produce a single output file.
//
// A plan moves through Draft → Previewed → (Resolved) → Executed; no
// transition skips Previewed, so an execute is always backed by the
// conflict analysis the caller had a chance to inspect.
package merge

import (
	"context"
	"os"
	"time"

	"hypermatrix/internal/errors"
	"hypermatrix/internal/fingerprint"
	"hypermatrix/internal/lang"
	"hypermatrix/internal/master"
	"hypermatrix/internal/rules"
)

// DefaultPreviewMaxLines caps the preview code length.
const DefaultPreviewMaxLines = 200

// State is the plan lifecycle state.
type State string

const (
	StateDraft     State = "draft"
	StatePreviewed State = "previewed"
	StateResolved  State = "resolved"
	StateExecuted  State = "executed"
)

// Conflict is a name declared differently across merge-candidate files.
type Conflict struct {
	Name        string        `json:"name"`
	Type        lang.DeclKind `json:"type"`
	Versions    []string      `json:"versions"`    // Filepaths declaring it differently
	Differences []string      `json:"differences"` // Human-readable diff hints
}

// Stats summarizes the merged output.
type Stats struct {
	TotalFunctions int `json:"totalFunctions"`
	TotalClasses   int `json:"totalClasses"`
}

// Preview is the ephemeral result of conflict analysis over the input files.
type Preview struct {
	BaseFile        string            `json:"baseFile"`
	CommonFunctions []string          `json:"commonFunctions"`
	CommonClasses   []string          `json:"commonClasses"`
	UniqueFunctions map[string]string `json:"uniqueFunctions"` // name → source file
	UniqueClasses   map[string]string `json:"uniqueClasses"`
	Conflicts       []Conflict        `json:"conflicts"`
	Stats           Stats             `json:"stats"`
	PreviewCode     string            `json:"previewCode"`
	Truncated       bool              `json:"truncated"`
	ParseErrors     []string          `json:"parseErrors,omitempty"`
}

// ExecResult is the outcome of a merge execute.
type ExecResult struct {
	OutputFile string `json:"outputFile"`
	Stats      Stats  `json:"stats"`
}

// mergeFile is one loaded input file.
type mergeFile struct {
	path      string
	source    []byte
	modTime   time.Time
	structure *lang.FileStructure // nil when the file could not be parsed
}

// Plan is a single merge in progress. Not safe for concurrent use.
type Plan struct {
	files       []string
	base        string
	state       State
	maxLines    int
	loaded      []mergeFile
	preview     *Preview
	resolutions map[string]string // conflict name → chosen version filepath
	infos       map[string]*nameInfo
	infoOrder   []string
}

// NewPlan creates a draft merge plan over the given files. The base file
// is optional; when empty it is chosen at preview time via master
// selection restricted to the input list.
func NewPlan(files []string, baseFile string) *Plan {
	return &Plan{
		files:       append([]string(nil), files...),
		base:        baseFile,
		state:       StateDraft,
		maxLines:    DefaultPreviewMaxLines,
		resolutions: make(map[string]string),
	}
}

// State returns the plan's lifecycle state.
func (p *Plan) State() State {
	return p.state
}

// SetPreviewMaxLines overrides the preview length cap. Values <= 0 keep
// the default. Must be called before Preview.
func (p *Plan) SetPreviewMaxLines(n int) {
	if n > 0 {
		p.maxLines = n
	}
}

// Preview loads and analyzes the input files. It is a pure function of the
// inputs: no source file is mutated and equal inputs yield equal previews.
func (p *Plan) Preview(ctx context.Context, cfg rules.Config) (*Preview, error) {
	if len(p.files) < 2 {
		return nil, errors.Newf(errors.InsufficientFiles, "merge requires at least 2 files, got %d", len(p.files))
	}

	if err := p.load(ctx); err != nil {
		return nil, err
	}

	if p.base == "" {
		base, err := p.selectBase(cfg)
		if err != nil {
			return nil, err
		}
		p.base = base
	} else if !p.isInput(p.base) {
		return nil, errors.Newf(errors.ScopeInvalid, "base file %q is not among the input files", p.base)
	}

	p.preview = p.analyze()
	p.state = StatePreviewed
	return p.preview, nil
}

// Resolve records a per-name conflict resolution. A function and a class
// may conflict under the same name; the resolution applies to every
// conflict carrying it. All conflicts resolved moves the plan to Resolved.
func (p *Plan) Resolve(conflictName, chosenVersion string) error {
	if p.state != StatePreviewed && p.state != StateResolved {
		return errors.New(errors.ScopeInvalid, "plan must be previewed before resolving conflicts")
	}

	matched := false
	for i := range p.preview.Conflicts {
		c := &p.preview.Conflicts[i]
		if c.Name != conflictName {
			continue
		}
		matched = true
		if !containsString(c.Versions, chosenVersion) {
			return errors.Newf(errors.ScopeInvalid, "%q is not a version of conflict %q", chosenVersion, conflictName)
		}
		p.resolutions[conflictKey(c.Type, c.Name)] = chosenVersion
	}
	if !matched {
		return errors.Newf(errors.ScopeInvalid, "no conflict named %q", conflictName)
	}

	if len(p.resolutions) == len(p.preview.Conflicts) {
		p.state = StateResolved
	}
	return nil
}

// load reads and parses every input file once. Unreadable files are fatal;
// unparseable files degrade to a contentless contribution and are reported
// in the preview's ParseErrors.
func (p *Plan) load(ctx context.Context) error {
	if p.loaded != nil {
		return nil
	}

	parser := lang.NewParser()
	seen := make(map[string]bool)
	for _, path := range p.files {
		if seen[path] {
			return errors.Newf(errors.ScopeInvalid, "duplicate input file %q", path)
		}
		seen[path] = true

		source, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(errors.FileNotFound, "cannot read "+path, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return errors.Wrap(errors.FileNotFound, "cannot stat "+path, err)
		}

		mf := mergeFile{path: path, source: source, modTime: info.ModTime()}
		if language, ok := lang.FromPath(path); ok {
			if fs, perr := parser.Parse(ctx, source, language); perr == nil {
				mf.structure = fs
			}
		}
		p.loaded = append(p.loaded, mf)
	}
	return nil
}

// selectBase picks the default base via master selection over the inputs.
func (p *Plan) selectBase(cfg rules.Config) (string, error) {
	records := make([]fingerprint.FileRecord, 0, len(p.loaded))
	computer := fingerprint.NewComputer()
	for _, mf := range p.loaded {
		rec, _, _ := computer.Compute(context.Background(), mf.path, mf.source, mf.modTime)
		records = append(records, *rec)
	}

	proposal, err := master.SelectFromRecords(records, cfg)
	if err != nil {
		return "", err
	}
	return proposal.Filepath, nil
}

func (p *Plan) isInput(path string) bool {
	return containsString(p.files, path)
}

func (p *Plan) fileByPath(path string) *mergeFile {
	for i := range p.loaded {
		if p.loaded[i].path == path {
			return &p.loaded[i]
		}
	}
	return nil
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
