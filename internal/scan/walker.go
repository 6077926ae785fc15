// Package scan walks a workspace, fingerprints every supported source
// file and persists the results as a scan that the grouping, comparison
// and merge operations work from.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"hypermatrix/internal/errors"
	"hypermatrix/internal/fingerprint"
	"hypermatrix/internal/lang"
	"hypermatrix/internal/logging"
	"hypermatrix/internal/rules"
)

// Walker collects fingerprint inputs from a workspace tree.
type Walker struct {
	root           string
	maxFileSize    int64
	ignorePatterns []string
	followSymlinks bool
	logger         *logging.Logger
}

// NewWalker creates a walker rooted at root. Ignore patterns match the
// way rules globs do: against the relative path, the basename and any
// path segment.
func NewWalker(root string, maxFileSize int64, ignorePatterns []string, followSymlinks bool, logger *logging.Logger) *Walker {
	return &Walker{
		root:           root,
		maxFileSize:    maxFileSize,
		ignorePatterns: ignorePatterns,
		followSymlinks: followSymlinks,
		logger:         logger.WithComponent("walker"),
	}
}

// Walk returns one fingerprint input per supported source file under the
// root. Paths are relative to the root with forward slashes. Unreadable
// files are logged and skipped, never fatal.
func (w *Walker) Walk(ctx context.Context) ([]fingerprint.Input, error) {
	var inputs []fingerprint.Input

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping unreadable entry", map[string]interface{}{
				"path": path, "error": err.Error(),
			})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Wrap(errors.Cancelled, "scan cancelled", ctxErr)
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if w.ignored(rel) || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !w.followSymlinks {
			return nil
		}
		if w.ignored(rel) {
			return nil
		}
		if _, ok := lang.FromPath(rel); !ok {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			w.logger.Warn("skipping unstatable file", map[string]interface{}{
				"path": rel, "error": infoErr.Error(),
			})
			return nil
		}
		if w.maxFileSize > 0 && info.Size() > w.maxFileSize {
			w.logger.Debug("skipping oversized file", map[string]interface{}{
				"path": rel, "size": info.Size(),
			})
			return nil
		}

		source, readErr := os.ReadFile(path)
		if readErr != nil {
			w.logger.Warn("skipping unreadable file", map[string]interface{}{
				"path": rel, "error": readErr.Error(),
			})
			return nil
		}

		inputs = append(inputs, fingerprint.Input{Path: rel, Source: source, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inputs, nil
}

func (w *Walker) ignored(rel string) bool {
	return rules.MatchAny(rel, w.ignorePatterns)
}
