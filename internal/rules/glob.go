package rules

import (
	"path"
	"path/filepath"
	"strings"
)

// MatchAny reports whether a filepath matches any of the glob patterns.
//
// Matching is documented and deterministic: a pattern matches when it
// matches the slash-normalized full path, the basename, or any single
// path segment (so "tmp/*" catches "a/tmp/b.py" and "*_old*" catches
// "utils_old.py" anywhere in the tree). Invalid patterns never match.
func MatchAny(filePath string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	slashed := filepath.ToSlash(filePath)
	base := path.Base(slashed)
	segments := strings.Split(slashed, "/")

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if pattern == "" {
			continue
		}

		if ok, err := path.Match(pattern, slashed); err == nil && ok {
			return true
		}
		if ok, err := path.Match(pattern, base); err == nil && ok {
			return true
		}

		// "dir/*" style patterns also match when dir is any ancestor.
		if strings.HasSuffix(pattern, "/*") && len(segments) > 1 {
			dir := strings.TrimSuffix(pattern, "/*")
			for _, seg := range segments[:len(segments)-1] {
				if ok, err := path.Match(dir, seg); err == nil && ok {
					return true
				}
			}
		}
	}

	return false
}
