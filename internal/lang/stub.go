//go:build !cgo

package lang

import (
	"context"
	"errors"
)

// ErrNoCGO is returned when structure extraction is unavailable due to missing CGO.
var ErrNoCGO = errors.New("structure extraction requires CGO (tree-sitter)")

// Parser wraps tree-sitter parsing functionality.
// This is a stub implementation for non-CGO builds.
type Parser struct{}

// NewParser creates a new tree-sitter parser.
// Returns a stub when CGO is disabled.
func NewParser() *Parser {
	return &Parser{}
}

// IsAvailable returns whether tree-sitter parsing is available in this build.
func IsAvailable() bool {
	return false
}

// Parse always fails in non-CGO builds; callers degrade the structure
// signature to empty, exactly as they do for unparseable files.
func (p *Parser) Parse(ctx context.Context, source []byte, language Language) (*FileStructure, error) {
	return nil, ErrNoCGO
}
