// Package lang provides multi-language source parsing via tree-sitter:
// declaration and import extraction plus a branch-count complexity proxy.
package lang

import (
	"path/filepath"
	"strings"
)

// Language represents a supported programming language.
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
)

// FromExtension returns the language for a file extension (with leading dot).
func FromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".go":
		return LangGo, true
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript, true
	case ".ts", ".mts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py", ".pyw":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".java":
		return LangJava, true
	case ".kt", ".kts":
		return LangKotlin, true
	default:
		return "", false
	}
}

// FromPath returns the language for a file path.
func FromPath(path string) (Language, bool) {
	return FromExtension(filepath.Ext(path))
}

// DeclKind distinguishes function and class declarations.
type DeclKind string

const (
	// KindFunction covers functions and methods
	KindFunction DeclKind = "function"
	// KindClass covers classes, structs, interfaces and type declarations
	KindClass DeclKind = "class"
)

// Declaration is a named top-level declaration extracted from source.
type Declaration struct {
	Name      string   `json:"name"`
	Kind      DeclKind `json:"kind"`
	Bases     []string `json:"bases,omitempty"` // Base classes / extended types
	StartByte int      `json:"startByte"`
	EndByte   int      `json:"endByte"`
	StartLine int      `json:"startLine"` // 1-indexed
	EndLine   int      `json:"endLine"`   // 1-indexed
	Branches  int      `json:"branches"`  // Decision-point count inside the body
}

// Body returns the declaration's source slice.
func (d Declaration) Body(source []byte) []byte {
	if d.StartByte < 0 || d.EndByte > len(source) || d.StartByte > d.EndByte {
		return nil
	}
	return source[d.StartByte:d.EndByte]
}

// FileStructure is the parse result for one file.
type FileStructure struct {
	Language     Language      `json:"language"`
	Declarations []Declaration `json:"declarations"`
	Imports      []string      `json:"imports"`
}

// Functions returns the function declarations in order of appearance.
func (fs *FileStructure) Functions() []Declaration {
	return fs.byKind(KindFunction)
}

// Classes returns the class declarations in order of appearance.
func (fs *FileStructure) Classes() []Declaration {
	return fs.byKind(KindClass)
}

func (fs *FileStructure) byKind(kind DeclKind) []Declaration {
	var out []Declaration
	for _, d := range fs.Declarations {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
