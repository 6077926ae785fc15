//go:build cgo

package lang

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Parser wraps tree-sitter for multi-language parsing.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a new tree-sitter parser.
func NewParser() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// IsAvailable returns whether tree-sitter parsing is available in this build.
func IsAvailable() bool {
	return true
}

// Parse extracts the structural inventory of a source file: named
// declarations with byte ranges and branch counts, and import module names.
func (p *Parser) Parse(ctx context.Context, source []byte, language Language) (*FileStructure, error) {
	tsLang, err := getLanguage(language)
	if err != nil {
		return nil, err
	}

	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	root := tree.RootNode()
	if root == nil || root.HasError() {
		return nil, fmt.Errorf("parse error: syntax tree contains errors")
	}

	fs := &FileStructure{Language: language}

	for _, node := range findNodes(root, functionNodeTypes(language)) {
		name := functionName(node, source, language)
		if name == "" {
			continue
		}
		fs.Declarations = append(fs.Declarations, Declaration{
			Name:      name,
			Kind:      KindFunction,
			StartByte: int(node.StartByte()),
			EndByte:   int(node.EndByte()),
			StartLine: int(node.StartPoint().Row) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
			Branches:  countBranches(node, source, language),
		})
	}

	for _, node := range findNodes(root, classNodeTypes(language)) {
		name := className(node, source, language)
		if name == "" {
			continue
		}
		fs.Declarations = append(fs.Declarations, Declaration{
			Name:      name,
			Kind:      KindClass,
			Bases:     classBases(node, source, language),
			StartByte: int(node.StartByte()),
			EndByte:   int(node.EndByte()),
			StartLine: int(node.StartPoint().Row) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
			Branches:  countBranches(node, source, language),
		})
	}

	fs.Imports = extractImports(root, source, language)

	return fs, nil
}

// getLanguage returns the tree-sitter Language for a given language identifier.
func getLanguage(language Language) (*sitter.Language, error) {
	switch language {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", language)
	}
}

// functionNodeTypes returns node types for function and method declarations.
func functionNodeTypes(language Language) []string {
	switch language {
	case LangGo:
		return []string{"function_declaration", "method_declaration"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"function_declaration", "generator_function_declaration", "method_definition"}
	case LangPython:
		return []string{"function_definition"}
	case LangRust:
		return []string{"function_item"}
	case LangJava:
		return []string{"method_declaration", "constructor_declaration"}
	case LangKotlin:
		return []string{"function_declaration"}
	default:
		return nil
	}
}

// classNodeTypes returns node types for classes/types/interfaces.
func classNodeTypes(language Language) []string {
	switch language {
	case LangGo:
		return []string{"type_declaration"}
	case LangJavaScript:
		return []string{"class_declaration"}
	case LangTypeScript, LangTSX:
		return []string{"class_declaration", "interface_declaration"}
	case LangPython:
		return []string{"class_definition"}
	case LangRust:
		return []string{"struct_item", "enum_item", "trait_item"}
	case LangJava:
		return []string{"class_declaration", "interface_declaration", "enum_declaration"}
	case LangKotlin:
		return []string{"class_declaration", "object_declaration"}
	default:
		return nil
	}
}

// decisionNodeTypes returns the node types that contribute to the branch count.
func decisionNodeTypes(language Language) []string {
	switch language {
	case LangGo:
		return []string{
			"if_statement",
			"for_statement",
			"expression_case",
			"type_case",
			"communication_case",
			"binary_expression",
		}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{
			"if_statement",
			"for_statement",
			"for_in_statement",
			"while_statement",
			"do_statement",
			"switch_case",
			"catch_clause",
			"ternary_expression",
			"binary_expression",
		}
	case LangPython:
		return []string{
			"if_statement",
			"elif_clause",
			"for_statement",
			"while_statement",
			"except_clause",
			"boolean_operator",
			"conditional_expression",
		}
	case LangRust:
		return []string{
			"if_expression",
			"match_arm",
			"while_expression",
			"loop_expression",
			"for_expression",
			"binary_expression",
		}
	case LangJava:
		return []string{
			"if_statement",
			"for_statement",
			"enhanced_for_statement",
			"while_statement",
			"do_statement",
			"switch_block_statement_group",
			"catch_clause",
			"ternary_expression",
			"binary_expression",
		}
	case LangKotlin:
		return []string{
			"if_expression",
			"when_entry",
			"for_statement",
			"while_statement",
			"do_while_statement",
			"catch_block",
			"binary_expression",
			"elvis_expression",
		}
	default:
		return nil
	}
}

// countBranches counts decision points within a declaration subtree.
// binary_expression nodes only count when the operator is && or ||.
func countBranches(node *sitter.Node, source []byte, language Language) int {
	count := 0
	for _, n := range findNodes(node, decisionNodeTypes(language)) {
		if n.Type() == "binary_expression" && !isBooleanOperator(n, source) {
			continue
		}
		count++
	}
	return count
}

// isBooleanOperator checks if a binary expression node is && or ||.
func isBooleanOperator(node *sitter.Node, source []byte) bool {
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child == nil {
			continue
		}
		content := string(source[child.StartByte():child.EndByte()])
		if content == "&&" || content == "||" {
			return true
		}
	}
	return false
}

// functionName extracts the function name from a node.
func functionName(node *sitter.Node, source []byte, language Language) string {
	var nameNode *sitter.Node

	switch language {
	case LangKotlin:
		for i := uint32(0); i < node.ChildCount(); i++ {
			child := node.Child(int(i))
			if child != nil && child.Type() == "simple_identifier" {
				nameNode = child
				break
			}
		}
	default:
		nameNode = node.ChildByFieldName("name")
		if nameNode == nil {
			for i := uint32(0); i < node.ChildCount(); i++ {
				child := node.Child(int(i))
				if child != nil && (child.Type() == "identifier" || child.Type() == "field_identifier" || child.Type() == "property_identifier") {
					nameNode = child
					break
				}
			}
		}
	}

	if nameNode == nil {
		return ""
	}
	return string(source[nameNode.StartByte():nameNode.EndByte()])
}

// className extracts the class/type name from a node.
func className(node *sitter.Node, source []byte, language Language) string {
	var nameNode *sitter.Node

	switch language {
	case LangGo:
		// type_declaration wraps one or more type_spec children
		for i := uint32(0); i < node.ChildCount(); i++ {
			child := node.Child(int(i))
			if child != nil && child.Type() == "type_spec" {
				nameNode = child.ChildByFieldName("name")
				break
			}
		}
	case LangKotlin:
		nameNode = node.ChildByFieldName("name")
		if nameNode == nil {
			for i := uint32(0); i < node.ChildCount(); i++ {
				child := node.Child(int(i))
				if child != nil && (child.Type() == "type_identifier" || child.Type() == "simple_identifier") {
					nameNode = child
					break
				}
			}
		}
	default:
		nameNode = node.ChildByFieldName("name")
	}

	if nameNode == nil {
		return ""
	}
	return string(source[nameNode.StartByte():nameNode.EndByte()])
}

// classBases extracts the base classes / extended types of a class node.
func classBases(node *sitter.Node, source []byte, language Language) []string {
	var bases []string

	appendIdentifiers := func(n *sitter.Node) {
		for i := uint32(0); i < n.ChildCount(); i++ {
			child := n.Child(int(i))
			if child == nil {
				continue
			}
			switch child.Type() {
			case "identifier", "type_identifier", "attribute", "scoped_type_identifier", "generic_type":
				bases = append(bases, string(source[child.StartByte():child.EndByte()]))
			}
		}
	}

	switch language {
	case LangPython:
		if sup := node.ChildByFieldName("superclasses"); sup != nil {
			appendIdentifiers(sup)
		}
	case LangJavaScript, LangTypeScript, LangTSX:
		for i := uint32(0); i < node.ChildCount(); i++ {
			child := node.Child(int(i))
			if child != nil && child.Type() == "class_heritage" {
				appendIdentifiers(child)
			}
		}
	case LangJava:
		if sup := node.ChildByFieldName("superclass"); sup != nil {
			appendIdentifiers(sup)
		}
		if ifaces := node.ChildByFieldName("interfaces"); ifaces != nil {
			for i := uint32(0); i < ifaces.ChildCount(); i++ {
				child := ifaces.Child(int(i))
				if child != nil && child.Type() == "type_list" {
					appendIdentifiers(child)
				}
			}
		}
	}

	return bases
}

// extractImports collects imported module names.
func extractImports(root *sitter.Node, source []byte, language Language) []string {
	var imports []string

	text := func(n *sitter.Node) string {
		return strings.Trim(string(source[n.StartByte():n.EndByte()]), "\"'`")
	}

	switch language {
	case LangGo:
		for _, n := range findNodes(root, []string{"import_spec"}) {
			if path := n.ChildByFieldName("path"); path != nil {
				imports = append(imports, text(path))
			} else {
				imports = append(imports, text(n))
			}
		}
	case LangPython:
		for _, n := range findNodes(root, []string{"import_statement"}) {
			for i := uint32(0); i < n.ChildCount(); i++ {
				child := n.Child(int(i))
				if child != nil && (child.Type() == "dotted_name" || child.Type() == "aliased_import") {
					if child.Type() == "aliased_import" {
						if name := child.ChildByFieldName("name"); name != nil {
							imports = append(imports, text(name))
							continue
						}
					}
					imports = append(imports, text(child))
				}
			}
		}
		for _, n := range findNodes(root, []string{"import_from_statement"}) {
			if mod := n.ChildByFieldName("module_name"); mod != nil {
				imports = append(imports, text(mod))
			}
		}
	case LangJavaScript, LangTypeScript, LangTSX:
		for _, n := range findNodes(root, []string{"import_statement"}) {
			if src := n.ChildByFieldName("source"); src != nil {
				imports = append(imports, text(src))
			}
		}
	case LangRust:
		for _, n := range findNodes(root, []string{"use_declaration"}) {
			if arg := n.ChildByFieldName("argument"); arg != nil {
				imports = append(imports, text(arg))
			}
		}
	case LangJava:
		for _, n := range findNodes(root, []string{"import_declaration"}) {
			raw := strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(text(n), "import")), ";")
			imports = append(imports, strings.TrimSpace(raw))
		}
	case LangKotlin:
		for _, n := range findNodes(root, []string{"import_header"}) {
			for i := uint32(0); i < n.ChildCount(); i++ {
				child := n.Child(int(i))
				if child != nil && child.Type() == "identifier" {
					imports = append(imports, text(child))
				}
			}
		}
	}

	return imports
}

// findNodes finds all nodes of the given types in the AST, in document order.
func findNodes(root *sitter.Node, types []string) []*sitter.Node {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	var result []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if typeSet[node.Type()] {
			result = append(result, node)
		}
		for i := uint32(0); i < node.ChildCount(); i++ {
			walk(node.Child(int(i)))
		}
	}

	walk(root)
	return result
}
