//go:build cgo

package graph

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// goExtractor extracts declarations and imports from Go source files.
type goExtractor struct{}

func (e *goExtractor) Extract(root *tree_sitter.Node, source []byte, filePath string) ([]SymbolNode, []string) {
	var symbols []SymbolNode
	var imports []string

	walkTree(root, func(node *tree_sitter.Node) {
		switch node.Kind() {
		case "function_declaration":
			if name := fieldText(node, "name", source); name != "" {
				symbols = append(symbols, symbolAt(node, name, SymbolKindFunction, isGoExported(name), filePath))
			}
		case "method_declaration":
			if name := fieldText(node, "name", source); name != "" {
				symbols = append(symbols, symbolAt(node, name, SymbolKindMethod, isGoExported(name), filePath))
			}
		case "type_spec":
			if name := fieldText(node, "name", source); name != "" {
				kind := SymbolKindType
				if t := node.ChildByFieldName("type"); t != nil && t.Kind() == "interface_type" {
					kind = SymbolKindInterface
				}
				symbols = append(symbols, symbolAt(node, name, kind, isGoExported(name), filePath))
			}
		case "import_spec":
			imports = appendUnique(imports, e.importPath(node, source))
		}
	})
	return symbols, imports
}

func (e *goExtractor) importPath(node *tree_sitter.Node, source []byte) string {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() == "interpreted_string_literal" {
				pathNode = child
				break
			}
		}
	}
	if pathNode == nil {
		return ""
	}
	return strings.Trim(pathNode.Utf8Text(source), "\"`")
}

// fieldText returns the text of a named field child, or "".
func fieldText(node *tree_sitter.Node, field string, source []byte) string {
	child := node.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Utf8Text(source)
}

func isGoExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
