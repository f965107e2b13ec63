//go:build cgo

package graph

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// rsExtractor extracts items and use declarations from Rust source files.
type rsExtractor struct{}

var rustItemKinds = map[string]SymbolKind{
	"function_item": SymbolKindFunction,
	"struct_item":   SymbolKindType,
	"enum_item":     SymbolKindEnum,
	"trait_item":    SymbolKindInterface,
	"type_item":     SymbolKindType,
}

func (e *rsExtractor) Extract(root *tree_sitter.Node, source []byte, filePath string) ([]SymbolNode, []string) {
	var symbols []SymbolNode
	var imports []string

	walkTree(root, func(node *tree_sitter.Node) {
		kind := node.Kind()
		if symKind, ok := rustItemKinds[kind]; ok {
			if parent := node.Parent(); symKind == SymbolKindFunction && parent != nil && parent.Kind() == "declaration_list" {
				symKind = SymbolKindMethod
			}
			if name := fieldText(node, "name", source); name != "" {
				symbols = append(symbols, symbolAt(node, name, symKind, isRustPub(node), filePath))
			}
			return
		}
		if kind == "use_declaration" {
			imports = appendUnique(imports, fieldText(node, "argument", source))
		}
	})
	return symbols, imports
}

// isRustPub checks for a leading visibility_modifier child.
func isRustPub(node *tree_sitter.Node) bool {
	if node.ChildCount() == 0 {
		return false
	}
	first := node.Child(0)
	return first != nil && first.Kind() == "visibility_modifier"
}
