//go:build cgo

package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// pyExtractor extracts module-level definitions and imports from Python.
type pyExtractor struct{}

func (e *pyExtractor) Extract(root *tree_sitter.Node, source []byte, filePath string) ([]SymbolNode, []string) {
	var symbols []SymbolNode
	var imports []string

	walkTree(root, func(node *tree_sitter.Node) {
		switch node.Kind() {
		case "function_definition":
			if isPyTopLevel(node) {
				if name := fieldText(node, "name", source); name != "" {
					symbols = append(symbols, symbolAt(node, name, SymbolKindFunction, isPyExported(name), filePath))
				}
			}
		case "class_definition":
			if isPyTopLevel(node) {
				if name := fieldText(node, "name", source); name != "" {
					symbols = append(symbols, symbolAt(node, name, SymbolKindClass, isPyExported(name), filePath))
				}
			}
		case "import_statement":
			// import a.b, c
			for i := uint(0); i < node.ChildCount(); i++ {
				child := node.Child(i)
				if child != nil && child.Kind() == "dotted_name" {
					imports = appendUnique(imports, child.Utf8Text(source))
				}
			}
		case "import_from_statement":
			imports = appendUnique(imports, fieldText(node, "module_name", source))
		}
	})
	return symbols, imports
}

// isPyTopLevel reports whether node is a module-level definition, possibly
// wrapped in a decorated_definition.
func isPyTopLevel(node *tree_sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	if parent.Kind() == "module" {
		return true
	}
	if parent.Kind() == "decorated_definition" {
		grandparent := parent.Parent()
		return grandparent != nil && grandparent.Kind() == "module"
	}
	return false
}

func isPyExported(name string) bool {
	return !strings.HasPrefix(name, "_")
}
