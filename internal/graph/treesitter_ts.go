//go:build cgo

package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// tsExtractor handles TypeScript and JavaScript, including CommonJS require.
type tsExtractor struct{}

func (e *tsExtractor) Extract(root *tree_sitter.Node, source []byte, filePath string) ([]SymbolNode, []string) {
	var symbols []SymbolNode
	var imports []string

	walkTree(root, func(node *tree_sitter.Node) {
		switch node.Kind() {
		case "function_declaration":
			symbols = e.appendNamed(symbols, node, source, filePath, SymbolKindFunction)
		case "class_declaration":
			symbols = e.appendNamed(symbols, node, source, filePath, SymbolKindClass)
		case "interface_declaration":
			symbols = e.appendNamed(symbols, node, source, filePath, SymbolKindInterface)
		case "type_alias_declaration":
			symbols = e.appendNamed(symbols, node, source, filePath, SymbolKindType)
		case "enum_declaration":
			symbols = e.appendNamed(symbols, node, source, filePath, SymbolKindEnum)
		case "lexical_declaration":
			symbols = append(symbols, e.arrowFunctions(node, source, filePath)...)
		case "import_statement", "export_statement":
			imports = appendUnique(imports, e.moduleSource(node, source))
		case "call_expression":
			imports = appendUnique(imports, e.requireTarget(node, source))
		}
	})
	return symbols, imports
}

func (e *tsExtractor) appendNamed(symbols []SymbolNode, node *tree_sitter.Node, source []byte, filePath string, kind SymbolKind) []SymbolNode {
	name := fieldText(node, "name", source)
	if name == "" {
		return symbols
	}
	return append(symbols, symbolAt(node, name, kind, isTSExported(node), filePath))
}

// arrowFunctions records `const foo = () => {...}` declarations.
func (e *tsExtractor) arrowFunctions(node *tree_sitter.Node, source []byte, filePath string) []SymbolNode {
	var result []SymbolNode
	exported := isTSExported(node)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		value := child.ChildByFieldName("value")
		if value == nil || value.Kind() != "arrow_function" {
			continue
		}
		if name := fieldText(child, "name", source); name != "" {
			result = append(result, symbolAt(child, name, SymbolKindFunction, exported, filePath))
		}
	}
	return result
}

// moduleSource returns the specifier of an import or re-export statement.
func (e *tsExtractor) moduleSource(node *tree_sitter.Node, source []byte) string {
	src := node.ChildByFieldName("source")
	if src == nil {
		return ""
	}
	return trimQuotes(src.Utf8Text(source))
}

// requireTarget returns the argument of require("x"), or "".
func (e *tsExtractor) requireTarget(node *tree_sitter.Node, source []byte) string {
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" || fn.Utf8Text(source) != "require" {
		return ""
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return ""
	}
	for i := uint(0); i < args.ChildCount(); i++ {
		arg := args.Child(i)
		if arg != nil && arg.Kind() == "string" {
			return trimQuotes(arg.Utf8Text(source))
		}
	}
	return ""
}

func trimQuotes(s string) string {
	return strings.Trim(s, "\"'`")
}

// isTSExported reports whether the declaration sits directly in an export.
func isTSExported(node *tree_sitter.Node) bool {
	parent := node.Parent()
	return parent != nil && parent.Kind() == "export_statement"
}
