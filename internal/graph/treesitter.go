//go:build cgo

package graph

import (
	"context"
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// extractor pulls top-level symbols and raw import specifiers from an AST.
type extractor interface {
	Extract(root *tree_sitter.Node, source []byte, filePath string) ([]SymbolNode, []string)
}

// TreeSitterParser implements Parser using tree-sitter grammars.
// A new tree-sitter parser is created per Parse call, so concurrent Parse
// calls are safe.
type TreeSitterParser struct {
	languages  map[Language]*tree_sitter.Language
	tsx        *tree_sitter.Language
	extractors map[Language]extractor
}

// NewTreeSitterParser creates a TreeSitterParser with Go, TypeScript,
// JavaScript, Python and Rust grammars registered. JavaScript is parsed
// with the TypeScript grammar, which accepts plain JS.
func NewTreeSitterParser() *TreeSitterParser {
	typescript := tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	return &TreeSitterParser{
		languages: map[Language]*tree_sitter.Language{
			LangGo:         tree_sitter.NewLanguage(tree_sitter_go.Language()),
			LangTypeScript: typescript,
			LangJavaScript: typescript,
			LangPython:     tree_sitter.NewLanguage(tree_sitter_python.Language()),
			LangRust:       tree_sitter.NewLanguage(tree_sitter_rust.Language()),
		},
		tsx: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
		extractors: map[Language]extractor{
			LangGo:         &goExtractor{},
			LangTypeScript: &tsExtractor{},
			LangJavaScript: &tsExtractor{},
			LangPython:     &pyExtractor{},
			LangRust:       &rsExtractor{},
		},
	}
}

// Parse extracts symbols and imports from a single source file.
func (p *TreeSitterParser) Parse(_ context.Context, path string, source []byte, lang Language) (*ParseResult, error) {
	tsLang, ok := p.languages[lang]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	if strings.HasSuffix(path, ".tsx") || strings.HasSuffix(path, ".jsx") {
		tsLang = p.tsx
	}

	ext, ok := p.extractors[lang]
	if !ok {
		return nil, fmt.Errorf("no extractor for language: %s", lang)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(tsLang); err != nil {
		return nil, fmt.Errorf("set language %s: %w", lang, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned nil tree for %s", path)
	}
	defer tree.Close()

	symbols, imports := ext.Extract(tree.RootNode(), source, path)

	return &ParseResult{
		File: FileNode{
			Path:     path,
			Language: lang,
			LOC:      countLOC(source),
			Imports:  imports,
		},
		Symbols: symbols,
		Imports: imports,
	}, nil
}

// SupportedLanguages returns the languages this parser can handle.
func (p *TreeSitterParser) SupportedLanguages() []Language {
	langs := make([]Language, 0, len(p.languages))
	for l := range p.languages {
		langs = append(langs, l)
	}
	return langs
}

// Close is a no-op because parsers are created per Parse call.
func (p *TreeSitterParser) Close() error {
	return nil
}

// symbolAt builds a SymbolNode spanning node.
func symbolAt(node *tree_sitter.Node, name string, kind SymbolKind, exported bool, filePath string) SymbolNode {
	return SymbolNode{
		Name:      name,
		Kind:      kind,
		Exported:  exported,
		FilePath:  filePath,
		StartLine: int(node.StartPosition().Row) + 1,
		EndLine:   int(node.EndPosition().Row) + 1,
	}
}

// walkTree visits every node depth-first with a shared cursor.
func walkTree(root *tree_sitter.Node, visit func(node *tree_sitter.Node)) {
	cursor := root.Walk()
	defer cursor.Close()

	var walk func()
	walk = func() {
		visit(cursor.Node())
		if cursor.GotoFirstChild() {
			walk()
			for cursor.GotoNextSibling() {
				walk()
			}
			cursor.GotoParent()
		}
	}
	walk()
}
