package graph

import (
	"bytes"
	"context"
	"path"
	"strings"
)

// ParseResult holds what the indexer keeps from a single file.
type ParseResult struct {
	File    FileNode     `json:"file"`
	Symbols []SymbolNode `json:"symbols"`
	// Imports are raw specifiers in source order, before resolution.
	Imports []string `json:"imports"`
}

// Parser extracts structural information from source files.
// Implementations: TreeSitterParser (production), fakes in tests.
type Parser interface {
	// Parse extracts symbols and import specifiers from a single file.
	Parse(ctx context.Context, path string, source []byte, lang Language) (*ParseResult, error)

	// SupportedLanguages returns the languages this parser can handle.
	SupportedLanguages() []Language

	// Close releases parser resources.
	Close() error
}

// DetectLanguage maps a file extension to the indexer language. ok is false
// for files the index ignores.
func DetectLanguage(p string) (Language, bool) {
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".go":
		return LangGo, true
	case ".ts", ".tsx", ".mts", ".cts":
		return LangTypeScript, true
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript, true
	case ".py":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".md", ".mdx", ".markdown":
		return LangMarkdown, true
	case ".json":
		return LangJSON, true
	case ".txt", ".rst":
		return LangText, true
	}
	return "", false
}

// countLOC counts newline bytes plus one for a non-empty final line.
func countLOC(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	return bytes.Count(source, []byte{'\n'}) + 1
}

// appendUnique appends s unless it is empty or already present.
func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
