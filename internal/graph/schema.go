package graph

// --- Enums ---

// SymbolKind classifies top-level symbols recorded for an indexed file.
type SymbolKind string

const (
	SymbolKindFunction  SymbolKind = "function"
	SymbolKindClass     SymbolKind = "class"
	SymbolKindType      SymbolKind = "type"
	SymbolKindEnum      SymbolKind = "enum"
	SymbolKindInterface SymbolKind = "interface"
	SymbolKindMethod    SymbolKind = "method"
)

// EdgeKind classifies relationships stored in the index.
type EdgeKind string

const (
	EdgeKindDefines EdgeKind = "DEFINES"
	EdgeKindImports EdgeKind = "IMPORTS"
)

// Language identifies how a file is handled by the indexer.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangMarkdown   Language = "markdown"
	LangJSON       Language = "json"
	LangText       Language = "text"
)

// Parsed reports whether files of this language go through tree-sitter.
// Document languages are indexed as plain files with no imports.
func (l Language) Parsed() bool {
	switch l {
	case LangGo, LangTypeScript, LangJavaScript, LangPython, LangRust:
		return true
	}
	return false
}

// --- Store models ---

// FileNode is a file row in the index store.
type FileNode struct {
	Path     string   `json:"path"`
	Language Language `json:"language"`
	LOC      int      `json:"loc"`
	Label    string   `json:"label,omitempty"`
	Imports  []string `json:"imports,omitempty"` // raw import specifiers
}

// SymbolNode is a named top-level symbol defined by a file.
type SymbolNode struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Exported  bool       `json:"exported"`
	FilePath  string     `json:"filePath"`
	StartLine int        `json:"startLine"`
	EndLine   int        `json:"endLine"`
}

// Edge is a stored relationship. IMPORTS edges always connect two indexed
// files; unresolved specifiers stay in FileNode.Imports.
type Edge struct {
	SourceID string   `json:"sourceId"`
	TargetID string   `json:"targetId"`
	Kind     EdgeKind `json:"kind"`
}

// GraphStats summarizes the index.
type GraphStats struct {
	FileCount   int `json:"fileCount"`
	SymbolCount int `json:"symbolCount"`
	EdgeCount   int `json:"edgeCount"`
}

// DependencyChain is an ordered sequence of file paths forming an import path.
type DependencyChain struct {
	Nodes []string `json:"nodes"`
	Depth int      `json:"depth"`
}

// --- Canonical graph (read model for the sync engine) ---

// CanonicalFile is the read-only view of an indexed file.
type CanonicalFile struct {
	FullPath string   `json:"fullPath"`
	Label    string   `json:"label,omitempty"`
	Language Language `json:"language"`
	Imports  []string `json:"imports,omitempty"`
	Symbols  []string `json:"symbols,omitempty"`
}

// DependencyEdge is a resolved import between two indexed files.
type DependencyEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// DependencyGraph is the ground-truth snapshot returned by a SourceIndex.
type DependencyGraph struct {
	Files []CanonicalFile  `json:"nodes"`
	Edges []DependencyEdge `json:"edges"`
}
