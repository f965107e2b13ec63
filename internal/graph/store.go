package graph

import (
	"context"
	"io"
)

// Store is the persistence backend behind an Index.
// Implementations: KuzuStore (persistent, cgo), MemStore (in-process).
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddFile(ctx context.Context, node FileNode) error
	AddSymbol(ctx context.Context, node SymbolNode) error
	AddEdge(ctx context.Context, edge Edge) error
	// RemoveFile deletes the file, its symbols and every edge touching it.
	RemoveFile(ctx context.Context, path string) error

	// Read operations.
	GetFile(ctx context.Context, path string) (*FileNode, error)
	ListFiles(ctx context.Context) ([]FileNode, error)
	FileSymbols(ctx context.Context, path string) ([]SymbolNode, error)
	QuerySymbols(ctx context.Context, query string, limit int) ([]SymbolNode, error)
	GetAllEdges(ctx context.Context) ([]Edge, error)

	// Graph traversal over IMPORTS edges.
	GetDependencies(ctx context.Context, path string, direction Direction, maxDepth int) ([]DependencyChain, error)

	Stats(ctx context.Context) (*GraphStats, error)
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // files that import this one
	DirectionDownstream Direction = "downstream" // files this one imports
)
