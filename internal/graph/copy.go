package graph

import (
	"context"
	"fmt"
)

// CopyStore replays every file, symbol and edge from src into dst. It is
// used to persist an in-memory build into a file-backed store. dst should
// be empty.
func CopyStore(ctx context.Context, dst, src Store) error {
	if err := dst.InitSchema(ctx); err != nil {
		return fmt.Errorf("copy: init schema: %w", err)
	}

	files, err := src.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("copy: list files: %w", err)
	}
	for _, f := range files {
		if err := dst.AddFile(ctx, f); err != nil {
			return fmt.Errorf("copy: add file %s: %w", f.Path, err)
		}
	}
	for _, f := range files {
		symbols, err := src.FileSymbols(ctx, f.Path)
		if err != nil {
			return fmt.Errorf("copy: symbols for %s: %w", f.Path, err)
		}
		for _, sym := range symbols {
			if err := dst.AddSymbol(ctx, sym); err != nil {
				return fmt.Errorf("copy: add symbol %s: %w", sym.Name, err)
			}
		}
	}

	edges, err := src.GetAllEdges(ctx)
	if err != nil {
		return fmt.Errorf("copy: edges: %w", err)
	}
	for _, e := range edges {
		if err := dst.AddEdge(ctx, e); err != nil {
			return fmt.Errorf("copy: add edge %s->%s: %w", e.SourceID, e.TargetID, err)
		}
	}
	return nil
}
