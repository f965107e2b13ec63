package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dusk-indust/blueprint/internal/graph"
	"github.com/dusk-indust/blueprint/internal/orchestrator"
)

// Written records the persistence outcome of one result.
type Written struct {
	Result orchestrator.Result
	// OK is true when the file bytes were written.
	OK  bool
	Err error
}

// Gateway is the single writer for workspace files and the source index.
// Persist calls are serialized; results are written one at a time in the
// order given. Every write goes through an os.Root, so a symlink cannot
// carry it outside the workspace.
type Gateway struct {
	mu     sync.Mutex
	root   string
	index  graph.SourceIndex
	logger *slog.Logger

	writeFile func(r *os.Root, name string, data []byte, perm os.FileMode) error
}

// NewGateway returns a Gateway writing under root that updates index after
// each write. A nil logger uses slog.Default().
func NewGateway(root string, index graph.SourceIndex, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		root:      root,
		index:     index,
		logger:    logger,
		writeFile: (*os.Root).WriteFile,
	}
}

// Persist writes every writable result. A failed write is recorded and the
// next file is still processed. Index update failures become warnings; the
// file still counts as written.
func (g *Gateway) Persist(ctx context.Context, results []orchestrator.Result) ([]Written, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Written, len(results))
	var warnings []string
	root, rootErr := os.OpenRoot(g.root)
	if rootErr == nil {
		defer root.Close()
	}
	for i, res := range results {
		out[i].Result = res
		if !res.Status.Writable() {
			continue
		}
		u := res.Update
		err := rootErr
		if err == nil {
			err = g.write(root, u.RelativePath, res.Content)
		}
		if err != nil {
			out[i].Err = err
			warnings = append(warnings, fmt.Sprintf("Failed to write %s: %v.", u.RelativePath, err))
			g.logger.Error("write failed", "path", u.RelativePath, "err", err)
			continue
		}
		out[i].OK = true
		g.logger.Info("file written", "path", u.RelativePath, "bytes", len(res.Content), "fallback", res.ForcedFallback)

		if g.index == nil {
			continue
		}
		if err := g.index.UpdateFile(ctx, u.RelativePath, res.Content); err != nil {
			warnings = append(warnings, fmt.Sprintf("Wrote %s but could not update the index: %v.", u.RelativePath, err))
			g.logger.Warn("index update failed", "path", u.RelativePath, "err", err)
		}
	}
	return out, warnings
}

func (g *Gateway) write(root *os.Root, rel, content string) error {
	name := filepath.FromSlash(rel)
	if dir := filepath.Dir(name); dir != "." {
		if err := root.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create parent directory: %w", err)
		}
	}
	mode := os.FileMode(0o644)
	if info, err := root.Stat(name); err == nil {
		mode = info.Mode().Perm()
	}
	return g.writeFile(root, name, []byte(content), mode)
}
