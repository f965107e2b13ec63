// Package workspace wires the source index, rewrite engine, commit history
// and metrics for one project root. The CLI and the MCP server share it.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dusk-indust/blueprint/internal/config"
	"github.com/dusk-indust/blueprint/internal/graph"
	"github.com/dusk-indust/blueprint/internal/history"
	"github.com/dusk-indust/blueprint/internal/metrics"
	"github.com/dusk-indust/blueprint/internal/oracle"
	"github.com/dusk-indust/blueprint/internal/orchestrator"
	"github.com/dusk-indust/blueprint/internal/reconcile"
)

var (
	// ErrNoOracle is returned by Commit when no content oracle was configured.
	ErrNoOracle = errors.New("workspace: no content oracle configured")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("workspace: closed")
)

// StoreOpener opens the persistent index store at path.
type StoreOpener func(path string) (graph.Store, error)

// Workspace is one project root with its index and commit log.
type Workspace struct {
	root      string
	cfg       *config.ProjectConfig
	logger    *slog.Logger
	oracle    oracle.ContentOracle
	metrics   *metrics.Recorder
	history   *history.Store
	openStore StoreOpener
	parser    graph.Parser

	// commit serializes commits, rebuilds and Close so the index a commit
	// writes to is never swapped out under it. Taken before mu.
	commit sync.Mutex
	mu     sync.Mutex // guards store, index and closed
	store  graph.Store
	index  *graph.Index
	closed bool
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// WithOracle sets the content oracle used by Commit.
func WithOracle(oc oracle.ContentOracle) Option {
	return func(w *Workspace) { w.oracle = oc }
}

// WithMetrics shares a recorder instead of creating one.
func WithMetrics(r *metrics.Recorder) Option {
	return func(w *Workspace) { w.metrics = r }
}

// WithParser replaces the tree-sitter parser. The workspace closes it.
func WithParser(p graph.Parser) Option {
	return func(w *Workspace) { w.parser = p }
}

// WithStoreOpener replaces the KuzuDB file store.
func WithStoreOpener(fn StoreOpener) Option {
	return func(w *Workspace) { w.openStore = fn }
}

// Open prepares the workspace at root and opens its commit log. The index
// is opened lazily.
func Open(root string, cfg *config.ProjectConfig, opts ...Option) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve root: %w", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	w := &Workspace{
		root:      abs,
		cfg:       cfg,
		logger:    slog.Default(),
		openStore: openKuzu,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metrics == nil {
		w.metrics = metrics.NewRecorder()
	}
	if w.parser == nil {
		w.parser = graph.NewTreeSitterParser()
	}

	h, err := history.Open(config.Resolve(abs, cfg.HistoryPath))
	if err != nil {
		w.parser.Close()
		return nil, err
	}
	w.history = h
	return w, nil
}

func openKuzu(path string) (graph.Store, error) {
	return graph.NewKuzuFileStore(path)
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// Config returns the loaded project config.
func (w *Workspace) Config() *config.ProjectConfig { return w.cfg }

// Metrics returns the workspace's metrics recorder.
func (w *Workspace) Metrics() *metrics.Recorder { return w.metrics }

// History returns the commit log.
func (w *Workspace) History() *history.Store { return w.history }

func (w *Workspace) indexPath() string {
	return config.Resolve(w.root, w.cfg.IndexDir)
}

// Index returns the current index, opening the persisted one on first use.
// A workspace that was never indexed gets an empty in-memory index.
func (w *Workspace) Index(ctx context.Context) (*graph.Index, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}
	if w.index != nil {
		return w.index, nil
	}

	path := w.indexPath()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		store := graph.NewMemStore()
		if err := store.InitSchema(ctx); err != nil {
			return nil, fmt.Errorf("workspace: %w", err)
		}
		w.store, w.index = store, w.newIndex(store)
		return w.index, nil
	}

	store, err := w.openStore(path)
	if err != nil {
		return nil, fmt.Errorf("workspace: open index: %w", err)
	}
	ix := w.newIndex(store)
	if err := ix.Load(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("workspace: %w", err)
	}
	w.store, w.index = store, ix
	return ix, nil
}

func (w *Workspace) newIndex(store graph.Store) *graph.Index {
	return graph.NewIndex(w.root, store, w.parser, graph.WithLogger(w.logger))
}

// BuildIndex indexes the workspace in memory, then replaces the persisted
// index with the result.
func (w *Workspace) BuildIndex(ctx context.Context, opts graph.BuildOptions) (*graph.GraphStats, error) {
	w.commit.Lock()
	defer w.commit.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrClosed
	}

	mem := graph.NewMemStore()
	stats, err := w.newIndex(mem).Build(ctx, opts)
	if err != nil {
		mem.Close()
		return nil, err
	}

	if w.store != nil {
		w.store.Close()
		w.store, w.index = nil, nil
	}
	path := w.indexPath()
	if err := os.RemoveAll(path); err != nil {
		mem.Close()
		return nil, fmt.Errorf("workspace: clear index: %w", err)
	}
	dst, err := w.openStore(path)
	if err != nil {
		mem.Close()
		return nil, fmt.Errorf("workspace: open index: %w", err)
	}
	if err := graph.CopyStore(ctx, dst, mem); err != nil {
		mem.Close()
		dst.Close()
		return nil, fmt.Errorf("workspace: persist index: %w", err)
	}
	mem.Close()

	ix := w.newIndex(dst)
	if err := ix.Load(ctx); err != nil {
		dst.Close()
		return nil, fmt.Errorf("workspace: %w", err)
	}
	w.store, w.index = dst, ix
	return stats, nil
}

// Commit runs one blueprint commit against the index and records the
// report. A history failure is reported as a warning, not an error.
func (w *Workspace) Commit(ctx context.Context, req reconcile.Request) (*reconcile.Response, error) {
	if w.oracle == nil {
		return nil, ErrNoOracle
	}
	w.commit.Lock()
	defer w.commit.Unlock()

	ix, err := w.Index(ctx)
	if err != nil {
		return nil, err
	}

	rw := orchestrator.New(w.oracle, w.cfg.Orchestrator(),
		orchestrator.WithLogger(w.logger),
		orchestrator.WithObserver(w.metrics),
		orchestrator.WithRoot(w.root),
	)
	engine, err := reconcile.NewEngine(ix, rw, w.cfg.Engine(w.root),
		reconcile.WithEngineLogger(w.logger),
		reconcile.WithCommitObserver(w.metrics),
	)
	if err != nil {
		return nil, err
	}
	resp, err := engine.Commit(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := w.history.Record(ctx, resp); err != nil {
		w.logger.Warn("commit not recorded", "commit", resp.CommitID, "err", err)
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("Could not record commit history: %v.", err))
	}
	return resp, nil
}

// Close releases the index store and the commit log. Later calls are
// no-ops.
func (w *Workspace) Close() error {
	w.commit.Lock()
	defer w.commit.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	var errs []error
	if w.store != nil {
		errs = append(errs, w.store.Close())
		w.store, w.index = nil, nil
	}
	errs = append(errs, w.history.Close(), w.parser.Close())
	return errors.Join(errs...)
}
