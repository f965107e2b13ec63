package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/blueprint/internal/blueprint"
	"github.com/dusk-indust/blueprint/internal/graph"
	"github.com/dusk-indust/blueprint/internal/orchestrator"
)

// Rewriter runs the rewrite stage. *orchestrator.Orchestrator implements it.
type Rewriter interface {
	Run(ctx context.Context, updates []orchestrator.Update) []orchestrator.Result
}

// CommitObserver is told about every finished commit.
type CommitObserver interface {
	ObserveCommit(resp *Response, elapsed time.Duration)
}

// Config tunes an Engine.
type Config struct {
	// Root is the absolute workspace root files are written under.
	Root            string
	CommitLimit     int
	CoverageWarning float64
}

// Engine commits blueprints against a source index.
type Engine struct {
	index    graph.SourceIndex
	rewriter Rewriter
	gateway  *Gateway
	cfg      Config
	logger   *slog.Logger
	observer CommitObserver
	newID    func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the structured logger.
func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithCommitObserver registers a CommitObserver.
func WithCommitObserver(o CommitObserver) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// NewEngine wires an Engine. cfg.Root must be absolute; other zero fields
// take their defaults.
func NewEngine(index graph.SourceIndex, rewriter Rewriter, cfg Config, opts ...EngineOption) (*Engine, error) {
	if cfg.Root == "" || !filepath.IsAbs(cfg.Root) {
		return nil, fmt.Errorf("reconcile: workspace root %q is not an absolute path", cfg.Root)
	}
	if cfg.CommitLimit <= 0 {
		cfg.CommitLimit = DefaultCommitLimit
	}
	if cfg.CoverageWarning <= 0 {
		cfg.CoverageWarning = DefaultCoverageWarning
	}
	e := &Engine{
		index:    index,
		rewriter: rewriter,
		cfg:      cfg,
		logger:   slog.Default(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.gateway = NewGateway(cfg.Root, index, e.logger)
	return e, nil
}

// Commit normalizes the blueprint, compares it with the index, rewrites
// every instructed file and persists the results. Per-file problems are
// reported in the response; an error means the index could not be read.
func (e *Engine) Commit(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp := newResponse(e.newID(), req.DryRun)
	resp.Warnings = append(resp.Warnings, req.Warnings...)
	log := e.logger.With("commit", resp.CommitID)

	dg, err := e.index.DependencyGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: read dependency graph: %w", err)
	}
	if len(dg.Files) == 0 {
		resp.Summary = "The source index has no files. Run indexing before committing a blueprint."
		resp.Questions = append(resp.Questions, "Should the workspace be indexed now?")
		e.finish(resp, start)
		return resp, nil
	}

	g, warnings := blueprint.Normalize(req.Payload)
	resp.Warnings = append(resp.Warnings, warnings...)

	resolver := NewAliasResolver(dg.Files)
	resolved, warnings := resolver.ResolveGraph(g)
	resp.Warnings = append(resp.Warnings, warnings...)

	desired := MapEdges(g, resolved)
	diff := Compare(desired, dg.Edges)
	if w, ok := diff.CoverageWarning(e.cfg.CoverageWarning); ok {
		resp.Warnings = append(resp.Warnings, w)
	}
	mapped := map[string]bool{}
	for _, r := range resolved {
		if r.Resolved() {
			mapped[r.Path] = true
		}
	}

	languages := make(map[string]graph.Language, len(dg.Files))
	for _, f := range dg.Files {
		languages[f.FullPath] = f.Language
	}
	selection, selected := req.Payload.Selection()
	wl := BuildUpdates(g, resolved, WorkOptions{
		Root:        e.cfg.Root,
		Selection:   selection,
		CommitLimit: e.cfg.CommitLimit,
		Languages:   languages,
	})
	resp.Warnings = append(resp.Warnings, wl.Warnings...)
	log.Info("commit planned", "nodes", len(g.Nodes), "edges", len(g.Edges), "queued", len(wl.Updates),
		"deferred", len(wl.Deferred), "coverage", diff.MappingCoverage)

	var results []orchestrator.Result
	if len(wl.Updates) > 0 {
		results = e.rewriter.Run(ctx, wl.Updates)
	}

	var written []Written
	if req.DryRun {
		written = make([]Written, len(results))
		for i, r := range results {
			written[i] = Written{Result: r, OK: r.Status.Writable()}
		}
	} else {
		var persistWarnings []string
		written, persistWarnings = e.gateway.Persist(ctx, results)
		resp.Warnings = append(resp.Warnings, persistWarnings...)
	}

	var applied, failed, skipped int
	for _, w := range written {
		cf, item := fileReport(w)
		resp.ChangedFiles = append(resp.ChangedFiles, cf)
		resp.Plan = append(resp.Plan, item)
		switch {
		case w.OK:
			applied++
		case cf.Action == ActionFailed:
			failed++
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("Rewrite of %s failed: %s", cf.FilePath, cf.Error))
		default:
			skipped++
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("Left %s unchanged: %s", cf.FilePath, cf.Error))
		}
	}
	resp.Plan = append(resp.Plan, wl.Review...)
	resp.Plan = append(resp.Plan, edgeItems(diff, mapped)...)

	resp.Summary = summarize(selected, len(wl.Updates), applied, failed, skipped, req.DryRun)
	resp.Applied = !req.DryRun && applied > 0
	resp.Comparison = Comparison{
		CurrentEdgeCount:       diff.CurrentCount,
		DesiredEdgeCount:       diff.DesiredCount,
		MappedDesiredEdgeCount: diff.MappedCount,
		AddedEdges:             diff.Added,
		RemovedEdges:           diff.Removed,
		MappingCoverage:        diff.MappingCoverage,
		ActualGoalCount:        countGoals(g, blueprint.KindActual),
		BlueprintGoalCount:     countGoals(g, blueprint.KindDraft),
		AppliedCount:           applied,
		SkippedCount:           skipped + len(wl.Deferred),
	}
	if req.DryRun {
		resp.Comparison.AppliedCount = 0
	}

	e.finish(resp, start)
	log.Info("commit finished", "summary", resp.Summary, "applied", applied, "failed", failed, "skipped", skipped,
		"elapsed", time.Since(start))
	return resp, nil
}

func (e *Engine) finish(resp *Response, start time.Time) {
	if e.observer != nil {
		e.observer.ObserveCommit(resp, time.Since(start))
	}
}

func countGoals(g *blueprint.Graph, kind blueprint.NodeKind) int {
	n := 0
	for _, node := range g.InstructedNodes() {
		if node.Kind == kind {
			n++
		}
	}
	return n
}
