package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/blueprint/internal/oracle"
)

// Orchestrator rewrites files through a ContentOracle with a fixed-size
// worker pool.
type Orchestrator struct {
	oracle     oracle.ContentOracle
	cfg        Config
	logger     *slog.Logger
	observer   Observer
	onProgress func(ProgressEvent)
	readFile   func(name string) ([]byte, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithObserver receives attempt and result outcomes.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		o.observer = obs
	}
}

// WithProgress registers a progress callback. It is called synchronously
// from worker goroutines and must be safe for concurrent use.
func WithProgress(fn func(ProgressEvent)) Option {
	return func(o *Orchestrator) {
		o.onProgress = fn
	}
}

// WithReadFile replaces os.ReadFile.
func WithReadFile(fn func(name string) ([]byte, error)) Option {
	return func(o *Orchestrator) {
		o.readFile = fn
	}
}

// WithRoot reads files through an os.Root opened at root, so a path that
// resolves outside it, including through a symlink, fails to read.
func WithRoot(root string) Option {
	return WithReadFile(func(name string) ([]byte, error) {
		rel, err := filepath.Rel(root, name)
		if err != nil {
			return nil, err
		}
		r, err := os.OpenRoot(root)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return r.ReadFile(rel)
	})
}

// New creates an Orchestrator. Zero fields in cfg take their defaults.
func New(oc oracle.ContentOracle, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		oracle:   oc,
		cfg:      cfg.withDefaults(),
		logger:   slog.Default(),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Run processes every update and returns one Result per update, in the same
// order as updates regardless of which worker finished first. Workers pull
// from a shared cursor and run each file's attempt loop to completion before
// taking the next. Per-file failures are reported in the results; Run itself
// does not fail.
func (o *Orchestrator) Run(ctx context.Context, updates []Update) []Result {
	results := make([]Result, len(updates))
	if len(updates) == 0 {
		return results
	}

	for _, u := range updates {
		o.emit(ProgressEvent{Path: u.RelativePath, Status: ProgressPending})
	}

	var cursor atomic.Int64
	var g errgroup.Group
	workers := min(o.cfg.Workers, len(updates))
	for range workers {
		g.Go(func() error {
			for {
				i := int(cursor.Add(1) - 1)
				if i >= len(updates) {
					return nil
				}
				results[i] = o.process(ctx, updates[i])
			}
		})
	}
	_ = g.Wait() // workers never return an error

	return results
}

// process runs one file and reports its outcome.
func (o *Orchestrator) process(ctx context.Context, u Update) Result {
	o.emit(ProgressEvent{Path: u.RelativePath, Status: ProgressWorking})

	res := o.rewrite(ctx, u)

	log := o.logger.With("path", u.RelativePath, "status", res.Status, "attempts", res.Attempts)
	switch res.Status {
	case StatusFailed:
		log.Warn("rewrite failed", "err", res.Err)
		o.emit(ProgressEvent{Path: u.RelativePath, Status: ProgressFailed, Attempt: res.Attempts, Message: res.Err.Error()})
	case StatusSkipped:
		log.Info("rewrite skipped", "err", res.Err)
		o.emit(ProgressEvent{Path: u.RelativePath, Status: ProgressComplete, Attempt: res.Attempts, Message: "skipped: " + res.Err.Error()})
	default:
		log.Info("rewrite finished", "changeRatio", res.ChangeRatio, "forcedFallback", res.ForcedFallback)
		o.emit(ProgressEvent{Path: u.RelativePath, Status: ProgressComplete, Attempt: res.Attempts})
	}

	if o.observer != nil {
		o.observer.ObserveResult(res)
	}
	return res
}

func (o *Orchestrator) emit(ev ProgressEvent) {
	if o.onProgress != nil {
		o.onProgress(ev)
	}
}
