package graph

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// SourceIndex is the ground-truth view of the codebase used by the sync
// engine. Reads may run concurrently; UpdateFile must only be called by a
// single writer.
type SourceIndex interface {
	DependencyGraph(ctx context.Context) (*DependencyGraph, error)
	UpdateFile(ctx context.Context, path, content string) error
}

// Compile-time assertion: *Index satisfies SourceIndex.
var _ SourceIndex = (*Index)(nil)

// DefaultExcludeDirs are directory names never descended into.
var DefaultExcludeDirs = []string{".git", "node_modules", "vendor", "dist", "build", ".blueprint"}

// DefaultMaxFileBytes bounds the size of files read during Build.
const DefaultMaxFileBytes = 1 << 20

// BuildOptions controls a full index build.
type BuildOptions struct {
	// ExcludeDirs are directory base names to skip, in addition to
	// DefaultExcludeDirs.
	ExcludeDirs []string
	// ExcludeGlobs are doublestar patterns matched against repo-relative
	// slash paths; a matching directory is skipped entirely.
	ExcludeGlobs []string
	// Languages restricts indexing; empty means every detected language.
	Languages []Language
	// MaxFileBytes skips larger files. Zero means DefaultMaxFileBytes.
	MaxFileBytes int64
}

// Index implements SourceIndex on top of a Store and a Parser.
type Index struct {
	root   string
	store  Store
	parser Parser
	logger *slog.Logger

	mu       sync.Mutex // serializes Build, Load and UpdateFile
	resolver *Resolver
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) IndexOption {
	return func(ix *Index) { ix.logger = l }
}

// NewIndex creates an Index rooted at root. Call Build for a fresh store or
// Load for a store that already holds an index.
func NewIndex(root string, store Store, parser Parser, opts ...IndexOption) *Index {
	ix := &Index{
		root:     root,
		store:    store,
		parser:   parser,
		logger:   slog.Default(),
		resolver: NewResolver(root, nil),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Root returns the workspace root the index was built from.
func (ix *Index) Root() string { return ix.root }

// Store returns the backing store.
func (ix *Index) Store() Store { return ix.store }

// scannedFile is a file read during Build, before it is stored.
type scannedFile struct {
	rel    string
	lang   Language
	source []byte
}

// Build walks the root and populates the store. The store is expected to be
// empty.
func (ix *Index) Build(ctx context.Context, opts BuildOptions) (*GraphStats, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("index: init schema: %w", err)
	}

	scanned, err := ix.scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	known := make([]string, 0, len(scanned))
	for _, f := range scanned {
		known = append(known, f.rel)
	}
	ix.resolver = NewResolver(ix.root, known)

	// Files first: IMPORTS edges need both endpoints present.
	type analyzed struct {
		file    FileNode
		symbols []SymbolNode
	}
	results := make([]analyzed, 0, len(scanned))
	for _, f := range scanned {
		node, symbols := ix.analyze(ctx, f.rel, f.source, f.lang)
		if err := ix.store.AddFile(ctx, node); err != nil {
			return nil, fmt.Errorf("index: add file %s: %w", f.rel, err)
		}
		results = append(results, analyzed{file: node, symbols: symbols})
	}

	for _, r := range results {
		if err := ix.addRelations(ctx, r.file, r.symbols); err != nil {
			return nil, err
		}
	}

	stats, err := ix.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: stats: %w", err)
	}
	ix.logger.Info("index built", "root", ix.root, "files", stats.FileCount, "edges", stats.EdgeCount)
	return stats, nil
}

// Load prepares the resolver from a store that already holds an index.
func (ix *Index) Load(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	files, err := ix.store.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("index: list files: %w", err)
	}
	known := make([]string, 0, len(files))
	for _, f := range files {
		known = append(known, f.Path)
	}
	ix.resolver = NewResolver(ix.root, known)
	return nil
}

func (ix *Index) scan(ctx context.Context, opts BuildOptions) ([]scannedFile, error) {
	excludeDirs := make(map[string]bool)
	for _, d := range DefaultExcludeDirs {
		excludeDirs[d] = true
	}
	for _, d := range opts.ExcludeDirs {
		excludeDirs[d] = true
	}
	allowed := make(map[Language]bool, len(opts.Languages))
	for _, l := range opts.Languages {
		allowed[l] = true
	}
	maxBytes := opts.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	var scanned []scannedFile
	walkErr := filepath.WalkDir(ix.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(ix.root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if excludeDirs[d.Name()] || matchesAny(opts.ExcludeGlobs, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if matchesAny(opts.ExcludeGlobs, rel) {
			return nil
		}

		lang, ok := DetectLanguage(rel)
		if !ok || (len(allowed) > 0 && !allowed[lang]) {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxBytes {
			return nil
		}
		source, err := os.ReadFile(p)
		if err != nil {
			return nil // skip unreadable files
		}
		scanned = append(scanned, scannedFile{rel: rel, lang: lang, source: source})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("index: walk: %w", walkErr)
	}
	return scanned, nil
}

func matchesAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// analyze turns file content into a FileNode plus its symbols. Parse
// failures degrade to an import-less node.
func (ix *Index) analyze(ctx context.Context, rel string, source []byte, lang Language) (FileNode, []SymbolNode) {
	node := FileNode{Path: rel, Language: lang, LOC: countLOC(source)}
	switch {
	case lang.Parsed() && ix.parser != nil:
		result, err := ix.parser.Parse(ctx, rel, source, lang)
		if err != nil {
			ix.logger.Debug("parse failed, indexing without imports", "path", rel, "err", err)
			return node, nil
		}
		result.File.Path = rel
		return result.File, result.Symbols
	case lang == LangMarkdown:
		node.Label = markdownTitle(source)
	case lang == LangJSON:
		node.Label = jsonName(source)
	}
	return node, nil
}

// addRelations stores the symbols of file and its resolved imports.
func (ix *Index) addRelations(ctx context.Context, file FileNode, symbols []SymbolNode) error {
	for _, sym := range symbols {
		if err := ix.store.AddSymbol(ctx, sym); err != nil {
			return fmt.Errorf("index: add symbol %s: %w", sym.Name, err)
		}
		edge := Edge{SourceID: file.Path, TargetID: symbolKey(file.Path, sym.Name), Kind: EdgeKindDefines}
		if err := ix.store.AddEdge(ctx, edge); err != nil {
			return fmt.Errorf("index: add edge %s->%s: %w", edge.SourceID, edge.TargetID, err)
		}
	}
	for _, target := range ix.resolver.ResolveAll(file.Imports, file.Path, file.Language) {
		edge := Edge{SourceID: file.Path, TargetID: target, Kind: EdgeKindImports}
		if err := ix.store.AddEdge(ctx, edge); err != nil {
			return fmt.Errorf("index: add edge %s->%s: %w", edge.SourceID, edge.TargetID, err)
		}
	}
	return nil
}

// DependencyGraph returns every indexed file with its resolved imports.
func (ix *Index) DependencyGraph(ctx context.Context) (*DependencyGraph, error) {
	files, err := ix.store.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: list files: %w", err)
	}
	out := &DependencyGraph{Files: make([]CanonicalFile, 0, len(files))}
	for _, f := range files {
		symbols, err := ix.store.FileSymbols(ctx, f.Path)
		if err != nil {
			return nil, fmt.Errorf("index: symbols for %s: %w", f.Path, err)
		}
		cf := CanonicalFile{
			FullPath: f.Path,
			Label:    f.Label,
			Language: f.Language,
			Imports:  f.Imports,
		}
		for _, s := range symbols {
			cf.Symbols = append(cf.Symbols, s.Name)
		}
		out.Files = append(out.Files, cf)
	}

	edges, err := ix.store.GetAllEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: edges: %w", err)
	}
	for _, e := range edges {
		if e.Kind == EdgeKindImports {
			out.Edges = append(out.Edges, DependencyEdge{Source: e.SourceID, Target: e.TargetID})
		}
	}
	sort.Slice(out.Edges, func(i, j int) bool {
		if out.Edges[i].Source != out.Edges[j].Source {
			return out.Edges[i].Source < out.Edges[j].Source
		}
		return out.Edges[i].Target < out.Edges[j].Target
	})
	return out, nil
}

// UpdateFile re-indexes path with new content. Incoming imports from other
// files are kept, and files whose imports now resolve to a newly created
// path gain the edge. Files of unindexed types are ignored.
func (ix *Index) UpdateFile(ctx context.Context, path, content string) error {
	lang, ok := DetectLanguage(path)
	if !ok {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	existing, err := ix.store.GetFile(ctx, path)
	if err != nil {
		return fmt.Errorf("index: get file %s: %w", path, err)
	}

	var importers []string
	if existing != nil {
		chains, err := ix.store.GetDependencies(ctx, path, DirectionUpstream, 1)
		if err != nil {
			return fmt.Errorf("index: importers of %s: %w", path, err)
		}
		for _, c := range chains {
			importers = append(importers, c.Nodes[len(c.Nodes)-1])
		}
		if err := ix.store.RemoveFile(ctx, path); err != nil {
			return fmt.Errorf("index: remove %s: %w", path, err)
		}
	} else {
		ix.resolver.AddFile(path)
		importers, err = ix.filesImporting(ctx, path)
		if err != nil {
			return err
		}
	}

	node, symbols := ix.analyze(ctx, path, []byte(content), lang)
	if err := ix.store.AddFile(ctx, node); err != nil {
		return fmt.Errorf("index: add file %s: %w", path, err)
	}
	if err := ix.addRelations(ctx, node, symbols); err != nil {
		return err
	}
	for _, src := range importers {
		edge := Edge{SourceID: src, TargetID: path, Kind: EdgeKindImports}
		if err := ix.store.AddEdge(ctx, edge); err != nil {
			return fmt.Errorf("index: add edge %s->%s: %w", src, path, err)
		}
	}
	ix.logger.Debug("index updated", "path", path, "created", existing == nil, "importers", len(importers))
	return nil
}

// filesImporting lists indexed files whose raw imports resolve to path.
func (ix *Index) filesImporting(ctx context.Context, path string) ([]string, error) {
	files, err := ix.store.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: list files: %w", err)
	}
	var out []string
	for _, f := range files {
		for _, target := range ix.resolver.ResolveAll(f.Imports, f.Path, f.Language) {
			if target == path {
				out = append(out, f.Path)
				break
			}
		}
	}
	return out, nil
}

// markdownTitle returns the first top-level heading, or "".
func markdownTitle(source []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(source))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// jsonName returns the top-level "name" string of a JSON object, or "".
func jsonName(source []byte) string {
	var doc struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(source, &doc); err != nil {
		return ""
	}
	return doc.Name
}
