package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/blueprint/internal/blueprint"
	"github.com/dusk-indust/blueprint/internal/graph"
	"github.com/dusk-indust/blueprint/internal/orchestrator"
)

// DefaultCommitLimit caps distinct files per commit when no nodes were
// explicitly selected.
const DefaultCommitLimit = 4

// ErrPathEscape rejects targets outside the workspace root.
var ErrPathEscape = errors.New("path escapes the workspace root")

// WorkOptions control work-list construction.
type WorkOptions struct {
	// Root is the absolute workspace root.
	Root string
	// Selection holds the selected node ids; nil means no selection was
	// made.
	Selection map[string]bool
	// CommitLimit caps distinct targets unless Selection is set.
	CommitLimit int
	// Languages maps indexed paths to their language.
	Languages map[string]graph.Language
}

// WorkList is the rewrite queue for one commit.
type WorkList struct {
	Updates []orchestrator.Update
	// Deferred lists targets dropped by the commit limit.
	Deferred []string
	// Review holds manual_review items for instructed drafts.
	Review   []PlanItem
	Warnings []string
}

// BuildUpdates turns instructed nodes into one Update per target file.
// Nodes naming the same file are merged in graph order. An explicit node
// path is authoritative; alias resolution only redirects nodes whose path
// was defaulted from their id.
func BuildUpdates(g *blueprint.Graph, resolved map[string]Resolution, opts WorkOptions) WorkList {
	var wl WorkList
	byPath := map[string]int{}

	for _, n := range g.InstructedNodes() {
		if opts.Selection != nil && !opts.Selection[n.ID] {
			continue
		}
		p, ok := n.ActualPath()
		if !ok {
			wl.Warnings = append(wl.Warnings, fmt.Sprintf("Draft node %s has instructions but no file; it needs manual review.", n.ID))
			wl.Review = append(wl.Review, newPlanItem(PlanManualReview, "", "Draft goal: "+n.Instructions, confidenceNoop))
			continue
		}
		target := p
		if res, ok := resolved[n.ID]; ok && res.Resolved() && p == n.ID {
			target = res.Path
		}

		abs, err := workspacePath(opts.Root, target)
		if err != nil {
			wl.Warnings = append(wl.Warnings, fmt.Sprintf("Skipped node %s: %v.", n.ID, err))
			continue
		}
		target = path.Clean(target)

		if i, ok := byPath[target]; ok {
			u := &wl.Updates[i]
			u.NodeIDs = append(u.NodeIDs, n.ID)
			u.Instructions = append(u.Instructions, n.Instructions)
			continue
		}
		byPath[target] = len(wl.Updates)
		wl.Updates = append(wl.Updates, orchestrator.Update{
			RelativePath: target,
			AbsolutePath: abs,
			NodeKind:     n.Kind,
			NodeIDs:      []string{n.ID},
			Instructions: []string{n.Instructions},
			LanguageHint: languageHint(target, opts.Languages),
		})
	}

	limit := opts.CommitLimit
	if limit <= 0 {
		limit = DefaultCommitLimit
	}
	if opts.Selection == nil && len(wl.Updates) > limit {
		for _, u := range wl.Updates[limit:] {
			wl.Deferred = append(wl.Deferred, u.RelativePath)
		}
		wl.Updates = wl.Updates[:limit]
		wl.Warnings = append(wl.Warnings, fmt.Sprintf("Commit limit of %d file(s) reached; deferred: %s. Select nodes explicitly to commit them.",
			limit, strings.Join(wl.Deferred, ", ")))
	}
	return wl
}

// workspacePath joins rel onto root, rejecting anything that would leave
// it either lexically or through a symlink already on disk.
func workspacePath(root, rel string) (string, error) {
	if rel == "" || !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, rel)
	}
	abs := filepath.Join(root, filepath.FromSlash(rel))
	inside, err := resolvesInside(root, abs)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", rel, err)
	}
	if !inside {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, rel)
	}
	return abs, nil
}

// resolvesInside reports whether the deepest existing ancestor of abs,
// with symlinks evaluated, is still under root. A root that does not exist
// yet holds no links.
func resolvesInside(root, abs string) (bool, error) {
	realRoot, err := filepath.EvalSymlinks(root)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	for p := abs; ; {
		real, err := filepath.EvalSymlinks(p)
		if err == nil {
			rel, err := filepath.Rel(realRoot, real)
			return err == nil && (rel == "." || filepath.IsLocal(rel)), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return true, nil
		}
		p = parent
	}
}

func languageHint(rel string, known map[string]graph.Language) string {
	if lang, ok := known[rel]; ok {
		return string(lang)
	}
	if lang, ok := graph.DetectLanguage(rel); ok {
		return string(lang)
	}
	return ""
}
