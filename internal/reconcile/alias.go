package reconcile

import (
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/dusk-indust/blueprint/internal/blueprint"
	"github.com/dusk-indust/blueprint/internal/graph"
)

// Match describes how a node reference was resolved.
type Match string

const (
	MatchExact     Match = "exact"
	MatchFuzzy     Match = "fuzzy"
	MatchAmbiguous Match = "ambiguous"
	MatchNotFound  Match = "not_found"
)

// Resolution is the outcome of resolving one node.
type Resolution struct {
	Match Match
	// Path is set for exact and fuzzy matches.
	Path string
	// Candidates lists the competing paths of an ambiguous match.
	Candidates []string
	// Fuzzy is set on ambiguous results found by the fuzzy scan.
	Fuzzy bool
}

// Resolved reports whether the node maps to exactly one file.
func (r Resolution) Resolved() bool {
	return r.Match == MatchExact || r.Match == MatchFuzzy
}

// AliasResolver maps node ids, labels and paths to indexed files. It is
// built once per commit from a snapshot of the index and never touches the
// filesystem.
type AliasResolver struct {
	files   map[string]bool
	aliases map[string]map[string]bool
	keys    []string // sorted, for deterministic fuzzy scans
}

// NewAliasResolver indexes each file under its full path, base name, base
// name without extension, and label.
func NewAliasResolver(files []graph.CanonicalFile) *AliasResolver {
	r := &AliasResolver{
		files:   make(map[string]bool, len(files)),
		aliases: make(map[string]map[string]bool),
	}
	for _, f := range files {
		full := blueprint.NormalizePath(f.FullPath)
		if full == "" {
			continue
		}
		r.files[full] = true
		base := path.Base(full)
		r.add(full, full)
		r.add(base, full)
		r.add(strings.TrimSuffix(base, path.Ext(base)), full)
		r.add(f.Label, full)
	}
	r.keys = make([]string, 0, len(r.aliases))
	for k := range r.aliases {
		r.keys = append(r.keys, k)
	}
	sort.Strings(r.keys)
	return r
}

func (r *AliasResolver) add(alias, file string) {
	alias = NormalizeAlias(alias)
	if alias == "" {
		return
	}
	if r.aliases[alias] == nil {
		r.aliases[alias] = make(map[string]bool)
	}
	r.aliases[alias][file] = true
}

// NormalizeAlias lowercases s, strips surrounding quotes, turns backslashes
// into slashes and drops characters outside [a-z0-9./_-].
func NormalizeAlias(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "\"'`")
	s = strings.ReplaceAll(s, "\\", "/")
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '/', r == '_', r == '-':
			return r
		}
		return -1
	}, s)
}

// Resolve maps an Actual node to a file. A node whose path is itself an
// indexed file resolves to it directly. Otherwise the path, id and label
// are tried as exact aliases in that order, then id and label as fuzzy
// candidates. Draft nodes are never resolved.
func (r *AliasResolver) Resolve(n blueprint.Node) Resolution {
	p, ok := n.ActualPath()
	if !ok {
		return Resolution{Match: MatchNotFound}
	}
	if r.files[p] {
		return Resolution{Match: MatchExact, Path: p}
	}

	exact := candidates(p, n.ID, n.Label)
	fuzzy := candidates(n.ID, n.Label)

	for _, c := range exact {
		switch paths := r.aliases[c]; len(paths) {
		case 0:
			continue
		case 1:
			return Resolution{Match: MatchExact, Path: only(paths)}
		default:
			return Resolution{Match: MatchAmbiguous, Candidates: sortedKeys(paths)}
		}
	}

	matched := map[string]bool{}
	for _, c := range fuzzy {
		for _, alias := range r.keys {
			if strings.Contains(alias, c) || strings.Contains(c, alias) {
				for f := range r.aliases[alias] {
					matched[f] = true
				}
			}
		}
	}
	switch len(matched) {
	case 0:
		return Resolution{Match: MatchNotFound}
	case 1:
		return Resolution{Match: MatchFuzzy, Path: only(matched)}
	default:
		return Resolution{Match: MatchAmbiguous, Candidates: sortedKeys(matched), Fuzzy: true}
	}
}

// ResolveGraph resolves every Actual node of g. Unresolved nodes yield a
// warning each.
func (r *AliasResolver) ResolveGraph(g *blueprint.Graph) (map[string]Resolution, []string) {
	out := make(map[string]Resolution, len(g.Nodes))
	var warnings []string
	for _, n := range g.Nodes {
		if n.Kind != blueprint.KindActual {
			continue
		}
		res := r.Resolve(n)
		out[n.ID] = res
		switch res.Match {
		case MatchAmbiguous:
			how := "exact"
			if res.Fuzzy {
				how = "fuzzy"
			}
			warnings = append(warnings, fmt.Sprintf("Node %s is ambiguous (%s match): %s.", n.ID, how, strings.Join(res.Candidates, ", ")))
		case MatchNotFound:
			warnings = append(warnings, fmt.Sprintf("Node %s does not match any indexed file.", n.ID))
		}
	}
	return out, warnings
}

// candidates normalizes refs, dropping empties and duplicates.
func candidates(refs ...string) []string {
	var out []string
	for _, ref := range refs {
		c := NormalizeAlias(ref)
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func only(m map[string]bool) string {
	for k := range m {
		return k
	}
	return ""
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
