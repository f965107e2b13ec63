package blueprint

import (
	"fmt"
	"path"
	"strings"
)

// Normalize converts a raw payload into the canonical graph. It never fails:
// malformed nodes and dangling edges are dropped and reported as warnings.
func Normalize(p Payload) (*Graph, []string) {
	g := &Graph{byID: make(map[string]int, len(p.Nodes))}
	var warnings []string

	for i, raw := range p.Nodes {
		id := strings.TrimSpace(raw.ID)
		if id == "" {
			warnings = append(warnings, fmt.Sprintf("Skipped node at index %d because it has no id.", i))
			continue
		}
		if _, dup := g.byID[id]; dup {
			warnings = append(warnings, fmt.Sprintf("Skipped duplicate node id %s.", id))
			continue
		}
		g.byID[id] = len(g.Nodes)
		g.Nodes = append(g.Nodes, normalizeNode(id, raw))
	}

	for _, raw := range p.Edges {
		source := strings.TrimSpace(raw.Source)
		target := strings.TrimSpace(raw.Target)
		_, hasSource := g.byID[source]
		_, hasTarget := g.byID[target]
		if !hasSource || !hasTarget {
			warnings = append(warnings, fmt.Sprintf("Skipped edge %s -> %s because one endpoint is missing.", source, target))
			continue
		}
		id := strings.TrimSpace(raw.ID)
		if id == "" {
			id = source + "->" + target
		}
		g.Edges = append(g.Edges, Edge{
			ID:     id,
			Source: source,
			Target: target,
			Kind:   edgeKind(raw),
			Label:  strings.TrimSpace(raw.Label),
		})
	}

	return g, warnings
}

func normalizeNode(id string, raw RawNode) Node {
	var n Node
	if parseKind(raw.Data.Kind) == KindActual {
		p := NormalizePath(raw.Data.Path)
		if p == "" {
			p = NormalizePath(id)
		}
		n = NewActual(id, p)
	} else {
		n = NewDraft(id)
	}

	if label := strings.TrimSpace(raw.Data.Label); label != "" {
		n.Label = label
	}
	if n.Label == "" {
		n.Label = id
	}

	n.Instructions = strings.TrimSpace(raw.Data.Instructions)
	if n.Instructions == "" {
		n.Instructions = strings.TrimSpace(raw.Data.Goal)
	}
	if raw.Position != nil {
		n.Position = *raw.Position
	}
	return n
}

func parseKind(s string) NodeKind {
	if strings.EqualFold(strings.TrimSpace(s), "actual") {
		return KindActual
	}
	return KindDraft
}

func edgeKind(raw RawEdge) EdgeKind {
	kind := raw.Kind
	if kind == "" && raw.Data != nil {
		kind = raw.Data.Kind
	}
	if strings.EqualFold(strings.TrimSpace(kind), string(EdgeDerived)) {
		return EdgeDerived
	}
	return EdgeVisual
}

// NormalizePath puts a user-supplied path into repo-relative slash form:
// backslashes become slashes, duplicate slashes collapse, and leading "./"
// and "/" are stripped. It does not resolve "..".
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	for {
		switch {
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		default:
			return p
		}
	}
}

func baseName(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(p)
}
