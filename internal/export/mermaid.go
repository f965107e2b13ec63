package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dusk-indust/blueprint/internal/blueprint"
	"github.com/dusk-indust/blueprint/internal/graph"
	"github.com/dusk-indust/blueprint/internal/reconcile"
)

// idAllocator hands out short alphanumeric Mermaid ids per key.
type idAllocator struct {
	ids  map[string]string
	next int
}

func newIDAllocator() *idAllocator {
	return &idAllocator{ids: make(map[string]string)}
}

func (a *idAllocator) get(key string) string {
	if id, ok := a.ids[key]; ok {
		return id
	}
	id := fmt.Sprintf("N%d", a.next)
	a.next++
	a.ids[key] = id
	return id
}

// DependencyDiagram renders the canonical dependency graph as a Mermaid
// graph TD. Connected files are grouped into cluster subgraphs and import
// edges become arrows.
func DependencyDiagram(dg *graph.DependencyGraph) string {
	ids := newIDAllocator()
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if dg == nil {
		return sb.String()
	}

	clustered := make(map[string]bool)
	for i, c := range graph.Clusters(dg) {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("cluster %d", i+1)
		}
		fmt.Fprintf(&sb, "  subgraph %s[\"%.40s\"]\n", ids.get(fmt.Sprintf("cluster:%d", i)), rectText.Replace(name))
		for _, member := range c.Members {
			clustered[member] = true
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", ids.get(member), rectText.Replace(shortPath(member)))
		}
		sb.WriteString("  end\n")
	}
	for _, f := range dg.Files {
		if !clustered[f.FullPath] {
			fmt.Fprintf(&sb, "  %s[\"%s\"]\n", ids.get(f.FullPath), rectText.Replace(shortPath(f.FullPath)))
		}
	}
	for _, e := range dg.Edges {
		fmt.Fprintf(&sb, "  %s --> %s\n", ids.get(e.Source), ids.get(e.Target))
	}
	return sb.String()
}

// BlueprintDiagram renders a normalized blueprint in the flowchart subset
// that blueprint.ParseMermaid reads back: Actual nodes in square brackets
// with their path, drafts in round brackets with their label, derived
// edges dotted, and instructions as @instructions comments.
func BlueprintDiagram(g *blueprint.Graph) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if g == nil {
		return sb.String()
	}

	ids := newIDAllocator()
	nodeID := func(id string) string {
		if safeID(id) {
			return id
		}
		for {
			alias := ids.get(id)
			if _, taken := g.Node(alias); !taken {
				return alias
			}
			delete(ids.ids, id)
		}
	}

	for _, n := range g.Nodes {
		if p, ok := n.ActualPath(); ok {
			fmt.Fprintf(&sb, "  %s[\"%s\"]\n", nodeID(n.ID), rectText.Replace(p))
			continue
		}
		fmt.Fprintf(&sb, "  %s(\"%s\")\n", nodeID(n.ID), roundText.Replace(n.Label))
	}
	for _, e := range g.Edges {
		arrow := "-->"
		if e.Kind == blueprint.EdgeDerived {
			arrow = "-.->"
		}
		if e.Label != "" {
			arrow += "|" + linkText.Replace(e.Label) + "|"
		}
		fmt.Fprintf(&sb, "  %s %s %s\n", nodeID(e.Source), arrow, nodeID(e.Target))
	}
	for _, n := range g.Nodes {
		for _, line := range strings.Split(n.Instructions, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fmt.Fprintf(&sb, "  %%%% @instructions %s %s\n", nodeID(n.ID), line)
			}
		}
	}
	return sb.String()
}

// ComparisonDiagram renders the edge drift of a commit: thick green arrows
// for edges the blueprint adds and dotted red ones for edges it drops.
func ComparisonDiagram(cmp reconcile.Comparison) string {
	ids := newIDAllocator()
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	seen := make(map[string]bool)
	node := func(p string) string {
		id := ids.get(p)
		if !seen[p] {
			seen[p] = true
			fmt.Fprintf(&sb, "  %s[\"%s\"]\n", id, rectText.Replace(shortPath(p)))
		}
		return id
	}

	var styles []string
	link := 0
	for _, e := range cmp.AddedEdges {
		src, tgt := node(e.Source), node(e.Target)
		fmt.Fprintf(&sb, "  %s ==>|add| %s\n", src, tgt)
		styles = append(styles, fmt.Sprintf("  linkStyle %d stroke:#2da44e\n", link))
		link++
	}
	for _, e := range cmp.RemovedEdges {
		src, tgt := node(e.Source), node(e.Target)
		fmt.Fprintf(&sb, "  %s -.->|remove| %s\n", src, tgt)
		styles = append(styles, fmt.Sprintf("  linkStyle %d stroke:#cf222e\n", link))
		link++
	}
	for _, s := range styles {
		sb.WriteString(s)
	}
	return sb.String()
}

// shortPath returns the last 2 path segments for readability.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}

var (
	rectText  = strings.NewReplacer("\"", "'", "\n", " ", "]", ")")
	roundText = strings.NewReplacer("\"", "'", "\n", " ", ")", "]")
	linkText  = strings.NewReplacer("\"", "'", "\n", " ", "|", "/")
)

// safeID reports whether id can be emitted as a bare Mermaid node id that
// the flowchart reader takes back unchanged.
func safeID(id string) bool {
	if id == "" || id[0] == '-' || keywords[id] {
		return false
	}
	if strings.Contains(id, "--") || strings.Contains(id, "-.") {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.ContainsRune("_./@:-", c):
		default:
			return false
		}
	}
	return true
}

var keywords = map[string]bool{
	"graph": true, "flowchart": true, "subgraph": true, "end": true,
	"classDef": true, "class": true, "style": true, "linkStyle": true,
	"click": true, "direction": true,
}
