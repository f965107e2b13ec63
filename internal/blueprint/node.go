// Package blueprint holds the canonical model of the visual design graph
// and turns loosely-typed editor payloads into it.
package blueprint

// NodeKind separates nodes bound to a file from free-floating goals.
type NodeKind int

const (
	// KindDraft is a goal with no corresponding file yet.
	KindDraft NodeKind = iota
	// KindActual is bound to an existing or intended file path.
	KindActual
)

// String returns the wire name of the kind.
func (k NodeKind) String() string {
	if k == KindActual {
		return "actual"
	}
	return "draft"
}

// MarshalText encodes the kind by name.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts "actual"; anything else decodes as Draft.
func (k *NodeKind) UnmarshalText(b []byte) error {
	*k = parseKind(string(b))
	return nil
}

// Position is the editor placement of a node. It carries no semantics.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one normalized graph node. Construct with NewActual or NewDraft;
// Path is only meaningful for Actual nodes.
type Node struct {
	ID           string   `json:"id"`
	Kind         NodeKind `json:"kind"`
	Path         string   `json:"path,omitempty"`
	Label        string   `json:"label"`
	Instructions string   `json:"instructions,omitempty"`
	Position     Position `json:"position"`
}

// NewActual returns an Actual node for path. Label defaults to the base
// name of the path.
func NewActual(id, path string) Node {
	return Node{ID: id, Kind: KindActual, Path: path, Label: baseName(path)}
}

// NewDraft returns a Draft node labeled with its id.
func NewDraft(id string) Node {
	return Node{ID: id, Kind: KindDraft, Label: id}
}

// ActualPath returns the bound file path and true for Actual nodes.
func (n Node) ActualPath() (string, bool) {
	if n.Kind != KindActual {
		return "", false
	}
	return n.Path, true
}

// HasInstructions reports whether the node asks for a change.
func (n Node) HasInstructions() bool {
	return n.Instructions != ""
}

// EdgeKind tells user-drawn edges from ones the editor derived itself.
type EdgeKind string

const (
	EdgeVisual  EdgeKind = "visual"
	EdgeDerived EdgeKind = "derived"
)

// Edge is a normalized, directed edge whose endpoints both exist.
type Edge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"kind"`
	Label  string   `json:"label,omitempty"`
}

// Graph is the normalized blueprint.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	byID map[string]int
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// InstructedNodes returns nodes with non-empty instructions in graph order.
func (g *Graph) InstructedNodes() []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.HasInstructions() {
			out = append(out, n)
		}
	}
	return out
}
