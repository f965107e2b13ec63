package blueprint

import (
	"encoding/json"
	"fmt"
)

// Payload is the raw commit request sent by the editor. Nodes and edges are
// loosely typed; Normalize produces the canonical Graph.
type Payload struct {
	Nodes []RawNode `json:"nodes"`
	Edges []RawEdge `json:"edges"`
	// DirtyNodeIDs is nil when the caller made no selection. An empty,
	// non-nil slice selects nothing.
	DirtyNodeIDs []string `json:"dirtyNodeIds"`
}

// RawNode is an editor node as received.
type RawNode struct {
	ID       string      `json:"id"`
	Type     string      `json:"type,omitempty"`
	Position *Position   `json:"position,omitempty"`
	Data     RawNodeData `json:"data"`
}

// RawNodeData is the free-form data bag of an editor node.
type RawNodeData struct {
	Kind         string `json:"kind,omitempty"`
	Path         string `json:"path,omitempty"`
	Label        string `json:"label,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	// Goal is the legacy name for Instructions.
	Goal string `json:"goal,omitempty"`
}

// RawEdge is an editor edge as received. The kind may sit at the top level
// or inside data.
type RawEdge struct {
	ID     string       `json:"id,omitempty"`
	Source string       `json:"source"`
	Target string       `json:"target"`
	Label  string       `json:"label,omitempty"`
	Kind   string       `json:"kind,omitempty"`
	Data   *RawEdgeData `json:"data,omitempty"`
}

// RawEdgeData is the data bag of an editor edge.
type RawEdgeData struct {
	Kind string `json:"kind,omitempty"`
}

// Selection returns the selected node ids and whether a selection was made.
func (p Payload) Selection() (map[string]bool, bool) {
	if p.DirtyNodeIDs == nil {
		return nil, false
	}
	sel := make(map[string]bool, len(p.DirtyNodeIDs))
	for _, id := range p.DirtyNodeIDs {
		sel[id] = true
	}
	return sel, true
}

// ParsePayload decodes a commit request. Entries that do not decode are
// skipped with a warning; only a document that is not a JSON object is an
// error.
func ParsePayload(data []byte) (Payload, []string, error) {
	var doc struct {
		Nodes        []json.RawMessage `json:"nodes"`
		Edges        []json.RawMessage `json:"edges"`
		DirtyNodeIDs json.RawMessage   `json:"dirtyNodeIds"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Payload{}, nil, fmt.Errorf("blueprint: decode payload: %w", err)
	}

	var p Payload
	var warnings []string
	for i, raw := range doc.Nodes {
		var n RawNode
		if err := json.Unmarshal(raw, &n); err != nil {
			warnings = append(warnings, fmt.Sprintf("Skipped node at index %d because it could not be decoded.", i))
			continue
		}
		p.Nodes = append(p.Nodes, n)
	}
	for i, raw := range doc.Edges {
		var e RawEdge
		if err := json.Unmarshal(raw, &e); err != nil {
			warnings = append(warnings, fmt.Sprintf("Skipped edge at index %d because it could not be decoded.", i))
			continue
		}
		p.Edges = append(p.Edges, e)
	}
	if len(doc.DirtyNodeIDs) > 0 && string(doc.DirtyNodeIDs) != "null" {
		ids := []string{}
		if err := json.Unmarshal(doc.DirtyNodeIDs, &ids); err != nil {
			warnings = append(warnings, "Ignored dirtyNodeIds because it is not a list of node ids.")
		} else {
			p.DirtyNodeIDs = ids
		}
	}
	return p, warnings, nil
}
