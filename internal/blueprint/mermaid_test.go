package blueprint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMermaid(t *testing.T) {
	src := `graph TD
  %% services
  api[src/api.ts] --> db["src/db.ts"]
  api -.->|cached by| cache(Cache layer)
  db --> src/models.ts --> shared{Shared types}
  %% @instructions api add retry around db calls
  %% @instructions api log failures
  classDef hot fill:#f96,stroke:#333;
`
	p, err := ParseMermaid(src)
	require.NoError(t, err)

	g, warnings := Normalize(p)
	assert.Empty(t, warnings)

	var ids []string
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"api", "db", "cache", "src/models.ts", "shared"}, ids)

	api, _ := g.Node("api")
	path, ok := api.ActualPath()
	require.True(t, ok)
	assert.Equal(t, "src/api.ts", path)
	assert.Equal(t, "api.ts", api.Label)
	assert.Equal(t, "add retry around db calls\nlog failures", api.Instructions)

	db, _ := g.Node("db")
	assert.Equal(t, "src/db.ts", db.Path)

	cache, _ := g.Node("cache")
	assert.Equal(t, KindDraft, cache.Kind)
	assert.Equal(t, "Cache layer", cache.Label)

	models, _ := g.Node("src/models.ts")
	assert.Equal(t, KindActual, models.Kind, "bare path-like ids bind to files")

	shared, _ := g.Node("shared")
	assert.Equal(t, KindDraft, shared.Kind)

	require.Len(t, g.Edges, 4)
	assert.Equal(t, Edge{ID: "api->db", Source: "api", Target: "db", Kind: EdgeVisual}, g.Edges[0])
	assert.Equal(t, Edge{ID: "api->cache", Source: "api", Target: "cache", Kind: EdgeDerived, Label: "cached by"}, g.Edges[1])
	assert.Equal(t, "db->src/models.ts", g.Edges[2].ID)
	assert.Equal(t, "src/models.ts->shared", g.Edges[3].ID)
}

func TestParseMermaid_Links(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		derived bool
	}{
		{"arrow", "a --> b", false},
		{"long arrow", "a ----> b", false},
		{"open link", "a --- b", false},
		{"thick", "a ==> b", false},
		{"dotted", "a -.-> b", true},
		{"no spaces", "a-->b", false},
		{"hyphenated ids", "my-node-->other-node", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseMermaid(tt.src)
			require.NoError(t, err)
			require.Len(t, p.Edges, 1)
			assert.Equal(t, tt.derived, p.Edges[0].Kind == string(EdgeDerived))
			require.Len(t, p.Nodes, 2)
		})
	}
}

func TestParseMermaid_Statements(t *testing.T) {
	p, err := ParseMermaid("flowchart LR; a --> b; b --> c\nsubgraph group\n c --> d\nend")
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 4)
	assert.Len(t, p.Edges, 3)
}

func TestParseMermaid_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"dangling link", "graph TD\na -->\nb", 2},
		{"unclosed shape", "a[src/a.js\n", 1},
		{"two shapes", "a[x](y)", 1},
		{"two nodes", "a b", 1},
		{"stray character", "a --> b #", 1},
		{"empty directive", "%% @instructions a", 1},
		{"double label", "a -->|x||y| b", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMermaid(tt.src)
			require.Error(t, err)
			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, tt.line, syntaxErr.Line)
		})
	}
}
