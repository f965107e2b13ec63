package mcptools

import (
	"time"

	"github.com/dusk-indust/blueprint/internal/graph"
	"github.com/dusk-indust/blueprint/internal/history"
	"github.com/dusk-indust/blueprint/internal/reconcile"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// BuildIndexInput is the input for the build_index MCP tool.
type BuildIndexInput struct {
	Languages    []string `json:"languages,omitempty" jsonschema:"languages to index (default: every detected language). Values: go, typescript, javascript, python, rust, markdown, json, text"`
	ExcludeDirs  []string `json:"excludeDirs,omitempty" jsonschema:"directory names to exclude in addition to the configured ones"`
	ExcludeGlobs []string `json:"excludeGlobs,omitempty" jsonschema:"doublestar patterns of repo-relative paths to exclude"`
}

// BuildIndexOutput is the result of the build_index MCP tool.
type BuildIndexOutput struct {
	Stats    graph.GraphStats `json:"stats"`
	Clusters int              `json:"clusters"`
}

// QuerySymbolsInput is the input for the query_symbols MCP tool.
type QuerySymbolsInput struct {
	Query string `json:"query" jsonschema:"search query for symbol names (substring match)"`
	Kind  string `json:"kind,omitempty" jsonschema:"filter by symbol kind: function, class, type, enum, interface, method"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// QuerySymbolsOutput is the result of the query_symbols MCP tool.
type QuerySymbolsOutput struct {
	Symbols []graph.SymbolNode `json:"symbols"`
	Total   int                `json:"total"`
}

// GetDependenciesInput is the input for the get_dependencies MCP tool.
type GetDependenciesInput struct {
	Path      string `json:"path" jsonschema:"repo-relative file path"`
	Direction string `json:"direction,omitempty" jsonschema:"downstream (what it imports) or upstream (what imports it). Default: downstream"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// GetDependenciesOutput is the result of the get_dependencies MCP tool.
type GetDependenciesOutput struct {
	Chains []graph.DependencyChain `json:"chains"`
}

// GetClustersInput is the input for the get_clusters MCP tool.
type GetClustersInput struct{}

// GetClustersOutput is the result of the get_clusters MCP tool.
type GetClustersOutput struct {
	Clusters []graph.Cluster `json:"clusters"`
	Mermaid  string          `json:"mermaid"`
}

// CommitBlueprintInput is the input for the commit_blueprint MCP tool.
type CommitBlueprintInput struct {
	// Payload is decoded by blueprint.ParsePayload.
	Payload      any      `json:"payload,omitempty" jsonschema:"editor graph: {nodes: [{id, data: {kind, path, label, instructions}}], edges: [{source, target, kind}], dirtyNodeIds}"`
	Mermaid      string   `json:"mermaid,omitempty" jsonschema:"Mermaid flowchart to use instead of payload; instructions go in %% @instructions <id> <text> comments"`
	DirtyNodeIDs []string `json:"dirtyNodeIds,omitempty" jsonschema:"node ids to commit; overrides the payload's selection"`
	DryRun       bool     `json:"dryRun,omitempty" jsonschema:"compute rewrites without writing files"`
}

// CommitBlueprintOutput is the result of the commit_blueprint MCP tool.
type CommitBlueprintOutput struct {
	Report reconcile.Response `json:"report"`
}

// ListCommitsInput is the input for the list_commits MCP tool.
type ListCommitsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of commits, newest first (default: 20)"`
}

// CommitEntry is one recorded commit in list_commits output.
type CommitEntry struct {
	CommitID  string `json:"commitId"`
	CreatedAt string `json:"createdAt" jsonschema:"RFC 3339 timestamp"`
	Summary   string `json:"summary"`
	Applied   bool   `json:"applied"`
	DryRun    bool   `json:"dryRun"`
	Files     int    `json:"files"`
	Warnings  int    `json:"warnings"`
}

func commitEntry(e history.Entry) CommitEntry {
	return CommitEntry{
		CommitID:  e.ID,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
		Summary:   e.Summary,
		Applied:   e.Applied,
		DryRun:    e.DryRun,
		Files:     e.Files,
		Warnings:  e.Warnings,
	}
}

// ListCommitsOutput is the result of the list_commits MCP tool.
type ListCommitsOutput struct {
	Commits []CommitEntry `json:"commits"`
}

// GetCommitInput is the input for the get_commit MCP tool.
type GetCommitInput struct {
	CommitID string `json:"commitId" jsonschema:"id returned by commit_blueprint"`
}

// GetCommitOutput is the result of the get_commit MCP tool.
type GetCommitOutput struct {
	Report reconcile.Response `json:"report"`
}
