package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/blueprint/internal/blueprint"
	"github.com/dusk-indust/blueprint/internal/export"
	"github.com/dusk-indust/blueprint/internal/graph"
	"github.com/dusk-indust/blueprint/internal/reconcile"
	"github.com/dusk-indust/blueprint/internal/workspace"
)

// Service backs the MCP tools with one workspace.
type Service struct {
	ws *workspace.Workspace
}

// NewService creates a Service over ws.
func NewService(ws *workspace.Workspace) *Service {
	return &Service{ws: ws}
}

// BuildIndex re-indexes the workspace. Input lists extend the configured
// exclusions; languages replace the configured set.
func (s *Service) BuildIndex(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BuildIndexInput,
) (*mcp.CallToolResult, BuildIndexOutput, error) {
	opts := s.ws.Config().Build()
	if len(input.Languages) > 0 {
		opts.Languages = nil
		for _, l := range input.Languages {
			opts.Languages = append(opts.Languages, graph.Language(strings.ToLower(l)))
		}
	}
	opts.ExcludeDirs = append(opts.ExcludeDirs, input.ExcludeDirs...)
	opts.ExcludeGlobs = append(opts.ExcludeGlobs, input.ExcludeGlobs...)

	stats, err := s.ws.BuildIndex(ctx, opts)
	if err != nil {
		return nil, BuildIndexOutput{}, fmt.Errorf("build index: %w", err)
	}

	out := BuildIndexOutput{Stats: *stats}
	if dg, err := s.dependencyGraph(ctx); err == nil {
		out.Clusters = len(graph.Clusters(dg))
	}
	return nil, out, nil
}

func (s *Service) dependencyGraph(ctx context.Context) (*graph.DependencyGraph, error) {
	ix, err := s.ws.Index(ctx)
	if err != nil {
		return nil, err
	}
	return ix.DependencyGraph(ctx)
}

// QuerySymbols searches for symbols by name substring match.
func (s *Service) QuerySymbols(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuerySymbolsInput,
) (*mcp.CallToolResult, QuerySymbolsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	ix, err := s.ws.Index(ctx)
	if err != nil {
		return nil, QuerySymbolsOutput{}, err
	}

	symbols, err := ix.Store().QuerySymbols(ctx, input.Query, limit)
	if err != nil {
		return nil, QuerySymbolsOutput{}, fmt.Errorf("query symbols: %w", err)
	}

	// Filter by kind if specified.
	if input.Kind != "" {
		kind := graph.SymbolKind(strings.ToLower(input.Kind))
		filtered := symbols[:0]
		for _, sym := range symbols {
			if sym.Kind == kind {
				filtered = append(filtered, sym)
			}
		}
		symbols = filtered
	}
	if symbols == nil {
		symbols = []graph.SymbolNode{}
	}

	return nil, QuerySymbolsOutput{Symbols: symbols, Total: len(symbols)}, nil
}

// GetDependencies traverses import edges from a file.
func (s *Service) GetDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependenciesInput,
) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	if input.Path == "" {
		return nil, GetDependenciesOutput{}, fmt.Errorf("path is required")
	}

	direction := graph.DirectionDownstream
	if strings.EqualFold(input.Direction, "upstream") {
		direction = graph.DirectionUpstream
	}
	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	ix, err := s.ws.Index(ctx)
	if err != nil {
		return nil, GetDependenciesOutput{}, err
	}
	chains, err := ix.Store().GetDependencies(ctx, blueprint.NormalizePath(input.Path), direction, maxDepth)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("get dependencies: %w", err)
	}
	if chains == nil {
		chains = []graph.DependencyChain{}
	}
	return nil, GetDependenciesOutput{Chains: chains}, nil
}

// GetClusters groups connected files and renders them as a diagram.
func (s *Service) GetClusters(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetClustersInput,
) (*mcp.CallToolResult, GetClustersOutput, error) {
	dg, err := s.dependencyGraph(ctx)
	if err != nil {
		return nil, GetClustersOutput{}, fmt.Errorf("get clusters: %w", err)
	}
	clusters := graph.Clusters(dg)
	if clusters == nil {
		clusters = []graph.Cluster{}
	}
	return nil, GetClustersOutput{Clusters: clusters, Mermaid: export.DependencyDiagram(dg)}, nil
}

// CommitBlueprint runs a commit from a payload or a Mermaid flowchart.
func (s *Service) CommitBlueprint(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CommitBlueprintInput,
) (*mcp.CallToolResult, CommitBlueprintOutput, error) {
	var (
		payload  blueprint.Payload
		warnings []string
	)
	switch {
	case input.Payload != nil:
		data, err := json.Marshal(input.Payload)
		if err != nil {
			return nil, CommitBlueprintOutput{}, fmt.Errorf("encode payload: %w", err)
		}
		payload, warnings, err = blueprint.ParsePayload(data)
		if err != nil {
			return nil, CommitBlueprintOutput{}, err
		}
	case input.Mermaid != "":
		p, err := blueprint.ParseMermaid(input.Mermaid)
		if err != nil {
			return nil, CommitBlueprintOutput{}, err
		}
		payload = p
	default:
		return nil, CommitBlueprintOutput{}, fmt.Errorf("payload or mermaid is required")
	}
	if input.DirtyNodeIDs != nil {
		payload.DirtyNodeIDs = input.DirtyNodeIDs
	}

	resp, err := s.ws.Commit(ctx, reconcile.Request{Payload: payload, Warnings: warnings, DryRun: input.DryRun})
	if err != nil {
		return nil, CommitBlueprintOutput{}, fmt.Errorf("commit: %w", err)
	}
	return nil, CommitBlueprintOutput{Report: *resp}, nil
}

// ListCommits returns recorded commits, newest first.
func (s *Service) ListCommits(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListCommitsInput,
) (*mcp.CallToolResult, ListCommitsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	entries, err := s.ws.History().List(ctx, limit)
	if err != nil {
		return nil, ListCommitsOutput{}, err
	}
	out := ListCommitsOutput{Commits: make([]CommitEntry, 0, len(entries))}
	for _, e := range entries {
		out.Commits = append(out.Commits, commitEntry(e))
	}
	return nil, out, nil
}

// GetCommit returns the full report of one recorded commit.
func (s *Service) GetCommit(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetCommitInput,
) (*mcp.CallToolResult, GetCommitOutput, error) {
	if input.CommitID == "" {
		return nil, GetCommitOutput{}, fmt.Errorf("commitId is required")
	}
	resp, err := s.ws.History().Get(ctx, input.CommitID)
	if err != nil {
		return nil, GetCommitOutput{}, err
	}
	return nil, GetCommitOutput{Report: *resp}, nil
}
