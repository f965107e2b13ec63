package mcptools

import (
	"context"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with the index and commit tools registered.
func NewServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "blueprint",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_index",
		Description: "Index the workspace. Walks the file tree, parses source files with tree-sitter, resolves imports between files, and persists the index for later commits.",
	}, svc.BuildIndex)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_symbols",
		Description: "Search for symbols (functions, classes, types, etc.) by name substring match. Optionally filter by symbol kind and limit results.",
	}, svc.QuerySymbols)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_dependencies",
		Description: "Traverse the import graph upstream or downstream from a file. Returns dependency chains up to the specified depth.",
	}, svc.GetDependencies)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_clusters",
		Description: "Group connected files of the import graph into clusters with cohesion scores, plus a Mermaid diagram of the whole graph.",
	}, svc.GetClusters)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "commit_blueprint",
		Description: "Compare a design graph with the indexed code and apply each node's instructions to its file. Returns the plan, per-file results, warnings and edge drift.",
	}, svc.CommitBlueprint)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_commits",
		Description: "List recorded blueprint commits, newest first.",
	}, svc.ListCommits)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_commit",
		Description: "Return the full report of a recorded blueprint commit.",
	}, svc.GetCommit)

	return server
}

// RunStdio runs the server on stdio, blocking until stdin is closed or the
// context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// NewHTTPHandler serves the MCP server over streamable HTTP, with metrics
// at /metrics when a metrics handler is given.
func NewHTTPHandler(server *mcp.Server, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	))
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}

// RunHTTP serves handler on addr until ctx is cancelled.
func RunHTTP(ctx context.Context, addr string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
