package main

import (
	"github.com/spf13/cobra"

	"github.com/dusk-indust/blueprint/internal/mcptools"
)

func newServeCmd(flags *cliFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Run the MCP server on stdio, or on HTTP with --http",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, e, err := openWorkspace(cmd, flags, true)
			if err != nil {
				return err
			}
			defer ws.Close()

			server := mcptools.NewServer(mcptools.NewService(ws))
			if addr == "" {
				return mcptools.RunStdio(cmd.Context(), server)
			}
			e.logger.Info("serving MCP over HTTP", "addr", addr, "metrics", "/metrics")
			return mcptools.RunHTTP(cmd.Context(), addr, mcptools.NewHTTPHandler(server, ws.Metrics().Handler()))
		},
	}
	cmd.Flags().StringVar(&addr, "http", "", "listen address for streamable HTTP, e.g. :8765")
	return cmd
}
