package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/blueprint/internal/blueprint"
	"github.com/dusk-indust/blueprint/internal/export"
)

func newDiagramCmd(flags *cliFlags) *cobra.Command {
	var blueprintPath string
	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Print the indexed dependency graph, or a blueprint, as Mermaid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if blueprintPath != "" {
				payload, _, err := readPayload(blueprintPath)
				if err != nil {
					return err
				}
				g, warnings := blueprint.Normalize(payload)
				for _, w := range warnings {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
				}
				_, err = io.WriteString(cmd.OutOrStdout(), export.BlueprintDiagram(g))
				return err
			}

			ws, _, err := openWorkspace(cmd, flags, false)
			if err != nil {
				return err
			}
			defer ws.Close()

			ix, err := ws.Index(cmd.Context())
			if err != nil {
				return err
			}
			dg, err := ix.DependencyGraph(cmd.Context())
			if err != nil {
				return err
			}
			if len(dg.Files) == 0 {
				return fmt.Errorf("no index found for %s\nRun 'blueprint index' first", ws.Root())
			}
			_, err = io.WriteString(cmd.OutOrStdout(), export.DependencyDiagram(dg))
			return err
		},
	}
	cmd.Flags().StringVarP(&blueprintPath, "blueprint", "b", "", "render this blueprint (.json or .mmd) instead of the index")
	return cmd
}
