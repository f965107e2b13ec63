package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/blueprint/internal/graph"
)

func newIndexCmd(flags *cliFlags) *cobra.Command {
	var (
		languages    []string
		excludeGlobs []string
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the workspace's files and imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, _, err := openWorkspace(cmd, flags, false)
			if err != nil {
				return err
			}
			defer ws.Close()

			opts := ws.Config().Build()
			if len(languages) > 0 {
				opts.Languages = nil
				for _, l := range languages {
					opts.Languages = append(opts.Languages, graph.Language(l))
				}
			}
			opts.ExcludeGlobs = append(opts.ExcludeGlobs, excludeGlobs...)

			stats, err := ws.BuildIndex(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files, %d symbols, %d edges.\n",
				stats.FileCount, stats.SymbolCount, stats.EdgeCount)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&languages, "lang", nil, "languages to index (default: configured or all)")
	cmd.Flags().StringSliceVar(&excludeGlobs, "exclude", nil, "extra doublestar patterns to exclude")
	return cmd
}
