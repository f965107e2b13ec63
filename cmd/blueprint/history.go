package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(flags *cliFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded commits, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, _, err := openWorkspace(cmd, flags, false)
			if err != nil {
				return err
			}
			defer ws.Close()

			entries, err := ws.History().List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No commits recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COMMIT\tWHEN\tFILES\tSTATE\tSUMMARY")
			for _, e := range entries {
				state := "applied"
				switch {
				case e.DryRun:
					state = "dry-run"
				case !e.Applied:
					state = "no-op"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.ID, e.CreatedAt.Local().Format(time.DateTime), e.Files, state, e.Summary)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of commits to show (0 for all)")
	cmd.AddCommand(newHistoryShowCmd(flags))
	return cmd
}

func newHistoryShowCmd(flags *cliFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <commit-id>",
		Short: "Print the report of one commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ws, _, err := openWorkspace(cmd, flags, false)
			if err != nil {
				return err
			}
			defer ws.Close()

			resp, err := ws.History().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), format, resp)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "report format: json, text or mermaid")
	return cmd
}
