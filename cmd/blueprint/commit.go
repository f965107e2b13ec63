package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/blueprint/internal/blueprint"
	"github.com/dusk-indust/blueprint/internal/export"
	"github.com/dusk-indust/blueprint/internal/reconcile"
)

// Report formats accepted by --format.
const (
	formatJSON    = "json"
	formatText    = "text"
	formatMermaid = "mermaid"
)

func newCommitCmd(flags *cliFlags) *cobra.Command {
	var (
		payloadPath string
		dirty       []string
		dryRun      bool
		format      string
		outPath     string
	)
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Apply a blueprint's node instructions to the code",
		Long: `Compare a blueprint with the indexed code and rewrite the files of
instructed nodes. The blueprint is a JSON editor payload or a Mermaid
flowchart (.mmd) with "%% @instructions <id> <text>" comments.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			payload, warnings, err := readPayload(payloadPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dirty") {
				payload.DirtyNodeIDs = append([]string{}, dirty...)
			}

			ws, _, err := openWorkspace(cmd, flags, true)
			if err != nil {
				return err
			}
			defer ws.Close()

			resp, err := ws.Commit(cmd.Context(), reconcile.Request{
				Payload:  payload,
				Warnings: warnings,
				DryRun:   dryRun,
			})
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := export.WriteReportFile(outPath, resp); err != nil {
					return err
				}
			}
			return writeReport(cmd.OutOrStdout(), format, resp)
		},
	}
	cmd.Flags().StringVarP(&payloadPath, "payload", "p", "", "blueprint file (.json or .mmd), or - for JSON on stdin")
	cmd.Flags().StringSliceVar(&dirty, "dirty", nil, "node ids to commit (default: the payload's selection, or all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute rewrites without writing files")
	cmd.Flags().StringVar(&format, "format", formatText, "report format: json, text or mermaid")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "also write the JSON report to this file")
	cmd.MarkFlagRequired("payload")
	return cmd
}

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatText, formatMermaid:
		return nil
	}
	return fmt.Errorf("unknown format %q (want json, text or mermaid)", format)
}

// readPayload decodes a blueprint by file extension. Mermaid sources have
// no per-entry decode warnings.
func readPayload(path string) (blueprint.Payload, []string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return blueprint.Payload{}, nil, fmt.Errorf("read blueprint: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mmd", ".mermaid":
		p, err := blueprint.ParseMermaid(string(data))
		return p, nil, err
	default:
		return blueprint.ParsePayload(data)
	}
}

func writeReport(w io.Writer, format string, resp *reconcile.Response) error {
	switch format {
	case formatJSON:
		return export.WriteJSON(w, resp)
	case formatMermaid:
		_, err := io.WriteString(w, export.ComparisonDiagram(resp.Comparison))
		return err
	default:
		return export.WriteText(w, resp)
	}
}
