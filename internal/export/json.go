// Package export renders commit reports and graphs for people and tools.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dusk-indust/blueprint/internal/reconcile"
)

// ReportExport is the JSON document written for a commit.
type ReportExport struct {
	ExportedAt string `json:"exportedAt"`
	*reconcile.Response
}

// NewReport stamps resp with the export time.
func NewReport(resp *reconcile.Response, at time.Time) ReportExport {
	return ReportExport{ExportedAt: at.UTC().Format(time.RFC3339), Response: resp}
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteReportFile writes the report to path, creating parent directories.
func WriteReportFile(path string, resp *reconcile.Response) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := WriteJSON(f, NewReport(resp, time.Now())); err != nil {
		f.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return f.Close()
}

// WriteText writes a human-readable commit report.
func WriteText(w io.Writer, resp *reconcile.Response) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "commit %s\n", resp.CommitID)
	fmt.Fprintf(&sb, "%s\n", resp.Summary)

	if len(resp.ChangedFiles) > 0 {
		sb.WriteString("\nFiles:\n")
		tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
		for _, f := range resp.ChangedFiles {
			note := f.Error
			if note == "" && f.ForcedFallback {
				note = "fallback: " + f.FallbackReason
			}
			fmt.Fprintf(tw, "  %s\t%s\t%+d bytes\t%s\n", f.Action, f.FilePath, f.BytesAfter-f.BytesBefore, note)
		}
		tw.Flush()
	}

	c := resp.Comparison
	fmt.Fprintf(&sb, "\nEdges: %d current, %d desired (%d mapped, coverage %.2f), +%d -%d\n",
		c.CurrentEdgeCount, c.DesiredEdgeCount, c.MappedDesiredEdgeCount, c.MappingCoverage,
		len(c.AddedEdges), len(c.RemovedEdges))

	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n%s:\n", title)
		for _, l := range lines {
			fmt.Fprintf(&sb, "  - %s\n", l)
		}
	}
	section("Warnings", resp.Warnings)
	section("Questions", resp.Questions)

	var review []string
	for _, item := range resp.Plan {
		switch {
		case item.Type != reconcile.PlanManualReview:
		case item.Path == "":
			review = append(review, item.Reason)
		default:
			review = append(review, item.Path+": "+item.Reason)
		}
	}
	section("Needs review", review)

	_, err := io.WriteString(w, sb.String())
	return err
}
