package reconcile

import (
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"

	"github.com/dusk-indust/blueprint/internal/orchestrator"
)

const (
	confidenceAccepted = 0.9
	confidenceFallback = 0.65
	confidenceNoop     = 0.55
	confidenceEdge     = 0.6
)

// planID derives a stable id from the item type and path.
func planID(t PlanItemType, key string) string {
	sum := blake3.Sum256([]byte(string(t) + "\x00" + key))
	return "plan-" + hex.EncodeToString(sum[:])[:12]
}

func newPlanItem(t PlanItemType, path, reason string, confidence float64) PlanItem {
	key := path
	if key == "" {
		key = reason
	}
	return PlanItem{
		ID:         planID(t, key),
		Type:       t,
		Path:       path,
		Reason:     reason,
		Confidence: clamp01(confidence),
	}
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// summarize renders the headline of a commit report.
func summarize(selected bool, queued, applied, failed, skipped int, dryRun bool) string {
	switch {
	case queued == 0 && selected:
		return "No edited nodes were selected for commit."
	case queued == 0:
		return "No node instructions were provided; nothing to apply."
	}
	var sb strings.Builder
	if dryRun {
		fmt.Fprintf(&sb, "Dry run: %d file(s) would be applied.", applied)
	} else {
		fmt.Fprintf(&sb, "Applied %d file(s).", applied)
	}
	if failed > 0 {
		fmt.Fprintf(&sb, " %d failed.", failed)
	}
	if skipped > 0 {
		fmt.Fprintf(&sb, " %d skipped.", skipped)
	}
	return sb.String()
}

// fileReport builds the changed-file entry and plan item for one result.
// written is whether the bytes reached disk; in a dry run it reports
// whether they would have.
func fileReport(w Written) (ChangedFile, PlanItem) {
	res := w.Result
	u := res.Update
	cf := ChangedFile{
		FilePath:        u.RelativePath,
		BytesBefore:     len(u.CurrentContent),
		BytesAfter:      len(u.CurrentContent),
		Instructions:    strings.Join(u.Instructions, "\n"),
		RewriteAttempts: res.Attempts,
		ForcedFallback:  res.ForcedFallback,
		FallbackReason:  res.FallbackReason,
		ChangeRatio:     res.ChangeRatio,
	}

	itemType := PlanUpdateFileGoal
	if !u.Exists {
		itemType = PlanCreateFile
	}
	confidence := confidenceNoop
	var reason string

	switch {
	case w.Err != nil:
		cf.Action = ActionFailed
		cf.Error = w.Err.Error()
		reason = "Write failed: " + cf.Error
	case res.Status == orchestrator.StatusFailed:
		cf.Action = ActionFailed
		cf.Error = errString(res.Err)
		reason = "Rewrite failed: " + cf.Error
	case res.Status == orchestrator.StatusSkipped:
		cf.Action = ActionUnchanged
		cf.Error = errString(res.Err)
		reason = "Left unchanged: " + cf.Error
	default:
		cf.Action = ActionUpdated
		if !u.Exists {
			cf.Action = ActionCreated
		}
		cf.Changed = res.Changed()
		cf.BytesAfter = len(res.Content)
		if res.ForcedFallback {
			confidence = confidenceFallback
			reason = "Applied deterministic fallback: " + res.FallbackReason
		} else {
			confidence = confidenceAccepted
			reason = "Rewrote file to satisfy: " + firstLine(cf.Instructions)
		}
	}
	return cf, newPlanItem(itemType, u.RelativePath, reason, confidence)
}

// edgeItems proposes dependency changes. Removals are limited to edges
// between files the blueprint maps, since unmapped files say nothing about
// intent.
func edgeItems(d EdgeDiff, mapped map[string]bool) []PlanItem {
	var items []PlanItem
	for _, e := range d.Added {
		it := newPlanItem(PlanAddDependency, e.Source+"=>"+e.Target,
			fmt.Sprintf("Blueprint connects %s to %s but the source does not import it.", e.Source, e.Target), confidenceEdge)
		it.Path, it.FromPath, it.ToPath = "", e.Source, e.Target
		items = append(items, it)
	}
	for _, e := range d.Removed {
		if !mapped[e.Source] || !mapped[e.Target] {
			continue
		}
		it := newPlanItem(PlanRemoveDependency, e.Source+"=>"+e.Target,
			fmt.Sprintf("%s imports %s but the blueprint does not connect them.", e.Source, e.Target), confidenceEdge)
		it.Path, it.FromPath, it.ToPath = "", e.Source, e.Target
		items = append(items, it)
	}
	return items
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
