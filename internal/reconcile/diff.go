package reconcile

import (
	"fmt"
	"sort"

	"github.com/dusk-indust/blueprint/internal/blueprint"
	"github.com/dusk-indust/blueprint/internal/graph"
)

// DefaultCoverageWarning is the mapping coverage below which a commit warns.
const DefaultCoverageWarning = 0.6

// DesiredEdges are the blueprint's edges mapped onto files.
type DesiredEdges struct {
	Mapped []EdgeRef
	// Total counts every blueprint edge, mapped or not.
	Total int
}

// MapEdges maps each blueprint edge whose endpoints both resolved to a
// file. Edges touching a draft or unresolved node are counted but not
// mapped.
func MapEdges(g *blueprint.Graph, resolved map[string]Resolution) DesiredEdges {
	d := DesiredEdges{Total: len(g.Edges)}
	for _, e := range g.Edges {
		src, ok1 := resolved[e.Source]
		dst, ok2 := resolved[e.Target]
		if !ok1 || !ok2 || !src.Resolved() || !dst.Resolved() {
			continue
		}
		d.Mapped = append(d.Mapped, EdgeRef{Source: src.Path, Target: dst.Path})
	}
	return d
}

// EdgeDiff is the result of Compare.
type EdgeDiff struct {
	Added           []EdgeRef
	Removed         []EdgeRef
	CurrentCount    int
	DesiredCount    int
	MappedCount     int
	MappingCoverage float64
}

// Compare diffs desired against the indexed edges. Added is desired minus
// current and Removed is current minus desired, both keyed by
// "source=>target" over normalized paths and sorted. Coverage is mapped
// over total desired edges, 1 when there are none.
func Compare(desired DesiredEdges, current []graph.DependencyEdge) EdgeDiff {
	want := edgeSet(desired.Mapped)
	have := make(map[string]EdgeRef, len(current))
	for _, e := range current {
		ref := EdgeRef{Source: blueprint.NormalizePath(e.Source), Target: blueprint.NormalizePath(e.Target)}
		have[ref.key()] = ref
	}

	d := EdgeDiff{
		Added:           []EdgeRef{},
		Removed:         []EdgeRef{},
		CurrentCount:    len(have),
		DesiredCount:    desired.Total,
		MappedCount:     len(desired.Mapped),
		MappingCoverage: 1,
	}
	for k, ref := range want {
		if _, ok := have[k]; !ok {
			d.Added = append(d.Added, ref)
		}
	}
	for k, ref := range have {
		if _, ok := want[k]; !ok {
			d.Removed = append(d.Removed, ref)
		}
	}
	sortEdges(d.Added)
	sortEdges(d.Removed)
	if desired.Total > 0 {
		d.MappingCoverage = float64(d.MappedCount) / float64(desired.Total)
	}
	return d
}

// CoverageWarning returns a warning when coverage is below threshold.
func (d EdgeDiff) CoverageWarning(threshold float64) (string, bool) {
	if d.MappingCoverage >= threshold {
		return "", false
	}
	return fmt.Sprintf("Only %d of %d blueprint edges map to indexed files (coverage %.2f). Name nodes after the files they represent for a closer mapping.",
		d.MappedCount, d.DesiredCount, d.MappingCoverage), true
}

func edgeSet(edges []EdgeRef) map[string]EdgeRef {
	out := make(map[string]EdgeRef, len(edges))
	for _, e := range edges {
		out[e.key()] = e
	}
	return out
}

func sortEdges(edges []EdgeRef) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
}
