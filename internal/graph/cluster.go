package graph

import (
	"sort"
	"strings"
)

// Cluster is a connected component of the import graph with two or more
// files.
type Cluster struct {
	// Name is the members' common directory prefix, or "" when they share
	// none.
	Name     string   `json:"name"`
	Members  []string `json:"members"`
	Cohesion float64  `json:"cohesion"`
}

// Clusters groups the files of dg into connected components over import
// edges, ignoring direction. Singletons are omitted. Output is sorted by
// first member.
func Clusters(dg *DependencyGraph) []Cluster {
	if dg == nil {
		return nil
	}
	adj := make(map[string]map[string]bool, len(dg.Files))
	for _, f := range dg.Files {
		adj[f.FullPath] = make(map[string]bool)
	}
	for _, e := range dg.Edges {
		if adj[e.Source] == nil || adj[e.Target] == nil || e.Source == e.Target {
			continue
		}
		adj[e.Source][e.Target] = true
		adj[e.Target][e.Source] = true
	}

	paths := make([]string, 0, len(adj))
	for p := range adj {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	visited := make(map[string]bool, len(paths))
	var out []Cluster
	for _, p := range paths {
		if visited[p] {
			continue
		}
		members := component(p, adj, visited)
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		out = append(out, Cluster{
			Name:     commonDir(members),
			Members:  members,
			Cohesion: cohesion(members, adj),
		})
	}
	return out
}

// component returns every node reachable from start, marking them visited.
func component(start string, adj map[string]map[string]bool, visited map[string]bool) []string {
	var members []string
	queue := []string{start}
	visited[start] = true
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		members = append(members, n)
		for next := range adj[n] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return members
}

// cohesion is the density of the component: undirected edges between
// members over the n*(n-1)/2 possible pairs.
func cohesion(members []string, adj map[string]map[string]bool) float64 {
	n := len(members)
	if n < 2 {
		return 0
	}
	edges := 0
	for _, m := range members {
		for next := range adj[m] {
			if m < next {
				edges++
			}
		}
	}
	return float64(edges) / float64(n*(n-1)/2)
}

// commonDir returns the longest directory prefix shared by paths, with a
// trailing slash.
func commonDir(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	dir := func(p string) string {
		if i := strings.LastIndex(p, "/"); i >= 0 {
			return p[:i+1]
		}
		return ""
	}
	prefix := dir(paths[0])
	for _, p := range paths[1:] {
		for !strings.HasPrefix(p, prefix) {
			prefix = dir(strings.TrimSuffix(prefix, "/"))
		}
	}
	return prefix
}
