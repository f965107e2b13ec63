package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/blueprint/internal/blueprint"
	"github.com/dusk-indust/blueprint/internal/graph"
)

func actualNode(id, path, instructions string) blueprint.RawNode {
	return blueprint.RawNode{ID: id, Data: blueprint.RawNodeData{Kind: "actual", Path: path, Instructions: instructions}}
}

func normalized(t *testing.T, nodes ...blueprint.RawNode) *blueprint.Graph {
	t.Helper()
	g, _ := blueprint.Normalize(blueprint.Payload{Nodes: nodes})
	return g
}

func TestBuildUpdates_MergesByPath(t *testing.T) {
	root := t.TempDir()
	g := normalized(t,
		actualNode("a1", "src/a.js", "rename x to y"),
		actualNode("b", "src/b.js", ""),
		actualNode("a2", "./src//a.js", "export y"),
	)

	wl := BuildUpdates(g, nil, WorkOptions{Root: root})

	require.Len(t, wl.Updates, 1)
	u := wl.Updates[0]
	assert.Equal(t, "src/a.js", u.RelativePath)
	assert.Equal(t, filepath.Join(root, "src", "a.js"), u.AbsolutePath)
	assert.Equal(t, []string{"a1", "a2"}, u.NodeIDs)
	assert.Equal(t, []string{"rename x to y", "export y"}, u.Instructions)
	assert.Equal(t, blueprint.KindActual, u.NodeKind)
	assert.Equal(t, "javascript", u.LanguageHint)
	assert.Empty(t, wl.Warnings)
}

func TestBuildUpdates_RejectsEscapes(t *testing.T) {
	g := normalized(t,
		actualNode("up", "../etc/passwd", "own it"),
		actualNode("sneaky", "src/../../x.go", "own it"),
		actualNode("abs", "/etc/hosts", "pin it"),
	)

	wl := BuildUpdates(g, nil, WorkOptions{Root: "/work"})

	require.Len(t, wl.Updates, 1)
	assert.Equal(t, "etc/hosts", wl.Updates[0].RelativePath)
	assert.Equal(t, filepath.Join("/work", "etc", "hosts"), wl.Updates[0].AbsolutePath)
	require.Len(t, wl.Warnings, 2)
	assert.Contains(t, wl.Warnings[0], "Skipped node up")
	assert.Contains(t, wl.Warnings[0], ErrPathEscape.Error())
	assert.Contains(t, wl.Warnings[1], "Skipped node sneaky")
}

func TestBuildUpdates_RejectsSymlinkEscapes(t *testing.T) {
	root, outside := t.TempDir(), t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "linked")))
	require.NoError(t, os.Symlink(filepath.Join(root, "src"), filepath.Join(root, "alias")))

	g := normalized(t,
		actualNode("pwn", "linked/pwn.js", "own it"),
		actualNode("deep", "linked/new/dir/x.js", "own it"),
		actualNode("inside", "alias/a.js", "fine"),
	)

	wl := BuildUpdates(g, nil, WorkOptions{Root: root})

	require.Len(t, wl.Updates, 1)
	assert.Equal(t, "alias/a.js", wl.Updates[0].RelativePath)
	require.Len(t, wl.Warnings, 2)
	assert.Contains(t, wl.Warnings[0], "Skipped node pwn")
	assert.Contains(t, wl.Warnings[0], ErrPathEscape.Error())
	assert.Contains(t, wl.Warnings[1], "Skipped node deep")
}

func TestBuildUpdates_CommitLimit(t *testing.T) {
	var nodes []blueprint.RawNode
	for i := range 6 {
		nodes = append(nodes, actualNode(fmt.Sprintf("n%d", i), fmt.Sprintf("f%d.go", i), "document it"))
	}
	g := normalized(t, nodes...)

	wl := BuildUpdates(g, nil, WorkOptions{Root: "/work"})
	require.Len(t, wl.Updates, DefaultCommitLimit)
	assert.Equal(t, []string{"f4.go", "f5.go"}, wl.Deferred)
	require.Len(t, wl.Warnings, 1)
	assert.Contains(t, wl.Warnings[0], "Commit limit of 4 file(s) reached; deferred: f4.go, f5.go.")

	wl = BuildUpdates(g, nil, WorkOptions{Root: "/work", CommitLimit: 2})
	assert.Len(t, wl.Updates, 2)
	assert.Len(t, wl.Deferred, 4)
}

func TestBuildUpdates_SelectionOverridesLimit(t *testing.T) {
	var nodes []blueprint.RawNode
	sel := map[string]bool{}
	for i := range 6 {
		id := fmt.Sprintf("n%d", i)
		nodes = append(nodes, actualNode(id, fmt.Sprintf("f%d.go", i), "document it"))
		if i != 2 {
			sel[id] = true
		}
	}
	g := normalized(t, nodes...)

	wl := BuildUpdates(g, nil, WorkOptions{Root: "/work", Selection: sel})
	require.Len(t, wl.Updates, 5)
	assert.Empty(t, wl.Deferred)
	for _, u := range wl.Updates {
		assert.NotEqual(t, "f2.go", u.RelativePath)
	}

	wl = BuildUpdates(g, nil, WorkOptions{Root: "/work", Selection: map[string]bool{}})
	assert.Empty(t, wl.Updates)
}

func TestBuildUpdates_Drafts(t *testing.T) {
	g := normalized(t,
		blueprint.RawNode{ID: "idea", Data: blueprint.RawNodeData{Kind: "draft", Goal: "add a cache layer"}},
		blueprint.RawNode{ID: "quiet", Data: blueprint.RawNodeData{Kind: "draft"}},
	)

	wl := BuildUpdates(g, nil, WorkOptions{Root: "/work"})

	assert.Empty(t, wl.Updates)
	require.Len(t, wl.Review, 1)
	assert.Equal(t, PlanManualReview, wl.Review[0].Type)
	assert.Equal(t, "Draft goal: add a cache layer", wl.Review[0].Reason)
	assert.Equal(t, []string{"Draft node idea has instructions but no file; it needs manual review."}, wl.Warnings)
}

func TestBuildUpdates_ResolutionTargets(t *testing.T) {
	g := normalized(t,
		actualNode("login", "", "add rate limiting"),
		actualNode("auth", "src/new/auth.ts", "create it"),
	)
	resolved := map[string]Resolution{
		"login": {Match: MatchExact, Path: "src/auth/login.ts"},
		"auth":  {Match: MatchFuzzy, Path: "src/auth/login.ts"},
	}
	langs := map[string]graph.Language{"src/auth/login.ts": graph.LangTypeScript}

	wl := BuildUpdates(g, resolved, WorkOptions{Root: "/work", Languages: langs})

	require.Len(t, wl.Updates, 2)
	assert.Equal(t, "src/auth/login.ts", wl.Updates[0].RelativePath)
	assert.Equal(t, "typescript", wl.Updates[0].LanguageHint)
	assert.Equal(t, "src/new/auth.ts", wl.Updates[1].RelativePath)
}
