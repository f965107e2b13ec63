//go:build cgo

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/blueprint/internal/a2a"
	"github.com/dusk-indust/blueprint/internal/blueprint"
	"github.com/dusk-indust/blueprint/internal/config"
	"github.com/dusk-indust/blueprint/internal/graph"
	"github.com/dusk-indust/blueprint/internal/oracle"
	"github.com/dusk-indust/blueprint/internal/reconcile"
)

const webFixture = "../../testdata/fixtures/web_project"

func memStores(string) (graph.Store, error) { return graph.NewMemStore(), nil }

func openWorkspace(t *testing.T, opts ...Option) *Workspace {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.CopyFS(root, os.DirFS(webFixture)))

	opts = append([]Option{WithStoreOpener(memStores)}, opts...)
	w, err := Open(root, config.Default(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w
}

func replaceOracle(old, repl string) oracle.ContentOracle {
	return oracle.Func(func(_ context.Context, prompt string, _ oracle.Options) (string, error) {
		return strings.ReplaceAll(oracle.LastFencedBlock(prompt), old, repl), nil
	})
}

func commitRequest() reconcile.Request {
	return reconcile.Request{Payload: blueprint.Payload{
		Nodes: []blueprint.RawNode{
			{ID: "a", Data: blueprint.RawNodeData{Kind: "actual", Path: "src/a.js", Instructions: "greet with hi"}},
			{ID: "util", Data: blueprint.RawNodeData{Kind: "actual", Path: "src/util/index.ts"}},
		},
		Edges: []blueprint.RawEdge{{Source: "a", Target: "util"}},
	}}
}

func TestCommit_NoOracle(t *testing.T) {
	_, err := openWorkspace(t).Commit(context.Background(), commitRequest())
	assert.ErrorIs(t, err, ErrNoOracle)
}

func TestCommit_BeforeIndexing(t *testing.T) {
	w := openWorkspace(t, WithOracle(oracle.Echo{}))
	ctx := context.Background()

	resp, err := w.Commit(ctx, commitRequest())
	require.NoError(t, err)
	assert.False(t, resp.Applied)
	assert.Contains(t, resp.Summary, "no files")
	assert.NotEmpty(t, resp.Questions)

	entries, err := w.History().List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, resp.CommitID, entries[0].ID)
}

func TestBuildIndexThenCommit(t *testing.T) {
	w := openWorkspace(t, WithOracle(replaceOracle("hello", "hi")))
	ctx := context.Background()

	stats, err := w.BuildIndex(ctx, w.Config().Build())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.FileCount)

	resp, err := w.Commit(ctx, commitRequest())
	require.NoError(t, err)
	assert.True(t, resp.Applied)
	require.Len(t, resp.ChangedFiles, 1)
	assert.Equal(t, "src/a.js", resp.ChangedFiles[0].FilePath)
	assert.Empty(t, resp.Comparison.AddedEdges, "a.js already imports util")

	got, err := os.ReadFile(filepath.Join(w.Root(), "src", "a.js"))
	require.NoError(t, err)
	assert.Contains(t, string(got), "hi ${name}")

	// The index saw the rewrite and kept a.js's import.
	ix, err := w.Index(ctx)
	require.NoError(t, err)
	dg, err := ix.DependencyGraph(ctx)
	require.NoError(t, err)
	assert.Contains(t, dg.Edges, graph.DependencyEdge{Source: "src/a.js", Target: "src/util/index.ts"})

	recorded, err := w.History().Get(ctx, resp.CommitID)
	require.NoError(t, err)
	assert.Equal(t, resp.Summary, recorded.Summary)

	n, err := testutil.GatherAndCount(w.Metrics().Registry(), "blueprint_commits_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBuildIndex_ReplacesPreviousIndex(t *testing.T) {
	w := openWorkspace(t)
	ctx := context.Background()

	_, err := w.BuildIndex(ctx, graph.BuildOptions{})
	require.NoError(t, err)
	stats, err := w.BuildIndex(ctx, graph.BuildOptions{ExcludeGlobs: []string{"docs/**"}})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.FileCount)
}

func TestBuildIndex_WaitsForRunningCommit(t *testing.T) {
	entered, release := make(chan struct{}), make(chan struct{})
	var once sync.Once
	blocking := oracle.Func(func(context.Context, string, oracle.Options) (string, error) {
		once.Do(func() { close(entered) })
		<-release
		return "export const fresh = true;\n", nil
	})
	w := openWorkspace(t, WithOracle(blocking))
	ctx := context.Background()
	_, err := w.BuildIndex(ctx, graph.BuildOptions{})
	require.NoError(t, err)

	type commitResult struct {
		resp *reconcile.Response
		err  error
	}
	committed := make(chan commitResult, 1)
	go func() {
		resp, err := w.Commit(ctx, reconcile.Request{Payload: blueprint.Payload{Nodes: []blueprint.RawNode{
			{ID: "fresh", Data: blueprint.RawNodeData{Kind: "actual", Path: "src/fresh.js", Instructions: "export a flag"}},
		}}})
		committed <- commitResult{resp, err}
	}()
	<-entered

	rebuilt := make(chan error, 1)
	go func() {
		_, err := w.BuildIndex(ctx, graph.BuildOptions{})
		rebuilt <- err
	}()
	select {
	case <-rebuilt:
		t.Fatal("index rebuilt while a commit was writing to it")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	res := <-committed
	require.NoError(t, res.err)
	assert.True(t, res.resp.Applied)
	require.NoError(t, <-rebuilt)

	ix, err := w.Index(ctx)
	require.NoError(t, err)
	dg, err := ix.DependencyGraph(ctx)
	require.NoError(t, err)
	var paths []string
	for _, f := range dg.Files {
		paths = append(paths, f.FullPath)
	}
	assert.Contains(t, paths, "src/fresh.js")
}

func TestClose_IsIdempotent(t *testing.T) {
	w := openWorkspace(t)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	_, err := w.Index(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = w.BuildIndex(context.Background(), graph.BuildOptions{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewOracle(t *testing.T) {
	ctx := context.Background()
	client := a2a.NewHTTPClient()

	tests := []struct {
		name    string
		mutate  func(*config.ProjectConfig)
		backend oracle.Backend
		check   func(t *testing.T, oc oracle.ContentOracle)
	}{
		{
			name:    "echo is not wrapped",
			mutate:  func(c *config.ProjectConfig) { c.Oracle.Backend = "echo" },
			backend: oracle.BackendEcho,
			check: func(t *testing.T, oc oracle.ContentOracle) {
				assert.IsType(t, oracle.Echo{}, oc)
			},
		},
		{
			name: "openai retries",
			mutate: func(c *config.ProjectConfig) {
				c.Oracle.Backend = "openai"
				c.Oracle.APIKey = "sk-test"
			},
			backend: oracle.BackendOpenAI,
			check: func(t *testing.T, oc oracle.ContentOracle) {
				assert.IsType(t, &oracle.Retrying{}, oc)
			},
		},
		{
			name: "rate limit wraps retries",
			mutate: func(c *config.ProjectConfig) {
				c.Oracle.Backend = "openai"
				c.Oracle.APIKey = "sk-test"
				c.Oracle.RateLimit = 2
			},
			backend: oracle.BackendOpenAI,
			check: func(t *testing.T, oc oracle.ContentOracle) {
				assert.IsType(t, &oracle.RateLimited{}, oc)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			oc, backend, err := newOracle(ctx, cfg, client, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.backend, backend)
			tt.check(t, oc)
		})
	}
}
