//go:build cgo

package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements Store on KuzuDB. It requires CGO because the go-kuzu
// driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory database.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore opens (or creates) a persistent index at dbPath. KuzuDB
// creates the leaf directory itself.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(dbPath string) (*KuzuStore, error) {
	db, err := kuzu.OpenDatabase(dbPath, kuzu.DefaultSystemConfig())
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database %s: %w", dbPath, err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements run in order: node tables before relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS File(
		path STRING,
		language STRING,
		loc INT64,
		label STRING,
		imports STRING,
		PRIMARY KEY(path)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Symbol(
		id STRING,
		name STRING,
		kind STRING,
		exported BOOLEAN,
		file_path STRING,
		start_line INT64,
		end_line INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS DEFINES(FROM File TO Symbol)`,
	`CREATE REL TABLE IF NOT EXISTS IMPORTS(FROM File TO File)`,
}

// InitSchema creates all tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddFile upserts a File node.
func (s *KuzuStore) AddFile(_ context.Context, node FileNode) error {
	return s.exec(
		`MERGE (f:File {path: $path})
		 SET f.language = $lang, f.loc = $loc, f.label = $label, f.imports = $imports`,
		map[string]any{
			"path":    node.Path,
			"lang":    string(node.Language),
			"loc":     int64(node.LOC),
			"label":   node.Label,
			"imports": strings.Join(node.Imports, "\n"),
		},
	)
}

// AddSymbol upserts a Symbol node keyed by "filePath:name".
func (s *KuzuStore) AddSymbol(_ context.Context, node SymbolNode) error {
	return s.exec(
		`MERGE (s:Symbol {id: $id})
		 SET s.name = $name, s.kind = $kind, s.exported = $exported,
		     s.file_path = $fp, s.start_line = $sl, s.end_line = $el`,
		map[string]any{
			"id":       symbolKey(node.FilePath, node.Name),
			"name":     node.Name,
			"kind":     string(node.Kind),
			"exported": node.Exported,
			"fp":       node.FilePath,
			"sl":       int64(node.StartLine),
			"el":       int64(node.EndLine),
		},
	)
}

// AddEdge creates a relationship unless it already exists.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	var cypher string
	switch edge.Kind {
	case EdgeKindDefines:
		cypher = `MATCH (a:File {path: $src}), (b:Symbol {id: $dst})
				MERGE (a)-[:DEFINES]->(b)`
	case EdgeKindImports:
		cypher = `MATCH (a:File {path: $src}), (b:File {path: $dst})
				MERGE (a)-[:IMPORTS]->(b)`
	default:
		return fmt.Errorf("kuzu: unsupported edge kind: %s", edge.Kind)
	}
	return s.exec(cypher, map[string]any{
		"src": edge.SourceID,
		"dst": edge.TargetID,
	})
}

// RemoveFile deletes the file, its symbols and every attached relationship.
func (s *KuzuStore) RemoveFile(_ context.Context, path string) error {
	params := map[string]any{"path": path}
	if err := s.exec("MATCH (s:Symbol) WHERE s.file_path = $path DETACH DELETE s", params); err != nil {
		return err
	}
	return s.exec("MATCH (f:File {path: $path}) DETACH DELETE f", params)
}

// ---------- Read operations ----------

const fileColumns = "f.path, f.language, f.loc, f.label, f.imports"

// GetFile retrieves a File node by path, or nil if not found.
func (s *KuzuStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	rows, err := s.query(
		"MATCH (f:File {path: $path}) RETURN "+fileColumns,
		map[string]any{"path": path},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	f := rowToFile(rows[0])
	return &f, nil
}

// ListFiles returns every File node ordered by path.
func (s *KuzuStore) ListFiles(_ context.Context) ([]FileNode, error) {
	rows, err := s.query("MATCH (f:File) RETURN "+fileColumns+" ORDER BY f.path", nil)
	if err != nil {
		return nil, err
	}
	out := make([]FileNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToFile(r))
	}
	return out, nil
}

const symbolColumns = "s.name, s.kind, s.exported, s.file_path, s.start_line, s.end_line"

// FileSymbols returns the symbols defined by path ordered by start line.
func (s *KuzuStore) FileSymbols(_ context.Context, path string) ([]SymbolNode, error) {
	rows, err := s.query(
		`MATCH (s:Symbol) WHERE s.file_path = $path
		 RETURN `+symbolColumns+` ORDER BY s.start_line, s.name`,
		map[string]any{"path": path},
	)
	if err != nil {
		return nil, err
	}
	return rowsToSymbols(rows), nil
}

// QuerySymbols returns symbols whose name contains query, ignoring case.
// A limit <= 0 returns all matches.
func (s *KuzuStore) QuerySymbols(_ context.Context, query string, limit int) ([]SymbolNode, error) {
	cypher := `MATCH (s:Symbol) WHERE lower(s.name) CONTAINS lower($q)
		 RETURN ` + symbolColumns + ` ORDER BY s.id`
	params := map[string]any{"q": query}
	if limit > 0 {
		cypher += " LIMIT $lim"
		params["lim"] = int64(limit)
	}
	rows, err := s.query(cypher, params)
	if err != nil {
		return nil, err
	}
	return rowsToSymbols(rows), nil
}

// GetAllEdges returns DEFINES and IMPORTS relationships.
func (s *KuzuStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	queries := []struct {
		cypher string
		kind   EdgeKind
	}{
		{"MATCH (a:File)-[:DEFINES]->(b:Symbol) RETURN a.path, b.id", EdgeKindDefines},
		{"MATCH (a:File)-[:IMPORTS]->(b:File) RETURN a.path, b.path", EdgeKindImports},
	}

	var edges []Edge
	for _, q := range queries {
		rows, err := s.query(q.cypher, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			edges = append(edges, Edge{
				SourceID: toString(r[0]),
				TargetID: toString(r[1]),
				Kind:     q.kind,
			})
		}
	}
	return edges, nil
}

// ---------- Graph traversal ----------

// GetDependencies performs a BFS over IMPORTS edges starting at path.
func (s *KuzuStore) GetDependencies(_ context.Context, path string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{path: true}
	queue := []bfsEntry{{path: []string{path}, depth: 0}}
	var chains []DependencyChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.path[len(cur.path)-1]
		neighbors, err := s.fileNeighbors(tip, dir)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]string, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, DependencyChain{Nodes: newPath, Depth: cur.depth + 1})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

func (s *KuzuStore) fileNeighbors(path string, dir Direction) ([]string, error) {
	var cypher string
	switch dir {
	case DirectionDownstream:
		cypher = "MATCH (a:File {path: $path})-[:IMPORTS]->(b:File) RETURN b.path ORDER BY b.path"
	case DirectionUpstream:
		cypher = "MATCH (a:File)-[:IMPORTS]->(b:File {path: $path}) RETURN a.path ORDER BY a.path"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	rows, err := s.query(cypher, map[string]any{"path": path})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// ---------- Stats ----------

// Stats returns counts of files, symbols and relationships.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	files, err := s.count("MATCH (n:File) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	symbols, err := s.count("MATCH (n:Symbol) RETURN count(n)")
	if err != nil {
		return nil, err
	}
	defines, err := s.count("MATCH ()-[r:DEFINES]->() RETURN count(r)")
	if err != nil {
		return nil, err
	}
	imports, err := s.count("MATCH ()-[r:IMPORTS]->() RETURN count(r)")
	if err != nil {
		return nil, err
	}
	return &GraphStats{
		FileCount:   files,
		SymbolCount: symbols,
		EdgeCount:   defines + imports,
	}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized statement that produces no rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a statement and collects all rows in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToFile converts a fileColumns row.
func rowToFile(r []any) FileNode {
	f := FileNode{
		Path:     toString(r[0]),
		Language: Language(toString(r[1])),
		LOC:      toInt(r[2]),
		Label:    toString(r[3]),
	}
	if imports := toString(r[4]); imports != "" {
		f.Imports = strings.Split(imports, "\n")
	}
	return f
}

// rowsToSymbols converts symbolColumns rows.
func rowsToSymbols(rows [][]any) []SymbolNode {
	out := make([]SymbolNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, SymbolNode{
			Name:      toString(r[0]),
			Kind:      SymbolKind(toString(r[1])),
			Exported:  toBool(r[2]),
			FilePath:  toString(r[3]),
			StartLine: toInt(r[4]),
			EndLine:   toInt(r[5]),
		})
	}
	return out
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, bool, string, nil for NULL).

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}
