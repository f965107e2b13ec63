package graph

import (
	"bufio"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Resolver maps raw import specifiers to indexed repo-relative file paths.
// It never touches the filesystem after construction; lookups go through
// the known file set.
type Resolver struct {
	fileSet   map[string]bool
	dirIndex  map[string][]string
	goModPath string
}

// NewResolver builds a Resolver from the repository root and the known
// repo-relative file paths. The root's go.mod, if any, provides the module
// path used for Go imports.
func NewResolver(repoRoot string, knownFiles []string) *Resolver {
	r := &Resolver{
		fileSet:  make(map[string]bool, len(knownFiles)),
		dirIndex: make(map[string][]string),
	}
	for _, f := range knownFiles {
		r.AddFile(f)
	}
	r.goModPath = readGoModulePath(filepath.Join(repoRoot, "go.mod"))
	return r
}

// AddFile registers a newly created file so later imports can resolve to it.
func (r *Resolver) AddFile(p string) {
	if r.fileSet[p] {
		return
	}
	r.fileSet[p] = true
	dir := path.Dir(p)
	r.dirIndex[dir] = append(r.dirIndex[dir], p)
	sort.Strings(r.dirIndex[dir])
}

// Resolve returns the indexed file an import specifier in sourceFile refers
// to. ok is false for external, stdlib or unknown targets.
func (r *Resolver) Resolve(specifier, sourceFile string, lang Language) (string, bool) {
	switch lang {
	case LangTypeScript, LangJavaScript:
		return r.resolveJS(specifier, sourceFile)
	case LangGo:
		return r.resolveGo(specifier)
	case LangPython:
		return r.resolvePython(specifier, sourceFile)
	case LangRust:
		return r.resolveRust(specifier, sourceFile)
	}
	return "", false
}

// ResolveAll resolves every specifier and returns the distinct targets in
// input order. Self-imports are dropped.
func (r *Resolver) ResolveAll(specifiers []string, sourceFile string, lang Language) []string {
	var out []string
	for _, spec := range specifiers {
		target, ok := r.Resolve(spec, sourceFile, lang)
		if !ok || target == sourceFile {
			continue
		}
		out = appendUnique(out, target)
	}
	return out
}

// --- TypeScript / JavaScript ---

var jsExtensions = []string{
	".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs",
	"/index.ts", "/index.tsx", "/index.js", "/index.jsx",
}

func (r *Resolver) resolveJS(specifier, sourceFile string) (string, bool) {
	if !strings.HasPrefix(specifier, "./") && !strings.HasPrefix(specifier, "../") {
		return "", false // package import
	}
	base := path.Clean(path.Join(path.Dir(sourceFile), specifier))
	if resolved, ok := r.probeFile(base, jsExtensions); ok {
		return resolved, true
	}
	// "./foo.js" written for a foo.ts source (TS ESM convention).
	if ext := path.Ext(base); ext == ".js" || ext == ".jsx" {
		return r.probeFile(strings.TrimSuffix(base, ext), []string{".ts", ".tsx"})
	}
	return "", false
}

// --- Go ---

func (r *Resolver) resolveGo(importPath string) (string, bool) {
	if r.goModPath == "" || !strings.HasPrefix(importPath, r.goModPath) {
		return "", false // stdlib or external module
	}
	relDir := strings.TrimPrefix(strings.TrimPrefix(importPath, r.goModPath), "/")
	if relDir == "" {
		relDir = "."
	}
	for _, f := range r.dirIndex[relDir] {
		if strings.HasSuffix(f, ".go") && !strings.HasSuffix(f, "_test.go") {
			return f, true
		}
	}
	return "", false
}

// --- Python ---

func (r *Resolver) resolvePython(specifier, sourceFile string) (string, bool) {
	if !strings.HasPrefix(specifier, ".") {
		return "", false // absolute import
	}
	dots := len(specifier) - len(strings.TrimLeft(specifier, "."))
	modulePart := specifier[dots:]

	// One dot is the current package, each further dot one level up.
	baseDir := path.Dir(sourceFile)
	for i := 1; i < dots; i++ {
		baseDir = path.Dir(baseDir)
	}
	if modulePart == "" {
		return r.probeFile(path.Join(baseDir, "__init__"), []string{".py"})
	}
	base := path.Join(baseDir, strings.ReplaceAll(modulePart, ".", "/"))
	return r.probeFile(base, []string{".py", "/__init__.py"})
}

// --- Rust ---

var rustExtensions = []string{".rs", "/mod.rs"}

func (r *Resolver) resolveRust(specifier, sourceFile string) (string, bool) {
	if idx := strings.Index(specifier, "::{"); idx != -1 {
		specifier = specifier[:idx]
	}

	var candidates []string
	switch {
	case strings.HasPrefix(specifier, "crate::"):
		rel := strings.ReplaceAll(strings.TrimPrefix(specifier, "crate::"), "::", "/")
		if root := findCrateRoot(sourceFile); root != "" {
			candidates = append(candidates, path.Join(root, rel))
		}
		candidates = append(candidates, path.Join("src", rel), rel)
	case strings.HasPrefix(specifier, "self::"):
		rel := strings.ReplaceAll(strings.TrimPrefix(specifier, "self::"), "::", "/")
		candidates = append(candidates, path.Join(path.Dir(sourceFile), rel))
	case strings.HasPrefix(specifier, "super::"):
		rel := strings.ReplaceAll(strings.TrimPrefix(specifier, "super::"), "::", "/")
		candidates = append(candidates, path.Join(path.Dir(path.Dir(sourceFile)), rel))
	default:
		return "", false // external crate
	}

	for _, base := range candidates {
		// "crate::model::User" may name an item inside model.rs.
		for trimmed := base; trimmed != "." && trimmed != "/" && trimmed != ""; trimmed = path.Dir(trimmed) {
			if resolved, ok := r.probeFile(trimmed, rustExtensions); ok {
				return resolved, true
			}
			if !strings.Contains(trimmed, "/") {
				break
			}
		}
	}
	return "", false
}

// findCrateRoot returns the nearest enclosing "src" directory, or "".
func findCrateRoot(filePath string) string {
	for dir := path.Dir(filePath); dir != "." && dir != "/" && dir != ""; dir = path.Dir(dir) {
		if path.Base(dir) == "src" {
			return dir
		}
	}
	return ""
}

// --- Shared helpers ---

// probeFile checks basePath, then basePath with each extension appended,
// against the known file set.
func (r *Resolver) probeFile(basePath string, extensions []string) (string, bool) {
	if r.fileSet[basePath] {
		return basePath, true
	}
	for _, ext := range extensions {
		if candidate := basePath + ext; r.fileSet[candidate] {
			return candidate, true
		}
	}
	return "", false
}

func readGoModulePath(goMod string) string {
	f, err := os.Open(goMod)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module"))
		}
	}
	return ""
}
