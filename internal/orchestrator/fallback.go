package orchestrator

import (
	"path"
	"strings"
	"unicode"
)

// commentSyntax is how a language writes a one-line comment.
type commentSyntax struct {
	open, close string
}

var commentSyntaxes = map[string]commentSyntax{}

func init() {
	register := func(cs commentSyntax, exts ...string) {
		for _, ext := range exts {
			commentSyntaxes[ext] = cs
		}
	}
	register(commentSyntax{open: "// "},
		".go", ".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts", ".rs",
		".java", ".kt", ".swift", ".c", ".h", ".cc", ".cpp", ".hpp", ".cs", ".scala", ".dart", ".php")
	register(commentSyntax{open: "# "},
		".py", ".rb", ".sh", ".bash", ".zsh", ".yaml", ".yml", ".toml", ".pl", ".r", ".ex", ".exs", ".tf", ".cfg")
	register(commentSyntax{open: "-- "}, ".sql", ".lua", ".hs")
	register(commentSyntax{open: "<!-- ", close: " -->"}, ".html", ".htm", ".xml", ".svg", ".vue")
	register(commentSyntax{open: "/* ", close: " */"}, ".css", ".scss", ".less")
}

func commentSyntaxFor(p string) (commentSyntax, bool) {
	cs, ok := commentSyntaxes[strings.ToLower(path.Ext(p))]
	return cs, ok
}

// Fallback deterministically derives content that differs from the file's
// current content and records the instructions in a form native to the
// file type. Callers must still check the result differs.
func Fallback(u Update, kind fileKind) string {
	instructions := instructionLines(u.Instructions)
	current := u.CurrentContent

	var sb strings.Builder
	switch kind {
	case kindMarkdown:
		if strings.TrimSpace(current) == "" {
			sb.WriteString("# " + titleFromPath(u.RelativePath) + "\n\n")
			sb.WriteString("## Rewritten Content\n\n")
			for _, line := range instructions {
				sb.WriteString(line + "\n")
			}
			return sb.String()
		}
		sb.WriteString(withNewline(current))
		sb.WriteString("\n## Enforcement Addendum\n\n")
		for _, line := range instructions {
			sb.WriteString("- " + line + "\n")
		}

	case kindText:
		sb.WriteString(withNewline(current))
		if current != "" {
			sb.WriteString("\n")
		}
		sb.WriteString("Enforcement addendum:\n")
		for _, line := range instructions {
			sb.WriteString("- " + line + "\n")
		}

	case kindJSON:
		// Any comment would break the document; extra whitespace is inert.
		sb.WriteString(current)
		sb.WriteString("\n")

	default:
		cs, _ := commentSyntaxFor(u.RelativePath)
		sb.WriteString(withNewline(current))
		for _, line := range instructions {
			sb.WriteString(cs.open + "blueprint: " + escapeComment(line, cs) + cs.close + "\n")
		}
	}
	return sb.String()
}

// instructionLines flattens instructions into non-empty trimmed lines.
func instructionLines(instructions []string) []string {
	var out []string
	for _, text := range instructions {
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// escapeComment keeps a block comment's closer out of its body.
func escapeComment(line string, cs commentSyntax) string {
	if cs.close == "" {
		return line
	}
	closer := strings.TrimSpace(cs.close)
	return strings.ReplaceAll(line, closer, closer[:1]+" "+closer[1:])
}

// titleFromPath turns "docs/getting-started.md" into "Getting Started".
func titleFromPath(p string) string {
	base := strings.TrimSuffix(path.Base(p), path.Ext(p))
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' || r == ' ' || r == '.' })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	if len(words) == 0 {
		return "Document"
	}
	return strings.Join(words, " ")
}
