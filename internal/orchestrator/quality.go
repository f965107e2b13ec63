package orchestrator

import (
	"fmt"
	"path"
	"strings"
)

// fileKind selects the acceptance rules and fallback format for a file.
type fileKind int

const (
	kindCode fileKind = iota
	kindMarkdown
	kindText
	kindJSON
)

// fullRewrite reports whether rewrites must clear the change threshold and
// the prose quality checks.
func (k fileKind) fullRewrite() bool {
	return k == kindMarkdown || k == kindText
}

func classifyFile(u Update) fileKind {
	switch u.LanguageHint {
	case "markdown":
		return kindMarkdown
	case "text":
		return kindText
	case "json":
		return kindJSON
	}
	switch strings.ToLower(path.Ext(u.RelativePath)) {
	case ".md", ".mdx", ".markdown":
		return kindMarkdown
	case ".json":
		return kindJSON
	case ".txt", ".rst", "":
		return kindText
	}
	if _, ok := commentSyntaxFor(u.RelativePath); !ok {
		return kindText
	}
	return kindCode
}

// ChangeRatio approximates how much of a file changed by comparing lines
// position by position: 1 - matched / max(len(before), len(after)).
// Inserting a line near the top counts every following line as changed.
func ChangeRatio(before, after string) float64 {
	a, b := splitLines(before), splitLines(after)
	total := max(len(a), len(b))
	if total == 0 {
		return 0
	}
	matched := 0
	for i := range min(len(a), len(b)) {
		if a[i] == b[i] {
			matched++
		}
	}
	return 1 - float64(matched)/float64(total)
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Sanitize strips one fence wrapping the whole response and ensures a
// trailing newline on non-empty output.
func Sanitize(out string) string {
	trimmed := strings.TrimSpace(out)
	if strings.HasPrefix(trimmed, "```") && strings.HasSuffix(trimmed, "```") {
		fence := trimmed[:len(trimmed)-len(strings.TrimLeft(trimmed, "`"))]
		first := strings.IndexByte(trimmed, '\n')
		last := strings.LastIndexByte(trimmed, '\n')
		if first >= 0 && last >= first && trimmed[last+1:] == fence {
			inner := trimmed[first+1 : last+1]
			// Two separate blocks, not one wrapper.
			if !strings.Contains("\n"+inner, "\n"+fence) {
				out = inner
			}
		}
	}
	if strings.TrimSpace(out) == "" {
		return ""
	}
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out
}

// minEchoChars is the shortest normalized instruction text checked for
// echoes. Shorter instructions ("fix", "shorten") occur naturally in prose.
const minEchoChars = 8

// markdownQualityIssue rejects prose rewrites that parrot the instructions
// or drop most of the document's structure. It returns "" when the rewrite
// passes.
func markdownQualityIssue(before, after string, instructions []string) string {
	instr := sanitizeInstructions(instructions)
	if len(instr) >= minEchoChars {
		lowerAfter := strings.ToLower(after)
		if n := strings.Count(lowerAfter, instr); n >= 3 {
			return fmt.Sprintf("instructions echoed %d times", n)
		}

		var lines, echoed int
		for _, line := range strings.Split(lowerAfter, "\n") {
			line = strings.TrimLeft(line, " \t#>*-")
			if line == "" {
				continue
			}
			lines++
			if strings.HasPrefix(line, instr) {
				echoed++
			}
		}
		if lines > 0 && float64(echoed)/float64(lines) > 0.2 {
			return fmt.Sprintf("%d of %d lines start with the instructions", echoed, lines)
		}
	}

	if orig := countHeadings(before); orig >= 3 {
		if kept := countHeadings(after); kept*2 < orig {
			return fmt.Sprintf("kept %d of %d top-level headings", kept, orig)
		}
	}
	return ""
}

// sanitizeInstructions joins, lowercases and collapses whitespace.
func sanitizeInstructions(instructions []string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.Join(instructions, " ")), " "))
}

func countHeadings(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "# ") {
			n++
		}
	}
	return n
}
