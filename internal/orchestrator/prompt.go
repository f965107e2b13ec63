package orchestrator

import (
	"fmt"
	"strings"
)

// buildPrompt renders the request for one attempt. The current file always
// comes last, in a fence longer than any backtick run it contains.
func buildPrompt(u Update, kind fileKind, attempt int, rejection error) string {
	var sb strings.Builder

	lang := u.LanguageHint
	if lang == "" {
		lang = "text"
	}
	fmt.Fprintf(&sb, "Rewrite the file %s (%s) so that it satisfies the instructions below.\n", u.RelativePath, lang)
	sb.WriteString("Return the complete file content only: no explanations, no surrounding commentary.\n")
	if kind.fullRewrite() {
		sb.WriteString("Rewrite the whole document rather than appending to it, and keep its existing section structure.\n")
	}
	if !u.Exists {
		sb.WriteString("The file does not exist yet; write it from scratch.\n")
	}

	sb.WriteString("\nInstructions:\n")
	for _, line := range instructionLines(u.Instructions) {
		sb.WriteString("- " + line + "\n")
	}

	if attempt > 1 {
		sb.WriteString("\nThe previous attempt was rejected")
		if rejection != nil {
			fmt.Fprintf(&sb, " (%v)", rejection)
		}
		sb.WriteString(". Force a concrete diff: the result must visibly differ from the current content.\n")
	}

	fence := fenceFor(u.CurrentContent)
	fmt.Fprintf(&sb, "\nCurrent content of %s:\n%s%s\n%s%s\n", u.RelativePath, fence, lang, withNewline(u.CurrentContent), fence)
	return sb.String()
}

// fenceFor returns a backtick fence longer than the longest run in s.
func fenceFor(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}
