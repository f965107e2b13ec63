package oracle

import (
	"context"
	"strings"
)

// Echo is an offline oracle that returns the last fenced block of the
// prompt unchanged, which is where rewrite prompts carry the current file.
// It never produces a real change, so every rewrite ends in the fallback.
type Echo struct{}

// Generate implements ContentOracle.
func (Echo) Generate(_ context.Context, prompt string, _ Options) (string, error) {
	return LastFencedBlock(prompt), nil
}

// LastFencedBlock returns the body of the last fenced block in s, or s
// itself when there is none. The opening fence must use the same number of
// backticks as the closing one, so content holding shorter fences survives.
func LastFencedBlock(s string) string {
	t := "\n" + s
	end := strings.LastIndex(t, "\n```")
	if end < 0 {
		return s
	}
	n := 0
	for end+1+n < len(t) && t[end+1+n] == '`' {
		n++
	}
	fence := "\n" + strings.Repeat("`", n)

	open := strings.LastIndex(t[:end], fence)
	if open < 0 {
		return s
	}
	// Skip the info string on the opening fence line.
	nl := strings.IndexByte(t[open+1:end+1], '\n')
	if nl < 0 {
		return s
	}
	return t[open+1+nl+1 : end+1]
}
