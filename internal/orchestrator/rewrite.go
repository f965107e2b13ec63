package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"unicode/utf8"

	"github.com/dusk-indust/blueprint/internal/oracle"
	"github.com/dusk-indust/blueprint/internal/retry"
)

// rewrite drives one file through Pending -> Attempting -> Accepted,
// FallbackApplied, Failed or Skipped.
func (o *Orchestrator) rewrite(ctx context.Context, u Update) Result {
	res := Result{Update: u}

	raw, err := o.readFile(u.AbsolutePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		res.Update.CurrentContent, res.Update.Exists = "", false
	case err != nil:
		res.Status, res.Err = StatusFailed, fmt.Errorf("read %s: %w", u.RelativePath, err)
		return res
	default:
		res.Update.CurrentContent, res.Update.Exists = string(raw), true
	}
	u = res.Update

	if n := utf8.RuneCountInString(u.CurrentContent); n > o.cfg.MaxFileChars {
		res.Status = StatusSkipped
		res.Err = fmt.Errorf("%w: %d characters exceeds the %d character limit", ErrFileTooLarge, n, o.cfg.MaxFileChars)
		return res
	}
	if strings.TrimSpace(strings.Join(u.Instructions, "")) == "" {
		res.Status, res.Err = StatusSkipped, ErrNoInstructions
		return res
	}

	kind := classifyFile(u)
	policy := retry.Policy{
		MaxAttempts: o.cfg.MaxAttempts,
		Classify:    classifyAttempt,
	}

	var rejection error
	_, err = policy.Do(ctx, func(ctx context.Context, attempt int) error {
		res.Attempts = attempt
		prompt := buildPrompt(u, kind, attempt, rejection)

		// In-flight generation is not tied to the caller's lifetime.
		out, err := o.oracle.Generate(context.WithoutCancel(ctx), prompt, o.cfg.Oracle)
		if err == nil {
			var candidate string
			candidate, res.ChangeRatio, err = o.evaluate(u, kind, out)
			if err == nil {
				res.Content = candidate
			}
		}
		if o.observer != nil {
			o.observer.ObserveAttempt(u.RelativePath, attempt, err)
		}
		if err != nil {
			o.logger.Debug("attempt rejected", "path", u.RelativePath, "attempt", attempt, "err", err)
			rejection = err
		}
		return err
	})
	if err == nil {
		res.Status = StatusAccepted
		return res
	}
	res.ChangeRatio = 0

	if classifyAttempt(err) == retry.Terminal || ctx.Err() != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	content := Fallback(u, kind)
	if content == u.CurrentContent {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	res.Status = StatusFallbackApplied
	res.Content = content
	res.ForcedFallback = true
	res.FallbackReason = fmt.Sprintf("no acceptable rewrite after %d attempt(s): %v", res.Attempts, err)
	res.ChangeRatio = ChangeRatio(u.CurrentContent, content)
	return res
}

// evaluate applies the acceptance gates to one oracle response and returns
// the sanitized candidate with its change ratio.
func (o *Orchestrator) evaluate(u Update, kind fileKind, out string) (string, float64, error) {
	candidate := Sanitize(out)
	if strings.TrimSpace(candidate) == "" {
		return "", 0, ErrEmptyOutput
	}
	// A restored trailing newline alone is not a change.
	if candidate == withNewline(u.CurrentContent) {
		return "", 0, ErrUnchangedOutput
	}

	ratio := ChangeRatio(u.CurrentContent, candidate)
	if kind.fullRewrite() {
		if ratio < o.cfg.ChangeThreshold {
			return "", ratio, fmt.Errorf("%w: change ratio %.2f is below the %.2f threshold",
				ErrQualityRejected, ratio, o.cfg.ChangeThreshold)
		}
		if issue := markdownQualityIssue(u.CurrentContent, candidate, u.Instructions); issue != "" {
			return "", ratio, fmt.Errorf("%w: %s", ErrQualityRejected, issue)
		}
	}
	return candidate, ratio, nil
}

// classifyAttempt retries quality rejections and transient oracle failures;
// anything else ends the loop and fails the file.
func classifyAttempt(err error) retry.Outcome {
	switch {
	case errors.Is(err, ErrEmptyOutput), errors.Is(err, ErrUnchangedOutput), errors.Is(err, ErrQualityRejected):
		return retry.Retryable
	case oracle.IsTransient(err):
		return retry.Retryable
	}
	return retry.Terminal
}
