package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/dusk-indust/blueprint/internal/retry"
)

const (
	maxRetryBackoff = 30 * time.Second
	retryJitter     = 0.2
)

// Retrying retries transient failures of the wrapped oracle with exponential
// backoff and jitter, as configured by each call's Options. Permanent
// failures are returned immediately.
type Retrying struct {
	next   ContentOracle
	logger *slog.Logger

	// sleep overrides the backoff wait in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrying wraps next. A nil logger uses slog.Default().
func NewRetrying(next ContentOracle, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, logger: logger}
}

// Generate implements ContentOracle.
func (r *Retrying) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	p := retry.Policy{
		MaxAttempts:    max(opts.MaxRetries, 0) + 1,
		InitialBackoff: opts.RetryDelay,
		MaxBackoff:     maxRetryBackoff,
		Factor:         2,
		Jitter:         retryJitter,
		Classify:       Classify,
		Sleep:          r.sleep,
	}

	var out string
	_, err := p.Do(ctx, func(ctx context.Context, attempt int) error {
		text, err := r.next.Generate(ctx, prompt, opts)
		if err != nil {
			if attempt <= opts.MaxRetries && IsTransient(err) {
				r.logger.Warn("oracle call failed, retrying", "attempt", attempt, "err", err)
			}
			return err
		}
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
