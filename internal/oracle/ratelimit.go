package oracle

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited throttles calls to the wrapped oracle with a token bucket.
type RateLimited struct {
	next    ContentOracle
	limiter *rate.Limiter
}

// NewRateLimited allows rps calls per second with the given burst. A
// non-positive rps disables limiting.
func NewRateLimited(next ContentOracle, rps float64, burst int) *RateLimited {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, max(burst, 1))}
}

// Generate waits for a token, then calls the wrapped oracle.
func (r *RateLimited) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("oracle: rate limit: %w", err)
	}
	return r.next.Generate(ctx, prompt, opts)
}
