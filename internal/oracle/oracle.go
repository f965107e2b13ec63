// Package oracle defines the text-generation collaborator used to rewrite
// files, with backends and decorators for retries and rate limiting.
package oracle

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/dusk-indust/blueprint/internal/a2a"
	"github.com/dusk-indust/blueprint/internal/retry"
)

// Options tune a single Generate call.
type Options struct {
	// MaxRetries is how many times a transient failure is retried by the
	// Retrying decorator. Zero disables retries.
	MaxRetries int

	// RetryDelay is the initial backoff between retries.
	RetryDelay time.Duration
}

// ContentOracle produces text for a prompt.
type ContentOracle interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// Func adapts an ordinary function to ContentOracle.
type Func func(ctx context.Context, prompt string, opts Options) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// PermanentError marks a failure that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so IsTransient reports false for it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsTransient reports whether err is worth retrying: HTTP 5xx, 429, 408 and
// 409 responses, timeouts, and DNS failures. Everything else, including
// caller cancellation, is permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var perm *PermanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if code, ok := statusCode(err); ok {
		return transientStatus(code)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// Classify maps IsTransient onto retry outcomes.
func Classify(err error) retry.Outcome {
	if IsTransient(err) {
		return retry.Retryable
	}
	return retry.Terminal
}

func statusCode(err error) (int, bool) {
	var httpErr *a2a.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode, true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusConflict:
		return true
	}
	return code >= 500 && code <= 599
}
