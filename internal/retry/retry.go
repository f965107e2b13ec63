// Package retry runs an operation under a bounded attempt budget with
// exponential backoff and a caller-supplied outcome classifier.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Outcome classifies the error returned by one attempt.
type Outcome int

const (
	// Retryable errors consume an attempt and the loop continues.
	Retryable Outcome = iota
	// Terminal errors stop the loop immediately.
	Terminal
)

// Policy configures a retry loop. The zero value makes a single attempt.
type Policy struct {
	// MaxAttempts includes the first attempt. Values below 1 mean 1.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt. Zero disables
	// waiting entirely.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts. Zero means no cap.
	MaxBackoff time.Duration

	// Factor multiplies the backoff after each wait. Values below 1 mean 2.
	Factor float64

	// Jitter is the maximum random deviation as a fraction of the backoff,
	// in [0, 1].
	Jitter float64

	// Classify decides whether an error is worth another attempt. Nil
	// treats every error as Retryable.
	Classify func(error) Outcome

	// Sleep waits between attempts. Nil uses a timer that honors ctx.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Result reports how a retry loop ended.
type Result struct {
	Attempts int
	Err      error
}

// Func is one attempt, numbered from 1.
type Func func(ctx context.Context, attempt int) error

// Do calls fn until it succeeds, returns a Terminal error, or the attempt
// budget is spent. The returned error is the last attempt's error, or the
// context error if ctx ended while waiting.
func (p Policy) Do(ctx context.Context, fn Func) (Result, error) {
	attempts := max(p.MaxAttempts, 1)
	var res Result

	for attempt := 1; attempt <= attempts; attempt++ {
		res.Attempts = attempt
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res, err
		}

		err := fn(ctx, attempt)
		if err == nil {
			res.Err = nil
			return res, nil
		}
		res.Err = err

		if p.classify(err) == Terminal || attempt == attempts {
			break
		}

		if wait := p.Backoff(attempt); wait > 0 {
			if serr := p.sleep(ctx, wait); serr != nil {
				res.Err = serr
				return res, serr
			}
		}
	}
	return res, res.Err
}

// Backoff returns the wait after the given failed attempt, jitter included.
func (p Policy) Backoff(attempt int) time.Duration {
	if p.InitialBackoff <= 0 || attempt < 1 {
		return 0
	}
	factor := p.Factor
	if factor < 1 {
		factor = 2
	}

	d := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= factor
		if p.MaxBackoff > 0 && d >= float64(p.MaxBackoff) {
			d = float64(p.MaxBackoff)
			break
		}
	}

	if p.Jitter > 0 {
		j := min(p.Jitter, 1)
		d *= 1 + (rand.Float64()*2-1)*j
	}
	if p.MaxBackoff > 0 && d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	return time.Duration(d)
}

func (p Policy) classify(err error) Outcome {
	if p.Classify == nil {
		return Retryable
	}
	return p.Classify(err)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
