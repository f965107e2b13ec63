package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// recordSleeps returns a Sleep func that records waits without blocking.
func recordSleeps(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	res, err := Policy{MaxAttempts: 3}.Do(context.Background(), func(context.Context, int) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, res.Attempts)
	assert.NoError(t, res.Err)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	var waits []time.Duration
	p := Policy{
		MaxAttempts:    4,
		InitialBackoff: 10 * time.Millisecond,
		Factor:         2,
		Sleep:          recordSleeps(&waits),
	}

	var seen []int
	res, err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 3 {
			return errBoom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, waits)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	var waits []time.Duration
	p := Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond, Sleep: recordSleeps(&waits)}

	res, err := p.Do(context.Background(), func(context.Context, int) error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, res.Attempts)
	assert.Len(t, waits, 1, "no wait after the last attempt")
}

func TestDo_TerminalStopsImmediately(t *testing.T) {
	errFatal := errors.New("fatal")
	p := Policy{
		MaxAttempts: 5,
		Classify: func(err error) Outcome {
			if errors.Is(err, errFatal) {
				return Terminal
			}
			return Retryable
		},
	}

	calls := 0
	res, err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		if attempt == 2 {
			return errFatal
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, res.Attempts)
}

func TestDo_ZeroPolicyMakesOneAttempt(t *testing.T) {
	calls := 0
	_, err := Policy{}.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCanceledBeforeAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Policy{MaxAttempts: 3}.Do(ctx, func(context.Context, int) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDo_ContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 3, InitialBackoff: time.Hour}

	calls := 0
	start := time.Now()
	_, err := p.Do(ctx, func(context.Context, int) error {
		calls++
		cancel()
		return errBoom
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Minute)
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		attempt int
		want    time.Duration
	}{
		{"disabled", Policy{}, 1, 0},
		{"first", Policy{InitialBackoff: time.Second, Factor: 2}, 1, time.Second},
		{"third", Policy{InitialBackoff: time.Second, Factor: 2}, 3, 4 * time.Second},
		{"default factor", Policy{InitialBackoff: time.Second}, 2, 2 * time.Second},
		{"capped", Policy{InitialBackoff: time.Second, Factor: 10, MaxBackoff: 5 * time.Second}, 3, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Backoff(tt.attempt))
		})
	}
}

func TestBackoff_JitterStaysInRange(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, Jitter: 0.2}
	for range 200 {
		d := p.Backoff(1)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}
