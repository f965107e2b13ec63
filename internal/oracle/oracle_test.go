package oracle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/blueprint/internal/a2a"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad prompt"), false},
		{"a2a 500", &a2a.HTTPError{StatusCode: 500}, true},
		{"a2a 503 wrapped", fmt.Errorf("send: %w", &a2a.HTTPError{StatusCode: 503}), true},
		{"a2a 429", &a2a.HTTPError{StatusCode: 429}, true},
		{"a2a 408", &a2a.HTTPError{StatusCode: 408}, true},
		{"a2a 409", &a2a.HTTPError{StatusCode: 409}, true},
		{"a2a 400", &a2a.HTTPError{StatusCode: 400}, false},
		{"a2a 401", &a2a.HTTPError{StatusCode: 401}, false},
		{"openai 502", &openai.APIError{HTTPStatusCode: 502}, true},
		{"openai 404", &openai.APIError{HTTPStatusCode: 404}, false},
		{"openai request 429", &openai.RequestError{HTTPStatusCode: 429, Err: errors.New("x")}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.example"}, true},
		{"net timeout", &url.Error{Op: "Post", URL: "http://x", Err: timeoutErr{}}, true},
		{"permanent wins", Permanent(&a2a.HTTPError{StatusCode: 503}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, Permanent(nil))

	base := errors.New("context length exceeded")
	err := Permanent(base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, base.Error(), err.Error())
}

// scripted returns each reply in turn and counts calls.
type scripted struct {
	replies []reply
	calls   int
}

type reply struct {
	text string
	err  error
}

func (s *scripted) Generate(context.Context, string, Options) (string, error) {
	r := s.replies[min(s.calls, len(s.replies)-1)]
	s.calls++
	return r.text, r.err
}

func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func TestRetrying(t *testing.T) {
	unavailable := &a2a.HTTPError{StatusCode: 503}
	badRequest := &a2a.HTTPError{StatusCode: 400}

	tests := []struct {
		name      string
		replies   []reply
		opts      Options
		want      string
		wantErr   error
		wantCalls int
		wantWaits int
	}{
		{
			name:      "success",
			replies:   []reply{{text: "ok"}},
			opts:      Options{MaxRetries: 3, RetryDelay: time.Millisecond},
			want:      "ok",
			wantCalls: 1,
		},
		{
			name:      "transient then success",
			replies:   []reply{{err: unavailable}, {err: unavailable}, {text: "ok"}},
			opts:      Options{MaxRetries: 3, RetryDelay: time.Millisecond},
			want:      "ok",
			wantCalls: 3,
			wantWaits: 2,
		},
		{
			name:      "retries exhausted",
			replies:   []reply{{err: unavailable}},
			opts:      Options{MaxRetries: 2, RetryDelay: time.Millisecond},
			wantErr:   unavailable,
			wantCalls: 3,
			wantWaits: 2,
		},
		{
			name:      "permanent stops immediately",
			replies:   []reply{{err: badRequest}, {text: "never"}},
			opts:      Options{MaxRetries: 5, RetryDelay: time.Millisecond},
			wantErr:   badRequest,
			wantCalls: 1,
		},
		{
			name:      "no retries configured",
			replies:   []reply{{err: unavailable}},
			wantErr:   unavailable,
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &scripted{replies: tt.replies}
			var waits []time.Duration
			r := NewRetrying(next, nil)
			r.sleep = noSleep(&waits)

			got, err := r.Generate(context.Background(), "prompt", tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, tt.wantCalls, next.calls)
			assert.Len(t, waits, tt.wantWaits)
		})
	}
}

func TestRetrying_BackoffGrows(t *testing.T) {
	next := &scripted{replies: []reply{{err: context.DeadlineExceeded}}}
	var waits []time.Duration
	r := NewRetrying(next, nil)
	r.sleep = noSleep(&waits)

	_, err := r.Generate(context.Background(), "p", Options{MaxRetries: 3, RetryDelay: 100 * time.Millisecond})
	require.Error(t, err)
	require.Len(t, waits, 3)
	for i, base := range []time.Duration{100, 200, 400} {
		base *= time.Millisecond
		assert.InDelta(t, float64(base), float64(waits[i]), float64(base)*retryJitter+1, "wait %d", i)
	}
}

func TestRateLimited(t *testing.T) {
	calls := 0
	next := Func(func(context.Context, string, Options) (string, error) {
		calls++
		return "ok", nil
	})

	rl := NewRateLimited(next, 0, 0)
	for range 5 {
		got, err := rl.Generate(context.Background(), "p", Options{})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	}
	assert.Equal(t, 5, calls)
}

func TestRateLimited_ContextCanceled(t *testing.T) {
	next := Func(func(context.Context, string, Options) (string, error) { return "ok", nil })
	rl := NewRateLimited(next, 0.001, 1)

	_, err := rl.Generate(context.Background(), "p", Options{})
	require.NoError(t, err, "burst token available")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = rl.Generate(ctx, "p", Options{})
	assert.Error(t, err)
}

func TestLastFencedBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "plain text", "plain text"},
		{"single block", "Rewrite:\n```js\nconst x = 1;\n```\n", "const x = 1;\n"},
		{"last block wins", "```\nold\n```\nthen\n```go\nnew\n```", "new\n"},
		{"empty block", "File:\n```text\n```\n", ""},
		{"longer fence keeps inner fences", "File:\n````md\n# T\n```sh\nls\n```\n````\n", "# T\n```sh\nls\n```\n"},
		{"fence at start", "```\nbody\n```", "body\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LastFencedBlock(tt.in))
		})
	}
}

func TestEcho(t *testing.T) {
	got, err := Echo{}.Generate(context.Background(), "Rewrite it.\n```js\nconst x = 1;\n```\n", Options{})
	require.NoError(t, err)
	assert.Equal(t, "const x = 1;\n", got)
}
