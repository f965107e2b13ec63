package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/blueprint/internal/a2a"
)

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{}, nil)
	assert.Error(t, err)
}

func TestOpenAI_Generate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultOpenAIModel, req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "rewrite a.js", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[` +
			`{"index":0,"message":{"role":"assistant","content":"const y = 1;\n"},"finish_reason":"stop"}]}`))
	}))
	defer ts.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: ts.URL + "/v1"}, nil)
	require.NoError(t, err)

	got, err := o.Generate(context.Background(), "rewrite a.js", Options{})
	require.NoError(t, err)
	assert.Equal(t, "const y = 1;\n", got)
}

func TestOpenAI_ErrorsAreClassified(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"overloaded", http.StatusServiceUnavailable, true},
		{"unauthorized", http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"test"}}`))
			}))
			defer ts.Close()

			o, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: ts.URL + "/v1"}, nil)
			require.NoError(t, err)

			_, err = o.Generate(context.Background(), "p", Options{})
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
		})
	}
}

func TestOpenAI_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`))
	}))
	defer ts.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: ts.URL + "/v1"}, nil)
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), "p", Options{})
	assert.Error(t, err)
}

// fakeClient implements a2a.Client with func fields.
type fakeClient struct {
	sendMessage func(ctx context.Context, endpoint string, req a2a.SendMessageRequest) (*a2a.Task, error)
	getTask     func(ctx context.Context, endpoint string, req a2a.GetTaskRequest) (*a2a.Task, error)
}

func (f *fakeClient) SendMessage(ctx context.Context, endpoint string, req a2a.SendMessageRequest) (*a2a.Task, error) {
	return f.sendMessage(ctx, endpoint, req)
}

func (f *fakeClient) GetTask(ctx context.Context, endpoint string, req a2a.GetTaskRequest) (*a2a.Task, error) {
	return f.getTask(ctx, endpoint, req)
}

func (f *fakeClient) DiscoverAgent(context.Context, string) (*a2a.AgentCard, error) {
	return &a2a.AgentCard{}, nil
}

func completed(text string) *a2a.Task {
	return &a2a.Task{
		ID:        "task-1",
		Status:    a2a.TaskStatus{State: a2a.TaskStateCompleted},
		Artifacts: []a2a.Artifact{{Parts: []a2a.Part{a2a.TextPart(text)}}},
	}
}

func TestAgent_Generate(t *testing.T) {
	client := &fakeClient{
		sendMessage: func(_ context.Context, endpoint string, req a2a.SendMessageRequest) (*a2a.Task, error) {
			assert.Equal(t, "http://agent/a2a", endpoint)
			assert.NotEmpty(t, req.Message.MessageID)
			assert.Equal(t, "rewrite", req.Message.Parts[0].Text)
			require.NotNil(t, req.Configuration)
			assert.True(t, req.Configuration.Blocking)
			return completed("new content\n"), nil
		},
	}

	got, err := NewAgent(client, "http://agent/a2a").Generate(context.Background(), "rewrite", Options{})
	require.NoError(t, err)
	assert.Equal(t, "new content\n", got)
}

func TestAgent_PollsUnfinishedTask(t *testing.T) {
	polls := 0
	client := &fakeClient{
		sendMessage: func(context.Context, string, a2a.SendMessageRequest) (*a2a.Task, error) {
			return &a2a.Task{ID: "task-1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}, nil
		},
		getTask: func(_ context.Context, _ string, req a2a.GetTaskRequest) (*a2a.Task, error) {
			assert.Equal(t, "task-1", req.ID)
			polls++
			if polls < 3 {
				return &a2a.Task{ID: "task-1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}, nil
			}
			return completed("done\n"), nil
		},
	}

	agent := NewAgent(client, "http://agent/a2a")
	agent.pollInterval = time.Millisecond

	got, err := agent.Generate(context.Background(), "rewrite", Options{})
	require.NoError(t, err)
	assert.Equal(t, "done\n", got)
	assert.Equal(t, 3, polls)
}

func TestAgent_FailedTaskIsPermanent(t *testing.T) {
	client := &fakeClient{
		sendMessage: func(context.Context, string, a2a.SendMessageRequest) (*a2a.Task, error) {
			return &a2a.Task{ID: "task-1", Status: a2a.TaskStatus{State: a2a.TaskStateFailed}}, nil
		},
	}

	_, err := NewAgent(client, "http://agent/a2a").Generate(context.Background(), "rewrite", Options{})
	require.Error(t, err)
	assert.False(t, IsTransient(err))

	var taskErr *a2a.TaskError
	assert.ErrorAs(t, err, &taskErr)
}

func TestAgent_TransportErrorKeepsStatus(t *testing.T) {
	client := &fakeClient{
		sendMessage: func(context.Context, string, a2a.SendMessageRequest) (*a2a.Task, error) {
			return nil, &a2a.HTTPError{Op: a2a.MethodSendMessage, StatusCode: http.StatusBadGateway}
		},
	}

	_, err := NewAgent(client, "http://agent/a2a").Generate(context.Background(), "rewrite", Options{})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}
