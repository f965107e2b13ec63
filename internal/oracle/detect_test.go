package oracle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/blueprint/internal/a2a"
)

// probeClient answers DiscoverAgent only for live endpoints.
type probeClient struct {
	fakeClient
	live map[string]bool

	mu     sync.Mutex
	probed []string
}

func (p *probeClient) DiscoverAgent(_ context.Context, endpoint string) (*a2a.AgentCard, error) {
	p.mu.Lock()
	p.probed = append(p.probed, endpoint)
	p.mu.Unlock()
	if p.live[endpoint] {
		return &a2a.AgentCard{Name: endpoint}, nil
	}
	return nil, errors.New("connection refused")
}

func TestDetector_Auto(t *testing.T) {
	tests := []struct {
		name      string
		cfg       DetectConfig
		live      map[string]bool
		want      Backend
		wantAgent string
	}{
		{
			name: "api key wins",
			cfg:  DetectConfig{OpenAI: OpenAIConfig{APIKey: "sk-test"}, AgentEndpoints: []string{"http://a"}},
			live: map[string]bool{"http://a": true},
			want: BackendOpenAI,
		},
		{
			name:      "first live agent in order",
			cfg:       DetectConfig{AgentEndpoints: []string{"http://a", "http://b", "http://c"}},
			live:      map[string]bool{"http://b": true, "http://c": true},
			want:      BackendAgent,
			wantAgent: "http://b",
		},
		{
			name: "nothing reachable",
			cfg:  DetectConfig{AgentEndpoints: []string{"http://a"}},
			want: BackendEcho,
		},
		{
			name: "nothing configured",
			want: BackendEcho,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &probeClient{live: tt.live}
			o, backend, err := NewDetector(client, nil).Detect(context.Background(), tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, backend)
			require.NotNil(t, o)

			if tt.wantAgent != "" {
				agent, ok := o.(*Agent)
				require.True(t, ok)
				assert.Equal(t, tt.wantAgent, agent.endpoint)
			}
		})
	}
}

func TestDetector_Explicit(t *testing.T) {
	d := NewDetector(&probeClient{}, nil)

	o, backend, err := d.Detect(context.Background(), DetectConfig{Backend: BackendEcho, OpenAI: OpenAIConfig{APIKey: "sk"}})
	require.NoError(t, err)
	assert.Equal(t, BackendEcho, backend)
	assert.IsType(t, Echo{}, o)

	o, backend, err = d.Detect(context.Background(), DetectConfig{Backend: BackendAgent, AgentEndpoints: []string{"http://down"}})
	require.NoError(t, err)
	assert.Equal(t, BackendAgent, backend)
	assert.IsType(t, &Agent{}, o)

	_, _, err = d.Detect(context.Background(), DetectConfig{Backend: BackendAgent})
	assert.Error(t, err)

	o, _, err = d.Detect(context.Background(), DetectConfig{Backend: BackendOpenAI})
	assert.Error(t, err)
	assert.Nil(t, o)

	_, _, err = d.Detect(context.Background(), DetectConfig{Backend: "claude"})
	assert.ErrorContains(t, err, `unknown backend "claude"`)
}

func TestDetector_ExplicitAgentDoesNotProbe(t *testing.T) {
	client := &probeClient{}
	_, _, err := NewDetector(client, nil).Detect(context.Background(), DetectConfig{
		Backend:        BackendAgent,
		AgentEndpoints: []string{"http://a"},
	})
	require.NoError(t, err)
	assert.Empty(t, client.probed)
}
