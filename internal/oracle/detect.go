package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/blueprint/internal/a2a"
)

// Backend names a ContentOracle implementation.
type Backend string

const (
	BackendAuto   Backend = ""
	BackendOpenAI Backend = "openai"
	BackendAgent  Backend = "agent"
	BackendEcho   Backend = "echo"
)

const defaultProbeTimeout = 500 * time.Millisecond

// DetectConfig describes which backends are available.
type DetectConfig struct {
	Backend        Backend
	OpenAI         OpenAIConfig
	AgentEndpoints []string
}

// Detector chooses a backend from configuration and the local environment.
type Detector struct {
	client       a2a.Client
	logger       *slog.Logger
	probeTimeout time.Duration
}

// NewDetector returns a Detector that probes agents through client.
func NewDetector(client a2a.Client, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{client: client, logger: logger, probeTimeout: defaultProbeTimeout}
}

// Detect builds the configured backend. In auto mode it prefers OpenAI when
// an API key is set, then the first agent endpoint that serves a card, and
// finally Echo.
func (d *Detector) Detect(ctx context.Context, cfg DetectConfig) (ContentOracle, Backend, error) {
	switch cfg.Backend {
	case BackendOpenAI:
		return d.openAI(cfg.OpenAI)
	case BackendAgent:
		if len(cfg.AgentEndpoints) == 0 {
			return nil, BackendAgent, fmt.Errorf("oracle: agent backend needs at least one endpoint")
		}
		return NewAgent(d.client, cfg.AgentEndpoints[0]), BackendAgent, nil
	case BackendEcho:
		return Echo{}, BackendEcho, nil
	case BackendAuto:
	default:
		return nil, cfg.Backend, fmt.Errorf("oracle: unknown backend %q", cfg.Backend)
	}

	if cfg.OpenAI.APIKey != "" {
		return d.openAI(cfg.OpenAI)
	}
	if ep, ok := d.probeAgents(ctx, cfg.AgentEndpoints); ok {
		d.logger.Info("detected agent", "endpoint", ep)
		return NewAgent(d.client, ep), BackendAgent, nil
	}
	d.logger.Warn("no oracle backend configured, using echo", "probed", len(cfg.AgentEndpoints))
	return Echo{}, BackendEcho, nil
}

func (d *Detector) openAI(cfg OpenAIConfig) (ContentOracle, Backend, error) {
	o, err := NewOpenAI(cfg, d.logger)
	if err != nil {
		return nil, BackendOpenAI, err
	}
	return o, BackendOpenAI, nil
}

// probeAgents probes endpoints concurrently and returns the first one, in
// configuration order, that answered.
func (d *Detector) probeAgents(ctx context.Context, endpoints []string) (string, bool) {
	if d.client == nil || len(endpoints) == 0 {
		return "", false
	}
	alive := make([]bool, len(endpoints))
	var g errgroup.Group
	for i, ep := range endpoints {
		g.Go(func() error {
			alive[i] = d.probeAgent(ctx, ep)
			return nil
		})
	}
	_ = g.Wait()

	for i, ok := range alive {
		if ok {
			return endpoints[i], true
		}
	}
	return "", false
}

func (d *Detector) probeAgent(ctx context.Context, endpoint string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("agent probe panicked", "endpoint", endpoint, "panic", r)
			ok = false
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	card, err := d.client.DiscoverAgent(probeCtx, endpoint)
	if err != nil {
		d.logger.Debug("agent probe failed", "endpoint", endpoint, "err", err)
		return false
	}
	return card != nil
}
