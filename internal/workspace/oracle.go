package workspace

import (
	"context"
	"log/slog"

	"github.com/dusk-indust/blueprint/internal/a2a"
	"github.com/dusk-indust/blueprint/internal/config"
	"github.com/dusk-indust/blueprint/internal/oracle"
)

// NewOracle picks a backend from cfg and wraps it for retries and, when a
// rate is configured, throttling. Echo is never wrapped.
func NewOracle(ctx context.Context, cfg *config.ProjectConfig, logger *slog.Logger) (oracle.ContentOracle, oracle.Backend, error) {
	var opts []a2a.ClientOption
	if cfg.Oracle.AgentToken != "" {
		opts = append(opts, a2a.WithBearerToken(cfg.Oracle.AgentToken))
	}
	return newOracle(ctx, cfg, a2a.NewHTTPClient(opts...), logger)
}

func newOracle(ctx context.Context, cfg *config.ProjectConfig, client a2a.Client, logger *slog.Logger) (oracle.ContentOracle, oracle.Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	oc, backend, err := oracle.NewDetector(client, logger).Detect(ctx, cfg.Detect())
	if err != nil {
		return nil, "", err
	}
	if backend == oracle.BackendEcho {
		return oc, backend, nil
	}

	oc = oracle.NewRetrying(oc, logger)
	if cfg.Oracle.RateLimit > 0 {
		oc = oracle.NewRateLimited(oc, cfg.Oracle.RateLimit, cfg.Oracle.Burst)
	}
	logger.Debug("content oracle ready", "backend", backend)
	return oc, backend, nil
}
