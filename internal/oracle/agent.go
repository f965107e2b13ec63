package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/blueprint/internal/a2a"
)

const defaultPollInterval = time.Second

// Agent delegates generation to a remote A2A agent. The prompt is sent as a
// blocking message/send; a task that comes back unfinished is polled with
// tasks/get until it reaches a terminal state.
type Agent struct {
	client       a2a.Client
	endpoint     string
	pollInterval time.Duration
}

// NewAgent returns an oracle backed by the agent at endpoint.
func NewAgent(client a2a.Client, endpoint string) *Agent {
	return &Agent{client: client, endpoint: endpoint, pollInterval: defaultPollInterval}
}

// Generate implements ContentOracle.
func (a *Agent) Generate(ctx context.Context, prompt string, _ Options) (string, error) {
	task, err := a.client.SendMessage(ctx, a.endpoint, a2a.SendMessageRequest{
		Message: a2a.Message{
			MessageID: uuid.NewString(),
			Role:      a2a.RoleUser,
			Parts:     []a2a.Part{a2a.TextPart(prompt)},
		},
		Configuration: &a2a.SendMessageConfig{
			AcceptedOutputModes: []string{"text/plain"},
			Blocking:            true,
		},
	})
	if err != nil {
		return "", fmt.Errorf("oracle: agent: %w", err)
	}
	if task, err = a2a.Await(ctx, a.client, a.endpoint, task, a.pollInterval); err != nil {
		return "", fmt.Errorf("oracle: agent: %w", err)
	}

	text, err := a2a.TaskText(task)
	if err != nil {
		return "", Permanent(err)
	}
	return text, nil
}
