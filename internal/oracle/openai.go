package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

const defaultSystemPrompt = "You rewrite source files. Reply with the complete new file content only."

// OpenAIConfig configures the OpenAI backend.
type OpenAIConfig struct {
	APIKey string
	Model  string
	// BaseURL points at an OpenAI-compatible endpoint, e.g. a local proxy.
	BaseURL      string
	SystemPrompt string
	Temperature  float32
}

// OpenAI generates text with the chat completions API.
type OpenAI struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger *slog.Logger
}

// NewOpenAI returns an OpenAI backend. A nil logger uses slog.Default().
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("oracle: openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Generate implements ContentOracle. It makes a single request; wrap it in
// Retrying for transient failures.
func (o *OpenAI) Generate(ctx context.Context, prompt string, _ Options) (string, error) {
	o.logger.Debug("generating via openai", "model", o.cfg.Model, "promptChars", len(prompt))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.cfg.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("oracle: openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("oracle: openai: no choices returned")
	}
	o.logger.Debug("openai response", "finishReason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
