package provider

import (
	"context"
	"net/http"

	"mangaba/internal/config"
	"mangaba/internal/logging"
	"mangaba/internal/types"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com/v1"
	anthropicDefaultModel = "claude-3-sonnet-20240229"
	anthropicVersion      = "2023-06-01"
	anthropicProbeModel   = "claude-3-haiku-20240307"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	base
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(cfg config.ProviderConfig, opts Options) *AnthropicClient {
	c := &AnthropicClient{base: newBase(types.ProviderAnthropic, cfg, opts, anthropicBaseURL, anthropicDefaultModel, commonStatuses)}
	if c.http != nil {
		c.http.headers["x-api-key"] = cfg.APIKey
		c.http.headers["anthropic-version"] = anthropicVersion
	}
	return c
}

func (c *AnthropicClient) Execute(ctx context.Context, task, modelOverride string) (*types.NormalizedResult, error) {
	if err := c.guard(task); err != nil {
		return nil, err
	}

	model := c.model(modelOverride)
	logging.ProviderDebug("[Anthropic] Execute: model=%s task_len=%d", model, len(task))

	resp, err := c.send(ctx, anthropicRequest{
		Model:     model,
		MaxTokens: 2000,
		System:    defaultSystemPrompt,
		Messages:  []chatMessage{{Role: "user", Content: task}},
	})
	if err != nil {
		return nil, err
	}

	// The first text block is the answer; tool or thinking blocks are skipped.
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			text = block.Text
			break
		}
	}

	return c.result(text, model, types.Usage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
	})
}

func (c *AnthropicClient) send(ctx context.Context, req anthropicRequest) (*anthropicResponse, error) {
	var resp anthropicResponse
	if err := c.http.do(ctx, http.MethodPost, "/messages", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListModels returns a static catalog: there is no public enumeration endpoint.
func (c *AnthropicClient) ListModels(ctx context.Context) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return staticCatalog(anthropicModels), nil
}

// TestConnection sends a minimal message, the cheapest authenticated call.
func (c *AnthropicClient) TestConnection(ctx context.Context) types.ConnectionStatus {
	return c.probe(ctx, func(ctx context.Context) error {
		model := c.cfg.DefaultModel
		if model == "" {
			model = anthropicProbeModel
		}
		_, err := c.send(ctx, anthropicRequest{
			Model:     model,
			MaxTokens: 10,
			Messages:  []chatMessage{{Role: "user", Content: "Hi"}},
		})
		return err
	})
}
