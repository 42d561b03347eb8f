package provider

import (
	"context"
	"net/http"

	"mangaba/internal/config"
	"mangaba/internal/logging"
	"mangaba/internal/types"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	groqDefaultModel = "llama2-70b-4096"
)

// GroqClient talks to Groq's OpenAI-compatible completions API.
type GroqClient struct {
	base
}

// NewGroqClient creates a new Groq client.
func NewGroqClient(cfg config.ProviderConfig, opts Options) *GroqClient {
	c := &GroqClient{base: newBase(types.ProviderGroq, cfg, opts, groqBaseURL, groqDefaultModel, commonStatuses)}
	c.bearer(cfg.APIKey)
	return c
}

func (c *GroqClient) Execute(ctx context.Context, task, modelOverride string) (*types.NormalizedResult, error) {
	if err := c.guard(task); err != nil {
		return nil, err
	}

	model := c.model(modelOverride)
	logging.ProviderDebug("[Groq] Execute: model=%s task_len=%d", model, len(task))

	req := completionRequest{
		Model:       model,
		Prompt:      withSystemPrompt(task),
		MaxTokens:   1000,
		Temperature: 0.7,
		TopP:        1,
	}

	var resp completionResponse
	if err := c.http.do(ctx, http.MethodPost, "/completions", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, NewError(c.id, KindInvalidResponse, "no completion returned", nil)
	}
	return c.result(resp.Choices[0].Text, model, resp.Usage.normalized())
}

func (c *GroqClient) ListModels(ctx context.Context) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return staticCatalog(groqModels), nil
}

func (c *GroqClient) TestConnection(ctx context.Context) types.ConnectionStatus {
	return c.probe(ctx, func(ctx context.Context) error {
		return c.http.do(ctx, http.MethodGet, "/models", nil, nil)
	})
}
