package provider

import (
	"context"
	"net/http"

	"mangaba/internal/config"
	"mangaba/internal/logging"
	"mangaba/internal/types"
)

const (
	togetherBaseURL      = "https://api.together.xyz/v1"
	togetherDefaultModel = "meta-llama/Llama-2-7b-chat-hf"
)

// Llama chat templates leak these markers unless generation stops on them.
var togetherStopSequences = []string{"</s>", "[INST]", "[/INST]"}

// TogetherClient talks to the Together AI completions API.
type TogetherClient struct {
	base
}

// NewTogetherClient creates a new Together client.
func NewTogetherClient(cfg config.ProviderConfig, opts Options) *TogetherClient {
	c := &TogetherClient{base: newBase(types.ProviderTogether, cfg, opts, togetherBaseURL, togetherDefaultModel, commonStatuses)}
	c.bearer(cfg.APIKey)
	return c
}

func (c *TogetherClient) Execute(ctx context.Context, task, modelOverride string) (*types.NormalizedResult, error) {
	if err := c.guard(task); err != nil {
		return nil, err
	}

	model := c.model(modelOverride)
	logging.ProviderDebug("[Together] Execute: model=%s task_len=%d", model, len(task))

	req := completionRequest{
		Model:             model,
		Prompt:            withSystemPrompt(task),
		MaxTokens:         1000,
		Temperature:       0.7,
		TopP:              0.9,
		TopK:              50,
		RepetitionPenalty: 1.1,
		Stop:              togetherStopSequences,
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

func (c *TogetherClient) ListModels(ctx context.Context) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return staticCatalog(togetherModels), nil
}

// TestConnection lists models server-side; the response body is ignored.
func (c *TogetherClient) TestConnection(ctx context.Context) types.ConnectionStatus {
	return c.probe(ctx, func(ctx context.Context) error {
		return c.http.do(ctx, http.MethodGet, "/models", nil, nil)
	})
}
