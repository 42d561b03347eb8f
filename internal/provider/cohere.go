package provider

import (
	"context"
	"net/http"

	"mangaba/internal/config"
	"mangaba/internal/logging"
	"mangaba/internal/types"
)

const (
	cohereBaseURL      = "https://api.cohere.ai/v1"
	cohereDefaultModel = "command"
	cohereVersion      = "2022-12-06"
)

// CohereClient talks to the Cohere generate API.
type CohereClient struct {
	base
}

// NewCohereClient creates a new Cohere client.
func NewCohereClient(cfg config.ProviderConfig, opts Options) *CohereClient {
	c := &CohereClient{base: newBase(types.ProviderCohere, cfg, opts, cohereBaseURL, cohereDefaultModel, commonStatuses)}
	c.bearer(cfg.APIKey)
	if c.http != nil {
		c.http.headers["Cohere-Version"] = cohereVersion
	}
	return c
}

func (c *CohereClient) Execute(ctx context.Context, task, modelOverride string) (*types.NormalizedResult, error) {
	if err := c.guard(task); err != nil {
		return nil, err
	}

	model := c.model(modelOverride)
	logging.ProviderDebug("[Cohere] Execute: model=%s task_len=%d", model, len(task))

	req := cohereGenerateRequest{
		Model:             model,
		Prompt:            withSystemPrompt(task),
		MaxTokens:         1000,
		Temperature:       0.7,
		K:                 0,
		StopSequences:     []string{},
		ReturnLikelihoods: "NONE",
	}

	var resp cohereGenerateResponse
	if err := c.http.do(ctx, http.MethodPost, "/generate", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Generations) == 0 {
		return nil, NewError(c.id, KindInvalidResponse, "no generations returned", nil)
	}

	billed := resp.Meta.BilledUnits
	return c.result(resp.Generations[0].Text, model, types.Usage{
		PromptTokens:     billed.InputTokens,
		CompletionTokens: billed.OutputTokens,
	})
}

func (c *CohereClient) ListModels(ctx context.Context) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return staticCatalog(cohereModels), nil
}

func (c *CohereClient) TestConnection(ctx context.Context) types.ConnectionStatus {
	return c.probe(ctx, func(ctx context.Context) error {
		_, err := c.Execute(ctx, "Hello", "")
		return err
	})
}
