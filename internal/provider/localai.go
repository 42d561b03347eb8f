package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"mangaba/internal/config"
	"mangaba/internal/logging"
	"mangaba/internal/types"
)

const (
	localAIBaseURL      = "http://localhost:8080"
	localAIDefaultModel = "gpt-3.5-turbo"

	// Placeholder key some LocalAI setups ship with; never sent.
	localAINoKey = "not-needed"
)

// LocalAIClient talks to a LocalAI server through its OpenAI-compatible routes.
type LocalAIClient struct {
	base
}

// NewLocalAIClient creates a new LocalAI client.
func NewLocalAIClient(cfg config.ProviderConfig, opts Options) *LocalAIClient {
	c := &LocalAIClient{base: newBase(types.ProviderLocalAI, cfg, opts, localAIBaseURL, localAIDefaultModel, commonStatuses)}
	if cfg.APIKey != localAINoKey {
		c.bearer(cfg.APIKey)
	}
	return c
}

func (c *LocalAIClient) Execute(ctx context.Context, task, modelOverride string) (*types.NormalizedResult, error) {
	if err := c.guard(task); err != nil {
		return nil, err
	}

	model := c.model(modelOverride)
	logging.ProviderDebug("[LocalAI] Execute: model=%s task_len=%d", model, len(task))

	req := completionRequest{
		Model:       model,
		Prompt:      withSystemPrompt(task),
		MaxTokens:   1000,
		Temperature: 0.7,
		TopP:        0.9,
	}

	var resp completionResponse
	if err := c.http.do(ctx, http.MethodPost, "/v1/completions", req, &resp); err != nil {
		var perr *Error
		if errors.As(err, &perr) && perr.Kind == KindModelNotFound {
			perr.Message = fmt.Sprintf("model '%s' not found on LocalAI", model)
		}
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, NewError(c.id, KindInvalidResponse, "no completion returned", nil)
	}
	return c.result(resp.Choices[0].Text, model, resp.Usage.normalized())
}

// ListModels asks the server, falling back to a list of common model names
// when it cannot answer.
func (c *LocalAIClient) ListModels(ctx context.Context) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	models, err := c.serverModels(ctx)
	if err != nil || len(models) == 0 {
		logging.ProviderWarn("[LocalAI] could not list server models, using common list: %v", err)
		return staticCatalog(localAIFallbackModels), nil
	}
	return models, nil
}

func (c *LocalAIClient) serverModels(ctx context.Context) ([]string, error) {
	var resp openAIModelList
	if err := c.http.do(ctx, http.MethodGet, "/v1/models", nil, &resp); err != nil {
		return nil, err
	}
	models := make([]string, 0, len(resp.Data))
	for _, m := range resp.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

// TestConnection hits the model route directly so the fallback list
// cannot mask an unreachable server.
func (c *LocalAIClient) TestConnection(ctx context.Context) types.ConnectionStatus {
	return c.probe(ctx, func(ctx context.Context) error {
		_, err := c.serverModels(ctx)
		return err
	})
}
