package provider

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"mangaba/internal/config"
	"mangaba/internal/logging"
	"mangaba/internal/types"
)

const (
	openAIBaseURL      = "https://api.openai.com/v1"
	openAIDefaultModel = "gpt-3.5-turbo"
)

// OpenAIClient talks to the OpenAI chat completions API.
type OpenAIClient struct {
	base
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg config.ProviderConfig, opts Options) *OpenAIClient {
	c := &OpenAIClient{base: newBase(types.ProviderOpenAI, cfg, opts, openAIBaseURL, openAIDefaultModel, commonStatuses)}
	c.bearer(cfg.APIKey)
	return c
}

// Execute sends the task as a user message under the default system prompt.
func (c *OpenAIClient) Execute(ctx context.Context, task, modelOverride string) (*types.NormalizedResult, error) {
	if err := c.guard(task); err != nil {
		return nil, err
	}

	model := c.model(modelOverride)
	startTime := time.Now()
	logging.ProviderDebug("[OpenAI] Execute: model=%s task_len=%d", model, len(task))

	req := openAIChatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: defaultSystemPrompt},
			{Role: "user", Content: task},
		},
		MaxTokens:   2000,
		Temperature: 0.7,
	}

	var resp openAIChatResponse
	if err := c.http.do(ctx, http.MethodPost, "/chat/completions", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		logging.ProviderError("[OpenAI] Execute: no choices in response")
		return nil, NewError(c.id, KindInvalidResponse, "no completion returned", nil)
	}

	logging.Provider("[OpenAI] Execute: completed in %v", time.Since(startTime))
	return c.result(resp.Choices[0].Message.Content, model, resp.Usage.normalized())
}

// ListModels returns the GPT models visible to the key, sorted.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	var resp openAIModelList
	if err := c.http.do(ctx, http.MethodGet, "/models", nil, &resp); err != nil {
		return nil, err
	}

	var models []string
	for _, m := range resp.Data {
		if strings.Contains(m.ID, "gpt") {
			models = append(models, m.ID)
		}
	}
	sort.Strings(models)
	return models, nil
}

// TestConnection lists models as a cheap authenticated call.
func (c *OpenAIClient) TestConnection(ctx context.Context) types.ConnectionStatus {
	return c.probe(ctx, func(ctx context.Context) error {
		_, err := c.ListModels(ctx)
		return err
	})
}
