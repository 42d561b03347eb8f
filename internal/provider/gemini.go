package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"mangaba/internal/config"
	"mangaba/internal/logging"
	"mangaba/internal/types"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-pro"
)

// GeminiClient talks to the Google Generative Language API.
// The key travels as a query parameter rather than a header.
type GeminiClient struct {
	base
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(cfg config.ProviderConfig, opts Options) *GeminiClient {
	c := &GeminiClient{base: newBase(types.ProviderGemini, cfg, opts, geminiBaseURL, geminiDefaultModel, commonStatuses)}
	if c.http != nil {
		c.http.query.Set("key", cfg.APIKey)
		c.http.refine = refineGemini
	}
	return c
}

// Gemini reports a bad key as 400 rather than 401.
func refineGemini(status int, detail string) (ErrorKind, string, bool) {
	if status == http.StatusBadRequest && strings.Contains(detail, "API key") {
		return KindInvalidCredentials, "invalid Gemini API key", true
	}
	return "", "", false
}

func (c *GeminiClient) Execute(ctx context.Context, task, modelOverride string) (*types.NormalizedResult, error) {
	if err := c.guard(task); err != nil {
		return nil, err
	}

	model := c.model(modelOverride)
	logging.ProviderDebug("[Gemini] Execute: model=%s task_len=%d", model, len(task))

	req := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: withSystemPrompt(task)}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.7,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 2048,
		},
	}

	var resp geminiResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model))
	if err := c.http.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, NewError(c.id, KindInvalidResponse, "no candidates returned", nil)
	}

	meta := resp.UsageMetadata
	return c.result(resp.Candidates[0].Content.Parts[0].Text, model, types.Usage{
		PromptTokens:     meta.PromptTokenCount,
		CompletionTokens: meta.CandidatesTokenCount,
		TotalTokens:      meta.TotalTokenCount,
	})
}

// ListModels returns model names without the "models/" prefix.
func (c *GeminiClient) ListModels(ctx context.Context) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	var resp geminiModelList
	if err := c.http.do(ctx, http.MethodGet, "/models", nil, &resp); err != nil {
		return nil, err
	}

	models := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		name := m.Name
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		models = append(models, name)
	}
	return models, nil
}

func (c *GeminiClient) TestConnection(ctx context.Context) types.ConnectionStatus {
	return c.probe(ctx, func(ctx context.Context) error {
		_, err := c.ListModels(ctx)
		return err
	})
}
