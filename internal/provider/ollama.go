package provider

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"mangaba/internal/config"
	"mangaba/internal/logging"
	"mangaba/internal/types"
)

const (
	ollamaBaseURL      = "http://localhost:11434"
	ollamaDefaultModel = "llama2"

	// Pulling a model downloads gigabytes; the request timeout does not apply.
	ollamaPullTimeout = 30 * time.Minute
)

var ollamaStatuses = commonStatuses.with(statusTable{
	http.StatusInternalServerError: {KindUnknown, "internal Ollama error"},
})

// OllamaClient talks to a local Ollama server. No key is involved.
type OllamaClient struct {
	base
}

// NewOllamaClient creates a new Ollama client.
func NewOllamaClient(cfg config.ProviderConfig, opts Options) *OllamaClient {
	c := &OllamaClient{base: newBase(types.ProviderOllama, cfg, opts, ollamaBaseURL, ollamaDefaultModel, ollamaStatuses)}
	if c.http != nil {
		c.http.refine = refineOllama
	}
	return c
}

// Ollama answers 404 both for unknown models and unknown routes.
func refineOllama(status int, detail string) (ErrorKind, string, bool) {
	if status != http.StatusNotFound {
		return "", "", false
	}
	if strings.Contains(strings.ToLower(detail), "model") {
		return KindModelNotFound, detail + "; pull it with 'mangaba models pull <model>'", true
	}
	return KindUnknown, "HTTP 404: endpoint not found", true
}

func (c *OllamaClient) Execute(ctx context.Context, task, modelOverride string) (*types.NormalizedResult, error) {
	if err := c.guard(task); err != nil {
		return nil, err
	}

	model := c.model(modelOverride)
	startTime := time.Now()
	logging.ProviderDebug("[Ollama] Execute: model=%s task_len=%d", model, len(task))

	req := ollamaGenerateRequest{
		Model:  model,
		Prompt: withSystemPrompt(task),
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0.7,
			TopP:        0.9,
			TopK:        40,
		},
	}

	var resp ollamaGenerateResponse
	if err := c.http.do(ctx, http.MethodPost, "/api/generate", req, &resp); err != nil {
		return nil, err
	}

	logging.Provider("[Ollama] Execute: completed in %v", time.Since(startTime))
	return c.result(resp.Response, model, types.Usage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
	})
}

// ListModels returns the locally installed models, sorted.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	var resp ollamaTagsResponse
	if err := c.http.do(ctx, http.MethodGet, "/api/tags", nil, &resp); err != nil {
		return nil, err
	}

	models := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, m.Name)
	}
	sort.Strings(models)
	return models, nil
}

func (c *OllamaClient) TestConnection(ctx context.Context) types.ConnectionStatus {
	return c.probe(ctx, func(ctx context.Context) error {
		_, err := c.ListModels(ctx)
		return err
	})
}

// Pull downloads a model onto the server and blocks until it is installed.
func (c *OllamaClient) Pull(ctx context.Context, name string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return NewError(c.id, KindInvalidRequest, "model name must not be empty", nil)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ollamaPullTimeout)
		defer cancel()
	}

	stream := false
	var resp ollamaStatusResponse
	if err := c.http.do(ctx, http.MethodPost, "/api/pull", ollamaModelRequest{Name: name, Stream: &stream}, &resp); err != nil {
		return err
	}
	if resp.Status != "" && resp.Status != "success" {
		return NewError(c.id, KindInvalidResponse, fmt.Sprintf("pull ended with status %q", resp.Status), nil)
	}
	logging.Provider("[Ollama] Pulled model %s", name)
	return nil
}

// Delete removes an installed model.
func (c *OllamaClient) Delete(ctx context.Context, name string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return NewError(c.id, KindInvalidRequest, "model name must not be empty", nil)
	}
	if err := c.http.do(ctx, http.MethodDelete, "/api/delete", ollamaModelRequest{Name: name}, nil); err != nil {
		return err
	}
	logging.Provider("[Ollama] Deleted model %s", name)
	return nil
}
