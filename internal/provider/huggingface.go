package provider

import (
	"context"
	"net/http"

	"mangaba/internal/config"
	"mangaba/internal/logging"
	"mangaba/internal/types"
)

const (
	huggingFaceBaseURL      = "https://api-inference.huggingface.co/models"
	huggingFaceDefaultModel = "microsoft/DialoGPT-large"
)

// Hosted models cold-start with 503 while they load.
var huggingFaceStatuses = commonStatuses.with(statusTable{
	http.StatusServiceUnavailable: {KindUnknown, "model is loading, try again in a few seconds"},
})

// HuggingFaceClient talks to the Hugging Face hosted inference API.
type HuggingFaceClient struct {
	base
}

// NewHuggingFaceClient creates a new Hugging Face client.
func NewHuggingFaceClient(cfg config.ProviderConfig, opts Options) *HuggingFaceClient {
	c := &HuggingFaceClient{base: newBase(types.ProviderHuggingFace, cfg, opts, huggingFaceBaseURL, huggingFaceDefaultModel, huggingFaceStatuses)}
	c.bearer(cfg.APIKey)
	return c
}

// Execute returns the first generation. The API reports no token counts,
// so usage stays zero rather than guessing from character lengths.
func (c *HuggingFaceClient) Execute(ctx context.Context, task, modelOverride string) (*types.NormalizedResult, error) {
	if err := c.guard(task); err != nil {
		return nil, err
	}

	model := c.model(modelOverride)
	logging.ProviderDebug("[HuggingFace] Execute: model=%s task_len=%d", model, len(task))

	req := huggingFaceRequest{
		Inputs: withSystemPrompt(task),
		Parameters: huggingFaceParameters{
			MaxNewTokens:   512,
			Temperature:    0.7,
			ReturnFullText: false,
			DoSample:       true,
		},
	}

	// Model ids carry an owner segment and go into the path unescaped.
	var resp huggingFaceResponse
	if err := c.http.do(ctx, http.MethodPost, "/"+model, req, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, NewError(c.id, KindInvalidResponse, "no generations returned", nil)
	}
	return c.result(resp[0].GeneratedText, model, types.Usage{})
}

func (c *HuggingFaceClient) ListModels(ctx context.Context) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return staticCatalog(huggingFaceModels), nil
}

// TestConnection runs a one-word generation against the default model.
func (c *HuggingFaceClient) TestConnection(ctx context.Context) types.ConnectionStatus {
	return c.probe(ctx, func(ctx context.Context) error {
		_, err := c.Execute(ctx, "Hello", "")
		return err
	})
}
