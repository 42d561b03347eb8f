package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"mangaba/internal/config"
	"mangaba/internal/types"
)

const defaultSystemPrompt = "You are a helpful, efficient AI assistant. Answer clearly and concisely."

// Client is the uniform call surface; alias kept for package-local readability.
type Client = types.ProviderClient

// Options tune a client beyond its stored configuration.
type Options struct {
	// Timeout for one request. Zero uses the built-in table for the backend.
	Timeout time.Duration
	// ProbeTimeout bounds TestConnection. Zero leaves only Timeout.
	ProbeTimeout time.Duration
	// HTTPClient overrides the transport's client, mainly for tests.
	HTTPClient *http.Client
}

func (o Options) timeout(id types.ProviderID) time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return config.DefaultTimeouts().For(id)
}

// base holds what every variant shares. http is nil while unconfigured,
// which makes every operation fail fast without touching the network.
type base struct {
	id            types.ProviderID
	cfg           config.ProviderConfig
	fallbackModel string
	probeTimeout  time.Duration
	http          *transport
}

func newBase(id types.ProviderID, cfg config.ProviderConfig, opts Options, defaultURL, fallbackModel string, statuses statusTable) base {
	b := base{
		id:            id,
		cfg:           cfg,
		fallbackModel: fallbackModel,
		probeTimeout:  opts.ProbeTimeout,
	}

	ident, _ := types.Lookup(id)
	if !cfg.HasCredentials(ident.Kind) {
		return b
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultURL
	}
	b.http = newTransport(id, baseURL, opts.timeout(id), opts.HTTPClient, statuses)
	return b
}

// ID returns the backend identifier.
func (b *base) ID() types.ProviderID {
	return b.id
}

// Configured reports whether the client can reach its backend.
func (b *base) Configured() bool {
	return b.http != nil
}

// DefaultModel returns the configured default, else the backend fallback.
func (b *base) DefaultModel() string {
	if b.cfg.DefaultModel != "" {
		return b.cfg.DefaultModel
	}
	return b.fallbackModel
}

func (b *base) model(override string) string {
	if m := strings.TrimSpace(override); m != "" {
		return m
	}
	return b.DefaultModel()
}

func (b *base) bearer(key string) {
	if b.http != nil && key != "" {
		b.http.headers["Authorization"] = "Bearer " + key
	}
}

// guard rejects calls that must not reach the network.
func (b *base) guard(task string) error {
	if b.http == nil {
		return notConfigured(b.id)
	}
	if strings.TrimSpace(task) == "" {
		return NewError(b.id, KindNotConfigured, "task must not be empty", nil)
	}
	return nil
}

func (b *base) ready() error {
	if b.http == nil {
		return notConfigured(b.id)
	}
	return nil
}

// result enforces that a success always carries content.
func (b *base) result(content, model string, usage types.Usage) (*types.NormalizedResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewError(b.id, KindInvalidResponse, "no completion returned", nil)
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return &types.NormalizedResult{
		Content:  content,
		Model:    model,
		Provider: b.id,
		Usage:    usage,
	}, nil
}

// probe runs check and folds any failure into the status record.
func (b *base) probe(ctx context.Context, check func(ctx context.Context) error) types.ConnectionStatus {
	if b.http == nil {
		return types.ConnectionStatus{Success: false, Error: notConfigured(b.id).Message}
	}
	if b.probeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.probeTimeout)
		defer cancel()
	}
	if err := check(ctx); err != nil {
		return types.ConnectionStatus{Success: false, Error: err.Error()}
	}
	return types.ConnectionStatus{Success: true}
}

func withSystemPrompt(task string) string {
	return defaultSystemPrompt + "\n\n" + task
}

func staticCatalog(models []string) []string {
	out := make([]string, len(models))
	copy(out, models)
	return out
}
