package types

import (
	"context"
)

// ProviderClient defines the uniform call surface every backend variant implements.
type ProviderClient interface {
	ID() ProviderID
	// Configured reports whether the client holds the credentials its kind requires.
	Configured() bool
	// DefaultModel returns the configured default model or the backend fallback.
	DefaultModel() string
	Execute(ctx context.Context, task, modelOverride string) (*NormalizedResult, error)
	// ListModels returns a static catalog for backends without an enumeration endpoint.
	ListModels(ctx context.Context) ([]string, error)
	// TestConnection never fails; problems are reported in the status.
	TestConnection(ctx context.Context) ConnectionStatus
}

// Usage captures token counts reported by a backend. Zero when not reported.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NormalizedResult is the backend independent outcome of a task.
type NormalizedResult struct {
	Content  string     `json:"content"`
	Model    string     `json:"model"`
	Provider ProviderID `json:"provider"`
	Usage    Usage      `json:"usage"`
}

// ConnectionStatus is the outcome of a health probe.
type ConnectionStatus struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TaskRequest is a single task handed to the gateway.
type TaskRequest struct {
	Text         string
	ProviderHint ProviderID
	ModelHint    string
}
