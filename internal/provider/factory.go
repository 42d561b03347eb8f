package provider

import (
	"fmt"

	"mangaba/internal/config"
	"mangaba/internal/types"
)

// NewClient builds the client variant for id.
func NewClient(id types.ProviderID, cfg config.ProviderConfig, opts Options) (Client, error) {
	switch id {
	case types.ProviderOpenAI:
		return NewOpenAIClient(cfg, opts), nil
	case types.ProviderGemini:
		return NewGeminiClient(cfg, opts), nil
	case types.ProviderAnthropic:
		return NewAnthropicClient(cfg, opts), nil
	case types.ProviderOllama:
		return NewOllamaClient(cfg, opts), nil
	case types.ProviderHuggingFace:
		return NewHuggingFaceClient(cfg, opts), nil
	case types.ProviderCohere:
		return NewCohereClient(cfg, opts), nil
	case types.ProviderTogether:
		return NewTogetherClient(cfg, opts), nil
	case types.ProviderLocalAI:
		return NewLocalAIClient(cfg, opts), nil
	case types.ProviderGroq:
		return NewGroqClient(cfg, opts), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", id)
	}
}
