// Package types provides shared type definitions used across mangaba packages.
// This package exists to break import cycles between config, provider, registry and gateway.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// PROVIDER IDENTITIES
// =============================================================================

// ProviderID identifies one of the known LLM backends.
type ProviderID string

const (
	ProviderOpenAI      ProviderID = "openai"
	ProviderGemini      ProviderID = "gemini"
	ProviderAnthropic   ProviderID = "anthropic"
	ProviderOllama      ProviderID = "ollama"
	ProviderHuggingFace ProviderID = "huggingface"
	ProviderCohere      ProviderID = "cohere"
	ProviderTogether    ProviderID = "together"
	ProviderLocalAI     ProviderID = "localai"
	ProviderGroq        ProviderID = "groq"
)

// TransportKind describes how a backend is reached and authenticated.
type TransportKind string

const (
	// KeyedCloud backends authenticate with an API key over the public network.
	KeyedCloud TransportKind = "keyed-cloud"
	// EndpointLocal backends are reached through a user supplied base URL.
	EndpointLocal TransportKind = "endpoint-local"
)

// Identity is the compile-time description of a backend. Never persisted.
type Identity struct {
	ID          ProviderID
	Kind        TransportKind
	DisplayName string
	EnvKey      string // environment variable consulted for the API key
}

var identities = map[ProviderID]Identity{
	ProviderOpenAI:      {ID: ProviderOpenAI, Kind: KeyedCloud, DisplayName: "OpenAI", EnvKey: "OPENAI_API_KEY"},
	ProviderGemini:      {ID: ProviderGemini, Kind: KeyedCloud, DisplayName: "Google Gemini", EnvKey: "GEMINI_API_KEY"},
	ProviderAnthropic:   {ID: ProviderAnthropic, Kind: KeyedCloud, DisplayName: "Anthropic", EnvKey: "ANTHROPIC_API_KEY"},
	ProviderOllama:      {ID: ProviderOllama, Kind: EndpointLocal, DisplayName: "Ollama"},
	ProviderHuggingFace: {ID: ProviderHuggingFace, Kind: KeyedCloud, DisplayName: "Hugging Face", EnvKey: "HUGGINGFACE_API_KEY"},
	ProviderCohere:      {ID: ProviderCohere, Kind: KeyedCloud, DisplayName: "Cohere", EnvKey: "COHERE_API_KEY"},
	ProviderTogether:    {ID: ProviderTogether, Kind: KeyedCloud, DisplayName: "Together AI", EnvKey: "TOGETHER_API_KEY"},
	ProviderLocalAI:     {ID: ProviderLocalAI, Kind: EndpointLocal, DisplayName: "LocalAI", EnvKey: "LOCALAI_API_KEY"},
	ProviderGroq:        {ID: ProviderGroq, Kind: KeyedCloud, DisplayName: "Groq", EnvKey: "GROQ_API_KEY"},
}

// KnownProviders returns every provider id, sorted.
func KnownProviders() []ProviderID {
	ids := make([]ProviderID, 0, len(identities))
	for id := range identities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Lookup returns the identity for id.
func Lookup(id ProviderID) (Identity, bool) {
	ident, ok := identities[id]
	return ident, ok
}

// ParseProviderID normalizes user input into a known provider id.
func ParseProviderID(s string) (ProviderID, error) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := identities[id]; !ok {
		return "", fmt.Errorf("unknown provider %q (valid: %s)", s, joinIDs(KnownProviders()))
	}
	return id, nil
}

// IsLocal reports whether id is an endpoint-local backend.
func (id ProviderID) IsLocal() bool {
	return identities[id].Kind == EndpointLocal
}

// Name returns the display name, falling back to the raw id.
func (id ProviderID) Name() string {
	if ident, ok := identities[id]; ok {
		return ident.DisplayName
	}
	return string(id)
}

func joinIDs(ids []ProviderID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
