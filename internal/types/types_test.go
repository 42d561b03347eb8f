package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownProviders(t *testing.T) {
	ids := KnownProviders()
	require.Len(t, ids, 9)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, string(ids[i-1]), string(ids[i]), "ids must be sorted")
	}
}

func TestParseProviderID(t *testing.T) {
	id, err := ParseProviderID("  Ollama ")
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, id)
	assert.True(t, id.IsLocal())

	_, err = ParseProviderID("skynet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestTransportKinds(t *testing.T) {
	local := map[ProviderID]bool{ProviderOllama: true, ProviderLocalAI: true}
	for _, id := range KnownProviders() {
		ident, ok := Lookup(id)
		require.True(t, ok)
		if local[id] {
			assert.Equal(t, EndpointLocal, ident.Kind, id)
		} else {
			assert.Equal(t, KeyedCloud, ident.Kind, id)
			assert.NotEmpty(t, ident.EnvKey, id)
		}
	}
	assert.Equal(t, "Groq", ProviderGroq.Name())
	assert.Equal(t, "mystery", ProviderID("mystery").Name())
}
