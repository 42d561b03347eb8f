package registry

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangaba/internal/config"
	"mangaba/internal/provider"
	"mangaba/internal/types"
)

// stubClient is a ProviderClient that counts calls and never dials out.
type stubClient struct {
	id         types.ProviderID
	configured bool
	model      string
	calls      int
}

func (s *stubClient) ID() types.ProviderID { return s.id }
func (s *stubClient) Configured() bool { return s.configured }
func (s *stubClient) DefaultModel() string { return s.model }
func (s *stubClient) Execute(ctx context.Context, task, model string) (*types.NormalizedResult, error) {
	s.calls++
	return &types.NormalizedResult{Content: "ok", Model: model, Provider: s.id}, nil
}
func (s *stubClient) ListModels(ctx context.Context) ([]string, error) { return []string{s.model}, nil }
func (s *stubClient) TestConnection(ctx context.Context) types.ConnectionStatus {
	return types.ConnectionStatus{Success: s.configured}
}

func stubs(configured ...types.ProviderID) map[types.ProviderID]provider.Client {
	on := make(map[types.ProviderID]bool)
	for _, id := range configured {
		on[id] = true
	}
	out := make(map[types.ProviderID]provider.Client)
	for _, id := range types.KnownProviders() {
		out[id] = &stubClient{id: id, configured: on[id], model: string(id) + "-default"}
	}
	return out
}

func TestNew_BuildsEveryBackend(t *testing.T) {
	doc := &config.ProviderDocument{Providers: map[types.ProviderID]config.ProviderConfig{
		types.ProviderOpenAI: {APIKey: "sk-test"},
		types.ProviderOllama: {BaseURL: "http://localhost:11434"},
	}}
	r, err := New(doc, config.DefaultTimeouts(), provider.Options{})
	require.NoError(t, err)

	all := r.All()
	require.Len(t, all, len(types.KnownProviders()))
	for i, c := range all {
		assert.Equal(t, types.KnownProviders()[i], c.ID())
	}

	want := []types.ProviderID{types.ProviderOllama, types.ProviderOpenAI}
	if diff := cmp.Diff(want, r.Candidates()); diff != "" {
		t.Errorf("Candidates() mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_NilDocument(t *testing.T) {
	r, err := New(nil, config.DefaultTimeouts(), provider.Options{})
	require.NoError(t, err)
	assert.Empty(t, r.Candidates())
	assert.Empty(t, r.ListConfigured())
}

func TestResolve_ExplicitHintWins(t *testing.T) {
	doc := &config.ProviderDocument{DefaultProvider: types.ProviderGroq}
	r := NewWithClients(doc, stubs(types.ProviderGroq, types.ProviderCohere))

	b, err := r.Resolve("Cohere", "")
	require.NoError(t, err)
	assert.Equal(t, types.ProviderCohere, b.Client.ID())
	assert.Equal(t, "cohere-default", b.Model)
}

func TestResolve_ModelHint(t *testing.T) {
	r := NewWithClients(nil, stubs(types.ProviderGroq))

	b, err := r.Resolve("", "  llama3-70b-8192 ")
	require.NoError(t, err)
	assert.Equal(t, "llama3-70b-8192", b.Model)
}

func TestResolve_UnknownHint(t *testing.T) {
	r := NewWithClients(nil, stubs(types.ProviderGroq))

	_, err := r.Resolve("skynet", "")
	assert.True(t, provider.IsKind(err, provider.KindInvalidRequest), "got %v", err)
}

func TestResolve_DefaultProvider(t *testing.T) {
	doc := &config.ProviderDocument{DefaultProvider: types.ProviderGroq}
	r := NewWithClients(doc, stubs(types.ProviderGroq, types.ProviderCohere))

	b, err := r.Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, types.ProviderGroq, b.Client.ID())
}

func TestResolve_UnconfiguredDefaultIsIgnored(t *testing.T) {
	doc := &config.ProviderDocument{DefaultProvider: types.ProviderOpenAI}
	r := NewWithClients(doc, stubs(types.ProviderCohere))

	b, err := r.Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, types.ProviderCohere, b.Client.ID())
}

func TestResolve_SoleCandidate(t *testing.T) {
	r := NewWithClients(nil, stubs(types.ProviderOllama))

	b, err := r.Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, types.ProviderOllama, b.Client.ID())
}

func TestResolve_SeveralWithoutDefault(t *testing.T) {
	clients := stubs(types.ProviderGroq, types.ProviderCohere)
	r := NewWithClients(nil, clients)

	_, err := r.Resolve("", "")
	require.True(t, provider.IsKind(err, provider.KindNoProviderSelected), "got %v", err)
	assert.Contains(t, err.Error(), "cohere, groq")

	for _, c := range clients {
		assert.Zero(t, c.(*stubClient).calls)
	}
}

func TestResolve_NoneConfigured(t *testing.T) {
	r := NewWithClients(nil, stubs())

	_, err := r.Resolve("", "")
	assert.True(t, provider.IsKind(err, provider.KindNotConfigured), "got %v", err)
}

func TestResolve_ExplicitUnconfiguredFailsOnUse(t *testing.T) {
	r, err := New(nil, config.DefaultTimeouts(), provider.Options{})
	require.NoError(t, err)

	b, err := r.Resolve(types.ProviderAnthropic, "")
	require.NoError(t, err)

	_, err = b.Client.Execute(context.Background(), "hello", b.Model)
	assert.True(t, provider.IsKind(err, provider.KindNotConfigured), "got %v", err)
}

func TestListConfigured_StricterThanCandidates(t *testing.T) {
	doc := &config.ProviderDocument{Providers: map[types.ProviderID]config.ProviderConfig{
		types.ProviderOpenAI:  {APIKey: "sk", DefaultModel: "gpt-4"},
		types.ProviderGroq:    {APIKey: "gsk"},
		types.ProviderOllama:  {BaseURL: "http://localhost:11434", DefaultModel: "llama2"},
		types.ProviderLocalAI: {DefaultModel: "phi-2"},
	}}
	r, err := New(doc, config.DefaultTimeouts(), provider.Options{})
	require.NoError(t, err)

	want := []types.ProviderID{types.ProviderOllama, types.ProviderOpenAI}
	if diff := cmp.Diff(want, r.ListConfigured()); diff != "" {
		t.Errorf("ListConfigured() mismatch (-want +got):\n%s", diff)
	}

	want = []types.ProviderID{types.ProviderGroq, types.ProviderOllama, types.ProviderOpenAI}
	if diff := cmp.Diff(want, r.Candidates()); diff != "" {
		t.Errorf("Candidates() mismatch (-want +got):\n%s", diff)
	}
}

func TestClient(t *testing.T) {
	r := NewWithClients(nil, stubs(types.ProviderGroq))

	c, ok := r.Client(types.ProviderGroq)
	require.True(t, ok)
	assert.Equal(t, types.ProviderGroq, c.ID())

	_, ok = r.Client("nope")
	assert.False(t, ok)
}
