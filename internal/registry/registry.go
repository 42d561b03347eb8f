// Package registry owns one provider client per known backend and decides
// which of them serves a task.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"mangaba/internal/config"
	"mangaba/internal/logging"
	"mangaba/internal/provider"
	"mangaba/internal/types"
)

// Registry is built once from the provider document and never reloaded.
// Reconfiguration means building a new one.
type Registry struct {
	doc     *config.ProviderDocument
	clients map[types.ProviderID]provider.Client
}

// Binding is a resolved client together with the model it will use.
type Binding struct {
	Client provider.Client
	Model  string
}

// New builds a client for every known backend. Backends missing from doc
// get an unconfigured client.
func New(doc *config.ProviderDocument, timeouts config.TimeoutsConfig, opts provider.Options) (*Registry, error) {
	if doc == nil {
		doc = &config.ProviderDocument{}
	}

	clients := make(map[types.ProviderID]provider.Client, len(types.KnownProviders()))
	for _, id := range types.KnownProviders() {
		clientOpts := opts
		if clientOpts.Timeout == 0 {
			clientOpts.Timeout = timeouts.For(id)
		}
		if clientOpts.ProbeTimeout == 0 {
			clientOpts.ProbeTimeout = timeouts.ProbeTimeout()
		}

		c, err := provider.NewClient(id, doc.Get(id), clientOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s client: %w", id, err)
		}
		clients[id] = c
		logging.RegistryDebug("Built %s client (configured=%v timeout=%v)", id, c.Configured(), clientOpts.Timeout)
	}

	return NewWithClients(doc, clients), nil
}

// NewWithClients wraps prebuilt clients. Used by tests and by callers that
// construct clients themselves.
func NewWithClients(doc *config.ProviderDocument, clients map[types.ProviderID]provider.Client) *Registry {
	if doc == nil {
		doc = &config.ProviderDocument{}
	}
	r := &Registry{doc: doc, clients: clients}
	logging.Registry("Registry ready: candidates=%v default=%q", r.candidates(), doc.DefaultProvider)
	return r
}

// Client returns the client for id.
func (r *Registry) Client(id types.ProviderID) (provider.Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

// All returns every client ordered by id.
func (r *Registry) All() []provider.Client {
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	out := make([]provider.Client, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.clients[types.ProviderID(id)])
	}
	return out
}

// Candidates returns the backends that hold the credentials their kind
// requires, sorted. These are the only ones Resolve will pick on its own.
func (r *Registry) Candidates() []types.ProviderID {
	return r.candidates()
}

func (r *Registry) candidates() []types.ProviderID {
	var out []types.ProviderID
	for _, c := range r.All() {
		if c.Configured() {
			out = append(out, c.ID())
		}
	}
	return out
}

// ListConfigured returns the backends whose configuration is complete:
// credentials plus a default model. Sorted by id.
func (r *Registry) ListConfigured() []types.ProviderID {
	var out []types.ProviderID
	for _, id := range types.KnownProviders() {
		if config.ValidateProvider(id, r.doc.Get(id)) == nil {
			out = append(out, id)
		}
	}
	return out
}

// Resolve picks the backend and model for a task.
//
// An explicit hint always wins. Without one, the document's default provider
// is used when it can actually be reached, then a sole configured backend.
// Several configured backends with no default is an error rather than a guess.
func (r *Registry) Resolve(hint types.ProviderID, modelHint string) (*Binding, error) {
	id, err := r.pick(hint)
	if err != nil {
		logging.RegistryDebug("Resolve failed: hint=%q err=%v", hint, err)
		return nil, err
	}

	// An explicitly requested but unconfigured client is still bound: its
	// operations fail with NotConfigured before touching the network.
	c := r.clients[id]
	model := strings.TrimSpace(modelHint)
	if model == "" {
		model = c.DefaultModel()
	}
	logging.Registry("Resolved provider=%s model=%s", id, model)
	return &Binding{Client: c, Model: model}, nil
}

func (r *Registry) pick(hint types.ProviderID) (types.ProviderID, error) {
	if hint != "" {
		id, err := types.ParseProviderID(string(hint))
		if err != nil {
			return "", provider.NewError("", provider.KindInvalidRequest, err.Error(), err)
		}
		if _, ok := r.clients[id]; !ok {
			return "", provider.NewError(id, provider.KindNotConfigured, "no client registered", nil)
		}
		return id, nil
	}

	candidates := r.candidates()
	if def := r.doc.DefaultProvider; def != "" {
		for _, id := range candidates {
			if id == def {
				return id, nil
			}
		}
		logging.Get(logging.CategoryRegistry).Warn("Default provider %q is not configured; ignoring it", def)
	}

	switch len(candidates) {
	case 0:
		return "", provider.NewError("", provider.KindNotConfigured,
			"no provider is configured; run 'mangaba config set <provider>' first", nil)
	case 1:
		return candidates[0], nil
	default:
		return "", provider.NewError("", provider.KindNoProviderSelected,
			fmt.Sprintf("several providers are configured (%s); pass --provider or run 'mangaba config default <provider>'", joinIDs(candidates)), nil)
	}
}

func joinIDs(ids []types.ProviderID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}
