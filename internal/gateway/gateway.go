// Package gateway is the single entry point callers use to run a task:
// it resolves a provider, executes the task, and records the outcome.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mangaba/internal/contextstore"
	"mangaba/internal/logging"
	"mangaba/internal/provider"
	"mangaba/internal/registry"
	"mangaba/internal/types"
	"mangaba/internal/usage"
)

// probeWarnThreshold flags a health check batch slow enough to notice.
const probeWarnThreshold = 5 * time.Second

// Options select the provider and model for one task. Both are optional.
type Options struct {
	Provider types.ProviderID
	Model    string
}

// Gateway wires the registry, the context store and the usage counters.
// All three are injected; the gateway owns none of them.
type Gateway struct {
	registry *registry.Registry
	store    *contextstore.Store
	tracker  *usage.Tracker
}

// New creates a gateway. A nil tracker gets a fresh one.
func New(reg *registry.Registry, store *contextstore.Store, tracker *usage.Tracker) *Gateway {
	if tracker == nil {
		tracker = usage.NewTracker()
	}
	return &Gateway{registry: reg, store: store, tracker: tracker}
}

// Run executes task on the resolved provider. Only successful runs are
// recorded in the context store and the counters; failures come back with
// their classification intact.
func (g *Gateway) Run(ctx context.Context, task string, opts Options) (*types.NormalizedResult, error) {
	binding, err := g.registry.Resolve(opts.Provider, opts.Model)
	if err != nil {
		logging.GatewayWarn("Resolve failed: %v", err)
		logging.Audit().TaskError(string(opts.Provider), opts.Model, string(provider.KindOf(err)), err.Error(), 0)
		return nil, err
	}

	id := binding.Client.ID()
	log := logging.Get(logging.CategoryGateway).With("provider", string(id), "model", binding.Model)
	log.Info("Run: task_len=%d", len(task))
	logging.Audit().TaskStart(string(id), binding.Model, len(task))

	start := time.Now()
	result, err := binding.Client.Execute(ctx, task, binding.Model)
	elapsed := time.Since(start)
	if err != nil {
		kind := provider.KindOf(err)
		log.Warn("Run failed: kind=%s err=%v", kind, err)
		logging.Audit().TaskError(string(id), binding.Model, string(kind), err.Error(), elapsed)
		return nil, err
	}
	if result == nil || result.Content == "" {
		err := provider.NewError(id, provider.KindInvalidResponse, "no completion returned", nil)
		logging.Audit().TaskError(string(id), binding.Model, string(err.Kind), err.Error(), elapsed)
		return nil, err
	}

	if g.store != nil {
		g.store.RecordConversation(task, result.Content, result.Provider)
	}
	g.tracker.Track(result.Provider, result.Model, result.Usage)

	log.Info("Run complete: tokens=%d in %v", result.Usage.TotalTokens, elapsed)
	logging.Audit().TaskComplete(string(id), result.Model, result.Usage.TotalTokens, elapsed)
	return result, nil
}

// TestAll probes every backend that holds credentials, in parallel.
// A failed probe never fails the batch; it is reported in its status.
func (g *Gateway) TestAll(ctx context.Context) map[types.ProviderID]types.ConnectionStatus {
	timer := logging.StartTimer(logging.CategoryGateway, "TestAll")
	defer timer.StopWithThreshold(probeWarnThreshold)

	candidates := g.registry.Candidates()
	results := make(map[types.ProviderID]types.ConnectionStatus, len(candidates))

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	for _, id := range candidates {
		client, ok := g.registry.Client(id)
		if !ok {
			continue
		}
		eg.Go(func() error {
			start := time.Now()
			status := client.TestConnection(egCtx)
			logging.GatewayDebug("probe %s: success=%v", client.ID(), status.Success)
			logging.Audit().ProviderProbe(string(client.ID()), status.Success, status.Error, time.Since(start))

			mu.Lock()
			results[client.ID()] = status
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	logging.Gateway("TestAll: probed %d providers", len(results))
	return results
}

// ListConfigured returns the backends with a complete configuration.
func (g *Gateway) ListConfigured() []types.ProviderID {
	return g.registry.ListConfigured()
}

// ListModels lists the models of id, or of the provider Run would pick
// when id is empty.
func (g *Gateway) ListModels(ctx context.Context, id types.ProviderID) (types.ProviderID, []string, error) {
	binding, err := g.registry.Resolve(id, "")
	if err != nil {
		return id, nil, err
	}
	models, err := binding.Client.ListModels(ctx)
	return binding.Client.ID(), models, err
}

// Ollama returns the Ollama client for model management.
func (g *Gateway) Ollama() (*provider.OllamaClient, error) {
	c, ok := g.registry.Client(types.ProviderOllama)
	if !ok {
		return nil, errors.New("ollama client not registered")
	}
	ollama, ok := c.(*provider.OllamaClient)
	if !ok {
		return nil, fmt.Errorf("unexpected ollama client type %T", c)
	}
	if !ollama.Configured() {
		return nil, provider.NewError(types.ProviderOllama, provider.KindNotConfigured,
			"ollama is not configured; run 'mangaba config set ollama --base-url http://localhost:11434'", nil)
	}
	return ollama, nil
}

// Store exposes the context store for direct queries.
func (g *Gateway) Store() *contextstore.Store {
	return g.store
}

// RecordCommand counts one CLI command.
func (g *Gateway) RecordCommand(name string) {
	g.tracker.RecordCommand(name)
}

// Stats returns the process counters.
func (g *Gateway) Stats() usage.Stats {
	return g.tracker.Stats()
}
