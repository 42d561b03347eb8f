package usage

import (
	"sort"
	"sync"
	"time"

	"mangaba/internal/types"
)

// Tracker keeps process-lifetime counters for reporting. Nothing is
// persisted; a new process starts from zero.
type Tracker struct {
	mu    sync.Mutex
	stats Stats
	now   func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	t := &Tracker{now: time.Now}
	t.stats = Stats{
		StartedAt:  t.now(),
		ByProvider: make(map[string]TokenCounts),
		ByModel:    make(map[string]TokenCounts),
		ByCommand:  make(map[string]int64),
	}
	return t
}

// Track records one successfully executed task.
func (t *Tracker) Track(provider types.ProviderID, model string, u types.Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.TasksExecuted++
	t.stats.Total.Add(u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	addToMap(t.stats.ByProvider, string(provider), u)
	addToMap(t.stats.ByModel, model, u)
}

// RecordCommand counts one CLI command invocation.
func (t *Tracker) RecordCommand(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.CommandsRun++
	if name != "" {
		t.stats.ByCommand[name]++
	}
}

// Stats returns a copy of the counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.stats
	stats.ByProvider = copyTokenCountsMap(stats.ByProvider)
	stats.ByModel = copyTokenCountsMap(stats.ByModel)
	stats.ByCommand = make(map[string]int64, len(t.stats.ByCommand))
	for k, v := range t.stats.ByCommand {
		stats.ByCommand[k] = v
	}
	return stats
}

// Uptime reports how long the tracker has been counting.
func (t *Tracker) Uptime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now().Sub(t.stats.StartedAt)
}

// Providers returns the providers that completed at least one task, sorted.
func (s Stats) Providers() []string {
	out := make([]string, 0, len(s.ByProvider))
	for p := range s.ByProvider {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func copyTokenCountsMap(src map[string]TokenCounts) map[string]TokenCounts {
	dst := make(map[string]TokenCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]TokenCounts, key string, u types.Usage) {
	entry := m[key]
	entry.Add(u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	m[key] = entry
}
