package config

import (
	"fmt"
	"time"

	"mangaba/internal/types"
)

// TimeoutsConfig holds per-backend network timeouts as duration strings.
// Local backends get a longer budget than cloud ones since they load the
// model on first use. A timeout is reported as a retryable error and never retried automatically.
type TimeoutsConfig struct {
	// Cloud applies to every keyed-cloud backend without its own entry.
	Cloud string `yaml:"cloud"`

	// Together serves large open models and is slower than the other clouds.
	Together string `yaml:"together"`

	// Ollama and LocalAI are endpoint-local backends.
	Ollama  string `yaml:"ollama"`
	LocalAI string `yaml:"localai"`

	// Probe bounds a single testConnection call.
	Probe string `yaml:"probe"`
}

// DefaultTimeouts returns the built-in timeout table.
func DefaultTimeouts() TimeoutsConfig {
	return TimeoutsConfig{
		Cloud:    "30s",
		Together: "60s",
		Ollama:   "5m",
		LocalAI:  "10m",
		Probe:    "10s",
	}
}

// For returns the request timeout for a backend.
func (t TimeoutsConfig) For(id types.ProviderID) time.Duration {
	defaults := DefaultTimeouts()
	switch id {
	case types.ProviderOllama:
		return parseDuration(t.Ollama, defaults.Ollama)
	case types.ProviderLocalAI:
		return parseDuration(t.LocalAI, defaults.LocalAI)
	case types.ProviderTogether:
		return parseDuration(t.Together, defaults.Together)
	default:
		return parseDuration(t.Cloud, defaults.Cloud)
	}
}

// ProbeTimeout returns the health-check timeout.
func (t TimeoutsConfig) ProbeTimeout() time.Duration {
	return parseDuration(t.Probe, DefaultTimeouts().Probe)
}

// Validate rejects unparsable or non-positive durations.
func (t TimeoutsConfig) Validate() error {
	fields := map[string]string{
		"cloud":    t.Cloud,
		"together": t.Together,
		"ollama":   t.Ollama,
		"localai":  t.LocalAI,
		"probe":    t.Probe,
	}
	for name, v := range fields {
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("timeouts.%s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("timeouts.%s must be positive, got %s", name, v)
		}
	}
	return nil
}

func parseDuration(v, fallback string) time.Duration {
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}
