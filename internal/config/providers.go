package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mangaba/internal/logging"
	"mangaba/internal/types"

	"github.com/tidwall/sjson"
)

// ProviderConfig is the stored configuration for one backend.
type ProviderConfig struct {
	APIKey       string    `json:"apiKey,omitempty"`
	BaseURL      string    `json:"baseUrl,omitempty"`
	DefaultModel string    `json:"defaultModel,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// HasCredentials reports whether cfg carries what a backend of the given kind
// needs to be reachable at all: an API key for keyed-cloud, a base URL for
// endpoint-local.
func (cfg ProviderConfig) HasCredentials(kind types.TransportKind) bool {
	if kind == types.EndpointLocal {
		return cfg.BaseURL != ""
	}
	return cfg.APIKey != ""
}

// ProviderDocument is the provider configuration file.
type ProviderDocument struct {
	DefaultProvider types.ProviderID                    `json:"defaultProvider,omitempty"`
	Providers       map[types.ProviderID]ProviderConfig `json:"providers"`
}

// Get returns the config for id, zero-valued when absent.
func (d *ProviderDocument) Get(id types.ProviderID) ProviderConfig {
	if d == nil || d.Providers == nil {
		return ProviderConfig{}
	}
	return d.Providers[id]
}

// WithEnvKeys returns a copy of d where providers lacking an API key take it
// from their <PROVIDER>_API_KEY environment variable. The file is not touched.
func (d *ProviderDocument) WithEnvKeys() *ProviderDocument {
	out := &ProviderDocument{Providers: make(map[types.ProviderID]ProviderConfig)}
	if d != nil {
		out.DefaultProvider = d.DefaultProvider
		for id, cfg := range d.Providers {
			out.Providers[id] = cfg
		}
	}
	for _, id := range types.KnownProviders() {
		ident, _ := types.Lookup(id)
		if ident.EnvKey == "" {
			continue
		}
		key := os.Getenv(ident.EnvKey)
		if key == "" {
			continue
		}
		cfg := out.Providers[id]
		if cfg.APIKey == "" {
			cfg.APIKey = key
			out.Providers[id] = cfg
		}
	}
	return out
}

// ValidateProvider applies the per-kind completeness rule: keyed-cloud needs
// apiKey and defaultModel, endpoint-local needs baseUrl and defaultModel.
func ValidateProvider(id types.ProviderID, cfg ProviderConfig) error {
	ident, ok := types.Lookup(id)
	if !ok {
		return fmt.Errorf("unknown provider %q", id)
	}
	var missing []string
	if ident.Kind == types.EndpointLocal {
		if cfg.BaseURL == "" {
			missing = append(missing, "baseUrl")
		}
	} else if cfg.APIKey == "" {
		missing = append(missing, "apiKey")
	}
	if cfg.DefaultModel == "" {
		missing = append(missing, "defaultModel")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing %s", id, strings.Join(missing, ", "))
	}
	return nil
}

// MaskKey hides all but the last four characters of an API key.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// ProviderStore reads and writes the provider document.
// Writes patch individual fields so keys added by hand survive.
type ProviderStore struct {
	path string
	now  func() time.Time
}

// NewProviderStore creates a store for the document at path.
func NewProviderStore(path string) *ProviderStore {
	return &ProviderStore{path: path, now: time.Now}
}

// Path returns the document location.
func (s *ProviderStore) Path() string {
	return s.path
}

// Load reads the document. A missing file yields an empty document.
func (s *ProviderStore) Load() (*ProviderDocument, error) {
	doc := &ProviderDocument{Providers: make(map[types.ProviderID]ProviderConfig)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read provider config: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse provider config: %w", err)
	}
	if doc.Providers == nil {
		doc.Providers = make(map[types.ProviderID]ProviderConfig)
	}
	return doc, nil
}

// Set merges the non-empty fields of update into the stored config for id
// and stamps updatedAt.
func (s *ProviderStore) Set(id types.ProviderID, update ProviderConfig) error {
	if _, ok := types.Lookup(id); !ok {
		return fmt.Errorf("unknown provider %q", id)
	}

	data, err := s.raw()
	if err != nil {
		return err
	}

	prefix := "providers." + string(id) + "."
	fields := []struct {
		key   string
		value string
	}{
		{"apiKey", update.APIKey},
		{"baseUrl", update.BaseURL},
		{"defaultModel", update.DefaultModel},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if data, err = sjson.SetBytes(data, prefix+f.key, f.value); err != nil {
			return fmt.Errorf("failed to set %s: %w", f.key, err)
		}
	}
	if data, err = sjson.SetBytes(data, prefix+"updatedAt", s.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to set updatedAt: %w", err)
	}

	logging.Config("provider %s updated", id)
	return s.write(data)
}

// SetDefault marks id as the provider used when no hint is given.
func (s *ProviderStore) SetDefault(id types.ProviderID) error {
	if _, ok := types.Lookup(id); !ok {
		return fmt.Errorf("unknown provider %q", id)
	}
	data, err := s.raw()
	if err != nil {
		return err
	}
	if data, err = sjson.SetBytes(data, "defaultProvider", string(id)); err != nil {
		return fmt.Errorf("failed to set defaultProvider: %w", err)
	}
	return s.write(data)
}

// Remove deletes the config for id. Removing the default provider also
// clears the default marker. Returns false when nothing was stored.
func (s *ProviderStore) Remove(id types.ProviderID) (bool, error) {
	doc, err := s.Load()
	if err != nil {
		return false, err
	}
	if _, ok := doc.Providers[id]; !ok {
		return false, nil
	}

	data, err := s.raw()
	if err != nil {
		return false, err
	}
	if data, err = sjson.DeleteBytes(data, "providers."+string(id)); err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", id, err)
	}
	if doc.DefaultProvider == id {
		if data, err = sjson.DeleteBytes(data, "defaultProvider"); err != nil {
			return false, fmt.Errorf("failed to clear default provider: %w", err)
		}
	}

	logging.Config("provider %s removed", id)
	return true, s.write(data)
}

// Clear drops every provider configuration.
func (s *ProviderStore) Clear() error {
	logging.ConfigWarn("clearing all provider configuration")
	return s.write([]byte(`{"providers":{}}`))
}

func (s *ProviderStore) raw() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte(`{"providers":{}}`), nil
		}
		return nil, fmt.Errorf("failed to read provider config: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []byte(`{"providers":{}}`), nil
	}
	return data, nil
}

func (s *ProviderStore) write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Written to a temp file in the same directory and renamed over the
	// document, so a crash mid-write never leaves a truncated key file.
	// CreateTemp opens with 0600, which the document keeps since it holds API keys.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write provider config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write provider config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write provider config: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace provider config: %w", err)
	}
	return nil
}
