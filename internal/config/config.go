package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mangaba/internal/logging"

	"gopkg.in/yaml.v3"
)

// Config holds the application settings read from mangaba.yaml.
// Provider credentials live in the separate provider document (see ProviderStore).
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Context store
	Context ContextConfig `yaml:"context"`

	// Per-backend network timeouts
	Timeouts TimeoutsConfig `yaml:"timeouts"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories,omitempty"`
	MaxSizeMB  int             `yaml:"max_size_mb"`
	MaxBackups int             `yaml:"max_backups"`
	MaxAgeDays int             `yaml:"max_age_days"`
}

// ContextConfig configures the bounded context store.
type ContextConfig struct {
	// Backend selects the persistence layer: "json" (default) or "sqlite".
	Backend string `yaml:"backend"`

	// Path of the persisted document. Relative paths resolve against the home dir.
	Path string `yaml:"path"`

	// ExportDir receives context-export-<ms>.json snapshots.
	ExportDir string `yaml:"export_dir"`

	// MaxConversations is K, the live conversation cap. Import keeps up to 2*K.
	MaxConversations int `yaml:"max_conversations"`

	// PreviewLength truncates stored responses.
	PreviewLength int `yaml:"preview_length"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "mangaba",
		Version: "1.0.0",

		Logging: LoggingConfig{
			DebugMode:  false,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},

		Context: ContextConfig{
			Backend:          "json",
			Path:             "context.json",
			ExportDir:        ".",
			MaxConversations: 10,
			PreviewLength:    500,
		},

		Timeouts: DefaultTimeouts(),
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.ConfigDebug("loaded %s (context backend=%s)", path, cfg.Context.Backend)

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MANGABA_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
	if v := os.Getenv("MANGABA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MANGABA_CONTEXT_BACKEND"); v != "" {
		c.Context.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("MANGABA_MAX_CONVERSATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Context.MaxConversations = n
		}
	}
}

// Validate checks the configuration for values the rest of the program cannot use.
func (c *Config) Validate() error {
	switch c.Context.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("context.backend must be json or sqlite, got %q", c.Context.Backend)
	}
	if c.Context.MaxConversations <= 0 {
		return fmt.Errorf("context.max_conversations must be positive, got %d", c.Context.MaxConversations)
	}
	if c.Context.PreviewLength <= 0 {
		return fmt.Errorf("context.preview_length must be positive, got %d", c.Context.PreviewLength)
	}
	return c.Timeouts.Validate()
}

// LoggingOptions converts the logging section for logging.Initialize.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		DebugMode:  c.Logging.DebugMode,
		Level:      c.Logging.Level,
		JSONFormat: c.Logging.JSONFormat,
		Categories: c.Logging.Categories,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
	}
}

// ContextPath resolves the context document path against home.
func (c *Config) ContextPath(home string) string {
	return resolve(home, c.Context.Path)
}

// ExportDir resolves the export directory against home.
func (c *Config) ExportDir(home string) string {
	return resolve(home, c.Context.ExportDir)
}

func resolve(home, p string) string {
	if p == "" {
		return home
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(home, p)
}
