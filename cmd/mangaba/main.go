package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mangaba/internal/config"
	"mangaba/internal/contextstore"
	"mangaba/internal/gateway"
	"mangaba/internal/logging"
	"mangaba/internal/provider"
	"mangaba/internal/registry"
	"mangaba/internal/usage"
)

var (
	// Global flags
	verbose bool
	homeDir string

	// Logger
	logger *zap.Logger

	// Loaded in PersistentPreRunE
	appCfg *config.Config

	// Counters shared by every gateway opened in this process
	tracker = usage.NewTracker()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mangaba",
	Short: "mangaba - one command line for many LLM providers",
	Long: `mangaba sends natural-language tasks to OpenAI, Gemini, Anthropic, Ollama,
Hugging Face, Cohere, Together, LocalAI or Groq through one interface, and keeps
a short rolling history of what was asked.

Configure a provider first:
  mangaba config set groq --api-key gsk_... --model llama3-8b-8192
  mangaba config set ollama --base-url http://localhost:11434 --model llama2

Then run a task:
  mangaba task "explain goroutines in two sentences"`,
	SilenceUsage:               true,
	SuggestionsMinimumDistance: 2,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		home := resolveHome()
		appCfg, err = config.Load(config.AppConfigPath(home))
		if err != nil {
			return err
		}
		if err := appCfg.Validate(); err != nil {
			return fmt.Errorf("invalid %s: %w", config.AppConfigPath(home), err)
		}

		if err := logging.Initialize(config.LogsDir(home), appCfg.LoggingOptions()); err != nil {
			logger.Warn("File logging disabled", zap.Error(err))
		}
		if err := logging.InitAudit(); err != nil {
			logging.BootWarn("audit log disabled: %v", err)
			logger.Warn("Audit log disabled", zap.Error(err))
		}
		logging.Boot("mangaba %s starting, home=%s context=%s", appCfg.Version, home, appCfg.Context.Backend)
		logging.CLIDebug("command=%s home=%s", cmd.CommandPath(), home)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAudit()
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Data directory (default: $MANGABA_HOME or ~/.mangaba)")

	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(contextCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

// resolveHome applies --home > MANGABA_HOME > ~/.mangaba.
func resolveHome() string {
	if homeDir != "" {
		if abs, err := filepath.Abs(homeDir); err == nil {
			return abs
		}
		return homeDir
	}
	return config.DefaultHome()
}

func providerStore() *config.ProviderStore {
	return config.NewProviderStore(config.ProviderConfigPath(resolveHome()))
}

// openGateway builds the registry from the provider document (environment
// keys filling gaps) and the context store from the app config. The returned
// func releases the store.
func openGateway(cmd *cobra.Command) (*gateway.Gateway, func(), error) {
	home := resolveHome()
	if appCfg == nil {
		appCfg = config.DefaultConfig()
	}

	doc, err := providerStore().Load()
	if err != nil {
		return nil, nil, err
	}
	reg, err := registry.New(doc.WithEnvKeys(), appCfg.Timeouts, provider.Options{})
	if err != nil {
		return nil, nil, err
	}

	backend, err := contextstore.OpenBackend(appCfg.Context.Backend, appCfg.ContextPath(home))
	if err != nil {
		return nil, nil, err
	}
	store := contextstore.New(backend, contextstore.Options{
		MaxConversations: appCfg.Context.MaxConversations,
		PreviewLength:    appCfg.Context.PreviewLength,
		ExportDir:        appCfg.ExportDir(home),
	})

	gw := gateway.New(reg, store, tracker)
	gw.RecordCommand(strings.TrimPrefix(cmd.CommandPath(), rootCmd.Name()+" "))
	return gw, func() {
		if err := store.Close(); err != nil && logger != nil {
			logger.Warn("Failed to close context store", zap.Error(err))
		}
	}, nil
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
