package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mangaba/internal/config"
	"mangaba/internal/types"
)

var (
	cfgAPIKey  string
	cfgBaseURL string
	cfgModel   string
)

// configCmd groups provider configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage provider configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show provider configuration (keys masked)",
	Args:  cobra.NoArgs,
	RunE:  configList,
}

var configSetCmd = &cobra.Command{
	Use:   "set [provider]",
	Short: "Set credentials, base URL or default model for a provider",
	Long: `Merges the given fields into the provider's configuration. Fields not
passed are left as they are.

Examples:
  mangaba config set openai --api-key sk-... --model gpt-4
  mangaba config set localai --base-url http://localhost:8080 --model phi-2`,
	Args: cobra.ExactArgs(1),
	RunE: configSet,
}

var configRemoveCmd = &cobra.Command{
	Use:   "remove [provider]",
	Short: "Remove a provider's configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  configRemove,
}

var configClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all provider configuration",
	Args:  cobra.NoArgs,
	RunE:  configClear,
}

var configDefaultCmd = &cobra.Command{
	Use:   "default [provider]",
	Short: "Set the provider used when none is given",
	Args:  cobra.ExactArgs(1),
	RunE:  configDefault,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check which providers have a complete configuration",
	Args:  cobra.NoArgs,
	RunE:  configValidate,
}

func init() {
	configSetCmd.Flags().StringVar(&cfgAPIKey, "api-key", "", "API key")
	configSetCmd.Flags().StringVar(&cfgBaseURL, "base-url", "", "Base URL (local providers, or a proxy)")
	configSetCmd.Flags().StringVarP(&cfgModel, "model", "m", "", "Default model")

	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configRemoveCmd)
	configCmd.AddCommand(configClearCmd)
	configCmd.AddCommand(configDefaultCmd)
	configCmd.AddCommand(configValidateCmd)
}

func configList(cmd *cobra.Command, args []string) error {
	store := providerStore()
	doc, err := store.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Provider configuration")+" "+mutedStyle.Render(store.Path()))
	if len(doc.Providers) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  No providers configured. Run 'mangaba config set <provider> ...'."))
		return nil
	}

	for _, id := range types.KnownProviders() {
		cfg, ok := doc.Providers[id]
		if !ok {
			continue
		}
		name := id.Name()
		if doc.DefaultProvider == id {
			name += " " + successStyle.Render("(default)")
		}
		fmt.Fprintln(out, labelStyle.Render(name))
		if cfg.APIKey != "" {
			fmt.Fprintf(out, "  apiKey:       %s\n", config.MaskKey(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			fmt.Fprintf(out, "  baseUrl:      %s\n", cfg.BaseURL)
		}
		if cfg.DefaultModel != "" {
			fmt.Fprintf(out, "  defaultModel: %s\n", cfg.DefaultModel)
		}
		if !cfg.UpdatedAt.IsZero() {
			fmt.Fprintf(out, "  updatedAt:    %s\n", mutedStyle.Render(formatTime(cfg.UpdatedAt)))
		}
	}
	return nil
}

func configSet(cmd *cobra.Command, args []string) error {
	id, err := types.ParseProviderID(args[0])
	if err != nil {
		return err
	}
	if cfgAPIKey == "" && cfgBaseURL == "" && cfgModel == "" {
		return fmt.Errorf("nothing to set: pass --api-key, --base-url or --model")
	}

	update := config.ProviderConfig{APIKey: cfgAPIKey, BaseURL: cfgBaseURL, DefaultModel: cfgModel}
	if err := providerStore().Set(id, update); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s configuration saved\n", check(true), id.Name())
	return nil
}

func configRemove(cmd *cobra.Command, args []string) error {
	id, err := types.ParseProviderID(args[0])
	if err != nil {
		return err
	}
	removed, err := providerStore().Remove(id)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", warningStyle.Render(id.Name()+" was not configured"))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s configuration removed\n", check(true), id.Name())
	return nil
}

func configClear(cmd *cobra.Command, args []string) error {
	if err := providerStore().Clear(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s all provider configuration removed\n", check(true))
	return nil
}

func configDefault(cmd *cobra.Command, args []string) error {
	id, err := types.ParseProviderID(args[0])
	if err != nil {
		return err
	}
	if err := providerStore().SetDefault(id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s default provider is now %s\n", check(true), id.Name())
	return nil
}

func configValidate(cmd *cobra.Command, args []string) error {
	doc, err := providerStore().Load()
	if err != nil {
		return err
	}
	doc = doc.WithEnvKeys()

	out := cmd.OutOrStdout()
	valid := 0
	for _, id := range types.KnownProviders() {
		cfg, ok := doc.Providers[id]
		if !ok {
			continue
		}
		if err := config.ValidateProvider(id, cfg); err != nil {
			fmt.Fprintf(out, "%s %s\n", check(false), err)
			continue
		}
		valid++
		fmt.Fprintf(out, "%s %s\n", check(true), id.Name())
	}
	if valid == 0 {
		return fmt.Errorf("no provider has a complete configuration")
	}
	return nil
}
