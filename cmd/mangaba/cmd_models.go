package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mangaba/internal/types"
)

// modelsCmd lists models and manages local Ollama models
var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List the models a provider offers",
	Long: `Lists the models of the given provider, or of the provider a task would
use when none is given. Backends without a listing endpoint return their
built-in catalog.`,
	Args: cobra.MaximumNArgs(1),
	RunE: modelsList,
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull [model]",
	Short: "Download a model into the local Ollama server",
	Args:  cobra.ExactArgs(1),
	RunE:  modelsPull,
}

var modelsDeleteCmd = &cobra.Command{
	Use:     "delete [model]",
	Aliases: []string{"rm"},
	Short:   "Remove a model from the local Ollama server",
	Args:    cobra.ExactArgs(1),
	RunE:    modelsDelete,
}

func init() {
	modelsCmd.AddCommand(modelsPullCmd)
	modelsCmd.AddCommand(modelsDeleteCmd)
}

func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func modelsList(cmd *cobra.Command, args []string) error {
	var id types.ProviderID
	if len(args) == 1 {
		parsed, err := types.ParseProviderID(args[0])
		if err != nil {
			return err
		}
		id = parsed
	}

	ctx, cancel := interruptible()
	defer cancel()

	gw, closeFn, err := openGateway(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	resolved, models, err := gw.ListModels(ctx, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(resolved.Name()+" models"))
	if len(models) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  (none)"))
		return nil
	}
	for _, m := range models {
		fmt.Fprintf(out, "  %s\n", m)
	}
	return nil
}

func modelsPull(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptible()
	defer cancel()

	gw, closeFn, err := openGateway(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	ollama, err := gw.Ollama()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Pulling "+args[0]+", this can take a while..."))
	if err := ollama.Pull(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s pulled %s\n", check(true), args[0])
	return nil
}

func modelsDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptible()
	defer cancel()

	gw, closeFn, err := openGateway(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	ollama, err := gw.Ollama()
	if err != nil {
		return err
	}
	if err := ollama.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %s\n", check(true), args[0])
	return nil
}
