package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mangaba/internal/gateway"
	"mangaba/internal/types"
	"mangaba/internal/usage"
)

var (
	taskProvider string
	taskModel    string
	taskRaw      bool
	taskStats    bool
)

// taskCmd sends one task to a provider
var taskCmd = &cobra.Command{
	Use:     "task [text...]",
	Aliases: []string{"run", "ask"},
	Short:   "Run a task on the configured provider",
	Long: `Sends the task text to a provider and prints the answer.

The provider is chosen in this order: --provider, the configured default
(mangaba config default <provider>), or the only configured provider.

Examples:
  mangaba task "summarize the CAP theorem"
  mangaba task -p ollama -m mistral "write a haiku about Go"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	taskCmd.Flags().StringVarP(&taskProvider, "provider", "p", "", "Provider to use")
	taskCmd.Flags().StringVarP(&taskModel, "model", "m", "", "Model to use (default: provider default)")
	taskCmd.Flags().BoolVar(&taskRaw, "raw", false, "Print the answer without markdown rendering")
	taskCmd.Flags().BoolVar(&taskStats, "stats", false, "Print usage counters after the run")
}

func runTask(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptible()
	defer cancel()

	var hint types.ProviderID
	if taskProvider != "" {
		id, err := types.ParseProviderID(taskProvider)
		if err != nil {
			return err
		}
		hint = id
	}

	gw, closeFn, err := openGateway(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	task := joinArgs(args)
	logger.Debug("Running task", zap.String("provider", string(hint)), zap.Int("task_len", len(task)))

	result, err := gw.Run(ctx, task, gateway.Options{Provider: hint, Model: taskModel})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if taskRaw {
		fmt.Fprintln(out, result.Content)
	} else {
		fmt.Fprintln(out, renderMarkdown(result.Content))
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%s · %s · %d tokens", result.Provider.Name(), result.Model, result.Usage.TotalTokens)))
	}

	if taskStats {
		printStats(cmd, gw.Stats())
	}
	return nil
}

func printStats(cmd *cobra.Command, stats usage.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Session statistics"))
	fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("Uptime:"), tracker.Uptime().Round(time.Millisecond))
	fmt.Fprintf(out, "  %s %d\n", labelStyle.Render("Tasks executed:"), stats.TasksExecuted)
	fmt.Fprintf(out, "  %s %d\n", labelStyle.Render("Commands run:"), stats.CommandsRun)
	fmt.Fprintf(out, "  %s %d (in %d, out %d)\n", labelStyle.Render("Tokens:"), stats.Total.Total, stats.Total.Input, stats.Total.Output)
	for _, p := range stats.Providers() {
		fmt.Fprintf(out, "    %-12s %d\n", p, stats.ByProvider[p].Total)
	}
}
