package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"mangaba/internal/types"
)

// testCmd probes every provider that has credentials
var testCmd = &cobra.Command{
	Use:     "test",
	Aliases: []string{"health"},
	Short:   "Test connectivity to every configured provider",
	Args:    cobra.NoArgs,
	RunE:    runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptible()
	defer cancel()

	gw, closeFn, err := openGateway(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	results := gw.TestAll(ctx)
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, warningStyle.Render("No providers configured. Run 'mangaba config set <provider> ...'."))
		return nil
	}

	ids := make([]types.ProviderID, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	failed := 0
	for _, id := range ids {
		status := results[id]
		if status.Success {
			fmt.Fprintf(out, "%s %s\n", check(true), id.Name())
			continue
		}
		failed++
		fmt.Fprintf(out, "%s %s %s\n", check(false), id.Name(), mutedStyle.Render(status.Error))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d providers unreachable", failed, len(ids))
	}
	return nil
}
