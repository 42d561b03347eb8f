package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"mangaba/internal/contextstore"
)

var (
	recentLimit       int
	clearConversation bool
)

// contextCmd groups the conversation history commands
var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Inspect and manage the stored conversation context",
}

var contextRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent conversations",
	Args:  cobra.NoArgs,
	RunE:  contextRecent,
}

var contextSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search conversations and project notes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  contextSearch,
}

var contextProjectCmd = &cobra.Command{
	Use:   "project [path] [note...]",
	Short: "Show project notes, or record one when a note is given",
	Long: `With only a path (default: the current directory), lists the notes
recorded for exactly that path. With a note, records it first.

The note is stored as JSON when it parses as JSON, otherwise as a string.`,
	RunE: contextProject,
}

var contextPrefCmd = &cobra.Command{
	Use:   "pref [key] [value...]",
	Short: "List preferences, or record one when a key and value are given",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return fmt.Errorf("pref needs both a key and a value")
		}
		return nil
	},
	RunE: contextPref,
}

var contextSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show how much context is stored",
	Args:  cobra.NoArgs,
	RunE:  contextSummary,
}

var contextExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a snapshot of the context to the export directory",
	Args:  cobra.NoArgs,
	RunE:  contextExport,
}

var contextImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Merge a snapshot into the current context",
	Args:  cobra.ExactArgs(1),
	RunE:  contextImport,
}

var contextClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase the stored context",
	Args:  cobra.NoArgs,
	RunE:  contextClear,
}

func init() {
	contextRecentCmd.Flags().IntVarP(&recentLimit, "limit", "n", 5, "Number of conversations to show (0 for all)")
	contextClearCmd.Flags().BoolVar(&clearConversation, "conversations", false, "Erase only the conversation history")

	contextCmd.AddCommand(contextRecentCmd)
	contextCmd.AddCommand(contextSearchCmd)
	contextCmd.AddCommand(contextProjectCmd)
	contextCmd.AddCommand(contextPrefCmd)
	contextCmd.AddCommand(contextSummaryCmd)
	contextCmd.AddCommand(contextExportCmd)
	contextCmd.AddCommand(contextImportCmd)
	contextCmd.AddCommand(contextClearCmd)
}

// openStore opens the context store alone; these commands never reach a provider.
func openStore(cmd *cobra.Command) (*contextstore.Store, func(), error) {
	gw, closeFn, err := openGateway(cmd)
	if err != nil {
		return nil, nil, err
	}
	return gw.Store(), closeFn, nil
}

// jsonArg keeps valid JSON as-is and wraps anything else as a string.
func jsonArg(s string) interface{} {
	if gjson.Valid(s) {
		return json.RawMessage(s)
	}
	return s
}

func printEntry(cmd *cobra.Command, e contextstore.Entry) {
	out := cmd.OutOrStdout()
	stamp := mutedStyle.Render(formatTime(e.Timestamp))
	switch e.Type {
	case contextstore.TypeConversation:
		fields := gjson.GetManyBytes(e.Content, "task", "response", "provider")
		fmt.Fprintf(out, "%s %s\n", stamp, labelStyle.Render("["+fields[2].String()+"]"))
		fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("Task:"), fields[0].String())
		fmt.Fprintf(out, "  %s %s\n", labelStyle.Render("Response:"), fields[1].String())
	case contextstore.TypeProject:
		fields := gjson.GetManyBytes(e.Content, "projectPath", "info")
		fmt.Fprintf(out, "%s %s\n", stamp, labelStyle.Render(fields[0].String()))
		fmt.Fprintf(out, "  %s\n", fields[1].Raw)
	case contextstore.TypePreference:
		fields := gjson.GetManyBytes(e.Content, "key", "value")
		fmt.Fprintf(out, "%s %s = %s\n", stamp, labelStyle.Render(fields[0].String()), fields[1].Raw)
	default:
		fmt.Fprintf(out, "%s %s\n", stamp, string(e.Content))
	}
}

func contextRecent(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	entries := store.RecentConversations(recentLimit)
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No conversations recorded yet."))
		return nil
	}
	for _, e := range entries {
		printEntry(cmd, e)
	}
	return nil
}

func contextSearch(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	query := joinArgs(args)
	entries := store.Search(query)
	fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(fmt.Sprintf("%d matches for %q", len(entries), query)))
	for _, e := range entries {
		printEntry(cmd, e)
	}
	return nil
}

func contextProject(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		path = wd
	}

	store, closeFn, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if len(args) > 1 {
		store.RecordProjectInfo(path, jsonArg(joinArgs(args[1:])))
		fmt.Fprintf(cmd.OutOrStdout(), "%s note recorded for %s\n", check(true), path)
		return nil
	}

	entries := store.ProjectContextFor(path)
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No notes for "+path))
		return nil
	}
	for _, e := range entries {
		printEntry(cmd, e)
	}
	return nil
}

func contextPref(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if len(args) >= 2 {
		store.RecordPreference(args[0], jsonArg(joinArgs(args[1:])))
		fmt.Fprintf(cmd.OutOrStdout(), "%s preference %s recorded\n", check(true), args[0])
		return nil
	}

	entries := store.Preferences()
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No preferences recorded yet."))
		return nil
	}
	for _, e := range entries {
		printEntry(cmd, e)
	}
	return nil
}

func contextSummary(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	sum := store.Summary()
	lines := []string{
		fmt.Sprintf("%s %d", labelStyle.Render("Conversations:  "), sum.TotalConversations),
		fmt.Sprintf("%s %d", labelStyle.Render("Preferences:    "), sum.TotalPreferences),
		fmt.Sprintf("%s %d", labelStyle.Render("Project entries:"), sum.TotalProjectEntries),
		fmt.Sprintf("%s %s", labelStyle.Render("Created:        "), formatTime(sum.CreatedAt)),
		fmt.Sprintf("%s %s", labelStyle.Render("Last updated:   "), formatTime(sum.LastUpdated)),
		mutedStyle.Render(store.Location()),
	}
	fmt.Fprintln(cmd.OutOrStdout(), boxStyle.Render(strings.Join(lines, "\n")))
	return nil
}

func contextExport(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	path, err := store.Export()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s exported to %s\n", check(true), path)
	return nil
}

func contextImport(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if !store.Import(args[0]) {
		return fmt.Errorf("could not import %s: unreadable or not a context snapshot", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s imported %s\n", check(true), args[0])
	return nil
}

func contextClear(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if clearConversation {
		store.ClearConversations()
		fmt.Fprintf(cmd.OutOrStdout(), "%s conversation history cleared\n", check(true))
		return nil
	}
	store.Clear()
	fmt.Fprintf(cmd.OutOrStdout(), "%s context cleared\n", check(true))
	return nil
}
