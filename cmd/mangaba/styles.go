package main

import (
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	accentColor  = lipgloss.Color("#8BC34A")
	infoColor    = lipgloss.Color("#2196F3")
	warningColor = lipgloss.Color("#FFC107")
	errorColor   = lipgloss.Color("#e53935")
	mutedColor   = lipgloss.Color("#6b7280")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(infoColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	successStyle = lipgloss.NewStyle().Foreground(accentColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(mutedColor).Padding(0, 1)
)

const wordWrap = 100

// renderMarkdown renders a response for the terminal, falling back to the
// raw text when rendering is impossible or stdout is not a terminal.
func renderMarkdown(content string) string {
	if !isTerminal(os.Stdout) {
		return content
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func check(ok bool) string {
	if ok {
		return successStyle.Render("✓")
	}
	return errorStyle.Render("✗")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
