// Package ui provides terminal styling for easyimport output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/steveyegge/easyimport/internal/importer"
)

// Ayu theme color palette
// Dark: https://terminalcolors.com/themes/ayu/dark/
// Light: https://terminalcolors.com/themes/ayu/light/
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

var (
	PassStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconInfo = "ℹ"
)

const SeparatorLight = "──────────────────────────────────────────"

func RenderPass(s string) string   { return PassStyle.Render(s) }
func RenderWarn(s string) string   { return WarnStyle.Render(s) }
func RenderFail(s string) string   { return FailStyle.Render(s) }
func RenderMuted(s string) string  { return MutedStyle.Render(s) }
func RenderAccent(s string) string { return AccentStyle.Render(s) }

// RenderCategory renders a section header in uppercase with accent color
func RenderCategory(s string) string {
	return CategoryStyle.Render(strings.ToUpper(s))
}

// RenderSeparator renders the light separator line in muted color
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

// RenderSummary renders the end-of-run report. The headline icon reflects
// the worst outcome: fail on any error, warn on warnings only.
func RenderSummary(stats importer.Stats, dryRun bool) string {
	var b strings.Builder

	verb := "Created"
	if dryRun {
		verb = "Would create"
	}

	switch {
	case stats.Errors > 0:
		fmt.Fprintf(&b, "%s %s\n", FailStyle.Render(IconFail), RenderFail("Import finished with errors"))
	case stats.Warnings > 0:
		fmt.Fprintf(&b, "%s %s\n", WarnStyle.Render(IconWarn), RenderWarn("Import finished with warnings"))
	default:
		fmt.Fprintf(&b, "%s %s\n", PassStyle.Render(IconPass), RenderPass("Import finished"))
	}

	fmt.Fprintf(&b, "  %-13s %d\n", verb+":", stats.Created)
	if stats.Reused > 0 {
		fmt.Fprintf(&b, "  %-13s %d\n", "Reused:", stats.Reused)
	}
	fmt.Fprintf(&b, "  %-13s %s\n", "Errors:", countStyle(stats.Errors, FailStyle))
	fmt.Fprintf(&b, "  %-13s %s\n", "Warnings:", countStyle(stats.Warnings, WarnStyle))
	fmt.Fprintf(&b, "  %s\n", RenderMuted(fmt.Sprintf("%d lines read, %d projects, %d skipped",
		stats.Lines, stats.Projects, stats.Skipped)))
	return b.String()
}

func countStyle(n int, style lipgloss.Style) string {
	s := fmt.Sprintf("%d", n)
	if n == 0 {
		return s
	}
	return style.Render(s)
}

// TruncateSimple performs simple end truncation with "..." suffix.
// UTF-8 safe.
func TruncateSimple(text string, maxLen int) string {
	if utf8.RuneCountInString(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(text)
	return string(runes[:maxLen-3]) + "..."
}
