// Package ui renders styled terminal output.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Out receives all styled output
var Out io.Writer = os.Stdout

var verbose bool

// Palette
var (
	slate     = lipgloss.Color("#5B6C8F")
	sky       = lipgloss.Color("#4FB3D9")
	moss      = lipgloss.Color("#3FA34D")
	brick     = lipgloss.Color("#D9534F")
	amber     = lipgloss.Color("#F0A202")
	concrete  = lipgloss.Color("#7A7A7A")
	sandstone = lipgloss.Color("#E3C16F")
)

func bold(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

func symbol(c lipgloss.Color, s string) lipgloss.Style {
	return bold(c).SetString(s)
}

var (
	titleStyle     = bold(slate).MarginTop(1).MarginBottom(1).PaddingLeft(1)
	headerStyle    = bold(sky).MarginTop(1).PaddingLeft(1)
	successStyle   = bold(moss)
	errorStyle     = bold(brick)
	warningStyle   = lipgloss.NewStyle().Foreground(amber)
	infoStyle      = lipgloss.NewStyle().Foreground(concrete)
	keyStyle       = bold(sky)
	highlightStyle = bold(sandstone)
	stepStyle      = lipgloss.NewStyle().PaddingLeft(2)
	itemStyle      = lipgloss.NewStyle().PaddingLeft(4)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(slate).
			Padding(0, 1).
			MarginTop(1).
			MarginBottom(1)

	checkmark = symbol(moss, "✓")
	cross     = symbol(brick, "✗")
	arrow     = symbol(sky, "→")
	dot       = symbol(concrete, "•")
	star      = symbol(sandstone, "★")
)

func output(s string) {
	fmt.Fprintln(Out, s)
}

// PrintTitle prints a major title (for app name or major sections)
func PrintTitle(title string) {
	output(titleStyle.Render("╭─ " + title + " ─╮"))
}

// PrintHeader prints a section header
func PrintHeader(title string) {
	output(headerStyle.Render("▸ " + title))
}

// PrintStep prints a step with indentation
func PrintStep(step string) {
	output(stepStyle.Render(arrow.String() + " " + step))
}

// PrintItem prints an item in a list
func PrintItem(item string) {
	output(itemStyle.Render(dot.String() + " " + item))
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	output(stepStyle.Render(checkmark.String() + " " + successStyle.Render(message)))
}

// PrintError prints an error message
func PrintError(message string) {
	output(stepStyle.Render(cross.String() + " " + errorStyle.Render(message)))
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	output(stepStyle.Render("⚠ " + warningStyle.Render(message)))
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	output(stepStyle.Render(infoStyle.Render(message)))
}

// PrintHighlight prints highlighted text
func PrintHighlight(message string) {
	output(stepStyle.Render(star.String() + " " + highlightStyle.Render(message)))
}

// PrintBox prints text in a rounded box
func PrintBox(content string) {
	output(boxStyle.Render(content))
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	output(infoStyle.Render("─────────────────────────────────────────────"))
}

// PrintKeyValue prints a key-value pair with nice formatting
func PrintKeyValue(key, value string) {
	output(stepStyle.Render(keyStyle.Render(key+":") + " " + value))
}

// KeyValue is one row of a summary
type KeyValue struct {
	Key   string
	Value string
}

// FormatSummary aligns key-value rows for display in a box
func FormatSummary(title string, rows []KeyValue) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r.Key))
	}

	lines := []string{highlightStyle.Render(title)}
	for _, r := range rows {
		lines = append(lines, keyStyle.Render(r.Key+":"+strings.Repeat(" ", width-len(r.Key)))+" "+r.Value)
	}
	return strings.Join(lines, "\n")
}

// PrintSummary prints aligned key-value rows in a rounded box
func PrintSummary(title string, rows []KeyValue) {
	PrintBox(FormatSummary(title, rows))
}

// pad truncates or pads col to width
func pad(col string, width int) string {
	if len(col) > width {
		if width > 3 {
			return col[:width-3] + "..."
		}
		return col[:width]
	}
	return col + strings.Repeat(" ", width-len(col))
}

// PrintTableHeader prints a table header with the given column widths
func PrintTableHeader(widths []int, headers ...string) {
	var cols, seps []string
	for i, header := range headers {
		if i >= len(widths) {
			break
		}
		cols = append(cols, pad(header, widths[i]))
		seps = append(seps, strings.Repeat("─", widths[i]))
	}
	output(stepStyle.Render(keyStyle.Render(strings.Join(cols, " │ "))))
	output(stepStyle.Render(infoStyle.Render(strings.Join(seps, "─┼─"))))
}

// PrintTableRow prints a formatted table row with the given column widths
func PrintTableRow(widths []int, columns ...string) {
	var cols []string
	for i, col := range columns {
		if i >= len(widths) {
			break
		}
		cols = append(cols, pad(col, widths[i]))
	}
	output(stepStyle.Render(strings.Join(cols, " │ ")))
}

// SetVerbose enables detailed step output
func SetVerbose(v bool) {
	verbose = v
}

// IsVerbose checks if verbose output is enabled
func IsVerbose() bool {
	return verbose || os.Getenv("CI") != ""
}
