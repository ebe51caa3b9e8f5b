package cmd

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderConvertHelp renders the help text for the convert command with lipgloss styling
func renderConvertHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginTop(1)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("10"))

	commandStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("14"))

	commentStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Examples"))
	b.WriteString("\n\n")

	examples := []struct {
		title    string
		commands []string
	}{
		{"Binary STL on a 200 x 200 plate", []string{"citysolid convert city.dxf -o city.stl"}},
		{"3MF without base, buildings standing on z = 0", []string{"citysolid convert city.dxf -o city.3mf --no-base"}},
		{"Buildings on another layer, scaled to 120 mm", []string{"citysolid convert city.dxf -l HOUSES --max-dimension 120"}},
		{"Job file, converted again on every change", []string{"citysolid config init city.yaml", "citysolid convert -c city.yaml --watch"}},
	}
	for _, ex := range examples {
		b.WriteString(sectionStyle.Render(ex.title))
		b.WriteString("\n")
		for _, c := range ex.commands {
			b.WriteString("  " + commandStyle.Render(c))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("Job file keys:"))
	b.WriteString("\n")

	keys := []struct {
		key  string
		desc string
	}{
		{"building_layer", "Layer holding the building MESH entities"},
		{"max_dimension", "Largest allowed extent of all buildings"},
		{"vertical_reference", "zero or plate_top"},
		{"base", "include, width, length, thickness, center_x, center_y"},
		{"repair.max_hole_edges", "Longest boundary loop that is closed"},
	}

	maxWidth := 0
	for _, k := range keys {
		if len(k.key) > maxWidth {
			maxWidth = len(k.key)
		}
	}
	for _, k := range keys {
		padding := strings.Repeat(" ", maxWidth-len(k.key)+2)
		b.WriteString("  " + keyStyle.Render(k.key) + padding + commentStyle.Render(k.desc))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(commentStyle.Render("Flags override the job file, the job file overrides the defaults."))
	b.WriteString("\n")

	return b.String()
}
