package inspect

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/philipparndt/citysolid/internal/ui"
)

// Printer renders inspection results
type Printer struct{}

// NewPrinter creates a new Printer
func NewPrinter() *Printer {
	return &Printer{}
}

// Print shows the result
func (p *Printer) Print(r *Result) {
	ui.PrintHeader(fmt.Sprintf("Inspecting: %s", r.Path))
	ui.PrintKeyValue("Format", fmt.Sprintf("%s (%s)", r.Format, humanize.Bytes(uint64(r.Size))))
	if r.Unit != "" {
		ui.PrintKeyValue("Unit", r.Unit)
	}

	if len(r.Metadata) > 0 {
		ui.PrintStep("Metadata:")
		for _, meta := range r.Metadata {
			ui.PrintItem(fmt.Sprintf("%s: %s", meta.Name, meta.Value))
		}
	}
	if len(r.Items) > 0 {
		ui.PrintStep(fmt.Sprintf("Build items: %d", len(r.Items)))
	}

	ui.PrintKeyValue("Vertices", humanize.Comma(int64(r.Vertices)))
	ui.PrintKeyValue("Triangles", humanize.Comma(int64(r.Faces)))
	if r.Faces == 0 {
		ui.PrintWarning("Solid has no triangles")
		return
	}

	b := r.Bounds
	ui.PrintKeyValue("Min", formatPoint(b.Min.X, b.Min.Y, b.Min.Z))
	ui.PrintKeyValue("Max", formatPoint(b.Max.X, b.Max.Y, b.Max.Z))
	ui.PrintKeyValue("Dimensions", fmt.Sprintf("%.3f x %.3f x %.3f", b.Width(), b.Length(), b.Height()))
	ui.PrintKeyValue("Boundary edges", fmt.Sprint(r.BoundaryEdges))
	ui.PrintKeyValue("Non-manifold edges", fmt.Sprint(r.NonManifoldEdges))

	switch {
	case !r.Watertight():
		ui.PrintWarning("Not watertight")
	case r.Volume <= 0:
		ui.PrintKeyValue("Volume", fmt.Sprintf("%.3f", r.Volume))
		ui.PrintWarning("Watertight but inside out")
	default:
		ui.PrintKeyValue("Volume", fmt.Sprintf("%.3f", r.Volume))
		ui.PrintSuccess("Watertight")
	}
}

func formatPoint(x, y, z float64) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", x, y, z)
}
