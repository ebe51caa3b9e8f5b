// Package inspect reports the geometry of a produced STL or 3MF solid.
package inspect

import (
	"fmt"
	"os"

	"github.com/philipparndt/citysolid/internal/export"
	"github.com/philipparndt/citysolid/internal/geometry"
	"github.com/philipparndt/citysolid/internal/mesh"
	"github.com/philipparndt/citysolid/internal/models"
	"github.com/philipparndt/citysolid/internal/stl"
	"github.com/philipparndt/citysolid/internal/threemf"
)

// Result describes an inspected solid
type Result struct {
	Path   string
	Format export.Format
	Size   int64

	Vertices int
	Faces    int
	Bounds   geometry.BoundingBox

	// BoundaryEdges are edges used by a single face
	BoundaryEdges int
	// NonManifoldEdges are edges shared by more than two faces
	NonManifoldEdges int
	// Volume is the signed enclosed volume, negative for an inside-out solid
	Volume float64

	// Unit, Metadata and Items are only filled for 3MF packages
	Unit     string
	Metadata []models.Metadata
	Items    []models.Item
}

// Watertight reports whether every edge is shared by exactly two faces
func (r *Result) Watertight() bool {
	return r.Faces > 0 && r.BoundaryEdges == 0 && r.NonManifoldEdges == 0
}

// Inspector provides functionality to inspect produced solids
type Inspector struct{}

// NewInspector creates a new Inspector
func NewInspector() *Inspector {
	return &Inspector{}
}

// Analyze reads filename and computes its statistics
func (i *Inspector) Analyze(filename string) (*Result, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", filename)
	}

	result := &Result{Path: filename, Format: export.DetectFormat(filename), Size: info.Size()}

	var m *mesh.Mesh
	switch result.Format {
	case export.FormatSTL:
		solid, err := stl.NewParser().Parse(filename)
		if err != nil {
			return nil, fmt.Errorf("error reading STL file: %w", err)
		}
		m = solid.ToMesh()
	case export.Format3MF:
		reader := threemf.NewReader()
		model, _, err := reader.Read(filename)
		if err != nil {
			return nil, fmt.Errorf("error reading 3MF file: %w", err)
		}
		result.Unit = model.Unit
		result.Metadata = model.Metadata
		result.Items = model.Build.Items

		if m, err = reader.ReadMesh(filename); err != nil {
			return nil, fmt.Errorf("error reading 3MF file: %w", err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported format, expected .stl or .3mf", filename)
	}

	result.Vertices = m.VertexCount()
	result.Faces = m.FaceCount()
	result.Bounds = m.Bounds()
	result.BoundaryEdges, result.NonManifoldEdges = edgeStats(m)
	result.Volume = m.SignedVolume()
	return result, nil
}

// Inspect reads and displays the statistics of a solid
func (i *Inspector) Inspect(filename string) error {
	result, err := i.Analyze(filename)
	if err != nil {
		return err
	}
	NewPrinter().Print(result)
	return nil
}

type edge struct{ a, b int }

func edgeStats(m *mesh.Mesh) (boundary, nonManifold int) {
	uses := make(map[edge]int, len(m.Faces)*3/2)
	for _, f := range m.Faces {
		for k := 0; k < 3; k++ {
			a, b := f[k], f[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			uses[edge{a, b}]++
		}
	}
	for _, n := range uses {
		switch {
		case n == 1:
			boundary++
		case n > 2:
			nonManifold++
		}
	}
	return boundary, nonManifold
}
