package inspect

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/philipparndt/citysolid/internal/export"
	"github.com/philipparndt/citysolid/internal/geometry"
	"github.com/philipparndt/citysolid/internal/mesh"
	"github.com/philipparndt/citysolid/internal/ui"
	"gonum.org/v1/gonum/spatial/r3"
)

func boxMesh(min, max r3.Vec) *mesh.Mesh {
	vertices, faces := geometry.Box(min, max)
	m := mesh.New("box")
	m.Vertices = vertices
	for _, f := range faces {
		m.Faces = append(m.Faces, mesh.Face(f))
	}
	return m
}

func writeSolid(t *testing.T, name string, m *mesh.Mesh, opts export.Options) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := export.WriteSolid(path, m, opts); err != nil {
		t.Fatalf("WriteSolid: %v", err)
	}
	return path
}

func TestAnalyze(t *testing.T) {
	closed := boxMesh(r3.Vec{X: -1, Y: -2, Z: 0}, r3.Vec{X: 1, Y: 2, Z: 3})
	open := &mesh.Mesh{Name: "open", Vertices: closed.Vertices, Faces: closed.Faces[1:]}

	tests := []struct {
		name       string
		file       string
		m          *mesh.Mesh
		opts       export.Options
		faces      int
		boundary   int
		watertight bool
	}{
		{"binary stl", "box.stl", closed, export.Options{}, 12, 0, true},
		{"ascii stl", "box.stl", closed, export.Options{ASCII: true}, 12, 0, true},
		{"3mf", "box.3mf", closed, export.Options{Application: "test"}, 12, 0, true},
		{"open stl", "open.stl", open, export.Options{}, 11, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSolid(t, tt.file, tt.m, tt.opts)
			result, err := NewInspector().Analyze(path)
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if result.Vertices != 8 || result.Faces != tt.faces {
				t.Errorf("expected 8 vertices and %d faces, got %d and %d", tt.faces, result.Vertices, result.Faces)
			}
			if result.BoundaryEdges != tt.boundary || result.NonManifoldEdges != 0 {
				t.Errorf("unexpected edge stats %d/%d", result.BoundaryEdges, result.NonManifoldEdges)
			}
			if result.Watertight() != tt.watertight {
				t.Errorf("expected watertight %v", tt.watertight)
			}
			if tt.watertight && math.Abs(result.Volume-24) > 1e-4 {
				t.Errorf("expected volume 24, got %v", result.Volume)
			}
			size := result.Bounds.Size()
			if size.X != 2 || size.Y != 4 || size.Z != 3 {
				t.Errorf("unexpected size %v", size)
			}
		})
	}
}

func TestAnalyze3MFMetadata(t *testing.T) {
	path := writeSolid(t, "box.3mf", boxMesh(r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}), export.Options{Application: "citysolid test"})
	result, err := NewInspector().Analyze(path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Unit != "millimeter" || len(result.Items) != 1 {
		t.Errorf("unexpected package info %q %v", result.Unit, result.Items)
	}
	found := false
	for _, meta := range result.Metadata {
		if meta.Name == "Application" && meta.Value == "citysolid test" {
			found = true
		}
	}
	if !found {
		t.Errorf("application metadata missing: %v", result.Metadata)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "city.obj")
	if err := os.WriteFile(other, []byte("v 0 0 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewInspector().Analyze(filepath.Join(dir, "missing.stl")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := NewInspector().Analyze(other); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func TestEdgeStatsNonManifold(t *testing.T) {
	m := &mesh.Mesh{
		Vertices: []r3.Vec{{}, {X: 1}, {Y: 1}, {Y: -1}, {Z: 1}},
		Faces:    []mesh.Face{{0, 1, 2}, {1, 0, 3}, {0, 1, 4}},
	}
	boundary, nonManifold := edgeStats(m)
	if nonManifold != 1 || boundary != 6 {
		t.Errorf("expected 6 boundary and 1 non-manifold edge, got %d and %d", boundary, nonManifold)
	}
}

func TestInspectPrints(t *testing.T) {
	var buf bytes.Buffer
	old := ui.Out
	ui.Out = &buf
	t.Cleanup(func() { ui.Out = old })

	path := writeSolid(t, "box.stl", boxMesh(r3.Vec{}, r3.Vec{X: 10, Y: 20, Z: 30}), export.Options{})
	if err := NewInspector().Inspect(path); err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"STL", "10.000 x 20.000 x 30.000", "6000.000", "Watertight"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got %q", want, out)
		}
	}
}

func TestInspectInsideOut(t *testing.T) {
	var buf bytes.Buffer
	old := ui.Out
	ui.Out = &buf
	t.Cleanup(func() { ui.Out = old })

	m := boxMesh(r3.Vec{X: 100, Y: 100}, r3.Vec{X: 102, Y: 102, Z: 2})
	for i, f := range m.Faces {
		m.Faces[i] = mesh.Face{f[0], f[2], f[1]}
	}
	path := writeSolid(t, "inverted.stl", m, export.Options{})

	result, err := NewInspector().Analyze(path)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !result.Watertight() || math.Abs(result.Volume+8) > 1e-4 {
		t.Errorf("expected watertight solid with volume -8, got %v", result.Volume)
	}

	NewPrinter().Print(result)
	if !strings.Contains(buf.String(), "inside out") {
		t.Errorf("expected inside out warning, got %q", buf.String())
	}
}
