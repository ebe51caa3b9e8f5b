package buildplan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/philipparndt/citysolid/internal/assembly"
	"github.com/philipparndt/citysolid/internal/config"
	"github.com/philipparndt/citysolid/internal/geometry"
	"github.com/philipparndt/citysolid/internal/stl"
	"github.com/philipparndt/citysolid/internal/threemf"
	"gonum.org/v1/gonum/spatial/r3"
)

// drawing renders MESH entities as ASCII DXF text
type drawing struct {
	sb strings.Builder
}

func newDrawing() *drawing {
	d := &drawing{}
	d.pair(0, "SECTION").pair(2, "HEADER").pair(9, "$ACADVER").pair(1, "AC1027").pair(0, "ENDSEC")
	d.pair(0, "SECTION").pair(2, "ENTITIES")
	return d
}

func (d *drawing) pair(code int, value any) *drawing {
	fmt.Fprintf(&d.sb, "%3d\n%v\n", code, value)
	return d
}

func (d *drawing) mesh(handle, layer string, vertices []r3.Vec, faces [][]int) *drawing {
	d.pair(0, "MESH").pair(5, handle).pair(8, layer).pair(100, "AcDbSubDMesh")
	d.pair(92, len(vertices))
	for _, v := range vertices {
		d.pair(10, v.X).pair(20, v.Y).pair(30, v.Z)
	}
	size := 0
	for _, f := range faces {
		size += len(f) + 1
	}
	d.pair(93, size)
	for _, f := range faces {
		d.pair(90, len(f))
		for _, idx := range f {
			d.pair(90, idx)
		}
	}
	return d
}

func (d *drawing) box(handle, layer string, min, max r3.Vec) *drawing {
	vertices, tris := geometry.Box(min, max)
	faces := make([][]int, len(tris))
	for i, f := range tris {
		faces[i] = []int{f[0], f[1], f[2]}
	}
	return d.mesh(handle, layer, vertices, faces)
}

func (d *drawing) write(t *testing.T, dir string) string {
	t.Helper()
	d.pair(0, "ENDSEC").pair(0, "EOF")
	path := filepath.Join(dir, "city.dxf")
	if err := os.WriteFile(path, []byte(d.sb.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func job(input, output string) *config.Config {
	cfg := config.Default()
	cfg.Input = input
	cfg.Output = output
	cfg.Workers = 2
	return cfg
}

func run(t *testing.T, cfg *config.Config) (*Report, error) {
	t.Helper()
	plan, err := NewPlanner().CreatePlan(cfg)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	return plan.Execute(context.Background())
}

func TestCreatePlan(t *testing.T) {
	tests := []struct {
		name    string
		include bool
		steps   []string
	}{
		{
			name:    "with base",
			include: true,
			steps: []string{"Check preconditions", "Load drawing", "Select building entities", "Build meshes",
				"Normalize heights", "Scale to fit", "Center on plate", "Generate base plate", "Combine meshes", "Export solid"},
		},
		{
			name:    "without base",
			include: false,
			steps: []string{"Check preconditions", "Load drawing", "Select building entities", "Build meshes",
				"Normalize heights", "Scale to fit", "Center on plate", "Combine meshes", "Export solid"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := job("city.dxf", "out.stl")
			cfg.Base.Include = tt.include
			plan, err := NewPlanner().CreatePlan(cfg)
			if err != nil {
				t.Fatalf("CreatePlan: %v", err)
			}
			var names []string
			for _, s := range plan.Steps {
				names = append(names, s.Name())
			}
			if strings.Join(names, ",") != strings.Join(tt.steps, ",") {
				t.Errorf("unexpected steps %v", names)
			}
		})
	}
}

func TestCreatePlanRejectsInvalidJob(t *testing.T) {
	if _, err := NewPlanner().CreatePlan(job("", "out.stl")); err == nil {
		t.Error("expected error without input")
	}
	cfg := job("city.dxf", "out.obj")
	if _, err := NewPlanner().CreatePlan(cfg); err == nil {
		t.Error("expected error for unsupported output extension")
	}
}

func TestExecuteSTL(t *testing.T) {
	dir := t.TempDir()
	input := newDrawing().
		box("1A", "buildings", r3.Vec{X: 1000, Y: 2000, Z: 50}, r3.Vec{X: 1020, Y: 2010, Z: 60}).
		pair(0, "LINE").pair(8, "roads").
		box("1B", "buildings", r3.Vec{X: 1030, Y: 2000, Z: 55}, r3.Vec{X: 1040, Y: 2010, Z: 75}).
		box("1C", "terrain", r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}).
		write(t, dir)
	output := filepath.Join(dir, "city.stl")

	report, err := run(t, job(input, output))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Selected != 2 || report.Built != 2 || len(report.Dropped) != 0 {
		t.Errorf("unexpected counts %+v", report)
	}
	if report.ScaleFactor != 1 {
		t.Errorf("expected no scaling, got %v", report.ScaleFactor)
	}
	if report.Vertices != 24 || report.Faces != 36 {
		t.Errorf("expected plate plus two buildings, got %d vertices and %d faces", report.Vertices, report.Faces)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", report.Warnings)
	}

	info, err := os.Stat(output)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if report.OutputSize != info.Size() || info.Size() != 84+36*50 {
		t.Errorf("unexpected output size %d (report %d)", info.Size(), report.OutputSize)
	}

	solid, err := stl.NewParser().Parse(output)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	bounds := solid.ToMesh().Bounds()
	if math.Abs(bounds.Min.Z) > 1e-4 || math.Abs(bounds.Max.Z-24) > 1e-4 {
		t.Errorf("expected z range [0, 24], got [%v, %v]", bounds.Min.Z, bounds.Max.Z)
	}
	if math.Abs(bounds.Min.X+100) > 1e-4 || math.Abs(bounds.Max.X-100) > 1e-4 {
		t.Errorf("expected plate x range [-100, 100], got [%v, %v]", bounds.Min.X, bounds.Max.X)
	}
}

func TestExecute3MFScaled(t *testing.T) {
	dir := t.TempDir()
	input := newDrawing().
		box("1", "buildings", r3.Vec{X: 0, Y: 0, Z: 0}, r3.Vec{X: 400, Y: 100, Z: 50}).
		write(t, dir)
	output := filepath.Join(dir, "city.3mf")

	cfg := job(input, output)
	cfg.Base.Include = false
	report, err := run(t, cfg)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.ScaleFactor != 0.5 {
		t.Errorf("expected factor 0.5, got %v", report.ScaleFactor)
	}

	m, err := threemf.NewReader().ReadMesh(output)
	if err != nil {
		t.Fatalf("ReadMesh: %v", err)
	}
	b := m.Bounds()
	if math.Abs(b.Width()-200) > 1e-4 || math.Abs(b.Height()-25) > 1e-4 {
		t.Errorf("unexpected size %v", b.Size())
	}
	center := b.Center()
	if math.Abs(center.X) > 1e-4 || math.Abs(center.Y) > 1e-4 || math.Abs(b.Min.Z) > 1e-4 {
		t.Errorf("expected solid centered on origin at z 0, got bounds %v", b)
	}
}

func TestExecuteEmptySelection(t *testing.T) {
	dir := t.TempDir()
	input := newDrawing().
		box("1", "terrain", r3.Vec{}, r3.Vec{X: 1, Y: 1, Z: 1}).
		write(t, dir)
	output := filepath.Join(dir, "plate.stl")

	report, err := run(t, job(input, output))
	if err != nil {
		t.Fatalf("empty selection must not fail: %v", err)
	}
	if report.Vertices != 8 || report.Faces != 12 {
		t.Errorf("expected the plate alone, got %d vertices and %d faces", report.Vertices, report.Faces)
	}
	if len(report.Warnings) != 1 || !errors.Is(report.Warnings[0], assembly.ErrEmptySelection) {
		t.Errorf("expected an empty selection warning, got %v", report.Warnings)
	}
}

func TestExecuteDropsBrokenBuilding(t *testing.T) {
	dir := t.TempDir()
	tetra := []r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}}
	input := newDrawing().
		box("1", "buildings", r3.Vec{}, r3.Vec{X: 10, Y: 10, Z: 10}).
		// Index 9 does not exist.
		mesh("2", "buildings", tetra, [][]int{{0, 2, 1}, {0, 1, 9}, {1, 2, 3}, {0, 3, 2}}).
		write(t, dir)

	report, err := run(t, job(input, filepath.Join(dir, "out.stl")))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Built != 1 || len(report.Dropped) != 1 {
		t.Fatalf("expected one built and one dropped building, got %+v", report)
	}
	if !strings.Contains(report.Dropped[0].Entity, "handle 2") {
		t.Errorf("dropped building not identified: %v", report.Dropped[0])
	}
}

func TestExecuteFatalErrors(t *testing.T) {
	dir := t.TempDir()
	quad := []r3.Vec{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}
	quadDrawing := newDrawing().mesh("Q", "buildings", quad, [][]int{{0, 1, 2, 3}}).write(t, dir)

	tests := []struct {
		name   string
		input  string
		output string
		check  func(error) bool
	}{
		{
			name:   "missing drawing",
			input:  filepath.Join(dir, "missing.dxf"),
			output: filepath.Join(dir, "out.stl"),
			check: func(err error) bool {
				var e *assembly.InputError
				return errors.As(err, &e)
			},
		},
		{
			name:   "non-triangular face",
			input:  quadDrawing,
			output: filepath.Join(dir, "out.stl"),
			check: func(err error) bool {
				var e *assembly.InputError
				return errors.As(err, &e) && e.Path == quadDrawing && errors.Is(err, assembly.ErrNonTriangularFace)
			},
		},
		{
			name:   "missing output directory",
			input:  quadDrawing,
			output: filepath.Join(dir, "nope", "out.stl"),
			check: func(err error) bool {
				var e *assembly.ExportError
				return errors.As(err, &e)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, job(tt.input, tt.output))
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
			if _, statErr := os.Stat(tt.output); statErr == nil {
				t.Error("failed run must not write output")
			}
		})
	}
}

func TestReportRows(t *testing.T) {
	r := &Report{Output: "out.stl", Selected: 3, Built: 2, Dropped: []*assembly.RepairError{{Entity: "MESH #1"}}, ScaleFactor: 0.5, Vertices: 1200, Faces: 2400, OutputSize: 120084}
	rows := r.Rows()
	got := map[string]string{}
	for _, row := range rows {
		got[row.Key] = row.Value
	}
	if got["Buildings"] != "3 selected, 2 built, 1 dropped" {
		t.Errorf("unexpected buildings row %q", got["Buildings"])
	}
	if got["Mesh"] != "1,200 vertices, 2,400 faces" {
		t.Errorf("unexpected mesh row %q", got["Mesh"])
	}
	if got["Size"] != "120 kB" {
		t.Errorf("unexpected size row %q", got["Size"])
	}
}
