package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/philipparndt/citysolid/internal/assembly"
	"github.com/philipparndt/citysolid/internal/config"
	"github.com/philipparndt/citysolid/internal/stl"
	"github.com/philipparndt/citysolid/internal/threemf"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
	}{
		{"city.stl", FormatSTL},
		{"CITY.STL", FormatSTL},
		{"out/city.3mf", Format3MF},
		{"city.obj", FormatUnknown},
		{"city", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := DetectFormat(tt.path); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestWriteSolid(t *testing.T) {
	plate := assembly.GeneratePlate(config.Default().Base)
	dir := t.TempDir()

	tests := []struct {
		name string
		file string
		opts Options
	}{
		{"binary stl", "plate.stl", Options{}},
		{"ascii stl", "plate_ascii.stl", Options{ASCII: true}},
		{"3mf", "plate.3mf", Options{Application: "citysolid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := WriteSolid(path, plate, tt.opts); err != nil {
				t.Fatalf("WriteSolid: %v", err)
			}

			var faces int
			switch DetectFormat(path) {
			case FormatSTL:
				solid, err := stl.NewParser().Parse(path)
				if err != nil {
					t.Fatalf("Parse: %v", err)
				}
				faces = len(solid.Triangles)
			case Format3MF:
				m, err := threemf.NewReader().ReadMesh(path)
				if err != nil {
					t.Fatalf("ReadMesh: %v", err)
				}
				faces = m.FaceCount()
			}
			if faces != 12 {
				t.Errorf("expected 12 faces, got %d", faces)
			}
		})
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestWriteSolidErrors(t *testing.T) {
	plate := assembly.GeneratePlate(config.Default().Base)

	tests := []struct {
		name string
		path string
	}{
		{"missing directory", filepath.Join(t.TempDir(), "missing", "out.stl")},
		{"unknown extension", filepath.Join(t.TempDir(), "out.obj")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WriteSolid(tt.path, plate, Options{})
			var exportErr *assembly.ExportError
			if !errors.As(err, &exportErr) {
				t.Fatalf("expected ExportError, got %v", err)
			}
			if exportErr.Path != tt.path {
				t.Errorf("expected path %s, got %s", tt.path, exportErr.Path)
			}
		})
	}
}

func TestWriteSolidKeepsExistingFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.stl")
	if err := os.WriteFile(path, []byte("previous"), 0644); err != nil {
		t.Fatal(err)
	}

	broken := assembly.GeneratePlate(config.Default().Base)
	broken.Faces = append(broken.Faces, broken.Faces[0])
	broken.Faces[12][2] = 99

	if err := WriteSolid(path, broken, Options{}); err == nil {
		t.Fatal("expected error for invalid mesh")
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "previous" {
		t.Errorf("existing file was modified: %q, %v", data, err)
	}
}
