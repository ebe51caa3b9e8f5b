package dxf

import (
	"fmt"
	"os"
	"sort"

	"github.com/philipparndt/citysolid/internal/geometry"
	"github.com/rpaloschi/dxf-go/document"
	"github.com/rpaloschi/dxf-go/entities"
	"gonum.org/v1/gonum/spatial/r3"
)

// Survey summarizes the content of a drawing
type Survey struct {
	Header    Header
	Entities  int
	Malformed int
	ByKind    map[string]int
	ByLayer   map[string]int
	// Meshes counts MESH entities per layer
	Meshes map[string]int

	Polylines      int
	PolylineBounds geometry.BoundingBox
	// PolylineErr is set when the polyline pass could not read the drawing
	PolylineErr error
}

// SurveyFile counts the entities of the drawing at path by kind and layer
// and measures the extent of its polylines.
func SurveyFile(path string) (*Survey, error) {
	drawing, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	s := &Survey{
		Header:         drawing.Header,
		Entities:       len(drawing.Entities),
		ByKind:         make(map[string]int),
		ByLayer:        make(map[string]int),
		Meshes:         make(map[string]int),
		PolylineBounds: geometry.NewBoundingBox(),
	}
	for _, e := range drawing.Entities {
		s.ByKind[e.Kind]++
		s.ByLayer[e.Layer]++
		if e.Kind == KindMesh {
			s.Meshes[e.Layer]++
		}
		if e.Err != nil {
			s.Malformed++
		}
	}

	s.Polylines, s.PolylineErr = surveyPolylines(path, &s.PolylineBounds)
	return s, nil
}

// surveyPolylines extends bounds by every polyline vertex of the drawing
func surveyPolylines(path string, bounds *geometry.BoundingBox) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	doc, err := document.DxfDocumentFromStream(file)
	if err != nil {
		return 0, fmt.Errorf("failed to read polylines: %w", err)
	}

	count := 0
	for _, entity := range doc.Entities.Entities {
		polyline, ok := entity.(*entities.Polyline)
		if !ok {
			continue
		}
		count++
		for _, v := range polyline.Vertices {
			bounds.Extend(r3.Vec{X: v.Location.X, Y: v.Location.Y, Z: v.Location.Z})
		}
	}
	return count, nil
}

// MeshLayers returns the layers holding MESH entities, sorted by name
func (s *Survey) MeshLayers() []string {
	return sortedKeys(s.Meshes)
}

// Kinds returns the entity kinds present, sorted by name
func (s *Survey) Kinds() []string {
	return sortedKeys(s.ByKind)
}

// Layers returns the layers present, sorted by name
func (s *Survey) Layers() []string {
	return sortedKeys(s.ByLayer)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
