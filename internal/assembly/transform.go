package assembly

import (
	"github.com/paulmach/orb"
	"github.com/philipparndt/citysolid/internal/geometry"
	"github.com/philipparndt/citysolid/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Normalize moves m vertically so that its lowest vertex sits at reference
func Normalize(m *mesh.Mesh, reference float64) {
	if len(m.Vertices) == 0 {
		return
	}
	m.Translate(r3.Vec{Z: reference - m.MinZ()})
}

// NormalizeAll normalizes every mesh to the same reference height
func NormalizeAll(meshes []*mesh.Mesh, reference float64) {
	for _, m := range meshes {
		Normalize(m, reference)
	}
}

// UnionBounds returns the bounding box of all meshes together
func UnionBounds(meshes []*mesh.Mesh) geometry.BoundingBox {
	box := geometry.NewBoundingBox()
	for _, m := range meshes {
		box = box.Union(m.Bounds())
	}
	return box
}

// ScaleToFit shrinks the meshes uniformly so the largest extent of their
// union bounding box is at most maxDimension. Scaling is about the point
// (0, 0, reference) so normalized meshes keep their bottom at reference.
// It never enlarges and returns the applied factor.
func ScaleToFit(meshes []*mesh.Mesh, maxDimension, reference float64) float64 {
	extent := UnionBounds(meshes).MaxExtent()
	if extent <= maxDimension || extent == 0 {
		return 1
	}

	factor := maxDimension / extent
	pivot := r3.Vec{Z: reference}
	for _, m := range meshes {
		m.ScaleAbout(pivot, factor)
	}
	return factor
}

// Footprint returns the xy bound of all meshes together
func Footprint(meshes []*mesh.Mesh) (orb.Bound, bool) {
	bounds := make([]orb.Bound, 0, len(meshes))
	for _, m := range meshes {
		if b, ok := geometry.Footprint(m.Vertices); ok {
			bounds = append(bounds, b)
		}
	}
	return geometry.FootprintUnion(bounds)
}

// Center translates the meshes in x and y so the center of their combined
// footprint lands on target. Heights are unchanged. It returns the applied
// offset.
func Center(meshes []*mesh.Mesh, target orb.Point) r3.Vec {
	footprint, ok := Footprint(meshes)
	if !ok {
		return r3.Vec{}
	}

	center := footprint.Center()
	offset := r3.Vec{X: target.X() - center.X(), Y: target.Y() - center.Y()}
	if offset == (r3.Vec{}) {
		return offset
	}
	for _, m := range meshes {
		m.Translate(offset)
	}
	return offset
}
