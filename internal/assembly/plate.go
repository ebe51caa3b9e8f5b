package assembly

import (
	"github.com/philipparndt/citysolid/internal/config"
	"github.com/philipparndt/citysolid/internal/geometry"
	"github.com/philipparndt/citysolid/internal/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// PlateName names the generated base plate
const PlateName = "base"

// GeneratePlate returns the base plate box: centered on the configured
// point in x and y, spanning z from 0 to the plate thickness.
func GeneratePlate(base config.Base) *mesh.Mesh {
	halfW, halfL := base.Width/2, base.Length/2
	vertices, faces := geometry.Box(
		r3.Vec{X: base.CenterX - halfW, Y: base.CenterY - halfL, Z: 0},
		r3.Vec{X: base.CenterX + halfW, Y: base.CenterY + halfL, Z: base.Thickness},
	)

	m := mesh.New(PlateName)
	m.Vertices = vertices
	m.Faces = make([]mesh.Face, len(faces))
	for i, f := range faces {
		m.Faces[i] = mesh.Face(f)
	}
	m.ComputeNormals()
	return m
}
