package assembly

import "github.com/philipparndt/citysolid/internal/mesh"

// Combine concatenates the plate (if any) and the buildings into one mesh.
// Vertices are not merged and nothing is re-triangulated where parts touch.
func Combine(name string, plate *mesh.Mesh, buildings []*mesh.Mesh) *mesh.Mesh {
	combined := mesh.New(name)
	if plate != nil {
		combined.Append(plate)
	}
	for _, b := range buildings {
		combined.Append(b)
	}
	return combined
}
