// Package mesh provides the indexed triangle mesh shared by every stage of
// a conversion, together with the repair operations applied to freshly
// built building meshes.
package mesh

import (
	"fmt"

	"github.com/philipparndt/citysolid/internal/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// Face is a triangle given by three vertex indices
type Face [3]int

// Mesh is an indexed triangle mesh. Normals, when present, hold one unit
// normal per face.
type Mesh struct {
	Name     string
	Vertices []r3.Vec
	Faces    []Face
	Normals  []r3.Vec
}

// New creates an empty named mesh
func New(name string) *Mesh {
	return &Mesh{Name: name}
}

// VertexCount returns the number of vertices
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// FaceCount returns the number of triangles
func (m *Mesh) FaceCount() int {
	return len(m.Faces)
}

// IsEmpty reports whether the mesh has no triangles
func (m *Mesh) IsEmpty() bool {
	return len(m.Faces) == 0
}

// Bounds returns the axis-aligned bounding box of all vertices
func (m *Mesh) Bounds() geometry.BoundingBox {
	return geometry.BoundsOf(m.Vertices)
}

// MinZ returns the lowest z coordinate, 0 for a mesh without vertices
func (m *Mesh) MinZ() float64 {
	if len(m.Vertices) == 0 {
		return 0
	}
	return m.Bounds().Min.Z
}

// Translate moves every vertex by offset
func (m *Mesh) Translate(offset r3.Vec) {
	for i := range m.Vertices {
		m.Vertices[i] = r3.Add(m.Vertices[i], offset)
	}
}

// ScaleAbout scales every vertex uniformly by factor around pivot. Face
// normals are direction-only and stay valid for a positive factor.
func (m *Mesh) ScaleAbout(pivot r3.Vec, factor float64) {
	for i, v := range m.Vertices {
		m.Vertices[i] = r3.Add(pivot, r3.Scale(factor, r3.Sub(v, pivot)))
	}
}

// Validate checks that every face index refers to an existing vertex
func (m *Mesh) Validate() error {
	n := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("face %d references vertex %d, mesh has %d vertices", i, idx, n)
			}
		}
	}
	if m.Normals != nil && len(m.Normals) != len(m.Faces) {
		return fmt.Errorf("mesh has %d normals for %d faces", len(m.Normals), len(m.Faces))
	}
	return nil
}

// FaceNormal computes the unit normal of face i from its winding. A
// degenerate triangle yields the zero vector.
func (m *Mesh) FaceNormal(i int) r3.Vec {
	f := m.Faces[i]
	a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	if r3.Norm(n) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(n)
}

// ComputeNormals stores the unit normal of every face and returns how
// many faces are not degenerate.
func (m *Mesh) ComputeNormals() int {
	m.Normals = make([]r3.Vec, len(m.Faces))
	valid := 0
	for i := range m.Faces {
		m.Normals[i] = m.FaceNormal(i)
		if m.Normals[i] != (r3.Vec{}) {
			valid++
		}
	}
	return valid
}

// SignedVolume returns the volume enclosed by the mesh using the
// divergence theorem. It is positive for a closed mesh with outward
// facing triangles.
func (m *Mesh) SignedVolume() float64 {
	if len(m.Vertices) == 0 {
		return 0
	}
	all := make([]int, len(m.Faces))
	for i := range all {
		all[i] = i
	}
	return m.volumeAbout(all, m.Bounds().Center())
}

// volumeAbout sums the signed tetrahedra spanned by origin and the given
// faces
func (m *Mesh) volumeAbout(faces []int, origin r3.Vec) float64 {
	volume := 0.0
	for _, fi := range faces {
		f := m.Faces[fi]
		a := r3.Sub(m.Vertices[f[0]], origin)
		b := r3.Sub(m.Vertices[f[1]], origin)
		c := r3.Sub(m.Vertices[f[2]], origin)
		volume += r3.Dot(a, r3.Cross(b, c))
	}
	return volume / 6
}

// faceBounds returns the bounding box of the vertices used by faces
func (m *Mesh) faceBounds(faces []int) geometry.BoundingBox {
	used := make([]r3.Vec, 0, len(faces)*3)
	for _, fi := range faces {
		for _, idx := range m.Faces[fi] {
			used = append(used, m.Vertices[idx])
		}
	}
	return geometry.BoundsOf(used)
}

// Append concatenates other onto m, offsetting the appended face indices
// by the current vertex count. Vertices are never deduplicated.
func (m *Mesh) Append(other *Mesh) {
	offset := len(m.Vertices)
	hadNormals := m.Normals != nil || len(m.Faces) == 0

	m.Vertices = append(m.Vertices, other.Vertices...)
	for _, f := range other.Faces {
		m.Faces = append(m.Faces, Face{f[0] + offset, f[1] + offset, f[2] + offset})
	}

	// Keep one normal per face only while every part carries normals.
	switch {
	case len(other.Faces) == 0:
	case hadNormals && other.Normals != nil:
		m.Normals = append(m.Normals, other.Normals...)
	default:
		m.Normals = nil
	}
}
