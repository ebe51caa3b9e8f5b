package geometry

import "gonum.org/v1/gonum/spatial/r3"

// Box returns the 8 corner vertices and 12 outward-facing triangles of an
// axis-aligned box spanning [min, max].
func Box(min, max r3.Vec) ([]r3.Vec, [][3]int) {
	x0, y0, z0 := min.X, min.Y, min.Z
	x1, y1, z1 := max.X, max.Y, max.Z

	vertices := []r3.Vec{
		{X: x0, Y: y0, Z: z0}, // 0
		{X: x1, Y: y0, Z: z0}, // 1
		{X: x1, Y: y1, Z: z0}, // 2
		{X: x0, Y: y1, Z: z0}, // 3
		{X: x0, Y: y0, Z: z1}, // 4
		{X: x1, Y: y0, Z: z1}, // 5
		{X: x1, Y: y1, Z: z1}, // 6
		{X: x0, Y: y1, Z: z1}, // 7
	}

	var faces [][3]int
	addQuad := func(a, b, c, d int) {
		faces = append(faces, [3]int{a, b, c}, [3]int{c, d, a})
	}

	addQuad(0, 3, 2, 1) // Bottom
	addQuad(4, 5, 6, 7) // Top
	addQuad(0, 1, 5, 4) // Front
	addQuad(1, 2, 6, 5) // Right
	addQuad(2, 3, 7, 6) // Back
	addQuad(3, 0, 4, 7) // Left

	return vertices, faces
}
