package geometry

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestBoxTopology(t *testing.T) {
	vertices, faces := Box(r3.Vec{X: -100, Y: -50, Z: 0}, r3.Vec{X: 100, Y: 50, Z: 4})

	if len(vertices) != 8 {
		t.Fatalf("expected 8 vertices, got %d", len(vertices))
	}
	if len(faces) != 12 {
		t.Fatalf("expected 12 faces, got %d", len(faces))
	}

	// Every directed edge must be used once and its reverse once.
	edges := make(map[[2]int]int)
	for _, f := range faces {
		for i := 0; i < 3; i++ {
			edges[[2]int{f[i], f[(i+1)%3]}]++
		}
	}
	for e, n := range edges {
		if n != 1 {
			t.Errorf("directed edge %v used %d times", e, n)
		}
		if edges[[2]int{e[1], e[0]}] != 1 {
			t.Errorf("edge %v has no opposite", e)
		}
	}
}

func TestBoxOutwardOrientation(t *testing.T) {
	vertices, faces := Box(r3.Vec{X: 0, Y: 0, Z: 0}, r3.Vec{X: 2, Y: 3, Z: 4})

	// Signed volume via the divergence theorem is positive for outward faces.
	volume := 0.0
	for _, f := range faces {
		a, b, c := vertices[f[0]], vertices[f[1]], vertices[f[2]]
		volume += r3.Dot(a, r3.Cross(b, c)) / 6
	}
	if volume < 23.999 || volume > 24.001 {
		t.Errorf("signed volume = %v, want 24", volume)
	}
}
