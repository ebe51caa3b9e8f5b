package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BoundingBox represents an axis-aligned 3D bounding box
type BoundingBox struct {
	Min r3.Vec
	Max r3.Vec
}

// NewBoundingBox creates an empty bounding box that any point will extend
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		Min: r3.Vec{X: math.MaxFloat64, Y: math.MaxFloat64, Z: math.MaxFloat64},
		Max: r3.Vec{X: -math.MaxFloat64, Y: -math.MaxFloat64, Z: -math.MaxFloat64},
	}
}

// BoundsOf returns the bounding box of a set of points
func BoundsOf(points []r3.Vec) BoundingBox {
	bbox := NewBoundingBox()
	for _, p := range points {
		bbox.Extend(p)
	}
	return bbox
}

// IsEmpty reports whether no point has been added to the box
func (b BoundingBox) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend expands the bounding box to include a point
func (b *BoundingBox) Extend(p r3.Vec) {
	b.Min = r3.Vec{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)}
}

// Union returns the smallest box containing both boxes
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	if other.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return other
	}
	b.Extend(other.Min)
	b.Extend(other.Max)
	return b
}

// Width returns the width (X dimension) of the bounding box
func (b BoundingBox) Width() float64 {
	return b.Max.X - b.Min.X
}

// Length returns the length (Y dimension) of the bounding box
func (b BoundingBox) Length() float64 {
	return b.Max.Y - b.Min.Y
}

// Height returns the height (Z dimension) of the bounding box
func (b BoundingBox) Height() float64 {
	return b.Max.Z - b.Min.Z
}

// Size returns the dimensions of the bounding box
func (b BoundingBox) Size() r3.Vec {
	if b.IsEmpty() {
		return r3.Vec{}
	}
	return r3.Sub(b.Max, b.Min)
}

// MaxExtent returns the largest axis extent of the box, 0 for an empty box
func (b BoundingBox) MaxExtent() float64 {
	s := b.Size()
	return math.Max(s.X, math.Max(s.Y, s.Z))
}

// Center returns the center point of the bounding box
func (b BoundingBox) Center() r3.Vec {
	if b.IsEmpty() {
		return r3.Vec{}
	}
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}
