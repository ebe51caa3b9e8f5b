package geometry

import (
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r3"
)

// Footprint returns the xy bound of a set of points. The second result is
// false when there are no points.
func Footprint(points []r3.Vec) (orb.Bound, bool) {
	if len(points) == 0 {
		return orb.Bound{}, false
	}
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.X, p.Y}
	}
	return mp.Bound(), true
}

// FootprintUnion merges several footprints into one bound
func FootprintUnion(bounds []orb.Bound) (orb.Bound, bool) {
	if len(bounds) == 0 {
		return orb.Bound{}, false
	}
	union := bounds[0]
	for _, b := range bounds[1:] {
		union = union.Union(b)
	}
	return union, true
}
