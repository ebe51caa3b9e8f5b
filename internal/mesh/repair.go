package mesh

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"
)

// Repair errors.
var (
	ErrIndexOutOfRange = errors.New("face index out of range")
	ErrNonManifoldEdge = errors.New("edge shared by more than two faces")
	ErrNonOrientable   = errors.New("faces cannot be oriented consistently")
	ErrOpenBoundary    = errors.New("boundary edges do not form closed loops")
	ErrDegenerate      = errors.New("mesh has no non-degenerate faces")
)

// DefaultMaxHoleEdges is the longest boundary loop FillHoles closes by default
const DefaultMaxHoleEdges = 64

// WeldTolerance is the distance in drawing units below which Weld merges
// two vertices
const WeldTolerance = 1e-6

// StageError reports which repair stage rejected a mesh
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// RepairOptions tunes the repair stages
type RepairOptions struct {
	MaxHoleEdges int
}

// RepairStage is a single named repair operation
type RepairStage struct {
	Name  string
	Apply func(m *Mesh) error
}

// RepairStages returns the repair operations in the order they must run.
// Welding comes first so faces exported with their own vertex copies share
// edges. Winding precedes normals because normal direction follows
// winding, hole filling precedes normals because it adds faces.
func RepairStages(opts RepairOptions) []RepairStage {
	maxEdges := opts.MaxHoleEdges
	if maxEdges <= 0 {
		maxEdges = DefaultMaxHoleEdges
	}
	return []RepairStage{
		{Name: "weld vertices", Apply: func(m *Mesh) error { return Weld(m, WeldTolerance) }},
		{Name: "fix winding", Apply: FixWinding},
		{Name: "fill holes", Apply: func(m *Mesh) error { return FillHoles(m, maxEdges) }},
		{Name: "fix normals", Apply: FixNormals},
	}
}

// Repair runs every repair stage on m in place
func Repair(m *Mesh, opts RepairOptions) error {
	for _, stage := range RepairStages(opts) {
		if err := stage.Apply(m); err != nil {
			return &StageError{Stage: stage.Name, Err: err}
		}
	}
	return nil
}

// Weld merges vertices closer than tolerance, drops the faces that
// collapse and removes unused vertices. The surviving faces are ordered by
// their corner positions so the result does not depend on input order.
func Weld(m *Mesh, tolerance float64) error {
	n := len(m.Vertices)
	tris := make([]*model3d.Triangle, 0, len(m.Faces))
	for i, f := range m.Faces {
		var t model3d.Triangle
		for k, idx := range f {
			if idx < 0 || idx >= n {
				return fmt.Errorf("%w: face %d", ErrIndexOutOfRange, i)
			}
			v := m.Vertices[idx]
			t[k] = model3d.XYZ(v.X, v.Y, v.Z)
		}
		tris = append(tris, &t)
	}

	welded := model3d.NewMeshTriangles(tris).Repair(tolerance).TriangleSlice()
	sort.Slice(welded, func(i, j int) bool {
		return lessTriangle(welded[i], welded[j])
	})

	index := make(map[model3d.Coord3D]int, n)
	vertices := make([]r3.Vec, 0, n)
	faces := make([]Face, 0, len(welded))
	for _, t := range welded {
		var f Face
		for k, c := range t {
			idx, ok := index[c]
			if !ok {
				idx = len(vertices)
				index[c] = idx
				vertices = append(vertices, r3.Vec{X: c.X, Y: c.Y, Z: c.Z})
			}
			f[k] = idx
		}
		if collapsed(f) {
			continue
		}
		faces = append(faces, f)
	}

	m.Vertices = vertices
	m.Faces = faces
	m.Normals = nil
	return nil
}

func lessTriangle(a, b *model3d.Triangle) bool {
	for k := 0; k < 3; k++ {
		ca, cb := a[k], b[k]
		switch {
		case ca.X != cb.X:
			return ca.X < cb.X
		case ca.Y != cb.Y:
			return ca.Y < cb.Y
		case ca.Z != cb.Z:
			return ca.Z < cb.Z
		}
	}
	return false
}

// collapsed reports whether a face repeats a vertex index
func collapsed(f Face) bool {
	return f[0] == f[1] || f[1] == f[2] || f[0] == f[2]
}

type edgeKey [2]int

func undirected(a, b int) edgeKey {
	if a < b {
		return edgeKey{a, b}
	}
	return edgeKey{b, a}
}

type faceRef struct {
	face    int
	forward bool // face walks the edge from the lower to the higher index
}

// edgeFaces maps every undirected edge to the faces using it. Collapsed
// faces repeating a vertex index take no part in the topology.
func edgeFaces(m *Mesh) (map[edgeKey][]faceRef, error) {
	n := len(m.Vertices)
	edges := make(map[edgeKey][]faceRef, len(m.Faces)*3/2)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return nil, fmt.Errorf("%w: face %d", ErrIndexOutOfRange, i)
			}
		}
		if collapsed(f) {
			continue
		}
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			key := undirected(a, b)
			edges[key] = append(edges[key], faceRef{face: i, forward: a < b})
			if len(edges[key]) > 2 {
				return nil, fmt.Errorf("%w: %d-%d", ErrNonManifoldEdge, key[0], key[1])
			}
		}
	}
	return edges, nil
}

func flipFace(f Face) Face {
	return Face{f[0], f[2], f[1]}
}

// FixWinding flips faces so that, within each connected component, every
// edge shared by two faces is walked in opposite directions.
func FixWinding(m *Mesh) error {
	edges, err := edgeFaces(m)
	if err != nil {
		return err
	}

	visited := make([]bool, len(m.Faces))
	flipped := make([]bool, len(m.Faces))

	// forwardAfterFlip reports the direction face r walks its edge once
	// the pending flips are applied.
	forwardAfterFlip := func(r faceRef) bool {
		return r.forward != flipped[r.face]
	}

	for start, f := range m.Faces {
		if visited[start] || collapsed(f) {
			continue
		}
		visited[start] = true
		queue := []int{start}

		for len(queue) > 0 {
			fi := queue[0]
			queue = queue[1:]
			f := m.Faces[fi]

			for j := 0; j < 3; j++ {
				a, b := f[j], f[(j+1)%3]
				refs := edges[undirected(a, b)]
				var self faceRef
				for _, r := range refs {
					if r.face == fi {
						self = r
					}
				}
				dir := forwardAfterFlip(self)

				for _, r := range refs {
					if r.face == fi {
						continue
					}
					if !visited[r.face] {
						visited[r.face] = true
						flipped[r.face] = r.forward == dir
						queue = append(queue, r.face)
						continue
					}
					if forwardAfterFlip(r) == dir {
						return fmt.Errorf("%w: faces %d and %d", ErrNonOrientable, fi, r.face)
					}
				}
			}
		}
	}

	for i := range m.Faces {
		if flipped[i] {
			m.Faces[i] = flipFace(m.Faces[i])
		}
	}
	m.Normals = nil
	return nil
}

// boundaryLoops chains the edges used by exactly one face into closed
// loops. Each loop follows the direction its faces walk the edges. Loops
// are discovered in face order so the result is deterministic.
func boundaryLoops(m *Mesh) ([][]int, error) {
	edges, err := edgeFaces(m)
	if err != nil {
		return nil, err
	}

	next := make(map[int]int)
	var starts []int
	for _, f := range m.Faces {
		if collapsed(f) {
			continue
		}
		for j := 0; j < 3; j++ {
			a, b := f[j], f[(j+1)%3]
			if len(edges[undirected(a, b)]) != 1 {
				continue
			}
			if _, exists := next[a]; exists {
				return nil, fmt.Errorf("%w: vertex %d starts two boundary edges", ErrOpenBoundary, a)
			}
			next[a] = b
			starts = append(starts, a)
		}
	}

	used := make(map[int]bool, len(next))
	var loops [][]int
	for _, start := range starts {
		if used[start] {
			continue
		}
		var loop []int
		v := start
		for {
			if used[v] {
				return nil, fmt.Errorf("%w: loop through vertex %d does not close", ErrOpenBoundary, v)
			}
			used[v] = true
			loop = append(loop, v)
			nv, ok := next[v]
			if !ok {
				return nil, fmt.Errorf("%w: boundary ends at vertex %d", ErrOpenBoundary, v)
			}
			if nv == start {
				break
			}
			v = nv
		}
		loops = append(loops, loop)
	}
	return loops, nil
}

// FillHoles closes every boundary loop of at most maxEdges edges. The
// added triangles walk the loop in reverse so they agree with the
// winding of their neighbours. Longer loops are left open.
func FillHoles(m *Mesh, maxEdges int) error {
	loops, err := boundaryLoops(m)
	if err != nil {
		return err
	}

	for _, loop := range loops {
		if len(loop) < 3 || len(loop) > maxEdges {
			continue
		}

		polygon := make([]int, len(loop))
		for i, v := range loop {
			polygon[len(loop)-1-i] = v
		}

		if tris, ok := earClip(m.Vertices, polygon); ok {
			m.Faces = append(m.Faces, tris...)
			continue
		}

		// Self-intersecting outline: fan around the loop centroid.
		var sum r3.Vec
		for _, v := range polygon {
			sum = r3.Add(sum, m.Vertices[v])
		}
		center := len(m.Vertices)
		m.Vertices = append(m.Vertices, r3.Scale(1/float64(len(polygon)), sum))
		for i := range polygon {
			m.Faces = append(m.Faces, Face{center, polygon[i], polygon[(i+1)%len(polygon)]})
		}
	}

	m.Normals = nil
	return nil
}

// earClip triangulates a simple polygon given as vertex indices, keeping
// the polygon's winding. It reports false when no ear can be found.
func earClip(vertices []r3.Vec, polygon []int) ([]Face, bool) {
	if len(polygon) == 3 {
		return []Face{{polygon[0], polygon[1], polygon[2]}}, true
	}

	// Newell normal selects the projection plane.
	var normal r3.Vec
	for i := range polygon {
		a, b := vertices[polygon[i]], vertices[polygon[(i+1)%len(polygon)]]
		normal.X += (a.Y - b.Y) * (a.Z + b.Z)
		normal.Y += (a.Z - b.Z) * (a.X + b.X)
		normal.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	if r3.Norm(normal) == 0 {
		return nil, false
	}

	project := func(v r3.Vec) [2]float64 {
		ax, ay, az := math.Abs(normal.X), math.Abs(normal.Y), math.Abs(normal.Z)
		switch {
		case az >= ax && az >= ay:
			return [2]float64{v.X, v.Y}
		case ax >= ay:
			return [2]float64{v.Y, v.Z}
		default:
			return [2]float64{v.Z, v.X}
		}
	}

	pts := make(map[int][2]float64, len(polygon))
	area := 0.0
	for i, idx := range polygon {
		pts[idx] = project(vertices[idx])
		a, b := project(vertices[polygon[i]]), project(vertices[polygon[(i+1)%len(polygon)]])
		area += a[0]*b[1] - b[0]*a[1]
	}
	sign := 1.0
	if area < 0 {
		sign = -1
	}

	cross := func(o, a, b [2]float64) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}
	inside := func(p, a, b, c [2]float64) bool {
		return sign*cross(a, b, p) >= 0 && sign*cross(b, c, p) >= 0 && sign*cross(c, a, p) >= 0
	}

	remaining := append([]int(nil), polygon...)
	var tris []Face
	for len(remaining) > 3 {
		k := len(remaining)
		found := false
		for i := 0; i < k; i++ {
			p, c, n := remaining[(i+k-1)%k], remaining[i], remaining[(i+1)%k]
			if sign*cross(pts[p], pts[c], pts[n]) <= 0 {
				continue
			}
			ear := true
			for _, o := range remaining {
				if o == p || o == c || o == n {
					continue
				}
				if pts[o] == pts[p] || pts[o] == pts[c] || pts[o] == pts[n] {
					continue
				}
				if inside(pts[o], pts[p], pts[c], pts[n]) {
					ear = false
					break
				}
			}
			if !ear {
				continue
			}
			tris = append(tris, Face{p, c, n})
			remaining = append(remaining[:i], remaining[i+1:]...)
			found = true
			break
		}
		if !found {
			return nil, false
		}
	}
	tris = append(tris, Face{remaining[0], remaining[1], remaining[2]})
	return tris, true
}

// components groups faces connected through shared edges
func components(m *Mesh, edges map[edgeKey][]faceRef) [][]int {
	parent := make([]int, len(m.Faces))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for _, refs := range edges {
		if len(refs) == 2 {
			ra, rb := find(refs[0].face), find(refs[1].face)
			if ra != rb {
				parent[rb] = ra
			}
		}
	}

	index := make(map[int]int)
	var groups [][]int
	for i := range m.Faces {
		root := find(i)
		g, ok := index[root]
		if !ok {
			g = len(groups)
			index[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

// FixNormals turns inside-out components the right way round and then
// stores one unit normal per face. A closed component is measured about
// its bounding-box center. An open one is measured about the center of its
// bounding-box floor, which encloses the usual missing floor exactly.
func FixNormals(m *Mesh) error {
	if len(m.Faces) == 0 {
		return ErrDegenerate
	}
	edges, err := edgeFaces(m)
	if err != nil {
		return err
	}

	for _, group := range components(m, edges) {
		bounds := m.faceBounds(group)
		origin := bounds.Center()
		if hasBoundary(m, group, edges) {
			origin.Z = bounds.Min.Z
		}
		if m.volumeAbout(group, origin) < 0 {
			for _, fi := range group {
				m.Faces[fi] = flipFace(m.Faces[fi])
			}
		}
	}

	if m.ComputeNormals() == 0 {
		m.Normals = nil
		return ErrDegenerate
	}
	return nil
}

// hasBoundary reports whether any face of group has an unshared edge
func hasBoundary(m *Mesh, group []int, edges map[edgeKey][]faceRef) bool {
	for _, fi := range group {
		f := m.Faces[fi]
		if collapsed(f) {
			continue
		}
		for j := 0; j < 3; j++ {
			if len(edges[undirected(f[j], f[(j+1)%3])]) == 1 {
				return true
			}
		}
	}
	return false
}
