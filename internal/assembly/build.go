package assembly

import (
	"context"
	"errors"
	"fmt"

	"github.com/philipparndt/citysolid/internal/dxf"
	"github.com/philipparndt/citysolid/internal/mesh"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

var errShortFace = errors.New("face has fewer than three indices")

// BuildMesh converts one entity into a repaired triangle mesh. A face with
// more than three indices is an InputError; a mesh the repair stages reject
// is a RepairError.
func BuildMesh(e *dxf.Entity, opts mesh.RepairOptions) (*mesh.Mesh, error) {
	m := mesh.New(e.Name())
	m.Vertices = append([]r3.Vec(nil), e.Vertices...)
	m.Faces = make([]mesh.Face, 0, len(e.Faces))

	for i, f := range e.Faces {
		switch {
		case len(f) > 3:
			return nil, &InputError{
				Entity: e.Name(),
				Err:    fmt.Errorf("%w: face %d has %d indices", ErrNonTriangularFace, i, len(f)),
			}
		case len(f) < 3:
			return nil, &RepairError{Entity: e.Name(), Err: fmt.Errorf("%w: face %d", errShortFace, i)}
		}
		m.Faces = append(m.Faces, mesh.Face{f[0], f[1], f[2]})
	}

	if err := mesh.Repair(m, opts); err != nil {
		repairErr := &RepairError{Entity: e.Name(), Err: err}
		var stageErr *mesh.StageError
		if errors.As(err, &stageErr) {
			repairErr.Stage = stageErr.Stage
			repairErr.Err = stageErr.Err
		}
		return nil, repairErr
	}
	return m, nil
}

// BuildResult holds the outcome of building every selected entity
type BuildResult struct {
	// Meshes are the successfully built meshes in selection order
	Meshes []*mesh.Mesh
	// Dropped lists the buildings rejected by repair in selection order
	Dropped []*RepairError
}

// BuildAll builds the entities with up to workers parallel builders. The
// result does not depend on scheduling: meshes keep selection order and
// the InputError of the earliest failing entity is returned.
func BuildAll(ctx context.Context, entities []*dxf.Entity, opts mesh.RepairOptions, workers int) (*BuildResult, error) {
	meshes := make([]*mesh.Mesh, len(entities))
	errs := make([]error, len(entities))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, e := range entities {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			meshes[i], errs[i] = BuildMesh(e, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &BuildResult{}
	for i, err := range errs {
		var repairErr *RepairError
		switch {
		case err == nil:
			result.Meshes = append(result.Meshes, meshes[i])
		case errors.As(err, &repairErr):
			result.Dropped = append(result.Dropped, repairErr)
		default:
			return nil, err
		}
	}
	return result, nil
}
