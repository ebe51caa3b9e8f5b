// Package assembly implements the stages that turn building entities into
// one printable solid: selection, mesh building, vertical normalization,
// aggregate scaling, horizontal centering, plate generation and combining.
package assembly

import "github.com/philipparndt/citysolid/internal/dxf"

// SelectEntities returns, in stream order, the MESH entities on layer.
// Entities that failed to decode are skipped and counted.
func SelectEntities(entities []*dxf.Entity, layer string) (selected []*dxf.Entity, malformed int) {
	for _, e := range entities {
		if e.Kind != dxf.KindMesh || e.Layer != layer {
			continue
		}
		if e.Err != nil {
			malformed++
			continue
		}
		selected = append(selected, e)
	}
	return selected, malformed
}
