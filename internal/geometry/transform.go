package geometry

import (
	"strconv"
	"strings"
)

// IdentityTransform is the 3MF transformation matrix that leaves an object in place
const IdentityTransform = "1 0 0 0 1 0 0 0 1 0 0 0"

// ParseTransformOffset extracts the translation part of a 3MF transform string
func ParseTransformOffset(transform string) (x, y, z float64, ok bool) {
	parts := strings.Fields(transform)
	if len(parts) != 12 {
		return 0, 0, 0, false
	}

	x, errX := strconv.ParseFloat(parts[9], 64)
	y, errY := strconv.ParseFloat(parts[10], 64)
	z, errZ := strconv.ParseFloat(parts[11], 64)
	if errX != nil || errY != nil || errZ != nil {
		return 0, 0, 0, false
	}

	return x, y, z, true
}
