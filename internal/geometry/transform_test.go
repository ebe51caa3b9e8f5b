package geometry

import (
	"testing"
)

func TestParseTransformOffset(t *testing.T) {
	tests := []struct {
		name      string
		transform string
		x, y, z   float64
		ok        bool
	}{
		{"identity", IdentityTransform, 0, 0, 0, true},
		{"translation", "1 0 0 0 1 0 0 0 1 10.50 20.75 5.25", 10.5, 20.75, 5.25, true},
		{"too short", "1 0 0", 0, 0, 0, false},
		{"garbage", "1 0 0 0 1 0 0 0 1 a b c", 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z, ok := ParseTransformOffset(tt.transform)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if x != tt.x || y != tt.y || z != tt.z {
				t.Errorf("offset = (%v, %v, %v), want (%v, %v, %v)", x, y, z, tt.x, tt.y, tt.z)
			}
		})
	}
}
