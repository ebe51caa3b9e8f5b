// Package preconditions performs fail-fast checks before a conversion
// starts reading or writing anything.
package preconditions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateDrawing checks that path is a readable DXF file
func ValidateDrawing(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if !isDXFFile(path) {
		return fmt.Errorf("%s is not a DXF file (must end in .dxf)", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", path, err)
	}
	return file.Close()
}

func isDXFFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".dxf")
}

// ValidateOutputPath checks that the directory of path exists and
// accepts new files.
func ValidateOutputPath(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory %s does not exist", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".citysolid-probe-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable", dir)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
