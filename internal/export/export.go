// Package export writes the final solid to disk in the format implied by
// the destination's extension.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/philipparndt/citysolid/internal/assembly"
	"github.com/philipparndt/citysolid/internal/mesh"
	"github.com/philipparndt/citysolid/internal/stl"
	"github.com/philipparndt/citysolid/internal/threemf"
)

// Format is an output file format
type Format int

const (
	FormatUnknown Format = iota
	FormatSTL
	Format3MF
)

func (f Format) String() string {
	switch f {
	case FormatSTL:
		return "STL"
	case Format3MF:
		return "3MF"
	default:
		return "unknown"
	}
}

// DetectFormat determines the output format based on extension
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		return FormatSTL
	case ".3mf":
		return Format3MF
	default:
		return FormatUnknown
	}
}

// Options controls how a solid is serialized
type Options struct {
	// ASCII writes text STL instead of binary
	ASCII bool
	// Application is recorded in 3MF metadata
	Application string
}

// Encode serializes m in the given format
func Encode(w io.Writer, m *mesh.Mesh, format Format, opts Options) error {
	switch format {
	case FormatSTL:
		if opts.ASCII {
			return stl.WriteASCII(w, m)
		}
		return stl.WriteBinary(w, m)
	case Format3MF:
		return threemf.NewWriter(opts.Application).Write(w, m)
	default:
		return fmt.Errorf("unsupported output format")
	}
}

// WriteSolid writes m to path. The file is written to a temporary file in
// the same directory and renamed into place, so a failed export never
// leaves a partial file behind. Every failure is an ExportError.
func WriteSolid(path string, m *mesh.Mesh, opts Options) error {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return &assembly.ExportError{Path: path, Err: fmt.Errorf("unsupported extension %q", filepath.Ext(path))}
	}
	if err := writeFile(path, 0644, func(w io.Writer) error {
		return Encode(w, m, format, opts)
	}); err != nil {
		return &assembly.ExportError{Path: path, Err: err}
	}
	return nil
}

// writeFile streams content via a temp file, then atomically replaces the target.
func writeFile(path string, mode os.FileMode, content func(io.Writer) error) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	// Removes the temp file if anything fails before rename.
	defer func() { _ = os.Remove(tmp) }()

	bw := bufio.NewWriter(f)
	if err := content(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
