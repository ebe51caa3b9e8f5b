package assembly

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySelection reports that no entity matched the building filter
	ErrEmptySelection = errors.New("no building entities matched the filter")

	// ErrNonTriangularFace rejects faces with more than three indices
	ErrNonTriangularFace = errors.New("face is not a triangle")
)

// InputError is a fatal problem with the drawing or one of its entities
type InputError struct {
	Path   string
	Entity string
	Err    error
}

func (e *InputError) Error() string {
	switch {
	case e.Entity != "" && e.Path != "":
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Entity, e.Err)
	case e.Entity != "":
		return fmt.Sprintf("%s: %v", e.Entity, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// RepairError reports a building mesh that could not be made consistent.
// The building is dropped and the run continues.
type RepairError struct {
	Entity string
	Stage  string
	Err    error
}

func (e *RepairError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %v", e.Entity, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Entity, e.Err)
}

func (e *RepairError) Unwrap() error {
	return e.Err
}

// ExportError is a fatal failure writing the output
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
