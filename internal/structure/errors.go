package structure

import (
	"errors"
	"fmt"
)

var (
	// ErrStructure matches every *StructureError.
	ErrStructure = errors.New("invalid structure")
	// ErrInconsistentValue matches every *InconsistentValueError.
	ErrInconsistentValue = errors.New("inconsistent value")
)

// StructureError reports a shape the tree cannot represent: a bad path,
// a disallowed type change, or invalid data passed to Load.
type StructureError struct {
	Path    NodePath
	Message string
}

func (e *StructureError) Error() string {
	if e.Path.IsEmpty() {
		return e.Message
	}
	return fmt.Sprintf("%s in %q", e.Message, e.Path.String())
}

func (e *StructureError) Is(target error) bool { return target == ErrStructure }

func structureErrorf(p NodePath, format string, args ...any) error {
	return &StructureError{Path: p, Message: fmt.Sprintf(format, args...)}
}

// InconsistentValueError reports an attempt to overwrite a write-once
// property with a different value.
type InconsistentValueError struct {
	Path     NodePath
	Property string
	Old      any
	New      any
}

func (e *InconsistentValueError) Error() string {
	return fmt.Sprintf("attempting to overwrite '%s' value '%v' with '%v' in %q",
		e.Property, e.Old, e.New, e.Path.String())
}

func (e *InconsistentValueError) Is(target error) bool { return target == ErrInconsistentValue }
