package settlement

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for malformed settlement parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAssignment is returned when an assignment references an item that does not exist
	ErrInvalidAssignment = errors.New("invalid assignment")

	// ErrUnimplemented is returned for split capabilities that do not exist yet
	ErrUnimplemented = errors.New("not implemented")
)

// AssignmentError names the person and item reference that failed to resolve.
// It matches ErrInvalidAssignment with errors.Is.
type AssignmentError struct {
	Person   string
	Ref      int
	NumItems int
}

func (e *AssignmentError) Error() string {
	return fmt.Sprintf("%s: %q references item %d but the receipt has %d items",
		ErrInvalidAssignment, e.Person, e.Ref, e.NumItems)
}

// Is reports whether target is ErrInvalidAssignment
func (e *AssignmentError) Is(target error) bool {
	return target == ErrInvalidAssignment
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
