package kernel

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned by every scheduling step once Quit was requested.
// Handlers must pass it up unchanged (or wrapped) so the stack unwinds.
var ErrCancelled = errors.New("kernel: cancelled")

// PanicError describes a panic raised by a source handler.
type PanicError struct {
	Source string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("kernel: panic in %s: %v", e.Source, e.Value)
}
