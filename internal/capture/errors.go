package capture

import (
	"errors"
	"fmt"
)

var (
	ErrSessionActive   = errors.New("capture session already active")
	ErrModeUnsupported = errors.New("capture mode not supported on this platform")
	ErrUnknownMode     = errors.New("unknown capture mode")
)

// PanicError reports a panic raised by the function passed to Run.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Trace renders the panic value followed by the goroutine stack.
func (e *PanicError) Trace() string {
	return fmt.Sprintf("%s\n\n%s", e.Error(), e.Stack)
}
