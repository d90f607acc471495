package hookable

import (
	"fmt"
	"runtime/debug"
)

// CallbackError reports a failed series or parallel callback. The remaining
// callbacks of the call did not run (series) or may not have run (parallel).
type CallbackError struct {
	// Hook is the name of the collection that was called.
	Hook string

	// Tap names the failing callback.
	Tap string

	// Stage is the failing callback's resolved stage.
	Stage int

	// Err is the error returned by the callback.
	Err error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("hookable: %s: tap %q (stage %d): %v", e.Hook, e.Tap, e.Stage, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// PanicError is the value re-panicked in the caller's goroutine when a
// parallel callback panics. Series and bail callbacks run on the caller's
// goroutine, so their panics propagate as-is.
type PanicError struct {
	Hook  string
	Tap   string
	Value any

	// Stack is the stack of the panicking goroutine.
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("hookable: %s: tap %q panicked: %v\n\n%s", e.Hook, e.Tap, e.Value, e.Stack)
}

func newPanicError(hook, tap string, value any) *PanicError {
	return &PanicError{Hook: hook, Tap: tap, Value: value, Stack: debug.Stack()}
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
