package interp

import (
	"errors"
	"fmt"
)

// ErrAllocation is returned by New when the VM cannot be allocated.
var ErrAllocation = errors.New("interp: failed to allocate VM")

// ErrUninitialized is returned by FromForeignHandle when the handle is nil
// or does not carry an interpreter state.
var ErrUninitialized = errors.New("interp: null or corrupted interpreter handle")

// ErrClosed is returned by operations on a closed interpreter.
var ErrClosed = errors.New("interp: interpreter is closed")

// ExecError carries the VM's own formatted error report for a failed
// evaluation: the exception inspection line followed by the backtrace,
// newline separated.
type ExecError struct {
	Output string
}

func (e *ExecError) Error() string {
	return e.Output
}

// LoadError is the host-native form of a failed require: every candidate
// path missed. The message format matches the VM-native LoadError raised
// on the script-level channel.
type LoadError struct {
	// Name is the original requested name, unresolved.
	Name string
}

func (e *LoadError) Error() string {
	return "cannot load such file -- " + e.Name
}

// DefineError reports a failed VM-side class or module definition.
type DefineError struct {
	Name string
	Err  error
}

func (e *DefineError) Error() string {
	return fmt.Sprintf("interp: define %s: %v", e.Name, e.Err)
}

func (e *DefineError) Unwrap() error {
	return e.Err
}
