package interp

import "github.com/petal-lang/petal/vm"

// Value is a host-side handle wrapping a VM value together with the state
// that produced it. VM values are owned and collected by the VM heap; the
// handle is a view, not an owner, and must never be used after its state
// is closed.
type Value struct {
	state *State
	raw   vm.Value
}

// Raw returns the underlying VM value representation.
func (v Value) Raw() vm.Value {
	return v.raw
}

// IsNil reports whether v wraps the VM nil.
func (v Value) IsNil() bool {
	return v.raw == vm.Nil
}

// Funcall invokes a method on the value inside the VM. A raised exception
// is extracted through the state's exception boundary and returned as an
// ExecError.
func (v Value) Funcall(name string, args ...Value) (Value, error) {
	if err := v.state.live(); err != nil {
		return Value{}, err
	}
	raw := make([]vm.Value, 0, len(args))
	for _, a := range args {
		raw = append(raw, a.raw)
	}
	out, err := v.state.vm.Funcall(v.raw, name, raw...)
	if err != nil {
		if msg, pending := v.state.LastError(); pending {
			return Value{}, &ExecError{Output: msg}
		}
		return Value{}, err
	}
	return Value{state: v.state, raw: out}, nil
}

// Inspect renders the value the way script-level inspect does. Used by
// hosts that print results.
func (v Value) Inspect() string {
	if v.state == nil || v.state.closed {
		return "#<detached value>"
	}
	return v.state.vm.Inspect(v.raw)
}

// WrapValue adopts a raw VM value produced by a direct VM call (for
// example inside a native loader) into a host handle bound to s.
func (s *State) WrapValue(raw vm.Value) Value {
	return Value{state: s, raw: raw}
}
