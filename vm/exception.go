package vm

import "fmt"

// ---------------------------------------------------------------------------
// Exceptions
// ---------------------------------------------------------------------------

// NewException allocates an exception instance of the given class with a
// message. Location and backtrace are attached when the exception is
// raised, not at construction.
func (m *VM) NewException(class Value, message string) Value {
	o := m.object(class)
	if o == nil || o.kind != kindClass {
		class = m.RuntimeErrorClass
	}
	return m.alloc(&object{kind: kindException, exc: &excData{
		class:   class,
		message: message,
	}})
}

// Raise sets exc as the VM's pending exception, stamping it with the
// current evaluation location and backtrace. If exc is not an exception
// instance, a TypeError is raised instead.
func (m *VM) Raise(exc Value) Value {
	o := m.object(exc)
	if o == nil || o.kind != kindException {
		return m.RaiseNamed("TypeError", "exception class/object expected")
	}
	file, line := m.location()
	o.exc.file = file
	o.exc.line = line
	o.exc.trace = m.backtrace()
	m.exc = exc
	return Nil
}

// RaiseNamed raises a new exception of the class bound to the given
// top-level constant name. Unknown or non-class names fall back to
// RuntimeError so a raise can never itself fail to raise.
func (m *VM) RaiseNamed(class, message string) Value {
	cls, ok := m.consts[class]
	if !ok || !m.IsClass(cls) {
		cls = m.RuntimeErrorClass
	}
	return m.Raise(m.NewException(cls, message))
}

// ExceptionMessage returns the message of an exception instance.
func (m *VM) ExceptionMessage(v Value) (string, bool) {
	o := m.object(v)
	if o == nil || o.kind != kindException {
		return "", false
	}
	return o.exc.message, true
}

// ExceptionClassName returns the class name of an exception instance.
func (m *VM) ExceptionClassName(v Value) (string, bool) {
	o := m.object(v)
	if o == nil || o.kind != kindException {
		return "", false
	}
	return m.className(o.exc.class), true
}

// inspectException renders an exception the way the VM reports errors:
// "file:line: message (ClassName)".
func (m *VM) inspectException(o *object) string {
	d := o.exc
	return fmt.Sprintf("%s: %s (%s)", formatLocation(d.file, d.line), d.message, m.className(d.class))
}

func formatLocation(file string, line int) string {
	return fmt.Sprintf("%s:%d", file, line)
}
