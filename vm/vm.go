// Package vm implements the Petal virtual machine: a small, embeddable,
// garbage-collected object VM executing a Ruby-dialect subset.
//
// The VM is deliberately opaque to embedding hosts. A host interacts with it
// only through this package's exported surface: open/close, eval, the arena
// (GC protection stack) savepoint protocol, the pending-exception slot,
// native function registration, class/module definition, funcall, and the
// single user-data slot. Everything else - heap layout, evaluation strategy,
// collection policy - is VM-internal and may change.
package vm

import "unsafe"

// NativeFunc is a host function callable from script as a global function.
// Arguments are protected on the arena for the duration of the call. A
// native function reports failure by raising on the VM, not by returning
// an error.
type NativeFunc func(m *VM, args []Value) Value

// frame is one entry of the VM's evaluation location stack, used for
// error-location reporting.
type frame struct {
	file string
	line int
}

// VM is a single Petal virtual machine instance.
//
// A VM is confined to one goroutine. It owns its heap exclusively; Values
// it produces are only meaningful while the VM is open.
type VM struct {
	heap   map[uint32]*object
	nextID uint32

	// arena is the GC protection stack. Every allocation is pushed here;
	// ArenaSave/ArenaRestore bracket temporaries created during an
	// operation so they can be released in one slice.
	arena []Value

	// exc is the pending-exception slot, Nil when no exception is pending.
	exc Value

	consts  map[string]Value // top-level constant table
	ivars   map[string]Value // instance variables on top self
	natives map[string]NativeFunc
	frames  []frame

	ud     unsafe.Pointer // user-data slot, opaque to the VM
	closed bool

	// Core classes defined at Open.
	ObjectClass        Value
	ExceptionClass     Value
	StandardErrorClass Value
	RuntimeErrorClass  Value
	ArgumentErrorClass Value
	TypeErrorClass     Value
	NameErrorClass     Value
	NoMethodErrorClass Value
	SyntaxErrorClass   Value
}

// Open allocates a new VM and bootstraps its core class hierarchy.
func Open() *VM {
	m := &VM{
		heap:    make(map[uint32]*object),
		consts:  make(map[string]Value),
		ivars:   make(map[string]Value),
		natives: make(map[string]NativeFunc),
		exc:     Nil,
	}
	m.bootstrapCoreClasses()
	return m
}

// Close releases the VM heap. The VM must not be used afterward; any Value
// derived from it is invalidated. Closing twice is a no-op.
func (m *VM) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.heap = nil
	m.arena = nil
	m.consts = nil
	m.ivars = nil
	m.natives = nil
	m.exc = Nil
	m.ud = nil
}

// Closed reports whether Close has been called.
func (m *VM) Closed() bool {
	return m.closed
}

// SetUserData stores an opaque host pointer on the VM. The VM never
// dereferences it.
func (m *VM) SetUserData(p unsafe.Pointer) {
	m.ud = p
}

// UserData returns the pointer stored with SetUserData, or nil.
func (m *VM) UserData() unsafe.Pointer {
	return m.ud
}

// DefineGlobalFunction registers fn as a global function callable from
// script by name.
func (m *VM) DefineGlobalFunction(name string, fn NativeFunc) {
	m.natives[name] = fn
}

// ---------------------------------------------------------------------------
// Arena (GC protection stack)
// ---------------------------------------------------------------------------

// Protect pushes v onto the arena stack, shielding it from collection until
// the stack is restored below its slot.
func (m *VM) Protect(v Value) {
	if v.IsObject() {
		m.arena = append(m.arena, v)
	}
}

// ArenaSave records the current protection-stack depth.
func (m *VM) ArenaSave() int {
	return len(m.arena)
}

// ArenaRestore pops the protection stack back to a depth previously
// returned by ArenaSave. Restores must happen in LIFO order relative to
// their saves; a depth above the current length is ignored.
func (m *VM) ArenaRestore(depth int) {
	if depth < 0 || depth > len(m.arena) {
		return
	}
	m.arena = m.arena[:depth]
}

// ---------------------------------------------------------------------------
// Exception slot
// ---------------------------------------------------------------------------

// Err returns the pending exception value, or Nil if none is pending.
func (m *VM) Err() Value {
	return m.exc
}

// TakeErr returns the pending exception and clears the slot. The returned
// value is NOT protected; callers that intend to operate on it must Protect
// it before the next allocation.
func (m *VM) TakeErr() Value {
	exc := m.exc
	m.exc = Nil
	return exc
}

// ClearErr discards any pending exception.
func (m *VM) ClearErr() {
	m.exc = Nil
}

// ---------------------------------------------------------------------------
// Garbage collection
// ---------------------------------------------------------------------------

// FullGC runs a full, non-incremental mark-and-sweep collection. Roots are
// the top-level constant tree, top-self instance variables, the arena
// stack, and the pending exception.
func (m *VM) FullGC() {
	for _, o := range m.heap {
		o.marked = false
	}
	for _, v := range m.consts {
		m.mark(v)
	}
	for _, v := range m.ivars {
		m.mark(v)
	}
	for _, v := range m.arena {
		m.mark(v)
	}
	m.mark(m.exc)
	for id, o := range m.heap {
		if !o.marked {
			delete(m.heap, id)
		}
	}
}

func (m *VM) mark(v Value) {
	o := m.object(v)
	if o == nil || o.marked {
		return
	}
	o.marked = true
	switch o.kind {
	case kindArray:
		for _, e := range o.elems {
			m.mark(e)
		}
	case kindModule, kindClass:
		m.mark(o.mod.super)
		m.mark(o.mod.outer)
		for _, c := range o.mod.consts {
			m.mark(c)
		}
	case kindException:
		m.mark(o.exc.class)
	}
}

// LiveObjects returns the number of objects currently in the heap table.
func (m *VM) LiveObjects() int {
	return len(m.heap)
}

// ---------------------------------------------------------------------------
// Evaluation location stack
// ---------------------------------------------------------------------------

func (m *VM) pushFrame(file string) {
	m.frames = append(m.frames, frame{file: file, line: 1})
}

func (m *VM) popFrame() {
	if len(m.frames) > 0 {
		m.frames = m.frames[:len(m.frames)-1]
	}
}

func (m *VM) setLine(line int) {
	if len(m.frames) > 0 {
		m.frames[len(m.frames)-1].line = line
	}
}

// location returns the innermost evaluation location for error reporting.
func (m *VM) location() (string, int) {
	if len(m.frames) == 0 {
		return "(eval)", 1
	}
	f := m.frames[len(m.frames)-1]
	return f.file, f.line
}

// backtrace renders the location stack innermost-first as "file:line" lines.
func (m *VM) backtrace() []string {
	if len(m.frames) == 0 {
		file, line := m.location()
		return []string{formatLocation(file, line)}
	}
	lines := make([]string, 0, len(m.frames))
	for i := len(m.frames) - 1; i >= 0; i-- {
		lines = append(lines, formatLocation(m.frames[i].file, m.frames[i].line))
	}
	return lines
}
