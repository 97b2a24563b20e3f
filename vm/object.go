package vm

// ---------------------------------------------------------------------------
// Heap objects
// ---------------------------------------------------------------------------

// objectKind discriminates the heap object representations.
type objectKind uint8

const (
	kindString objectKind = iota
	kindArray
	kindModule
	kindClass
	kindException
)

func (k objectKind) String() string {
	switch k {
	case kindString:
		return "String"
	case kindArray:
		return "Array"
	case kindModule:
		return "Module"
	case kindClass:
		return "Class"
	case kindException:
		return "Exception"
	}
	return "Object"
}

// object is a single entry in the VM heap table. Exactly one of the payload
// fields is populated, selected by kind. Modules and classes share modData;
// a class is a module with modData.isClass set and an optional superclass.
type object struct {
	kind   objectKind
	marked bool

	bytes []byte  // kindString
	elems []Value // kindArray
	mod   *modData
	exc   *excData
}

// modData is the payload for module and class objects.
type modData struct {
	name    string
	isClass bool
	super   Value // superclass (class objects only; Nil if none)
	outer   Value // enclosing module (Nil at top level)
	consts  map[string]Value
}

// excData is the payload for exception instances. Location and trace are
// filled in when the exception is raised, not when it is constructed.
type excData struct {
	class   Value // the exception's class object
	message string
	file    string
	line    int
	trace   []string
}

// object resolves a Value to its heap object. Returns nil for non-object
// values and for IDs that have been swept.
func (m *VM) object(v Value) *object {
	if !v.IsObject() {
		return nil
	}
	return m.heap[v.ObjectID()]
}

// alloc enters o into the heap table and protects the resulting value on the
// arena stack so a collection cannot reclaim it before the creator roots it.
func (m *VM) alloc(o *object) Value {
	m.nextID++
	id := m.nextID
	m.heap[id] = o
	v := FromObjectID(id)
	m.Protect(v)
	return v
}

// NewString allocates a string object holding a copy of b.
func (m *VM) NewString(b []byte) Value {
	c := make([]byte, len(b))
	copy(c, b)
	return m.alloc(&object{kind: kindString, bytes: c})
}

// NewArray allocates an array object holding the given elements.
func (m *VM) NewArray(elems []Value) Value {
	c := make([]Value, len(elems))
	copy(c, elems)
	return m.alloc(&object{kind: kindArray, elems: c})
}

// StringBytes returns the byte content of a string object, or false if v is
// not a string.
func (m *VM) StringBytes(v Value) ([]byte, bool) {
	o := m.object(v)
	if o == nil || o.kind != kindString {
		return nil, false
	}
	return o.bytes, true
}

// ArrayElems returns the elements of an array object, or false if v is not
// an array.
func (m *VM) ArrayElems(v Value) ([]Value, bool) {
	o := m.object(v)
	if o == nil || o.kind != kindArray {
		return nil, false
	}
	return o.elems, true
}

// KindName reports the VM-level type name of a value, used in conversion
// and dispatch error messages.
func (m *VM) KindName(v Value) string {
	switch {
	case v == Nil:
		return "NilClass"
	case v == True:
		return "TrueClass"
	case v == False:
		return "FalseClass"
	case v.IsFixnum():
		return "Integer"
	case v.IsFloat():
		return "Float"
	}
	if o := m.object(v); o != nil {
		if o.kind == kindModule || o.kind == kindClass {
			return o.mod.name
		}
		return o.kind.String()
	}
	return "Object"
}
