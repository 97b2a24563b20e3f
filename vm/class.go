package vm

import "fmt"

// ---------------------------------------------------------------------------
// Class and module definition
// ---------------------------------------------------------------------------

// DefineClass defines a class under the given enclosing module (Nil for top
// level) with the given superclass (Nil for Object). Defining a name that
// already resolves to a class reopens it and returns the existing class
// object; redefining with a conflicting superclass is an error. Defining a
// name bound to a non-class is an error.
func (m *VM) DefineClass(name string, super, outer Value) (Value, error) {
	scope, err := m.constScope(outer)
	if err != nil {
		return Nil, err
	}
	if existing, ok := scope[name]; ok {
		o := m.object(existing)
		if o == nil || o.kind != kindClass {
			return Nil, fmt.Errorf("%s is not a class", name)
		}
		if super != Nil && o.mod.super != super {
			return Nil, fmt.Errorf("superclass mismatch for class %s", name)
		}
		return existing, nil
	}
	if super == Nil {
		super = m.ObjectClass
	}
	if super != Nil {
		so := m.object(super)
		if so == nil || so.kind != kindClass {
			return Nil, fmt.Errorf("superclass of %s is not a class", name)
		}
	}
	cls := m.alloc(&object{kind: kindClass, mod: &modData{
		name:    name,
		isClass: true,
		super:   super,
		outer:   outer,
		consts:  make(map[string]Value),
	}})
	scope[name] = cls
	return cls, nil
}

// DefineModule defines a module under the given enclosing module (Nil for
// top level). Defining an existing module name reopens it; defining a name
// bound to a non-module is an error.
func (m *VM) DefineModule(name string, outer Value) (Value, error) {
	scope, err := m.constScope(outer)
	if err != nil {
		return Nil, err
	}
	if existing, ok := scope[name]; ok {
		o := m.object(existing)
		if o == nil || (o.kind != kindModule && o.kind != kindClass) {
			return Nil, fmt.Errorf("%s is not a module", name)
		}
		return existing, nil
	}
	mod := m.alloc(&object{kind: kindModule, mod: &modData{
		name:   name,
		outer:  outer,
		consts: make(map[string]Value),
	}})
	scope[name] = mod
	return mod, nil
}

// constScope resolves the constant table for an enclosing module value,
// or the top-level table when outer is Nil.
func (m *VM) constScope(outer Value) (map[string]Value, error) {
	if outer == Nil {
		return m.consts, nil
	}
	o := m.object(outer)
	if o == nil || (o.kind != kindModule && o.kind != kindClass) {
		return nil, fmt.Errorf("enclosing scope is not a module")
	}
	return o.mod.consts, nil
}

// ConstGet looks up a constant by name under the given module, or at top
// level when scope is Nil.
func (m *VM) ConstGet(scope Value, name string) (Value, bool) {
	tbl, err := m.constScope(scope)
	if err != nil {
		return Nil, false
	}
	v, ok := tbl[name]
	return v, ok
}

// ConstSet binds a constant by name under the given module, or at top level
// when scope is Nil.
func (m *VM) ConstSet(scope Value, name string, v Value) error {
	tbl, err := m.constScope(scope)
	if err != nil {
		return err
	}
	tbl[name] = v
	return nil
}

// IsClass reports whether v is a class object.
func (m *VM) IsClass(v Value) bool {
	o := m.object(v)
	return o != nil && o.kind == kindClass
}

// IsModule reports whether v is a module (or class) object.
func (m *VM) IsModule(v Value) bool {
	o := m.object(v)
	return o != nil && (o.kind == kindModule || o.kind == kindClass)
}

// isSubclassOf walks the superclass chain from cls looking for target.
func (m *VM) isSubclassOf(cls, target Value) bool {
	for c := cls; c != Nil; {
		if c == target {
			return true
		}
		o := m.object(c)
		if o == nil || o.kind != kindClass {
			return false
		}
		c = o.mod.super
	}
	return false
}

// className returns the name of a class/module object, or its kind name.
func (m *VM) className(v Value) string {
	if o := m.object(v); o != nil && o.mod != nil {
		return o.mod.name
	}
	return m.KindName(v)
}

// bootstrapCoreClasses installs the classes the VM itself guarantees:
// Object and the exception hierarchy script code can raise without any
// host-side definitions.
func (m *VM) bootstrapCoreClasses() {
	def := func(name string, super Value) Value {
		cls, err := m.DefineClass(name, super, Nil)
		if err != nil {
			panic("vm: core class bootstrap: " + err.Error())
		}
		return cls
	}
	// Object is created by hand: DefineClass defaults the superclass to
	// ObjectClass, which does not exist yet.
	m.ObjectClass = m.alloc(&object{kind: kindClass, mod: &modData{
		name:    "Object",
		isClass: true,
		super:   Nil,
		outer:   Nil,
		consts:  make(map[string]Value),
	}})
	m.consts["Object"] = m.ObjectClass
	m.ExceptionClass = def("Exception", m.ObjectClass)
	m.StandardErrorClass = def("StandardError", m.ExceptionClass)
	m.RuntimeErrorClass = def("RuntimeError", m.StandardErrorClass)
	m.ArgumentErrorClass = def("ArgumentError", m.StandardErrorClass)
	m.TypeErrorClass = def("TypeError", m.StandardErrorClass)
	m.NameErrorClass = def("NameError", m.StandardErrorClass)
	m.NoMethodErrorClass = def("NoMethodError", m.NameErrorClass)
	m.SyntaxErrorClass = def("SyntaxError", m.ExceptionClass)
	// Core classes are permanent roots; drop their allocation protection.
	m.arena = m.arena[:0]
}
