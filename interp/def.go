package interp

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/petal-lang/petal/vm"
)

// SpecKind distinguishes class specs from module specs.
type SpecKind int

const (
	ClassSpec SpecKind = iota
	ModuleSpec
)

func (k SpecKind) String() string {
	if k == ModuleSpec {
		return "module"
	}
	return "class"
}

// Spec describes a class or module to be defined on the VM. Specs are
// registered once per host-native type identity and form a forest through
// their superclass and enclosing references; the registry owns the
// canonical spec, the references are lookups, never ownership.
//
// A spec is mutable only until Define: the one-time superclass/enclosing
// links must be attached before the VM-side definition happens.
type Spec struct {
	Name string
	Kind SpecKind

	super     *Spec
	enclosing *Spec

	defined bool
	object  vm.Value
}

// SetSuperclass attaches the one-time superclass link. Only class specs
// accept one, and only before Define.
func (sp *Spec) SetSuperclass(super *Spec) error {
	if sp.Kind != ClassSpec {
		return fmt.Errorf("interp: %s spec %s cannot take a superclass", sp.Kind, sp.Name)
	}
	if sp.defined {
		return fmt.Errorf("interp: spec %s is already defined", sp.Name)
	}
	sp.super = super
	return nil
}

// SetEnclosing attaches the one-time enclosing-module link, before Define.
func (sp *Spec) SetEnclosing(enclosing *Spec) error {
	if sp.defined {
		return fmt.Errorf("interp: spec %s is already defined", sp.Name)
	}
	if enclosing != nil && enclosing.Kind != ModuleSpec {
		return fmt.Errorf("interp: enclosing spec %s is not a module", enclosing.Name)
	}
	sp.enclosing = enclosing
	return nil
}

// Defined reports whether the VM-side definition has happened.
func (sp *Spec) Defined() bool {
	return sp.defined
}

// Object returns the VM-side class/module object, available after Define.
func (sp *Spec) Object() (vm.Value, bool) {
	if !sp.defined {
		return vm.Nil, false
	}
	return sp.object, true
}

// Define performs the VM-side class or module creation, applying the
// recorded superclass and enclosing links. Defining the same spec again is
// a no-op returning the first outcome's object; re-definition semantics
// beyond that are the VM's.
func (sp *Spec) Define(s *State) error {
	if err := s.live(); err != nil {
		return err
	}
	if sp.defined {
		return nil
	}
	outer := vm.Nil
	if sp.enclosing != nil {
		o, err := sp.enclosing.resolve(s)
		if err != nil {
			return &DefineError{Name: sp.Name, Err: err}
		}
		outer = o
	}
	var obj vm.Value
	var err error
	switch sp.Kind {
	case ModuleSpec:
		obj, err = s.vm.DefineModule(sp.Name, outer)
	default:
		super := vm.Nil
		if sp.super != nil {
			super, err = sp.super.resolve(s)
			if err != nil {
				return &DefineError{Name: sp.Name, Err: err}
			}
		}
		obj, err = s.vm.DefineClass(sp.Name, super, outer)
	}
	if err != nil {
		return &DefineError{Name: sp.Name, Err: err}
	}
	sp.object = obj
	sp.defined = true
	log.Debugf("defined %s %s on %s", sp.Kind, sp.Name, s.id)
	return nil
}

// resolve returns the VM object a spec refers to: its own defined object,
// or an existing VM constant of the same name when the spec was registered
// against a class/module the VM already ships.
func (sp *Spec) resolve(s *State) (vm.Value, error) {
	if sp.defined {
		return sp.object, nil
	}
	if v, ok := s.vm.ConstGet(vm.Nil, sp.Name); ok {
		return v, nil
	}
	return vm.Nil, errors.New(sp.Name + " is not defined")
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// registry records one spec per host-native type identity.
type registry struct {
	specs map[reflect.Type]*Spec
}

func newRegistry() *registry {
	return &registry{specs: make(map[reflect.Type]*Spec)}
}

// RegisterClass creates or returns the class spec for the host type
// identity of key. Registration is idempotent per identity: a second call
// returns the first spec unchanged.
func (s *State) RegisterClass(key any, name string) *Spec {
	return s.register(key, name, ClassSpec)
}

// RegisterModule creates or returns the module spec for the host type
// identity of key.
func (s *State) RegisterModule(key any, name string) *Spec {
	return s.register(key, name, ModuleSpec)
}

func (s *State) register(key any, name string, kind SpecKind) *Spec {
	t := reflect.TypeOf(key)
	if sp, ok := s.registry.specs[t]; ok {
		return sp
	}
	sp := &Spec{Name: name, Kind: kind}
	s.registry.specs[t] = sp
	return sp
}

// SpecForType looks up the spec registered for the host type identity of
// key. O(1); this is how extension collaborators find the VM-side object
// to attach methods to.
func (s *State) SpecForType(key any) (*Spec, bool) {
	sp, ok := s.registry.specs[reflect.TypeOf(key)]
	return sp, ok
}
