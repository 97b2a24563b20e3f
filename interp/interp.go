// Package interp is the host-side management layer for the Petal VM: the
// owning interpreter handle, the GC-safepoint protocol, the require/load
// subsystem, the value-conversion boundary, and the class/module definition
// registry.
//
// An interpreter state and everything reachable from it is confined to one
// logical owner at a time. Handing a state to another goroutine and calling
// into it concurrently is a programming error, not a supported contract.
package interp

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/google/uuid"
	pointer "github.com/mattn/go-pointer"
	"github.com/tliron/commonlog"

	"github.com/petal-lang/petal/vfs"
	"github.com/petal-lang/petal/vm"
)

var log = commonlog.GetLogger("petal.interp")

// State is the top-level owning handle bridging the host to the VM. It owns
// exactly one VM instance, one Vfs, and one definition registry, and it
// arbitrates their lifecycle. All derived handles (Values, arena
// savepoints, definition specs) are invalidated when the state is closed
// and must not outlive it.
type State struct {
	vm       *vm.VM
	vfs      *vfs.FS
	registry *registry
	loaders  map[string]File
	contexts []EvalContext

	id uuid.UUID

	// handle is the opaque pointer stored in the VM's user-data slot; it
	// co-owns the state with every handle recovered through
	// FromForeignHandle.
	handle unsafe.Pointer

	closeOnce sync.Once
	closed    bool
}

// New allocates and initializes an interpreter.
//
// Initialization installs the require function into the VM's global
// namespace, defines the exception hierarchy the loader needs
// (Exception -> ScriptError -> LoadError), then performs one throwaway
// evaluation inside an arena savepoint and a full collection pass. The VM
// initializes parts of itself lazily and generates garbage doing so;
// forcing that work eagerly makes subsequent behavior deterministic.
func New() (*State, error) {
	mrb := vm.Open()
	if mrb == nil {
		log.Error("failed to allocate VM instance")
		return nil, ErrAllocation
	}

	s := &State{
		vm:       mrb,
		vfs:      vfs.New(),
		registry: newRegistry(),
		loaders:  make(map[string]File),
		id:       uuid.New(),
	}
	if err := s.vfs.MkdirAll(LoadPath); err != nil {
		mrb.Close()
		return nil, fmt.Errorf("interp: initialize load path: %w", err)
	}

	// The state lives in the VM user-data slot behind a stable opaque
	// handle so native callbacks can recover it mid-eval.
	s.handle = pointer.Save(s)
	mrb.SetUserData(s.handle)

	mrb.DefineGlobalFunction("require", requireFunc)

	// Everything from here to the end of initialization creates VM
	// temporaries; bracket it all so the protection stack ends balanced.
	// The defined classes survive collection as constants.
	arena := s.ArenaSavepoint()

	exception := s.RegisterClass(exceptionClass{}, "Exception")
	scriptError := s.RegisterClass(scriptErrorClass{}, "ScriptError")
	if err := scriptError.SetSuperclass(exception); err != nil {
		s.Close()
		return nil, err
	}
	if err := scriptError.Define(s); err != nil {
		s.Close()
		return nil, err
	}
	loadError := s.RegisterClass(loadErrorClass{}, "LoadError")
	if err := loadError.SetSuperclass(scriptError); err != nil {
		s.Close()
		return nil, err
	}
	if err := loadError.Define(s); err != nil {
		s.Close()
		return nil, err
	}

	// The VM initializes parts of itself lazily; one throwaway evaluation
	// plus a full collection makes later behavior deterministic.
	mrb.Eval("", "(eval)")
	mrb.ClearErr()
	arena.Restore()
	mrb.FullGC()

	log.Debugf("allocated interpreter %s", s.id)
	return s, nil
}

// Marker types keyed in the definition registry for the interpreter's own
// base hierarchy.
type (
	exceptionClass   struct{}
	scriptErrorClass struct{}
	loadErrorClass   struct{}
)

// FromForeignHandle reconstructs a state from an opaque pointer previously
// stored by New in the VM's user-data slot. The stored copy and every
// recovered copy are co-owners of the same state; recovering does not
// consume the stored handle. Used when control re-enters host code from
// inside a VM-native callback.
func FromForeignHandle(p unsafe.Pointer) (*State, error) {
	if p == nil {
		log.Error("attempted to recover interpreter from nil handle")
		return nil, ErrUninitialized
	}
	s, ok := pointer.Restore(p).(*State)
	if !ok || s == nil {
		log.Error("attempted to recover interpreter from corrupted handle")
		return nil, ErrUninitialized
	}
	return s, nil
}

// Close releases the VM instance. It is safe to call more than once; the
// VM is closed exactly once. Every Value, savepoint, and spec derived from
// this state is invalid afterward.
func (s *State) Close() {
	s.closeOnce.Do(func() {
		s.closed = true
		s.vm.Close()
		pointer.Unref(s.handle)
		s.handle = nil
		log.Debugf("closed interpreter %s", s.id)
	})
}

// Closed reports whether the state has been closed.
func (s *State) Closed() bool {
	return s.closed
}

// VM exposes the underlying VM instance to extension collaborators that
// attach methods or constants directly. The returned VM must not be used
// after the state is closed.
func (s *State) VM() *vm.VM {
	return s.vm
}

// ID returns the interpreter's unique identity, used in log and debug
// output.
func (s *State) ID() uuid.UUID {
	return s.id
}

// String describes the interpreter state for debugging.
func (s *State) String() string {
	if s.closed {
		return fmt.Sprintf("petal interpreter %s (closed)", s.id)
	}
	return fmt.Sprintf("petal interpreter %s (%d live objects)", s.id, s.vm.LiveObjects())
}

// live guards operations that require an open VM.
func (s *State) live() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}
