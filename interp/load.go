package interp

import (
	"fmt"
	"path"

	"github.com/petal-lang/petal/vm"
)

// LoadPath is the load root that relative require names and relative
// source registrations resolve against.
const LoadPath = "/src/lib"

// File is a native-implemented module: its Require runs when the path it
// is registered under is required for the first time. It may define
// classes and modules, register further sources, and evaluate code.
type File interface {
	Require(*State) error
}

// resolvePath resolves a registration path against the load root.
func resolvePath(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	return path.Join(LoadPath, p)
}

// RegisterSource binds textual source content to a path in the Vfs. A
// relative path lands under the load root.
func (s *State) RegisterSource(p string, content []byte) error {
	if err := s.live(); err != nil {
		return err
	}
	return s.vfs.Register(resolvePath(p), content)
}

// RegisterNativeLoader binds a native loader to a path. A path may carry
// both a native loader and source content; a single require runs both,
// native first.
func (s *State) RegisterNativeLoader(p string, file File) error {
	if err := s.live(); err != nil {
		return err
	}
	resolved := resolvePath(p)
	if err := s.vfs.RegisterLoader(resolved); err != nil {
		return err
	}
	s.loaders[resolved] = file
	return nil
}

// Require resolves name against the Vfs and loads it, returning true if
// new work was done and false if every resolvable candidate was already
// loaded. If no candidate is a file, a VM-native LoadError is raised and
// surfaced as an ExecError; other failures during loading surface the
// VM's error report the same way.
func (s *State) Require(name string) (bool, error) {
	if err := s.live(); err != nil {
		return false, err
	}
	loaded, found := s.doRequire(name)
	if s.vm.Err() != vm.Nil {
		msg, _ := s.LastError()
		return false, &ExecError{Output: msg}
	}
	if !found {
		log.Debugf("failed require %q on %s", name, s.id)
		return false, &LoadError{Name: name}
	}
	return loaded, nil
}

// requireFunc is the script-visible require function installed into the
// VM's global namespace at interpreter creation.
func requireFunc(m *vm.VM, args []vm.Value) vm.Value {
	s, err := FromForeignHandle(m.UserData())
	if err != nil {
		m.RaiseNamed("RuntimeError", err.Error())
		return vm.Nil
	}
	if len(args) != 1 {
		m.RaiseNamed("ArgumentError", fmt.Sprintf("wrong number of arguments (given %d, expected 1)", len(args)))
		return vm.Nil
	}
	name, cerr := s.ToString(s.WrapValue(args[0]))
	if cerr != nil {
		m.RaiseNamed("TypeError", cerr.Error())
		return vm.Nil
	}
	loaded, found := s.doRequire(name)
	if m.Err() != vm.Nil {
		// A loader or source raised; propagate it untouched.
		return vm.Nil
	}
	if !found {
		m.RaiseNamed("LoadError", "cannot load such file -- "+name)
		log.Debugf("failed require %q on %s", name, s.id)
		return vm.Nil
	}
	return vm.FromBool(loaded)
}

// doRequire implements the resolution algorithm. loaded reports whether
// any candidate did new work; found reports whether any candidate was a
// file at all. A pending VM exception aborts the walk and is left in the
// slot for the caller.
func (s *State) doRequire(name string) (loaded, found bool) {
	var candidates []string
	if path.IsAbs(name) {
		candidates = []string{path.Clean(name)}
	} else {
		base := path.Join(LoadPath, name)
		candidates = []string{base, base + ".rb"}
	}
	for _, candidate := range candidates {
		// A candidate that is not a file contributes nothing; the
		// require fails only if every candidate misses.
		if !s.vfs.IsFile(candidate) {
			continue
		}
		found = true
		meta, _ := s.vfs.Metadata(candidate)
		if meta.AlreadyRequired {
			// Load-once: success with no new work.
			return false, true
		}

		s.PushContext(EvalContext{Filename: candidate})

		// The native loader runs before source text: a native loader may
		// define classes and modules that the path's own source (or
		// anything it requires) depends on. This ordering is a hard
		// invariant.
		if meta.HasNativeLoader {
			if file, ok := s.loaders[candidate]; ok {
				if err := file.Require(s); err != nil {
					s.vm.RaiseNamed("RuntimeError", err.Error())
					s.PopContext()
					return false, true
				}
				if s.vm.Err() != vm.Nil {
					s.PopContext()
					return false, true
				}
			}
		}
		if content, err := s.vfs.ReadFile(candidate); err == nil {
			s.rawEval(string(content), candidate)
			if s.vm.Err() != vm.Nil {
				s.PopContext()
				return false, true
			}
		}

		s.PopContext()

		meta.AlreadyRequired = true
		if err := s.vfs.SetMetadata(candidate, meta); err != nil {
			s.vm.RaiseNamed("RuntimeError", err.Error())
			return false, true
		}
		loaded = true
		log.Debugf("required %q at %s on %s", name, candidate, s.id)
	}
	return loaded, found
}
