package interp

import "github.com/petal-lang/petal/vm"

// LastError extracts a string representation of the pending VM exception,
// if any. The string contains the exception inspection line followed by
// its backtrace, newline separated.
//
// The exception slot is cleared BEFORE the exception is inspected, so
// subsequent VM calls are not tainted by an error they did not generate.
// Inspection itself goes through the VM's funcall path, which reports
// failures via this same function; clearing after inspection would
// therefore recurse on any error raised while inspecting.
func (s *State) LastError() (string, bool) {
	if s.closed {
		return "", false
	}
	arena := s.ArenaSavepoint()
	defer arena.Restore()

	exc := s.vm.TakeErr()
	if exc == vm.Nil {
		return "", false
	}
	// TakeErr removed the exception from its GC root; re-protect it for
	// the duration of the inspection calls below.
	s.vm.Protect(exc)

	val := Value{state: s, raw: exc}
	inspection, err := val.Funcall("inspect")
	if err != nil {
		return "", false
	}
	backtrace, err := val.Funcall("backtrace")
	if err != nil {
		return "", false
	}
	if _, err := backtrace.Funcall("unshift", inspection); err != nil {
		return "", false
	}
	joined, err := backtrace.Funcall("join", s.StringValue("\n"))
	if err != nil {
		return "", false
	}
	out, cerr := s.ToString(joined)
	if cerr != nil {
		return "", false
	}
	return out, true
}
