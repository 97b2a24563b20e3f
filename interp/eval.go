package interp

import "github.com/petal-lang/petal/vm"

// EvalContext names a unit of code under evaluation. The top of the
// context stack supplies the filename for error-location reporting; a
// context never persists past its evaluation.
type EvalContext struct {
	Filename string
	Line     int // starting line, 1 when zero
}

// PushContext makes ctx the current evaluation context.
func (s *State) PushContext(ctx EvalContext) {
	s.contexts = append(s.contexts, ctx)
}

// PopContext removes the current evaluation context.
func (s *State) PopContext() {
	if len(s.contexts) > 0 {
		s.contexts = s.contexts[:len(s.contexts)-1]
	}
}

// TopContext returns the current evaluation context, if any.
func (s *State) TopContext() (EvalContext, bool) {
	if len(s.contexts) == 0 {
		return EvalContext{}, false
	}
	return s.contexts[len(s.contexts)-1], true
}

// Eval evaluates code under the current context, or an anonymous "(eval)"
// context when none is pushed. A pending VM exception is extracted and
// returned as an ExecError carrying the VM's formatted report.
func (s *State) Eval(code string) (Value, error) {
	if err := s.live(); err != nil {
		return Value{}, err
	}
	if _, ok := s.TopContext(); ok {
		return s.evalCurrent(code)
	}
	return s.EvalWithContext(code, EvalContext{Filename: "(eval)"})
}

// EvalWithContext pushes ctx, evaluates code, and pops ctx on every exit
// path.
func (s *State) EvalWithContext(code string, ctx EvalContext) (Value, error) {
	if err := s.live(); err != nil {
		return Value{}, err
	}
	s.PushContext(ctx)
	defer s.PopContext()
	return s.evalCurrent(code)
}

func (s *State) evalCurrent(code string) (Value, error) {
	ctx, _ := s.TopContext()
	raw := s.vm.Eval(code, ctx.Filename)
	if msg, pending := s.LastError(); pending {
		log.Debugf("eval failed on %s: %s", s.id, msg)
		return Value{}, &ExecError{Output: msg}
	}
	return Value{state: s, raw: raw}, nil
}

// rawEval evaluates without extracting a pending exception; callers check
// the VM exception slot themselves.
func (s *State) rawEval(code, file string) vm.Value {
	return s.vm.Eval(code, file)
}
