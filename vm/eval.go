package vm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// errRaised signals that an exception is pending in the VM's exception
// slot; evaluation unwinds without producing a value.
var errRaised = errors.New("vm: exception raised")

type evalEnv struct {
	locals map[string]Value
	scopes []Value // enclosing module objects, innermost last
}

func (e *evalEnv) scope() Value {
	if len(e.scopes) == 0 {
		return Nil
	}
	return e.scopes[len(e.scopes)-1]
}

// Eval parses and evaluates src, attributing error locations to file. It
// returns the value of the last statement. Failures of any kind raise on
// the VM: callers must check the exception slot after every Eval.
func (m *VM) Eval(src, file string) Value {
	if m.closed {
		return Nil
	}
	if file == "" {
		file = "(eval)"
	}
	m.pushFrame(file)
	defer m.popFrame()

	toks, err := lex(src)
	if err != nil {
		return m.raiseSyntax(err)
	}
	prog, err := parse(toks)
	if err != nil {
		return m.raiseSyntax(err)
	}
	env := &evalEnv{locals: make(map[string]Value)}
	last := Nil
	for _, st := range prog {
		v, err := m.evalNode(st, env)
		if err != nil {
			return Nil
		}
		last = v
	}
	return last
}

func (m *VM) raiseSyntax(err error) Value {
	var se *syntaxError
	if errors.As(err, &se) {
		m.setLine(se.line)
	}
	m.RaiseNamed("SyntaxError", err.Error())
	return Nil
}

func (m *VM) evalNode(n node, env *evalEnv) (Value, error) {
	m.setLine(n.nodeLine())
	switch n := n.(type) {
	case *intLit:
		v, ok := TryFromFixnum(n.val)
		if !ok {
			m.RaiseNamed("ArgumentError", "integer literal out of range")
			return Nil, errRaised
		}
		return v, nil
	case *floatLit:
		return FromFloat64(n.val), nil
	case *strLit:
		return m.NewString([]byte(n.val)), nil
	case *boolLit:
		return FromBool(n.val), nil
	case *nilLit:
		return Nil, nil
	case *ivarRef:
		if v, ok := m.ivars[n.name]; ok {
			return v, nil
		}
		return Nil, nil
	case *ivarAsgn:
		v, err := m.evalNode(n.val, env)
		if err != nil {
			return Nil, err
		}
		m.ivars[n.name] = v
		return v, nil
	case *localRef:
		if v, ok := env.locals[n.name]; ok {
			return v, nil
		}
		// A bare identifier can be a zero-argument global function call.
		if _, ok := m.natives[n.name]; ok {
			return m.callNative(n.name, nil)
		}
		m.RaiseNamed("NameError", fmt.Sprintf("undefined local variable or method '%s'", n.name))
		return Nil, errRaised
	case *localAsgn:
		v, err := m.evalNode(n.val, env)
		if err != nil {
			return Nil, err
		}
		env.locals[n.name] = v
		return v, nil
	case *constAsgn:
		v, err := m.evalNode(n.val, env)
		if err != nil {
			return Nil, err
		}
		if err := m.ConstSet(env.scope(), n.name, v); err != nil {
			m.RaiseNamed("TypeError", err.Error())
			return Nil, errRaised
		}
		return v, nil
	case *constPath:
		return m.resolveConstPath(n, env)
	case *moduleDef:
		return m.evalModuleDef(n, env)
	case *binOp:
		return m.evalBinOp(n, env)
	case *methodCall:
		recv, err := m.evalNode(n.recv, env)
		if err != nil {
			return Nil, err
		}
		args := make([]Value, 0, len(n.args))
		for _, a := range n.args {
			v, err := m.evalNode(a, env)
			if err != nil {
				return Nil, err
			}
			args = append(args, v)
		}
		m.setLine(n.nodeLine())
		return m.call(recv, n.name, args)
	case *funcCall:
		args := make([]Value, 0, len(n.args))
		for _, a := range n.args {
			v, err := m.evalNode(a, env)
			if err != nil {
				return Nil, err
			}
			args = append(args, v)
		}
		m.setLine(n.nodeLine())
		return m.callNative(n.name, args)
	case *raiseStmt:
		return m.evalRaise(n, env)
	}
	m.RaiseNamed("SyntaxError", "unsupported construct")
	return Nil, errRaised
}

func (m *VM) resolveConstPath(n *constPath, env *evalEnv) (Value, error) {
	var v Value
	found := false
	// The first segment resolves against the enclosing module scopes,
	// innermost first, then the top level.
	for i := len(env.scopes) - 1; i >= 0 && !found; i-- {
		v, found = m.ConstGet(env.scopes[i], n.names[0])
	}
	if !found {
		v, found = m.ConstGet(Nil, n.names[0])
	}
	if !found {
		m.RaiseNamed("NameError", fmt.Sprintf("uninitialized constant %s", n.names[0]))
		return Nil, errRaised
	}
	for _, name := range n.names[1:] {
		next, ok := m.ConstGet(v, name)
		if !ok {
			m.RaiseNamed("NameError", fmt.Sprintf("uninitialized constant %s::%s", m.className(v), name))
			return Nil, errRaised
		}
		v = next
	}
	return v, nil
}

func (m *VM) evalModuleDef(n *moduleDef, env *evalEnv) (Value, error) {
	mod, err := m.DefineModule(n.name, env.scope())
	if err != nil {
		m.RaiseNamed("TypeError", err.Error())
		return Nil, errRaised
	}
	env.scopes = append(env.scopes, mod)
	defer func() {
		env.scopes = env.scopes[:len(env.scopes)-1]
	}()
	for _, st := range n.body {
		if _, err := m.evalNode(st, env); err != nil {
			return Nil, err
		}
	}
	return Nil, nil
}

func (m *VM) evalBinOp(n *binOp, env *evalEnv) (Value, error) {
	l, err := m.evalNode(n.left, env)
	if err != nil {
		return Nil, err
	}
	r, err := m.evalNode(n.right, env)
	if err != nil {
		return Nil, err
	}
	m.setLine(n.nodeLine())

	switch n.op {
	case "==":
		return FromBool(m.valueEqual(l, r)), nil
	case "!=":
		return FromBool(!m.valueEqual(l, r)), nil
	}

	switch {
	case l.IsFixnum() && r.IsFixnum():
		a, b := l.Fixnum(), r.Fixnum()
		switch n.op {
		case "+":
			if v, ok := TryFromFixnum(a + b); ok {
				return v, nil
			}
		case "-":
			if v, ok := TryFromFixnum(a - b); ok {
				return v, nil
			}
		case "*":
			if v, ok := TryFromFixnum(a * b); ok {
				return v, nil
			}
		case "<":
			return FromBool(a < b), nil
		case ">":
			return FromBool(a > b), nil
		}
		m.RaiseNamed("ArgumentError", "integer overflow")
		return Nil, errRaised
	case (l.IsFloat() || l.IsFixnum()) && (r.IsFloat() || r.IsFixnum()):
		a, b := numAsFloat(l), numAsFloat(r)
		switch n.op {
		case "+":
			return FromFloat64(a + b), nil
		case "-":
			return FromFloat64(a - b), nil
		case "*":
			return FromFloat64(a * b), nil
		case "<":
			return FromBool(a < b), nil
		case ">":
			return FromBool(a > b), nil
		}
	default:
		lb, lok := m.StringBytes(l)
		rb, rok := m.StringBytes(r)
		if lok && rok && n.op == "+" {
			joined := make([]byte, 0, len(lb)+len(rb))
			joined = append(joined, lb...)
			joined = append(joined, rb...)
			return m.NewString(joined), nil
		}
	}
	m.RaiseNamed("TypeError", fmt.Sprintf("%s can't be coerced into %s", m.KindName(r), m.KindName(l)))
	return Nil, errRaised
}

func numAsFloat(v Value) float64 {
	if v.IsFixnum() {
		return float64(v.Fixnum())
	}
	return v.Float64()
}

// valueEqual compares values; strings compare by content, everything else
// by identity/bits.
func (m *VM) valueEqual(l, r Value) bool {
	if l == r {
		return true
	}
	lb, lok := m.StringBytes(l)
	rb, rok := m.StringBytes(r)
	if lok && rok {
		return string(lb) == string(rb)
	}
	if (l.IsFixnum() || l.IsFloat()) && (r.IsFixnum() || r.IsFloat()) {
		return numAsFloat(l) == numAsFloat(r)
	}
	return false
}

func (m *VM) evalRaise(n *raiseStmt, env *evalEnv) (Value, error) {
	m.setLine(n.nodeLine())
	if n.arg == nil {
		m.RaiseNamed("RuntimeError", "unhandled exception")
		return Nil, errRaised
	}
	v, err := m.evalNode(n.arg, env)
	if err != nil {
		return Nil, err
	}
	m.setLine(n.nodeLine())
	if b, ok := m.StringBytes(v); ok {
		m.Raise(m.NewException(m.RuntimeErrorClass, string(b)))
		return Nil, errRaised
	}
	if m.IsClass(v) {
		m.Raise(m.NewException(v, m.className(v)))
		return Nil, errRaised
	}
	m.Raise(v)
	return Nil, errRaised
}

func (m *VM) callNative(name string, args []Value) (Value, error) {
	fn, ok := m.natives[name]
	if !ok {
		m.RaiseNamed("NoMethodError", fmt.Sprintf("undefined method '%s'", name))
		return Nil, errRaised
	}
	v := fn(m, args)
	if m.exc != Nil {
		return Nil, errRaised
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Builtin method dispatch
// ---------------------------------------------------------------------------

// Funcall invokes a builtin method on recv. It is the VM's foreign-call
// surface for hosts; errors leave the raising exception in the exception
// slot.
func (m *VM) Funcall(recv Value, name string, args ...Value) (Value, error) {
	if m.closed {
		return Nil, errors.New("vm: funcall on closed VM")
	}
	return m.call(recv, name, args)
}

func (m *VM) call(recv Value, name string, args []Value) (Value, error) {
	switch name {
	case "inspect":
		return m.NewString([]byte(m.inspect(recv))), nil
	case "to_s":
		return m.NewString([]byte(m.toS(recv))), nil
	}

	if o := m.object(recv); o != nil {
		switch o.kind {
		case kindException:
			switch name {
			case "message":
				return m.NewString([]byte(o.exc.message)), nil
			case "class":
				return o.exc.class, nil
			case "backtrace":
				lines := make([]Value, 0, len(o.exc.trace))
				for _, l := range o.exc.trace {
					lines = append(lines, m.NewString([]byte(l)))
				}
				return m.NewArray(lines), nil
			}
		case kindClass, kindModule:
			switch name {
			case "name":
				return m.NewString([]byte(o.mod.name)), nil
			case "new":
				if o.kind == kindClass && m.isSubclassOf(recv, m.ExceptionClass) {
					msg := o.mod.name
					if len(args) > 0 {
						msg = m.toS(args[0])
					}
					return m.NewException(recv, msg), nil
				}
			}
		case kindArray:
			switch name {
			case "length":
				return FromFixnum(int64(len(o.elems))), nil
			case "unshift":
				o.elems = append(append([]Value{}, args...), o.elems...)
				return recv, nil
			case "join":
				sep := ""
				if len(args) > 0 {
					sep = m.toS(args[0])
				}
				parts := make([]string, 0, len(o.elems))
				for _, e := range o.elems {
					parts = append(parts, m.toS(e))
				}
				return m.NewString([]byte(strings.Join(parts, sep))), nil
			}
		case kindString:
			if name == "length" {
				return FromFixnum(int64(len(o.bytes))), nil
			}
		}
	}

	m.RaiseNamed("NoMethodError", fmt.Sprintf("undefined method '%s' for %s", name, m.KindName(recv)))
	return Nil, errRaised
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

func (m *VM) inspect(v Value) string {
	switch {
	case v == Nil:
		return "nil"
	case v == True:
		return "true"
	case v == False:
		return "false"
	case v.IsFixnum():
		return strconv.FormatInt(v.Fixnum(), 10)
	case v.IsFloat():
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	}
	o := m.object(v)
	if o == nil {
		return "#<dead object>"
	}
	switch o.kind {
	case kindString:
		return strconv.Quote(string(o.bytes))
	case kindArray:
		parts := make([]string, 0, len(o.elems))
		for _, e := range o.elems {
			parts = append(parts, m.inspect(e))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case kindModule, kindClass:
		return o.mod.name
	case kindException:
		return m.inspectException(o)
	}
	return "#<unknown>"
}

func (m *VM) toS(v Value) string {
	if o := m.object(v); o != nil {
		switch o.kind {
		case kindString:
			return string(o.bytes)
		case kindException:
			return o.exc.message
		case kindModule, kindClass:
			return o.mod.name
		}
	}
	return m.inspect(v)
}

// Inspect renders a value the way the script-level inspect method does.
// It is exported for hosts that print results (REPLs).
func (m *VM) Inspect(v Value) string {
	if m.closed {
		return "#<closed vm>"
	}
	return m.inspect(v)
}
