package vm

import "fmt"

// ---------------------------------------------------------------------------
// Parser for the Petal source subset
// ---------------------------------------------------------------------------
//
// The grammar is the minimum an embedding boundary needs: literals, local
// and instance variables, assignment, module bodies with constant
// assignment, constant paths, binary arithmetic/comparison, method calls on
// builtin receivers, raise, and global function calls (with or without
// parentheses). Everything outside the subset is a SyntaxError.

type node interface {
	nodeLine() int
}

type baseNode struct {
	line int
}

func (b baseNode) nodeLine() int { return b.line }

type (
	intLit struct {
		baseNode
		val int64
	}
	floatLit struct {
		baseNode
		val float64
	}
	strLit struct {
		baseNode
		val string
	}
	boolLit struct {
		baseNode
		val bool
	}
	nilLit struct {
		baseNode
	}
	ivarRef struct {
		baseNode
		name string
	}
	ivarAsgn struct {
		baseNode
		name string
		val  node
	}
	localRef struct {
		baseNode
		name string
	}
	localAsgn struct {
		baseNode
		name string
		val  node
	}
	constAsgn struct {
		baseNode
		name string
		val  node
	}
	constPath struct {
		baseNode
		names []string
	}
	moduleDef struct {
		baseNode
		name string
		body []node
	}
	binOp struct {
		baseNode
		op          string
		left, right node
	}
	methodCall struct {
		baseNode
		recv node
		name string
		args []node
	}
	funcCall struct {
		baseNode
		name string
		args []node
	}
	raiseStmt struct {
		baseNode
		arg node // nil for a bare raise
	}
)

type parser struct {
	toks []token
	pos  int
}

func parse(toks []token) ([]node, error) {
	p := &parser{toks: toks}
	var prog []node
	p.skipTerms()
	for p.peek().kind != tokEOF {
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prog = append(prog, st)
		if err := p.endOfStmt(); err != nil {
			return nil, err
		}
		p.skipTerms()
	}
	return prog, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) skipTerms() {
	for p.peek().kind == tokTerm {
		p.pos++
	}
}

func (p *parser) errf(t token, format string, args ...interface{}) error {
	return &syntaxError{line: t.line, msg: fmt.Sprintf(format, args...)}
}

// endOfStmt requires a statement terminator, EOF, or a closing 'end'.
func (p *parser) endOfStmt() error {
	t := p.peek()
	if t.kind == tokTerm || t.kind == tokEOF || t.kind == tokEnd {
		return nil
	}
	return p.errf(t, "unexpected %q after expression", t.text)
}

func (p *parser) parseStmt() (node, error) {
	switch p.peek().kind {
	case tokModule:
		return p.parseModule()
	case tokRaise:
		t := p.next()
		st := &raiseStmt{baseNode: baseNode{line: t.line}}
		if k := p.peek().kind; k != tokTerm && k != tokEOF && k != tokEnd {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			st.arg = arg
		}
		return st, nil
	default:
		return p.parseExpr()
	}
}

func (p *parser) parseModule() (node, error) {
	t := p.next() // module
	name := p.next()
	if name.kind != tokConst {
		return nil, p.errf(name, "module name must be a constant")
	}
	def := &moduleDef{baseNode: baseNode{line: t.line}, name: name.text}
	p.skipTerms()
	for p.peek().kind != tokEnd {
		if p.peek().kind == tokEOF {
			return nil, p.errf(p.peek(), "unexpected end of input in module %s", def.name)
		}
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		def.body = append(def.body, st)
		if err := p.endOfStmt(); err != nil {
			return nil, err
		}
		p.skipTerms()
	}
	p.next() // end
	return def, nil
}

func (p *parser) parseExpr() (node, error) {
	return p.parseAssign()
}

func (p *parser) parseAssign() (node, error) {
	t := p.peek()
	if (t.kind == tokIdent || t.kind == tokIvar || t.kind == tokConst) &&
		p.peekAt(1).kind == tokOp && p.peekAt(1).text == "=" {
		p.next()
		p.next()
		val, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		base := baseNode{line: t.line}
		switch t.kind {
		case tokIvar:
			return &ivarAsgn{baseNode: base, name: t.text, val: val}, nil
		case tokConst:
			return &constAsgn{baseNode: base, name: t.text, val: val}, nil
		default:
			return &localAsgn{baseNode: base, name: t.text, val: val}, nil
		}
	}
	return p.parseEquality()
}

func (p *parser) parseEquality() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "==" && t.text != "!=" && t.text != "<" && t.text != ">") {
			return left, nil
		}
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &binOp{baseNode: baseNode{line: t.line}, op: t.text, left: left, right: right}
	}
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &binOp{baseNode: baseNode{line: t.line}, op: t.text, left: left, right: right}
	}
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || t.text != "*" {
			return left, nil
		}
		p.next()
		right, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		left = &binOp{baseNode: baseNode{line: t.line}, op: t.text, left: left, right: right}
	}
}

func (p *parser) parsePostfix() (node, error) {
	recv, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokDot {
		dot := p.next()
		name := p.next()
		if name.kind != tokIdent && name.kind != tokConst {
			return nil, p.errf(name, "expected method name after '.'")
		}
		call := &methodCall{baseNode: baseNode{line: dot.line}, recv: recv, name: name.text}
		if p.peek().kind == tokLParen {
			args, err := p.parseParenArgs()
			if err != nil {
				return nil, err
			}
			call.args = args
		}
		recv = call
	}
	return recv, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.peek()
	base := baseNode{line: t.line}
	if t.kind == tokOp && t.text == "-" {
		p.next()
		operand, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		switch lit := operand.(type) {
		case *intLit:
			lit.val = -lit.val
			return lit, nil
		case *floatLit:
			lit.val = -lit.val
			return lit, nil
		}
		return &binOp{baseNode: base, op: "-", left: &intLit{baseNode: base}, right: operand}, nil
	}
	switch t.kind {
	case tokInt:
		p.next()
		var v int64
		if _, err := fmt.Sscanf(t.text, "%d", &v); err != nil {
			return nil, p.errf(t, "malformed integer literal %q", t.text)
		}
		return &intLit{baseNode: base, val: v}, nil
	case tokFloat:
		p.next()
		var v float64
		if _, err := fmt.Sscanf(t.text, "%g", &v); err != nil {
			return nil, p.errf(t, "malformed float literal %q", t.text)
		}
		return &floatLit{baseNode: base, val: v}, nil
	case tokString:
		p.next()
		return &strLit{baseNode: base, val: t.text}, nil
	case tokTrue:
		p.next()
		return &boolLit{baseNode: base, val: true}, nil
	case tokFalse:
		p.next()
		return &boolLit{baseNode: base, val: false}, nil
	case tokNil:
		p.next()
		return &nilLit{baseNode: base}, nil
	case tokIvar:
		p.next()
		return &ivarRef{baseNode: base, name: t.text}, nil
	case tokLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, p.errf(p.peek(), "expected ')'")
		}
		p.next()
		return inner, nil
	case tokConst:
		p.next()
		names := []string{t.text}
		for p.peek().kind == tokScope {
			p.next()
			c := p.next()
			if c.kind != tokConst {
				return nil, p.errf(c, "expected constant after '::'")
			}
			names = append(names, c.text)
		}
		return &constPath{baseNode: base, names: names}, nil
	case tokIdent:
		p.next()
		if p.peek().kind == tokLParen {
			args, err := p.parseParenArgs()
			if err != nil {
				return nil, err
			}
			return &funcCall{baseNode: base, name: t.text, args: args}, nil
		}
		if startsCommandArg(p.peek().kind) {
			args, err := p.parseCommandArgs()
			if err != nil {
				return nil, err
			}
			return &funcCall{baseNode: base, name: t.text, args: args}, nil
		}
		return &localRef{baseNode: base, name: t.text}, nil
	default:
		return nil, p.errf(t, "unexpected %q", t.text)
	}
}

// startsCommandArg reports whether a token can begin the argument of a
// paren-less call like `require 'foo'`.
func startsCommandArg(k tokKind) bool {
	switch k {
	case tokString, tokInt, tokFloat, tokIvar, tokConst, tokTrue, tokFalse, tokNil:
		return true
	}
	return false
}

func (p *parser) parseParenArgs() ([]node, error) {
	p.next() // (
	var args []node
	p.skipTerms()
	if p.peek().kind == tokRParen {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipTerms()
		switch p.peek().kind {
		case tokComma:
			p.next()
			p.skipTerms()
		case tokRParen:
			p.next()
			return args, nil
		default:
			return nil, p.errf(p.peek(), "expected ',' or ')' in argument list")
		}
	}
}

func (p *parser) parseCommandArgs() ([]node, error) {
	var args []node
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek().kind != tokComma {
			return args, nil
		}
		p.next()
	}
}
