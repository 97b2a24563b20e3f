package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Lexer for the Petal source subset
// ---------------------------------------------------------------------------

type tokKind int

const (
	tokEOF tokKind = iota
	tokTerm        // statement terminator: newline or ';'
	tokInt
	tokFloat
	tokString
	tokIdent // lowercase identifier
	tokConst // capitalized identifier
	tokIvar  // @name
	tokOp    // + - * == != < > =
	tokScope // ::
	tokDot
	tokComma
	tokLParen
	tokRParen
	tokModule
	tokEnd
	tokRaise
	tokTrue
	tokFalse
	tokNil
)

type token struct {
	kind tokKind
	text string
	line int
}

type syntaxError struct {
	line int
	msg  string
}

func (e *syntaxError) Error() string {
	return e.msg
}

var keywords = map[string]tokKind{
	"module": tokModule,
	"end":    tokEnd,
	"raise":  tokRaise,
	"true":   tokTrue,
	"false":  tokFalse,
	"nil":    tokNil,
}

// lex tokenizes src. Statement terminators (newlines and semicolons) are
// preserved as tokTerm tokens; everything else is whitespace-insensitive.
func lex(src string) ([]token, error) {
	var toks []token
	line := 1
	i := 0
	n := len(src)
	emit := func(k tokKind, text string) {
		toks = append(toks, token{kind: k, text: text, line: line})
	}
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '\n':
			emit(tokTerm, "\n")
			line++
			i++
		case c == ';':
			emit(tokTerm, ";")
			i++
		case c == '\'' || c == '"':
			quote := c
			i++
			var b strings.Builder
			for i < n && src[i] != quote {
				if src[i] == '\\' && i+1 < n {
					i++
					switch src[i] {
					case 'n':
						b.WriteByte('\n')
					case 't':
						b.WriteByte('\t')
					case '\\', '\'', '"':
						b.WriteByte(src[i])
					default:
						b.WriteByte('\\')
						b.WriteByte(src[i])
					}
				} else {
					if src[i] == '\n' {
						line++
					}
					b.WriteByte(src[i])
				}
				i++
			}
			if i >= n {
				return nil, &syntaxError{line: line, msg: "unterminated string"}
			}
			i++
			emit(tokString, b.String())
		case c >= '0' && c <= '9':
			start := i
			isFloat := false
			for i < n && (src[i] >= '0' && src[i] <= '9') {
				i++
			}
			if i+1 < n && src[i] == '.' && src[i+1] >= '0' && src[i+1] <= '9' {
				isFloat = true
				i++
				for i < n && (src[i] >= '0' && src[i] <= '9') {
					i++
				}
			}
			if isFloat {
				emit(tokFloat, src[start:i])
			} else {
				emit(tokInt, src[start:i])
			}
		case c == '@':
			i++
			start := i
			for i < n && isIdentChar(src[i]) {
				i++
			}
			if i == start {
				return nil, &syntaxError{line: line, msg: "malformed instance variable name"}
			}
			emit(tokIvar, src[start:i])
		case isIdentStart(c):
			start := i
			for i < n && isIdentChar(src[i]) {
				i++
			}
			word := src[start:i]
			if k, ok := keywords[word]; ok {
				emit(k, word)
			} else if word[0] >= 'A' && word[0] <= 'Z' {
				emit(tokConst, word)
			} else {
				emit(tokIdent, word)
			}
		case c == ':':
			if i+1 < n && src[i+1] == ':' {
				emit(tokScope, "::")
				i += 2
			} else {
				return nil, &syntaxError{line: line, msg: "unexpected ':'"}
			}
		case c == '.':
			emit(tokDot, ".")
			i++
		case c == ',':
			emit(tokComma, ",")
			i++
		case c == '(':
			emit(tokLParen, "(")
			i++
		case c == ')':
			emit(tokRParen, ")")
			i++
		case c == '=':
			if i+1 < n && src[i+1] == '=' {
				emit(tokOp, "==")
				i += 2
			} else {
				emit(tokOp, "=")
				i++
			}
		case c == '!':
			if i+1 < n && src[i+1] == '=' {
				emit(tokOp, "!=")
				i += 2
			} else {
				return nil, &syntaxError{line: line, msg: "unexpected '!'"}
			}
		case c == '+' || c == '-' || c == '*' || c == '<' || c == '>':
			emit(tokOp, string(c))
			i++
		default:
			return nil, &syntaxError{line: line, msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	emit(tokEOF, "")
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '?' || c == '!'
}
