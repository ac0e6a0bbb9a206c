package expr

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// ParseError reports malformed expression text.
type ParseError struct {
	// Pos is the byte offset of the offending token.
	Pos int
	// Text is the offending token, empty at end of input.
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("parse error at offset %d: %s", e.Pos, e.Msg)
	}
	return fmt.Sprintf("parse error at offset %d near %q: %s", e.Pos, e.Text, e.Msg)
}

type tokenType int

const (
	tokEOF tokenType = iota
	tokNumber
	tokIdent
	tokOp // one of + - * / ^ ( )
)

type token struct {
	typ  tokenType
	text string
	pos  int
}

// lex splits input into tokens. Whitespace separates tokens and is
// otherwise ignored.
func lex(input string) ([]token, error) {
	var toks []token
	for i := 0; i < len(input); {
		r, w := utf8.DecodeRuneInString(input[i:])
		switch {
		case unicode.IsSpace(r):
			i += w
		case r >= '0' && r <= '9', r == '.':
			n := scanNumber(input[i:])
			toks = append(toks, token{tokNumber, input[i : i+n], i})
			i += n
		case unicode.IsLetter(r):
			start := i
			for i < len(input) {
				r, w := utf8.DecodeRuneInString(input[i:])
				if !unicode.IsLetter(r) {
					break
				}
				i += w
			}
			toks = append(toks, token{tokIdent, input[start:i], start})
		case r < utf8.RuneSelf && isOp(byte(r)):
			toks = append(toks, token{tokOp, input[i : i+1], i})
			i++
		default:
			return nil, &ParseError{Pos: i, Text: string(r), Msg: "unexpected character"}
		}
	}
	return append(toks, token{typ: tokEOF, pos: len(input)}), nil
}

func isOp(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '^', '(', ')':
		return true
	}
	return false
}

// scanNumber returns the length of the numeric literal at the start of s:
// digits, an optional fraction and an optional exponent.
func scanNumber(s string) int {
	i := 0
	digits := func() {
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	digits()
	if i < len(s) && s[i] == '.' {
		i++
		digits()
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && s[j] >= '0' && s[j] <= '9' {
			i = j
			digits()
		}
	}
	return i
}

// Parse parses text into an expression. The grammar is
//
//	expr  := term (('+' | '-') term)*
//	term  := unary (('*' | '/') unary)*
//	unary := '-' unary | power
//	power := atom ('^' unary)?
//	atom  := number | 'x' | param | func '(' expr ')' | '(' expr ')'
//
// so '^' is right associative and binds tighter than unary minus.
func Parse(text string) (Expr, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.typ != tokEOF {
		return nil, p.errorf(t, "unexpected token after expression")
	}
	return e, nil
}

// MustParse is like Parse but panics on error. It is meant for
// expressions written in source code.
func MustParse(text string) Expr {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.typ != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...interface{}) *ParseError {
	return &ParseError{Pos: t.pos, Text: t.text, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t.typ == tokOp && t.text == op
}

func (p *parser) expr() (Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		op := OpAdd
		if p.next().text == "-" {
			op = OpSub
		}
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) term() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") {
		op := OpMul
		if p.next().text == "/" {
			op = OpDiv
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) unary() (Expr, error) {
	if p.isOp("-") {
		p.next()
		child, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: OpNeg, Child: child}, nil
	}
	return p.power()
}

func (p *parser) power() (Expr, error) {
	base, err := p.atom()
	if err != nil {
		return nil, err
	}
	if !p.isOp("^") {
		return base, nil
	}
	p.next()
	exp, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: OpPow, Left: base, Right: exp}, nil
}

func (p *parser) atom() (Expr, error) {
	t := p.next()
	switch t.typ {
	case tokNumber:
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid number")
		}
		return &Const{Val: v}, nil
	case tokIdent:
		return p.ident(t)
	case tokOp:
		if t.text != "(" {
			return nil, p.errorf(t, "expected operand")
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, p.errorf(t, "unexpected end of input")
}

func (p *parser) ident(t token) (Expr, error) {
	if op, ok := funcNames[t.text]; ok {
		if err := p.expect("("); err != nil {
			return nil, err
		}
		child, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return &Unary{Op: op, Child: child}, nil
	}
	r, w := utf8.DecodeRuneInString(t.text)
	if w != len(t.text) {
		return nil, p.errorf(t, "unknown function")
	}
	if r == 'x' {
		return &Var{}, nil
	}
	if !IsParamName(r) {
		return nil, p.errorf(t, "invalid parameter name")
	}
	return &Param{Name: r}, nil
}

func (p *parser) expect(op string) error {
	t := p.next()
	if t.typ != tokOp || t.text != op {
		if t.typ == tokEOF {
			return p.errorf(t, "expected %q, got end of input", op)
		}
		return p.errorf(t, "expected %q", op)
	}
	return nil
}
