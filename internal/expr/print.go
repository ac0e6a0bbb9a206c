package expr

import (
	"math"
	"strconv"
	"strings"
)

// Binding strength of each syntactic form, loosest first.
const (
	precAdd = iota + 1
	precMul
	precNeg
	precPow
	precAtom
)

func (c *Const) String() string  { return render(c, nil) }
func (v *Var) String() string    { return "x" }
func (p *Param) String() string  { return string(p.Name) }
func (u *Unary) String() string  { return render(u, nil) }
func (b *Binary) String() string { return render(b, nil) }

// PlotString renders e with every parameter replaced by its value in ps.
// Unbound parameters keep their names.
func PlotString(e Expr, ps Params) string {
	return render(e, ps)
}

func render(e Expr, subst Params) string {
	var sb strings.Builder
	printer{sb: &sb, subst: subst}.print(e, 0)
	return sb.String()
}

type printer struct {
	sb *strings.Builder
	// subst holds the values printed in place of parameter names.
	subst Params
}

func (p printer) print(e Expr, minPrec int) {
	if p.prec(e) < minPrec {
		p.sb.WriteByte('(')
		defer p.sb.WriteByte(')')
	}
	switch e := e.(type) {
	case *Const:
		p.sb.WriteString(formatConst(e.Val))
	case *Var:
		p.sb.WriteByte('x')
	case *Param:
		if v, ok := p.subst.Value(e.Name); ok {
			p.sb.WriteString(formatConst(v))
			return
		}
		p.sb.WriteRune(e.Name)
	case *Unary:
		if e.Op == OpNeg {
			p.sb.WriteByte('-')
			p.print(e.Child, precNeg)
			return
		}
		p.sb.WriteString(e.Op.Name())
		p.sb.WriteByte('(')
		p.print(e.Child, 0)
		p.sb.WriteByte(')')
	case *Binary:
		switch e.Op {
		case OpAdd, OpSub:
			p.print(e.Left, precAdd)
			p.sb.WriteString(" " + e.Op.Symbol() + " ")
			p.print(e.Right, precMul)
		case OpMul, OpDiv:
			p.print(e.Left, precMul)
			p.sb.WriteString(" " + e.Op.Symbol() + " ")
			p.print(e.Right, precNeg)
		case OpPow:
			p.print(e.Left, precAtom)
			p.sb.WriteByte('^')
			p.print(e.Right, precNeg)
		}
	}
}

func (p printer) prec(e Expr) int {
	switch e := e.(type) {
	case *Const:
		return constPrec(e.Val)
	case *Param:
		if v, ok := p.subst.Value(e.Name); ok {
			return constPrec(v)
		}
		return precAtom
	case *Unary:
		if e.Op == OpNeg {
			return precNeg
		}
		return precAtom
	case *Binary:
		switch e.Op {
		case OpAdd, OpSub:
			return precAdd
		case OpMul, OpDiv:
			return precMul
		case OpPow:
			return precPow
		}
	}
	return precAtom
}

// constPrec reports how tightly a rendered constant binds. Negative and
// non-finite values render as expressions rather than literals.
func constPrec(v float64) int {
	switch {
	case math.IsNaN(v), math.IsInf(v, 0):
		return precMul
	case math.Signbit(v):
		return precNeg
	}
	return precAtom
}

// formatConst renders v so that Parse reads back the same value.
func formatConst(v float64) string {
	switch {
	case math.IsNaN(v):
		return "0 / 0"
	case math.IsInf(v, 1):
		return "1 / 0"
	case math.IsInf(v, -1):
		return "-1 / 0"
	}
	return formatFloat(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
