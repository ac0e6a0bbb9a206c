// Package expr implements the expression trees searched by symfit: the node
// types and their evaluator, a parser and printer, the simplifier and the
// random generator.
package expr

import "math"

// Expr is a node of an expression tree in the single variable x.
// Trees are built top down and every node owns its children.
type Expr interface {
	// Eval evaluates the tree at x. Invalid operations follow IEEE-754
	// and yield NaN or an infinity; Eval never panics.
	Eval(x float64, p Params) float64
	// NodeCount returns the number of nodes in the tree.
	NodeCount() int
	// Depth returns the height of the tree; a leaf has depth 1.
	Depth() int
	// Clone returns a deep copy.
	Clone() Expr
	// String renders the tree in the syntax accepted by Parse.
	String() string
}

// UnaryOp identifies a unary operation.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpExp
	OpLn
	OpSqrt
	OpSin
	OpCos
	OpTan
)

// BinaryOp identifies a binary operation.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
)

// funcNames maps named functions to their op. Negation has no name.
var funcNames = map[string]UnaryOp{
	"exp":  OpExp,
	"ln":   OpLn,
	"sqrt": OpSqrt,
	"sin":  OpSin,
	"cos":  OpCos,
	"tan":  OpTan,
}

// Name returns the function name of op, or "-" for negation.
func (op UnaryOp) Name() string {
	switch op {
	case OpNeg:
		return "-"
	case OpExp:
		return "exp"
	case OpLn:
		return "ln"
	case OpSqrt:
		return "sqrt"
	case OpSin:
		return "sin"
	case OpCos:
		return "cos"
	case OpTan:
		return "tan"
	}
	panic("expr: unknown unary op")
}

// Symbol returns the infix symbol of op.
func (op BinaryOp) Symbol() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpPow:
		return "^"
	}
	panic("expr: unknown binary op")
}

func (op UnaryOp) apply(v float64) float64 {
	switch op {
	case OpNeg:
		return -v
	case OpExp:
		return math.Exp(v)
	case OpLn:
		return math.Log(v)
	case OpSqrt:
		return math.Sqrt(v)
	case OpSin:
		return math.Sin(v)
	case OpCos:
		return math.Cos(v)
	case OpTan:
		return math.Tan(v)
	}
	return math.NaN()
}

func (op BinaryOp) apply(l, r float64) float64 {
	switch op {
	case OpAdd:
		return l + r
	case OpSub:
		return l - r
	case OpMul:
		return l * r
	case OpDiv:
		return l / r
	case OpPow:
		return math.Pow(l, r)
	}
	return math.NaN()
}

// Const is a numeric literal.
type Const struct {
	Val float64
}

// Var is the independent variable x.
type Var struct{}

// Param is a free parameter, resolved by name against a Params set.
type Param struct {
	Name rune
}

// Unary applies Op to Child.
type Unary struct {
	Op    UnaryOp
	Child Expr
}

// Binary applies Op to Left and Right.
type Binary struct {
	Op          BinaryOp
	Left, Right Expr
}

func (c *Const) Eval(float64, Params) float64 { return c.Val }
func (c *Const) NodeCount() int               { return 1 }
func (c *Const) Depth() int                   { return 1 }
func (c *Const) Clone() Expr                  { return &Const{Val: c.Val} }

func (v *Var) Eval(x float64, _ Params) float64 { return x }
func (v *Var) NodeCount() int                   { return 1 }
func (v *Var) Depth() int                       { return 1 }
func (v *Var) Clone() Expr                      { return &Var{} }

func (p *Param) Eval(_ float64, ps Params) float64 {
	if v, ok := ps.Value(p.Name); ok {
		return v
	}
	return math.NaN()
}
func (p *Param) NodeCount() int { return 1 }
func (p *Param) Depth() int     { return 1 }
func (p *Param) Clone() Expr    { return &Param{Name: p.Name} }

func (u *Unary) Eval(x float64, p Params) float64 {
	return u.Op.apply(u.Child.Eval(x, p))
}
func (u *Unary) NodeCount() int { return 1 + u.Child.NodeCount() }
func (u *Unary) Depth() int     { return 1 + u.Child.Depth() }
func (u *Unary) Clone() Expr    { return &Unary{Op: u.Op, Child: u.Child.Clone()} }

func (b *Binary) Eval(x float64, p Params) float64 {
	return b.Op.apply(b.Left.Eval(x, p), b.Right.Eval(x, p))
}
func (b *Binary) NodeCount() int { return 1 + b.Left.NodeCount() + b.Right.NodeCount() }
func (b *Binary) Depth() int     { return 1 + max(b.Left.Depth(), b.Right.Depth()) }
func (b *Binary) Clone() Expr {
	return &Binary{Op: b.Op, Left: b.Left.Clone(), Right: b.Right.Clone()}
}

// Equal reports whether a and b are structurally identical. Constants
// compare by bit pattern so that NaN equals NaN.
func Equal(a, b Expr) bool {
	switch a := a.(type) {
	case *Const:
		b, ok := b.(*Const)
		return ok && math.Float64bits(a.Val) == math.Float64bits(b.Val)
	case *Var:
		_, ok := b.(*Var)
		return ok
	case *Param:
		b, ok := b.(*Param)
		return ok && a.Name == b.Name
	case *Unary:
		b, ok := b.(*Unary)
		return ok && a.Op == b.Op && Equal(a.Child, b.Child)
	case *Binary:
		b, ok := b.(*Binary)
		return ok && a.Op == b.Op && Equal(a.Left, b.Left) && Equal(a.Right, b.Right)
	}
	return false
}

// ParamNames returns the parameter names of e in pre-order of first
// occurrence.
func ParamNames(e Expr) []rune {
	var names []rune
	seen := make(map[rune]bool)
	walk(e, func(n Expr) {
		if p, ok := n.(*Param); ok && !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	})
	return names
}

// walk visits e in pre-order.
func walk(e Expr, fn func(Expr)) {
	fn(e)
	switch e := e.(type) {
	case *Unary:
		walk(e.Child, fn)
	case *Binary:
		walk(e.Left, fn)
		walk(e.Right, fn)
	}
}
