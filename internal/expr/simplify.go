package expr

import "math"

// maxSimplifyPasses bounds the rewrite loop. Every rule is non-increasing
// in node count, so the loop normally settles after a few passes.
const maxSimplifyPasses = 64

// Simplify rewrites c to a fixpoint of local rules and renames the
// surviving parameters canonically. The result never has more nodes or
// more parameters than c, and simplifying it again changes nothing.
// c is left unmodified.
func Simplify(c *Candidate) *Candidate {
	e := c.Expr.Clone()
	for i := 0; i < maxSimplifyPasses; i++ {
		next := rewrite(e)
		if Equal(next, e) {
			break
		}
		e = next
	}
	return canonicalize(e, c.Params)
}

// canonicalize drops unused parameters and renames the rest to the
// canonical sequence in pre-order of first occurrence. e is modified.
func canonicalize(e Expr, ps Params) *Candidate {
	names := ParamNames(e)
	rename := make(map[rune]rune, len(names))
	out := make(Params, 0, len(names))
	for i, old := range names {
		name, ok := CanonicalName(i)
		if !ok {
			// More names in use than canonical ones; keep the rest as is.
			name = old
		}
		rename[old] = name
		v, _ := ps.Value(old)
		out = append(out, ParamValue{Name: name, Value: v})
	}
	walk(e, func(n Expr) {
		if p, ok := n.(*Param); ok {
			p.Name = rename[p.Name]
		}
	})
	return &Candidate{Expr: e, Params: out}
}

// rewrite applies one bottom-up pass of the rules.
func rewrite(e Expr) Expr {
	switch e := e.(type) {
	case *Unary:
		return rewriteUnary(e.Op, rewrite(e.Child))
	case *Binary:
		return rewriteBinary(e.Op, rewrite(e.Left), rewrite(e.Right))
	}
	return e
}

func rewriteUnary(op UnaryOp, child Expr) Expr {
	if c, ok := child.(*Const); ok {
		if v := op.apply(c.Val); isFinite(v) {
			return &Const{Val: v}
		}
	}
	if op == OpNeg {
		switch c := child.(type) {
		case *Unary:
			if c.Op == OpNeg {
				return c.Child
			}
		case *Param:
			// A negated free parameter is still a free parameter.
			return c
		}
	}
	return &Unary{Op: op, Child: child}
}

func rewriteBinary(op BinaryOp, l, r Expr) Expr {
	lc, lIsConst := l.(*Const)
	rc, rIsConst := r.(*Const)
	if lIsConst && rIsConst {
		if v := op.apply(lc.Val, rc.Val); isFinite(v) {
			return &Const{Val: v}
		}
	}
	switch op {
	case OpAdd, OpMul:
		return flatten(op, l, r)
	case OpSub:
		switch {
		case isConst(r, 0):
			return l
		case isConst(l, 0):
			return rewriteUnary(OpNeg, r)
		case absorbs(l, r):
			return pick(l, r)
		}
	case OpDiv:
		switch {
		case isConst(r, 1):
			return l
		case isConst(l, 0) && !isConst(r, 0):
			return &Const{Val: 0}
		case isParam(l) && (isParam(r) || rIsConst && rc.Val != 0):
			return l
		}
	case OpPow:
		switch {
		case isConst(r, 0):
			return &Const{Val: 1}
		case isConst(r, 1):
			return l
		}
	}
	return &Binary{Op: op, Left: l, Right: r}
}

// flatten rebuilds the maximal chain of op (add or mul) rooted at l op r.
// Constants are merged, a zero factor annihilates the product, and a free
// parameter absorbs every other constant and parameter of the chain.
// The rebuilt chain is left-deep with the merged leaf last.
func flatten(op BinaryOp, l, r Expr) Expr {
	var terms []Expr
	terms = collect(op, l, terms)
	terms = collect(op, r, terms)

	identity := 0.0
	if op == OpMul {
		identity = 1
	}
	acc := identity
	var consts []Expr
	var param Expr
	others := make([]Expr, 0, len(terms))
	for _, t := range terms {
		switch t := t.(type) {
		case *Const:
			acc = op.apply(acc, t.Val)
			consts = append(consts, t)
		case *Param:
			if param == nil {
				param = t
			}
		default:
			others = append(others, t)
		}
	}
	if op == OpMul && acc == 0 {
		return &Const{Val: 0}
	}
	switch {
	case param != nil:
		others = append(others, param)
	case !isFinite(acc):
		others = append(others, consts...)
	case acc != identity || len(others) == 0:
		others = append(others, &Const{Val: acc})
	}
	out := others[0]
	for _, t := range others[1:] {
		out = &Binary{Op: op, Left: out, Right: t}
	}
	return out
}

func collect(op BinaryOp, e Expr, terms []Expr) []Expr {
	if b, ok := e.(*Binary); ok && b.Op == op {
		terms = collect(op, b.Left, terms)
		return collect(op, b.Right, terms)
	}
	return append(terms, e)
}

// absorbs reports whether l - r is itself just a free parameter.
func absorbs(l, r Expr) bool {
	_, lc := l.(*Const)
	_, rc := r.(*Const)
	return isParam(l) && (isParam(r) || rc) || lc && isParam(r)
}

// pick returns whichever of l and r is a parameter, preferring l.
func pick(l, r Expr) Expr {
	if isParam(l) {
		return l
	}
	return r
}

func isParam(e Expr) bool {
	_, ok := e.(*Param)
	return ok
}

func isConst(e Expr, v float64) bool {
	c, ok := e.(*Const)
	return ok && c.Val == v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
