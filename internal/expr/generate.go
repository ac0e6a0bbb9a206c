package expr

import "math/rand"

var (
	unaryOps  = []UnaryOp{OpNeg, OpExp, OpLn, OpSqrt, OpSin, OpCos, OpTan}
	binaryOps = []BinaryOp{OpAdd, OpSub, OpMul, OpDiv, OpPow}
)

// Generator builds random candidates. It draws from the random stream it
// is given and never reseeds it.
type Generator struct {
	rng      *rand.Rand
	paramMin float64
	paramMax float64

	// per-call state
	params Params
}

// NewGenerator returns a generator whose fresh parameters start uniformly
// in [paramMin, paramMax].
func NewGenerator(rng *rand.Rand, paramMin, paramMax float64) *Generator {
	return &Generator{
		rng:      rng,
		paramMin: paramMin,
		paramMax: paramMax,
	}
}

// Generate returns a random candidate built under the given complexity
// budget. Every operator node spends one unit of budget and a node with no
// budget left is a leaf, so the tree has at most 2*budget+1 nodes and at
// most min(budget+1, MaxParamNames) parameters.
func (g *Generator) Generate(budget int) *Candidate {
	g.params = nil
	e := g.node(budget)
	c := &Candidate{Expr: e, Params: g.params}
	g.params = nil
	return c
}

// Budget draws a complexity budget uniformly from [lo, hi].
func (g *Generator) Budget(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) node(budget int) Expr {
	if budget <= 0 || g.rng.Intn(budget+1) == 0 {
		return g.leaf()
	}
	rem := budget - 1
	if g.rng.Intn(3) == 0 {
		op := unaryOps[g.rng.Intn(len(unaryOps))]
		return &Unary{Op: op, Child: g.node(rem)}
	}
	op := binaryOps[g.rng.Intn(len(binaryOps))]
	left := g.rng.Intn(rem + 1)
	return &Binary{Op: op, Left: g.node(left), Right: g.node(rem - left)}
}

func (g *Generator) leaf() Expr {
	switch n := g.rng.Intn(5); {
	case n < 2:
		return &Var{}
	case n < 4:
		if p := g.freshParam(); p != nil {
			return p
		}
	}
	return &Const{Val: float64(1 + g.rng.Intn(5))}
}

// freshParam introduces a new parameter, or returns nil once the
// canonical names are exhausted.
func (g *Generator) freshParam() *Param {
	name, ok := CanonicalName(len(g.params))
	if !ok {
		return nil
	}
	v := g.paramMin + g.rng.Float64()*(g.paramMax-g.paramMin)
	g.params = append(g.params, ParamValue{Name: name, Value: v})
	return &Param{Name: name}
}
