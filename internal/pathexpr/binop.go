package pathexpr

import (
	"fmt"
	"math"

	"github.com/mibar/jsonquery/internal/value"
)

// binop is a binary operator: a name, a precedence, and a callable body
// defined on scalars. Vectorization lifts the body over containers;
// deferred operands re-wrap the whole operation.
type binop struct {
	name string
	prec float64
	fn   func(a, b value.Value) (value.Value, error)
}

// effectivePrec is the precedence used while competing for operands.
// Exponentiation gets a fractional bump so it binds right-associatively.
func (op *binop) effectivePrec() float64 {
	if op.name == "**" || op.name == "negpow" {
		return op.prec + 0.1
	}
	return op.prec
}

var binops = map[string]*binop{
	"|":  {name: "|", prec: 0, fn: bitwiseFn("|")},
	"^":  {name: "^", prec: 1, fn: bitwiseFn("^")},
	"&":  {name: "&", prec: 2, fn: bitwiseFn("&")},
	"==": {name: "==", prec: 3, fn: equalFn(false)},
	"!=": {name: "!=", prec: 3, fn: equalFn(true)},
	"<":  {name: "<", prec: 3, fn: compareFn("<")},
	"<=": {name: "<=", prec: 3, fn: compareFn("<=")},
	">":  {name: ">", prec: 3, fn: compareFn(">")},
	">=": {name: ">=", prec: 3, fn: compareFn(">=")},
	"+":  {name: "+", prec: 4, fn: addFn},
	"-":  {name: "-", prec: 4, fn: arithFn("-")},
	"*":  {name: "*", prec: 5, fn: arithFn("*")},
	"/":  {name: "/", prec: 5, fn: arithFn("/")},
	"%":  {name: "%", prec: 5, fn: arithFn("%")},
	"//": {name: "//", prec: 5, fn: arithFn("//")},
	"**": {name: "**", prec: 6, fn: arithFn("**")},

	// negpow is the fusion of a pending unary minus with "**", so that
	// -x**y evaluates as -(x**y).
	"negpow": {name: "negpow", prec: 6, fn: arithFn("negpow")},
}

func isComparison(name string) bool {
	switch name {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func isBitwise(name string) bool {
	return name == "&" || name == "|" || name == "^"
}

// outType infers the result kind of op applied to operands of kinds a and
// b, or reports a type error when the combination is disallowed.
func outType(op *binop, a, b value.Kind) (value.Kind, error) {
	if a == value.KindUnknown || b == value.KindUnknown {
		return value.KindUnknown, nil
	}

	// Containers propagate their own tag; mixing object and array is an
	// error.
	if a&value.KindIterable != 0 || b&value.KindIterable != 0 {
		if (a == value.KindObj && b == value.KindArr) || (a == value.KindArr && b == value.KindObj) {
			return 0, &TypeError{Message: fmt.Sprintf("cannot apply %s to an object and an array", op.name)}
		}
		if a&value.KindIterable != 0 {
			return a, nil
		}
		return b, nil
	}

	if isComparison(op.name) {
		return value.KindBool, nil
	}

	if isBitwise(op.name) {
		if a == value.KindInt && b == value.KindInt {
			return value.KindInt, nil
		}
		if a == value.KindBool && b == value.KindBool {
			return value.KindBool, nil
		}
		return 0, &TypeError{Message: fmt.Sprintf("%s requires two ints or two bools, got %s and %s", op.name, a, b)}
	}

	if op.name == "+" && (a == value.KindStr || b == value.KindStr) {
		if a == value.KindStr && b == value.KindStr {
			return value.KindStr, nil
		}
		return 0, &TypeError{Message: fmt.Sprintf("cannot concatenate %s and %s", a, b)}
	}

	// Arithmetic.
	if a == value.KindBool && b == value.KindBool {
		return 0, &TypeError{Message: fmt.Sprintf("%s is not defined on two bools", op.name)}
	}
	numeric := value.KindNum | value.KindBool
	if a&numeric == 0 || b&numeric == 0 {
		return 0, &TypeError{Message: fmt.Sprintf("invalid operands for %s: %s and %s", op.name, a, b)}
	}
	switch op.name {
	case "//":
		return value.KindInt, nil
	case "/", "**", "negpow":
		return value.KindFloat, nil
	}
	if a == value.KindInt && b == value.KindInt {
		return value.KindInt, nil
	}
	return value.KindFloat, nil
}

// resolveBinop applies op to two compiled operands. Type inference runs
// first; a deferred operand turns the result into a deferred value that
// re-resolves both sides against the current input.
func resolveBinop(op *binop, a, b value.Value) (value.Value, error) {
	out, err := outType(op, a.Kind(), b.Kind())
	if err != nil {
		return nil, err
	}

	if value.IsDeferred(a) || value.IsDeferred(b) {
		return &value.Deferred{Out: out, Fn: func(input value.Value) (value.Value, error) {
			ra, err := value.Resolve(a, input)
			if err != nil {
				return nil, err
			}
			rb, err := value.Resolve(b, input)
			if err != nil {
				return nil, err
			}
			return vectorize(op, ra, rb)
		}}, nil
	}

	return vectorize(op, a, b)
}

// vectorize applies a scalar binop across containers: container/container
// element-wise (lengths and key sets must agree), container/scalar by
// mapping, scalar/scalar directly.
func vectorize(op *binop, a, b value.Value) (value.Value, error) {
	ao, aIsObj := a.(*value.Object)
	bo, bIsObj := b.(*value.Object)
	aa, aIsArr := a.(value.Array)
	ba, bIsArr := b.(value.Array)

	switch {
	case aIsObj && bIsObj:
		if ao.Len() != bo.Len() {
			return nil, &VectorizedArithmeticError{Message: fmt.Sprintf("object lengths differ: %d vs %d", ao.Len(), bo.Len())}
		}
		out := value.NewObject()
		for k, av := range ao.Items() {
			bv, ok := bo.Get(k)
			if !ok {
				return nil, &VectorizedArithmeticError{Message: fmt.Sprintf("key %q missing from right operand", k)}
			}
			r, err := vectorize(op, av, bv)
			if err != nil {
				return nil, err
			}
			out.Set(k, r)
		}
		return out, nil

	case aIsArr && bIsArr:
		if len(aa) != len(ba) {
			return nil, &VectorizedArithmeticError{Message: fmt.Sprintf("array lengths differ: %d vs %d", len(aa), len(ba))}
		}
		out := make(value.Array, len(aa))
		for i := range aa {
			r, err := vectorize(op, aa[i], ba[i])
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil

	case (aIsObj && bIsArr) || (aIsArr && bIsObj):
		return nil, &TypeError{Message: fmt.Sprintf("cannot apply %s to an object and an array", op.name)}

	case aIsObj:
		out := value.NewObject()
		for k, av := range ao.Items() {
			r, err := vectorize(op, av, b)
			if err != nil {
				return nil, err
			}
			out.Set(k, r)
		}
		return out, nil

	case aIsArr:
		out := make(value.Array, len(aa))
		for i := range aa {
			r, err := vectorize(op, aa[i], b)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil

	case bIsObj:
		out := value.NewObject()
		for k, bv := range bo.Items() {
			r, err := vectorize(op, a, bv)
			if err != nil {
				return nil, err
			}
			out.Set(k, r)
		}
		return out, nil

	case bIsArr:
		out := make(value.Array, len(ba))
		for i := range ba {
			r, err := vectorize(op, a, ba[i])
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}

	// Re-check scalar kinds: the compile-time inference may have seen
	// UNKNOWN where the runtime values are concrete.
	if _, err := outType(op, a.Kind(), b.Kind()); err != nil {
		return nil, err
	}
	return op.fn(a, b)
}

// binopNode is one (op, left, right) node of a precedence tree. Children
// are either *binopNode or value.Value.
type binopNode struct {
	op    *binop
	left  any
	right any
}

// binopBuilder maintains the running root and leaf of a binop tree while
// the parser pulls atoms and operators.
type binopBuilder struct {
	root     *binopNode
	leaf     *binopNode
	lastPrec float64
}

// push attaches the operand seen to the left of op. When the previous
// operator binds at least as tightly, the tree is rotated so op becomes
// the new root; otherwise op descends as the leaf's right child.
func (b *binopBuilder) push(left value.Value, op *binop) {
	eff := op.effectivePrec()
	switch {
	case b.root == nil:
		n := &binopNode{op: op, left: left}
		b.root, b.leaf = n, n
	case b.lastPrec >= eff:
		b.leaf.right = left
		n := &binopNode{op: op, left: b.root}
		b.root, b.leaf = n, n
	default:
		n := &binopNode{op: op, left: left}
		b.leaf.right = n
		b.leaf = n
	}
	b.lastPrec = op.prec
}

// finish installs the final operand and resolves the whole tree.
func (b *binopBuilder) finish(last value.Value) (value.Value, error) {
	if b.root == nil {
		return last, nil
	}
	b.leaf.right = last
	return resolveTree(b.root)
}

func resolveTree(n *binopNode) (value.Value, error) {
	left, err := resolveChild(n.left)
	if err != nil {
		return nil, err
	}
	right, err := resolveChild(n.right)
	if err != nil {
		return nil, err
	}
	return resolveBinop(n.op, left, right)
}

func resolveChild(c any) (value.Value, error) {
	switch c := c.(type) {
	case *binopNode:
		return resolveTree(c)
	case value.Value:
		return c, nil
	}
	return nil, &ParseError{Message: "dangling operator"}
}

// negate multiplies by -1, with the usual vectorization and deferral.
func negate(v value.Value) (value.Value, error) {
	return resolveBinop(binops["*"], v, value.Int(-1))
}

// Scalar operator bodies. Kind validity is checked by outType before
// these run; they still promote int/float/bool mixes themselves.

func asFloat(v value.Value) (float64, bool) {
	switch v := v.(type) {
	case value.Int:
		return float64(v), true
	case value.Float:
		return float64(v), true
	case value.Bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func bothInt(a, b value.Value) (int64, int64, bool) {
	ai, ok1 := a.(value.Int)
	bi, ok2 := b.(value.Int)
	return int64(ai), int64(bi), ok1 && ok2
}

func addFn(a, b value.Value) (value.Value, error) {
	if as, ok := a.(value.Str); ok {
		if bs, ok := b.(value.Str); ok {
			return as + bs, nil
		}
	}
	return arithFn("+")(a, b)
}

func arithFn(name string) func(a, b value.Value) (value.Value, error) {
	return func(a, b value.Value) (value.Value, error) {
		af, aok := asFloat(a)
		bf, bok := asFloat(b)
		if !aok || !bok {
			return nil, &TypeError{Message: fmt.Sprintf("invalid operands for %s: %s and %s", name, a.Kind(), b.Kind())}
		}
		ints := false
		if _, _, ok := bothInt(a, b); ok {
			ints = true
		}

		switch name {
		case "+":
			if ints {
				ai, bi, _ := bothInt(a, b)
				return value.Int(ai + bi), nil
			}
			return value.Float(af + bf), nil
		case "-":
			if ints {
				ai, bi, _ := bothInt(a, b)
				return value.Int(ai - bi), nil
			}
			return value.Float(af - bf), nil
		case "*":
			if ints {
				ai, bi, _ := bothInt(a, b)
				return value.Int(ai * bi), nil
			}
			return value.Float(af * bf), nil
		case "/":
			return value.Float(af / bf), nil
		case "%":
			if ints {
				ai, bi, _ := bothInt(a, b)
				if bi == 0 {
					return nil, &TypeError{Message: "modulo by zero"}
				}
				return value.Int(pymod(ai, bi)), nil
			}
			return value.Float(math.Mod(af, bf)), nil
		case "//":
			if bf == 0 {
				return nil, &TypeError{Message: "floor division by zero"}
			}
			return value.Int(int64(math.Floor(af / bf))), nil
		case "**":
			return value.Float(math.Pow(af, bf)), nil
		case "negpow":
			return value.Float(-math.Pow(af, bf)), nil
		}
		return nil, &TypeError{Message: "unknown operator " + name}
	}
}

// pymod implements Python-style modulo: the result takes the divisor's
// sign.
func pymod(a, b int64) int64 {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

func equalFn(negated bool) func(a, b value.Value) (value.Value, error) {
	return func(a, b value.Value) (value.Value, error) {
		eq := value.Equal(a, b)
		return value.Bool(eq != negated), nil
	}
}

func compareFn(name string) func(a, b value.Value) (value.Value, error) {
	return func(a, b value.Value) (value.Value, error) {
		var cmp int
		if as, ok := a.(value.Str); ok {
			bs, ok := b.(value.Str)
			if !ok {
				return nil, &TypeError{Message: fmt.Sprintf("cannot compare %s and %s", a.Kind(), b.Kind())}
			}
			switch {
			case as < bs:
				cmp = -1
			case as > bs:
				cmp = 1
			}
		} else {
			af, aok := asFloat(a)
			bf, bok := asFloat(b)
			if !aok || !bok {
				return nil, &TypeError{Message: fmt.Sprintf("cannot compare %s and %s", a.Kind(), b.Kind())}
			}
			switch {
			case af < bf:
				cmp = -1
			case af > bf:
				cmp = 1
			}
		}

		switch name {
		case "<":
			return value.Bool(cmp < 0), nil
		case "<=":
			return value.Bool(cmp <= 0), nil
		case ">":
			return value.Bool(cmp > 0), nil
		case ">=":
			return value.Bool(cmp >= 0), nil
		}
		return nil, &TypeError{Message: "unknown comparison " + name}
	}
}

func bitwiseFn(name string) func(a, b value.Value) (value.Value, error) {
	return func(a, b value.Value) (value.Value, error) {
		if ai, bi, ok := bothInt(a, b); ok {
			switch name {
			case "&":
				return value.Int(ai & bi), nil
			case "|":
				return value.Int(ai | bi), nil
			case "^":
				return value.Int(ai ^ bi), nil
			}
		}
		ab, ok1 := a.(value.Bool)
		bb, ok2 := b.(value.Bool)
		if ok1 && ok2 {
			switch name {
			case "&":
				return value.Bool(ab && bb), nil
			case "|":
				return value.Bool(ab || bb), nil
			case "^":
				return value.Bool(ab != bb), nil
			}
		}
		return nil, &TypeError{Message: fmt.Sprintf("%s requires two ints or two bools, got %s and %s", name, a.Kind(), b.Kind())}
	}
}
