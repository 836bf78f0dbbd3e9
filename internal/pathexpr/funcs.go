package pathexpr

import (
	"fmt"
	"slices"

	"github.com/mibar/jsonquery/internal/value"
)

// argFunction describes one library function: its arity bounds, the
// accepted kind mask per positional argument (the last mask repeats for
// variadic tails), the declared return kind, and the two flags that drive
// the applier. Signatures are data; the bodies live in builtins.go.
type argFunction struct {
	name     string
	minArgs  int
	maxArgs  int // -1 means unbounded
	argTypes []value.Kind
	out      value.Kind

	// vectorized functions map over the first argument's container.
	vectorized bool

	// non-deterministic functions re-wrap as deferred so every evaluation
	// re-invokes them.
	deterministic bool

	fn func(args []value.Value) (value.Value, error)
}

// argMask returns the accepted kind mask for positional argument i.
func (f *argFunction) argMask(i int) value.Kind {
	if i >= len(f.argTypes) {
		return f.argTypes[len(f.argTypes)-1]
	}
	return f.argTypes[i]
}

var argFunctions = map[string]*argFunction{}

func register(f *argFunction) {
	argFunctions[f.name] = f
}

// applyArgFunction lifts a library call over deferred and/or iterable
// arguments. Missing optional arguments are padded with nulls first; a
// deferred argument (or a non-deterministic function) defers the whole
// call so it re-evaluates against each input.
func applyArgFunction(f *argFunction, args []value.Value) (value.Value, error) {
	if f.maxArgs >= 0 {
		for len(args) < f.maxArgs {
			args = append(args, value.Null{})
		}
	}

	deferred := false
	for _, a := range args {
		if value.IsDeferred(a) {
			deferred = true
			break
		}
	}

	out := f.out
	if f.vectorized && len(args) > 0 {
		if k := args[0].Kind(); k&value.KindIterable != 0 {
			out = k
		} else if k == value.KindUnknown {
			out = value.KindUnknown
		}
	}

	if deferred || !f.deterministic {
		captured := slices.Clone(args)
		return &value.Deferred{Out: out, Fn: func(input value.Value) (value.Value, error) {
			resolved := make([]value.Value, len(captured))
			for i, a := range captured {
				r, err := value.Resolve(a, input)
				if err != nil {
					return nil, err
				}
				resolved[i] = r
			}
			return callArgFunction(f, resolved)
		}}, nil
	}

	return callArgFunction(f, args)
}

// callArgFunction is the synchronous path: vectorized calls map over the
// first argument's container, preserving object keys; everything else is
// a single invocation.
func callArgFunction(f *argFunction, args []value.Value) (value.Value, error) {
	if !f.vectorized || len(args) == 0 {
		return f.fn(args)
	}

	switch a0 := args[0].(type) {
	case *value.Object:
		out := value.NewObject()
		for k, v := range a0.Items() {
			r, err := f.fn(replaceFirst(args, v))
			if err != nil {
				return nil, err
			}
			out.Set(k, r)
		}
		return out, nil
	case value.Array:
		out := make(value.Array, len(a0))
		for i, v := range a0 {
			r, err := f.fn(replaceFirst(args, v))
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return f.fn(args)
}

func replaceFirst(args []value.Value, v value.Value) []value.Value {
	out := slices.Clone(args)
	out[0] = v
	return out
}

// checkArgCount validates arity at parse time, naming the declared bounds.
func checkArgCount(f *argFunction, n, pos int) error {
	if n < f.minArgs {
		return &ParseError{Pos: pos, Message: fmt.Sprintf("%s takes at least %d argument(s), got %d", f.name, f.minArgs, n)}
	}
	if f.maxArgs >= 0 && n > f.maxArgs {
		return &ParseError{Pos: pos, Message: fmt.Sprintf("%s takes at most %d argument(s), got %d", f.name, f.maxArgs, n)}
	}
	return nil
}

// checkArgType validates one argument's kind against its declared mask.
// Unknown kinds pass; once a deferred argument resolves, the mask is not
// checked again and only the function body's own checks apply. Nulls pass
// in optional positions, and the first argument of a vectorized function
// may also be a container, which the applier maps over.
func checkArgType(f *argFunction, i int, arg value.Value, pos int) error {
	k := arg.Kind()
	if k == value.KindUnknown {
		return nil
	}
	if k == value.KindNull && i >= f.minArgs {
		return nil
	}
	if i == 0 && f.vectorized && k&value.KindIterable != 0 {
		return nil
	}
	mask := f.argMask(i)
	if k&mask == 0 {
		return &ParseError{Pos: pos, Message: fmt.Sprintf("argument %d of %s must be %s, got %s", i+1, f.name, mask, k)}
	}
	return nil
}
