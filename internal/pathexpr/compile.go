// Package pathexpr compiles and evaluates path expressions over JSON
// trees.
//
// A query is compiled in two stages:
//
//  1. Lex — the query string becomes a token stream: literal values,
//     binop descriptors, identifiers, and delimiters. A top-level "="
//     splits the stream into a selector and a mutator.
//  2. Parse — recursive descent over the tokens compiles directly to a
//     single value: constant sub-expressions fold at parse time, and
//     anything that references the current input (the "@" sigil) becomes
//     a deferred value, a thunk from input to result.
//
// Applying the compiled query to an input either resolves the deferred
// selector (projection and filter queries) or writes the mutator's
// results back into a copy of the input (mutation queries).
//
// # Concurrency
//
// A Compiled query is immutable and safe for concurrent use against
// distinct inputs. Non-deterministic functions draw from math/rand's
// shared source, which is itself safe for concurrent use.
package pathexpr

import (
	"github.com/mibar/jsonquery/internal/value"
)

// Compiled is a compiled query: a selector, and for mutation queries the
// mutator plus the selector's indexer steps for write-back.
type Compiled struct {
	selector value.Value
	mutator  value.Value
	mutSteps []indexerStep
	hasMut   bool
}

// Compile lexes and parses a query string.
func Compile(src string) (*Compiled, error) {
	sel, mut, err := lex(src)
	if err != nil {
		return nil, err
	}

	selVal, err := parseTokens(sel)
	if err != nil {
		return nil, err
	}

	q := &Compiled{selector: selVal}
	if mut != nil {
		mutVal, err := parseTokens(mut)
		if err != nil {
			return nil, err
		}
		steps, err := selectorSteps(sel)
		if err != nil {
			return nil, err
		}
		q.mutator = mutVal
		q.mutSteps = steps
		q.hasMut = true
	}
	return q, nil
}

func parseTokens(toks []token) (value.Value, error) {
	c := &cursor{toks: toks}
	v, err := parseExprOrScalarFunc(c)
	if err != nil {
		return nil, err
	}
	if t, ok := c.peek(); ok {
		return nil, &ParseError{Pos: t.pos, Message: "unexpected trailing tokens"}
	}
	return v, nil
}

// HasMutator reports whether the query carries a mutation clause.
func (q *Compiled) HasMutator() bool { return q.hasMut }

// Apply evaluates the query against input. Projection queries return the
// derived value; mutation queries return a mutated copy of the input.
// The input is never modified.
func (q *Compiled) Apply(input value.Value) (value.Value, error) {
	if q.hasMut {
		return q.mutate(input)
	}
	return value.Resolve(q.selector, input)
}
