// Package query compiles and runs path-expression queries against JSON
// documents.
//
// A query selects, derives, or mutates values in a JSON tree:
//
//	out, err := query.Run("@.items[@ > 2]", input)
//
// Pre-compiled queries for repeated use:
//
//	q, err := query.Compile("@.users[:10].name")
//	// q is safe for concurrent use
//	out, err := q.Run(input)
//
// A query with a mutation clause ("selector = mutator") returns a
// mutated copy of the input:
//
//	out, err := query.Run("@.price = @ * 1.2", input)
package query

import (
	"github.com/mibar/jsonquery/internal/pathexpr"
	"github.com/mibar/jsonquery/internal/value"
)

// Query is a compiled query. It is immutable and safe for concurrent
// use against distinct inputs.
type Query struct {
	src      string
	compiled *pathexpr.Compiled
}

// Error wraps an engine error with the query it came from. The
// underlying error renders as a single-line message and is reachable
// with errors.As / errors.Unwrap.
type Error struct {
	Query string
	Err   error
}

func (e *Error) Error() string {
	return "query " + e.Query + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Compile parses a query string into an executable form.
func Compile(src string) (*Query, error) {
	compiled, err := pathexpr.Compile(src)
	if err != nil {
		return nil, &Error{Query: src, Err: err}
	}
	return &Query{src: src, compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Query {
	q, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return q
}

// String returns the query source.
func (q *Query) String() string { return q.src }

// IsMutation reports whether the query carries a mutation clause.
func (q *Query) IsMutation() bool { return q.compiled.HasMutator() }

// Run evaluates the query against a JSON document and renders the result
// as compact JSON. Object key order follows the input document.
func (q *Query) Run(input []byte) ([]byte, error) {
	v, err := value.DecodeJSON(input)
	if err != nil {
		return nil, err
	}
	out, err := q.compiled.Apply(v)
	if err != nil {
		return nil, &Error{Query: q.src, Err: err}
	}
	return value.EncodeJSON(out)
}

// RunYAML is like Run but parses the input as YAML. The result is still
// rendered as JSON.
func (q *Query) RunYAML(input []byte) ([]byte, error) {
	v, err := value.DecodeYAML(input)
	if err != nil {
		return nil, err
	}
	out, err := q.compiled.Apply(v)
	if err != nil {
		return nil, &Error{Query: q.src, Err: err}
	}
	return value.EncodeJSON(out)
}

// Eval evaluates the query against a decoded JSON tree (map[string]any,
// []any, scalars) and returns the result in the same representation.
// Map key order is not meaningful on either side; use Run to preserve
// document order.
func (q *Query) Eval(tree any) (any, error) {
	v, err := value.FromAny(tree)
	if err != nil {
		return nil, err
	}
	out, err := q.compiled.Apply(v)
	if err != nil {
		return nil, &Error{Query: q.src, Err: err}
	}
	return value.ToAny(out), nil
}

// Run compiles src and evaluates it against a JSON document in one step.
func Run(src string, input []byte) ([]byte, error) {
	q, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return q.Run(input)
}

// MustRun is like Run but panics on error.
func MustRun(src string, input []byte) []byte {
	out, err := Run(src, input)
	if err != nil {
		panic(err)
	}
	return out
}
