package pathexpr

import (
	"fmt"

	"github.com/mibar/jsonquery/internal/value"
)

const (
	// MaxQueryLength is the maximum byte length of a query string.
	MaxQueryLength = 10000

	// MaxParseDepth is the maximum expression nesting depth.
	MaxParseDepth = 200
)

// ParseError is returned for a malformed token sequence: unterminated
// brackets, unknown function names, wrong arity, or a function argument
// whose type is outside the declared mask.
type ParseError struct {
	Pos     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Message)
}

// IndexingError is returned for invalid indexer construction: mixed entry
// kinds in one bracket, recursive slicing, or a dot indexer applied to
// something other than a name, string, regex, or star.
type IndexingError struct {
	Message string
}

func (e *IndexingError) Error() string {
	return "indexing error: " + e.Message
}

// VectorizedArithmeticError is returned when a container/container
// operation has mismatched lengths or key sets, or when a boolean index
// does not line up with its operand.
type VectorizedArithmeticError struct {
	Message string
}

func (e *VectorizedArithmeticError) Error() string {
	return "vectorized arithmetic error: " + e.Message
}

// TypeError is returned when operand kinds are disallowed by operator
// type inference, such as adding a string to a number.
type TypeError struct {
	Message string
}

func (e *TypeError) Error() string {
	return "type error: " + e.Message
}

// MutationError is returned when a mutation targets positions that cannot
// be written back into the input.
type MutationError struct {
	Message string
}

func (e *MutationError) Error() string {
	return "invalid mutation: " + e.Message
}

// CastError is returned when a container was expected where a scalar was
// found, or vice versa.
type CastError struct {
	Wanted value.Kind
	Got    value.Kind
}

func (e *CastError) Error() string {
	return fmt.Sprintf("expected a value of kind %s, found %s", e.Wanted, e.Got)
}
