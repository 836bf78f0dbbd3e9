package pathexpr

import (
	"errors"
	"testing"

	"github.com/mibar/jsonquery/internal/value"
)

func TestParseErrors(t *testing.T) {
	cases := []string{
		``,
		`@[`,
		`@[]`,
		`@[1`,
		`@{`,
		`@{1`,
		`(1 + 2`,
		`1 +`,
		`+ 1`,
		`1 2`,
		`@.a[1:x]`,
		`@["a":1]`,
	}
	for _, c := range cases {
		_, err := Compile(c)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Compile(%q): got %v, want a parse error", c, err)
		}
	}
}

func TestFastPathSingleToken(t *testing.T) {
	q, err := Compile(`@`)
	if err != nil {
		t.Fatal(err)
	}
	in, _ := value.DecodeJSON([]byte(`{"a":1}`))
	out, err := q.Apply(in)
	if err != nil {
		t.Fatal(err)
	}
	if !value.Equal(out, in) {
		t.Errorf("@ = %v, want the input", out)
	}
}

func TestBareIdentifierIsString(t *testing.T) {
	// In value position an unquoted identifier is a string literal.
	if got := evalJSON(t, `@[abc]`, `{"abc":7}`); got != `7` {
		t.Errorf("@[abc] = %s, want 7", got)
	}
	if got := evalJSON(t, `hello`, ``); got != `"hello"` {
		t.Errorf("hello = %s", got)
	}
}

func TestUnaryMinusToggles(t *testing.T) {
	if got := evalJSON(t, `- -2`, ``); got != `2` {
		t.Errorf("- -2 = %s", got)
	}
}

func TestDeepNestingGuard(t *testing.T) {
	src := ``
	for i := 0; i < MaxParseDepth+10; i++ {
		src += `(`
	}
	src += `1`
	for i := 0; i < MaxParseDepth+10; i++ {
		src += `)`
	}
	_, err := Compile(src)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want a parse error for deep nesting", err)
	}
}

func TestQueryLengthGuard(t *testing.T) {
	src := make([]byte, MaxQueryLength+1)
	for i := range src {
		src[i] = ' '
	}
	_, err := Compile(string(src))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want a parse error for an oversized query", err)
	}
}

func TestScalarAtomNotIndexed(t *testing.T) {
	// A scalar literal takes no indexers; the bracket belongs to nothing
	// and must fail to parse.
	_, err := Compile(`1[0]`)
	if err == nil {
		t.Fatal("expected an error when indexing a scalar literal")
	}
}

func TestNestedIndexerExpressions(t *testing.T) {
	// Indexer entries are full expressions; inside a boolean index the
	// sigil is the container being indexed.
	got := evalJSON(t, `@.rows[@ > sum(@) / 4]`, `{"rows":[1,2,3,4]}`)
	if got != `[3,4]` {
		t.Errorf("filter by mean = %s", got)
	}
}

func TestChainedIndexers(t *testing.T) {
	input := `{"a":{"b":{"c":[10,20]}}}`
	if got := evalJSON(t, `@.a.b.c[-1]`, input); got != `20` {
		t.Errorf("@.a.b.c[-1] = %s", got)
	}
}
