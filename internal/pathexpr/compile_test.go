package pathexpr

import (
	"testing"

	"github.com/mibar/jsonquery/internal/value"
)

// eval compiles src and applies it to the JSON document input. An empty
// input means null.
func eval(t *testing.T, src, input string) value.Value {
	t.Helper()
	q, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	in := value.Value(value.Null{})
	if input != "" {
		in, err = value.DecodeJSON([]byte(input))
		if err != nil {
			t.Fatalf("bad input %q: %v", input, err)
		}
	}
	out, err := q.Apply(in)
	if err != nil {
		t.Fatalf("Apply(%q, %s): %v", src, input, err)
	}
	return out
}

// evalJSON is eval rendered as compact JSON.
func evalJSON(t *testing.T, src, input string) string {
	t.Helper()
	out, err := value.EncodeJSON(eval(t, src, input))
	if err != nil {
		t.Fatalf("encode result of %q: %v", src, err)
	}
	return string(out)
}

// evalErr returns the compile or evaluation error for src, failing the
// test if there is none.
func evalErr(t *testing.T, src, input string) error {
	t.Helper()
	q, err := Compile(src)
	if err != nil {
		return err
	}
	in := value.Value(value.Null{})
	if input != "" {
		in, err = value.DecodeJSON([]byte(input))
		if err != nil {
			t.Fatalf("bad input %q: %v", input, err)
		}
	}
	_, err = q.Apply(in)
	if err == nil {
		t.Fatalf("Compile+Apply(%q, %s): expected an error", src, input)
	}
	return err
}

func TestScenarios(t *testing.T) {
	cases := []struct {
		input, query, want string
	}{
		{`{"a":[1,2,3]}`, `@.a[1]`, `2`},
		{`{"a":[1,2,3],"b":[10,20,30]}`, `@.a + @.b`, `[11,22,33]`},
		{`[1,2,3,4]`, `@[@ > 2]`, `[3,4]`},
		{`{"x":{"y":{"z":5}}}`, `@..z`, `[5]`},
		{`{"a":1,"b":2}`, `@{@.a + @.b, @.a * @.b}`, `[3,2]`},
		{`[1,2,3]`, `-@ ** 2`, `[-1,-4,-9]`},
	}
	for _, c := range cases {
		if got := evalJSON(t, c.query, c.input); got != c.want {
			t.Errorf("%s on %s = %s, want %s", c.query, c.input, got, c.want)
		}
	}
}

func TestSingleKeyUnwraps(t *testing.T) {
	// A single-name indexer unwraps to the value itself, not a
	// one-entry object.
	if got := evalJSON(t, `@["k"]`, `{"k":[5],"other":1}`); got != `[5]` {
		t.Errorf(`@["k"] = %s, want [5]`, got)
	}
	if got := evalJSON(t, `@.a[0]`, `{"a":[1]}`); got != `1` {
		t.Errorf(`@.a[0] = %s, want 1`, got)
	}
}

func TestMissingKeyYieldsEmpty(t *testing.T) {
	if got := evalJSON(t, `@.missing`, `{"a":1}`); got != `{}` {
		t.Errorf("@.missing = %s, want {}", got)
	}
	if got := evalJSON(t, `@[9]`, `[1,2]`); got != `[]` {
		t.Errorf("@[9] = %s, want []", got)
	}
}

func TestEmptySubresultsPruned(t *testing.T) {
	// y has no "a", so its empty subresult is dropped; x's scalar
	// subresult survives.
	got := evalJSON(t, `@.*.a`, `{"x":{"a":1},"y":{"b":2}}`)
	if got != `{"x":1}` {
		t.Errorf("@.*.a = %s, want {\"x\":1}", got)
	}
}

func TestShapePreservation(t *testing.T) {
	// Dict-shaped steps materialize objects.
	got := evalJSON(t, `@["a","b"][0]`, `{"a":[9],"b":[8]}`)
	if got != `{"a":9,"b":8}` {
		t.Errorf(`@["a","b"][0] = %s`, got)
	}

	// Array-shaped steps materialize arrays.
	got = evalJSON(t, `@[:2].x`, `[{"x":1},{"x":2},{"x":3}]`)
	if got != `[1,2]` {
		t.Errorf("@[:2].x = %s", got)
	}
}

func TestConstantQueries(t *testing.T) {
	// Expressions without the input sigil fold at compile time.
	if got := evalJSON(t, `1 + 2 * 3`, ``); got != `7` {
		t.Errorf("1 + 2 * 3 = %s", got)
	}
	if got := evalJSON(t, `"a" + "b"`, ``); got != `"ab"` {
		t.Errorf(`"a" + "b" = %s`, got)
	}
}

func TestParenthesizedAtomIsIndexable(t *testing.T) {
	got := evalJSON(t, `(@.a)[1]`, `{"a":[5,6]}`)
	if got != `6` {
		t.Errorf("(@.a)[1] = %s, want 6", got)
	}
}

func TestTrailingTokens(t *testing.T) {
	_, err := Compile(`@.a @`)
	if err == nil {
		t.Fatal("expected an error for trailing tokens")
	}
}

func TestMutationCompiles(t *testing.T) {
	q, err := Compile(`@.a = @ + 1`)
	if err != nil {
		t.Fatal(err)
	}
	if !q.HasMutator() {
		t.Error("mutation clause not detected")
	}

	q, err = Compile(`@.a`)
	if err != nil {
		t.Fatal(err)
	}
	if q.HasMutator() {
		t.Error("plain selector reported as mutation")
	}
}
