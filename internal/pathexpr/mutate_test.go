package pathexpr

import (
	"errors"
	"testing"

	"github.com/mibar/jsonquery/internal/value"
)

func TestMutateObjectKey(t *testing.T) {
	got := evalJSON(t, `@.a = @ + 1`, `{"a":1,"b":2}`)
	if got != `{"a":2,"b":2}` {
		t.Errorf("@.a = @ + 1 gives %s", got)
	}
}

func TestMutateArrayIndex(t *testing.T) {
	got := evalJSON(t, `@[0] = 10`, `[1,2,3]`)
	if got != `[10,2,3]` {
		t.Errorf("@[0] = 10 gives %s", got)
	}
	got = evalJSON(t, `@[-1] = 10`, `[1,2,3]`)
	if got != `[1,2,10]` {
		t.Errorf("@[-1] = 10 gives %s", got)
	}
}

func TestMutateBooleanSelection(t *testing.T) {
	got := evalJSON(t, `@[@ > 2] = 0`, `[1,2,3,4]`)
	if got != `[1,2,0,0]` {
		t.Errorf("@[@ > 2] = 0 gives %s", got)
	}
}

func TestMutateStarAndSlice(t *testing.T) {
	got := evalJSON(t, `@[*] = @ * 2`, `[1,2,3]`)
	if got != `[2,4,6]` {
		t.Errorf("@[*] = @ * 2 gives %s", got)
	}
	got = evalJSON(t, `@[1:] = 0`, `[1,2,3]`)
	if got != `[1,0,0]` {
		t.Errorf("@[1:] = 0 gives %s", got)
	}
}

func TestMutateNestedPath(t *testing.T) {
	got := evalJSON(t, `@.a.b = @ + 5`, `{"a":{"b":1},"c":2}`)
	if got != `{"a":{"b":6},"c":2}` {
		t.Errorf("@.a.b = @ + 5 gives %s", got)
	}
}

func TestMutateRoot(t *testing.T) {
	got := evalJSON(t, `@ = len(@)`, `[1,2,3]`)
	if got != `3` {
		t.Errorf("@ = len(@) gives %s", got)
	}
}

func TestMutatorSeesSelectedValue(t *testing.T) {
	// The mutator's current input is the selected sub-value, not the
	// document root.
	got := evalJSON(t, `@.words = s_upper(@)`, `{"words":"hi"}`)
	if got != `{"words":"HI"}` {
		t.Errorf("got %s", got)
	}
}

func TestMutateLeavesInputUntouched(t *testing.T) {
	q, err := Compile(`@.a = 99`)
	if err != nil {
		t.Fatal(err)
	}
	in, _ := value.DecodeJSON([]byte(`{"a":1}`))
	if _, err := q.Apply(in); err != nil {
		t.Fatal(err)
	}
	v, _ := in.(*value.Object).Get("a")
	if !value.Equal(v, value.Int(1)) {
		t.Errorf("input mutated in place: a = %v", v)
	}
}

func TestMutateMissingKeyIsNoop(t *testing.T) {
	got := evalJSON(t, `@.missing = 1`, `{"a":1}`)
	if got != `{"a":1}` {
		t.Errorf("mutating a missing key gives %s", got)
	}
}

func TestMutationSelectorErrors(t *testing.T) {
	var me *MutationError
	for _, q := range []string{
		`1 + 2 = 3`,
		`@ + 1 = 3`,
		`@..a = 1`,
		`@{@.a} = 1`,
	} {
		_, err := Compile(q)
		if !errors.As(err, &me) {
			t.Errorf("Compile(%q): got %v, want a mutation error", q, err)
		}
	}
}
