package query

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mibar/jsonquery/internal/pathexpr"
)

func TestRun(t *testing.T) {
	cases := []struct {
		query, input, want string
	}{
		{`@.a[1]`, `{"a":[1,2,3]}`, `2`},
		{`@.a + @.b`, `{"a":[1,2,3],"b":[10,20,30]}`, `[11,22,33]`},
		{`@[@ > 2]`, `[1,2,3,4]`, `[3,4]`},
		{`@..z`, `{"x":{"y":{"z":5}}}`, `[5]`},
		{`@{@.a + @.b, @.a * @.b}`, `{"a":1,"b":2}`, `[3,2]`},
		{`-@ ** 2`, `[1,2,3]`, `[-1,-4,-9]`},
		{`@.price = @ * 2`, `{"price":10,"name":"x"}`, `{"price":20,"name":"x"}`},
	}
	for _, c := range cases {
		out, err := Run(c.query, []byte(c.input))
		if err != nil {
			t.Errorf("Run(%q, %s): %v", c.query, c.input, err)
			continue
		}
		if string(out) != c.want {
			t.Errorf("Run(%q, %s) = %s, want %s", c.query, c.input, out, c.want)
		}
	}
}

func TestRunPreservesKeyOrder(t *testing.T) {
	out, err := Run(`@`, []byte(`{"z":1,"a":2}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"z":1,"a":2}` {
		t.Errorf("key order lost: %s", out)
	}
}

func TestEval(t *testing.T) {
	q, err := Compile(`@.users[@ > 2]`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := q.Eval(map[string]any{"users": []any{1.0, 3.0, 5.0}})
	if err != nil {
		t.Fatal(err)
	}
	want := []any{int64(3), int64(5)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Eval mismatch (-want +got):\n%s", diff)
	}
}

func TestEvalObjectResult(t *testing.T) {
	q := MustCompile(`@{"n": len(@), "first": @[0]}`)
	got, err := q.Eval([]any{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"n": int64(2), "first": "a"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Eval mismatch (-want +got):\n%s", diff)
	}
}

func TestRunYAML(t *testing.T) {
	in := []byte("users:\n  - name: ada\n  - name: alan\n")
	q := MustCompile(`@.users[*].name`)
	out, err := q.RunYAML(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `["ada","alan"]` {
		t.Errorf("RunYAML = %s", out)
	}
}

func TestCompileErrorWrapsQuery(t *testing.T) {
	_, err := Compile(`@[`)
	if err == nil {
		t.Fatal("expected a compile error")
	}
	var qe *Error
	if !errors.As(err, &qe) {
		t.Fatalf("error type = %T", err)
	}
	if qe.Query != `@[` {
		t.Errorf("Error.Query = %q", qe.Query)
	}
	var pe *pathexpr.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("underlying parse error not reachable: %v", err)
	}
}

func TestEvalErrorWrapsQuery(t *testing.T) {
	q := MustCompile(`@.a + @.b`)
	_, err := q.Run([]byte(`{"a":[1],"b":[1,2]}`))
	var ve *pathexpr.VectorizedArithmeticError
	if !errors.As(err, &ve) {
		t.Errorf("underlying vectorized error not reachable: %v", err)
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustCompile did not panic on a bad query")
		}
	}()
	MustCompile(`@[`)
}

func TestIsMutation(t *testing.T) {
	if MustCompile(`@.a`).IsMutation() {
		t.Error("plain query reported as mutation")
	}
	if !MustCompile(`@.a = 1`).IsMutation() {
		t.Error("mutation query not reported")
	}
}

func TestBadInputJSON(t *testing.T) {
	if _, err := Run(`@`, []byte(`{`)); err == nil {
		t.Error("expected an error for invalid input JSON")
	}
}

func TestQueryReuse(t *testing.T) {
	q := MustCompile(`sum(@)`)
	for _, c := range []struct{ in, want string }{
		{`[1,2]`, `3`},
		{`[10,20]`, `30`},
	} {
		out, err := q.Run([]byte(c.in))
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != c.want {
			t.Errorf("sum(@) on %s = %s, want %s", c.in, out, c.want)
		}
	}
}
