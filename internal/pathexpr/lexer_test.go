package pathexpr

import (
	"errors"
	"testing"

	"github.com/mibar/jsonquery/internal/value"
)

func lexOne(t *testing.T, src string) []token {
	t.Helper()
	sel, mut, err := lex(src)
	if err != nil {
		t.Fatalf("lex(%q): %v", src, err)
	}
	if mut != nil {
		t.Fatalf("lex(%q): unexpected mutator tokens", src)
	}
	return sel
}

func TestLexKinds(t *testing.T) {
	toks := lexOne(t, `@.a[0] + "s" * g"x" == true`)

	wantKinds := []tokenKind{
		tokValue, tokDelim, tokIdent, tokDelim, tokValue, tokDelim,
		tokBinop, tokValue, tokBinop, tokValue, tokBinop, tokValue,
	}
	if len(toks) != len(wantKinds) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(wantKinds))
	}
	for i, k := range wantKinds {
		if toks[i].kind != k {
			t.Errorf("token %d kind = %d, want %d", i, toks[i].kind, k)
		}
	}

	if !value.IsDeferred(toks[0].val) {
		t.Error("the @ sigil must lex to a deferred identity")
	}
	if toks[7].val.Kind() != value.KindStr {
		t.Errorf("string literal kind = %s", toks[7].val.Kind())
	}
	if toks[9].val.Kind() != value.KindRegex {
		t.Errorf("regex literal kind = %s", toks[9].val.Kind())
	}
	if toks[10].op.name != "==" {
		t.Errorf("operator = %s, want ==", toks[10].op.name)
	}
}

func TestLexNumbers(t *testing.T) {
	toks := lexOne(t, `1 2.5 1e3 7`)
	kinds := []value.Kind{value.KindInt, value.KindFloat, value.KindFloat, value.KindInt}
	for i, k := range kinds {
		if toks[i].val.Kind() != k {
			t.Errorf("number %d kind = %s, want %s", i, toks[i].val.Kind(), k)
		}
	}
}

func TestLexKeywords(t *testing.T) {
	toks := lexOne(t, `true false null truthy`)
	if toks[0].val.Kind() != value.KindBool || toks[1].val.Kind() != value.KindBool {
		t.Error("true/false must lex as bools")
	}
	if toks[2].val.Kind() != value.KindNull {
		t.Error("null must lex as the null value")
	}
	if toks[3].kind != tokIdent || toks[3].ident != "truthy" {
		t.Error("an identifier with a keyword prefix must stay an identifier")
	}
}

func TestLexMutatorSplit(t *testing.T) {
	sel, mut, err := lex(`@.a = @ + 1`)
	if err != nil {
		t.Fatal(err)
	}
	if len(sel) != 3 {
		t.Errorf("selector tokens = %d, want 3", len(sel))
	}
	if len(mut) != 3 {
		t.Errorf("mutator tokens = %d, want 3", len(mut))
	}
}

func TestLexEqualityIsNotASplit(t *testing.T) {
	sel, mut, err := lex(`@.a == 1`)
	if err != nil {
		t.Fatal(err)
	}
	if mut != nil {
		t.Error("== must not split the query")
	}
	if sel[3].kind != tokBinop || sel[3].op.name != "==" {
		t.Errorf("token 3 = %+v, want the == binop", sel[3])
	}
}

func TestLexErrors(t *testing.T) {
	cases := []string{
		`"unclosed`,
		`"bad \q escape"`,
		`g"["`,
		`@ ~ 1`,
		`@[0] = 1 = 2`,
		`@[x = 1]`,
		`!`,
	}
	for _, c := range cases {
		_, _, err := lex(c)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("lex(%q): got %v, want a parse error", c, err)
		}
	}
}

func TestLexMissingMutator(t *testing.T) {
	_, _, err := lex(`@.a =`)
	if err == nil {
		t.Fatal("expected an error for a missing mutator expression")
	}
}

func TestLexRegexPrefixIdent(t *testing.T) {
	// An identifier starting with g is not a regex literal.
	toks := lexOne(t, `group`)
	if toks[0].kind != tokIdent || toks[0].ident != "group" {
		t.Errorf("got %+v, want the identifier group", toks[0])
	}
}
