package value

import "testing"

func TestYAMLDecode(t *testing.T) {
	in := []byte("zebra: 1\napple: 2.5\nflag: true\nname: hi\nnothing: null\n")
	v, err := DecodeYAML(in)
	if err != nil {
		t.Fatal(err)
	}

	out, err := EncodeJSON(v)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"zebra":1,"apple":2.5,"flag":true,"name":"hi","nothing":null}`
	if string(out) != want {
		t.Errorf("DecodeYAML = %s, want %s", out, want)
	}
}

func TestYAMLSequenceAndNesting(t *testing.T) {
	in := []byte("items:\n  - a\n  - 2\nmeta:\n  deep:\n    - true\n")
	v, err := DecodeYAML(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := EncodeJSON(v)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"items":["a",2],"meta":{"deep":[true]}}`
	if string(out) != want {
		t.Errorf("DecodeYAML = %s, want %s", out, want)
	}
}

func TestYAMLEmpty(t *testing.T) {
	v, err := DecodeYAML(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(Null); !ok {
		t.Errorf("empty YAML decoded as %T, want Null", v)
	}
}

func TestYAMLAnchors(t *testing.T) {
	in := []byte("base: &b\n  x: 1\nother: *b\n")
	v, err := DecodeYAML(in)
	if err != nil {
		t.Fatal(err)
	}
	obj := v.(*Object)
	other, _ := obj.Get("other")
	base, _ := obj.Get("base")
	if !Equal(other, base) {
		t.Errorf("alias not resolved: other = %v", other)
	}
}
