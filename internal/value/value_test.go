package value

import (
	"regexp"
	"testing"
)

func TestObjectOrder(t *testing.T) {
	o := NewObject()
	o.Set("b", Int(1))
	o.Set("a", Int(2))
	o.Set("c", Int(3))

	got := o.Keys()
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestObjectSetKeepsPosition(t *testing.T) {
	o := NewObject()
	o.Set("a", Int(1))
	o.Set("b", Int(2))
	o.Set("a", Int(3))

	if o.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", o.Len())
	}
	if o.Keys()[0] != "a" {
		t.Errorf("overwritten key moved: keys = %v", o.Keys())
	}
	v, _ := o.Get("a")
	if !Equal(v, Int(3)) {
		t.Errorf("Get(a) = %v, want 3", v)
	}
}

func TestEqualNumeric(t *testing.T) {
	if !Equal(Int(1), Float(1.0)) {
		t.Error("1 should equal 1.0")
	}
	if Equal(Int(1), Float(1.5)) {
		t.Error("1 should not equal 1.5")
	}
	if Equal(Int(1), Str("1")) {
		t.Error("1 should not equal \"1\"")
	}
}

func TestEqualContainers(t *testing.T) {
	a := Array{Int(1), Str("x")}
	b := Array{Int(1), Str("x")}
	if !Equal(a, b) {
		t.Error("equal arrays compare unequal")
	}
	if Equal(a, Array{Int(1)}) {
		t.Error("arrays of different length compare equal")
	}

	o1 := NewObject()
	o1.Set("k", Int(1))
	o2 := NewObject()
	o2.Set("k", Float(1))
	if !Equal(o1, o2) {
		t.Error("equal objects compare unequal")
	}
}

func TestCloneIsDeep(t *testing.T) {
	inner := NewObject()
	inner.Set("x", Int(1))
	orig := Array{inner}

	cp := Clone(orig).(Array)
	cp[0].(*Object).Set("x", Int(99))

	v, _ := inner.Get("x")
	if !Equal(v, Int(1)) {
		t.Errorf("Clone shares the inner object: x = %v", v)
	}
}

func TestDeferredKind(t *testing.T) {
	d := &Deferred{Fn: func(in Value) (Value, error) { return in, nil }}
	if d.Kind() != KindUnknown {
		t.Errorf("zero-out deferred kind = %s, want unknown", d.Kind())
	}
	d2 := &Deferred{Out: KindArr, Fn: d.Fn}
	if d2.Kind() != KindArr {
		t.Errorf("deferred kind = %s, want array", d2.Kind())
	}
}

func TestResolve(t *testing.T) {
	v, err := Resolve(Identity(), Int(7))
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(v, Int(7)) {
		t.Errorf("identity resolved to %v, want 7", v)
	}

	v, err = Resolve(Str("s"), Int(7))
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(v, Str("s")) {
		t.Errorf("concrete value changed by Resolve: %v", v)
	}
}

func TestKindMasks(t *testing.T) {
	if KindInt&KindNum == 0 || KindFloat&KindNum == 0 {
		t.Error("int and float must be numeric")
	}
	if KindObj&KindIterable == 0 || KindArr&KindIterable == 0 {
		t.Error("object and array must be iterable")
	}
	if KindStr&KindIterable != 0 {
		t.Error("string must not be iterable")
	}
	if (Regex{Re: regexp.MustCompile("a")}).Kind()&KindStrOrRegex == 0 {
		t.Error("regex must match the string-or-regex mask")
	}
}

func TestFromAnyToAny(t *testing.T) {
	tree := map[string]any{"a": []any{1.0, 2.5, "x", true, nil}}
	v, err := FromAny(tree)
	if err != nil {
		t.Fatal(err)
	}
	obj, ok := v.(*Object)
	if !ok {
		t.Fatalf("FromAny returned %T, want *Object", v)
	}
	arr, _ := obj.Get("a")
	want := Array{Int(1), Float(2.5), Str("x"), Bool(true), Null{}}
	if !Equal(arr, want) {
		t.Errorf("FromAny(a) = %#v, want %#v", arr, want)
	}

	back := ToAny(v).(map[string]any)
	got := back["a"].([]any)
	if got[0] != int64(1) || got[1] != 2.5 || got[2] != "x" || got[3] != true || got[4] != nil {
		t.Errorf("ToAny round trip = %#v", got)
	}
}
