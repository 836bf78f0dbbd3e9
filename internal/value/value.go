// Package value defines the JSON value model shared by the query engine:
// tagged values with bit-flag kinds, an insertion-ordered Object, and the
// Deferred variant that stands for "a function of the current input".
//
// Values are immutable within one evaluation. Containers are never mutated
// in place by the engine; mutation queries operate on a deep copy (see
// [Clone]).
package value

import (
	"fmt"
	"iter"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Kind is a bit-flag type tag. Composite masks classify values for
// indexing, operator type inference, and argument validation.
type Kind uint16

const (
	KindNull Kind = 1 << iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindRegex
	KindSlice
	KindArr
	KindObj
	KindUnknown
)

const (
	KindNum        = KindInt | KindFloat
	KindIterable   = KindArr | KindObj
	KindStrOrRegex = KindStr | KindRegex
	KindIntOrSlice = KindInt | KindSlice
	KindScalar     = KindNull | KindBool | KindNum | KindStr
	KindAny        = KindScalar | KindRegex | KindSlice | KindIterable | KindUnknown
)

var kindNames = []struct {
	k    Kind
	name string
}{
	{KindNull, "null"},
	{KindBool, "bool"},
	{KindInt, "int"},
	{KindFloat, "float"},
	{KindStr, "string"},
	{KindRegex, "regex"},
	{KindSlice, "slice"},
	{KindArr, "array"},
	{KindObj, "object"},
	{KindUnknown, "unknown"},
}

func (k Kind) String() string {
	if k == KindAny {
		return "any"
	}
	var parts []string
	for _, kn := range kindNames {
		if k&kn.k != 0 {
			parts = append(parts, kn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Value is a tagged JSON value. The concrete types are Null, Bool, Int,
// Float, Str, Regex, Slice, Array, *Object, and *Deferred.
type Value interface {
	Kind() Kind
}

type Null struct{}

func (Null) Kind() Kind { return KindNull }

type Bool bool

func (Bool) Kind() Kind { return KindBool }

type Int int64

func (Int) Kind() Kind { return KindInt }

type Float float64

func (Float) Kind() Kind { return KindFloat }

type Str string

func (Str) Kind() Kind { return KindStr }

// Regex is a compiled regular expression literal.
type Regex struct {
	Re *regexp.Regexp
}

func (Regex) Kind() Kind { return KindRegex }

// Slice is a [start:stop:step] triple with Python slicing semantics.
// Nil fields take the Python defaults for the sign of Step.
type Slice struct {
	Start *int
	Stop  *int
	Step  *int
}

func (Slice) Kind() Kind { return KindSlice }

// Array is an ordered sequence of values.
type Array []Value

func (Array) Kind() Kind { return KindArr }

// Object is a string-keyed container with insertion-order iteration and
// key-unique lookup.
type Object struct {
	keys []string
	vals map[string]Value
}

func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

func (o *Object) Kind() Kind { return KindObj }

func (o *Object) Len() int { return len(o.keys) }

// Set inserts or overwrites a key. A key keeps its original position when
// overwritten.
func (o *Object) Set(k string, v Value) {
	if _, ok := o.vals[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.vals[k] = v
}

func (o *Object) Get(k string) (Value, bool) {
	v, ok := o.vals[k]
	return v, ok
}

func (o *Object) Has(k string) bool {
	_, ok := o.vals[k]
	return ok
}

// Keys returns the keys in insertion order. The slice is shared; callers
// must not modify it.
func (o *Object) Keys() []string { return o.keys }

// Items yields key/value pairs in insertion order.
func (o *Object) Items() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, k := range o.keys {
			if !yield(k, o.vals[k]) {
				return
			}
		}
	}
}

// Deferred stands for a function of the current input. Out is the declared
// output kind, possibly KindUnknown. Fn must be pure with respect to the
// evaluation: it may close over compiled operands but not over external
// mutable state.
type Deferred struct {
	Out Kind
	Fn  func(input Value) (Value, error)
}

// Kind reports the declared output kind, so deferred operands participate
// in static type inference.
func (d *Deferred) Kind() Kind {
	if d.Out == 0 {
		return KindUnknown
	}
	return d.Out
}

// Identity returns the deferred identity: the current-input sigil.
func Identity() *Deferred {
	return &Deferred{Out: KindUnknown, Fn: func(input Value) (Value, error) {
		return input, nil
	}}
}

// IsDeferred reports whether v is a deferred value.
func IsDeferred(v Value) bool {
	_, ok := v.(*Deferred)
	return ok
}

// Resolve evaluates v against input if it is deferred, and returns it
// unchanged otherwise.
func Resolve(v Value, input Value) (Value, error) {
	if d, ok := v.(*Deferred); ok {
		return d.Fn(input)
	}
	return v, nil
}

// Clone returns a deep copy of v. Scalars are shared; containers are
// copied recursively.
func Clone(v Value) Value {
	switch v := v.(type) {
	case Array:
		out := make(Array, len(v))
		for i, e := range v {
			out[i] = Clone(e)
		}
		return out
	case *Object:
		out := NewObject()
		for k, e := range v.Items() {
			out.Set(k, Clone(e))
		}
		return out
	default:
		return v
	}
}

// Equal reports deep equality. Int and Float compare numerically, so
// Int(1) equals Float(1.0).
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bb, ok := b.(Bool)
		return ok && a == bb
	case Int:
		switch bb := b.(type) {
		case Int:
			return a == bb
		case Float:
			return float64(a) == float64(bb)
		}
		return false
	case Float:
		switch bb := b.(type) {
		case Int:
			return float64(a) == float64(bb)
		case Float:
			return a == bb || (math.IsNaN(float64(a)) && math.IsNaN(float64(bb)))
		}
		return false
	case Str:
		bb, ok := b.(Str)
		return ok && a == bb
	case Array:
		bb, ok := b.(Array)
		if !ok || len(a) != len(bb) {
			return false
		}
		for i := range a {
			if !Equal(a[i], bb[i]) {
				return false
			}
		}
		return true
	case *Object:
		bb, ok := b.(*Object)
		if !ok || a.Len() != bb.Len() {
			return false
		}
		for k, av := range a.Items() {
			bv, ok := bb.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case Regex:
		bb, ok := b.(Regex)
		return ok && a.Re.String() == bb.Re.String()
	}
	return false
}

// FromAny converts a decoded-JSON tree (map[string]any, []any, scalars)
// into the value model. Map keys are sorted, since Go map order is not
// meaningful; use DecodeJSON to preserve document order.
func FromAny(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(x), nil
	case int64:
		return Int(x), nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return Int(int64(x)), nil
		}
		return Float(x), nil
	case string:
		return Str(x), nil
	case []any:
		out := make(Array, len(x))
		for i, e := range x {
			v, err := FromAny(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := NewObject()
		for _, k := range keys {
			v, err := FromAny(x[k])
			if err != nil {
				return nil, err
			}
			out.Set(k, v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot convert %T into a value", x)
}

// ToAny converts a value into plain Go types (map[string]any, []any,
// int64, float64, string, bool, nil). Object key order is lost.
func ToAny(v Value) any {
	switch v := v.(type) {
	case Null:
		return nil
	case Bool:
		return bool(v)
	case Int:
		return int64(v)
	case Float:
		return float64(v)
	case Str:
		return string(v)
	case Regex:
		return v.Re.String()
	case Array:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = ToAny(e)
		}
		return out
	case *Object:
		out := make(map[string]any, v.Len())
		for k, e := range v.Items() {
			out[k] = ToAny(e)
		}
		return out
	}
	return nil
}
