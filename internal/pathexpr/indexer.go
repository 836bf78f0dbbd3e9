package pathexpr

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/mibar/jsonquery/internal/value"
)

// element is one item produced by an indexer: a (key, value) pair for
// object-shaped results, or a bare value (with its source position when
// it came from an array) for array-shaped results.
type element struct {
	key    string
	hasKey bool
	idx    int
	val    value.Value
}

// elemSeq is a lazy sequence of elements. Errors detected mid-iteration
// travel as the second value; consumers stop at the first error.
type elemSeq = iter.Seq2[element, error]

// indexer slices one JSON container into a lazy sequence of elements.
type indexer interface {
	eval(v value.Value) (elemSeq, error)
}

// indexerStep pairs an indexer with its shape-classification flags.
type indexerStep struct {
	idx indexer

	// oneOption marks indexers known to select at most one element, whose
	// result is unwrapped to the element itself.
	oneOption    bool
	isProjection bool
	isDict       bool
	recursive    bool
}

func emptySeq() elemSeq {
	return func(yield func(element, error) bool) {}
}

// nameList selects keys from an object: string entries by lookup, regex
// entries by scanning the object's insertion order. With recursive set,
// the search descends depth-first through nested containers and emits
// matched nodes as bare values.
type nameList struct {
	entries   []value.Value // value.Str or value.Regex
	recursive bool
}

func (nl nameList) eval(v value.Value) (elemSeq, error) {
	if nl.recursive {
		return nl.evalRecursive(v), nil
	}

	obj, ok := v.(*value.Object)
	if !ok {
		return nil, &CastError{Wanted: value.KindObj, Got: v.Kind()}
	}

	return func(yield func(element, error) bool) {
		for _, e := range nl.entries {
			switch e := e.(type) {
			case value.Str:
				if val, ok := obj.Get(string(e)); ok {
					if !yield(element{key: string(e), hasKey: true, val: val}, nil) {
						return
					}
				}
			case value.Regex:
				for k, val := range obj.Items() {
					if e.Re.MatchString(k) {
						if !yield(element{key: k, hasKey: true, val: val}, nil) {
							return
						}
					}
				}
			}
		}
	}, nil
}

// evalRecursive walks the tree once per list entry, in document order. A
// visited-path set suppresses duplicates when several entries (or a regex
// and a literal) match the same node. Matched nodes are emitted and not
// descended into; arrays are traversed transparently.
func (nl nameList) evalRecursive(v value.Value) elemSeq {
	return func(yield func(element, error) bool) {
		visited := make(map[string]struct{})
		for _, e := range nl.entries {
			if !recursiveSearch(v, e, nil, visited, yield) {
				return
			}
		}
	}
}

func recursiveSearch(v, entry value.Value, path []string, visited map[string]struct{}, yield func(element, error) bool) bool {
	switch v := v.(type) {
	case *value.Object:
		for k, val := range v.Items() {
			if nameMatches(entry, k) {
				p := strings.Join(append(path, k), ",")
				if _, seen := visited[p]; seen {
					continue
				}
				visited[p] = struct{}{}
				if !yield(element{val: val}, nil) {
					return false
				}
				continue
			}
			if !recursiveSearch(val, entry, append(path, k), visited, yield) {
				return false
			}
		}
	case value.Array:
		for i, val := range v {
			if !recursiveSearch(val, entry, append(path, strconv.Itoa(i)), visited, yield) {
				return false
			}
		}
	}
	return true
}

func nameMatches(entry value.Value, key string) bool {
	switch e := entry.(type) {
	case value.Str:
		return string(e) == key
	case value.Regex:
		return e.Re.MatchString(key)
	}
	return false
}

// sliceList selects positions from an array: integer entries with
// Python-style negative indexing (out-of-range entries are skipped), and
// slice entries with Python clamping rules, including negative steps.
type sliceList struct {
	entries []value.Value // value.Int or value.Slice
}

func (sl sliceList) eval(v value.Value) (elemSeq, error) {
	arr, ok := v.(value.Array)
	if !ok {
		return nil, &CastError{Wanted: value.KindArr, Got: v.Kind()}
	}

	return func(yield func(element, error) bool) {
		n := len(arr)
		for _, e := range sl.entries {
			switch e := e.(type) {
			case value.Int:
				i := int(e)
				if i < 0 {
					i += n
				}
				if i < 0 || i >= n {
					continue
				}
				if !yield(element{idx: i, val: arr[i]}, nil) {
					return
				}
			case value.Slice:
				start, stop, step := sliceBounds(e, n)
				if step > 0 {
					for i := start; i < stop; i += step {
						if !yield(element{idx: i, val: arr[i]}, nil) {
							return
						}
					}
				} else {
					for i := start; i > stop; i += step {
						if !yield(element{idx: i, val: arr[i]}, nil) {
							return
						}
					}
				}
			}
		}
	}, nil
}

// sliceBounds resolves defaults, negative indices, and clamping for a
// slice triple against an array of length n, per Python slicing.
func sliceBounds(s value.Slice, n int) (start, stop, step int) {
	step = 1
	if s.Step != nil && *s.Step != 0 {
		step = *s.Step
	}

	if step > 0 {
		start = 0
		if s.Start != nil {
			start = clamp(normalize(*s.Start, n), 0, n)
		}
		stop = n
		if s.Stop != nil {
			stop = clamp(normalize(*s.Stop, n), 0, n)
		}
		return start, stop, step
	}

	start = n - 1
	if s.Start != nil {
		start = clamp(normalize(*s.Start, n), -1, n-1)
	}
	stop = -1
	if s.Stop != nil {
		stop = clamp(normalize(*s.Stop, n), -1, n-1)
	}
	return start, stop, step
}

// normalize converts a potentially negative index to its absolute form.
func normalize(idx, n int) int {
	if idx < 0 {
		return idx + n
	}
	return idx
}

// clamp restricts val to [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// starIndexer selects all children. With recursive set, it emits every
// scalar leaf in document order instead; interior containers are
// traversed but not emitted.
type starIndexer struct {
	recursive bool
}

func (s starIndexer) eval(v value.Value) (elemSeq, error) {
	if s.recursive {
		if v.Kind()&value.KindIterable == 0 {
			return nil, &CastError{Wanted: value.KindIterable, Got: v.Kind()}
		}
		return func(yield func(element, error) bool) {
			leafWalk(v, yield)
		}, nil
	}

	switch v := v.(type) {
	case *value.Object:
		return func(yield func(element, error) bool) {
			for k, val := range v.Items() {
				if !yield(element{key: k, hasKey: true, val: val}, nil) {
					return
				}
			}
		}, nil
	case value.Array:
		return func(yield func(element, error) bool) {
			for i, val := range v {
				if !yield(element{idx: i, val: val}, nil) {
					return
				}
			}
		}, nil
	}
	return nil, &CastError{Wanted: value.KindIterable, Got: v.Kind()}
}

func leafWalk(v value.Value, yield func(element, error) bool) bool {
	switch v := v.(type) {
	case *value.Object:
		for _, val := range v.Items() {
			if !leafWalk(val, yield) {
				return false
			}
		}
	case value.Array:
		for _, val := range v {
			if !leafWalk(val, yield) {
				return false
			}
		}
	default:
		return yield(element{val: v}, nil)
	}
	return true
}

// boolIndexer decides inclusion per element. A scalar bool keeps or drops
// the whole container; a container of bools must match the operand's
// shape exactly.
type boolIndexer struct {
	cond value.Value
}

func (b boolIndexer) eval(v value.Value) (elemSeq, error) {
	cond, err := value.Resolve(b.cond, v)
	if err != nil {
		return nil, err
	}

	switch cond := cond.(type) {
	case value.Bool:
		if !bool(cond) {
			return emptySeq(), nil
		}
		return starIndexer{}.eval(v)

	case *value.Object:
		obj, ok := v.(*value.Object)
		if !ok {
			return nil, &CastError{Wanted: value.KindObj, Got: v.Kind()}
		}
		if obj.Len() != cond.Len() {
			return nil, &VectorizedArithmeticError{Message: fmt.Sprintf("boolean index length %d does not match object length %d", cond.Len(), obj.Len())}
		}
		for k := range cond.Items() {
			if !obj.Has(k) {
				return nil, &VectorizedArithmeticError{Message: fmt.Sprintf("boolean index key %q not in object", k)}
			}
		}
		return func(yield func(element, error) bool) {
			for k, val := range obj.Items() {
				cv, _ := cond.Get(k)
				keep, ok := cv.(value.Bool)
				if !ok {
					yield(element{}, &VectorizedArithmeticError{Message: fmt.Sprintf("boolean index entry for %q is %s, not bool", k, cv.Kind())})
					return
				}
				if keep {
					if !yield(element{key: k, hasKey: true, val: val}, nil) {
						return
					}
				}
			}
		}, nil

	case value.Array:
		arr, ok := v.(value.Array)
		if !ok {
			return nil, &CastError{Wanted: value.KindArr, Got: v.Kind()}
		}
		if len(arr) != len(cond) {
			return nil, &VectorizedArithmeticError{Message: fmt.Sprintf("boolean index length %d does not match array length %d", len(cond), len(arr))}
		}
		return func(yield func(element, error) bool) {
			for i, val := range arr {
				keep, ok := cond[i].(value.Bool)
				if !ok {
					yield(element{}, &VectorizedArithmeticError{Message: fmt.Sprintf("boolean index entry %d is %s, not bool", i, cond[i].Kind())})
					return
				}
				if keep {
					if !yield(element{idx: i, val: val}, nil) {
						return
					}
				}
			}
		}, nil
	}

	return nil, &TypeError{Message: fmt.Sprintf("boolean index must be a bool or a container of bools, got %s", cond.Kind())}
}

// projectionIndexer synthesizes a new object or array whose elements are
// arbitrary expressions over the current value. Deferred children resolve
// against the value the projection is applied to.
type projectionIndexer struct {
	isDict bool
	keys   []string
	exprs  []value.Value
}

func (p projectionIndexer) eval(v value.Value) (elemSeq, error) {
	return func(yield func(element, error) bool) {
		for i, expr := range p.exprs {
			r, err := value.Resolve(expr, v)
			if err != nil {
				yield(element{}, err)
				return
			}
			e := element{idx: i, val: r}
			if p.isDict {
				e = element{key: p.keys[i], hasKey: true, val: r}
			}
			if !yield(e, nil) {
				return
			}
		}
	}, nil
}
