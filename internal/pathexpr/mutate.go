package pathexpr

import (
	"slices"

	"github.com/mibar/jsonquery/internal/value"
)

// Mutation re-walks the selector collecting the position of every
// selected node, deep-copies the input, evaluates the mutator once per
// node (with that node as the current input), and writes the results
// back at the recorded positions.

// pathSeg is one step of a position in the input: an object key or an
// array index.
type pathSeg struct {
	key   string
	idx   int
	isKey bool
}

type selection struct {
	path []pathSeg
	val  value.Value
}

// selectorSteps re-parses the selector tokens as a plain path from the
// current input. Only such selectors have reconstructible positions;
// projection and recursive steps are rejected here, at compile time.
func selectorSteps(toks []token) ([]indexerStep, error) {
	c := &cursor{toks: toks}

	t, ok := c.peek()
	if !ok || t.kind != tokValue || !value.IsDeferred(t.val) {
		return nil, &MutationError{Message: "the selector of a mutation must be a path from the current input"}
	}
	c.pos++

	var steps []indexerStep
	for {
		t, ok := c.peek()
		if !ok {
			break
		}
		if t.kind != tokDelim || (t.delim != '.' && t.delim != '[' && t.delim != '{') {
			return nil, &MutationError{Message: "the selector of a mutation must be a path from the current input"}
		}
		step, err := parseIndexer(c)
		if err != nil {
			return nil, err
		}
		if step.isProjection {
			return nil, &MutationError{Message: "projection results are not addressable"}
		}
		if step.recursive {
			return nil, &MutationError{Message: "recursive search results are not addressable"}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (q *Compiled) mutate(input value.Value) (value.Value, error) {
	root := value.Clone(input)

	var sels []selection
	if err := collectPaths(q.mutSteps, root, 0, nil, &sels); err != nil {
		return nil, err
	}

	for _, s := range sels {
		nv, err := value.Resolve(q.mutator, s.val)
		if err != nil {
			return nil, err
		}
		if len(s.path) == 0 {
			// The selector is the bare input sigil: replace the document.
			return nv, nil
		}
		if err := writeBack(root, s.path, nv); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func collectPaths(steps []indexerStep, v value.Value, i int, prefix []pathSeg, out *[]selection) error {
	if i == len(steps) {
		*out = append(*out, selection{path: slices.Clone(prefix), val: v})
		return nil
	}

	seq, err := steps[i].idx.eval(v)
	if err != nil {
		return err
	}
	for elem, eerr := range seq {
		if eerr != nil {
			return eerr
		}
		seg := pathSeg{key: elem.key, idx: elem.idx, isKey: elem.hasKey}
		if err := collectPaths(steps, elem.val, i+1, append(prefix, seg), out); err != nil {
			return err
		}
	}
	return nil
}

func writeBack(root value.Value, path []pathSeg, nv value.Value) error {
	cur := root
	for _, seg := range path[:len(path)-1] {
		switch c := cur.(type) {
		case *value.Object:
			next, ok := c.Get(seg.key)
			if !ok {
				return &MutationError{Message: "a selected position vanished during write-back"}
			}
			cur = next
		case value.Array:
			if seg.idx < 0 || seg.idx >= len(c) {
				return &MutationError{Message: "a selected position vanished during write-back"}
			}
			cur = c[seg.idx]
		default:
			return &MutationError{Message: "a selected position vanished during write-back"}
		}
	}

	last := path[len(path)-1]
	switch c := cur.(type) {
	case *value.Object:
		if !last.isKey {
			return &MutationError{Message: "cannot write an array position into an object"}
		}
		c.Set(last.key, nv)
	case value.Array:
		if last.isKey || last.idx < 0 || last.idx >= len(c) {
			return &MutationError{Message: "cannot write outside the bounds of an array"}
		}
		c[last.idx] = nv
	default:
		return &MutationError{Message: "only containers can be written back"}
	}
	return nil
}
