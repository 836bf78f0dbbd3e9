package pathexpr

import (
	"iter"

	"github.com/mibar/jsonquery/internal/value"
)

// applyPipeline runs indexer steps i.. over v, preserving container shape:
// dict-shaped steps materialize objects, array-shaped steps arrays, and
// one-option steps unwrap their single element. Empty-container
// subresults are pruned; scalar subresults always survive.
func applyPipeline(steps []indexerStep, v value.Value, i int) (value.Value, error) {
	step := steps[i]

	seq, err := step.idx.eval(v)
	if err != nil {
		return nil, err
	}

	next, stop := iter.Pull2(seq)
	defer stop()

	first, ferr, ok := next()
	if ferr != nil {
		return nil, ferr
	}
	if !ok {
		if step.isDict {
			return value.NewObject(), nil
		}
		return value.Array{}, nil
	}

	dictShaped := first.hasKey
	last := i == len(steps)-1

	if last {
		if step.oneOption {
			return first.val, nil
		}
		return materialize(first, next, dictShaped)
	}

	if step.isProjection {
		nv, err := materialize(first, next, dictShaped)
		if err != nil {
			return nil, err
		}
		return applyPipeline(steps, nv, i+1)
	}

	if step.oneOption {
		return applyPipeline(steps, first.val, i+1)
	}

	var outObj *value.Object
	var outArr value.Array
	if dictShaped {
		outObj = value.NewObject()
	}

	elem, eerr, ok := first, error(nil), true
	for ok {
		if eerr != nil {
			return nil, eerr
		}
		sub, err := applyPipeline(steps, elem.val, i+1)
		if err != nil {
			return nil, err
		}
		if containerLen(sub) != 0 {
			if dictShaped {
				outObj.Set(elem.key, sub)
			} else {
				outArr = append(outArr, sub)
			}
		}
		elem, eerr, ok = next()
	}

	if dictShaped {
		return outObj, nil
	}
	if outArr == nil {
		outArr = value.Array{}
	}
	return outArr, nil
}

// materialize drains a sequence into an object (pair elements) or an
// array (bare elements).
func materialize(first element, next func() (element, error, bool), dictShaped bool) (value.Value, error) {
	if dictShaped {
		out := value.NewObject()
		elem, err, ok := first, error(nil), true
		for ok {
			if err != nil {
				return nil, err
			}
			out.Set(elem.key, elem.val)
			elem, err, ok = next()
		}
		return out, nil
	}

	out := value.Array{}
	elem, err, ok := first, error(nil), true
	for ok {
		if err != nil {
			return nil, err
		}
		out = append(out, elem.val)
		elem, err, ok = next()
	}
	return out, nil
}

// containerLen reports a container's length, or -1 for scalars, so empty
// containers can be pruned while empty-looking scalars survive.
func containerLen(v value.Value) int {
	switch v := v.(type) {
	case *value.Object:
		return v.Len()
	case value.Array:
		return len(v)
	}
	return -1
}
