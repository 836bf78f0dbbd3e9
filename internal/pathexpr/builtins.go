package pathexpr

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mibar/jsonquery/internal/value"
)

// The argument-function library. Each entry declares its signature as
// data; applyArgFunction drives vectorization and deferral.

func init() {
	registerContainerFuncs()
	registerScalarFuncs()
	registerStringFuncs()

	register(&argFunction{
		name: "rand", minArgs: 0, maxArgs: 0,
		argTypes: []value.Kind{}, out: value.KindFloat,
		deterministic: false,
		fn: func(args []value.Value) (value.Value, error) {
			return value.Float(rand.Float64()), nil
		},
	})
}

func registerContainerFuncs() {
	register(&argFunction{
		name: "len", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindIterable}, out: value.KindInt,
		deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			switch v := args[0].(type) {
			case *value.Object:
				return value.Int(v.Len()), nil
			case value.Array:
				return value.Int(len(v)), nil
			}
			return nil, &CastError{Wanted: value.KindIterable, Got: args[0].Kind()}
		},
	})

	register(&argFunction{
		name: "sum", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindArr}, out: value.KindFloat,
		deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			arr, err := arrArg(args[0], "sum")
			if err != nil {
				return nil, err
			}
			var total float64
			for _, e := range arr {
				f, ok := asFloat(e)
				if !ok {
					return nil, &TypeError{Message: fmt.Sprintf("sum over non-numeric element of kind %s", e.Kind())}
				}
				total += f
			}
			return value.Float(total), nil
		},
	})

	register(&argFunction{
		name: "mean", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindArr}, out: value.KindFloat,
		deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			arr, err := arrArg(args[0], "mean")
			if err != nil {
				return nil, err
			}
			if len(arr) == 0 {
				return nil, &TypeError{Message: "mean of an empty array"}
			}
			var total float64
			for _, e := range arr {
				f, ok := asFloat(e)
				if !ok {
					return nil, &TypeError{Message: fmt.Sprintf("mean over non-numeric element of kind %s", e.Kind())}
				}
				total += f
			}
			return value.Float(total / float64(len(arr))), nil
		},
	})

	register(&argFunction{
		name: "max", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindArr}, out: value.KindFloat,
		deterministic: true,
		fn:            extremumFn("max", func(a, b float64) bool { return a > b }),
	})

	register(&argFunction{
		name: "min", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindArr}, out: value.KindFloat,
		deterministic: true,
		fn:            extremumFn("min", func(a, b float64) bool { return a < b }),
	})

	register(&argFunction{
		name: "keys", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindObj}, out: value.KindArr,
		deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			obj, err := objArg(args[0], "keys")
			if err != nil {
				return nil, err
			}
			out := make(value.Array, 0, obj.Len())
			for _, k := range obj.Keys() {
				out = append(out, value.Str(k))
			}
			return out, nil
		},
	})

	register(&argFunction{
		name: "values", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindObj}, out: value.KindArr,
		deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			obj, err := objArg(args[0], "values")
			if err != nil {
				return nil, err
			}
			out := make(value.Array, 0, obj.Len())
			for _, v := range obj.Items() {
				out = append(out, v)
			}
			return out, nil
		},
	})

	register(&argFunction{
		name: "items", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindObj}, out: value.KindArr,
		deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			obj, err := objArg(args[0], "items")
			if err != nil {
				return nil, err
			}
			out := make(value.Array, 0, obj.Len())
			for k, v := range obj.Items() {
				out = append(out, value.Array{value.Str(k), v})
			}
			return out, nil
		},
	})

	register(&argFunction{
		name: "sorted", minArgs: 1, maxArgs: 2,
		argTypes: []value.Kind{value.KindArr, value.KindBool}, out: value.KindArr,
		deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			arr, err := arrArg(args[0], "sorted")
			if err != nil {
				return nil, err
			}
			desc := false
			if b, ok := args[1].(value.Bool); ok {
				desc = bool(b)
			}
			out := make(value.Array, len(arr))
			copy(out, arr)
			var sortErr error
			sort.SliceStable(out, func(i, j int) bool {
				less, err := scalarLess(out[i], out[j])
				if err != nil && sortErr == nil {
					sortErr = err
				}
				if desc {
					return !less
				}
				return less
			})
			if sortErr != nil {
				return nil, sortErr
			}
			return out, nil
		},
	})

	register(&argFunction{
		name: "unique", minArgs: 1, maxArgs: 2,
		argTypes: []value.Kind{value.KindArr, value.KindBool}, out: value.KindArr,
		deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			arr, err := arrArg(args[0], "unique")
			if err != nil {
				return nil, err
			}
			out := value.Array{}
			for _, e := range arr {
				seen := false
				for _, u := range out {
					if value.Equal(e, u) {
						seen = true
						break
					}
				}
				if !seen {
					out = append(out, e)
				}
			}
			if b, ok := args[1].(value.Bool); ok && bool(b) {
				var sortErr error
				sort.SliceStable(out, func(i, j int) bool {
					less, err := scalarLess(out[i], out[j])
					if err != nil && sortErr == nil {
						sortErr = err
					}
					return less
				})
				if sortErr != nil {
					return nil, sortErr
				}
			}
			return out, nil
		},
	})

	register(&argFunction{
		name: "range", minArgs: 1, maxArgs: 3,
		argTypes: []value.Kind{value.KindInt, value.KindInt, value.KindInt}, out: value.KindArr,
		deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			start, stop, step := int64(0), int64(0), int64(1)
			if v, ok := args[0].(value.Int); ok {
				stop = int64(v)
			}
			if v, ok := args[1].(value.Int); ok {
				start, stop = stop, int64(v)
			}
			if v, ok := args[2].(value.Int); ok {
				step = int64(v)
			}
			if step == 0 {
				return nil, &TypeError{Message: "range step must not be zero"}
			}
			out := value.Array{}
			if step > 0 {
				for i := start; i < stop; i += step {
					out = append(out, value.Int(i))
				}
			} else {
				for i := start; i > stop; i += step {
					out = append(out, value.Int(i))
				}
			}
			return out, nil
		},
	})

	register(&argFunction{
		name: "in", minArgs: 2, maxArgs: 2,
		argTypes: []value.Kind{value.KindScalar, value.KindIterable}, out: value.KindBool,
		deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			switch c := args[1].(type) {
			case value.Array:
				for _, e := range c {
					if value.Equal(args[0], e) {
						return value.Bool(true), nil
					}
				}
				return value.Bool(false), nil
			case *value.Object:
				s, ok := args[0].(value.Str)
				if !ok {
					return nil, &TypeError{Message: fmt.Sprintf("in: object membership needs a string key, got %s", args[0].Kind())}
				}
				return value.Bool(c.Has(string(s))), nil
			}
			return nil, &CastError{Wanted: value.KindIterable, Got: args[1].Kind()}
		},
	})

	register(&argFunction{
		name: "append", minArgs: 2, maxArgs: -1,
		argTypes: []value.Kind{value.KindArr, value.KindAny}, out: value.KindArr,
		deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			arr, err := arrArg(args[0], "append")
			if err != nil {
				return nil, err
			}
			out := make(value.Array, len(arr), len(arr)+len(args)-1)
			copy(out, arr)
			return append(out, args[1:]...), nil
		},
	})

	register(&argFunction{
		name: "zip", minArgs: 2, maxArgs: -1,
		argTypes: []value.Kind{value.KindArr}, out: value.KindArr,
		deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			arrs := make([]value.Array, len(args))
			for i, a := range args {
				arr, err := arrArg(a, "zip")
				if err != nil {
					return nil, err
				}
				if i > 0 && len(arr) != len(arrs[0]) {
					return nil, &VectorizedArithmeticError{Message: fmt.Sprintf("zip: array lengths differ: %d vs %d", len(arrs[0]), len(arr))}
				}
				arrs[i] = arr
			}
			out := make(value.Array, len(arrs[0]))
			for i := range out {
				row := make(value.Array, len(arrs))
				for j := range arrs {
					row[j] = arrs[j][i]
				}
				out[i] = row
			}
			return out, nil
		},
	})
}

func registerScalarFuncs() {
	register(&argFunction{
		name: "abs", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindNum}, out: value.KindNum,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			switch v := args[0].(type) {
			case value.Int:
				if v < 0 {
					return -v, nil
				}
				return v, nil
			case value.Float:
				return value.Float(math.Abs(float64(v))), nil
			}
			return nil, &TypeError{Message: fmt.Sprintf("abs of non-number %s", args[0].Kind())}
		},
	})

	register(&argFunction{
		name: "round", minArgs: 1, maxArgs: 2,
		argTypes: []value.Kind{value.KindNum, value.KindInt}, out: value.KindNum,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			f, ok := asFloat(args[0])
			if !ok {
				return nil, &TypeError{Message: fmt.Sprintf("round of non-number %s", args[0].Kind())}
			}
			if nd, ok := args[1].(value.Int); ok {
				scale := math.Pow(10, float64(nd))
				return value.Float(math.Round(f*scale) / scale), nil
			}
			return value.Int(int64(math.Round(f))), nil
		},
	})

	register(&argFunction{
		name: "not", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindBool}, out: value.KindBool,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			b, ok := args[0].(value.Bool)
			if !ok {
				return nil, &TypeError{Message: fmt.Sprintf("not of non-bool %s", args[0].Kind())}
			}
			return !b, nil
		},
	})

	register(&argFunction{
		name: "str", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindScalar}, out: value.KindStr,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			switch v := args[0].(type) {
			case value.Str:
				return v, nil
			case value.Int:
				return value.Str(strconv.FormatInt(int64(v), 10)), nil
			case value.Float:
				return value.Str(strconv.FormatFloat(float64(v), 'g', -1, 64)), nil
			case value.Bool:
				return value.Str(strconv.FormatBool(bool(v))), nil
			case value.Null:
				return value.Str("null"), nil
			}
			return nil, &TypeError{Message: fmt.Sprintf("str of non-scalar %s", args[0].Kind())}
		},
	})

	register(&argFunction{
		name: "int", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindScalar}, out: value.KindInt,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			switch v := args[0].(type) {
			case value.Int:
				return v, nil
			case value.Float:
				return value.Int(int64(v)), nil
			case value.Bool:
				if v {
					return value.Int(1), nil
				}
				return value.Int(0), nil
			case value.Str:
				i, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
				if err != nil {
					return nil, &TypeError{Message: fmt.Sprintf("cannot convert %q to int", string(v))}
				}
				return value.Int(i), nil
			}
			return nil, &TypeError{Message: fmt.Sprintf("int of %s", args[0].Kind())}
		},
	})

	register(&argFunction{
		name: "float", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindScalar}, out: value.KindFloat,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			switch v := args[0].(type) {
			case value.Float:
				return v, nil
			case value.Int:
				return value.Float(float64(v)), nil
			case value.Bool:
				if v {
					return value.Float(1), nil
				}
				return value.Float(0), nil
			case value.Str:
				f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
				if err != nil {
					return nil, &TypeError{Message: fmt.Sprintf("cannot convert %q to float", string(v))}
				}
				return value.Float(f), nil
			}
			return nil, &TypeError{Message: fmt.Sprintf("float of %s", args[0].Kind())}
		},
	})

	register(&argFunction{
		name: "ifelse", minArgs: 3, maxArgs: 3,
		argTypes: []value.Kind{value.KindBool, value.KindAny, value.KindAny}, out: value.KindUnknown,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			b, ok := args[0].(value.Bool)
			if !ok {
				return nil, &TypeError{Message: fmt.Sprintf("ifelse condition must be bool, got %s", args[0].Kind())}
			}
			if b {
				return args[1], nil
			}
			return args[2], nil
		},
	})
}

func registerStringFuncs() {
	register(&argFunction{
		name: "s_len", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindStr}, out: value.KindInt,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			s, err := strArg(args[0], "s_len")
			if err != nil {
				return nil, err
			}
			return value.Int(utf8.RuneCountInString(s)), nil
		},
	})

	register(&argFunction{
		name: "s_mul", minArgs: 2, maxArgs: 2,
		argTypes: []value.Kind{value.KindStr, value.KindInt}, out: value.KindStr,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			s, err := strArg(args[0], "s_mul")
			if err != nil {
				return nil, err
			}
			n, ok := args[1].(value.Int)
			if !ok {
				return nil, &TypeError{Message: "s_mul count must be an int"}
			}
			if n < 0 {
				n = 0
			}
			return value.Str(strings.Repeat(s, int(n))), nil
		},
	})

	register(&argFunction{
		name: "s_slice", minArgs: 2, maxArgs: 2,
		argTypes: []value.Kind{value.KindStr, value.KindIntOrSlice}, out: value.KindStr,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			s, err := strArg(args[0], "s_slice")
			if err != nil {
				return nil, err
			}
			runes := []rune(s)
			n := len(runes)
			switch idx := args[1].(type) {
			case value.Int:
				i := int(idx)
				if i < 0 {
					i += n
				}
				if i < 0 || i >= n {
					return nil, &IndexingError{Message: fmt.Sprintf("string index %d out of range for length %d", int(idx), n)}
				}
				return value.Str(runes[i : i+1]), nil
			case value.Slice:
				start, stop, step := sliceBounds(idx, n)
				var out []rune
				if step > 0 {
					for i := start; i < stop; i += step {
						out = append(out, runes[i])
					}
				} else {
					for i := start; i > stop; i += step {
						out = append(out, runes[i])
					}
				}
				return value.Str(out), nil
			}
			return nil, &TypeError{Message: "s_slice index must be an int or a slice"}
		},
	})

	register(&argFunction{
		name: "s_split", minArgs: 1, maxArgs: 2,
		argTypes: []value.Kind{value.KindStr, value.KindStrOrRegex}, out: value.KindArr,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			s, err := strArg(args[0], "s_split")
			if err != nil {
				return nil, err
			}
			var parts []string
			switch sep := args[1].(type) {
			case value.Null:
				parts = strings.Fields(s)
			case value.Str:
				parts = strings.Split(s, string(sep))
			case value.Regex:
				parts = sep.Re.Split(s, -1)
			default:
				return nil, &TypeError{Message: "s_split separator must be a string or regex"}
			}
			out := make(value.Array, len(parts))
			for i, p := range parts {
				out[i] = value.Str(p)
			}
			return out, nil
		},
	})

	register(&argFunction{
		name: "s_strip", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindStr}, out: value.KindStr,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			s, err := strArg(args[0], "s_strip")
			if err != nil {
				return nil, err
			}
			return value.Str(strings.TrimSpace(s)), nil
		},
	})

	register(&argFunction{
		name: "s_upper", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindStr}, out: value.KindStr,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			s, err := strArg(args[0], "s_upper")
			if err != nil {
				return nil, err
			}
			return value.Str(strings.ToUpper(s)), nil
		},
	})

	register(&argFunction{
		name: "s_lower", minArgs: 1, maxArgs: 1,
		argTypes: []value.Kind{value.KindStr}, out: value.KindStr,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			s, err := strArg(args[0], "s_lower")
			if err != nil {
				return nil, err
			}
			return value.Str(strings.ToLower(s)), nil
		},
	})

	register(&argFunction{
		name: "s_sub", minArgs: 3, maxArgs: 3,
		argTypes: []value.Kind{value.KindStr, value.KindStrOrRegex, value.KindStr}, out: value.KindStr,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			s, err := strArg(args[0], "s_sub")
			if err != nil {
				return nil, err
			}
			repl, ok := args[2].(value.Str)
			if !ok {
				return nil, &TypeError{Message: "s_sub replacement must be a string"}
			}
			switch pat := args[1].(type) {
			case value.Str:
				return value.Str(strings.ReplaceAll(s, string(pat), string(repl))), nil
			case value.Regex:
				return value.Str(pat.Re.ReplaceAllString(s, string(repl))), nil
			}
			return nil, &TypeError{Message: "s_sub pattern must be a string or regex"}
		},
	})

	register(&argFunction{
		name: "s_find", minArgs: 2, maxArgs: 2,
		argTypes: []value.Kind{value.KindStr, value.KindRegex}, out: value.KindArr,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			s, err := strArg(args[0], "s_find")
			if err != nil {
				return nil, err
			}
			re, ok := args[1].(value.Regex)
			if !ok {
				return nil, &TypeError{Message: "s_find pattern must be a regex"}
			}
			matches := re.Re.FindAllString(s, -1)
			out := make(value.Array, len(matches))
			for i, m := range matches {
				out[i] = value.Str(m)
			}
			return out, nil
		},
	})

	register(&argFunction{
		name: "s_count", minArgs: 2, maxArgs: 2,
		argTypes: []value.Kind{value.KindStr, value.KindStrOrRegex}, out: value.KindInt,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			s, err := strArg(args[0], "s_count")
			if err != nil {
				return nil, err
			}
			switch pat := args[1].(type) {
			case value.Str:
				if len(pat) == 0 {
					return nil, &TypeError{Message: "s_count pattern must not be empty"}
				}
				return value.Int(strings.Count(s, string(pat))), nil
			case value.Regex:
				return value.Int(len(pat.Re.FindAllString(s, -1))), nil
			}
			return nil, &TypeError{Message: "s_count pattern must be a string or regex"}
		},
	})

	register(&argFunction{
		name: "is_match", minArgs: 2, maxArgs: 2,
		argTypes: []value.Kind{value.KindStr, value.KindRegex}, out: value.KindBool,
		vectorized: true, deterministic: true,
		fn: func(args []value.Value) (value.Value, error) {
			s, err := strArg(args[0], "is_match")
			if err != nil {
				return nil, err
			}
			re, ok := args[1].(value.Regex)
			if !ok {
				return nil, &TypeError{Message: "is_match pattern must be a regex"}
			}
			return value.Bool(re.Re.MatchString(s)), nil
		},
	})
}

func extremumFn(name string, better func(a, b float64) bool) func(args []value.Value) (value.Value, error) {
	return func(args []value.Value) (value.Value, error) {
		arr, err := arrArg(args[0], name)
		if err != nil {
			return nil, err
		}
		if len(arr) == 0 {
			return nil, &TypeError{Message: name + " of an empty array"}
		}
		best, ok := asFloat(arr[0])
		if !ok {
			return nil, &TypeError{Message: fmt.Sprintf("%s over non-numeric element of kind %s", name, arr[0].Kind())}
		}
		for _, e := range arr[1:] {
			f, ok := asFloat(e)
			if !ok {
				return nil, &TypeError{Message: fmt.Sprintf("%s over non-numeric element of kind %s", name, e.Kind())}
			}
			if better(f, best) {
				best = f
			}
		}
		return value.Float(best), nil
	}
}

func scalarLess(a, b value.Value) (bool, error) {
	if as, ok := a.(value.Str); ok {
		bs, ok := b.(value.Str)
		if !ok {
			return false, &TypeError{Message: fmt.Sprintf("cannot order %s and %s", a.Kind(), b.Kind())}
		}
		return as < bs, nil
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return false, &TypeError{Message: fmt.Sprintf("cannot order %s and %s", a.Kind(), b.Kind())}
	}
	return af < bf, nil
}

func arrArg(v value.Value, name string) (value.Array, error) {
	arr, ok := v.(value.Array)
	if !ok {
		return nil, &CastError{Wanted: value.KindArr, Got: v.Kind()}
	}
	return arr, nil
}

func objArg(v value.Value, name string) (*value.Object, error) {
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, &CastError{Wanted: value.KindObj, Got: v.Kind()}
	}
	return obj, nil
}

func strArg(v value.Value, name string) (string, error) {
	s, ok := v.(value.Str)
	if !ok {
		return "", &CastError{Wanted: value.KindStr, Got: v.Kind()}
	}
	return string(s), nil
}
