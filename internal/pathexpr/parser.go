package pathexpr

import (
	"fmt"

	"github.com/mibar/jsonquery/internal/value"
)

// The parser is a set of mutually recursive free functions over a shared
// token cursor. Parsing compiles directly to values: constant expressions
// fold eagerly, anything touching the current input becomes deferred.

type cursor struct {
	toks  []token
	pos   int
	depth int
}

func (c *cursor) peek() (token, bool) {
	return c.peekAt(0)
}

func (c *cursor) peekAt(n int) (token, bool) {
	if c.pos+n >= len(c.toks) {
		return token{}, false
	}
	return c.toks[c.pos+n], true
}

func (c *cursor) next() (token, bool) {
	t, ok := c.peek()
	if ok {
		c.pos++
	}
	return t, ok
}

func (c *cursor) peekDelim(b byte) bool {
	t, ok := c.peek()
	return ok && t.kind == tokDelim && t.delim == b
}

func (c *cursor) expectDelim(b byte) error {
	if !c.peekDelim(b) {
		return &ParseError{Pos: c.errPos(), Message: fmt.Sprintf("expected %q", string(b))}
	}
	c.pos++
	return nil
}

// errPos is the position to report when the cursor has no current token.
func (c *cursor) errPos() int {
	if t, ok := c.peek(); ok {
		return t.pos
	}
	if len(c.toks) > 0 {
		return c.toks[len(c.toks)-1].pos + 1
	}
	return 0
}

// isTerminator reports whether t closes the enclosing expression.
func isTerminator(t token) bool {
	if t.kind != tokDelim {
		return false
	}
	switch t.delim {
	case ']', ':', '}', ',', ')':
		return true
	}
	return false
}

// parseExprOrScalarFunc parses a full expression: a fast path for a
// single token before a terminator, otherwise a loop pulling atoms and
// binops with a pending-unary-minus flag. The binop tree resolves when
// the expression closes.
func parseExprOrScalarFunc(c *cursor) (value.Value, error) {
	c.depth++
	defer func() { c.depth-- }()
	if c.depth > MaxParseDepth {
		return nil, &ParseError{Pos: c.errPos(), Message: "expression nesting too deep"}
	}

	if t, ok := c.peek(); ok && (t.kind == tokValue || t.kind == tokIdent) {
		nt, nok := c.peekAt(1)
		if !nok || isTerminator(nt) {
			c.pos++
			if t.kind == tokIdent {
				return value.Str(t.ident), nil
			}
			return t.val, nil
		}
	}

	uminus := false
	var bld binopBuilder
	var left value.Value

	for {
		t, ok := c.peek()
		if !ok || isTerminator(t) {
			break
		}

		if t.kind == tokBinop {
			if left == nil {
				if t.op.name == "-" {
					uminus = !uminus
					c.pos++
					continue
				}
				return nil, &ParseError{Pos: t.pos, Message: "unexpected operator " + t.op.name}
			}
			op := t.op
			c.pos++
			if uminus {
				// A minus pending before "**" fuses into negpow, so
				// -x**y parses as -(x**y). Before any other operator it
				// applies to the atom directly.
				if op.name == "**" {
					op = binops["negpow"]
				} else {
					var err error
					left, err = negate(left)
					if err != nil {
						return nil, err
					}
				}
				uminus = false
			}
			bld.push(left, op)
			left = nil
			continue
		}

		if left != nil {
			return nil, &ParseError{Pos: t.pos, Message: "expected an operator"}
		}
		var err error
		left, err = parseExprOrScalar(c)
		if err != nil {
			return nil, err
		}
	}

	if left == nil {
		return nil, &ParseError{Pos: c.errPos(), Message: "expected an expression"}
	}
	if uminus {
		var err error
		left, err = negate(left)
		if err != nil {
			return nil, err
		}
	}
	return bld.finish(left)
}

// parseExprOrScalar parses one atom — a parenthesized sub-expression, a
// function call or bare identifier, or a literal — and any indexer chain
// that follows it.
func parseExprOrScalar(c *cursor) (value.Value, error) {
	t, ok := c.peek()
	if !ok {
		return nil, &ParseError{Pos: c.errPos(), Message: "unexpected end of query"}
	}

	var atom value.Value
	switch {
	case t.kind == tokDelim && t.delim == '(':
		c.pos++
		inner, err := parseExprOrScalarFunc(c)
		if err != nil {
			return nil, err
		}
		if err := c.expectDelim(')'); err != nil {
			return nil, err
		}
		atom = inner

	case t.kind == tokIdent:
		if nt, ok := c.peekAt(1); ok && nt.kind == tokDelim && nt.delim == '(' {
			fv, err := parseArgFunction(c)
			if err != nil {
				return nil, err
			}
			atom = fv
		} else {
			c.pos++
			atom = value.Str(t.ident)
		}

	case t.kind == tokValue:
		c.pos++
		atom = t.val

	default:
		return nil, &ParseError{Pos: t.pos, Message: "unexpected token"}
	}

	return parseIndexerChain(c, atom)
}

// parseIndexerChain parses `.name`, `[...]`, and `{...}` steps after an
// iterable (or unknown) atom and wraps the atom in the resulting
// pipeline.
func parseIndexerChain(c *cursor, atom value.Value) (value.Value, error) {
	if atom.Kind()&(value.KindIterable|value.KindUnknown) == 0 {
		return atom, nil
	}

	var steps []indexerStep
	for {
		t, ok := c.peek()
		if !ok || t.kind != tokDelim {
			break
		}
		if t.delim != '.' && t.delim != '[' && t.delim != '{' {
			break
		}
		step, err := parseIndexer(c)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	if len(steps) == 0 {
		return atom, nil
	}
	return wrapPipeline(atom, steps)
}

// wrapPipeline applies the steps now when the atom is concrete, and
// defers the whole pipeline when the atom is a function of the input.
func wrapPipeline(atom value.Value, steps []indexerStep) (value.Value, error) {
	if d, ok := atom.(*value.Deferred); ok {
		return &value.Deferred{Out: pipelineOut(steps), Fn: func(input value.Value) (value.Value, error) {
			base, err := d.Fn(input)
			if err != nil {
				return nil, err
			}
			return applyPipeline(steps, base, 0)
		}}, nil
	}
	return applyPipeline(steps, atom, 0)
}

// pipelineOut is the declared output kind of a pipeline: the shape of the
// first non-unwrapping step, unknown once everything unwraps. Star and
// boolean steps take the shape of the container they index, so their
// shape is unknown here.
func pipelineOut(steps []indexerStep) value.Kind {
	for _, s := range steps {
		if s.recursive {
			return value.KindArr
		}
		if !s.oneOption {
			if s.isDict {
				return value.KindObj
			}
			switch s.idx.(type) {
			case starIndexer, boolIndexer:
				return value.KindUnknown
			}
			return value.KindArr
		}
	}
	return value.KindUnknown
}

// parseIndexer dispatches on the opening delimiter: dot indexers,
// bracket lists, and projections. A second dot marks the indexer
// recursive.
func parseIndexer(c *cursor) (indexerStep, error) {
	t, ok := c.next()
	if !ok {
		return indexerStep{}, &ParseError{Pos: c.errPos(), Message: "expected an indexer"}
	}

	switch t.delim {
	case '.':
		if c.peekDelim('.') {
			c.pos++
			if c.peekDelim('[') {
				c.pos++
				return parseBracket(c, true)
			}
			return parseDotName(c, true)
		}
		return parseDotName(c, false)
	case '[':
		return parseBracket(c, false)
	case '{':
		return parseProjection(c)
	}
	return indexerStep{}, &ParseError{Pos: t.pos, Message: "expected an indexer"}
}

func parseDotName(c *cursor, recursive bool) (indexerStep, error) {
	t, ok := c.next()
	if !ok {
		return indexerStep{}, &ParseError{Pos: c.errPos(), Message: "unexpected end after '.'"}
	}
	switch {
	case t.kind == tokIdent:
		return nameListStep([]value.Value{value.Str(t.ident)}, recursive), nil
	case t.kind == tokValue && t.val.Kind()&value.KindStrOrRegex != 0:
		return nameListStep([]value.Value{t.val}, recursive), nil
	case t.kind == tokBinop && t.op.name == "*":
		return starStep(recursive), nil
	}
	return indexerStep{}, &IndexingError{Message: "a dot indexer requires a name, string, regex, or '*'"}
}

func nameListStep(entries []value.Value, recursive bool) indexerStep {
	one := !recursive && len(entries) == 1 && entries[0].Kind() == value.KindStr
	return indexerStep{
		idx:       nameList{entries: entries, recursive: recursive},
		oneOption: one,
		isDict:    !recursive,
		recursive: recursive,
	}
}

func starStep(recursive bool) indexerStep {
	return indexerStep{idx: starIndexer{recursive: recursive}, recursive: recursive}
}

type entryCategory int

const (
	catNone entryCategory = iota
	catName
	catSlice
	catBool
)

// parseBracket parses a comma-separated bracket list. The first entry's
// type selects NameList, SliceList, or Boolean; mixtures are rejected.
func parseBracket(c *cursor, recursive bool) (indexerStep, error) {
	// "[*]" selects all children.
	if t, ok := c.peek(); ok && t.kind == tokBinop && t.op.name == "*" {
		if nt, ok := c.peekAt(1); ok && nt.kind == tokDelim && nt.delim == ']' {
			c.pos += 2
			return starStep(recursive), nil
		}
	}

	var entries []value.Value
	cat := catNone

	for {
		t, ok := c.peek()
		if !ok {
			return indexerStep{}, &ParseError{Pos: c.errPos(), Message: "unclosed '['"}
		}
		if t.kind == tokDelim && t.delim == ']' {
			return indexerStep{}, &ParseError{Pos: t.pos, Message: "empty indexer"}
		}

		var entry value.Value
		if t.kind == tokDelim && t.delim == ':' {
			s, err := parseSlicer(c, nil)
			if err != nil {
				return indexerStep{}, err
			}
			entry = s
		} else {
			e, err := parseExprOrScalarFunc(c)
			if err != nil {
				return indexerStep{}, err
			}
			if c.peekDelim(':') {
				iv, ok := e.(value.Int)
				if !ok {
					return indexerStep{}, &ParseError{Pos: t.pos, Message: "slice bounds must be integers"}
				}
				n := int(iv)
				s, err := parseSlicer(c, &n)
				if err != nil {
					return indexerStep{}, err
				}
				entry = s
			} else {
				entry = e
			}
		}

		ecat, err := categorize(entry)
		if err != nil {
			return indexerStep{}, err
		}
		switch {
		case cat == catNone:
			cat = ecat
		case cat != ecat, cat == catBool:
			return indexerStep{}, &IndexingError{Message: "entries in one bracket must be all names, all indices, or a single boolean"}
		}
		entries = append(entries, entry)

		t, ok = c.peek()
		if !ok {
			return indexerStep{}, &ParseError{Pos: c.errPos(), Message: "unclosed '['"}
		}
		if t.kind == tokDelim && t.delim == ']' {
			c.pos++
			break
		}
		if t.kind == tokDelim && t.delim == ',' {
			c.pos++
			continue
		}
		return indexerStep{}, &ParseError{Pos: t.pos, Message: "expected ',' or ']'"}
	}

	switch cat {
	case catName:
		return nameListStep(entries, recursive), nil
	case catSlice:
		if recursive {
			return indexerStep{}, &IndexingError{Message: "recursive search with slices is not supported"}
		}
		one := len(entries) == 1 && entries[0].Kind() == value.KindInt
		return indexerStep{idx: sliceList{entries: entries}, oneOption: one}, nil
	default:
		if recursive {
			return indexerStep{}, &IndexingError{Message: "recursive search with a boolean index is not supported"}
		}
		return indexerStep{idx: boolIndexer{cond: entries[0]}}, nil
	}
}

// categorize classifies a bracket entry by the kind of indexer it can
// belong to.
func categorize(v value.Value) (entryCategory, error) {
	if value.IsDeferred(v) {
		return catBool, nil
	}
	switch v.Kind() {
	case value.KindStr, value.KindRegex:
		return catName, nil
	case value.KindInt, value.KindSlice:
		return catSlice, nil
	case value.KindBool:
		return catBool, nil
	}
	return catNone, &IndexingError{Message: fmt.Sprintf("a value of kind %s cannot be used as an indexer entry", v.Kind())}
}

// parseSlicer consumes up to two ':' separators, yielding a slice triple.
// The cursor sits on the first ':'; start was parsed by the caller.
func parseSlicer(c *cursor, start *int) (value.Slice, error) {
	parts := [3]*int{start, nil, nil}
	for slot := 1; slot <= 2; slot++ {
		if !c.peekDelim(':') {
			break
		}
		c.pos++
		n, err := parseSliceBound(c)
		if err != nil {
			return value.Slice{}, err
		}
		parts[slot] = n
	}
	return value.Slice{Start: parts[0], Stop: parts[1], Step: parts[2]}, nil
}

// parseSliceBound reads an optional (possibly negative) integer bound.
func parseSliceBound(c *cursor) (*int, error) {
	neg := false
	t, ok := c.peek()
	if ok && t.kind == tokBinop && t.op.name == "-" {
		neg = true
		c.pos++
		t, ok = c.peek()
	}
	if !ok {
		if neg {
			return nil, &ParseError{Pos: c.errPos(), Message: "expected an integer after '-'"}
		}
		return nil, nil
	}
	if t.kind == tokValue {
		iv, isInt := t.val.(value.Int)
		if !isInt {
			return nil, &ParseError{Pos: t.pos, Message: "slice bounds must be integers"}
		}
		c.pos++
		n := int(iv)
		if neg {
			n = -n
		}
		return &n, nil
	}
	if neg {
		return nil, &ParseError{Pos: t.pos, Message: "expected an integer after '-'"}
	}
	return nil, nil
}

// parseArgFunction parses `name(arg, …)`, validating arity and each
// argument against the declared type mask, and applies the function.
func parseArgFunction(c *cursor) (value.Value, error) {
	nameTok, _ := c.next()
	f, ok := argFunctions[nameTok.ident]
	if !ok {
		return nil, &ParseError{Pos: nameTok.pos, Message: "unknown function " + nameTok.ident}
	}
	c.pos++ // consume '('

	var args []value.Value
	if c.peekDelim(')') {
		c.pos++
	} else {
		for {
			arg, err := parseArg(c)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)

			t, ok := c.peek()
			if !ok {
				return nil, &ParseError{Pos: c.errPos(), Message: "unclosed '(' in call to " + f.name}
			}
			if t.kind == tokDelim && t.delim == ',' {
				c.pos++
				continue
			}
			if t.kind == tokDelim && t.delim == ')' {
				c.pos++
				break
			}
			return nil, &ParseError{Pos: t.pos, Message: "expected ',' or ')'"}
		}
	}

	if err := checkArgCount(f, len(args), nameTok.pos); err != nil {
		return nil, err
	}
	for i, a := range args {
		if err := checkArgType(f, i, a, nameTok.pos); err != nil {
			return nil, err
		}
	}
	return applyArgFunction(f, args)
}

// parseArg parses one function argument: a full expression, or a slice
// literal written with the same ':' syntax as in brackets.
func parseArg(c *cursor) (value.Value, error) {
	if c.peekDelim(':') {
		s, err := parseSlicer(c, nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	arg, err := parseExprOrScalarFunc(c)
	if err != nil {
		return nil, err
	}
	if c.peekDelim(':') {
		iv, ok := arg.(value.Int)
		if !ok {
			return nil, &ParseError{Pos: c.errPos(), Message: "slice bounds must be integers"}
		}
		n := int(iv)
		return parseSlicer(c, &n)
	}
	return arg, nil
}

// parseProjection reads `{expr, …}` (array projection) or
// `{"k": expr, …}` (object projection). Deferred children are captured so
// they resolve against the projection's enclosing input.
func parseProjection(c *cursor) (indexerStep, error) {
	first, err := parseExprOrScalarFunc(c)
	if err != nil {
		return indexerStep{}, err
	}

	if c.peekDelim(':') {
		keys := []string{}
		exprs := []value.Value{}

		key, err := projectionKey(first)
		if err != nil {
			return indexerStep{}, err
		}
		c.pos++ // consume ':'
		v, err := parseExprOrScalarFunc(c)
		if err != nil {
			return indexerStep{}, err
		}
		keys = append(keys, key)
		exprs = append(exprs, v)

		for {
			t, ok := c.peek()
			if !ok {
				return indexerStep{}, &ParseError{Pos: c.errPos(), Message: "unclosed '{'"}
			}
			if t.kind == tokDelim && t.delim == '}' {
				c.pos++
				break
			}
			if t.kind != tokDelim || t.delim != ',' {
				return indexerStep{}, &ParseError{Pos: t.pos, Message: "expected ',' or '}'"}
			}
			c.pos++

			k, err := parseExprOrScalarFunc(c)
			if err != nil {
				return indexerStep{}, err
			}
			key, err := projectionKey(k)
			if err != nil {
				return indexerStep{}, err
			}
			if !c.peekDelim(':') {
				return indexerStep{}, &ParseError{Pos: c.errPos(), Message: "cannot mix keyed and bare projection entries"}
			}
			c.pos++
			v, err := parseExprOrScalarFunc(c)
			if err != nil {
				return indexerStep{}, err
			}
			keys = append(keys, key)
			exprs = append(exprs, v)
		}

		return indexerStep{
			idx:          projectionIndexer{isDict: true, keys: keys, exprs: exprs},
			isProjection: true,
			isDict:       true,
		}, nil
	}

	exprs := []value.Value{first}
	for {
		t, ok := c.peek()
		if !ok {
			return indexerStep{}, &ParseError{Pos: c.errPos(), Message: "unclosed '{'"}
		}
		if t.kind == tokDelim && t.delim == '}' {
			c.pos++
			break
		}
		if t.kind != tokDelim || t.delim != ',' {
			return indexerStep{}, &ParseError{Pos: t.pos, Message: "expected ',' or '}'"}
		}
		c.pos++

		v, err := parseExprOrScalarFunc(c)
		if err != nil {
			return indexerStep{}, err
		}
		if c.peekDelim(':') {
			return indexerStep{}, &ParseError{Pos: c.errPos(), Message: "cannot mix keyed and bare projection entries"}
		}
		exprs = append(exprs, v)
	}

	return indexerStep{
		idx:          projectionIndexer{isDict: false, exprs: exprs},
		isProjection: true,
	}, nil
}

func projectionKey(v value.Value) (string, error) {
	s, ok := v.(value.Str)
	if !ok {
		return "", &ParseError{Message: fmt.Sprintf("projection keys must be strings, got %s", v.Kind())}
	}
	return string(s), nil
}
