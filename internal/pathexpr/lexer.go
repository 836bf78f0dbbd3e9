package pathexpr

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mibar/jsonquery/internal/value"
)

// The lexer turns a query string into the token stream the parser
// consumes: literal values, binop descriptors, unquoted identifiers, and
// single delimiter characters. A single top-level "=" splits the stream
// into selector and mutator halves.

type tokenKind int

const (
	tokValue tokenKind = iota
	tokBinop
	tokIdent
	tokDelim
)

type token struct {
	kind  tokenKind
	pos   int
	val   value.Value // tokValue
	op    *binop      // tokBinop
	ident string      // tokIdent
	delim byte        // tokDelim
}

type lexer struct {
	src string
	pos int
}

// lex scans src into selector tokens and, when a top-level "=" is
// present, mutator tokens. mut is nil when the query has no mutator.
func lex(src string) (sel, mut []token, err error) {
	if len(src) > MaxQueryLength {
		return nil, nil, &ParseError{Pos: 0, Message: "query exceeds maximum length"}
	}

	l := &lexer{src: src}
	var toks []token
	depth := 0
	split := -1

	for {
		t, ok, err := l.next()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			break
		}
		if t.kind == tokDelim {
			switch t.delim {
			case '[', '{', '(':
				depth++
			case ']', '}', ')':
				depth--
			case '=':
				if depth != 0 {
					return nil, nil, &ParseError{Pos: t.pos, Message: "'=' inside brackets"}
				}
				if split >= 0 {
					return nil, nil, &ParseError{Pos: t.pos, Message: "multiple '=' in one query"}
				}
				split = len(toks)
				continue
			}
		}
		toks = append(toks, t)
	}

	if split < 0 {
		return toks, nil, nil
	}
	if split == len(toks) {
		return nil, nil, &ParseError{Pos: len(src), Message: "missing expression after '='"}
	}
	return toks[:split], toks[split:], nil
}

func (l *lexer) next() (token, bool, error) {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{}, false, nil
	}

	start := l.pos
	ch := l.src[l.pos]

	switch ch {
	case '.', ',', ':', '[', ']', '{', '}', '(', ')':
		l.pos++
		return token{kind: tokDelim, pos: start, delim: ch}, true, nil

	case '@':
		l.pos++
		return token{kind: tokValue, pos: start, val: value.Identity()}, true, nil

	case '"':
		s, err := l.scanString()
		if err != nil {
			return token{}, false, err
		}
		return token{kind: tokValue, pos: start, val: value.Str(s)}, true, nil

	case '=':
		if l.startsWith("==") {
			l.pos += 2
			return l.binopToken(start, "==")
		}
		l.pos++
		// Selector/mutator separator; the caller routes it.
		return token{kind: tokDelim, pos: start, delim: '='}, true, nil

	case '!':
		if l.startsWith("!=") {
			l.pos += 2
			return l.binopToken(start, "!=")
		}
		return token{}, false, &ParseError{Pos: start, Message: "expected '!='"}

	case '<':
		if l.startsWith("<=") {
			l.pos += 2
			return l.binopToken(start, "<=")
		}
		l.pos++
		return l.binopToken(start, "<")

	case '>':
		if l.startsWith(">=") {
			l.pos += 2
			return l.binopToken(start, ">=")
		}
		l.pos++
		return l.binopToken(start, ">")

	case '*':
		if l.startsWith("**") {
			l.pos += 2
			return l.binopToken(start, "**")
		}
		l.pos++
		return l.binopToken(start, "*")

	case '/':
		if l.startsWith("//") {
			l.pos += 2
			return l.binopToken(start, "//")
		}
		l.pos++
		return l.binopToken(start, "/")

	case '+', '-', '%', '&', '|', '^':
		l.pos++
		return l.binopToken(start, string(ch))
	}

	if isDigit(ch) {
		return l.scanNumber()
	}

	if ch == 'g' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '"' {
		l.pos++
		pat, err := l.scanString()
		if err != nil {
			return token{}, false, err
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return token{}, false, &ParseError{Pos: start, Message: "invalid regex: " + err.Error()}
		}
		return token{kind: tokValue, pos: start, val: value.Regex{Re: re}}, true, nil
	}

	if isIdentStart(rune(ch)) {
		return l.scanIdent()
	}

	return token{}, false, &ParseError{Pos: start, Message: "unexpected character " + strconv.QuoteRune(rune(ch))}
}

func (l *lexer) binopToken(pos int, name string) (token, bool, error) {
	op, ok := binops[name]
	if !ok {
		return token{}, false, &ParseError{Pos: pos, Message: "unknown operator " + name}
	}
	return token{kind: tokBinop, pos: pos, op: op}, true, nil
}

// scanString consumes a double-quoted string, cursor on the opening quote.
func (l *lexer) scanString() (string, error) {
	start := l.pos
	l.pos++ // consume opening quote

	var buf strings.Builder
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		switch ch {
		case '"':
			l.pos++
			return buf.String(), nil
		case '\\':
			l.pos++
			if l.pos >= len(l.src) {
				return "", &ParseError{Pos: l.pos, Message: "trailing backslash"}
			}
			switch l.src[l.pos] {
			case '\\', '"':
				buf.WriteByte(l.src[l.pos])
			case 'n':
				buf.WriteByte('\n')
			case 't':
				buf.WriteByte('\t')
			case 'r':
				buf.WriteByte('\r')
			default:
				return "", &ParseError{Pos: l.pos, Message: "invalid escape sequence"}
			}
			l.pos++
		default:
			buf.WriteByte(ch)
			l.pos++
		}
	}
	return "", &ParseError{Pos: start, Message: "unclosed string"}
}

func (l *lexer) scanNumber() (token, bool, error) {
	start := l.pos
	isFloat := false

	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	// A '.' is part of the number only when followed by a digit; otherwise
	// it is an indexer delimiter.
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		mark := l.pos
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			isFloat = true
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		} else {
			l.pos = mark
		}
	}

	text := l.src[start:l.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return token{}, false, &ParseError{Pos: start, Message: "invalid number " + text}
		}
		return token{kind: tokValue, pos: start, val: value.Float(f)}, true, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return token{}, false, &ParseError{Pos: start, Message: "invalid number " + text}
	}
	return token{kind: tokValue, pos: start, val: value.Int(i)}, true, nil
}

func (l *lexer) scanIdent() (token, bool, error) {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentChar(r) {
			break
		}
		l.pos += size
	}
	name := l.src[start:l.pos]

	switch name {
	case "true":
		return token{kind: tokValue, pos: start, val: value.Bool(true)}, true, nil
	case "false":
		return token{kind: tokValue, pos: start, val: value.Bool(false)}, true, nil
	case "null":
		return token{kind: tokValue, pos: start, val: value.Null{}}, true, nil
	}
	return token{kind: tokIdent, pos: start, ident: name}, true, nil
}

func (l *lexer) startsWith(prefix string) bool {
	return len(l.src)-l.pos >= len(prefix) && l.src[l.pos:l.pos+len(prefix)] == prefix
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
