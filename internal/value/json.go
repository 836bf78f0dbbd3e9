package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DecodeJSON parses a JSON document into the value model, preserving
// object key order. Numbers without a fraction or exponent decode as Int,
// everything else as Float.
func DecodeJSON(input []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()

	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}

	// Trailing garbage after the document is an error.
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON document")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeJSONToken(dec, tok)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch tok := tok.(type) {
	case json.Delim:
		switch tok {
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string: %v", kt)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		case '[':
			arr := Array{}
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", tok)
	case nil:
		return Null{}, nil
	case bool:
		return Bool(tok), nil
	case string:
		return Str(tok), nil
	case json.Number:
		if i, err := strconv.ParseInt(tok.String(), 10, 64); err == nil {
			return Int(i), nil
		}
		f, err := tok.Float64()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

// EncodeJSON renders a value as compact JSON, object keys in insertion
// order. Regexes render as their pattern string. Slice and deferred
// values have no JSON form and return an error.
func EncodeJSON(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJSON(buf *bytes.Buffer, v Value) error {
	switch v := v.(type) {
	case Null:
		buf.WriteString("null")
	case Bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case Float:
		b, err := json.Marshal(float64(v))
		if err != nil {
			return fmt.Errorf("cannot encode float: %v", err)
		}
		buf.Write(b)
	case Str:
		return encodeJSONString(buf, string(v))
	case Regex:
		return encodeJSONString(buf, v.Re.String())
	case Array:
		buf.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Object:
		buf.WriteByte('{')
		first := true
		for k, e := range v.Items() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err := encodeJSONString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encodeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("value of kind %s has no JSON form", v.Kind())
	}
	return nil
}

func encodeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
