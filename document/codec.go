package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ErrEmpty is returned by Parse when the input holds no value at all.
var ErrEmpty = errors.New("empty document")

// Parse decodes JSON text into a Value.
//
// On a syntax error the returned Value holds everything that was decoded
// completely before the error: containers keep their finished members and
// drop the one being decoded. The error is returned alongside so callers can
// decide whether a partial tree is good enough.
func Parse(data []byte) (Value, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a single JSON value from r. See Parse for partial results.
func Decode(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	p := parser{dec: dec}

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Null(), ErrEmpty
		}
		return Null(), fmt.Errorf("parse document: %w", err)
	}
	v, err := p.fromToken(tok)
	if err != nil {
		return v, fmt.Errorf("parse document: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("trailing data after top-level value")
		}
		return v, fmt.Errorf("parse document: %w", err)
	}
	return v, nil
}

type parser struct {
	dec *json.Decoder
}

func (p *parser) next() (Value, error) {
	tok, err := p.dec.Token()
	if err != nil {
		return Null(), unexpectedEOF(err)
	}
	return p.fromToken(tok)
}

func (p *parser) fromToken(tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return p.object()
		case '[':
			return p.array()
		}
		return Null(), fmt.Errorf("unexpected delimiter %q", rune(t))
	case bool:
		return Bool(t), nil
	case json.Number:
		return numberValue(t), nil
	case string:
		return String(t), nil
	case nil:
		return Null(), nil
	}
	return Null(), fmt.Errorf("unexpected token %v", tok)
}

func (p *parser) object() (Value, error) {
	obj := NewObject()
	for p.dec.More() {
		tok, err := p.dec.Token()
		if err != nil {
			return ObjectValue(obj), unexpectedEOF(err)
		}
		key, ok := tok.(string)
		if !ok {
			return ObjectValue(obj), fmt.Errorf("object key %v is not a string", tok)
		}
		v, err := p.next()
		if err != nil {
			return ObjectValue(obj), err
		}
		obj.Set(key, v)
	}
	if _, err := p.dec.Token(); err != nil {
		return ObjectValue(obj), unexpectedEOF(err)
	}
	return ObjectValue(obj), nil
}

func (p *parser) array() (Value, error) {
	elems := []Value{}
	for p.dec.More() {
		v, err := p.next()
		if err != nil {
			return Array(elems...), err
		}
		elems = append(elems, v)
	}
	if _, err := p.dec.Token(); err != nil {
		return Array(elems...), unexpectedEOF(err)
	}
	return Array(elems...), nil
}

func numberValue(n json.Number) Value {
	if i, err := n.Int64(); err == nil {
		return Int(i)
	}
	if u, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
		return Uint(u)
	}
	f, err := n.Float64()
	if err != nil {
		return Null()
	}
	return Float(f)
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Marshal renders v as JSON text, indented with two spaces when pretty is set.
func Marshal(v Value, pretty bool) []byte {
	var buf bytes.Buffer
	writeValue(&buf, v)
	if !pretty {
		return buf.Bytes()
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return buf.Bytes()
	}
	return out.Bytes()
}

// MarshalJSON implements json.Marshaler using the compact form.
func (v Value) MarshalJSON() ([]byte, error) {
	return Marshal(v, false), nil
}

// UnmarshalJSON implements json.Unmarshaler. Unlike Parse it rejects
// malformed input without keeping a partial tree.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func writeValue(buf *bytes.Buffer, v Value) {
	switch v.kind {
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			buf.WriteString("null")
			return
		}
		buf.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		writeString(buf, v.s)
	case KindArray:
		buf.WriteByte('[')
		for i, elem := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeValue(buf, elem)
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		if v.obj != nil {
			for i, key := range v.obj.keys {
				if i > 0 {
					buf.WriteByte(',')
				}
				writeString(buf, key)
				buf.WriteByte(':')
				writeValue(buf, v.obj.vals[key])
			}
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
}
