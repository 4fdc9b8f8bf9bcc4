// Package extract walks decoded scraper records and finds media URLs in them.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rotisserie/eris"
)

// Value is a decoded JSON value. It is one of Null, Bool, Number, String,
// Array or Object.
type Value interface {
	isValue()
}

// Null is the JSON null literal.
type Null struct{}

// Bool is a JSON boolean.
type Bool bool

// Number is a JSON number in its literal form.
type Number string

// String is a JSON string.
type String string

// Array is a JSON array in index order.
type Array []Value

// Field is one member of an Object.
type Field struct {
	Key   string
	Value Value
}

// Object is a JSON object whose members keep their declaration order.
type Object struct {
	Fields []Field
}

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Number) isValue() {}
func (String) isValue() {}
func (Array) isValue()  {}
func (Object) isValue() {}

// Get returns the member stored under key. Duplicate keys resolve to the
// last declaration.
func (o Object) Get(key string) (Value, bool) {
	for i := len(o.Fields) - 1; i >= 0; i-- {
		if o.Fields[i].Key == key {
			return o.Fields[i].Value, true
		}
	}
	return nil, false
}

// Parse decodes a single JSON document, preserving object member order.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, 0)
	if err != nil {
		return nil, eris.Wrap(err, "extract: parse")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, eris.New("extract: parse: trailing data after document")
	}
	return v, nil
}

// ParseRecords decodes raw records, as returned by a dataset page, into values.
func ParseRecords(raw []json.RawMessage) ([]Value, error) {
	out := make([]Value, 0, len(raw))
	for i, r := range raw {
		v, err := Parse(r)
		if err != nil {
			return nil, eris.Wrapf(err, "extract: record %d", i)
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if depth >= MaxDepth {
			return nil, fmt.Errorf("nesting exceeds %d levels", MaxDepth)
		}
		switch t {
		case '[':
			arr := Array{}
			for dec.More() {
				v, err := decodeValue(dec, depth+1)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		case '{':
			obj := Object{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not string", kt)
				}
				v, err := decodeValue(dec, depth+1)
				if err != nil {
					return nil, err
				}
				obj.Fields = append(obj.Fields, Field{Key: key, Value: v})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %T", tok)
	}
}

// FromAny converts generically decoded data (maps, slices and scalars as
// produced by encoding/json or yaml.v3) into a Value. Map members are
// ordered by key since Go maps carry no declaration order.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null{}
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case json.Number:
		return Number(t)
	case float64:
		return Number(fmt.Sprint(t))
	case float32:
		return Number(fmt.Sprint(t))
	case int:
		return Number(fmt.Sprint(t))
	case int64:
		return Number(fmt.Sprint(t))
	case []any:
		arr := make(Array, 0, len(t))
		for _, e := range t {
			arr = append(arr, FromAny(e))
		}
		return arr
	case []string:
		arr := make(Array, 0, len(t))
		for _, e := range t {
			arr = append(arr, String(e))
		}
		return arr
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := Object{Fields: make([]Field, 0, len(keys))}
		for _, k := range keys {
			obj.Fields = append(obj.Fields, Field{Key: k, Value: FromAny(t[k])})
		}
		return obj
	default:
		return Null{}
	}
}
