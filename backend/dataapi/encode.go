package dataapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/killrvideo/vector-acceptor/fixtures"
)

// Doc is a JSON object in a command body
type Doc = map[string]any

// Marshal encodes a command body. It behaves like encoding/json for the types
// used in commands, except that float elements equal to NaN or ±Inf are written
// as bare NaN, Infinity and -Infinity tokens so they reach the server as sent.
// Object keys are sorted.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case string:
		return encodeString(buf, x)
	case int:
		buf.WriteString(strconv.Itoa(x))
	case float64:
		buf.WriteString(fixtures.FormatFloat(x))
	case []float64:
		buf.WriteByte('[')
		for i, f := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(fixtures.FormatFloat(f))
		}
		buf.WriteByte(']')
	case []any:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []Doc:
		items := make([]any, len(x))
		for i, d := range x {
			items[i] = d
		}
		return encodeValue(buf, items)
	case Doc:
		buf.WriteByte('{')
		for i, k := range slices.Sorted(maps.Keys(x)) {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encodeValue(buf, x[k]); err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// vectorValue converts a fixture payload into the value sent for a vector field
func vectorValue(p fixtures.Payload) any {
	switch p.Kind {
	case fixtures.KindVector:
		return p.Values
	case fixtures.KindText:
		return p.Text
	default:
		return nil
	}
}
