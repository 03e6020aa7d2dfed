package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/value"
)

// JSONCodec uses encoding/json's token stream directly rather than
// unmarshaling into map[string]interface{}, since the stdlib decoder
// discards key order on the way into a Go map. Walking json.Decoder's
// tokens by hand is the only way to land in value.Object's
// insertion-ordered representation, which spec.md §4.C requires JSON to
// preserve.
type JSONCodec struct{}

func (JSONCodec) Parse(data []byte) (value.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return value.Value{}, &jinerr.ParseError{Format: "json", Message: err.Error()}
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return value.Value{}, err
	}
	return decodeJSONToken(dec, tok)
}

func decodeJSONToken(dec *json.Decoder, tok json.Token) (value.Value, error) {
	switch t := tok.(type) {
	case nil:
		return value.Null(), nil
	case bool:
		return value.Bool(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return value.Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return value.Float(f), nil
	case string:
		return value.String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []value.Value
			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return value.Value{}, err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return value.Value{}, err
			}
			return value.Array(items), nil
		case '{':
			obj := value.NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return value.Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return value.Value{}, fmt.Errorf("expected object key, got %v", keyTok)
				}
				v, err := decodeJSONValue(dec)
				if err != nil {
					return value.Value{}, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return value.Value{}, err
			}
			return value.ObjectValue(obj), nil
		}
	}
	return value.Value{}, fmt.Errorf("unexpected JSON token %v", tok)
}

func (JSONCodec) Serialize(v value.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeJSONValue(&buf, v, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeJSONValue(buf *bytes.Buffer, v value.Value, indent int) error {
	switch v.Kind() {
	case value.KindNull:
		buf.WriteString("null")
	case value.KindBool:
		b, _ := v.AsBool()
		buf.WriteString(strconv.FormatBool(b))
	case value.KindInt:
		i, _ := v.AsInt()
		buf.WriteString(strconv.FormatInt(i, 10))
	case value.KindFloat:
		f, _ := v.AsFloat()
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case value.KindString:
		s, _ := v.AsStr()
		b, err := json.Marshal(s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case value.KindArray:
		items, _ := v.AsArray()
		if len(items) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, item := range items {
			writeIndent(buf, indent+1)
			if err := encodeJSONValue(buf, item, indent+1); err != nil {
				return err
			}
			if i < len(items)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		writeIndent(buf, indent)
		buf.WriteByte(']')
	case value.KindObject:
		obj, _ := v.AsObject()
		keys := obj.Keys()
		if len(keys) == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		for i, k := range keys {
			writeIndent(buf, indent+1)
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteString(": ")
			val, _ := obj.Get(k)
			if err := encodeJSONValue(buf, val, indent+1); err != nil {
				return err
			}
			if i < len(keys)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		writeIndent(buf, indent)
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown value kind %d", v.Kind())
	}
	return nil
}

func writeIndent(buf *bytes.Buffer, n int) {
	for i := 0; i < n; i++ {
		buf.WriteString("  ")
	}
}
