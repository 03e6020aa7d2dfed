package codec

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/value"
)

// TOMLCodec decodes via BurntSushi/toml into a plain interface{} tree,
// then re-derives key order from toml.MetaData.Keys(), which reports
// every key path in the order it was first seen in the source. BurntSushi
// doesn't expose a node-level AST the way yaml.v3 does, so this
// two-pass approach is how jin keeps TOML's ordering promise (spec.md
// §4.C: "re-emitted in the codec's canonical order" for TOML) without
// hand-rolling a TOML parser.
type TOMLCodec struct{}

func (TOMLCodec) Parse(data []byte) (value.Value, error) {
	var raw map[string]interface{}
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return value.Value{}, &jinerr.ParseError{Format: "toml", Message: err.Error()}
	}

	order := make(map[string][]string) // dotted parent path -> ordered child names seen
	for _, k := range meta.Keys() {
		parts := []string(k)
		for i := range parts {
			parent := ""
			if i > 0 {
				parent = dottedJoin(parts[:i])
			}
			child := parts[i]
			if !containsStr(order[parent], child) {
				order[parent] = append(order[parent], child)
			}
		}
	}

	return buildTOMLValue("", raw, order), nil
}

func dottedJoin(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "." + p
	}
	return out
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func buildTOMLValue(path string, raw interface{}, order map[string][]string) value.Value {
	switch t := raw.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(t)
	case int64:
		return value.Int(t)
	case float64:
		return value.Float(t)
	case string:
		return value.String(t)
	case []interface{}:
		items := make([]value.Value, 0, len(t))
		for _, item := range t {
			items = append(items, buildTOMLValue(path, item, order))
		}
		return value.Array(items)
	case map[string]interface{}:
		obj := value.NewObject()
		keys := order[path]
		seen := make(map[string]bool, len(keys))
		for _, k := range keys {
			if v, ok := t[k]; ok {
				childPath := k
				if path != "" {
					childPath = path + "." + k
				}
				obj.Set(k, buildTOMLValue(childPath, v, order))
				seen[k] = true
			}
		}
		for k, v := range t {
			if !seen[k] {
				childPath := k
				if path != "" {
					childPath = path + "." + k
				}
				obj.Set(k, buildTOMLValue(childPath, v, order))
			}
		}
		return value.ObjectValue(obj)
	default:
		return value.String(fmt.Sprintf("%v", t))
	}
}

func (TOMLCodec) Serialize(v value.Value) ([]byte, error) {
	if value.ContainsNullRecursive(v) {
		return nil, &jinerr.UnsupportedForTomlNullError{Path: "$"}
	}
	if !v.IsObject() {
		return nil, fmt.Errorf("TOML root must be a table")
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(tomlEncodable(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// tomlEncodable converts a value.Value back into plain Go types that
// toml.Encoder understands. Objects become map[string]interface{}, so
// insertion order is not kept: BurntSushi re-emits keys in its own
// canonical (alphabetical) order, as spec.md §4.C documents as acceptable.
func tomlEncodable(v value.Value) interface{} {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool()
		return b
	case value.KindInt:
		i, _ := v.AsInt()
		return i
	case value.KindFloat:
		f, _ := v.AsFloat()
		return f
	case value.KindString:
		s, _ := v.AsStr()
		return s
	case value.KindArray:
		items, _ := v.AsArray()
		out := make([]interface{}, 0, len(items))
		for _, item := range items {
			out = append(out, tomlEncodable(item))
		}
		return out
	case value.KindObject:
		obj, _ := v.AsObject()
		out := make(map[string]interface{}, obj.Len())
		for _, k := range obj.Keys() {
			val, _ := obj.Get(k)
			out[k] = tomlEncodable(val)
		}
		return out
	default:
		return nil
	}
}
