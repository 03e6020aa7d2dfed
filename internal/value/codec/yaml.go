package codec

import (
	"strconv"

	"github.com/jinconfig/jin/internal/jinerr"
	"github.com/jinconfig/jin/internal/value"
	"gopkg.in/yaml.v3"
)

// YAMLCodec walks yaml.Node directly instead of unmarshaling into
// map[string]interface{}, for the same reason JSONCodec walks
// json.Decoder tokens: Node.Content preserves mapping key order, a plain
// Go map does not.
type YAMLCodec struct{}

func (YAMLCodec) Parse(data []byte) (value.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return value.Value{}, &jinerr.ParseError{Format: "yaml", Message: err.Error()}
	}
	if len(doc.Content) == 0 {
		return value.Null(), nil
	}
	return decodeYAMLNode(doc.Content[0])
}

func decodeYAMLNode(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null(), nil
		}
		return decodeYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return decodeYAMLNode(n.Alias)
	case yaml.ScalarNode:
		return decodeYAMLScalar(n), nil
	case yaml.SequenceNode:
		items := make([]value.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeYAMLNode(c)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, v)
		}
		return value.Array(items), nil
	case yaml.MappingNode:
		obj := value.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode := n.Content[i]
			valNode := n.Content[i+1]
			v, err := decodeYAMLNode(valNode)
			if err != nil {
				return value.Value{}, err
			}
			obj.Set(keyNode.Value, v)
		}
		return value.ObjectValue(obj), nil
	default:
		return value.Null(), nil
	}
}

func decodeYAMLScalar(n *yaml.Node) value.Value {
	switch n.Tag {
	case "!!null":
		return value.Null()
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return value.String(n.Value)
		}
		return value.Bool(b)
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return value.String(n.Value)
		}
		return value.Int(i)
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return value.String(n.Value)
		}
		return value.Float(f)
	default:
		return value.String(n.Value)
	}
}

func (YAMLCodec) Serialize(v value.Value) ([]byte, error) {
	node, err := encodeYAMLNode(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

func encodeYAMLNode(v value.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case value.KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case value.KindBool:
		b, _ := v.AsBool()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}, nil
	case value.KindInt:
		i, _ := v.AsInt()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(i, 10)}, nil
	case value.KindFloat:
		f, _ := v.AsFloat()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(f, 'g', -1, 64)}, nil
	case value.KindString:
		s, _ := v.AsStr()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}, nil
	case value.KindArray:
		items, _ := v.AsArray()
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range items {
			child, err := encodeYAMLNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case value.KindObject:
		obj, _ := v.AsObject()
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range obj.Keys() {
			val, _ := obj.Get(k)
			child, err := encodeYAMLNode(val)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, child)
		}
		return n, nil
	default:
		return nil, &jinerr.ParseError{Format: "yaml", Message: "unknown value kind"}
	}
}
