package value

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DecodeYAML parses a YAML document into the value model. Decoding goes
// through yaml.Node so mapping key order survives, which the generic
// map-based decode would lose.
func DecodeYAML(input []byte) (Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(input, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return Null{}, nil
	}
	return yamlToValue(root.Content[0])
}

func yamlToValue(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return yamlToValue(n.Alias)
	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			val, err := yamlToValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make(Array, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := yamlToValue(c)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		return arr, nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!null":
			return Null{}, nil
		case "!!bool":
			b, err := strconv.ParseBool(n.Value)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid bool %q", n.Line, n.Value)
			}
			return Bool(b), nil
		case "!!int":
			i, err := strconv.ParseInt(n.Value, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid int %q", n.Line, n.Value)
			}
			return Int(i), nil
		case "!!float":
			f, err := strconv.ParseFloat(n.Value, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid float %q", n.Line, n.Value)
			}
			return Float(f), nil
		default:
			return Str(n.Value), nil
		}
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}
