package kvdoc

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FromYAML converts a YAML mapping node (or a document node holding one) to
// a List. Key order and duplicate keys survive, which is why this works on
// yaml.Node rather than on decoded maps. Nested mappings become *List,
// sequences of mappings become []Document, other sequences []any, and
// scalars are resolved by their YAML tags.
func FromYAML(node *yaml.Node) (*List, error) {
	node = yamlDeref(node)
	if node == nil {
		return nil, ErrNilDocument
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping, got %s", node.Line, yamlKindName(node.Kind))
	}
	l := NewList()
	for i := 0; i+1 < len(node.Content); i += 2 {
		kn, vn := yamlDeref(node.Content[i]), node.Content[i+1]
		if kn.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: keys must be scalars, got %s", kn.Line, yamlKindName(kn.Kind))
		}
		v, err := fromYAMLValue(vn)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", kn.Value, err)
		}
		l.entries = append(l.entries, &listEntry{key: kn.Value, value: v})
	}
	return l, nil
}

func yamlDeref(node *yaml.Node) *yaml.Node {
	for node != nil {
		switch node.Kind {
		case yaml.DocumentNode:
			if len(node.Content) == 0 {
				return nil
			}
			node = node.Content[0]
		case yaml.AliasNode:
			node = node.Alias
		default:
			return node
		}
	}
	return nil
}

func fromYAMLValue(node *yaml.Node) (any, error) {
	node = yamlDeref(node)
	if node == nil {
		return nil, nil
	}
	switch node.Kind {
	case yaml.MappingNode:
		return FromYAML(node)
	case yaml.SequenceNode:
		allMappings := len(node.Content) > 0
		for _, e := range node.Content {
			if en := yamlDeref(e); en == nil || en.Kind != yaml.MappingNode {
				allMappings = false
				break
			}
		}
		if allMappings {
			docs := make([]Document, len(node.Content))
			for i, e := range node.Content {
				d, err := FromYAML(e)
				if err != nil {
					return nil, err
				}
				docs[i] = d
			}
			return docs, nil
		}
		items := make([]any, len(node.Content))
		for i, e := range node.Content {
			v, err := fromYAMLValue(e)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return items, nil
	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return v, nil
	}
}

// ToYAML converts doc to a YAML mapping node. Marshal the result with
// yaml.Marshal; unlike a Go map, the node keeps order and duplicate keys.
func ToYAML(doc Document) (*yaml.Node, error) {
	if isNil(doc) {
		return nil, ErrNilDocument
	}
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for k, v := range All(doc) {
		vn, err := toYAMLValue(v)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, vn)
	}
	return node, nil
}

func toYAMLValue(v any) (*yaml.Node, error) {
	v = documentForm(v)
	if isNil(v) {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	switch v := v.(type) {
	case Document:
		return ToYAML(v)
	case []Document:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, d := range v {
			dn, err := toYAMLValue(d)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, dn)
		}
		return seq, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range v {
			en, err := toYAMLValue(e)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, en)
		}
		return seq, nil
	default:
		n := new(yaml.Node)
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return n, nil
	}
}

func yamlKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return fmt.Sprintf("kind %d", k)
	}
}
