package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/frkr-io/frkr-mirror/internal/routing"
)

// Routes is an ordered set of pattern to stream mappings.
//
// In YAML it is written either as a mapping, whose key order is kept, or as
// a sequence of {pattern, streamId} objects.
type Routes []routing.Pattern

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Routes) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		out := make(Routes, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: route pattern and stream id must be strings", key.Line)
			}
			out = append(out, routing.Pattern{Pattern: key.Value, StreamID: value.Value})
		}
		*r = out
		return nil
	case yaml.SequenceNode:
		var list []routing.Pattern
		if err := node.Decode(&list); err != nil {
			return err
		}
		*r = list
		return nil
	default:
		return fmt.Errorf("line %d: routes must be a mapping or a list", node.Line)
	}
}

// MarshalYAML implements yaml.Marshaler, writing an ordered mapping.
func (r Routes) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range r {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Pattern},
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.StreamID},
		)
	}
	return node, nil
}

// Patterns returns the routes as routing patterns.
func (r Routes) Patterns() []routing.Pattern {
	out := make([]routing.Pattern, len(r))
	copy(out, r)
	return out
}
