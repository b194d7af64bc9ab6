package config

import (
	"fmt"
	"strings"

	"github.com/harrison/destclean/internal/cleaner"
	"gopkg.in/yaml.v3"
)

// ExtensionValue holds the extension option in one of its accepted shapes:
// a string, a list of strings, or a mapping whose values are a string or a
// list. Mappings keep their document order.
type ExtensionValue struct {
	value any
}

// NewExtensionValue wraps an already-shaped extension option.
func NewExtensionValue(v any) ExtensionValue {
	return ExtensionValue{value: v}
}

// IsSet reports whether an extension option was provided.
func (e ExtensionValue) IsSet() bool {
	return e.value != nil
}

// Value returns the option in a shape cleaner.Normalize accepts.
func (e ExtensionValue) Value() any {
	return e.value
}

// UnmarshalYAML decodes any of the three accepted shapes.
func (e *ExtensionValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			e.value = nil
			return nil
		}
		var s string
		if err := node.Decode(&s); err != nil {
			return fmt.Errorf("extension: %w", err)
		}
		e.value = s
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("extension: expected a list of strings: %w", err)
		}
		e.value = list
	case yaml.MappingNode:
		m := make(cleaner.ExtensionMap, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var from string
			if err := node.Content[i].Decode(&from); err != nil {
				return fmt.Errorf("extension: invalid key at line %d: %w", node.Content[i].Line, err)
			}
			to, err := decodeTargets(node.Content[i+1])
			if err != nil {
				return fmt.Errorf("extension %q: %w", from, err)
			}
			m = append(m, cleaner.ExtensionRule{From: from, To: to})
		}
		e.value = m
	default:
		return fmt.Errorf("extension: unsupported YAML node at line %d", node.Line)
	}
	return nil
}

func decodeTargets(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		return []string{s}, nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("expected a string or a list at line %d", node.Line)
	}
}

// ParseExtensionFlags builds an extension option from CLI flags.
//
// Each mapping is written "from=to[,to...]" and keeps its flag order. Plain
// extensions become a catch-all rule placed after every mapping. With no
// flags the result is unset.
func ParseExtensionFlags(exts []string, mappings []string) (ExtensionValue, error) {
	if len(mappings) == 0 {
		if len(exts) == 0 {
			return ExtensionValue{}, nil
		}
		return NewExtensionValue(append([]string(nil), exts...)), nil
	}

	m := make(cleaner.ExtensionMap, 0, len(mappings)+1)
	for _, raw := range mappings {
		from, to, ok := strings.Cut(raw, "=")
		if !ok || to == "" {
			return ExtensionValue{}, fmt.Errorf("invalid --ext-map %q, expected from=to[,to...]", raw)
		}
		m = append(m, cleaner.ExtensionRule{From: from, To: strings.Split(to, ",")})
	}
	if len(exts) > 0 {
		m = append(m, cleaner.ExtensionRule{From: "", To: append([]string(nil), exts...)})
	}
	return NewExtensionValue(m), nil
}
