package schema

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Parse decodes a JSON schema document.
func Parse(data []byte) (*Schema, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("schema: document is empty")
	}
	var out Schema
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("schema: decode json: %w", err)
	}
	return &out, nil
}

// ParseYAML decodes a YAML schema document. The node tree is re-encoded as
// ordered JSON so property order survives the trip through Parse.
func ParseYAML(data []byte) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("schema: decode yaml: %w", err)
	}
	if doc.Kind == 0 {
		return nil, errors.New("schema: document is empty")
	}
	var buf bytes.Buffer
	if err := writeNodeJSON(&buf, &doc); err != nil {
		return nil, fmt.Errorf("schema: convert yaml: %w", err)
	}
	return Parse(buf.Bytes())
}

// Decode parses a Document using the format implied by its location.
func Decode(doc Document) (*Schema, error) {
	switch doc.Format() {
	case FormatYAML:
		return ParseYAML(doc.Raw())
	default:
		return Parse(doc.Raw())
	}
}

func writeNodeJSON(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNodeJSON(buf, node.Content[0])
	case yaml.AliasNode:
		return writeNodeJSON(buf, node.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(node.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNodeJSON(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, child := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNodeJSON(buf, child); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(encoded)
		return nil
	default:
		return fmt.Errorf("unsupported yaml node kind %d at line %d", node.Kind, node.Line)
	}
}

func formatFromLocation(location string) Format {
	lower := strings.ToLower(strings.TrimSpace(location))
	switch {
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML
	default:
		return FormatJSON
	}
}
