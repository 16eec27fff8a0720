package schema

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Properties is an insertion-ordered map of property schemas.
type Properties struct {
	names  []string
	byName map[string]*Schema
}

// NewProperties returns an empty property set.
func NewProperties() *Properties {
	return &Properties{byName: make(map[string]*Schema)}
}

// Set adds or replaces a property. New names are appended to the order.
func (p *Properties) Set(name string, s *Schema) {
	if p.byName == nil {
		p.byName = make(map[string]*Schema)
	}
	if _, exists := p.byName[name]; !exists {
		p.names = append(p.names, name)
	}
	p.byName[name] = s
}

// Get returns the schema registered for name.
func (p *Properties) Get(name string) (*Schema, bool) {
	if p == nil || p.byName == nil {
		return nil, false
	}
	s, ok := p.byName[name]
	return s, ok && s != nil
}

// Names returns property names in declaration order.
func (p *Properties) Names() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.names)
}

// Len reports the number of declared properties.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}

// Clone deep copies the property set.
func (p *Properties) Clone() *Properties {
	out := NewProperties()
	if p == nil {
		return out
	}
	for _, name := range p.names {
		out.Set(name, p.byName[name].Clone())
	}
	return out
}

// UnmarshalJSON decodes the property map and records key order. Values go
// through go-json; the order is read from a yaml.v3 node tree, which parses
// JSON objects as flow mappings without losing key order.
func (p *Properties) UnmarshalJSON(data []byte) error {
	values := make(map[string]*Schema)
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	order, err := mappingKeys(data)
	if err != nil {
		return fmt.Errorf("schema: read property order: %w", err)
	}

	p.names = nil
	p.byName = make(map[string]*Schema, len(values))
	for _, name := range order {
		if s, ok := values[name]; ok {
			p.Set(name, s)
		}
	}
	return nil
}

// MarshalJSON encodes properties in declaration order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for idx, name := range p.names {
		if idx > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(p.byName[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func mappingKeys(data []byte) ([]string, error) {
	// YAML rejects tab indentation, JSON does not.
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(compact.Bytes(), &doc); err != nil {
		return nil, err
	}
	node := &doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected object, got %s", node.Tag)
	}
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys, nil
}

// Required captures both JSON Schema spellings: a boolean on the property
// itself or a list of names on the parent object.
type Required struct {
	Flag  *bool
	Names []string
}

// Has reports whether name is listed as required.
func (r Required) Has(name string) bool {
	return slices.Contains(r.Names, name)
}

// UnmarshalJSON accepts `true`, `false` or an array of names.
func (r *Required) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return nil
	case len(trimmed) > 0 && trimmed[0] == '[':
		return json.Unmarshal(trimmed, &r.Names)
	default:
		var flag bool
		if err := json.Unmarshal(trimmed, &flag); err != nil {
			return fmt.Errorf("schema: required must be a boolean or array: %w", err)
		}
		r.Flag = &flag
		return nil
	}
}

// MarshalJSON mirrors UnmarshalJSON.
func (r Required) MarshalJSON() ([]byte, error) {
	switch {
	case len(r.Names) > 0:
		return json.Marshal(r.Names)
	case r.Flag != nil:
		return json.Marshal(*r.Flag)
	default:
		return []byte("null"), nil
	}
}

func (r Required) clone() Required {
	out := Required{Names: slices.Clone(r.Names)}
	if r.Flag != nil {
		flag := *r.Flag
		out.Flag = &flag
	}
	return out
}
