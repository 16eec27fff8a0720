package schema

import (
	"slices"
	"strings"
)

// DefaultPropertyOrder is used for properties that do not declare a
// propertyOrder hint.
const DefaultPropertyOrder = 1000

// Type names understood by the editor registry.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
)

// Schema is the JSON Schema subset consumed by editors. Property order is
// preserved from the source document so composite editors can build their
// children in declaration order.
type Schema struct {
	Type              string      `json:"type,omitempty"`
	Title             string      `json:"title,omitempty"`
	Description       string      `json:"description,omitempty"`
	Format            string      `json:"format,omitempty"`
	Default           any         `json:"default,omitempty"`
	Properties        *Properties `json:"properties,omitempty"`
	DefaultProperties []string    `json:"defaultProperties,omitempty"`
	PropertyOrder     *int        `json:"propertyOrder,omitempty"`
	ReadOnly          bool        `json:"readOnly,omitempty"`
	Required          Required    `json:"required"`
	Options           Options     `json:"options"`
}

// Order returns the propertyOrder hint or DefaultPropertyOrder.
func (s *Schema) Order() int {
	if s == nil || s.PropertyOrder == nil {
		return DefaultPropertyOrder
	}
	return *s.PropertyOrder
}

// Property looks up a declared property schema.
func (s *Schema) Property(name string) (*Schema, bool) {
	if s == nil || s.Properties == nil {
		return nil, false
	}
	return s.Properties.Get(name)
}

// PropertyNames returns declared property names in source order.
func (s *Schema) PropertyNames() []string {
	if s == nil || s.Properties == nil {
		return nil
	}
	return s.Properties.Names()
}

// Is reports whether the schema type matches typ, ignoring case.
func (s *Schema) Is(typ string) bool {
	if s == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(s.Type), typ)
}

// Clone returns a deep copy. Defaults are copied so editors never alias
// shared default objects.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := *s
	out.Default = CloneValue(s.Default)
	out.DefaultProperties = slices.Clone(s.DefaultProperties)
	if s.PropertyOrder != nil {
		order := *s.PropertyOrder
		out.PropertyOrder = &order
	}
	out.Required = s.Required.clone()
	out.Options = s.Options.clone()
	if s.Properties != nil {
		out.Properties = s.Properties.Clone()
	}
	return &out
}

// CloneValue deep copies maps and slices produced by JSON/YAML decoding.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = CloneValue(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = CloneValue(v)
		}
		return clone
	default:
		return typed
	}
}
