package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/goccy/go-json"
)

// OpenAPI vendor extensions mapped onto editor schema fields. OpenAPI
// property maps are unordered, so x-default-properties is the way to pin the
// child order of a component; without it names are sorted.
const (
	extensionOptions           = "x-editor-options"
	extensionPropertyOrder     = "x-property-order"
	extensionDefaultProperties = "x-default-properties"
)

// FromOpenAPI loads an OpenAPI 3 document and converts the named component
// schema into an editor schema.
func FromOpenAPI(ctx context.Context, raw []byte, component string) (*Schema, error) {
	if len(raw) == 0 {
		return nil, errors.New("schema: openapi document is empty")
	}
	name := strings.TrimSpace(component)
	if name == "" {
		return nil, errors.New("schema: component name is required")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("schema: load openapi: %w", err)
	}
	if spec.Components == nil || spec.Components.Schemas == nil {
		return nil, fmt.Errorf("schema: openapi document has no component %q", name)
	}
	ref, ok := spec.Components.Schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("schema: openapi document has no component %q", name)
	}
	return convertOpenAPI(ref, 0)
}

// maxOpenAPIDepth stops runaway recursion on cyclic component references.
const maxOpenAPIDepth = 32

func convertOpenAPI(ref *openapi3.SchemaRef, depth int) (*Schema, error) {
	if ref == nil || ref.Value == nil {
		return &Schema{}, nil
	}
	if depth > maxOpenAPIDepth {
		return nil, fmt.Errorf("schema: openapi nesting deeper than %d (cycle via %q?)", maxOpenAPIDepth, ref.Ref)
	}
	src := ref.Value
	out := &Schema{
		Type:        firstType(src.Type),
		Title:       src.Title,
		Description: src.Description,
		Format:      src.Format,
		Default:     CloneValue(src.Default),
		ReadOnly:    src.ReadOnly,
	}
	if len(src.Required) > 0 {
		out.Required.Names = append([]string(nil), src.Required...)
	}

	if len(src.Properties) > 0 {
		names := make([]string, 0, len(src.Properties))
		for name := range src.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		out.Properties = NewProperties()
		for _, name := range names {
			child, err := convertOpenAPI(src.Properties[name], depth+1)
			if err != nil {
				return nil, err
			}
			out.Properties.Set(name, child)
		}
	}

	if err := applyExtensions(out, src.Extensions); err != nil {
		return nil, err
	}
	return out, nil
}

func applyExtensions(out *Schema, extensions map[string]any) error {
	if len(extensions) == 0 {
		return nil
	}
	if raw, ok := extensions[extensionOptions]; ok {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("schema: encode %s: %w", extensionOptions, err)
		}
		if err := json.Unmarshal(encoded, &out.Options); err != nil {
			return fmt.Errorf("schema: decode %s: %w", extensionOptions, err)
		}
	}
	if raw, ok := extensions[extensionPropertyOrder]; ok {
		if order, ok := toInt(raw); ok {
			out.PropertyOrder = &order
		}
	}
	if raw, ok := extensions[extensionDefaultProperties].([]any); ok {
		for _, item := range raw {
			if name, ok := item.(string); ok && strings.TrimSpace(name) != "" {
				out.DefaultProperties = append(out.DefaultProperties, strings.TrimSpace(name))
			}
		}
	}
	return nil
}

func firstType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
