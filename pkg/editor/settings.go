package editor

import "github.com/goliatone/go-formedit/pkg/schema"

// Settings is the merged configuration an editor runs with.
type Settings struct {
	Collapsed             bool
	DisableCollapse       bool
	RemoveEmptyProperties bool
	Image                 bool
	TableRow              bool
	RequiredByDefault     bool
	GridColumns           int
}

// ResolveSettings merges global defaults, schema-level options and
// instance-level overrides. Each layer only wins for the switches it sets, so
// a schema `disable_collapse: false` beats a global `true`, and an instance
// `remove_empty_properties` beats both.
func ResolveSettings(global, schemaLevel, instance schema.Options) Settings {
	var out Settings
	for _, layer := range []schema.Options{global, schemaLevel, instance} {
		apply(&out.Collapsed, layer.Collapsed)
		apply(&out.DisableCollapse, layer.DisableCollapse)
		apply(&out.RemoveEmptyProperties, layer.RemoveEmptyProperties)
		apply(&out.Image, layer.Image)
		apply(&out.TableRow, layer.TableRow)
		apply(&out.RequiredByDefault, layer.RequiredByDefault)
		if layer.GridColumns > 0 {
			out.GridColumns = layer.GridColumns
		}
	}
	return out
}

func apply(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
