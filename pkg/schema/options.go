package schema

// Options is the `options` block of a property schema. Boolean switches are
// tri-state so an unset value can fall through to broader defaults.
type Options struct {
	Collapsed             *bool  `json:"collapsed,omitempty"`
	DisableCollapse       *bool  `json:"disable_collapse,omitempty"`
	RemoveEmptyProperties *bool  `json:"remove_empty_properties,omitempty"`
	Image                 *bool  `json:"image,omitempty"`
	TableRow              *bool  `json:"table_row,omitempty"`
	Upload                *bool  `json:"upload,omitempty"`
	RequiredByDefault     *bool  `json:"required_by_default,omitempty"`
	Editor                string `json:"editor,omitempty"`
	GridColumns           int    `json:"grid_columns,omitempty"`
}

// Bool returns a pointer to v. Handy when building schemas in code.
func Bool(v bool) *bool {
	return &v
}

func (o Options) clone() Options {
	out := o
	out.Collapsed = cloneBool(o.Collapsed)
	out.DisableCollapse = cloneBool(o.DisableCollapse)
	out.RemoveEmptyProperties = cloneBool(o.RemoveEmptyProperties)
	out.Image = cloneBool(o.Image)
	out.TableRow = cloneBool(o.TableRow)
	out.Upload = cloneBool(o.Upload)
	out.RequiredByDefault = cloneBool(o.RequiredByDefault)
	return out
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
