package editor

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formedit/pkg/schema"
	"github.com/goliatone/go-formedit/pkg/view"
)

// Names of the children whose values are derived from the uploaded image.
const (
	WidthProperty  = "width"
	HeightProperty = "height"
)

func derived(name string) bool {
	return name == WidthProperty || name == HeightProperty
}

// childSet is an insertion ordered name to editor map.
type childSet struct {
	names  []string
	byName map[string]Editor
}

func newChildSet() *childSet {
	return &childSet{byName: make(map[string]Editor)}
}

func (c *childSet) get(name string) (Editor, bool) {
	if c == nil {
		return nil, false
	}
	ed, ok := c.byName[name]
	return ed, ok
}

func (c *childSet) set(name string, ed Editor) {
	if _, exists := c.byName[name]; !exists {
		c.names = append(c.names, name)
	}
	c.byName[name] = ed
}

func (c *childSet) delete(name string) {
	if _, exists := c.byName[name]; !exists {
		return
	}
	delete(c.byName, name)
	c.names = slices.DeleteFunc(c.names, func(n string) bool { return n == name })
}

func (c *childSet) keys() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.names)
}

func (c *childSet) each(fn func(name string, ed Editor)) {
	if c == nil {
		return
	}
	for _, name := range slices.Clone(c.names) {
		if ed, ok := c.byName[name]; ok {
			fn(name, ed)
		}
	}
}

// ImageEditor is the composite image editor. It owns one child editor per
// declared property, typically an upload control plus derived width and
// height numbers, and aggregates their values into a single record. Width and
// height are written only through OnImageUpload and stay disabled.
type ImageEditor struct {
	Base

	active  *childSet
	cache   *childSet
	mounted map[string]bool
	order   []string
	value   map[string]any
	built   bool

	title        *view.Element
	header       *view.Element
	description  *view.Element
	errorHolder  *view.Element
	editorHolder *view.Element
	rowContainer *view.Element
	controls     *view.Element
	toggle       *view.Element
	collapsed    bool
}

// NewImageEditor constructs an ImageEditor.
func NewImageEditor(cfg Config) (Editor, error) {
	e := &ImageEditor{}
	e.Base.Init(e, cfg)
	return e, nil
}

// Default returns a fresh copy of the schema default record.
func (e *ImageEditor) Default() map[string]any {
	if m, ok := schema.CloneValue(e.Schema().Default).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func (e *ImageEditor) PreBuild() error {
	if err := e.Base.PreBuild(); err != nil {
		return err
	}
	e.active = newChildSet()
	e.cache = newChildSet()
	e.mounted = make(map[string]bool)

	names := e.Schema().DefaultProperties
	if len(names) == 0 {
		names = e.Schema().PropertyNames()
	}
	for _, name := range names {
		if err := e.addProperty(name, true); err != nil {
			return err
		}
	}
	e.sortProperties()
	return nil
}

func (e *ImageEditor) Build() error {
	if err := e.Base.Build(); err != nil {
		return err
	}
	theme := e.Theme()
	if e.container == nil {
		e.container = view.New("div")
	}

	e.header = view.New("span")
	e.header.SetText(e.Title())
	e.title = theme.Header(e.header)
	e.container.AppendChild(e.title)
	e.container.SetStyle("position", "relative")

	if text := e.Schema().Description; text != "" {
		e.description = theme.Description(text)
		e.container.AppendChild(e.description)
	}

	e.errorHolder = view.New("div")
	e.container.AppendChild(e.errorHolder)

	e.editorHolder = theme.IndentedPanel()
	e.container.AppendChild(e.editorHolder)
	e.rowContainer = theme.GridContainer()
	e.editorHolder.AppendChild(e.rowContainer)

	// Mount in declared order, not in PropertyOrder.
	for _, name := range e.active.keys() {
		ed, _ := e.active.get(name)
		if err := e.mount(name, ed); err != nil {
			return err
		}
	}

	e.controls = theme.HeaderButtonHolder()
	e.title.AppendChild(e.controls)
	e.toggle = theme.Button("", "collapse", "Collapse")
	e.controls.AppendChild(e.toggle)
	e.toggle.On("click", e.Toggle)

	settings := e.Settings()
	if settings.Collapsed {
		e.toggle.Trigger("click")
	}
	if settings.DisableCollapse {
		e.toggle.Hide()
	}
	e.built = true
	return nil
}

func (e *ImageEditor) mount(name string, ed Editor) error {
	holder := e.Theme().GridColumn()
	if cols := ed.Settings().GridColumns; cols > 0 {
		holder.SetAttr("data-columns", strconv.Itoa(cols))
	}
	e.rowContainer.AppendChild(holder)
	ed.SetContainer(holder)
	if err := ed.Build(); err != nil {
		return fmt.Errorf("editor: build %s: %w", ed.Path(), err)
	}
	ed.PostBuild()
	if derived(name) {
		ed.Disable()
		ed.Hide()
	}
	e.mounted[name] = true
	return nil
}

// Toggle collapses or expands the child area.
func (e *ImageEditor) Toggle() {
	theme := e.Theme()
	if e.collapsed {
		e.editorHolder.Show()
		e.collapsed = false
		theme.SetButtonText(e.toggle, "", "collapse", "Collapse")
		return
	}
	e.editorHolder.Hide()
	e.collapsed = true
	theme.SetButtonText(e.toggle, "", "expand", "Expand")
}

// Collapsed reports whether the child area is hidden.
func (e *ImageEditor) Collapsed() bool { return e.collapsed }

// ToggleButton returns the collapse toggle.
func (e *ImageEditor) ToggleButton() *view.Element { return e.toggle }

// ErrorHolder returns the region showing errors addressed to the composite.
func (e *ImageEditor) ErrorHolder() *view.Element { return e.errorHolder }

func (e *ImageEditor) PostBuild() {
	e.Base.PostBuild()
	e.refreshValue()
}

func (e *ImageEditor) Enable() {
	e.Base.Enable()
	e.active.each(func(name string, ed Editor) {
		if !derived(name) {
			ed.Enable()
		}
	})
}

func (e *ImageEditor) Disable() {
	e.Base.Disable()
	e.active.each(func(_ string, ed Editor) {
		ed.Disable()
	})
}

func (e *ImageEditor) Register() {
	e.Base.Register()
	e.active.each(func(_ string, ed Editor) {
		ed.Register()
	})
}

func (e *ImageEditor) Unregister() {
	e.Base.Unregister()
	e.active.each(func(_ string, ed Editor) {
		ed.Unregister()
	})
}

// OnChildEditorChange recomputes the aggregate and forwards the change.
func (e *ImageEditor) OnChildEditorChange(child Editor) {
	e.refreshValue()
	e.OnChange(true)
}

// OnImageUpload writes decoded dimensions into the width and height children.
// Zero metadata clears them. It does not recompute the aggregate.
func (e *ImageEditor) OnImageUpload(meta ImageMetadata) {
	var width, height any
	if !meta.IsZero() {
		width, height = meta.Width, meta.Height
	}
	if ed, ok := e.active.get(WidthProperty); ok {
		ed.SetValue(width)
	}
	if ed, ok := e.active.get(HeightProperty); ok {
		ed.SetValue(height)
	}
}

// Value returns a copy of the aggregate. With remove_empty_properties set,
// falsy entries are left out of the copy.
func (e *ImageEditor) Value() any {
	if e.value == nil {
		e.refreshValue()
	}
	out := maps.Clone(e.value)
	if e.Settings().RemoveEmptyProperties {
		maps.DeleteFunc(out, func(_ string, v any) bool {
			return falsy(v)
		})
	}
	return out
}

// SetValue pushes the entries of a record into the matching children.
// Children without an entry keep their value.
func (e *ImageEditor) SetValue(value any) {
	record, _ := value.(map[string]any)
	e.active.each(func(name string, ed Editor) {
		if v, ok := record[name]; ok {
			ed.SetValue(v)
		}
	})
	e.refreshValue()
	e.Notify()
}

// ValueJSON encodes Value with keys in declared order.
func (e *ImageEditor) ValueJSON() ([]byte, error) {
	record, _ := e.Value().(map[string]any)
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, name := range e.active.keys() {
		v, ok := record[name]
		if !ok {
			continue
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("editor: encode %s: %w", name, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (e *ImageEditor) ShowValidationErrors(errs []ValidationError) {
	mine, others := partitionErrors(e.Path(), errs)
	theme := e.Theme()

	if e.errorHolder != nil {
		if len(mine) > 0 {
			e.errorHolder.Clear()
			e.errorHolder.Show()
			for _, err := range mine {
				e.errorHolder.AppendChild(theme.ErrorMessage(err.Message))
			}
		} else {
			e.errorHolder.Hide()
		}
	}

	if e.Settings().TableRow && e.container != nil {
		if len(mine) > 0 {
			theme.AddTableRowError(e.container)
		} else {
			theme.RemoveTableRowError(e.container)
		}
	}

	e.active.each(func(_ string, ed Editor) {
		ed.ShowValidationErrors(others)
	})
}

// Destroy destroys every cached child, including removed ones, and releases
// the registries. Later calls are no-ops.
func (e *ImageEditor) Destroy() {
	if e.Destroyed() {
		return
	}
	e.cache.each(func(_ string, ed Editor) {
		ed.Destroy()
	})
	if e.editorHolder != nil {
		e.editorHolder.Clear()
	}
	e.title.Remove()
	e.description.Remove()
	e.errorHolder.Remove()
	e.editorHolder.Remove()

	e.active = nil
	e.cache = nil
	e.mounted = nil
	e.editorHolder = nil
	e.rowContainer = nil
	e.Base.Destroy()
}

// AddProperty activates a declared property after construction. Cached
// editors are reused and re-registered; undeclared names are ignored.
func (e *ImageEditor) AddProperty(name string) error {
	if e.Destroyed() || e.active == nil {
		return nil
	}
	if _, ok := e.active.get(name); ok {
		return nil
	}
	if err := e.addProperty(name, !e.built); err != nil {
		return err
	}
	if _, ok := e.active.get(name); !ok {
		return nil
	}
	e.sortProperties()
	e.refreshValue()
	e.OnChange(true)
	return nil
}

// RemoveProperty deactivates a child. It stays cached, hidden, and is
// destroyed with the composite.
func (e *ImageEditor) RemoveProperty(name string) {
	ed, ok := e.active.get(name)
	if !ok {
		return
	}
	ed.Unregister()
	ed.Hide()
	e.active.delete(name)
	e.sortProperties()
	e.refreshValue()
	e.OnChange(true)
}

func (e *ImageEditor) addProperty(name string, prebuildOnly bool) error {
	if _, ok := e.active.get(name); ok {
		return nil
	}

	if ed, ok := e.cache.get(name); ok {
		e.active.set(name, ed)
		if prebuildOnly {
			return nil
		}
		if !e.mounted[name] {
			if err := e.mount(name, ed); err != nil {
				return err
			}
		} else {
			ed.Show()
		}
		ed.Register()
		return nil
	}

	prop, ok := e.Schema().Property(name)
	if !ok {
		return nil
	}
	childSchema := prop.Clone()
	kind, err := e.Host().EditorKind(childSchema)
	if err != nil {
		return fmt.Errorf("editor: property %s: %w", name, err)
	}
	ed, err := e.Host().CreateEditor(kind, Config{
		Schema: childSchema,
		Key:    name,
		Path:   e.Path() + "." + name,
		Parent: e,
	})
	if err != nil {
		return err
	}
	if err := ed.PreBuild(); err != nil {
		return fmt.Errorf("editor: prebuild %s: %w", ed.Path(), err)
	}
	if !prebuildOnly {
		if err := e.mount(name, ed); err != nil {
			return err
		}
		if e.Registered() {
			ed.Register()
		}
	}
	e.cache.set(name, ed)
	e.active.set(name, ed)
	return nil
}

func (e *ImageEditor) sortProperties() {
	names := e.active.keys()
	sort.SliceStable(names, func(i, j int) bool {
		a, _ := e.active.get(names[i])
		b, _ := e.active.get(names[j])
		return a.Schema().Order() < b.Schema().Order()
	})
	e.order = names
}

// PropertyOrder returns the active keys sorted by their propertyOrder hint.
// It is used for display sequencing only.
func (e *ImageEditor) PropertyOrder() []string {
	return slices.Clone(e.order)
}

// Properties returns the active keys in declared order.
func (e *ImageEditor) Properties() []string {
	return e.active.keys()
}

// Child returns the active child editor for name.
func (e *ImageEditor) Child(name string) (Editor, bool) {
	return e.active.get(name)
}

// Cached returns the cached child editor for name, active or not.
func (e *ImageEditor) Cached(name string) (Editor, bool) {
	return e.cache.get(name)
}

// IsRequired reports whether child is required: a boolean `required` on the
// child schema wins, then the parent's required list, then the
// required_by_default setting.
func (e *ImageEditor) IsRequired(child Editor) bool {
	if flag := child.Schema().Required.Flag; flag != nil {
		return *flag
	}
	if names := e.Schema().Required.Names; names != nil {
		return slices.Contains(names, child.Key())
	}
	return e.Settings().RequiredByDefault
}

func (e *ImageEditor) refreshValue() {
	value := make(map[string]any)
	e.active.each(func(name string, ed Editor) {
		value[name] = ed.Value()
	})
	e.value = value
}

func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case int:
		return x == 0
	case int64:
		return x == 0
	case float64:
		return x == 0
	default:
		return false
	}
}
