package view

import (
	"maps"
	"slices"
	"strings"
)

// Element is a node of the headless visual surface editors build into. A host
// can render the tree (see pkg/render/html) or inspect it directly. Elements
// with an empty Tag are text nodes.
type Element struct {
	Tag string

	text     string
	attrs    map[string]string
	styles   map[string]string
	classes  []string
	hidden   bool
	children []*Element
	parent   *Element
	handlers map[string][]func()
}

// New creates an element with optional classes.
func New(tag string, classes ...string) *Element {
	el := &Element{Tag: strings.TrimSpace(tag)}
	for _, class := range classes {
		el.AddClass(class)
	}
	return el
}

// Text creates a text node.
func Text(content string) *Element {
	return &Element{text: content}
}

// IsText reports whether the element is a text node.
func (e *Element) IsText() bool {
	return e != nil && e.Tag == ""
}

// SetText replaces the children with a single text payload.
func (e *Element) SetText(content string) {
	if e == nil {
		return
	}
	e.Clear()
	e.text = content
}

// OwnText returns the text stored directly on the element.
func (e *Element) OwnText() string {
	if e == nil {
		return ""
	}
	return e.text
}

// TextContent concatenates the text of the element and its visible and
// hidden descendants, mirroring DOM textContent.
func (e *Element) TextContent() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	e.writeText(&b)
	return b.String()
}

func (e *Element) writeText(b *strings.Builder) {
	b.WriteString(e.text)
	for _, child := range e.children {
		child.writeText(b)
	}
}

// Attr returns an attribute value.
func (e *Element) Attr(name string) (string, bool) {
	if e == nil || e.attrs == nil {
		return "", false
	}
	v, ok := e.attrs[name]
	return v, ok
}

// Attrs returns a copy of the attribute map.
func (e *Element) Attrs() map[string]string {
	if e == nil || len(e.attrs) == 0 {
		return nil
	}
	return maps.Clone(e.attrs)
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(name, value string) {
	if e == nil {
		return
	}
	if e.attrs == nil {
		e.attrs = make(map[string]string)
	}
	e.attrs[name] = value
}

// RemoveAttr deletes an attribute.
func (e *Element) RemoveAttr(name string) {
	if e == nil || e.attrs == nil {
		return
	}
	delete(e.attrs, name)
}

// Style returns an inline style property.
func (e *Element) Style(prop string) string {
	if e == nil || e.styles == nil {
		return ""
	}
	return e.styles[prop]
}

// SetStyle sets an inline style property; an empty value removes it.
func (e *Element) SetStyle(prop, value string) {
	if e == nil {
		return
	}
	if value == "" {
		delete(e.styles, prop)
		return
	}
	if e.styles == nil {
		e.styles = make(map[string]string)
	}
	e.styles[prop] = value
}

// StyleString renders the inline styles in a stable order.
func (e *Element) StyleString() string {
	if e == nil || len(e.styles) == 0 {
		return ""
	}
	props := slices.Sorted(maps.Keys(e.styles))
	parts := make([]string, 0, len(props))
	for _, prop := range props {
		parts = append(parts, prop+": "+e.styles[prop])
	}
	return strings.Join(parts, "; ")
}

// AddClass appends a class once. Space separated lists are split.
func (e *Element) AddClass(class string) {
	if e == nil {
		return
	}
	for _, name := range strings.Fields(class) {
		if !slices.Contains(e.classes, name) {
			e.classes = append(e.classes, name)
		}
	}
}

// RemoveClass drops a class.
func (e *Element) RemoveClass(class string) {
	if e == nil {
		return
	}
	for _, name := range strings.Fields(class) {
		e.classes = slices.DeleteFunc(e.classes, func(c string) bool { return c == name })
	}
}

// HasClass reports whether the class is present.
func (e *Element) HasClass(class string) bool {
	return e != nil && slices.Contains(e.classes, class)
}

// Classes returns the class list.
func (e *Element) Classes() []string {
	if e == nil {
		return nil
	}
	return slices.Clone(e.classes)
}

// Show clears the hidden flag.
func (e *Element) Show() {
	if e != nil {
		e.hidden = false
	}
}

// Hide sets the hidden flag (display: none).
func (e *Element) Hide() {
	if e != nil {
		e.hidden = true
	}
}

// Hidden reports whether the element is hidden.
func (e *Element) Hidden() bool {
	return e != nil && e.hidden
}

// Disabled reports whether the disabled attribute is set.
func (e *Element) Disabled() bool {
	_, ok := e.Attr("disabled")
	return ok
}

// SetDisabled toggles the disabled attribute.
func (e *Element) SetDisabled(disabled bool) {
	if disabled {
		e.SetAttr("disabled", "disabled")
		return
	}
	e.RemoveAttr("disabled")
}

// Value returns the value attribute of form controls.
func (e *Element) Value() string {
	v, _ := e.Attr("value")
	return v
}

// SetValue sets the value attribute of form controls.
func (e *Element) SetValue(value string) {
	e.SetAttr("value", value)
}

// AppendChild attaches child as the last child, detaching it from any
// previous parent first.
func (e *Element) AppendChild(child *Element) {
	if e == nil || child == nil || child == e {
		return
	}
	child.Remove()
	child.parent = e
	e.children = append(e.children, child)
}

// RemoveChild detaches child and reports whether it was attached here.
func (e *Element) RemoveChild(child *Element) bool {
	if e == nil || child == nil {
		return false
	}
	idx := slices.Index(e.children, child)
	if idx < 0 {
		return false
	}
	e.children = slices.Delete(e.children, idx, idx+1)
	child.parent = nil
	return true
}

// Remove detaches the element from its parent.
func (e *Element) Remove() {
	if e == nil || e.parent == nil {
		return
	}
	e.parent.RemoveChild(e)
}

// Clear detaches every child and drops the text payload.
func (e *Element) Clear() {
	if e == nil {
		return
	}
	for _, child := range e.children {
		child.parent = nil
	}
	e.children = nil
	e.text = ""
}

// Children returns the attached children.
func (e *Element) Children() []*Element {
	if e == nil {
		return nil
	}
	return slices.Clone(e.children)
}

// Parent returns the parent element, nil when detached.
func (e *Element) Parent() *Element {
	if e == nil {
		return nil
	}
	return e.parent
}

// Contains reports whether other is e or one of its descendants.
func (e *Element) Contains(other *Element) bool {
	for node := other; node != nil; node = node.parent {
		if node == e {
			return true
		}
	}
	return false
}

// Find returns the first element in depth-first order matching fn.
func (e *Element) Find(fn func(*Element) bool) *Element {
	if e == nil || fn == nil {
		return nil
	}
	if fn(e) {
		return e
	}
	for _, child := range e.children {
		if found := child.Find(fn); found != nil {
			return found
		}
	}
	return nil
}

// On registers a handler for a named event.
func (e *Element) On(event string, fn func()) {
	if e == nil || fn == nil {
		return
	}
	if e.handlers == nil {
		e.handlers = make(map[string][]func())
	}
	e.handlers[event] = append(e.handlers[event], fn)
}

// Trigger runs the handlers registered for event. Clicks on disabled
// elements are swallowed.
func (e *Element) Trigger(event string) {
	if e == nil {
		return
	}
	if event == "click" && e.Disabled() {
		return
	}
	for _, fn := range slices.Clone(e.handlers[event]) {
		fn()
	}
}
