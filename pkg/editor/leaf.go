package editor

import (
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-formedit/pkg/schema"
	"github.com/goliatone/go-formedit/pkg/view"
)

// StringEditor edits a plain string value through a text input.
type StringEditor struct {
	Base

	value   string
	label   *view.Element
	input   *view.Element
	control *view.Element
}

// NewStringEditor constructs a StringEditor.
func NewStringEditor(cfg Config) (Editor, error) {
	e := &StringEditor{}
	e.Base.Init(e, cfg)
	return e, nil
}

func (e *StringEditor) Build() error {
	if err := e.Base.Build(); err != nil {
		return err
	}
	e.label, e.input, e.control = buildInput(&e.Base, "text")
	e.input.On("change", func() {
		e.Input(e.input.Value())
	})
	return nil
}

// Input simulates the user editing the field.
func (e *StringEditor) Input(text string) {
	if !e.IsEnabled() {
		return
	}
	if text == e.value {
		return
	}
	e.value = text
	e.input.SetValue(text)
	e.OnChange(true)
}

// Element returns the input element.
func (e *StringEditor) Element() *view.Element { return e.input }

func (e *StringEditor) Value() any { return e.value }

func (e *StringEditor) SetValue(value any) {
	next := stringValue(value)
	if next == e.value {
		return
	}
	e.value = next
	e.input.SetValue(next)
	e.Notify()
}

func (e *StringEditor) Enable() {
	e.Base.Enable()
	if !e.ReadOnly() {
		e.input.SetDisabled(false)
	}
}

func (e *StringEditor) Disable() {
	e.Base.Disable()
	e.input.SetDisabled(true)
}

func (e *StringEditor) ShowValidationErrors(errs []ValidationError) {
	e.showInputErrors(e.input, errs)
}

func (e *StringEditor) Destroy() {
	if e.Destroyed() {
		return
	}
	e.control.Remove()
	e.Base.Destroy()
}

// NumberEditor edits an integer or number value. Integer schemas hold int
// values; number schemas hold float64. An empty field is nil.
type NumberEditor struct {
	Base

	value   any
	label   *view.Element
	input   *view.Element
	control *view.Element
}

// NewNumberEditor constructs a NumberEditor.
func NewNumberEditor(cfg Config) (Editor, error) {
	e := &NumberEditor{}
	e.Base.Init(e, cfg)
	return e, nil
}

func (e *NumberEditor) Build() error {
	if err := e.Base.Build(); err != nil {
		return err
	}
	e.label, e.input, e.control = buildInput(&e.Base, "number")
	e.input.On("change", func() {
		e.Input(e.input.Value())
	})
	return nil
}

// Input simulates the user editing the field. Unparseable text clears the
// value.
func (e *NumberEditor) Input(text string) {
	if !e.IsEnabled() {
		return
	}
	next := e.coerce(text)
	if next == e.value {
		return
	}
	e.value = next
	e.input.SetValue(formatNumber(next))
	e.OnChange(true)
}

// Element returns the input element.
func (e *NumberEditor) Element() *view.Element { return e.input }

func (e *NumberEditor) Value() any { return e.value }

func (e *NumberEditor) SetValue(value any) {
	next := e.coerce(value)
	if next == e.value {
		return
	}
	e.value = next
	e.input.SetValue(formatNumber(next))
	e.Notify()
}

func (e *NumberEditor) Enable() {
	e.Base.Enable()
	if !e.ReadOnly() {
		e.input.SetDisabled(false)
	}
}

func (e *NumberEditor) Disable() {
	e.Base.Disable()
	e.input.SetDisabled(true)
}

func (e *NumberEditor) ShowValidationErrors(errs []ValidationError) {
	e.showInputErrors(e.input, errs)
}

func (e *NumberEditor) Destroy() {
	if e.Destroyed() {
		return
	}
	e.control.Remove()
	e.Base.Destroy()
}

func (e *NumberEditor) coerce(value any) any {
	var f float64
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case float32:
		f = float64(v)
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if e.Schema().Is(schema.TypeInteger) {
		return int(math.Round(f))
	}
	return f
}

func formatNumber(value any) string {
	switch v := value.(type) {
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// buildInput appends a labelled input to the editor container.
func buildInput(b *Base, typ string) (label, input, control *view.Element) {
	theme := b.Theme()
	if b.container == nil {
		b.container = view.New("div")
	}
	label = theme.FormInputLabel(b.Title())
	input = theme.FormInputField(typ)
	input.SetAttr("name", b.Path())
	var description *view.Element
	if text := strings.TrimSpace(b.Schema().Description); text != "" {
		description = theme.FormInputDescription(text)
	}
	if b.ReadOnly() {
		input.SetDisabled(true)
	}
	control = theme.FormControl(label, input, description)
	b.container.AppendChild(control)
	return label, input, control
}
