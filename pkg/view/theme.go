package view

import (
	"html"
	"maps"
	"strconv"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"
)

// Token keys read from a go-theme renderer configuration. Any token with the
// "editor." prefix overrides the matching class list.
const (
	TokenHeader        = "editor.header"
	TokenDescription   = "editor.description"
	TokenPanel         = "editor.panel"
	TokenGrid          = "editor.grid"
	TokenGridColumn    = "editor.grid-column"
	TokenChildHolder   = "editor.child"
	TokenButtonHolder  = "editor.button-holder"
	TokenButton        = "editor.button"
	TokenLabel         = "editor.label"
	TokenInput         = "editor.input"
	TokenHelp          = "editor.help"
	TokenControl       = "editor.control"
	TokenErrorMessage  = "editor.error"
	TokenInputError    = "editor.input-error"
	TokenTableRowError = "editor.table-row-error"
	TokenProgress      = "editor.progress"
	TokenImage         = "editor.image"
)

// ErrorAttr carries the message of an input error decoration.
const ErrorAttr = "data-error"

func defaultTokens() map[string]string {
	return map[string]string{
		TokenHeader:        "editor-header",
		TokenDescription:   "editor-description",
		TokenPanel:         "editor-panel",
		TokenGrid:          "editor-grid",
		TokenGridColumn:    "editor-grid-column",
		TokenChildHolder:   "editor-child",
		TokenButtonHolder:  "editor-buttons",
		TokenButton:        "editor-button",
		TokenLabel:         "editor-label",
		TokenInput:         "editor-input",
		TokenHelp:          "editor-help",
		TokenControl:       "editor-control",
		TokenErrorMessage:  "editor-error",
		TokenInputError:    "is-invalid",
		TokenTableRowError: "table-row-error",
		TokenProgress:      "editor-progress",
		TokenImage:         "editor-image",
	}
}

// Theme builds the chrome elements editors attach to their containers.
type Theme struct {
	config *theme.RendererConfig
	tokens map[string]string
}

// NewTheme derives a Theme from a go-theme renderer configuration. A nil
// config yields the built-in classes.
func NewTheme(cfg *theme.RendererConfig) *Theme {
	tokens := defaultTokens()
	if cfg != nil {
		for key, value := range cfg.Tokens {
			if strings.HasPrefix(key, "editor.") {
				tokens[key] = strings.TrimSpace(value)
			}
		}
	}
	return &Theme{config: cfg, tokens: tokens}
}

// DefaultTheme returns a Theme with built-in classes.
func DefaultTheme() *Theme {
	return NewTheme(nil)
}

// Name reports the go-theme name, if any.
func (t *Theme) Name() string {
	if t == nil || t.config == nil {
		return ""
	}
	return t.config.Theme
}

// CSSVars returns the CSS custom properties declared by the theme.
func (t *Theme) CSSVars() map[string]string {
	if t == nil || t.config == nil {
		return nil
	}
	return maps.Clone(t.config.CSSVars)
}

// Class returns the class list configured for a token.
func (t *Theme) Class(token string) string {
	if t == nil {
		return defaultTokens()[token]
	}
	return t.tokens[token]
}

// SupportsProgress reports whether upload progress bars are rendered. Themes
// opt out by setting the progress token to "none".
func (t *Theme) SupportsProgress() bool {
	return t.Class(TokenProgress) != "none"
}

// Header wraps a title element.
func (t *Theme) Header(title *Element) *Element {
	el := New("h3", t.Class(TokenHeader))
	el.AppendChild(title)
	return el
}

// Description renders schema help text.
func (t *Theme) Description(text string) *Element {
	el := New("p", t.Class(TokenDescription))
	el.SetText(sanitizeText(text))
	return el
}

func (t *Theme) IndentedPanel() *Element      { return New("div", t.Class(TokenPanel)) }
func (t *Theme) GridContainer() *Element      { return New("div", t.Class(TokenGrid)) }
func (t *Theme) GridColumn() *Element         { return New("div", t.Class(TokenGridColumn)) }
func (t *Theme) ChildEditorHolder() *Element  { return New("div", t.Class(TokenChildHolder)) }
func (t *Theme) HeaderButtonHolder() *Element { return New("span", t.Class(TokenButtonHolder)) }

// Button creates a button with an icon hint and a title.
func (t *Theme) Button(text, icon, title string) *Element {
	el := New("button", t.Class(TokenButton))
	el.SetAttr("type", "button")
	t.SetButtonText(el, text, icon, title)
	return el
}

// SetButtonText updates the label, icon and title of a button.
func (t *Theme) SetButtonText(button *Element, text, icon, title string) {
	if button == nil {
		return
	}
	button.SetText(text)
	if icon != "" {
		button.SetAttr("data-icon", icon)
	} else {
		button.RemoveAttr("data-icon")
	}
	if title != "" {
		button.SetAttr("title", title)
	}
}

// FormInputLabel creates a label.
func (t *Theme) FormInputLabel(text string) *Element {
	el := New("label", t.Class(TokenLabel))
	el.SetText(sanitizeText(text))
	return el
}

// FormInputField creates an input of the given type.
func (t *Theme) FormInputField(typ string) *Element {
	el := New("input", t.Class(TokenInput))
	el.SetAttr("type", typ)
	return el
}

// FormInputDescription creates the help/preview area below an input.
func (t *Theme) FormInputDescription(text string) *Element {
	el := New("div", t.Class(TokenHelp))
	if text != "" {
		el.SetText(sanitizeText(text))
	}
	return el
}

// FormControl groups a label, input and description.
func (t *Theme) FormControl(label, input, description *Element) *Element {
	el := New("div", t.Class(TokenControl))
	for _, child := range []*Element{label, input, description} {
		if child != nil {
			el.AppendChild(child)
		}
	}
	return el
}

// ErrorMessage renders a validation message.
func (t *Theme) ErrorMessage(text string) *Element {
	el := New("div", t.Class(TokenErrorMessage))
	el.SetAttr("role", "alert")
	el.SetText(sanitizeText(text))
	return el
}

// AddInputError decorates an input with an error message.
func (t *Theme) AddInputError(input *Element, message string) {
	if input == nil {
		return
	}
	input.AddClass(t.Class(TokenInputError))
	input.SetAttr("aria-invalid", "true")
	input.SetAttr(ErrorAttr, sanitizeText(message))
}

// RemoveInputError clears AddInputError decorations.
func (t *Theme) RemoveInputError(input *Element) {
	if input == nil {
		return
	}
	input.RemoveClass(t.Class(TokenInputError))
	input.RemoveAttr("aria-invalid")
	input.RemoveAttr(ErrorAttr)
}

// InputError returns the message attached by AddInputError.
func InputError(input *Element) string {
	msg, _ := input.Attr(ErrorAttr)
	return msg
}

func (t *Theme) AddTableRowError(container *Element) {
	container.AddClass(t.Class(TokenTableRowError))
}

func (t *Theme) RemoveTableRowError(container *Element) {
	container.RemoveClass(t.Class(TokenTableRowError))
}

// ProgressBar creates an indeterminate progress element.
func (t *Theme) ProgressBar() *Element {
	el := New("progress", t.Class(TokenProgress))
	el.SetAttr("max", "100")
	return el
}

// UpdateProgressBar sets a determinate progress fraction in [0, 1].
func (t *Theme) UpdateProgressBar(bar *Element, fraction float64) {
	if bar == nil {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	bar.SetAttr("value", strconv.FormatFloat(fraction*100, 'f', 0, 64))
}

// UpdateProgressBarUnknown switches a bar to indeterminate mode.
func (t *Theme) UpdateProgressBarUnknown(bar *Element) {
	bar.RemoveAttr("value")
}

// Image creates a bounded preview image.
func (t *Theme) Image(src string) *Element {
	el := New("img", t.Class(TokenImage))
	el.SetAttr("src", src)
	el.SetStyle("max-width", "100%")
	el.SetStyle("max-height", "100px")
	return el
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitizeText strips markup from messages that may echo user input. The
// result is plain text; renderers escape it again on output.
func sanitizeText(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(raw)))
}
