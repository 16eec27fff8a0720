// Package html renders an editor element tree to HTML. Markup is escaped
// while walking the tree, filtered through a bluemonday policy and wrapped in
// a pongo2 page template.
package html

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formedit/pkg/state"
	"github.com/goliatone/go-formedit/pkg/view"
)

//go:embed templates/*.tpl
var templates embed.FS

const (
	pageTemplate      = "templates/page.tpl"
	defaultStateField = "_state"
)

// ErrNoStateEncoder is returned when RenderOptions carries state but the
// renderer has no encoder.
var ErrNoStateEncoder = errors.New("html: state requires an encoder")

var voidElements = []string{"area", "br", "col", "hr", "img", "input", "meta", "source", "wbr"}

// Option configures a Renderer.
type Option func(*config)

type config struct {
	template string
	theme    *view.Theme
	encoder  *state.Encoder
	policy   *bluemonday.Policy
	lang     string
}

// WithTemplate replaces the embedded page template with pongo2 source.
func WithTemplate(content string) Option {
	return func(cfg *config) {
		cfg.template = content
	}
}

// WithTheme supplies the theme whose CSS variables are emitted.
func WithTheme(theme *view.Theme) Option {
	return func(cfg *config) {
		cfg.theme = theme
	}
}

// WithStateEncoder enables signed state fields.
func WithStateEncoder(encoder *state.Encoder) Option {
	return func(cfg *config) {
		cfg.encoder = encoder
	}
}

// WithPolicy overrides the sanitisation policy.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		cfg.policy = policy
	}
}

// WithLang sets the document language.
func WithLang(lang string) Option {
	return func(cfg *config) {
		cfg.lang = strings.TrimSpace(lang)
	}
}

// RenderOptions customises a single render.
type RenderOptions struct {
	Title      string
	Action     string
	Method     string
	StateField string
	// State is signed into a hidden field when set.
	State map[string]any
	// Fragment skips the page template and returns only the editor markup.
	Fragment bool
}

// Renderer turns element trees into HTML.
type Renderer struct {
	mu      sync.Mutex
	page    *pongo2.Template
	theme   *view.Theme
	encoder *state.Encoder
	policy  *bluemonday.Policy
	lang    string
}

// New compiles the page template.
func New(options ...Option) (*Renderer, error) {
	cfg := &config{lang: "en"}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	set := pongo2.NewSet("formedit", pongo2.NewFSLoader(templates))
	var (
		page *pongo2.Template
		err  error
	)
	if strings.TrimSpace(cfg.template) != "" {
		page, err = set.FromString(cfg.template)
	} else {
		page, err = set.FromFile(pageTemplate)
	}
	if err != nil {
		return nil, fmt.Errorf("html: compile page template: %w", err)
	}

	policy := cfg.policy
	if policy == nil {
		policy = FormPolicy()
	}
	return &Renderer{
		page:    page,
		theme:   cfg.theme,
		encoder: cfg.encoder,
		policy:  policy,
		lang:    cfg.lang,
	}, nil
}

// FormPolicy extends the bluemonday UGC policy with the form controls and
// attributes editors produce.
func FormPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("form", "input", "label", "button", "progress", "span", "div", "h3")
	p.AllowAttrs("type", "name", "value", "disabled", "accept", "placeholder", "hidden",
		"max", "role", "aria-invalid", "title", "for").Globally()
	p.AllowAttrs("class").Globally()
	p.AllowDataAttributes()
	p.AllowDataURIImages()
	p.AllowStyles("max-width", "max-height", "position", "display").Globally()
	return p
}

// Markup renders the element tree with escaping and sanitisation.
func (r *Renderer) Markup(root *view.Element) string {
	var buf bytes.Buffer
	writeElement(&buf, root)
	return r.policy.Sanitize(buf.String())
}

// Render writes root as a page (or fragment) and returns the bytes.
func (r *Renderer) Render(ctx context.Context, root *view.Element, opts RenderOptions, out ...io.Writer) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, errors.New("html: root element is nil")
	}

	markup := r.Markup(root)
	if opts.Fragment {
		return emit([]byte(markup), out)
	}

	token := ""
	if opts.State != nil {
		if r.encoder == nil {
			return nil, ErrNoStateEncoder
		}
		var err error
		if token, err = r.encoder.Encode(opts.State); err != nil {
			return nil, fmt.Errorf("html: encode state: %w", err)
		}
	}

	method := strings.ToLower(strings.TrimSpace(opts.Method))
	if method == "" {
		method = "post"
	}
	field := strings.TrimSpace(opts.StateField)
	if field == "" {
		field = defaultStateField
	}

	data := pongo2.Context{
		"lang":        r.lang,
		"title":       opts.Title,
		"action":      opts.Action,
		"method":      method,
		"markup":      markup,
		"state_field": field,
		"state_token": token,
		"theme":       r.theme.Name(),
		"css_vars":    r.theme.CSSVars(),
	}

	var buf bytes.Buffer
	r.mu.Lock()
	err := r.page.ExecuteWriter(data, &buf)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("html: execute page template: %w", err)
	}
	return emit(buf.Bytes(), out)
}

func emit(data []byte, out []io.Writer) ([]byte, error) {
	for _, w := range out {
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func writeElement(buf *bytes.Buffer, el *view.Element) {
	if el == nil {
		return
	}
	if el.IsText() {
		buf.WriteString(html.EscapeString(el.OwnText()))
		for _, child := range el.Children() {
			writeElement(buf, child)
		}
		return
	}

	buf.WriteByte('<')
	buf.WriteString(el.Tag)
	if classes := el.Classes(); len(classes) > 0 {
		writeAttr(buf, "class", strings.Join(classes, " "))
	}
	attrs := el.Attrs()
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		writeAttr(buf, name, attrs[name])
	}
	if style := el.StyleString(); style != "" {
		writeAttr(buf, "style", style)
	}
	if el.Hidden() {
		buf.WriteString(" hidden")
	}
	buf.WriteByte('>')

	if slices.Contains(voidElements, el.Tag) {
		return
	}
	buf.WriteString(html.EscapeString(el.OwnText()))
	for _, child := range el.Children() {
		writeElement(buf, child)
	}
	buf.WriteString("</")
	buf.WriteString(el.Tag)
	buf.WriteByte('>')
}

func writeAttr(buf *bytes.Buffer, name, value string) {
	buf.WriteByte(' ')
	buf.WriteString(name)
	buf.WriteString(`="`)
	buf.WriteString(html.EscapeString(value))
	buf.WriteByte('"')
}
