package editor

import (
	"log/slog"
	"strings"

	"github.com/goliatone/go-formedit/pkg/schema"
	"github.com/goliatone/go-formedit/pkg/view"
)

// Base carries the state and behaviour shared by every editor variant.
// Variants embed it and call its methods explicitly from their own lifecycle
// hooks, e.g. `e.Base.Disable()` before disabling children.
type Base struct {
	host     *Host
	self     Editor
	key      string
	path     string
	schema   *schema.Schema
	parent   Editor
	settings Settings

	container  *view.Element
	enabled    bool
	registered bool
	destroyed  bool
	watchers   []func()
}

// Init wires the base to its owning variant and resolves settings from the
// host defaults, the schema options and the instance options.
func (b *Base) Init(self Editor, cfg Config) {
	b.self = self
	b.host = cfg.Host
	if b.host == nil {
		b.host = NewHost()
	}
	b.schema = cfg.Schema
	if b.schema == nil {
		b.schema = &schema.Schema{}
	}
	b.key = cfg.Key
	b.path = cfg.Path
	if b.path == "" {
		b.path = RootPath
	}
	if b.key == "" {
		b.key = lastSegment(b.path)
	}
	b.parent = cfg.Parent
	b.settings = ResolveSettings(b.host.defaults, b.schema.Options, cfg.Options)
	b.enabled = true
}

func (b *Base) Key() string              { return b.key }
func (b *Base) Path() string             { return b.path }
func (b *Base) Schema() *schema.Schema   { return b.schema }
func (b *Base) Settings() Settings       { return b.settings }
func (b *Base) Parent() Editor           { return b.parent }
func (b *Base) Host() *Host              { return b.host }
func (b *Base) Container() *view.Element { return b.container }

// SetContainer attaches the editor to a visual container. Builds append to
// it.
func (b *Base) SetContainer(container *view.Element) {
	b.container = container
}

// Theme returns the host theme.
func (b *Base) Theme() *view.Theme {
	return b.host.theme
}

// Logger returns the host logger scoped to the editor path.
func (b *Base) Logger() *slog.Logger {
	return b.host.logger.With("path", b.path)
}

// Title prefers the schema title and falls back to the key.
func (b *Base) Title() string {
	if title := strings.TrimSpace(b.schema.Title); title != "" {
		return title
	}
	return b.key
}

// ReadOnly reports whether the schema marks the editor read-only.
func (b *Base) ReadOnly() bool {
	return b.schema.ReadOnly
}

func (b *Base) PreBuild() error { return nil }
func (b *Base) Build() error    { return nil }
func (b *Base) PostBuild()      {}

func (b *Base) Enable()         { b.enabled = true }
func (b *Base) Disable()        { b.enabled = false }
func (b *Base) IsEnabled() bool { return b.enabled }

// Show reveals the editor container.
func (b *Base) Show() {
	b.container.Show()
}

// Hide hides the editor container.
func (b *Base) Hide() {
	b.container.Hide()
}

// Register records the editor in host bookkeeping under its path.
func (b *Base) Register() {
	b.host.register(b.path, b.self)
	b.registered = true
}

// Unregister removes the editor from host bookkeeping.
func (b *Base) Unregister() {
	b.host.unregister(b.path, b.self)
	b.registered = false
}

// Registered reports whether the editor is currently registered.
func (b *Base) Registered() bool { return b.registered }

// Destroy unregisters the editor and drops its container. Variants check
// Destroyed first so teardown runs once.
func (b *Base) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	if b.registered {
		b.Unregister()
	}
	b.watchers = nil
	b.container = nil
}

// Destroyed reports whether Destroy has run.
func (b *Base) Destroyed() bool { return b.destroyed }

// Watch registers fn to run whenever the editor value changes.
func (b *Base) Watch(fn func()) {
	if fn != nil {
		b.watchers = append(b.watchers, fn)
	}
}

// Notify runs value watchers.
func (b *Base) Notify() {
	for _, fn := range b.watchers {
		fn()
	}
}

// Change forwards a committed change upward: to the parent when it aggregates
// child values, otherwise to the host change notifier.
func (b *Base) Change() {
	if listener, ok := b.parent.(ChildChangeListener); ok {
		listener.OnChildEditorChange(b.self)
		return
	}
	b.host.notifyChange(b.self)
}

// OnChange notifies watchers and, when bubble is set, forwards the change.
func (b *Base) OnChange(bubble bool) {
	b.Notify()
	if bubble {
		b.Change()
	}
}

// showInputErrors decorates target with the errors addressed to this editor
// and the container with a table row error when configured.
func (b *Base) showInputErrors(target *view.Element, errs []ValidationError) {
	mine, _ := partitionErrors(b.path, errs)
	theme := b.Theme()
	if len(mine) > 0 {
		theme.AddInputError(target, joinMessages(mine))
	} else {
		theme.RemoveInputError(target)
	}
	if !b.settings.TableRow || b.container == nil {
		return
	}
	if len(mine) > 0 {
		theme.AddTableRowError(b.container)
	} else {
		theme.RemoveTableRowError(b.container)
	}
}

func lastSegment(path string) string {
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
