package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/goliatone/go-formedit/pkg/schema"
	"github.com/goliatone/go-formedit/pkg/view"
)

// UploadFunc performs an upload for the control at path. It must eventually
// resolve t with exactly one of Succeed or Fail and may report progress any
// number of times before that. It may return before the transfer resolves.
type UploadFunc func(ctx context.Context, path string, file File, t *Transfer)

// ChangeFunc is the top-level change notifier, called when a parentless
// editor commits a value.
type ChangeFunc func(ed Editor)

// HostOption customises a Host.
type HostOption func(*Host)

// WithDefaults sets the global option layer merged under every editor's
// schema and instance options.
func WithDefaults(defaults schema.Options) HostOption {
	return func(h *Host) {
		h.defaults = defaults
	}
}

// WithRegistry injects a kind registry.
func WithRegistry(registry *Registry) HostOption {
	return func(h *Host) {
		h.registry = registry
	}
}

// WithUploader configures the upload function required by editable upload
// controls.
func WithUploader(fn UploadFunc) HostOption {
	return func(h *Host) {
		h.upload = fn
	}
}

// WithChangeHandler registers the top-level change notifier.
func WithChangeHandler(fn ChangeFunc) HostOption {
	return func(h *Host) {
		h.onChange = fn
	}
}

// WithTheme overrides the theme used to build chrome.
func WithTheme(theme *view.Theme) HostOption {
	return func(h *Host) {
		h.theme = theme
	}
}

// WithLoop injects the scheduler editors run on.
func WithLoop(loop *Loop) HostOption {
	return func(h *Host) {
		h.loop = loop
	}
}

// WithFileReader overrides the file-to-data-URL reader.
func WithFileReader(reader FileReader) HostOption {
	return func(h *Host) {
		h.files = reader
	}
}

// WithImageLoader overrides the image decoder used for previews.
func WithImageLoader(loader ImageLoader) HostOption {
	return func(h *Host) {
		h.images = loader
	}
}

// WithHTTPClient sets the client the default image loader fetches remote
// previews with.
func WithHTTPClient(client *http.Client) HostOption {
	return func(h *Host) {
		h.client = client
	}
}

// WithLogger sets the structured logger. Nil restores the discard logger.
func WithLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithContext sets the context passed to upload functions and async loaders.
func WithContext(ctx context.Context) HostOption {
	return func(h *Host) {
		h.ctx = ctx
	}
}

// Host is the context editors are created in. It owns the global option
// layer, the kind registry and factory, the upload function, the top-level
// change notifier and the scheduler async results are delivered on. It also
// keeps the path to editor bookkeeping fed by Register and Unregister.
type Host struct {
	ctx      context.Context
	defaults schema.Options
	registry *Registry
	upload   UploadFunc
	onChange ChangeFunc
	theme    *view.Theme
	loop     *Loop
	files    FileReader
	images   ImageLoader
	client   *http.Client
	logger   *slog.Logger

	editors map[string]Editor
}

// NewHost constructs a Host applying options. Missing collaborators fall back
// to the built-in implementations.
func NewHost(options ...HostOption) *Host {
	h := &Host{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(h)
	}
	h.applyDefaults()
	return h
}

func (h *Host) applyDefaults() {
	if h.ctx == nil {
		h.ctx = context.Background()
	}
	if h.registry == nil {
		h.registry = NewRegistry()
	}
	if h.theme == nil {
		h.theme = view.DefaultTheme()
	}
	if h.loop == nil {
		h.loop = NewLoop()
	}
	if h.files == nil {
		h.files = NewFileReader(h.loop)
	}
	if h.images == nil {
		h.images = NewImageLoader(h.loop, h.client)
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h.editors = make(map[string]Editor)
}

// Context returns the host context.
func (h *Host) Context() context.Context { return h.ctx }

// Loop returns the scheduler editors run on.
func (h *Host) Loop() *Loop { return h.loop }

// Theme returns the chrome theme.
func (h *Host) Theme() *view.Theme { return h.theme }

// Registry returns the kind registry.
func (h *Host) Registry() *Registry { return h.registry }

// Defaults returns the global option layer.
func (h *Host) Defaults() schema.Options { return h.defaults }

// HasUploader reports whether an upload function is configured.
func (h *Host) HasUploader() bool { return h.upload != nil }

// Post schedules fn on the host loop.
func (h *Host) Post(fn func()) {
	h.loop.Post(fn)
}

// EditorKind resolves the editor variant for a schema.
func (h *Host) EditorKind(s *schema.Schema) (Kind, error) {
	kind, ok := h.registry.Resolve(s)
	if !ok {
		return "", ErrNoEditor
	}
	return kind, nil
}

// CreateEditor constructs an unattached editor of the given kind.
func (h *Host) CreateEditor(kind Kind, cfg Config) (Editor, error) {
	ctor, ok := h.registry.Constructor(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	cfg.Host = h
	ed, err := ctor(cfg)
	if err != nil {
		return nil, fmt.Errorf("editor: create %s at %s: %w", kind, cfg.Path, err)
	}
	return ed, nil
}

// Editor returns the registered editor at path.
func (h *Host) Editor(path string) (Editor, bool) {
	ed, ok := h.editors[path]
	return ed, ok
}

// Mount resolves, constructs and builds a root editor for s inside container,
// registers it and seeds it with the schema default.
func (h *Host) Mount(s *schema.Schema, container *view.Element) (Editor, error) {
	if s == nil {
		return nil, fmt.Errorf("editor: mount: schema is nil")
	}
	kind, err := h.EditorKind(s)
	if err != nil {
		return nil, fmt.Errorf("editor: mount: %w", err)
	}
	ed, err := h.CreateEditor(kind, Config{Schema: s, Key: RootPath, Path: RootPath})
	if err != nil {
		return nil, err
	}
	if err := ed.PreBuild(); err != nil {
		ed.Destroy()
		return nil, fmt.Errorf("editor: prebuild %s: %w", RootPath, err)
	}
	if container == nil {
		container = view.New("div")
	}
	ed.SetContainer(container)
	if err := ed.Build(); err != nil {
		ed.Destroy()
		return nil, fmt.Errorf("editor: build %s: %w", RootPath, err)
	}
	ed.PostBuild()
	ed.Register()
	if s.Default != nil {
		ed.SetValue(schema.CloneValue(s.Default))
	}
	h.logger.Debug("editor mounted", "kind", kind, "path", RootPath)
	return ed, nil
}

func (h *Host) register(path string, ed Editor) {
	h.editors[path] = ed
}

func (h *Host) unregister(path string, ed Editor) {
	if current, ok := h.editors[path]; ok && current == ed {
		delete(h.editors, path)
	}
}

func (h *Host) notifyChange(ed Editor) {
	if h.onChange != nil {
		h.onChange(ed)
	}
}

func (h *Host) startUpload(path string, file File, t *Transfer) {
	h.upload(h.ctx, path, file, t)
}
