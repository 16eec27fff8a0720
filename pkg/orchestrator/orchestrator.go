package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/goliatone/go-formedit/internal/loader"
	"github.com/goliatone/go-formedit/pkg/config"
	"github.com/goliatone/go-formedit/pkg/editor"
	"github.com/goliatone/go-formedit/pkg/render/html"
	"github.com/goliatone/go-formedit/pkg/renderers/tui"
	"github.com/goliatone/go-formedit/pkg/schema"
	"github.com/goliatone/go-formedit/pkg/state"
	"github.com/goliatone/go-formedit/pkg/upload"
	"github.com/goliatone/go-formedit/pkg/view"
)

const defaultRequestTimeout = 30 * time.Second

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLoader overrides the schema loader.
func WithLoader(l *loader.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = l
	}
}

// WithConfig applies a configuration file: global editor options, theme,
// uploader and state key.
func WithConfig(cfg config.File) Option {
	return func(o *Orchestrator) {
		o.config = cfg
	}
}

// WithHostOptions appends options passed to every editor host. They run after
// the options derived from the configuration, so they win.
func WithHostOptions(options ...editor.HostOption) Option {
	return func(o *Orchestrator) {
		o.hostOptions = append(o.hostOptions, options...)
	}
}

// WithUploader replaces the uploader derived from the configuration.
func WithUploader(fn editor.UploadFunc) Option {
	return func(o *Orchestrator) {
		o.uploader = fn
	}
}

// WithRenderer overrides the HTML renderer.
func WithRenderer(r *html.Renderer) Option {
	return func(o *Orchestrator) {
		o.renderer = r
	}
}

// WithLogger sets the logger shared with hosts and the HTTP uploader.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates loading, mounting and output.
type Orchestrator struct {
	loader      *loader.Loader
	config      config.File
	hostOptions []editor.HostOption
	uploader    editor.UploadFunc
	renderer    *html.Renderer
	theme       *view.Theme
	encoder     *state.Encoder
	logger      *slog.Logger

	defaultsApplied bool
	initialiseErr   error
}

// Request describes one editor to mount.
type Request struct {
	// Source is loaded when neither Schema nor Document is set.
	Source   schema.Source
	Document *schema.Document
	Schema   *schema.Schema
	// Component selects a schema from components.schemas when the document
	// is an OpenAPI description.
	Component string
	// Value seeds the editor after the schema default.
	Value any
	// Errors are server-side validation messages keyed by API paths.
	Errors    map[string][]string
	Container *view.Element
}

// Form is a mounted editor and the host that owns it.
type Form struct {
	Host   *editor.Host
	Root   editor.Editor
	Errors []editor.ValidationError
}

// New constructs an Orchestrator. Defaults are resolved lazily.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{config: config.Default()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	return o
}

// Mount resolves the request schema and mounts it on a fresh host.
func (o *Orchestrator) Mount(ctx context.Context, req Request) (*Form, error) {
	if ctx == nil {
		return nil, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.applyDefaults()
	if o.initialiseErr != nil {
		return nil, o.initialiseErr
	}

	s, err := o.resolveSchema(ctx, req)
	if err != nil {
		return nil, err
	}

	host := editor.NewHost(o.hostOptionsFor(ctx)...)
	root, err := host.Mount(s, req.Container)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: mount: %w", err)
	}
	if req.Value != nil {
		root.SetValue(req.Value)
	}

	form := &Form{Host: host, Root: root}
	if len(req.Errors) > 0 {
		form.Errors = host.MapErrorPayload(req.Errors)
		root.ShowValidationErrors(form.Errors)
	}
	host.Loop().Drain()
	return form, nil
}

// Render mounts the request and renders it as an HTML page or fragment. The
// current editor value is signed into the state field when a state key is
// configured and opts carries no state of its own.
func (o *Orchestrator) Render(ctx context.Context, req Request, opts html.RenderOptions, out ...io.Writer) ([]byte, error) {
	form, err := o.Mount(ctx, req)
	if err != nil {
		return nil, err
	}
	defer form.Root.Destroy()

	if opts.State == nil && o.encoder != nil && !opts.Fragment {
		opts.State = map[string]any{"value": form.Root.Value()}
	}
	if opts.Title == "" && form.Root.Schema() != nil {
		opts.Title = form.Root.Schema().Title
	}

	output, err := o.renderer.Render(ctx, form.Root.Container(), opts, out...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return output, nil
}

// Edit mounts the request and runs an interactive terminal session on it.
func (o *Orchestrator) Edit(ctx context.Context, req Request, options ...tui.Option) ([]byte, error) {
	form, err := o.Mount(ctx, req)
	if err != nil {
		return nil, err
	}
	defer form.Root.Destroy()

	if len(req.Errors) > 0 {
		options = append([]tui.Option{tui.WithErrors(req.Errors)}, options...)
	}
	session, err := tui.NewSession(form.Host, form.Root, options...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: session: %w", err)
	}
	output, err := session.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: edit: %w", err)
	}
	return output, nil
}

// Encoder exposes the state encoder built from the configuration, if any.
func (o *Orchestrator) Encoder() *state.Encoder {
	o.applyDefaults()
	return o.encoder
}

func (o *Orchestrator) resolveSchema(ctx context.Context, req Request) (*schema.Schema, error) {
	if req.Schema != nil {
		return req.Schema, nil
	}

	var doc schema.Document
	switch {
	case req.Document != nil:
		doc = *req.Document
	case req.Source != nil:
		loaded, err := o.loader.Load(ctx, req.Source)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: load document: %w", err)
		}
		doc = loaded
	default:
		return nil, errors.New("orchestrator: source, document or schema is required")
	}

	if req.Component != "" {
		s, err := schema.FromOpenAPI(ctx, doc.Raw(), req.Component)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: openapi component: %w", err)
		}
		return s, nil
	}
	s, err := schema.Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: decode schema: %w", err)
	}
	return s, nil
}

func (o *Orchestrator) hostOptionsFor(ctx context.Context) []editor.HostOption {
	options := []editor.HostOption{
		editor.WithContext(ctx),
		editor.WithDefaults(o.config.Options()),
		editor.WithTheme(o.theme),
		editor.WithLogger(o.logger),
	}
	if o.uploader != nil {
		options = append(options, editor.WithUploader(o.uploader))
	}
	return append(options, o.hostOptions...)
}

func (o *Orchestrator) applyDefaults() {
	if o.defaultsApplied {
		return
	}
	o.defaultsApplied = true

	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.loader == nil {
		o.loader = loader.New(loader.Options{AllowHTTP: true, RequestTimeout: defaultRequestTimeout})
	}
	o.theme = view.NewTheme(o.config.RendererConfig())

	if key := o.config.State.Key; key != "" {
		encoder, err := state.NewEncoder([]byte(key))
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: state encoder: %w", err)
			return
		}
		o.encoder = encoder
	}

	if o.uploader == nil {
		uploader, err := o.uploaderFromConfig()
		if err != nil {
			o.initialiseErr = err
			return
		}
		o.uploader = uploader
	}

	if o.renderer == nil {
		options := []html.Option{html.WithTheme(o.theme)}
		if o.encoder != nil {
			options = append(options, html.WithStateEncoder(o.encoder))
		}
		renderer, err := html.New(options...)
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
			return
		}
		o.renderer = renderer
	}
}

func (o *Orchestrator) uploaderFromConfig() (editor.UploadFunc, error) {
	cfg := o.config.Upload
	if cfg.Endpoint == "" {
		return upload.Inline(), nil
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	options := []upload.Option{
		upload.WithFieldNames(cfg.FileField, cfg.PathField),
		upload.WithTimeout(timeout),
		upload.WithLogger(o.logger),
	}
	for key, value := range cfg.Headers {
		options = append(options, upload.WithHeader(key, value))
	}
	uploader, err := upload.NewHTTP(cfg.Endpoint, options...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: uploader: %w", err)
	}
	return uploader.Func(), nil
}
