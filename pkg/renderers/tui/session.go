package tui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formedit/pkg/editor"
	"github.com/goliatone/go-formedit/pkg/view"
)

const (
	choiceURL  = "Enter a URL"
	choiceFile = "Choose a local file"
	choiceKeep = "Keep current value"
)

// Session drives a mounted editor from the terminal. It walks the editor
// tree in display order, prompts for every enabled leaf and feeds the answers
// through the same entry points a browser would use, so the upload state
// machine behaves exactly as it does in a rendered form.
type Session struct {
	host         *editor.Host
	root         editor.Editor
	driver       PromptDriver
	outputFormat OutputFormat
	theme        Theme
	openFile     FileOpener
	stepTimeout  time.Duration
	errPayload   map[string][]string
	errs         []editor.ValidationError
}

// WithErrors seeds server-side validation errors, keyed the way API payloads
// key them. They are shown on the editors and printed before each prompt.
func WithErrors(payload map[string][]string) Option {
	return func(s *Session) {
		s.errPayload = payload
	}
}

// NewSession constructs a session for root with defaults (survey driver,
// JSON output).
func NewSession(host *editor.Host, root editor.Editor, options ...Option) (*Session, error) {
	if host == nil || root == nil {
		return nil, ErrNoEditor
	}
	s := &Session{
		host:         host,
		root:         root,
		driver:       NewSurveyDriver(nil),
		outputFormat: OutputFormatJSON,
		openFile:     editor.FileFromPath,
		stepTimeout:  2 * time.Minute,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// ContentType reports the serialization format used by Run.
func (s *Session) ContentType() string {
	switch s.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Run prompts for every field and returns the serialized value.
func (s *Session) Run(ctx context.Context) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(s.errPayload) > 0 {
		s.errs = s.host.MapErrorPayload(s.errPayload)
		s.root.ShowValidationErrors(s.errs)
	}
	if err := s.prompt(ctx, s.root); err != nil {
		return nil, err
	}
	return s.serialize()
}

func (s *Session) prompt(ctx context.Context, ed editor.Editor) error {
	if !ed.IsEnabled() {
		return nil
	}
	if ro, ok := ed.(interface{ ReadOnly() bool }); ok && ro.ReadOnly() {
		return nil
	}
	if err := s.showErrors(ctx, ed.Path()); err != nil {
		return err
	}

	switch e := ed.(type) {
	case *editor.ImageEditor:
		for _, name := range e.PropertyOrder() {
			child, ok := e.Child(name)
			if !ok {
				continue
			}
			if err := s.prompt(ctx, child); err != nil {
				return err
			}
		}
		return nil
	case *editor.UploadEditor:
		return s.promptUpload(ctx, e)
	case *editor.StringEditor:
		return s.promptString(ctx, e)
	case *editor.NumberEditor:
		return s.promptNumber(ctx, e)
	default:
		return fmt.Errorf("%w: %T at %s", ErrUnsupportedEditor, ed, ed.Path())
	}
}

func (s *Session) promptString(ctx context.Context, e *editor.StringEditor) error {
	required := isRequired(e)
	for {
		current, _ := e.Value().(string)
		response, err := s.driver.Input(ctx, InputConfig{
			Message: e.Title(),
			Default: current,
			Help:    e.Schema().Description,
		})
		if err != nil {
			return err
		}
		if required && strings.TrimSpace(response) == "" {
			if err := s.error(ctx, fmt.Sprintf("Invalid %s: required", e.Path())); err != nil {
				return err
			}
			continue
		}
		e.Input(response)
		return nil
	}
}

func (s *Session) promptNumber(ctx context.Context, e *editor.NumberEditor) error {
	required := isRequired(e)
	integer := e.Schema().Type == "integer"
	for {
		current := ""
		if v := e.Value(); v != nil {
			current = fmt.Sprint(v)
		}
		response, err := s.driver.Input(ctx, InputConfig{
			Message: e.Title(),
			Default: current,
			Help:    e.Schema().Description,
		})
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(response)
		if trimmed == "" {
			if required {
				if err := s.error(ctx, fmt.Sprintf("Invalid %s: required", e.Path())); err != nil {
					return err
				}
				continue
			}
			e.Input("")
			return nil
		}

		if integer {
			_, err = strconv.Atoi(trimmed)
		} else {
			_, err = strconv.ParseFloat(trimmed, 64)
		}
		if err != nil {
			if err := s.error(ctx, fmt.Sprintf("Invalid %s: %v", e.Path(), err)); err != nil {
				return err
			}
			continue
		}
		e.Input(trimmed)
		return nil
	}
}

func (s *Session) promptUpload(ctx context.Context, e *editor.UploadEditor) error {
	var options []string
	if e.Settings().Image {
		options = append(options, choiceURL)
	}
	if e.Uploader() != nil {
		options = append(options, choiceFile)
	}
	options = append(options, choiceKeep)

	for {
		idx, err := s.driver.Select(ctx, SelectConfig{
			Message:      e.Title(),
			Options:      options,
			DefaultIndex: len(options) - 1,
			Help:         e.Schema().Description,
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(options) {
			if err := s.error(ctx, fmt.Sprintf("Invalid %s selection", e.Path())); err != nil {
				return err
			}
			continue
		}

		var done bool
		switch options[idx] {
		case choiceURL:
			done, err = s.enterURL(ctx, e)
		case choiceFile:
			done, err = s.chooseFile(ctx, e)
		default:
			return nil
		}
		if err != nil || done {
			return err
		}
	}
}

// enterURL reports true once the URL is committed and previewed.
func (s *Session) enterURL(ctx context.Context, e *editor.UploadEditor) (bool, error) {
	current, _ := e.Value().(string)
	text, err := s.driver.Input(ctx, InputConfig{Message: e.Title() + " URL", Default: current})
	if err != nil {
		return false, err
	}
	if err := e.InputURL(strings.TrimSpace(text)); err != nil {
		return false, err
	}
	if err := s.await(ctx, "image preview", func() bool {
		return e.State() != editor.UploadPendingURLPreview
	}, nil); err != nil {
		return false, err
	}
	if e.State() == editor.UploadError {
		return false, s.error(ctx, e.Preview().TextContent())
	}
	return true, s.info(ctx, describeImage("Using "+e.Value().(string), e.Image()))
}

// chooseFile reports true once the file is uploaded, or the user gives up
// retrying a failed upload.
func (s *Session) chooseFile(ctx context.Context, e *editor.UploadEditor) (bool, error) {
	path, err := s.driver.Input(ctx, InputConfig{Message: e.Title() + " file path"})
	if err != nil {
		return false, err
	}
	file, err := s.openFile(strings.TrimSpace(path))
	if err != nil {
		return false, s.error(ctx, err.Error())
	}
	if err := e.SelectFile(file); err != nil {
		return false, err
	}
	if err := s.await(ctx, "file read", func() bool {
		return !e.Reading()
	}, nil); err != nil {
		return false, err
	}
	if e.State() == editor.UploadError {
		return false, s.error(ctx, view.InputError(e.Uploader()))
	}
	if err := s.info(ctx, fmt.Sprintf("Selected %s (%s, %d bytes)", file.Name, file.Type, file.Size)); err != nil {
		return false, err
	}

	for {
		if err := e.TriggerUpload(); err != nil {
			return false, err
		}
		last := ""
		if err := s.await(ctx, "upload", func() bool {
			return e.State() != editor.UploadUploading
		}, func() {
			if bar := e.ProgressBar(); bar != nil {
				if v := bar.Value(); v != "" && v != last {
					last = v
					_ = s.info(ctx, "Uploading "+v+"%")
				}
			}
		}); err != nil {
			return false, err
		}

		if e.State() == editor.UploadCommitted {
			return true, s.info(ctx, describeImage("Uploaded "+e.Value().(string), e.Image()))
		}
		if err := s.error(ctx, "Upload failed: "+view.InputError(e.Uploader())); err != nil {
			return false, err
		}
		retry, err := s.driver.Confirm(ctx, ConfirmConfig{Message: "Retry upload?", Default: true})
		if err != nil {
			return false, err
		}
		if !retry {
			return false, nil
		}
	}
}

// await runs the host loop until done reports true. tick runs on the loop
// after every drained batch.
func (s *Session) await(ctx context.Context, step string, done func() bool, tick func()) error {
	if s.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.stepTimeout)
		defer cancel()
	}
	err := s.host.Loop().RunUntil(ctx, func() bool {
		if tick != nil {
			tick()
		}
		return done()
	})
	if err != nil {
		return fmt.Errorf("tui: waiting for %s: %w", step, err)
	}
	return nil
}

func (s *Session) showErrors(ctx context.Context, path string) error {
	for _, ve := range s.errs {
		if ve.Path != path {
			continue
		}
		if err := s.error(ctx, fmt.Sprintf("%s: %s", path, ve.Message)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) info(ctx context.Context, msg string) error {
	return s.driver.Info(ctx, s.theme.InfoPrefix+msg)
}

func (s *Session) error(ctx context.Context, msg string) error {
	return s.driver.Info(ctx, s.theme.ErrorPrefix+msg)
}

func (s *Session) serialize() ([]byte, error) {
	value := s.root.Value()
	order := declaredOrder(s.root)
	switch s.outputFormat {
	case OutputFormatFormURLEncoded:
		if _, ok := value.(map[string]any); !ok {
			value = map[string]any{s.root.Key(): value}
		}
		return []byte(flattenForm(value)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(value, order)), nil
	default:
		if img, ok := s.root.(*editor.ImageEditor); ok {
			return img.ValueJSON()
		}
		return json.Marshal(value)
	}
}

func isRequired(ed editor.Editor) bool {
	if parent, ok := ed.Parent().(*editor.ImageEditor); ok {
		return parent.IsRequired(ed)
	}
	flag := ed.Schema().Required.Flag
	return flag != nil && *flag
}

func declaredOrder(ed editor.Editor) []string {
	if img, ok := ed.(*editor.ImageEditor); ok {
		return img.Properties()
	}
	return nil
}

func describeImage(prefix string, meta editor.ImageMetadata) string {
	if meta.IsZero() {
		return prefix
	}
	return fmt.Sprintf("%s (%dx%d)", prefix, meta.Width, meta.Height)
}

func flattenForm(value any) string {
	flattened := url.Values{}
	flatten("", value, flattened)
	return flattened.Encode()
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			flatten(next, val, out)
		}
	case []any:
		for _, val := range v {
			out.Add(prefix+"[]", fmt.Sprint(val))
		}
	case nil:
		out.Set(prefix, "")
	default:
		out.Set(prefix, fmt.Sprint(v))
	}
}

func prettyPrint(value any, order []string) string {
	var b strings.Builder
	m, ok := value.(map[string]any)
	if !ok {
		fmt.Fprintf(&b, "%v\n", value)
		return b.String()
	}
	for _, key := range orderedKeys(m, order) {
		writePretty(&b, key, m[key])
	}
	return b.String()
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		for _, key := range orderedKeys(v, nil) {
			writePretty(b, prefix+"."+key, v[key])
		}
	case []any:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	case nil:
		fmt.Fprintf(b, "%s=\n", prefix)
	default:
		fmt.Fprintf(b, "%s=%v\n", prefix, v)
	}
}

// orderedKeys lists keys in order first, then the rest sorted.
func orderedKeys(m map[string]any, order []string) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]struct{}, len(m))
	for _, key := range order {
		if _, ok := m[key]; ok {
			keys = append(keys, key)
			seen[key] = struct{}{}
		}
	}
	var rest []string
	for key := range m {
		if _, ok := seen[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
