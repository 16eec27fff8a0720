// Package upload provides upload functions for editor hosts. NewHTTP posts
// staged files to a multipart endpoint; Inline commits files as data URLs.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formedit/pkg/editor"
)

var (
	// ErrMissingURL is reported when the endpoint answers without a url.
	ErrMissingURL = errors.New("upload: response has no url")
	// ErrInvalidEndpoint is returned by NewHTTP for unusable endpoints.
	ErrInvalidEndpoint = errors.New("upload: invalid endpoint")
)

const (
	defaultFileField = "file"
	defaultPathField = "path"
	maxResponseBytes = 1 << 20
)

// Option configures an HTTP uploader.
type Option func(*HTTP)

// WithClient overrides the HTTP client.
func WithClient(client *http.Client) Option {
	return func(u *HTTP) {
		if client != nil {
			u.client = client
		}
	}
}

// WithFieldNames overrides the multipart field names for the file and the
// editor path.
func WithFieldNames(file, path string) Option {
	return func(u *HTTP) {
		if strings.TrimSpace(file) != "" {
			u.fileField = strings.TrimSpace(file)
		}
		if strings.TrimSpace(path) != "" {
			u.pathField = strings.TrimSpace(path)
		}
	}
}

// WithHeader adds a header to every upload request.
func WithHeader(key, value string) Option {
	return func(u *HTTP) {
		u.headers.Add(key, value)
	}
}

// WithTimeout bounds each upload request.
func WithTimeout(timeout time.Duration) Option {
	return func(u *HTTP) {
		u.timeout = timeout
	}
}

// WithLogger sets the logger used for transfer failures.
func WithLogger(logger *slog.Logger) Option {
	return func(u *HTTP) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// HTTP uploads files as multipart/form-data and expects a JSON body of the
// form {"url": "..."} in response.
type HTTP struct {
	endpoint  string
	client    *http.Client
	fileField string
	pathField string
	headers   http.Header
	timeout   time.Duration
	logger    *slog.Logger
}

type response struct {
	URL   string `json:"url"`
	Error string `json:"error,omitempty"`
}

// NewHTTP validates endpoint and returns an uploader.
func NewHTTP(endpoint string, options ...Option) (*HTTP, error) {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	u := &HTTP{
		endpoint:  parsed.String(),
		client:    http.DefaultClient,
		fileField: defaultFileField,
		pathField: defaultPathField,
		headers:   make(http.Header),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(u)
		}
	}
	return u, nil
}

// Func adapts the uploader to the editor host contract.
func (u *HTTP) Func() editor.UploadFunc {
	return u.Upload
}

// Upload starts the transfer in the background and returns immediately.
func (u *HTTP) Upload(ctx context.Context, path string, file editor.File, t *editor.Transfer) {
	go func() {
		location, err := u.send(ctx, path, file, t)
		if err != nil {
			u.logger.Warn("upload failed", "path", path, "file", file.Name, "transfer", t.ID(), "error", err)
			_ = t.Fail(err)
			return
		}
		u.logger.Debug("upload finished", "path", path, "file", file.Name, "transfer", t.ID(), "url", location)
		_ = t.Succeed(location)
	}()
}

func (u *HTTP) send(ctx context.Context, path string, file editor.File, t *editor.Transfer) (string, error) {
	if file.Open == nil {
		return "", fmt.Errorf("upload: file %q has no content", file.Name)
	}
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	body, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		writer.CloseWithError(u.writeForm(form, path, file, t))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		_ = body.CloseWithError(err)
		return "", fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	for key, values := range u.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := u.client.Do(req)
	if err != nil {
		_ = body.CloseWithError(err)
		return "", fmt.Errorf("upload: post %s: %w", file.Name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("upload: read response: %w", err)
	}

	var decoded response
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode < 300 {
			return "", fmt.Errorf("upload: decode response: %w", err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg := strings.TrimSpace(decoded.Error); msg != "" {
			return "", fmt.Errorf("upload: %s: %s", resp.Status, msg)
		}
		return "", fmt.Errorf("upload: unexpected status %s", resp.Status)
	}
	if strings.TrimSpace(decoded.URL) == "" {
		return "", ErrMissingURL
	}
	return strings.TrimSpace(decoded.URL), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// escapeQuotes quotes header parameters the way mime/multipart does.
func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func (u *HTTP) writeForm(form *multipart.Writer, path string, file editor.File, t *editor.Transfer) error {
	if err := form.WriteField(u.pathField, path); err != nil {
		return err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(u.fileField), escapeQuotes(file.Name)))
	contentType := file.Type
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	t.Progress(nil)
	if _, err := io.Copy(part, &progressReader{reader: src, total: file.Size, transfer: t}); err != nil {
		return err
	}
	return form.Close()
}

// progressReader reports whole-percent steps of a known total.
type progressReader struct {
	reader   io.Reader
	total    int64
	read     int64
	last     int
	transfer *editor.Transfer
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		percent := int(p.read * 100 / p.total)
		if percent > 100 {
			percent = 100
		}
		if percent > p.last {
			p.last = percent
			fraction := float64(percent) / 100
			p.transfer.Progress(&fraction)
		}
	}
	return n, err
}
