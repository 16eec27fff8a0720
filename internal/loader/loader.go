// Package loader reads editor schema documents from files, fs.FS entries or
// HTTP endpoints.
package loader

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/goliatone/go-formedit/pkg/schema"
)

// Options configures a Loader.
type Options struct {
	FileSystem     fs.FS
	HTTPClient     *http.Client
	AllowHTTP      bool
	RequestTimeout time.Duration
}

// Loader fetches schema documents using the strategy implied by a Source.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
}

// New constructs a Loader. HTTP is only enabled when a client is supplied or
// AllowHTTP is set.
func New(options Options) *Loader {
	var client *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if options.RequestTimeout > 0 && clone.Timeout == 0 {
			clone.Timeout = options.RequestTimeout
		}
		client = &clone
	case options.AllowHTTP:
		client = &http.Client{Timeout: options.RequestTimeout}
	}
	return &Loader{
		fs:      options.FileSystem,
		http:    client,
		timeout: options.RequestTimeout,
	}
}

// Load reads src and wraps the payload in a schema.Document.
func (l *Loader) Load(ctx context.Context, src schema.Source) (schema.Document, error) {
	if src == nil {
		return schema.Document{}, errors.New("loader: source is nil")
	}

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case schema.SourceKindFile:
		data, err = loadFile(ctx, src.Location())
	case schema.SourceKindFS:
		data, err = loadFromFS(ctx, l.fs, src.Location())
	case schema.SourceKindURL:
		if l.http == nil {
			return schema.Document{}, errors.New("loader: http support disabled")
		}
		data, err = loadHTTP(ctx, l.http, src.Location(), l.timeout)
	default:
		err = errors.New("loader: unsupported source kind")
	}
	if err != nil {
		return schema.Document{}, err
	}
	return schema.NewDocument(src, data)
}

// LoadSchema loads and decodes src in one step.
func (l *Loader) LoadSchema(ctx context.Context, src schema.Source) (*schema.Schema, error) {
	doc, err := l.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return schema.Decode(doc)
}
