package editor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// maxMediaBytes bounds file reads and remote image fetches.
const maxMediaBytes = 32 << 20

// File is a local file staged in an upload control.
type File struct {
	Name string
	Size int64
	Type string
	Open func() (io.ReadCloser, error)
}

// FileFromBytes wraps an in-memory payload.
func FileFromBytes(name, contentType string, data []byte) File {
	payload := append([]byte(nil), data...)
	return File{
		Name: name,
		Size: int64(len(payload)),
		Type: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		},
	}
}

// FileFromPath stats path and returns a File that opens it lazily. The type
// is guessed from the extension.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("editor: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("editor: %s is a directory", path)
	}
	return File{
		Name: filepath.Base(path),
		Size: info.Size(),
		Type: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// ReadAll reads the file payload.
func (f File) ReadAll() ([]byte, error) {
	if f.Open == nil {
		return nil, fmt.Errorf("editor: file %q has no content", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxMediaBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxMediaBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, f.Name, maxMediaBytes)
	}
	return data, nil
}

// ImageMetadata carries decoded pixel dimensions. The zero value means "no
// image".
type ImageMetadata struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether m signals "no image".
func (m ImageMetadata) IsZero() bool {
	return m.Width == 0 && m.Height == 0
}

// FileReader converts a staged file into a previewable data URL. done must be
// invoked exactly once, on the host scheduler.
type FileReader interface {
	ReadDataURL(ctx context.Context, file File, done func(dataURL string, err error))
}

// ImageLoader decodes an image source (data URL or remote URL) to learn its
// dimensions. done must be invoked exactly once, on the host scheduler.
type ImageLoader interface {
	Load(ctx context.Context, src string, done func(meta ImageMetadata, err error))
}

type asyncFileReader struct {
	scheduler Scheduler
}

// NewFileReader returns a FileReader that reads on a goroutine and posts the
// result to scheduler.
func NewFileReader(scheduler Scheduler) FileReader {
	return asyncFileReader{scheduler: scheduler}
}

func (r asyncFileReader) ReadDataURL(ctx context.Context, file File, done func(string, error)) {
	go func() {
		var (
			dataURL string
			err     error
		)
		if err = ctx.Err(); err == nil {
			var data []byte
			data, err = file.ReadAll()
			if err == nil {
				dataURL = EncodeDataURL(file.Type, data)
			}
		}
		r.scheduler.Post(func() { done(dataURL, err) })
	}()
}

type asyncImageLoader struct {
	scheduler Scheduler
	client    *http.Client
}

// NewImageLoader returns an ImageLoader that decodes data URLs and fetches
// remote URLs with client on a goroutine, posting the result to scheduler.
func NewImageLoader(scheduler Scheduler, client *http.Client) ImageLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return asyncImageLoader{scheduler: scheduler, client: client}
}

func (l asyncImageLoader) Load(ctx context.Context, src string, done func(ImageMetadata, error)) {
	go func() {
		meta, err := l.decode(ctx, src)
		l.scheduler.Post(func() { done(meta, err) })
	}()
}

func (l asyncImageLoader) decode(ctx context.Context, src string) (ImageMetadata, error) {
	var reader io.Reader
	if strings.HasPrefix(src, "data:") {
		_, data, err := ParseDataURL(src)
		if err != nil {
			return ImageMetadata{}, err
		}
		reader = bytes.NewReader(data)
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return ImageMetadata{}, err
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return ImageMetadata{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return ImageMetadata{}, fmt.Errorf("editor: fetch image: unexpected status %s", resp.Status)
		}
		reader = io.LimitReader(resp.Body, maxMediaBytes)
	}

	cfg, _, err := image.DecodeConfig(reader)
	if err != nil {
		return ImageMetadata{}, fmt.Errorf("editor: decode image: %w", err)
	}
	return ImageMetadata{Width: cfg.Width, Height: cfg.Height}, nil
}

// EncodeDataURL builds a base64 data URL. An empty content type is sniffed.
func EncodeDataURL(contentType string, data []byte) string {
	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(data)
	}
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		contentType = contentType[:idx]
	}
	return "data:" + strings.TrimSpace(contentType) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURL splits a data URL into its media type and decoded payload.
func ParseDataURL(raw string) (string, []byte, error) {
	if !strings.HasPrefix(raw, "data:") {
		return "", nil, errors.New("editor: not a data URL")
	}
	header, payload, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return "", nil, errors.New("editor: malformed data URL")
	}
	mediaType := header
	encoded := false
	if strings.HasSuffix(header, ";base64") {
		mediaType = strings.TrimSuffix(header, ";base64")
		encoded = true
	}
	if !encoded {
		return mediaType, []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("editor: decode data URL: %w", err)
	}
	return mediaType, data, nil
}

var dataURLMediaType = regexp.MustCompile(`^data:([^;,]+)[;,]`)

// previewLabel derives the type label shown in an upload preview.
func previewLabel(src string, fromURL bool) string {
	if match := dataURLMediaType.FindStringSubmatch(src); match != nil {
		return match[1]
	}
	if fromURL {
		return "Url Preview"
	}
	return "unknown"
}
