package editor

import (
	"context"
	"testing"

	"github.com/goliatone/go-formedit/pkg/schema"
	"github.com/goliatone/go-formedit/pkg/view"
)

const imageSchemaJSON = `{
  "type": "object",
  "format": "image",
  "title": "Cover",
  "description": "Cover image",
  "properties": {
    "url": {"type": "string", "format": "upload", "title": "Image", "options": {"image": true}},
    "alt": {"type": "string", "title": "Alt text", "propertyOrder": 1},
    "width": {"type": "integer"},
    "height": {"type": "integer"}
  }
}`

type readCall struct {
	file File
	done func(string, error)
}

// scriptedReader records file reads so tests resolve them in any order.
type scriptedReader struct {
	calls []readCall
}

func (r *scriptedReader) ReadDataURL(_ context.Context, file File, done func(string, error)) {
	r.calls = append(r.calls, readCall{file: file, done: done})
}

type loadCall struct {
	src  string
	done func(ImageMetadata, error)
}

// scriptedLoader records image loads so tests resolve them in any order.
type scriptedLoader struct {
	calls []loadCall
}

func (l *scriptedLoader) Load(_ context.Context, src string, done func(ImageMetadata, error)) {
	l.calls = append(l.calls, loadCall{src: src, done: done})
}

func (l *scriptedLoader) last(t *testing.T) loadCall {
	t.Helper()
	if len(l.calls) == 0 {
		t.Fatalf("expected an image load")
	}
	return l.calls[len(l.calls)-1]
}

type uploadCall struct {
	path     string
	file     File
	transfer *Transfer
}

// recordingUploader captures transfers instead of performing them.
type recordingUploader struct {
	calls []uploadCall
}

func (u *recordingUploader) upload(_ context.Context, path string, file File, t *Transfer) {
	u.calls = append(u.calls, uploadCall{path: path, file: file, transfer: t})
}

type fixture struct {
	host     *Host
	loop     *Loop
	reader   *scriptedReader
	loader   *scriptedLoader
	uploader *recordingUploader
	changes  int
}

func newFixture(t *testing.T, options ...HostOption) *fixture {
	t.Helper()
	f := &fixture{
		loop:     NewLoop(),
		reader:   &scriptedReader{},
		loader:   &scriptedLoader{},
		uploader: &recordingUploader{},
	}
	base := []HostOption{
		WithLoop(f.loop),
		WithFileReader(f.reader),
		WithImageLoader(f.loader),
		WithUploader(f.uploader.upload),
		WithChangeHandler(func(Editor) { f.changes++ }),
	}
	f.host = NewHost(append(base, options...)...)
	return f
}

func mustParse(t *testing.T, raw string) *schema.Schema {
	t.Helper()
	s, err := schema.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	return s
}

func (f *fixture) mountImage(t *testing.T, raw string) *ImageEditor {
	t.Helper()
	ed, err := f.host.Mount(mustParse(t, raw), view.New("div"))
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	img, ok := ed.(*ImageEditor)
	if !ok {
		t.Fatalf("expected *ImageEditor, got %T", ed)
	}
	return img
}

func uploadChild(t *testing.T, img *ImageEditor) *UploadEditor {
	t.Helper()
	ed, ok := img.Child("url")
	if !ok {
		t.Fatalf("url child missing")
	}
	up, ok := ed.(*UploadEditor)
	if !ok {
		t.Fatalf("expected *UploadEditor, got %T", ed)
	}
	return up
}

func childValue(t *testing.T, img *ImageEditor, name string) any {
	t.Helper()
	ed, ok := img.Child(name)
	if !ok {
		t.Fatalf("child %q missing", name)
	}
	return ed.Value()
}

func record(t *testing.T, ed Editor) map[string]any {
	t.Helper()
	m, ok := ed.Value().(map[string]any)
	if !ok {
		t.Fatalf("expected record value, got %T", ed.Value())
	}
	return m
}
