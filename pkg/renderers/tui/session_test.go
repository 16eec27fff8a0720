package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formedit/pkg/editor"
	"github.com/goliatone/go-formedit/pkg/schema"
	"github.com/goliatone/go-formedit/pkg/testsupport"
	"github.com/goliatone/go-formedit/pkg/view"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	infoMessages []string
	inputPos     int
	selectPos    int
	confirmPos   int
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func (s *stubDriver) said(substr string) bool {
	for _, msg := range s.infoMessages {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// loopLoader answers image loads on the loop with fixed dimensions.
type loopLoader struct {
	loop *editor.Loop
	meta editor.ImageMetadata
	err  error
}

func (l loopLoader) Load(_ context.Context, _ string, done func(editor.ImageMetadata, error)) {
	l.loop.Post(func() { done(l.meta, l.err) })
}

// scriptedUpload resolves each transfer from a goroutine with the next result.
type scriptedUpload struct {
	results []error
	calls   int
}

func (u *scriptedUpload) upload(_ context.Context, _ string, _ editor.File, t *editor.Transfer) {
	var err error
	if u.calls < len(u.results) {
		err = u.results[u.calls]
	}
	u.calls++
	go func() {
		half := 0.5
		t.Progress(&half)
		if err != nil {
			_ = t.Fail(err)
			return
		}
		_ = t.Succeed("https://cdn.example.com/up.png")
	}()
}

type sessionFixture struct {
	host   *editor.Host
	root   *editor.ImageEditor
	driver *stubDriver
	upload *scriptedUpload
}

func newSessionFixture(t *testing.T, loader editor.ImageLoader, driver *stubDriver) *sessionFixture {
	t.Helper()
	loop := editor.NewLoop()
	if loader == nil {
		loader = loopLoader{loop: loop, meta: editor.ImageMetadata{Width: 100, Height: 50}}
	}
	f := &sessionFixture{driver: driver, upload: &scriptedUpload{}}
	f.host = editor.NewHost(
		editor.WithLoop(loop),
		editor.WithImageLoader(loader),
		editor.WithUploader(f.upload.upload),
	)
	ed, err := f.host.Mount(testsupport.LoadSchema(t, filepath.Join("testdata", "cover.json")), view.New("div"))
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	f.root = ed.(*editor.ImageEditor)
	return f
}

func (f *sessionFixture) run(t *testing.T, options ...Option) []byte {
	t.Helper()
	base := []Option{
		WithPromptDriver(f.driver),
		WithStepTimeout(5 * time.Second),
		WithFileOpener(func(path string) (editor.File, error) {
			if path == "missing.png" {
				return editor.File{}, errors.New("no such file")
			}
			return editor.FileFromBytes(path, "image/png", []byte("\x89PNG fake")), nil
		}),
	}
	s, err := NewSession(f.host, f.root, append(base, options...)...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	out, err := s.Run(testsupport.Context())
	if err != nil {
		t.Fatalf("run: %v (messages %v)", err, f.driver.infoMessages)
	}
	return out
}

func TestSessionURLFlow(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Cover alt", "https://example.com/a.png"},
		selectIdx: []int{0},
	}
	f := newSessionFixture(t, nil, driver)

	out := f.run(t)
	want := `{"url":"https://example.com/a.png","alt":"Cover alt","width":100,"height":50}`
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if !driver.said("Using https://example.com/a.png (100x50)") {
		t.Fatalf("missing preview message: %v", driver.infoMessages)
	}
}

func TestSessionRepromptsAfterURLFailure(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Cover alt", "not a url", "https://example.com/a.png"},
		selectIdx: []int{0, 0},
	}
	f := newSessionFixture(t, nil, driver)

	f.run(t)
	if !driver.said("Invalid url format") {
		t.Fatalf("expected invalid url message: %v", driver.infoMessages)
	}
	up, _ := f.root.Child("url")
	if up.Value() != "https://example.com/a.png" {
		t.Fatalf("url = %v", up.Value())
	}
}

func TestSessionFileUploadWithRetry(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"Cover alt", "missing.png", "cover.png"},
		selectIdx: []int{1, 1},
		confirm:   []bool{true},
	}
	f := newSessionFixture(t, nil, driver)
	f.upload.results = []error{errors.New("boom"), nil}

	out := f.run(t)
	if f.upload.calls != 2 {
		t.Fatalf("upload calls = %d", f.upload.calls)
	}
	for _, msg := range []string{"no such file", "Selected cover.png (image/png, 9 bytes)", "Upload failed: boom", "Uploaded https://cdn.example.com/up.png (100x50)"} {
		if !driver.said(msg) {
			t.Fatalf("missing %q in %v", msg, driver.infoMessages)
		}
	}
	want := `{"url":"https://cdn.example.com/up.png","alt":"Cover alt","width":100,"height":50}`
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionKeepAndValidation(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"", "Alt"},
		selectIdx: []int{2},
	}
	f := newSessionFixture(t, nil, driver)
	f.root.SetValue(map[string]any{"url": "https://example.com/existing.png"})

	out := f.run(t, WithOutputFormat(OutputFormatPrettyText), WithErrors(map[string][]string{
		"/body/alt": {"Alt is too short"},
	}))

	if !driver.said("root.alt: Alt is too short") || !driver.said("Invalid root.alt: required") {
		t.Fatalf("missing validation messages: %v", driver.infoMessages)
	}
	want := "url=https://example.com/existing.png\nalt=Alt\nwidth=\nheight=\n"
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionNumberPrompt(t *testing.T) {
	driver := &stubDriver{inputs: []string{"wide", " 42 "}}
	host := editor.NewHost()
	ed, err := host.Mount(&schema.Schema{Type: schema.TypeInteger, Title: "Count"}, nil)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	s, err := NewSession(host, ed, WithPromptDriver(driver), WithOutputFormat(OutputFormatFormURLEncoded))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	out, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if string(out) != "root=42" || ed.Value() != 42 {
		t.Fatalf("out=%q value=%v", out, ed.Value())
	}
	if !driver.said("Invalid root") {
		t.Fatalf("expected parse error message: %v", driver.infoMessages)
	}
	if s.ContentType() != "application/x-www-form-urlencoded" {
		t.Fatalf("content type = %q", s.ContentType())
	}
}

func TestNewSessionRequiresEditor(t *testing.T) {
	if _, err := NewSession(nil, nil); !errors.Is(err, ErrNoEditor) {
		t.Fatalf("err = %v", err)
	}
}
