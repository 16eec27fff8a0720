package orchestrator

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formedit/pkg/config"
	"github.com/goliatone/go-formedit/pkg/editor"
	"github.com/goliatone/go-formedit/pkg/render/html"
	"github.com/goliatone/go-formedit/pkg/renderers/tui"
	"github.com/goliatone/go-formedit/pkg/schema"
	"github.com/goliatone/go-formedit/pkg/testsupport"
	"github.com/goliatone/go-formedit/pkg/upload"
)

const coverSchema = `{
	"type": "object",
	"format": "image",
	"title": "Cover",
	"properties": {
		"url": {"type": "string", "format": "upload", "options": {"image": true}},
		"alt": {"type": "string"},
		"width": {"type": "integer"},
		"height": {"type": "integer"}
	}
}`

const mediaOpenAPI = `
openapi: 3.0.3
info:
  title: Media
  version: 1.0.0
paths: {}
components:
  schemas:
    Cover:
      type: object
      title: Cover image
      format: image
      properties:
        url:
          type: string
          format: upload
        width:
          type: integer
        height:
          type: integer
`

func coverDocument(t *testing.T) *schema.Document {
	t.Helper()
	doc := schema.MustNewDocument(schema.SourceFromFile("cover.json"), []byte(coverSchema))
	return &doc
}

type scriptedDriver struct {
	inputs []string
	pos    int
}

func (d *scriptedDriver) Input(context.Context, tui.InputConfig) (string, error) {
	if d.pos >= len(d.inputs) {
		return "", errors.New("no input scripted")
	}
	val := d.inputs[d.pos]
	d.pos++
	return val, nil
}

func (d *scriptedDriver) Confirm(context.Context, tui.ConfirmConfig) (bool, error) {
	return false, errors.New("no confirm scripted")
}

func (d *scriptedDriver) Select(context.Context, tui.SelectConfig) (int, error) {
	return -1, errors.New("no select scripted")
}

func (d *scriptedDriver) Info(context.Context, string) error { return nil }

func TestMountSeedsValueAndErrors(t *testing.T) {
	o := New()
	form, err := o.Mount(testsupport.Context(), Request{
		Document: coverDocument(t),
		Value:    map[string]any{"url": "https://example.com/a.png", "alt": "Alt"},
		Errors:   map[string][]string{"/body/alt": {"Alt is too short"}},
	})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if _, ok := form.Root.(*editor.ImageEditor); !ok {
		t.Fatalf("expected image editor, got %T", form.Root)
	}

	value, _ := form.Root.Value().(map[string]any)
	if value["url"] != "https://example.com/a.png" || value["alt"] != "Alt" {
		t.Fatalf("unexpected value %v", value)
	}
	want := []editor.ValidationError{{Path: "root.alt", Message: "Alt is too short"}}
	if diff := cmp.Diff(want, form.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if _, ok := form.Host.Editor("root.alt"); !ok {
		t.Fatalf("child editors should be registered")
	}
}

func TestMountOpenAPIComponent(t *testing.T) {
	doc := schema.MustNewDocument(schema.SourceFromFile("media.yaml"), []byte(mediaOpenAPI))
	form, err := New().Mount(testsupport.Context(), Request{Document: &doc, Component: "Cover"})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	img, ok := form.Root.(*editor.ImageEditor)
	if !ok {
		t.Fatalf("expected image editor, got %T", form.Root)
	}
	if img.Schema().Title != "Cover image" {
		t.Fatalf("title = %q", img.Schema().Title)
	}

	if _, err := New().Mount(testsupport.Context(), Request{Document: &doc, Component: "Missing"}); err == nil {
		t.Fatalf("expected error for unknown component")
	}
}

func TestMountErrors(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	cases := []struct {
		name string
		o    *Orchestrator
		ctx  context.Context
		req  Request
		is   error
	}{
		{name: "no source", o: New(), ctx: testsupport.Context()},
		{name: "cancelled", o: New(), ctx: cancelled, req: Request{Document: coverDocument(t)}, is: context.Canceled},
		{
			name: "bad endpoint",
			o:    New(WithConfig(config.File{Upload: config.Upload{Endpoint: "ftp://uploads"}})),
			ctx:  testsupport.Context(),
			req:  Request{Document: coverDocument(t)},
			is:   upload.ErrInvalidEndpoint,
		},
		{
			name: "missing file",
			o:    New(),
			ctx:  testsupport.Context(),
			req:  Request{Source: schema.SourceFromFile("testdata/does-not-exist.json")},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.o.Mount(tc.ctx, tc.req)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("err = %v, want %v", err, tc.is)
			}
		})
	}
}

func TestRenderSignsCurrentValue(t *testing.T) {
	cfg := config.Default()
	cfg.State.Key = "render-secret"
	cfg.Theme.CSSVars = map[string]string{"--accent": "teal"}
	o := New(WithConfig(cfg))

	page, written := testsupport.CaptureOutput(t, func(w io.Writer) ([]byte, error) {
		return o.Render(testsupport.Context(), Request{
			Document: coverDocument(t),
			Value:    map[string]any{"alt": "Alt"},
		}, html.RenderOptions{Action: "/covers"}, w)
	})
	if page != written {
		t.Fatalf("writer output differs from returned bytes")
	}
	for _, want := range []string{"<title>Cover</title>", `action="/covers"`, "--accent: teal;"} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q:\n%s", want, page)
		}
	}

	match := regexp.MustCompile(`name="_state" value="([^"]+)"`).FindStringSubmatch(page)
	if match == nil {
		t.Fatalf("state field missing:\n%s", page)
	}
	decoded, err := o.Encoder().Decode(match[1])
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	value, _ := decoded["value"].(map[string]any)
	if value["alt"] != "Alt" {
		t.Fatalf("unexpected state %v", decoded)
	}
}

func TestRenderFragmentSkipsState(t *testing.T) {
	cfg := config.Default()
	cfg.State.Key = "render-secret"
	out, err := New(WithConfig(cfg)).Render(testsupport.Context(), Request{
		Schema: &schema.Schema{Type: schema.TypeString, Title: "Name"},
	}, html.RenderOptions{Fragment: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(out), "_state") || strings.Contains(string(out), "<html") {
		t.Fatalf("fragment should carry markup only:\n%s", out)
	}
	if !strings.Contains(string(out), "<input") {
		t.Fatalf("expected input markup:\n%s", out)
	}
}

func TestEditRunsSession(t *testing.T) {
	driver := &scriptedDriver{inputs: []string{"Ada"}}
	out, err := New().Edit(testsupport.Context(), Request{
		Schema: &schema.Schema{Type: schema.TypeString, Title: "Name"},
	}, tui.WithPromptDriver(driver))
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if string(out) != `"Ada"` {
		t.Fatalf("output = %s", out)
	}
}
