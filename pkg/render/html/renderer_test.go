package html

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formedit/pkg/state"
	"github.com/goliatone/go-formedit/pkg/testsupport"
	"github.com/goliatone/go-formedit/pkg/view"
)

func sampleTree() *view.Element {
	th := view.DefaultTheme()
	root := view.New("div", "editor")
	root.AppendChild(th.Header(view.New("span")))
	root.AppendChild(th.FormControl(th.FormInputLabel("Url"), th.FormInputField("text"), th.FormInputDescription("")))

	note := view.New("p")
	note.SetText("<b>5 < 6</b>")
	root.AppendChild(note)

	hidden := view.New("div", "derived")
	hidden.Hide()
	root.AppendChild(hidden)

	script := view.New("script")
	script.SetText("alert(1)")
	root.AppendChild(script)

	root.AppendChild(th.Image("data:image/png;base64,iVBORw0KGgo="))
	return root
}

func TestMarkupEscapesAndSanitizes(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got := r.Markup(sampleTree())

	for _, want := range []string{
		`class="editor"`,
		`type="text"`,
		"&lt;b&gt;5 &lt; 6&lt;/b&gt;",
		"hidden",
		`src="data:image/png;base64,iVBORw0KGgo="`,
		"max-height",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("markup missing %q:\n%s", want, got)
		}
	}
	for _, banned := range []string{"<script", "alert(1)", "<b>"} {
		if strings.Contains(got, banned) {
			t.Fatalf("markup contains %q:\n%s", banned, got)
		}
	}
}

func TestRenderPage(t *testing.T) {
	enc, err := state.NewEncoder([]byte("secret"))
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	th := view.NewTheme(&theme.RendererConfig{
		Theme:   "acme",
		CSSVars: map[string]string{"--brand": "#123456", "--accent": "red"},
	})
	r, err := New(WithTheme(th), WithStateEncoder(enc))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	page, written := testsupport.CaptureOutput(t, func(w io.Writer) ([]byte, error) {
		return r.Render(testsupport.Context(), sampleTree(), RenderOptions{
			Title:  "Cover <image>",
			Action: "/save",
			State:  map[string]any{"url": "https://cdn.example.com/a.png", "width": 100},
		}, w)
	})
	if written != page {
		t.Fatalf("writer and result differ")
	}

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Cover &lt;image&gt;</title>",
		"--accent: red; --brand: #123456;",
		`data-theme="acme"`,
		`method="post" action="/save"`,
		`class="editor"`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("page missing %q:\n%s", want, page)
		}
	}

	match := regexp.MustCompile(`name="_state" value="([^"]+)"`).FindStringSubmatch(page)
	if match == nil {
		t.Fatalf("state field missing:\n%s", page)
	}
	value, err := enc.Decode(match[1])
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if value["width"] != 100 {
		t.Fatalf("state value = %v", value)
	}
}

func TestRenderOptions(t *testing.T) {
	r, err := New(WithTemplate(`<main>{{ markup|safe }}</main>`))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	root := view.New("div")

	page, err := r.Render(context.Background(), root, RenderOptions{})
	if err != nil || string(page) != "<main><div></div></main>" {
		t.Fatalf("custom template = %q err=%v", page, err)
	}

	fragment, err := r.Render(context.Background(), root, RenderOptions{Fragment: true})
	if err != nil || string(fragment) != "<div></div>" {
		t.Fatalf("fragment = %q err=%v", fragment, err)
	}

	if _, err := r.Render(context.Background(), root, RenderOptions{State: map[string]any{}}); !errors.Is(err, ErrNoStateEncoder) {
		t.Fatalf("err = %v", err)
	}
	if _, err := r.Render(context.Background(), nil, RenderOptions{}); err == nil {
		t.Fatalf("expected error for nil root")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, root, RenderOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}

	if _, err := New(WithTemplate(`{% if %}`)); err == nil {
		t.Fatalf("expected template compile error")
	}
}
