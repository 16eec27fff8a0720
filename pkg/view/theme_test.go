package view

import (
	"testing"

	theme "github.com/goliatone/go-theme"
)

func TestThemeTokenOverrides(t *testing.T) {
	th := NewTheme(&theme.RendererConfig{
		Theme: "acme",
		Tokens: map[string]string{
			TokenButton:   " btn btn-sm ",
			TokenProgress: "none",
			"brand":       "#123456",
		},
		CSSVars: map[string]string{"--brand": "#123456"},
	})

	if th.Name() != "acme" {
		t.Fatalf("name = %q", th.Name())
	}
	if got := th.Button("Go", "", "").Classes(); len(got) != 2 || got[0] != "btn" {
		t.Fatalf("button classes = %v", got)
	}
	if th.SupportsProgress() {
		t.Fatalf("progress token none should disable bars")
	}
	if th.Class(TokenLabel) != "editor-label" {
		t.Fatalf("unset tokens keep defaults")
	}
	if th.Class("brand") != "" {
		t.Fatalf("non editor tokens must not leak into classes")
	}
	if th.CSSVars()["--brand"] != "#123456" {
		t.Fatalf("css vars not exposed")
	}

	def := DefaultTheme()
	if !def.SupportsProgress() || def.Name() != "" || def.CSSVars() != nil {
		t.Fatalf("unexpected default theme")
	}
}

func TestSanitizedText(t *testing.T) {
	th := DefaultTheme()
	cases := map[string]string{
		"plain":   "Invalid url format",
		"markup":  `<b>bold</b><script>alert(1)</script> text`,
		"entity":  "Tom &amp; Jerry",
		"padding": "  spaced  ",
	}
	want := map[string]string{
		"plain":   "Invalid url format",
		"markup":  "bold text",
		"entity":  "Tom & Jerry",
		"padding": "spaced",
	}
	for name, raw := range cases {
		if got := th.ErrorMessage(raw).TextContent(); got != want[name] {
			t.Fatalf("%s: got %q, want %q", name, got, want[name])
		}
	}
}

func TestInputErrorDecoration(t *testing.T) {
	th := DefaultTheme()
	input := th.FormInputField("text")

	th.AddInputError(input, "Too wide")
	if !input.HasClass("is-invalid") || InputError(input) != "Too wide" {
		t.Fatalf("decoration missing: %v", input.Attrs())
	}
	th.RemoveInputError(input)
	if input.HasClass("is-invalid") || InputError(input) != "" {
		t.Fatalf("decoration not cleared: %v", input.Attrs())
	}
}

func TestProgressBar(t *testing.T) {
	th := DefaultTheme()
	bar := th.ProgressBar()
	if _, ok := bar.Attr("value"); ok {
		t.Fatalf("new bars are indeterminate")
	}

	cases := []struct {
		fraction float64
		want     string
	}{
		{0.5, "50"},
		{1.7, "100"},
		{-1, "0"},
		{0.333, "33"},
	}
	for _, tc := range cases {
		th.UpdateProgressBar(bar, tc.fraction)
		if got := bar.Value(); got != tc.want {
			t.Fatalf("fraction %v: value = %q, want %q", tc.fraction, got, tc.want)
		}
	}
	th.UpdateProgressBarUnknown(bar)
	if _, ok := bar.Attr("value"); ok {
		t.Fatalf("unknown should clear value")
	}
}

func TestFormControlSkipsNil(t *testing.T) {
	th := DefaultTheme()
	ctrl := th.FormControl(th.FormInputLabel("Url"), nil, th.FormInputDescription(""))
	if len(ctrl.Children()) != 2 {
		t.Fatalf("children = %d", len(ctrl.Children()))
	}
	img := th.Image("data:image/png;base64,AA==")
	if src, _ := img.Attr("src"); src == "" || img.Style("max-height") != "100px" {
		t.Fatalf("unexpected image %v", img.Attrs())
	}
}
