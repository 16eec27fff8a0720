package editor

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formedit/pkg/view"
)

func TestMapErrorPayload(t *testing.T) {
	f := newFixture(t)
	img := f.mountImage(t, imageSchemaJSON)

	payload := map[string][]string{
		"/body/url":                    {"URL is required"},
		"body.alt":                     {"Alt invalid", " Alt invalid "},
		"$.root.width":                 {"Too wide"},
		"request/payload/height/extra": {"Height bad"},
		"data.0.alt":                   {"Alt missing"},
		"non_field_errors":             {"Form level"},
		"":                             {"Unscoped", "  "},
	}

	got := f.host.MapErrorPayload(payload)
	want := []ValidationError{
		{Path: "root", Message: "Unscoped"},
		{Path: "root.width", Message: "Too wide"},
		{Path: "root.url", Message: "URL is required"},
		{Path: "root.alt", Message: "Alt invalid"},
		{Path: "root.alt", Message: "Alt missing"},
		{Path: "root", Message: "Form level"},
		{Path: "root.height", Message: "Height bad"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mapped errors mismatch (-want +got):\n%s", diff)
	}

	img.ShowValidationErrors(got)
	alt, _ := img.Child("alt")
	if msg := view.InputError(alt.(*StringEditor).Element()); msg != "Alt invalid, Alt missing" {
		t.Fatalf("alt error = %q", msg)
	}
	if text := img.ErrorHolder().TextContent(); text != "UnscopedForm level" {
		t.Fatalf("composite errors = %q", text)
	}
}

func TestMapErrorPayloadEmpty(t *testing.T) {
	host := NewHost()
	if got := host.MapErrorPayload(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
