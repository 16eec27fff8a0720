package testsupport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/goliatone/go-formedit/pkg/schema"
)

// LoadSchema reads a JSON or YAML fixture and decodes it into an editor
// schema. Testing helpers fail the test on error to keep call sites short.
func LoadSchema(t *testing.T, path string) *schema.Schema {
	t.Helper()

	s, err := LoadSchemaFromPath(path)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	return s
}

// LoadSchemaFromPath returns a decoded schema without requiring testing.T so
// callers can wire fixtures in setup functions.
func LoadSchemaFromPath(path string) (*schema.Schema, error) {
	if path == "" {
		return nil, errors.New("testsupport: schema path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read schema: %w", err)
	}
	doc, err := schema.NewDocument(schema.SourceFromFile(path), data)
	if err != nil {
		return nil, fmt.Errorf("testsupport: new document: %w", err)
	}
	return schema.Decode(doc)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// CaptureOutput runs a render function that also writes to an io.Writer and
// returns both payloads, so tests can assert they match without duplicating
// buffer setup.
func CaptureOutput(t *testing.T, render func(io.Writer) ([]byte, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out), buf.String()
}
