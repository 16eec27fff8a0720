package schema

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Source identifies where a schema document lives so the loader can read
// files, fs.FS entries or URLs behind one call.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

type source struct {
	kind     SourceKind
	location string
}

func (s source) Kind() SourceKind { return s.kind }
func (s source) Location() string { return s.location }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return source{kind: SourceKindFile, location: filepath.Clean(path)}
}

// SourceFromFS returns a Source identifying a file inside an fs.FS.
func SourceFromFS(name string) Source {
	return source{kind: SourceKindFS, location: name}
}

// SourceFromURL validates raw and returns an HTTP(S) source.
func SourceFromURL(raw string) (Source, error) {
	parsed, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("schema: invalid URL %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("schema: unsupported URL scheme %q", parsed.Scheme)
	}
	return source{kind: SourceKindURL, location: parsed.String()}, nil
}

// ParseSource maps a CLI style argument onto a file or URL source.
func ParseSource(raw string) (Source, error) {
	path := strings.TrimSpace(raw)
	if path == "" {
		return nil, fmt.Errorf("schema: empty source")
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return SourceFromURL(path)
	}
	return SourceFromFile(path), nil
}
