package schema

import "errors"

// Format identifies the encoding of a schema document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Document wraps a raw editor schema payload and its origin.
type Document struct {
	source Source
	raw    []byte
	format Format
}

// NewDocument copies raw and infers the format from the source location.
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if len(raw) == 0 {
		return Document{}, errors.New("schema: raw document is empty")
	}
	return Document{
		source: src,
		raw:    append([]byte(nil), raw...),
		format: formatFromLocation(src.Location()),
	}, nil
}

// MustNewDocument panics if the document cannot be created. Useful for tests.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

// Source returns the origin metadata for the document.
func (d Document) Source() Source {
	return d.source
}

// Format reports how Raw is encoded.
func (d Document) Format() Format {
	if d.format == "" {
		return FormatJSON
	}
	return d.format
}

// Raw returns a defensive copy of the payload.
func (d Document) Raw() []byte {
	return append([]byte(nil), d.raw...)
}

// Location returns the string identifier for the origin.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}
