package tui

import (
	"time"

	"github.com/goliatone/go-formedit/pkg/editor"
)

// OutputFormat controls how the collected value is serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits the value as JSON in declared property order.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded payloads.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits a human-friendly text summary.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Theme captures optional message prefixes. Keep minimal to avoid coupling
// session logic to ANSI specifics.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// FileOpener turns a user supplied path into an editor file.
type FileOpener func(path string) (editor.File, error)

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver used by the session.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithOutputFormat selects the output serialization format.
func WithOutputFormat(format OutputFormat) Option {
	return func(s *Session) {
		if format != "" {
			s.outputFormat = format
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}

// WithFileOpener overrides how local file paths are opened.
func WithFileOpener(open FileOpener) Option {
	return func(s *Session) {
		if open != nil {
			s.openFile = open
		}
	}
}

// WithStepTimeout bounds each wait for a file read, image load or upload.
func WithStepTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		s.stepTimeout = timeout
	}
}
