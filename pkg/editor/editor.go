// Package editor implements headless, schema-driven form editors: a lifecycle
// contract shared by every editor variant, a host context that creates and
// tracks editors, a composite image editor and an upload control with an
// asynchronous transfer protocol.
//
// Editors are not safe for concurrent use. Every method, and every callback
// delivered by file readers, image loaders and transfers, runs on the host's
// Loop, which gives the single-threaded cooperative model the upload state
// machine relies on.
package editor

import (
	"github.com/goliatone/go-formedit/pkg/schema"
	"github.com/goliatone/go-formedit/pkg/view"
)

// RootPath is the path of editors mounted directly on a host.
const RootPath = "root"

// Editor is the lifecycle contract every variant satisfies. The host calls the
// hooks in a fixed order: construct, PreBuild, Build, PostBuild, Register,
// then any number of value and state calls, then Destroy.
type Editor interface {
	Key() string
	Path() string
	Schema() *schema.Schema
	Settings() Settings
	Parent() Editor
	Container() *view.Element
	SetContainer(container *view.Element)

	PreBuild() error
	Build() error
	PostBuild()

	Enable()
	Disable()
	IsEnabled() bool
	Show()
	Hide()

	Register()
	Unregister()

	Value() any
	SetValue(value any)
	ShowValidationErrors(errs []ValidationError)
	Watch(fn func())

	Destroy()
}

// ChildChangeListener is implemented by container editors that aggregate the
// values of their children.
type ChildChangeListener interface {
	OnChildEditorChange(child Editor)
}

// ImageReceiver is implemented by editors that accept decoded image
// dimensions from an upload control (the dimension side channel).
type ImageReceiver interface {
	OnImageUpload(meta ImageMetadata)
}

// Config is passed to constructors by the factory.
type Config struct {
	Host   *Host
	Schema *schema.Schema
	Key    string
	Path   string
	Parent Editor
	// Options are instance-level overrides layered over the schema options.
	Options schema.Options
}

// Constructor builds an unattached editor instance.
type Constructor func(cfg Config) (Editor, error)
