package editor

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-formedit/pkg/view"
)

// UploadState is the position of an upload control in its state machine.
type UploadState int

const (
	UploadEmpty UploadState = iota
	UploadPendingLocalFile
	UploadPendingURLPreview
	UploadUploading
	UploadCommitted
	UploadError
)

func (s UploadState) String() string {
	switch s {
	case UploadPendingLocalFile:
		return "pending-local-file"
	case UploadPendingURLPreview:
		return "pending-url-preview"
	case UploadUploading:
		return "uploading"
	case UploadCommitted:
		return "committed"
	case UploadError:
		return "error"
	default:
		return "empty"
	}
}

// Accepted file types for image uploaders.
const imageAccept = "image/jpeg, image/png, image/gif, image/bmp"

// Preview messages.
const (
	msgInvalidURL   = "Invalid url format"
	msgURLLoadError = "Could not load image from that url"
)

// UploadEditor is the upload control. Its committed value is always a plain
// URL string. A URL typed in the text field (image mode) is committed
// immediately and previewed; a selected local file is read into a pending
// data URL, previewed and only committed once an upload succeeds.
//
// The pending slot holds one value. Every new selection, URL edit or reset
// bumps a generation counter and supersedes the in-flight transfer, so
// callbacks from older operations find a stale generation and do nothing.
type UploadEditor struct {
	Base

	value       string
	state       UploadState
	pending     string
	lastPreview string
	file        *File
	image       ImageMetadata
	imageSrc    string
	generation  uint64
	reading     bool
	transfer    *Transfer

	label      *view.Element
	inputLabel *view.Element
	input      *view.Element
	uploader   *view.Element
	preview    *view.Element
	control    *view.Element
	button     *view.Element
	progress   *view.Element
	imageEl    *view.Element
}

// NewUploadEditor constructs an UploadEditor.
func NewUploadEditor(cfg Config) (Editor, error) {
	e := &UploadEditor{}
	e.Base.Init(e, cfg)
	return e, nil
}

func (e *UploadEditor) Build() error {
	if err := e.Base.Build(); err != nil {
		return err
	}
	theme := e.Theme()
	if e.container == nil {
		e.container = view.New("div")
	}
	image := e.Settings().Image

	e.label = theme.FormInputLabel(e.Title())
	if image {
		e.inputLabel = theme.FormInputLabel("Url")
		e.container.AppendChild(e.inputLabel)
	}
	inputType := "hidden"
	if image {
		inputType = "text"
	}
	e.input = theme.FormInputField(inputType)
	e.input.SetAttr("name", e.Path())
	e.container.AppendChild(e.input)
	if image {
		e.input.On("change", func() {
			_ = e.InputURL(e.input.Value())
		})
	}

	if !e.ReadOnly() {
		if !e.Host().HasUploader() {
			return fmt.Errorf("editor: %s: %w", e.Path(), ErrUploadHandlerRequired)
		}
		e.uploader = theme.FormInputField("file")
		if image {
			e.uploader.SetAttr("accept", imageAccept)
		}
	}

	e.preview = theme.FormInputDescription(e.Schema().Description)
	e.container.AppendChild(e.preview)

	field := e.uploader
	if field == nil {
		field = e.input
	}
	e.control = theme.FormControl(e.label, field, e.preview)
	e.container.AppendChild(e.control)
	return nil
}

// InputURL simulates the user changing the URL field. A parseable URL is
// committed and previewed; anything else is committed as raw text with an
// invalid format message in the preview.
func (e *UploadEditor) InputURL(text string) error {
	if e.input == nil || !e.Settings().Image {
		return ErrNoURLField
	}
	if !e.IsEnabled() {
		return ErrDisabled
	}
	if text == e.value {
		return nil
	}
	e.supersede()
	e.file = nil
	e.uploader.SetValue("")
	e.Theme().RemoveInputError(e.uploader)

	if !validURL(text) {
		e.commit(text)
		e.pending = ""
		e.refreshPreview(false)
		e.preview.Clear()
		e.preview.AppendChild(strong(msgInvalidURL))
		e.state = UploadError
		e.clearImage()
		if receiver, ok := e.Parent().(ImageReceiver); ok {
			receiver.OnImageUpload(ImageMetadata{})
		}
		e.Logger().Debug("upload url rejected", "value", text)
		e.Change()
		return nil
	}

	e.clearImage()
	e.pending = text
	e.commit(text)
	e.state = UploadPendingURLPreview
	e.refreshPreview(true)
	e.Change()
	return nil
}

// SelectFile stages a local file, replacing any unconfirmed selection. The
// file is read asynchronously into a data URL preview.
func (e *UploadEditor) SelectFile(file File) error {
	if e.uploader == nil {
		return ErrReadOnly
	}
	if !e.IsEnabled() {
		return ErrDisabled
	}
	e.supersede()
	staged := file
	e.file = &staged
	e.uploader.SetValue(file.Name)
	e.Theme().RemoveInputError(e.uploader)
	e.clearImage()
	e.state = UploadPendingLocalFile
	e.reading = true

	gen := e.generation
	e.Host().files.ReadDataURL(e.Host().Context(), file, func(dataURL string, err error) {
		if e.stale(gen) {
			e.Logger().Debug("discarding stale file read", "file", file.Name)
			return
		}
		e.reading = false
		if err != nil {
			e.Logger().Warn("read file for preview", "file", file.Name, "error", err)
			e.Theme().AddInputError(e.uploader, err.Error())
			e.state = UploadError
			return
		}
		e.pending = dataURL
		e.refreshPreview(false)
		e.OnChange(true)
	})
	return nil
}

// TriggerUpload starts uploading the staged file. It is bound to the Upload
// button in the preview.
func (e *UploadEditor) TriggerUpload() error {
	if e.file == nil || e.button == nil {
		return ErrNothingToUpload
	}
	if !e.IsEnabled() {
		return ErrDisabled
	}
	if e.button.Disabled() {
		return ErrUploadInProgress
	}
	theme := e.Theme()
	button := e.button
	button.SetDisabled(true)
	theme.RemoveInputError(e.uploader)

	e.removeProgress()
	if theme.SupportsProgress() {
		e.progress = theme.ProgressBar()
		e.preview.AppendChild(e.progress)
	}

	var t *Transfer
	t = newTransfer(e.Host().loop, transferHandlers{
		progress: func(fraction *float64) {
			e.onUploadProgress(t, fraction)
		},
		success: func(location string) {
			e.onUploadSuccess(t, button, location)
		},
		failure: func(err error) {
			e.onUploadFailure(t, button, err)
		},
	})
	e.transfer = t
	e.state = UploadUploading
	e.Logger().Debug("upload started", "transfer", t.ID(), "file", e.file.Name)
	e.Host().startUpload(e.Path(), *e.file, t)
	return nil
}

// Reset clears the pending preview and reports empty dimensions to the
// parent composite.
func (e *UploadEditor) Reset() {
	e.supersede()
	e.pending = ""
	e.file = nil
	e.uploader.SetValue("")
	e.clearImage()
	e.refreshPreview(false)
	e.state = UploadEmpty
	if receiver, ok := e.Parent().(ImageReceiver); ok {
		receiver.OnImageUpload(ImageMetadata{})
	}
	if listener, ok := e.Parent().(ChildChangeListener); ok {
		listener.OnChildEditorChange(e)
	}
}

func (e *UploadEditor) onUploadProgress(t *Transfer, fraction *float64) {
	if t != e.transfer || e.progress == nil {
		return
	}
	if fraction != nil && *fraction != 0 {
		e.Theme().UpdateProgressBar(e.progress, *fraction)
		return
	}
	e.Theme().UpdateProgressBarUnknown(e.progress)
}

func (e *UploadEditor) onUploadSuccess(t *Transfer, button *view.Element, location string) {
	if t != e.transfer {
		return
	}
	e.transfer = nil
	e.commit(location)
	if e.Settings().Image {
		if receiver, ok := e.Parent().(ImageReceiver); ok {
			receiver.OnImageUpload(e.stagedImage())
		}
	}
	e.Change()
	e.removeProgress()
	button.SetDisabled(false)
	e.state = UploadCommitted
	e.Logger().Info("upload committed", "transfer", t.ID(), "url", location)
}

func (e *UploadEditor) onUploadFailure(t *Transfer, button *view.Element, err error) {
	if t != e.transfer {
		return
	}
	e.transfer = nil
	message := "upload failed"
	if err != nil {
		message = err.Error()
	}
	e.Theme().AddInputError(e.uploader, message)
	e.removeProgress()
	button.SetDisabled(false)
	e.state = UploadError
	e.Logger().Warn("upload failed", "transfer", t.ID(), "error", err)
}

// refreshPreview re-renders the preview when the pending value differs from
// the last rendered one.
func (e *UploadEditor) refreshPreview(fromURL bool) {
	if e.lastPreview == e.pending {
		return
	}
	e.lastPreview = e.pending
	e.preview.Clear()
	e.button = nil
	e.imageEl = nil
	e.progress = nil

	if e.pending == "" {
		return
	}
	theme := e.Theme()

	mime := previewLabel(e.pending, fromURL)
	e.preview.AppendChild(strong("Type:"))
	e.preview.AppendChild(view.Text(" " + mime))
	if e.file != nil && !fromURL {
		e.preview.AppendChild(view.Text(", "))
		e.preview.AppendChild(strong("Size:"))
		e.preview.AppendChild(view.Text(" " + strconv.FormatInt(e.file.Size, 10) + " bytes"))
	}

	if strings.HasPrefix(mime, "image") || fromURL {
		e.preview.AppendChild(view.New("br"))
		e.imageEl = theme.Image(e.pending)
		e.preview.AppendChild(e.imageEl)
		e.loadImage(e.pending, fromURL)
	}

	e.preview.AppendChild(view.New("br"))
	if !fromURL {
		e.button = theme.Button("Upload", "upload", "Upload")
		e.preview.AppendChild(e.button)
		e.button.On("click", func() {
			if err := e.TriggerUpload(); err != nil {
				e.Logger().Debug("upload not started", "error", err)
			}
		})
	}
}

func (e *UploadEditor) loadImage(src string, fromURL bool) {
	gen := e.generation
	e.Host().images.Load(e.Host().Context(), src, func(meta ImageMetadata, err error) {
		if e.stale(gen) || e.pending != src {
			e.Logger().Debug("discarding stale image load")
			return
		}
		if err != nil {
			e.Logger().Warn("load preview image", "error", err)
			if fromURL {
				e.preview.Clear()
				e.preview.AppendChild(strong(msgURLLoadError))
				e.button = nil
				e.imageEl = nil
				e.state = UploadError
				return
			}
			e.preview.AppendChild(strong(msgURLLoadError))
			return
		}
		e.image = meta
		e.imageSrc = src
		if !fromURL {
			return
		}
		e.state = UploadCommitted
		if receiver, ok := e.Parent().(ImageReceiver); ok {
			receiver.OnImageUpload(meta)
			if listener, ok := e.Parent().(ChildChangeListener); ok {
				listener.OnChildEditorChange(e)
			}
		}
	})
}

// supersede moves the pending slot to a new generation and abandons the
// in-flight transfer.
func (e *UploadEditor) supersede() {
	e.generation++
	e.reading = false
	if e.transfer != nil {
		e.transfer.supersede()
		e.Logger().Debug("upload superseded", "transfer", e.transfer.ID())
		e.transfer = nil
	}
	e.removeProgress()
	if e.button != nil {
		e.button.SetDisabled(false)
	}
}

func (e *UploadEditor) clearImage() {
	e.image = ImageMetadata{}
	e.imageSrc = ""
}

// stagedImage returns the dimensions decoded from the current preview, or
// the zero value when the decode is missing or belongs to an older source.
func (e *UploadEditor) stagedImage() ImageMetadata {
	if e.imageSrc == "" || e.imageSrc != e.pending {
		return ImageMetadata{}
	}
	return e.image
}

func (e *UploadEditor) stale(gen uint64) bool {
	return e.Destroyed() || gen != e.generation
}

func (e *UploadEditor) removeProgress() {
	if e.progress != nil {
		e.progress.Remove()
		e.progress = nil
	}
}

func (e *UploadEditor) commit(value string) {
	if value == e.value {
		return
	}
	e.value = value
	e.input.SetValue(value)
	e.Notify()
}

func (e *UploadEditor) Value() any { return e.value }

func (e *UploadEditor) SetValue(value any) {
	e.commit(stringValue(value))
	if e.value != "" && e.state == UploadEmpty {
		e.state = UploadCommitted
	}
}

func (e *UploadEditor) Enable() {
	if e.uploader != nil {
		e.uploader.SetDisabled(false)
	}
	e.Base.Enable()
}

func (e *UploadEditor) Disable() {
	if e.uploader != nil {
		e.uploader.SetDisabled(true)
	}
	e.Base.Disable()
}

func (e *UploadEditor) ShowValidationErrors(errs []ValidationError) {
	target := e.uploader
	if target == nil {
		target = e.input
	}
	e.showInputErrors(target, errs)
}

func (e *UploadEditor) Destroy() {
	if e.Destroyed() {
		return
	}
	e.supersede()
	e.preview.Remove()
	e.label.Remove()
	e.inputLabel.Remove()
	e.input.Remove()
	e.uploader.Remove()
	e.control.Remove()
	e.Base.Destroy()
}

// State reports the state machine position.
func (e *UploadEditor) State() UploadState { return e.state }

// Pending returns the uncommitted preview source.
func (e *UploadEditor) Pending() string { return e.pending }

// Reading reports whether a selected file is still being read.
func (e *UploadEditor) Reading() bool { return e.reading }

// Image returns the dimensions of the last decoded preview.
func (e *UploadEditor) Image() ImageMetadata { return e.image }

// StagedFile returns the file awaiting upload.
func (e *UploadEditor) StagedFile() (File, bool) {
	if e.file == nil {
		return File{}, false
	}
	return *e.file, true
}

// Transfer returns the in-flight transfer, if any.
func (e *UploadEditor) Transfer() *Transfer { return e.transfer }

func (e *UploadEditor) URLInput() *view.Element     { return e.input }
func (e *UploadEditor) Uploader() *view.Element     { return e.uploader }
func (e *UploadEditor) Preview() *view.Element      { return e.preview }
func (e *UploadEditor) UploadButton() *view.Element { return e.button }
func (e *UploadEditor) ProgressBar() *view.Element  { return e.progress }
func (e *UploadEditor) PreviewImage() *view.Element { return e.imageEl }

func validURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return false
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return u.Host != ""
	}
	return u.Opaque != "" || u.Host != "" || u.Path != ""
}

func strong(text string) *view.Element {
	el := view.New("strong")
	el.SetText(text)
	return el
}
