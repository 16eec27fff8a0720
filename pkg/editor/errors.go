package editor

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrUploadHandlerRequired is returned when an editable upload control is
	// built on a host without an upload function.
	ErrUploadHandlerRequired = errors.New("editor: upload handler required for upload editor")
	// ErrNoEditor signals that no registered kind matches a schema.
	ErrNoEditor = errors.New("editor: no editor kind matches schema")
	// ErrUnknownKind is returned when a kind has no constructor.
	ErrUnknownKind = errors.New("editor: unknown editor kind")
	// ErrReadOnly is returned when a file is selected on a read-only control.
	ErrReadOnly = errors.New("editor: upload control is read-only")
	// ErrDisabled is returned for input on a disabled control.
	ErrDisabled = errors.New("editor: control is disabled")
	// ErrNoURLField is returned for URL input on a control built without the
	// image option.
	ErrNoURLField = errors.New("editor: upload control has no url field")
	// ErrNothingToUpload is returned when an upload is triggered without a
	// staged file.
	ErrNothingToUpload = errors.New("editor: no file staged for upload")
	// ErrUploadInProgress is returned when the upload trigger is disabled.
	ErrUploadInProgress = errors.New("editor: upload already in progress")
	// ErrTransferResolved is returned when a transfer is resolved twice.
	ErrTransferResolved = errors.New("editor: transfer already resolved")
	// ErrFileTooLarge is returned when a staged file exceeds the read limit.
	ErrFileTooLarge = errors.New("editor: file too large")
)

// ValidationError is a schema validation message addressed to an editor path.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// partitionErrors splits errs into those addressed to path and the rest.
func partitionErrors(path string, errs []ValidationError) (mine, others []ValidationError) {
	for _, err := range errs {
		if err.Path == path {
			mine = append(mine, err)
			continue
		}
		others = append(others, err)
	}
	return mine, others
}

func joinMessages(errs []ValidationError) string {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		if msg := strings.TrimSpace(err.Message); msg != "" {
			messages = append(messages, msg)
		}
	}
	return strings.Join(messages, ", ")
}

// MapErrorPayload converts a go-errors style payload (JSON pointers, dotted or
// bracketed paths, optional body/data wrappers) into validation errors
// addressed to registered editor paths. Unknown paths fall back to the root
// path so messages are not lost.
func (h *Host) MapErrorPayload(payload map[string][]string) []ValidationError {
	if len(payload) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(h.editors))
	for path := range h.editors {
		known[path] = struct{}{}
	}

	raws := make([]string, 0, len(payload))
	for raw := range payload {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	var out []ValidationError
	for _, raw := range raws {
		path := mapErrorPath(raw, known)
		for _, msg := range normalizeMessages(payload[raw]) {
			out = append(out, ValidationError{Path: path, Message: msg})
		}
	}
	return out
}

func mapErrorPath(raw string, known map[string]struct{}) string {
	segments := parsePathSegments(raw)
	if len(segments) > 0 && segments[0] == RootPath {
		segments = segments[1:]
	}
	segments = dropWrapperSegments(segments)

	for end := len(segments); end > 0; end-- {
		candidate := RootPath + "." + strings.Join(segments[:end], ".")
		if _, ok := known[candidate]; ok {
			return candidate
		}
	}
	return RootPath
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = clean[1:]
	}
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 {
		switch strings.ToLower(out[0]) {
		case "body", "request", "payload", "data", "attributes":
			out = out[1:]
			continue
		}
		if _, err := strconv.Atoi(out[0]); err == nil {
			out = out[1:]
			continue
		}
		break
	}
	return out
}

func normalizeMessages(messages []string) []string {
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
