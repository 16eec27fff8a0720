package upload

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formedit/pkg/editor"
)

// Inline commits staged files as data URLs without leaving the process. It
// suits offline sessions where no upload endpoint is configured.
func Inline() editor.UploadFunc {
	return func(_ context.Context, _ string, file editor.File, t *editor.Transfer) {
		go func() {
			data, err := file.ReadAll()
			if err != nil {
				_ = t.Fail(fmt.Errorf("upload: read %s: %w", file.Name, err))
				return
			}
			full := 1.0
			t.Progress(&full)
			_ = t.Succeed(editor.EncodeDataURL(file.Type, data))
		}()
	}
}
